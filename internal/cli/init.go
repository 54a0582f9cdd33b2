package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"reelcut/internal/config"
	"reelcut/internal/engine"
	"reelcut/internal/logx"
	"reelcut/internal/paths"
)

var initName string

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a project with a config, an empty timeline and media/exports dirs",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runInit,
	}
	cmd.Flags().StringVar(&initName, "name", "", "Project name (default: the directory name)")
	return cmd
}

func resolveInitDir(projectFlag string, args []string) (string, error) {
	if projectFlag != "" {
		return projectFlag, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	if len(args) > 0 {
		if args[0] == "." {
			return cwd, nil
		}
		return filepath.Join(cwd, args[0]), nil
	}

	return nextAvailableDir(cwd)
}

func nextAvailableDir(base string) (string, error) {
	for i := 1; ; i++ {
		candidate := filepath.Join(base, fmt.Sprintf("reelcut-%d", i))
		exists, err := paths.DirExists(candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	dir, err := resolveInitDir(projectDir, args)
	if err != nil {
		return err
	}
	pp, err := paths.Resolve(dir)
	if err != nil {
		return err
	}
	if err := pp.EnsureRoot(); err != nil {
		return err
	}
	if err := pp.EnsureMetaDirs(); err != nil {
		return err
	}

	logger, closer, err := logx.New(pp, logx.Options{Verbose: verbose})
	if err != nil {
		return err
	}
	defer closer.Close()
	logger.Info().Str("project", pp.Root).Msg("reelcut init")

	name := strings.TrimSpace(initName)
	if name == "" {
		name = filepath.Base(pp.Root)
	}

	var created []string
	steps := []func() error{
		func() error { return ensureConfig(pp, &created, logger) },
		func() error { return ensureProjectFile(pp, name, &created, logger) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}

	if len(created) == 0 {
		cmd.Printf("Project already initialized at %s\n", pp.Root)
		return nil
	}
	cmd.Printf("Initialized %q at %s\n", name, pp.Root)
	for _, entry := range created {
		cmd.Printf("  created %s\n", entry)
	}
	cmd.Printf("\nNext: reelcut --project %s media add <files> --place\n", pp.Root)
	return nil
}

func ensureConfig(pp paths.ProjectPaths, created *[]string, logger zerolog.Logger) error {
	exists, err := paths.FileExists(pp.ConfigFile)
	if err != nil {
		return fmt.Errorf("check config: %w", err)
	}
	if exists {
		logger.Debug().Str("path", pp.ConfigFile).Msg("config exists")
		return nil
	}

	cfg := config.Default()
	cfg.ApplyDefaults()
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}

	if err := os.WriteFile(pp.ConfigFile, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	logger.Info().Str("path", pp.ConfigFile).Msg("created config")
	*created = append(*created, filepath.Base(pp.ConfigFile))
	return nil
}

func ensureProjectFile(pp paths.ProjectPaths, name string, created *[]string, logger zerolog.Logger) error {
	exists, err := paths.FileExists(pp.ProjectFile)
	if err != nil {
		return fmt.Errorf("check project file: %w", err)
	}
	if exists {
		logger.Debug().Str("path", pp.ProjectFile).Msg("project file exists")
		return nil
	}

	pf := engine.ProjectFile{
		Version: engine.ProjectVersion,
		Name:    name,
		Zoom:    1,
	}
	if err := engine.WriteProjectFile(pp.ProjectFile, pf); err != nil {
		return err
	}
	logger.Info().Str("path", pp.ProjectFile).Msg("created project file")
	*created = append(*created, filepath.Base(pp.ProjectFile))
	return nil
}
