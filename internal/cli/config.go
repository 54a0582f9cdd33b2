package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"reelcut/internal/config"
	"reelcut/internal/export"
	"reelcut/internal/paths"
	"reelcut/internal/runner"
	"reelcut/internal/tui"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or edit project configuration",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigEditCmd())
	cmd.AddCommand(newConfigExportCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration in YAML",
		RunE:  runConfigShow,
	}
}

func newConfigEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit",
		Short: "Open the project configuration in $EDITOR",
		RunE:  runConfigEdit,
	}
}

func newConfigExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Choose export profile, resolution, frame rate and bitrate interactively",
		RunE:  runConfigExport,
	}
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return err
	}
	cfg, err := config.Load(pp.ConfigFile)
	if err != nil {
		return err
	}

	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "# %s\n%s", pp.ConfigFile, data)
	if !bytes.HasSuffix(data, []byte("\n")) {
		fmt.Fprintln(out)
	}
	reportFindings(cmd.ErrOrStderr(), cfg)
	return nil
}

func runConfigEdit(cmd *cobra.Command, _ []string) error {
	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return err
	}
	if err := pp.EnsureRoot(); err != nil {
		return err
	}
	var created []string
	if err := ensureConfig(pp, &created, log.Logger); err != nil {
		return err
	}

	editor := os.Getenv("VISUAL")
	if strings.TrimSpace(editor) == "" {
		editor = os.Getenv("EDITOR")
	}
	argv := splitEditorCommand(editor)
	if len(argv) == 0 {
		argv = []string{"vi"}
	}
	argv = append(argv, pp.ConfigFile)

	edit := exec.CommandContext(cmdContext(cmd), argv[0], argv[1:]...)
	edit.Stdin, edit.Stdout, edit.Stderr = cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr()
	edit.Dir = pp.Root
	if err := edit.Run(); err != nil {
		return fmt.Errorf("run editor %s: %w", argv[0], err)
	}

	// Reload so a broken edit is reported now rather than on the next export.
	cfg, err := config.Load(pp.ConfigFile)
	if err != nil {
		return err
	}
	if reportFindings(cmd.ErrOrStderr(), cfg) {
		return fmt.Errorf("%s has errors", filepath.Base(pp.ConfigFile))
	}
	return nil
}

// reportFindings prints validation results and reports whether any is an
// error.
func reportFindings(w io.Writer, cfg config.Config) bool {
	findings := cfg.Validate(export.ResolutionNames(), export.ProfileNames())
	for _, f := range findings {
		fmt.Fprintf(w, "%s: %s\n", f.Level, f.Message)
	}
	return config.HasErrors(findings)
}

func runConfigExport(cmd *cobra.Command, _ []string) error {
	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return err
	}
	var created []string
	if err := ensureConfig(pp, &created, log.Logger); err != nil {
		return err
	}
	cfg, err := config.Load(pp.ConfigFile)
	if err != nil {
		return err
	}
	if tui.DetectMode(cmd.OutOrStdout(), false, outputJSON) != tui.ModeTUI {
		return errors.New("config export needs an interactive terminal; edit the export section with `reelcut config edit`")
	}

	profile := ""
	if len(cfg.Export.Profiles) > 0 {
		profile = cfg.Export.Profiles[0]
	}
	prober := export.NewProber(runner.CmdRunner{}, cfg.Tools.FFmpeg)
	res, err := tui.RunExportSetup(cmd.OutOrStdout(), prober.Probe, tui.ExportDefaults{
		Profile:     profile,
		Resolution:  cfg.Export.Resolution,
		FPS:         cfg.Export.FPS,
		BitrateKbps: cfg.Export.BitrateKbps,
	})
	if err != nil {
		return err
	}
	if res.Cancelled {
		return nil
	}

	applyExportSetup(&cfg, res)
	if err := writeConfig(pp.ConfigFile, cfg); err != nil {
		return err
	}
	cmd.Printf("Saved export settings to %s\n", pp.ConfigFile)
	return nil
}

// applyExportSetup makes the chosen profile the first preference, keeping
// the others as fallbacks.
func applyExportSetup(cfg *config.Config, res tui.ExportSetupResult) {
	profiles := []string{res.Profile}
	for _, p := range cfg.Export.Profiles {
		if p != res.Profile {
			profiles = append(profiles, p)
		}
	}
	cfg.Export.Profiles = profiles
	cfg.Export.Resolution = res.Resolution
	cfg.Export.FPS = res.FPS
	cfg.Export.BitrateKbps = res.BitrateKbps
}

func writeConfig(path string, cfg config.Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return fmt.Errorf("%s is TOML; edit it by hand or switch to reelcut.yaml", filepath.Base(path))
	}
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

func splitEditorCommand(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return strings.Fields(value)
}
