package paths

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"reelcut/internal/config"
)

// ProjectPaths captures canonical locations for a reelcut project.
type ProjectPaths struct {
	Root        string
	ConfigFile  string
	ProjectFile string
	MediaDir    string
	ExportsDir  string
	LogsDir     string
	MetaDir     string
	CacheDir    string
	DBFile      string
	HistoryFile string
}

// Resolve determines the project root using the optional --project flag or the
// current working directory when the flag is empty.
func Resolve(projectFlag string) (ProjectPaths, error) {
	var (
		root string
		err  error
	)

	if projectFlag != "" {
		root, err = filepath.Abs(projectFlag)
	} else {
		root, err = os.Getwd()
	}
	if err != nil {
		return ProjectPaths{}, fmt.Errorf("resolve project root: %w", err)
	}

	return newProjectPaths(root), nil
}

func newProjectPaths(root string) ProjectPaths {
	metaDir := filepath.Join(root, ".reelcut")
	configFile := filepath.Join(root, "reelcut.yaml")
	if _, err := os.Stat(configFile); err != nil {
		if alt := filepath.Join(root, "reelcut.toml"); exists(alt) {
			configFile = alt
		}
	}
	return ProjectPaths{
		Root:        root,
		ConfigFile:  configFile,
		ProjectFile: filepath.Join(root, "project.json"),
		MediaDir:    filepath.Join(root, "media"),
		ExportsDir:  filepath.Join(root, "exports"),
		LogsDir:     filepath.Join(root, "logs"),
		MetaDir:     metaDir,
		CacheDir:    filepath.Join(metaDir, "cache"),
		DBFile:      filepath.Join(metaDir, "projects.db"),
		HistoryFile: filepath.Join(metaDir, "shell_history"),
	}
}

// ApplyConfig points the media and export directories at the configured
// locations.
func ApplyConfig(pp ProjectPaths, cfg config.Config) ProjectPaths {
	if dir := strings.TrimSpace(cfg.Media.Dir); dir != "" {
		pp.MediaDir = resolveProjectPath(pp.Root, dir)
	}
	if dir := strings.TrimSpace(cfg.Export.OutputDir); dir != "" {
		pp.ExportsDir = resolveProjectPath(pp.Root, dir)
	}
	return pp
}

func resolveProjectPath(root, value string) string {
	if filepath.IsAbs(value) {
		return filepath.Clean(value)
	}
	return filepath.Join(root, value)
}

// EnsureRoot makes sure the project root exists on disk.
func (p ProjectPaths) EnsureRoot() error {
	if err := os.MkdirAll(p.Root, 0o755); err != nil {
		return fmt.Errorf("create project root: %w", err)
	}
	return nil
}

// EnsureMetaDirs creates the media/exports/logs hierarchy alongside the hidden
// .reelcut metadata directory.
func (p ProjectPaths) EnsureMetaDirs() error {
	dirs := []string{p.MetaDir, p.CacheDir, p.MediaDir, p.ExportsDir, p.LogsDir}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// FileExists reports whether path is an existing regular file.
func FileExists(path string) (bool, error) {
	return statIs(path, func(fi fs.FileInfo) bool { return fi.Mode().IsRegular() })
}

// DirExists reports whether path is an existing directory.
func DirExists(path string) (bool, error) {
	return statIs(path, fs.FileInfo.IsDir)
}

func statIs(path string, pred func(fs.FileInfo) bool) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return pred(info), nil
}

func exists(path string) bool {
	ok, _ := FileExists(path)
	return ok
}
