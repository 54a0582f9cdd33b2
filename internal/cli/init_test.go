package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"reelcut/internal/config"
	"reelcut/internal/engine"
	"reelcut/internal/paths"
)

func TestResolveInitDir(t *testing.T) {
	t.Run("project flag takes precedence", func(t *testing.T) {
		dir, err := resolveInitDir("/custom/path", []string{"ignored"})
		if err != nil {
			t.Fatal(err)
		}
		if dir != "/custom/path" {
			t.Fatalf("got %s, want /custom/path", dir)
		}
	})

	t.Run("dot uses cwd", func(t *testing.T) {
		cwd, _ := os.Getwd()
		dir, err := resolveInitDir("", []string{"."})
		if err != nil {
			t.Fatal(err)
		}
		if dir != cwd {
			t.Fatalf("got %s, want %s", dir, cwd)
		}
	})

	t.Run("named arg creates subdirectory", func(t *testing.T) {
		cwd, _ := os.Getwd()
		dir, err := resolveInitDir("", []string{"trailer"})
		if err != nil {
			t.Fatal(err)
		}
		want := filepath.Join(cwd, "trailer")
		if dir != want {
			t.Fatalf("got %s, want %s", dir, want)
		}
	})
}

func TestNextAvailableDir(t *testing.T) {
	base := t.TempDir()

	dir, err := nextAvailableDir(base)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(base, "reelcut-1"); dir != want {
		t.Fatalf("got %s, want %s", dir, want)
	}

	for _, name := range []string{"reelcut-1", "reelcut-2"} {
		if err := os.Mkdir(filepath.Join(base, name), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	dir, err = nextAvailableDir(base)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(base, "reelcut-3"); dir != want {
		t.Fatalf("got %s, want %s", dir, want)
	}
}

func TestEnsureConfigAndProjectFile(t *testing.T) {
	pp, err := paths.Resolve(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := pp.EnsureMetaDirs(); err != nil {
		t.Fatal(err)
	}

	var created []string
	if err := ensureConfig(pp, &created, zerolog.Nop()); err != nil {
		t.Fatal(err)
	}
	if err := ensureProjectFile(pp, "Launch Teaser", &created, zerolog.Nop()); err != nil {
		t.Fatal(err)
	}
	if len(created) != 2 {
		t.Fatalf("created = %v, want config and project file", created)
	}

	cfg, err := config.Load(pp.ConfigFile)
	if err != nil {
		t.Fatalf("load created config: %v", err)
	}
	if cfg.Export.Resolution != "1080p" {
		t.Errorf("resolution = %q, want 1080p", cfg.Export.Resolution)
	}

	pf, err := engine.ReadProjectFile(pp.ProjectFile)
	if err != nil {
		t.Fatalf("read created project: %v", err)
	}
	if pf.Name != "Launch Teaser" {
		t.Errorf("project name = %q, want Launch Teaser", pf.Name)
	}

	// A second run leaves both files alone.
	created = nil
	if err := ensureConfig(pp, &created, zerolog.Nop()); err != nil {
		t.Fatal(err)
	}
	if err := ensureProjectFile(pp, "Launch Teaser", &created, zerolog.Nop()); err != nil {
		t.Fatal(err)
	}
	if len(created) != 0 {
		t.Fatalf("second run created %v", created)
	}
}
