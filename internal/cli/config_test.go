package cli

import (
	"path/filepath"
	"reflect"
	"testing"

	"reelcut/internal/config"
	"reelcut/internal/tui"
)

func TestApplyExportSetup(t *testing.T) {
	cfg := config.Default()
	applyExportSetup(&cfg, tui.ExportSetupResult{
		Profile:     "mp4-h264",
		Resolution:  "4k",
		FPS:         60,
		BitrateKbps: 24000,
	})

	if want := []string{"mp4-h264", "webm-vp9"}; !reflect.DeepEqual(cfg.Export.Profiles, want) {
		t.Errorf("profiles = %v, want %v", cfg.Export.Profiles, want)
	}
	if cfg.Export.Resolution != "4k" || cfg.Export.FPS != 60 || cfg.Export.BitrateKbps != 24000 {
		t.Errorf("export = %+v", cfg.Export)
	}
}

func TestWriteConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reelcut.yaml")

	cfg := config.Default()
	cfg.Export.FPS = 30
	if err := writeConfig(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Export.FPS != 30 {
		t.Errorf("fps = %d, want 30", loaded.Export.FPS)
	}

	if err := writeConfig(filepath.Join(dir, "reelcut.toml"), cfg); err == nil {
		t.Error("expected toml config to be refused")
	}
}

func TestSplitEditorCommand(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"vim", []string{"vim"}},
		{"code --wait", []string{"code", "--wait"}},
	}
	for _, tt := range tests {
		if got := splitEditorCommand(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitEditorCommand(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
