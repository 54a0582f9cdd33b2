package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "reelcut.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Export.FPS != 25 || cfg.Export.Resolution != "1080p" {
		t.Fatalf("unexpected export defaults %+v", cfg.Export)
	}
	if cfg.Editor.HistoryLimit != 50 {
		t.Fatalf("history limit = %d", cfg.Editor.HistoryLimit)
	}
	if cfg.Audio.Volume != 0.7 {
		t.Fatalf("volume = %v", cfg.Audio.Volume)
	}
}

func TestLoadYAMLPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reelcut.yaml")
	body := "export:\n  resolution: 720p\n  fps: 30\npreview:\n  width: 640\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Export.Resolution != "720p" || cfg.Export.FPS != 30 {
		t.Fatalf("export = %+v", cfg.Export)
	}
	if cfg.Preview.Width != 640 || cfg.Preview.Height != 540 {
		t.Fatalf("preview = %+v", cfg.Preview)
	}
	if len(cfg.Export.Profiles) != 2 {
		t.Fatalf("profiles = %v", cfg.Export.Profiles)
	}
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reelcut.toml")
	body := "[export]\nresolution = \"4k\"\nbitrate_kbps = 20000\n\n[audio]\nvolume = 0.3\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Export.Resolution != "4k" || cfg.Export.BitrateKbps != 20000 {
		t.Fatalf("export = %+v", cfg.Export)
	}
	if cfg.Audio.Volume != 0.3 {
		t.Fatalf("volume = %v", cfg.Audio.Volume)
	}
	if cfg.Export.FPS != 25 {
		t.Fatalf("fps default lost: %d", cfg.Export.FPS)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reelcut.yaml")
	if err := os.WriteFile(path, []byte("export: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "unmarshal config") {
		t.Fatalf("err = %v", err)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	buf, err := Default().Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(buf), "bitrate_kbps: 8000") {
		t.Fatalf("marshal output missing bitrate:\n%s", buf)
	}
}

func TestValidate(t *testing.T) {
	resolutions := []string{"720p", "1080p", "4k"}
	profiles := []string{"webm-vp9", "mp4-h264", "png"}

	tests := []struct {
		name       string
		mutate     func(*Config)
		wantErrors int
		wantMsg    string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "bad resolution", mutate: func(c *Config) { c.Export.Resolution = "8k" }, wantErrors: 1, wantMsg: "8k"},
		{name: "unknown profile", mutate: func(c *Config) { c.Export.Profiles = []string{"gif", "png"} }, wantErrors: 1, wantMsg: "gif"},
		{name: "volume out of range", mutate: func(c *Config) { c.Audio.Volume = 1.5 }, wantErrors: 1, wantMsg: "audio.volume"},
		{name: "fps too high", mutate: func(c *Config) { c.Export.FPS = 240 }, wantErrors: 1, wantMsg: "exceeds"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			results := cfg.Validate(resolutions, profiles)
			errs := 0
			var messages []string
			for _, r := range results {
				messages = append(messages, r.Message)
				if r.Level == "error" {
					errs++
				}
			}
			if errs != tt.wantErrors {
				t.Fatalf("errors = %d, want %d: %v", errs, tt.wantErrors, messages)
			}
			if tt.wantMsg != "" && !strings.Contains(strings.Join(messages, "\n"), tt.wantMsg) {
				t.Fatalf("messages %v missing %q", messages, tt.wantMsg)
			}
			if HasErrors(results) != (tt.wantErrors > 0) {
				t.Fatal("HasErrors disagrees with results")
			}
		})
	}
}
