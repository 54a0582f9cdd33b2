package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"reelcut/internal/clip"
	"reelcut/internal/config"
	"reelcut/internal/engine"
	"reelcut/internal/media"
)

func TestJoinComma(t *testing.T) {
	tests := []struct {
		input []string
		want  string
	}{
		{nil, ""},
		{[]string{"a"}, "a"},
		{[]string{"a", "b"}, "a, b"},
		{[]string{"a", "b", "c"}, "a, b, c"},
	}

	for _, tt := range tests {
		got := joinComma(tt.input)
		if got != tt.want {
			t.Errorf("joinComma(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestCheckConfig(t *testing.T) {
	t.Run("load error", func(t *testing.T) {
		result := checkConfig(config.Config{}, fmt.Errorf("config file not found"))
		if result.Status != "error" {
			t.Errorf("got status=%q, want error", result.Status)
		}
		if result.Name != "Config" {
			t.Errorf("got name=%q, want Config", result.Name)
		}
	})

	t.Run("defaults are ok", func(t *testing.T) {
		result := checkConfig(config.Default(), nil)
		if result.Status != "ok" {
			t.Errorf("got status=%q (%s), want ok", result.Status, result.Summary)
		}
		if !strings.Contains(result.Summary, "1080p") {
			t.Errorf("summary %q missing resolution", result.Summary)
		}
	})

	t.Run("unknown profile is an error", func(t *testing.T) {
		cfg := config.Default()
		cfg.Export.Profiles = []string{"gif"}
		result := checkConfig(cfg, nil)
		if result.Status != "error" {
			t.Errorf("got status=%q, want error", result.Status)
		}
	})
}

func TestCheckEncoders(t *testing.T) {
	missing := map[string]bool{}
	probe := func(_ context.Context, codec string) error {
		if missing[codec] {
			return errors.New("encoder not found")
		}
		return nil
	}

	tests := []struct {
		name      string
		missing   []string
		preferred []string
		want      string
	}{
		{"all available", nil, []string{"webm-vp9", "mp4-h264"}, "ok"},
		{"fallback", []string{"libvpx-vp9"}, []string{"webm-vp9", "mp4-h264"}, "warning"},
		{"none", []string{"libvpx-vp9", "libx264"}, []string{"webm-vp9", "mp4-h264"}, "error"},
		{"png needs no encoder", []string{"libvpx-vp9", "libx264"}, []string{"png-sequence"}, "ok"},
		{"unknown profile", nil, []string{"gif", "mp4-h264"}, "warning"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			clear(missing)
			for _, c := range tt.missing {
				missing[c] = true
			}
			got := checkEncoders(context.Background(), probe, tt.preferred)
			if got.Status != tt.want {
				t.Errorf("status = %q (%s), want %q", got.Status, got.Summary, tt.want)
			}
		})
	}
}

func TestCheckProject(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file warns", func(t *testing.T) {
		got := checkProject(filepath.Join(dir, "absent.json"))
		if got.Status != "warning" {
			t.Errorf("status = %q, want warning", got.Status)
		}
	})

	t.Run("dangling media warns", func(t *testing.T) {
		kept, err := clip.New(clip.KindImage, clip.TrackVideo, 0, 5, clip.Params{MediaID: "m1", Name: "a.png"})
		if err != nil {
			t.Fatal(err)
		}
		gone, err := clip.New(clip.KindImage, clip.TrackVideo, 5, 5, clip.Params{MediaID: "m2", Name: "b.png"})
		if err != nil {
			t.Fatal(err)
		}
		path := filepath.Join(dir, "project.json")
		pf := engine.ProjectFile{
			Version:      engine.ProjectVersion,
			Name:         "demo",
			Clips:        []clip.Clip{kept, gone},
			MediaLibrary: []media.Asset{{ID: "m1", Kind: clip.KindImage, Name: "a.png"}},
			Duration:     10,
			Zoom:         1,
		}
		if err := engine.WriteProjectFile(path, pf); err != nil {
			t.Fatal(err)
		}

		got := checkProject(path)
		if got.Status != "warning" {
			t.Fatalf("status = %q (%s), want warning", got.Status, got.Summary)
		}
		if !strings.Contains(got.Summary, "1 clips reference removed media") {
			t.Errorf("summary = %q", got.Summary)
		}
	})
}
