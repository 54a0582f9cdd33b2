package cli

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"reelcut/internal/clip"
)

func TestExpandMediaArgs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.jpg", "notes.txt", "sub/c.mp3"} {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	loose := filepath.Join(t.TempDir(), "readme.txt")
	if err := os.WriteFile(loose, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := expandMediaArgs([]string{dir, loose})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		filepath.Join(dir, "a.jpg"),
		filepath.Join(dir, "b.png"),
		filepath.Join(dir, "sub", "c.mp3"),
		loose,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expandMediaArgs = %v, want %v", got, want)
	}

	if _, err := expandMediaArgs([]string{filepath.Join(dir, "absent")}); err == nil {
		t.Fatal("expected error for missing path")
	}
}

func TestTrackEnd(t *testing.T) {
	clips := []clip.Clip{
		{Track: clip.TrackVideo, Start: 0, Duration: 5},
		{Track: clip.TrackVideo, Start: 8, Duration: 2},
		{Track: clip.TrackAudio, Start: 0, Duration: 30},
	}
	tests := []struct {
		track clip.Track
		want  float64
	}{
		{clip.TrackVideo, 10},
		{clip.TrackAudio, 30},
		{clip.TrackText, 0},
	}
	for _, tt := range tests {
		if got := trackEnd(clips, tt.track); got != tt.want {
			t.Errorf("trackEnd(%s) = %v, want %v", tt.track, got, tt.want)
		}
	}
}
