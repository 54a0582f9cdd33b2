package media

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"reelcut/internal/clip"
	"reelcut/internal/timeline"
)

func TestLibraryAddRejectsDuplicates(t *testing.T) {
	lib := NewLibrary()
	first, err := lib.Add(Asset{Kind: clip.KindImage, Name: "beach.jpg", SourceURI: "/tmp/beach.jpg"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if first.ID == "" {
		t.Fatal("expected generated id")
	}

	_, err = lib.Add(Asset{Kind: clip.KindImage, Name: "beach.jpg", SourceURI: "/elsewhere/beach.jpg"})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}

	// Same name with a different kind is a different asset.
	if _, err := lib.Add(Asset{Kind: clip.KindAudio, Name: "beach.jpg", SourceURI: "/tmp/x"}); err != nil {
		t.Fatalf("Add audio: %v", err)
	}
	if lib.Len() != 2 {
		t.Fatalf("library has %d assets, want 2", lib.Len())
	}
}

func TestLibraryAddValidates(t *testing.T) {
	lib := NewLibrary()
	if _, err := lib.Add(Asset{Kind: clip.KindText, Name: "x", SourceURI: "y"}); err == nil {
		t.Fatal("expected error for text asset")
	}
	if _, err := lib.Add(Asset{Kind: clip.KindImage, Name: "x"}); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestLibraryRemove(t *testing.T) {
	lib := NewLibrary()
	a, _ := lib.Add(Asset{Kind: clip.KindImage, Name: "a.png", SourceURI: "/a.png"})
	if _, err := lib.Remove(a.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if lib.Has(a.ID) {
		t.Fatal("asset still present")
	}
	if _, err := lib.Remove(a.ID); !errors.Is(err, timeline.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDetectKind(t *testing.T) {
	cases := []struct {
		path string
		want clip.Kind
		ok   bool
	}{
		{"photo.JPG", clip.KindImage, true},
		{"clip.webm", clip.KindVideo, true},
		{"song.mp3", clip.KindAudio, true},
		{"notes.txt", "", false},
	}
	for _, tc := range cases {
		got, ok := DetectKind(tc.path)
		if got != tc.want || ok != tc.ok {
			t.Errorf("DetectKind(%q) = %q,%v want %q,%v", tc.path, got, ok, tc.want, tc.ok)
		}
	}
}

func TestProbeImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, 32, 18))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	f.Close()

	asset, err := Ingester{Logger: zerolog.Nop()}.Probe(path)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if asset.Kind != clip.KindImage || asset.Width != 32 || asset.Height != 18 {
		t.Fatalf("unexpected asset %+v", asset)
	}
	if asset.Name != "frame.png" {
		t.Fatalf("name = %q", asset.Name)
	}
}

func TestProbeAllReportsFailures(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "readme.txt")
	if err := os.WriteFile(txt, []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}
	assets, err := Ingester{Logger: zerolog.Nop()}.ProbeAll([]string{txt, filepath.Join(dir, "missing.png")})
	if err == nil || !strings.Contains(err.Error(), "2 file(s)") {
		t.Fatalf("err = %v", err)
	}
	if len(assets) != 0 {
		t.Fatalf("got %d assets", len(assets))
	}
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func TestProbeAllKeepsInputOrder(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i := 1; i <= 12; i++ {
		p := filepath.Join(dir, fmt.Sprintf("shot-%02d.png", i))
		writePNG(t, p, i, i)
		paths = append(paths, p)
	}

	assets, err := Ingester{Workers: 3, Logger: zerolog.Nop()}.ProbeAll(paths)
	if err != nil {
		t.Fatalf("ProbeAll: %v", err)
	}
	if len(assets) != len(paths) {
		t.Fatalf("got %d assets, want %d", len(assets), len(paths))
	}
	for i, a := range assets {
		if a.Name != filepath.Base(paths[i]) || a.Width != i+1 {
			t.Fatalf("asset %d = %s (%dpx), want %s", i, a.Name, a.Width, filepath.Base(paths[i]))
		}
	}
}
