package engine

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"reelcut/internal/media"
)

func TestImportFiles(t *testing.T) {
	e := newTestEngine(t)
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.png", "b.png", "c.png"} {
		p := filepath.Join(dir, name)
		f, err := os.Create(p)
		if err != nil {
			t.Fatal(err)
		}
		if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
			t.Fatal(err)
		}
		f.Close()
		paths = append(paths, p)
	}
	in := media.Ingester{Workers: 2, Logger: zerolog.Nop()}

	added, skipped, err := e.ImportFiles(in, paths)
	if err != nil {
		t.Fatalf("ImportFiles: %v", err)
	}
	if len(added) != 3 || skipped != 0 {
		t.Fatalf("added %d skipped %d, want 3 and 0", len(added), skipped)
	}
	for i, a := range added {
		if a.Name != filepath.Base(paths[i]) {
			t.Fatalf("added[%d] = %s, want argument order", i, a.Name)
		}
	}

	added, skipped, err = e.ImportFiles(in, paths[:2])
	if err != nil || len(added) != 0 || skipped != 2 {
		t.Fatalf("reimport: added %d skipped %d err %v", len(added), skipped, err)
	}

	extra := filepath.Join(dir, "d.png")
	if err := os.Rename(paths[2], extra); err != nil {
		t.Fatal(err)
	}
	if _, _, err := e.ImportFiles(in, []string{extra, filepath.Join(dir, "missing.png")}); err == nil {
		t.Fatal("expected an error for the missing file")
	}
	if got := len(e.Media("")); got != 3 {
		t.Fatalf("library has %d assets after a failed import, want 3", got)
	}
}
