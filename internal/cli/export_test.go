package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"reelcut/internal/export"
)

func TestExportBase(t *testing.T) {
	s := newTestSession(t)
	t.Cleanup(func() { exportOut = "" })

	tests := []struct {
		out   string
		multi bool
		want  string
	}{
		{out: "", multi: false, want: ""},
		{out: "", multi: true, want: filepath.Join(s.pp.ExportsDir, "test-project-720p")},
		{out: "cut.mp4", multi: false, want: "cut"},
		{out: "renders/cut.webm", multi: true, want: "renders/cut-720p"},
	}
	for _, tt := range tests {
		exportOut = tt.out
		if got := exportBase(s, "720p", tt.multi); got != tt.want {
			t.Errorf("exportBase(out=%q, multi=%v) = %q, want %q", tt.out, tt.multi, got, tt.want)
		}
	}
}

func TestExportRowFields(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status string
	}{
		{"ok", nil, "exported"},
		{"cancelled", fmt.Errorf("render: %w", context.Canceled), "cancelled"},
		{"unsupported", export.ErrUnsupported, "unsupported"},
		{"failed", errors.New("disk full"), "error"},
	}
	art := export.Artifact{Path: "/tmp/out.webm", Profile: "webm-vp9", Frames: 50}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			fields := exportRowFields(art, tt.err)
			if fields["STATUS"] != tt.status {
				t.Errorf("STATUS = %q, want %q", fields["STATUS"], tt.status)
			}
		})
	}
	if got := exportRowFields(art, nil)["FRAMES"]; got != "50/50" {
		t.Errorf("FRAMES = %q, want 50/50", got)
	}
}

func TestPlainProgress(t *testing.T) {
	var out bytes.Buffer
	report := plainProgress(&out, "1080p")
	for i := 1; i <= 100; i++ {
		report(export.Progress{Frame: i, Frames: 100, Fraction: float64(i) / 100})
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 10 {
		t.Fatalf("got %d progress lines, want 10:\n%s", len(lines), out.String())
	}
	if !strings.Contains(lines[9], "100%") {
		t.Errorf("last line = %q, want 100%%", lines[9])
	}
}

func TestWriteExportSummary(t *testing.T) {
	var out, errOut bytes.Buffer
	err := writeExportSummary(&out, &errOut, []exportResult{
		{Resolution: "720p", Artifact: export.Artifact{Path: "/x/a.webm", Profile: "webm-vp9"}},
		{Resolution: "4k", Err: errors.New("boom")},
	})
	if err == nil {
		t.Fatal("expected error when an export failed")
	}
	if !strings.Contains(out.String(), "/x/a.webm") {
		t.Errorf("summary %q missing artifact path", out.String())
	}
	if !strings.Contains(errOut.String(), "boom") {
		t.Errorf("stderr %q missing failure", errOut.String())
	}
}
