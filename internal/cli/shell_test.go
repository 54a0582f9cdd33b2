package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"reelcut/internal/engine"
)

func TestShellLineBuiltins(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	tests := []struct {
		line     string
		wantQuit bool
		wantOut  string
	}{
		{line: "", wantOut: ""},
		{line: "clips", wantOut: "No clips."},
		{line: "help", wantOut: "Timeline commands:"},
		{line: "status", wantOut: "undo 0"},
		{line: "exit", wantQuit: true},
		{line: "quit", wantQuit: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.line, func(t *testing.T) {
			var out bytes.Buffer
			quit, err := shellLine(ctx, s, &out, tt.line)
			if err != nil {
				t.Fatal(err)
			}
			if quit != tt.wantQuit {
				t.Errorf("quit = %v, want %v", quit, tt.wantQuit)
			}
			if tt.wantOut != "" && !strings.Contains(out.String(), tt.wantOut) {
				t.Errorf("output %q missing %q", out.String(), tt.wantOut)
			}
		})
	}
}

func TestShellLineRunsEngineCommands(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	var out bytes.Buffer
	if _, err := shellLine(ctx, s, &out, `add-text title "Act One"`); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "added ") {
		t.Errorf("output = %q, want added message", out.String())
	}

	out.Reset()
	if _, err := shellLine(ctx, s, &out, "clips"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), `"Act One"`) {
		t.Errorf("clip table = %q, want quoted text label", out.String())
	}

	if _, err := shellLine(ctx, s, &out, "frobnicate"); err == nil {
		t.Error("expected error for unknown command")
	}
}

func TestShellLineSave(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	if _, err := shellLine(ctx, s, &bytes.Buffer{}, "add-text"); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if _, err := shellLine(ctx, s, &out, "save"); err != nil {
		t.Fatal(err)
	}
	pf, err := engine.ReadProjectFile(s.pp.ProjectFile)
	if err != nil {
		t.Fatal(err)
	}
	if len(pf.Clips) != 1 {
		t.Errorf("saved clips = %d, want 1", len(pf.Clips))
	}
}
