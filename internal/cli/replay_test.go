package cli

import (
	"context"
	"strings"
	"testing"
)

const replayFixture = `# title card
add-text title "Opening"

undo
bogus 1 2
add-text subtitle
`

func TestReplayScriptStopsAtFirstFailure(t *testing.T) {
	s := newTestSession(t)

	lines, failed, err := replayScript(context.Background(), s.engine, strings.NewReader(replayFixture), false)
	if err != nil {
		t.Fatal(err)
	}
	if failed != 1 {
		t.Fatalf("failed = %d, want 1", failed)
	}
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3: %+v", len(lines), lines)
	}
	if lines[0].Line != 2 || lines[2].Line != 5 {
		t.Errorf("line numbers = %d, %d; want 2, 5", lines[0].Line, lines[2].Line)
	}
	if lines[2].Error == "" {
		t.Error("expected error on unknown command")
	}
	if got := len(s.engine.Clips()); got != 0 {
		t.Errorf("clips = %d, want 0 after undo", got)
	}
}

func TestReplayScriptKeepGoing(t *testing.T) {
	s := newTestSession(t)

	lines, failed, err := replayScript(context.Background(), s.engine, strings.NewReader(replayFixture), true)
	if err != nil {
		t.Fatal(err)
	}
	if failed != 1 || len(lines) != 4 {
		t.Fatalf("failed=%d lines=%d, want 1 and 4", failed, len(lines))
	}
	clips := s.engine.Clips()
	if len(clips) != 1 {
		t.Fatalf("clips = %d, want 1", len(clips))
	}
	if lines[3].Result.Clip == nil || lines[3].Result.Clip.ID != clips[0].ID {
		t.Errorf("last result does not carry the added clip: %+v", lines[3].Result)
	}
}

func TestReplayScriptBadQuoting(t *testing.T) {
	s := newTestSession(t)

	lines, failed, err := replayScript(context.Background(), s.engine, strings.NewReader(`rename c1 "open`), true)
	if err != nil {
		t.Fatal(err)
	}
	if failed != 1 || len(lines) != 1 {
		t.Fatalf("failed=%d lines=%d, want 1 and 1", failed, len(lines))
	}
	if lines[0].Command != `rename c1 "open` {
		t.Errorf("command = %q, want the raw line", lines[0].Command)
	}
}
