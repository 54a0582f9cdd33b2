package engine

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"reelcut/internal/clip"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line    string
		want    Command
		wantErr bool
	}{
		{line: "", want: Command{}},
		{line: "# comment", want: Command{}},
		{line: "undo", want: Command{Op: "undo"}},
		{line: "  MOVE abc 12.5 ", want: Command{Op: "move", Args: []string{"abc", "12.5"}}},
		{
			line: `text c1 text="Hello world" size=64`,
			want: Command{Op: "text", Args: []string{"c1"}, Opts: map[string]string{"text": "Hello world", "size": "64"}},
		},
		{
			line: `rename c1 'Opening shot'`,
			want: Command{Op: "rename", Args: []string{"c1", "Opening shot"}},
		},
		{
			line: `add-text quote "say \"hi\""`,
			want: Command{Op: "add-text", Args: []string{"quote", `say "hi"`}},
		},
		{
			line: "add image video 0 5 src=/tmp/a=b.png",
			want: Command{Op: "add", Args: []string{"image", "video", "0", "5"}, Opts: map[string]string{"src": "/tmp/a=b.png"}},
		},
		{line: "seek -1=2", want: Command{Op: "seek", Args: []string{"-1=2"}}},
		{line: `rename c1 "open`, wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.line, func(t *testing.T) {
			got, err := ParseCommand(tt.line)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCommand: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestCommandStringParsesBack(t *testing.T) {
	cmd := Command{Op: "text", Args: []string{"c1"}, Opts: map[string]string{"text": "two words", "color": "#ff0000"}}
	line := cmd.String()
	if line != `text c1 color=#ff0000 text="two words"` {
		t.Fatalf("String = %s", line)
	}
	back, err := ParseCommand(line)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(back, cmd) {
		t.Fatalf("parsed %#v, want %#v", back, cmd)
	}
}

func TestExecScript(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	res, err := e.ExecLine(ctx, "add image video 2 6 src=mem://a name=intro")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	id := res.Clip.ID

	script := []string{
		"move " + id + " 4",
		"resize " + id + " right -1",
		"effects " + id + " brightness=20 blur=3",
		"transition " + id + " fade",
		"animation " + id + " ken-burns",
		"split " + id + " 6",
		"add-text title \"Hello there\"",
		"seek 3",
		"zoom in",
		"volume 1.4",
	}
	for _, line := range script {
		if _, err := e.ExecLine(ctx, line); err != nil {
			t.Fatalf("%s: %v", line, err)
		}
	}

	got, err := e.Clip(id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Start != 4 || got.Duration != 2 {
		t.Fatalf("clip window = %v+%v, want 4+2", got.Start, got.Duration)
	}
	if got.Effects.Brightness != 20 || got.Effects.Blur != 3 {
		t.Fatalf("effects = %+v", got.Effects)
	}
	if got.Transition != clip.TransitionFade || got.Animation != clip.AnimationKenBurns {
		t.Fatalf("transition/animation = %s/%s", got.Transition, got.Animation)
	}
	clips := e.Clips()
	if len(clips) != 3 {
		t.Fatalf("%d clips, want 3", len(clips))
	}
	if clips[2].Text == nil || clips[2].Text.Text != "Hello there" {
		t.Fatalf("text clip = %+v", clips[2])
	}
	st := e.Status()
	if st.CurrentTime != 3 || st.Zoom != 1.5 {
		t.Fatalf("status = %+v", st)
	}
	if v := e.Audio().Volume(); v != 1 {
		t.Fatalf("volume = %v", v)
	}
}

func TestTextCommandMovesToTopEdge(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	res, err := e.ExecLine(ctx, "add-text caption")
	if err != nil {
		t.Fatalf("add-text: %v", err)
	}
	if got := res.Clip.Text.Y(); got != 80 {
		t.Fatalf("caption y = %v, want 80", got)
	}
	res, err = e.ExecLine(ctx, "text "+res.Clip.ID+" y=0")
	if err != nil {
		t.Fatalf("text: %v", err)
	}
	if got := res.Clip.Text.Y(); got != 0 {
		t.Fatalf("y after edit = %v, want 0", got)
	}
}

func TestExecErrors(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	tests := []struct {
		line string
		want string
		is   error
	}{
		{line: "explode", want: "unknown command"},
		{line: "move", want: "usage: move"},
		{line: "move c1 soon", want: "start must be a number"},
		{line: "delete missing", is: ErrNotFound},
		{line: "transition missing sparkle", want: "unknown transition"},
		{line: "undo", want: "nothing to undo"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.line, func(t *testing.T) {
			_, err := e.ExecLine(ctx, tt.line)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Fatalf("err = %v, want %v", err, tt.is)
			}
			if tt.want != "" && !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestOpsListsUsage(t *testing.T) {
	ops := Ops()
	if len(ops) != len(handlers) {
		t.Fatalf("%d usages for %d handlers", len(ops), len(handlers))
	}
	for _, u := range ops {
		op, _, _ := strings.Cut(u, " ")
		if _, ok := handlers[op]; !ok {
			t.Fatalf("usage %q does not start with a command name", u)
		}
	}
}
