package timeline

import (
	"errors"
	"math"
	"testing"

	"reelcut/internal/clip"
)

func mustClip(t *testing.T, kind clip.Kind, start, duration float64) clip.Clip {
	t.Helper()
	params := clip.Params{}
	if kind == clip.KindText {
		params.Text = &clip.TextStyle{Text: "caption"}
	}
	c, err := clip.New(kind, clip.DefaultTrack(kind), start, duration, params)
	if err != nil {
		t.Fatalf("clip.New: %v", err)
	}
	return c
}

func mustAdd(t *testing.T, tl *Timeline, c clip.Clip) clip.Clip {
	t.Helper()
	added, err := tl.Add(c)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	return added
}

func TestAddExtendsDuration(t *testing.T) {
	tests := []struct {
		name     string
		start    float64
		duration float64
		want     float64
	}{
		{name: "inside default", start: 0, duration: 5, want: 60},
		{name: "exact boundary", start: 55, duration: 5, want: 60},
		{name: "rounds up", start: 58, duration: 5, want: 70},
		{name: "far out", start: 120, duration: 0.5, want: 130},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			tl := New()
			added := mustAdd(t, tl, mustClip(t, clip.KindImage, tt.start, tt.duration))
			if added.Duration != tt.duration {
				t.Fatalf("duration changed to %v", added.Duration)
			}
			if tl.Duration() != tt.want {
				t.Fatalf("timeline duration = %v, want %v", tl.Duration(), tt.want)
			}
			if tl.Duration() < tt.start+tt.duration {
				t.Fatal("timeline does not cover clip")
			}
		})
	}
}

func TestDurationNeverShrinks(t *testing.T) {
	tl := New()
	c := mustAdd(t, tl, mustClip(t, clip.KindImage, 95, 5))
	if tl.Duration() != 100 {
		t.Fatalf("duration = %v, want 100", tl.Duration())
	}
	if _, err := tl.Delete(c.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if tl.Duration() != 100 {
		t.Fatalf("duration shrank to %v", tl.Duration())
	}
}

func TestClipsAtHalfOpen(t *testing.T) {
	tl := New()
	c := mustAdd(t, tl, mustClip(t, clip.KindImage, 0, 5))

	if got := tl.ClipsAt(0); len(got) != 1 || got[0].ID != c.ID {
		t.Fatalf("ClipsAt(0) = %v, want clip", got)
	}
	if got := tl.ClipsAt(2.5); len(got) != 1 {
		t.Fatalf("ClipsAt(2.5) returned %d clips", len(got))
	}
	if got := tl.ClipsAt(5); len(got) != 0 {
		t.Fatalf("ClipsAt(5) returned %d clips, want 0", len(got))
	}
}

func TestClipsAtPaintOrder(t *testing.T) {
	tl := New()
	text := mustAdd(t, tl, mustClip(t, clip.KindText, 0, 5))
	video := mustAdd(t, tl, mustClip(t, clip.KindVideo, 0, 5))
	first := mustAdd(t, tl, mustClip(t, clip.KindImage, 0, 5))
	second := mustAdd(t, tl, mustClip(t, clip.KindImage, 1, 5))
	mustAdd(t, tl, mustClip(t, clip.KindAudio, 0, 5))

	got := tl.ClipsAt(2)
	want := []string{first.ID, second.ID, video.ID, text.ID}
	if len(got) != len(want) {
		t.Fatalf("got %d clips, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d = %s (%s), want %s", i, got[i].ID, got[i].Kind, id)
		}
	}
}

func TestMoveClampsToZero(t *testing.T) {
	tl := New()
	c := mustAdd(t, tl, mustClip(t, clip.KindImage, 3, 5))
	moved, err := tl.Move(c.ID, -2)
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if moved.Start != 0 {
		t.Fatalf("start = %v, want 0", moved.Start)
	}
}

func TestResize(t *testing.T) {
	tests := []struct {
		name      string
		start     float64
		duration  float64
		edge      Edge
		delta     float64
		wantStart float64
		wantDur   float64
		wantErr   error
	}{
		{name: "right floor", start: 0, duration: 3, edge: EdgeRight, delta: -10, wantStart: 0, wantDur: 0.5},
		{name: "right grow", start: 0, duration: 3, edge: EdgeRight, delta: 2, wantStart: 0, wantDur: 5},
		{name: "left keeps end", start: 2, duration: 4, edge: EdgeLeft, delta: 1, wantStart: 3, wantDur: 3},
		{name: "left clamps start", start: 2, duration: 4, edge: EdgeLeft, delta: -5, wantStart: 0, wantDur: 6},
		{name: "left too short", start: 2, duration: 4, edge: EdgeLeft, delta: 3.6, wantErr: ErrResizeTooShort},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			tl := New()
			c := mustAdd(t, tl, mustClip(t, clip.KindImage, tt.start, tt.duration))
			got, err := tl.ResizeBy(c.ID, tt.edge, tt.delta)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				unchanged, _ := tl.Get(c.ID)
				if unchanged.Start != tt.start || unchanged.Duration != tt.duration {
					t.Fatalf("rejected resize mutated clip: %+v", unchanged)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResizeBy: %v", err)
			}
			if got.Start != tt.wantStart || got.Duration != tt.wantDur {
				t.Fatalf("got start=%v dur=%v, want start=%v dur=%v", got.Start, got.Duration, tt.wantStart, tt.wantDur)
			}
		})
	}
}

func TestSplit(t *testing.T) {
	tl := New()
	c := mustAdd(t, tl, mustClip(t, clip.KindImage, 0, 10))

	head, tail, err := tl.Split(c.ID, 4)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if head.ID != c.ID || head.Start != 0 || head.Duration != 4 {
		t.Fatalf("head = %+v", head)
	}
	if tail.ID == c.ID || tail.Start != 4 || tail.Duration != 6 {
		t.Fatalf("tail = %+v", tail)
	}
	if head.Duration+tail.Duration != c.Duration {
		t.Fatalf("split lost duration: %v + %v != %v", head.Duration, tail.Duration, c.Duration)
	}
	if tl.Len() != 2 {
		t.Fatalf("timeline has %d clips, want 2", tl.Len())
	}
}

func TestSplitDurationsSumWithinRounding(t *testing.T) {
	tests := []struct {
		start, duration, at float64
	}{
		{0, 10, 4},
		{15.6, 26.8, 22.5},
		{0.1, 0.7, 0.3},
		{3.3, 9.9, 12.1},
	}
	for _, tt := range tests {
		tl := New()
		c := mustAdd(t, tl, mustClip(t, clip.KindImage, tt.start, tt.duration))
		head, tail, err := tl.Split(c.ID, tt.at)
		if err != nil {
			t.Fatalf("Split(%v): %v", tt.at, err)
		}
		// Float seconds: 15.6/26.8/22.5 sums to 26.799999999999997.
		if d := math.Abs(head.Duration + tail.Duration - tt.duration); d > 1e-9 {
			t.Errorf("split %v of [%v,+%v]: %v + %v drifts by %v", tt.at, tt.start, tt.duration, head.Duration, tail.Duration, d)
		}
		if tail.Start != tt.at {
			t.Errorf("tail starts at %v, want %v", tail.Start, tt.at)
		}
	}
}

func TestSplitOutOfRange(t *testing.T) {
	tl := New()
	c := mustAdd(t, tl, mustClip(t, clip.KindImage, 2, 4))
	for _, at := range []float64{2, 6, 0, 7} {
		_, _, err := tl.Split(c.ID, at)
		var rangeErr *SplitOutOfRangeError
		if !errors.As(err, &rangeErr) {
			t.Fatalf("Split(%v) err = %v, want SplitOutOfRangeError", at, err)
		}
	}
	if tl.Len() != 1 {
		t.Fatalf("failed split changed clip count to %d", tl.Len())
	}
}

func TestSplitDeepCopiesTail(t *testing.T) {
	tl := New()
	c := mustAdd(t, tl, mustClip(t, clip.KindText, 0, 10))
	_, tail, err := tl.Split(c.ID, 5)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if _, err := tl.Update(tail.ID, func(cl *clip.Clip) error {
		cl.Text.Text = "changed"
		return nil
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	head, _ := tl.Get(c.ID)
	if head.Text.Text != "caption" {
		t.Fatalf("head text aliased to %q", head.Text.Text)
	}
}

func TestNotFound(t *testing.T) {
	tl := New()
	checks := map[string]error{}
	_, checks["get"] = tl.Get("missing")
	_, checks["move"] = tl.Move("missing", 1)
	_, checks["delete"] = tl.Delete("missing")
	_, _, checks["split"] = tl.Split("missing", 1)
	_, checks["resize"] = tl.ResizeBy("missing", EdgeRight, 1)
	for op, err := range checks {
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("%s: err = %v, want ErrNotFound", op, err)
		}
	}
}

func TestUpdateRejectsInvalid(t *testing.T) {
	tl := New()
	c := mustAdd(t, tl, mustClip(t, clip.KindImage, 0, 5))
	_, err := tl.Update(c.ID, func(cl *clip.Clip) error {
		cl.Duration = -1
		return nil
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	got, _ := tl.Get(c.ID)
	if got.Duration != 5 {
		t.Fatalf("invalid update leaked: duration %v", got.Duration)
	}
}

func TestSetDurationFloor(t *testing.T) {
	tl := New()
	c := mustAdd(t, tl, mustClip(t, clip.KindImage, 0, 5))
	got, err := tl.SetDuration(c.ID, 0)
	if err != nil {
		t.Fatalf("SetDuration: %v", err)
	}
	if got.Duration != clip.MinEditDuration {
		t.Fatalf("duration = %v, want %v", got.Duration, clip.MinEditDuration)
	}
}

func TestZoom(t *testing.T) {
	tl := New()
	if z := tl.ZoomBy(100); z != MaxZoom {
		t.Fatalf("zoom = %v, want %v", z, MaxZoom)
	}
	if z := tl.SetZoom(0.01); z != MinZoom {
		t.Fatalf("zoom = %v, want %v", z, MinZoom)
	}
	if z := tl.FitZoom(); z != 1 {
		t.Fatalf("fit zoom = %v", z)
	}
	if pps := tl.PixelsPerSecond(); pps != 100 {
		t.Fatalf("pixels per second = %v", pps)
	}
}

func TestFormatTime(t *testing.T) {
	cases := map[float64]string{0: "00:00", 59.9: "00:59", 61: "01:01", 3600: "60:00", -4: "00:00"}
	for in, want := range cases {
		if got := FormatTime(in); got != want {
			t.Errorf("FormatTime(%v) = %q, want %q", in, got, want)
		}
	}
}
