package timeline

import (
	"fmt"
	"math"
	"sort"

	"reelcut/internal/clip"
)

const (
	// DefaultDuration is the length of an empty timeline in seconds.
	DefaultDuration = 60.0
	// durationStep is the boundary the duration rounds up to.
	durationStep = 10.0

	MinZoom = 0.1
	MaxZoom = 5.0
	// ZoomInFactor and ZoomOutFactor are the zoom button steps.
	ZoomInFactor  = 1.5
	ZoomOutFactor = 0.67

	// basePixelsPerSecond is the track scale at zoom 1.
	basePixelsPerSecond = 100.0
)

// Edge selects which side of a clip a resize moves.
type Edge string

const (
	EdgeLeft  Edge = "left"
	EdgeRight Edge = "right"
)

// ParseEdge converts user input into an Edge.
func ParseEdge(value string) (Edge, error) {
	switch Edge(value) {
	case EdgeLeft, EdgeRight:
		return Edge(value), nil
	}
	return "", fmt.Errorf("unknown edge %q (want left or right)", value)
}

// Timeline holds clips across tracks. It is not safe for concurrent use; the
// engine guards it together with the history.
type Timeline struct {
	clips       []clip.Clip
	duration    float64
	currentTime float64
	zoom        float64
}

// New returns an empty timeline with the default duration.
func New() *Timeline {
	return &Timeline{duration: DefaultDuration, zoom: 1}
}

// State is the serialisable form of a timeline.
type State struct {
	Clips       []clip.Clip `json:"clips"`
	Duration    float64     `json:"duration"`
	CurrentTime float64     `json:"currentTime"`
	Zoom        float64     `json:"zoom"`
}

// State returns a deep copy of the timeline contents.
func (tl *Timeline) State() State {
	clips := clip.CloneAll(tl.clips)
	if clips == nil {
		clips = []clip.Clip{}
	}
	return State{Clips: clips, Duration: tl.duration, CurrentTime: tl.currentTime, Zoom: tl.zoom}
}

// Load replaces the timeline contents after validating every clip.
func (tl *Timeline) Load(s State) error {
	for _, c := range s.Clips {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	tl.clips = clip.CloneAll(s.Clips)
	tl.duration = math.Max(DefaultDuration, s.Duration)
	tl.zoom = clampZoom(s.Zoom)
	tl.extend()
	tl.currentTime = clampTime(s.CurrentTime, tl.duration)
	return nil
}

// Clips returns a deep copy of every clip in insertion order.
func (tl *Timeline) Clips() []clip.Clip {
	return clip.CloneAll(tl.clips)
}

// Len returns the number of clips.
func (tl *Timeline) Len() int { return len(tl.clips) }

// Duration returns the timeline length in seconds.
func (tl *Timeline) Duration() float64 { return tl.duration }

// CurrentTime returns the playhead position.
func (tl *Timeline) CurrentTime() float64 { return tl.currentTime }

// SetCurrentTime moves the playhead, clamped to [0, duration].
func (tl *Timeline) SetCurrentTime(t float64) float64 {
	tl.currentTime = clampTime(t, tl.duration)
	return tl.currentTime
}

// ReplaceClips swaps in a restored clip list and current time. Used by undo
// and redo; the duration still never shrinks.
func (tl *Timeline) ReplaceClips(clips []clip.Clip, currentTime float64) {
	tl.clips = clip.CloneAll(clips)
	tl.extend()
	tl.currentTime = clampTime(currentTime, tl.duration)
}

// Add appends a validated clip and extends the duration to cover it.
func (tl *Timeline) Add(c clip.Clip) (clip.Clip, error) {
	if err := c.Validate(); err != nil {
		return clip.Clip{}, err
	}
	if _, ok := tl.index(c.ID); ok {
		return clip.Clip{}, clip.ValidationError{ClipID: c.ID, Field: "id", Message: "already exists"}
	}
	tl.clips = append(tl.clips, c.Clone())
	tl.extend()
	return c.Clone(), nil
}

// Get returns a copy of the clip with the given id.
func (tl *Timeline) Get(id string) (clip.Clip, error) {
	i, ok := tl.index(id)
	if !ok {
		return clip.Clip{}, &NotFoundError{ID: id}
	}
	return tl.clips[i].Clone(), nil
}

// Move sets a new start time, clamped to zero. Overlaps are allowed.
func (tl *Timeline) Move(id string, start float64) (clip.Clip, error) {
	return tl.Update(id, func(c *clip.Clip) error {
		c.Start = math.Max(0, start)
		return nil
	})
}

// Resize applies an absolute resize. For the left edge value is the new start
// time and the right edge stays fixed. For the right edge value is the new
// duration, floored at clip.MinResizeDuration.
func (tl *Timeline) Resize(id string, edge Edge, value float64) (clip.Clip, error) {
	return tl.Update(id, func(c *clip.Clip) error {
		switch edge {
		case EdgeLeft:
			end := c.End()
			start := math.Max(0, value)
			duration := end - start
			if duration <= clip.MinResizeDuration {
				return ErrResizeTooShort
			}
			c.Start = start
			c.Duration = duration
		case EdgeRight:
			c.Duration = math.Max(clip.MinResizeDuration, value)
		default:
			return fmt.Errorf("unknown edge %q", edge)
		}
		return nil
	})
}

// ResizeBy applies a drag delta in seconds to the given edge.
func (tl *Timeline) ResizeBy(id string, edge Edge, delta float64) (clip.Clip, error) {
	c, err := tl.Get(id)
	if err != nil {
		return clip.Clip{}, err
	}
	if edge == EdgeLeft {
		return tl.Resize(id, edge, c.Start+delta)
	}
	return tl.Resize(id, edge, c.Duration+delta)
}

// SetDuration is the property-panel duration edit, floored at
// clip.MinEditDuration.
func (tl *Timeline) SetDuration(id string, duration float64) (clip.Clip, error) {
	return tl.Update(id, func(c *clip.Clip) error {
		c.Duration = math.Max(clip.MinEditDuration, duration)
		return nil
	})
}

// Update applies fn to a copy of the clip and commits it only when fn
// succeeds and the result validates.
func (tl *Timeline) Update(id string, fn func(*clip.Clip) error) (clip.Clip, error) {
	i, ok := tl.index(id)
	if !ok {
		return clip.Clip{}, &NotFoundError{ID: id}
	}
	next := tl.clips[i].Clone()
	if err := fn(&next); err != nil {
		return clip.Clip{}, err
	}
	next.ID = tl.clips[i].ID
	if err := next.Validate(); err != nil {
		return clip.Clip{}, err
	}
	tl.clips[i] = next
	tl.extend()
	return next.Clone(), nil
}

// Split cuts the clip at an absolute timeline time strictly inside it. The
// original keeps the head and a new clip holding the tail is appended.
// Times are float seconds, so head and tail durations sum to the original
// only up to rounding (a few ulps).
func (tl *Timeline) Split(id string, at float64) (head, tail clip.Clip, err error) {
	i, ok := tl.index(id)
	if !ok {
		return clip.Clip{}, clip.Clip{}, &NotFoundError{ID: id}
	}
	orig := tl.clips[i]
	if !(at > orig.Start && at < orig.End()) {
		return clip.Clip{}, clip.Clip{}, &SplitOutOfRangeError{ClipID: id, At: at, Start: orig.Start, End: orig.End()}
	}

	headDuration := at - orig.Start
	tail = orig.Clone()
	tail.ID = clip.NewID()
	tail.Start = at
	tail.Duration = orig.Duration - headDuration

	tl.clips[i].Duration = headDuration
	tl.clips = append(tl.clips, tail)
	return tl.clips[i].Clone(), tail.Clone(), nil
}

// Delete removes a clip.
func (tl *Timeline) Delete(id string) (clip.Clip, error) {
	i, ok := tl.index(id)
	if !ok {
		return clip.Clip{}, &NotFoundError{ID: id}
	}
	removed := tl.clips[i]
	tl.clips = append(tl.clips[:i:i], tl.clips[i+1:]...)
	return removed, nil
}

// ClipsAt returns the visual clips covering t in paint order. The window is
// half-open, audio is excluded, and ties keep insertion order so the most
// recently added clip paints on top.
func (tl *Timeline) ClipsAt(t float64) []clip.Clip {
	var out []clip.Clip
	for _, c := range tl.clips {
		if !c.Kind.Visual() || !c.Contains(t) {
			continue
		}
		out = append(out, c.Clone())
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Kind.PaintPriority() < out[b].Kind.PaintPriority()
	})
	return out
}

// AudioClips returns the audio clips in insertion order.
func (tl *Timeline) AudioClips() []clip.Clip {
	var out []clip.Clip
	for _, c := range tl.clips {
		if c.Kind == clip.KindAudio {
			out = append(out, c.Clone())
		}
	}
	return out
}

// ReferencingMedia returns the ids of clips pointing at mediaID.
func (tl *Timeline) ReferencingMedia(mediaID string) []string {
	var ids []string
	for _, c := range tl.clips {
		if c.MediaID == mediaID {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// MaxEnd returns the furthest clip end.
func (tl *Timeline) MaxEnd() float64 {
	end := 0.0
	for _, c := range tl.clips {
		end = math.Max(end, c.End())
	}
	return end
}

// Zoom returns the display zoom factor.
func (tl *Timeline) Zoom() float64 { return tl.zoom }

// SetZoom sets the zoom factor clamped to [MinZoom, MaxZoom].
func (tl *Timeline) SetZoom(z float64) float64 {
	tl.zoom = clampZoom(z)
	return tl.zoom
}

// ZoomBy multiplies the zoom factor.
func (tl *Timeline) ZoomBy(factor float64) float64 {
	return tl.SetZoom(tl.zoom * factor)
}

// FitZoom resets zoom to 1.
func (tl *Timeline) FitZoom() float64 {
	return tl.SetZoom(1)
}

// PixelsPerSecond is the horizontal track scale at the current zoom.
func (tl *Timeline) PixelsPerSecond() float64 {
	return basePixelsPerSecond * tl.zoom
}

// TimeAt converts a horizontal track offset to seconds.
func (tl *Timeline) TimeAt(x float64) float64 {
	return math.Max(0, x/tl.PixelsPerSecond())
}

func (tl *Timeline) extend() {
	end := tl.MaxEnd()
	if end <= tl.duration {
		return
	}
	tl.duration = math.Ceil(end/durationStep) * durationStep
}

func (tl *Timeline) index(id string) (int, bool) {
	for i, c := range tl.clips {
		if c.ID == id {
			return i, true
		}
	}
	return -1, false
}

func clampZoom(z float64) float64 {
	if z == 0 || math.IsNaN(z) {
		return 1
	}
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}

func clampTime(t, duration float64) float64 {
	if math.IsNaN(t) {
		return 0
	}
	return math.Max(0, math.Min(duration, t))
}

// FormatTime renders seconds as MM:SS.
func FormatTime(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int(math.Floor(seconds))
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
