package clip

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// MinResizeDuration is the shortest clip a resize drag can produce.
const MinResizeDuration = 0.5

// MinEditDuration is the shortest duration accepted from a property edit.
const MinEditDuration = 0.1

// Effects holds the per-clip visual adjustments. Zero means neutral for
// every key.
type Effects struct {
	Brightness float64 `json:"brightness" yaml:"brightness"`
	Contrast   float64 `json:"contrast" yaml:"contrast"`
	Saturation float64 `json:"saturation" yaml:"saturation"`
	Blur       float64 `json:"blur" yaml:"blur"`
}

// Clamp bounds brightness, contrast and saturation to [-100, 100] and blur to
// [0, 50] pixels.
func (e Effects) Clamp() Effects {
	return Effects{
		Brightness: clampFloat(e.Brightness, -100, 100),
		Contrast:   clampFloat(e.Contrast, -100, 100),
		Saturation: clampFloat(e.Saturation, -100, 100),
		Blur:       clampFloat(e.Blur, 0, 50),
	}
}

// IsNeutral reports whether applying the effects would leave pixels as-is.
func (e Effects) IsNeutral() bool {
	return e == Effects{}
}

// TextStyle carries the text-only fields of a clip.
type TextStyle struct {
	Text       string   `json:"text"`
	FontSize   float64  `json:"fontSize"`
	Color      string   `json:"color"`
	FontFamily string   `json:"fontFamily"`
	// PositionY is the vertical centre in percent of the frame height. Nil
	// means unset; an explicit 0 places text at the top edge.
	PositionY  *float64 `json:"positionY,omitempty"`
}

// YPercent returns a vertical position for TextStyle.PositionY.
func YPercent(v float64) *float64 { return &v }

// Y returns the vertical position, or the default when unset.
func (s TextStyle) Y() float64 {
	if s.PositionY == nil {
		return defaultPositionY
	}
	return *s.PositionY
}

const defaultPositionY = 50

// DefaultTextStyle returns the style applied to text clips lacking explicit
// values.
func DefaultTextStyle() TextStyle {
	return TextStyle{
		FontSize:   48,
		Color:      "#ffffff",
		FontFamily: "Inter",
		PositionY:  YPercent(defaultPositionY),
	}
}

// Normalize fills unset fields from DefaultTextStyle and clamps font size
// and vertical position.
func (s TextStyle) Normalize() TextStyle { return s.withDefaults() }

func (s TextStyle) withDefaults() TextStyle {
	d := DefaultTextStyle()
	if s.FontSize == 0 {
		s.FontSize = d.FontSize
	}
	if strings.TrimSpace(s.Color) == "" {
		s.Color = d.Color
	}
	if strings.TrimSpace(s.FontFamily) == "" {
		s.FontFamily = d.FontFamily
	}
	s.FontSize = clampFloat(s.FontSize, 12, 200)
	s.PositionY = YPercent(clampFloat(s.Y(), 0, 100))
	return s
}

// Clip is a placed, time-bounded item on the timeline.
type Clip struct {
	ID         string            `json:"id"`
	Kind       Kind              `json:"type"`
	Track      Track             `json:"track"`
	MediaID    string            `json:"mediaId,omitempty"`
	Name       string            `json:"name"`
	Start      float64           `json:"startTime"`
	Duration   float64           `json:"duration"`
	SourceURI  string            `json:"src,omitempty"`
	Effects    Effects           `json:"effects"`
	Transition Transition        `json:"transition,omitempty"`
	Animation  Animation         `json:"animation,omitempty"`
	Text       *TextStyle        `json:"textStyle,omitempty"`
	Meta       map[string]string `json:"meta,omitempty"`
}

// Params supplies the optional fields for New.
type Params struct {
	ID         string
	MediaID    string
	Name       string
	SourceURI  string
	Effects    Effects
	Transition Transition
	Animation  Animation
	Text       *TextStyle
	Meta       map[string]string
}

// New builds a validated clip. A negative start is clamped to zero while a
// non-positive duration, an unknown enum or a track that cannot hold the kind
// is rejected.
func New(kind Kind, track Track, start, duration float64, p Params) (Clip, error) {
	if start < 0 {
		start = 0
	}
	c := Clip{
		ID:         p.ID,
		Kind:       kind,
		Track:      track,
		MediaID:    p.MediaID,
		Name:       p.Name,
		Start:      start,
		Duration:   duration,
		SourceURI:  p.SourceURI,
		Effects:    p.Effects.Clamp(),
		Transition: p.Transition,
		Animation:  p.Animation,
		Meta:       copyMeta(p.Meta),
	}
	if c.ID == "" {
		c.ID = NewID()
	}
	if kind == KindText {
		style := TextStyle{}
		if p.Text != nil {
			style = *p.Text
		}
		style = style.withDefaults()
		c.Text = &style
		if c.Name == "" {
			c.Name = style.Text
		}
	}
	if err := c.Validate(); err != nil {
		return Clip{}, err
	}
	return c, nil
}

// NewID returns a fresh clip or asset identifier.
func NewID() string {
	return uuid.NewString()
}

// Validate checks the structural invariants of a clip.
func (c Clip) Validate() error {
	var errs ValidationErrors
	add := func(field, msg string) {
		errs = append(errs, ValidationError{ClipID: c.ID, Field: field, Message: msg})
	}

	if c.ID == "" {
		add("id", "is required")
	}
	if _, err := ParseKind(string(c.Kind)); err != nil {
		add("type", err.Error())
	}
	if _, err := ParseTrack(string(c.Track)); err != nil {
		add("track", err.Error())
	} else if c.Kind != "" && !c.Track.Accepts(c.Kind) {
		add("track", fmt.Sprintf("%s track does not accept %s clips", c.Track, c.Kind))
	}
	if math.IsNaN(c.Start) || math.IsInf(c.Start, 0) || c.Start < 0 {
		add("startTime", "must be a finite value >= 0")
	}
	if math.IsNaN(c.Duration) || math.IsInf(c.Duration, 0) || c.Duration <= 0 {
		add("duration", "must be a finite value > 0")
	}
	if _, err := ParseTransition(string(c.Transition)); err != nil {
		add("transition", err.Error())
	}
	if _, err := ParseAnimation(string(c.Animation)); err != nil {
		add("animation", err.Error())
	}
	if c.Kind == KindText {
		switch {
		case c.Text == nil:
			add("text", "is required for text clips")
		case strings.TrimSpace(c.Text.Text) == "":
			add("text", "must not be empty")
		default:
			if _, err := ParseColor(c.Text.Color); err != nil {
				add("color", err.Error())
			}
		}
	}
	return errs.orNil()
}

// End returns the exclusive end time of the clip.
func (c Clip) End() float64 {
	return c.Start + c.Duration
}

// Contains reports whether t falls in the half-open window [start, end).
func (c Clip) Contains(t float64) bool {
	return t >= c.Start && t < c.End()
}

// ContainsInclusive reports whether t falls in [start, end]. Audio activation
// uses the closed window.
func (c Clip) ContainsInclusive(t float64) bool {
	return t >= c.Start && t <= c.End()
}

// Clone returns a deep copy sharing no mutable state with c.
func (c Clip) Clone() Clip {
	out := c
	if c.Text != nil {
		out.Text = c.Text.clone()
	}
	out.Meta = copyMeta(c.Meta)
	return out
}

func (s *TextStyle) clone() *TextStyle {
	out := *s
	if s.PositionY != nil {
		out.PositionY = YPercent(*s.PositionY)
	}
	return &out
}

// CloneAll deep copies a slice of clips.
func CloneAll(clips []Clip) []Clip {
	if clips == nil {
		return nil
	}
	out := make([]Clip, len(clips))
	for i, c := range clips {
		out[i] = c.Clone()
	}
	return out
}

// RasterKey returns the cache key used to look up the decoded raster of
// the clip: the media id when present, otherwise the source URI.
func (c Clip) RasterKey() string {
	if c.MediaID != "" {
		return c.MediaID
	}
	return c.SourceURI
}

// ParseColor accepts #rgb and #rrggbb hex colors.
func ParseColor(value string) (color.RGBA, error) {
	v := strings.TrimPrefix(strings.TrimSpace(value), "#")
	if len(v) == 3 {
		v = string([]byte{v[0], v[0], v[1], v[1], v[2], v[2]})
	}
	if len(v) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", value)
	}
	n, err := strconv.ParseUint(v, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q", value)
	}
	return color.RGBA{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n), A: 0xff}, nil
}

func copyMeta(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func clampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
