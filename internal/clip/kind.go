package clip

import (
	"fmt"
	"strings"
)

// Kind identifies what a clip renders.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindText  Kind = "text"
	KindAudio Kind = "audio"
)

// Track is a timeline lane. The track decides which kinds it accepts.
type Track string

const (
	TrackVideo  Track = "video"
	TrackImages Track = "images"
	TrackText   Track = "text"
	TrackAudio  Track = "audio"
)

// Transition names the entry transition stored on a clip.
type Transition string

const (
	TransitionNone     Transition = ""
	TransitionFade     Transition = "fade"
	TransitionDissolve Transition = "dissolve"
	TransitionSlide    Transition = "slide"
	TransitionZoom     Transition = "zoom"
	TransitionWipe     Transition = "wipe"
)

// Animation names the motion effect stored on a clip.
type Animation string

const (
	AnimationNone     Animation = ""
	AnimationZoomIn   Animation = "zoom-in"
	AnimationZoomOut  Animation = "zoom-out"
	AnimationPanLeft  Animation = "pan-left"
	AnimationPanRight Animation = "pan-right"
	AnimationKenBurns Animation = "ken-burns"
)

var trackAccepts = map[Track][]Kind{
	TrackVideo:  {KindImage, KindVideo},
	TrackImages: {KindImage},
	TrackText:   {KindText},
	TrackAudio:  {KindAudio},
}

// Tracks lists every track in display order.
func Tracks() []Track {
	return []Track{TrackVideo, TrackImages, TrackText, TrackAudio}
}

// ParseKind converts user input into a Kind.
func ParseKind(value string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(value)))
	switch k {
	case KindImage, KindVideo, KindText, KindAudio:
		return k, nil
	}
	return "", fmt.Errorf("unknown clip kind %q", value)
}

// ParseTrack converts user input into a Track.
func ParseTrack(value string) (Track, error) {
	t := Track(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := trackAccepts[t]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unknown track %q", value)
}

// ParseTransition converts user input into a Transition. "none" and the
// empty string both clear the transition.
func ParseTransition(value string) (Transition, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "none" {
		return TransitionNone, nil
	}
	t := Transition(v)
	switch t {
	case TransitionNone, TransitionFade, TransitionDissolve, TransitionSlide, TransitionZoom, TransitionWipe:
		return t, nil
	}
	return "", fmt.Errorf("unknown transition %q", value)
}

// ParseAnimation converts user input into an Animation.
func ParseAnimation(value string) (Animation, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "none" {
		return AnimationNone, nil
	}
	a := Animation(v)
	switch a {
	case AnimationNone, AnimationZoomIn, AnimationZoomOut, AnimationPanLeft, AnimationPanRight, AnimationKenBurns:
		return a, nil
	}
	return "", fmt.Errorf("unknown animation %q", value)
}

// Accepts reports whether the track can hold a clip of the given kind.
func (t Track) Accepts(k Kind) bool {
	for _, allowed := range trackAccepts[t] {
		if allowed == k {
			return true
		}
	}
	return false
}

// DefaultTrack returns the track a clip of the given kind lands on when the
// caller does not choose one.
func DefaultTrack(k Kind) Track {
	switch k {
	case KindText:
		return TrackText
	case KindAudio:
		return TrackAudio
	default:
		return TrackVideo
	}
}

// PaintPriority orders visual clips during composition. Lower values paint
// first. Audio returns -1 because it never paints.
func (k Kind) PaintPriority() int {
	switch k {
	case KindImage:
		return 0
	case KindVideo:
		return 1
	case KindText:
		return 2
	default:
		return -1
	}
}

// Visual reports whether clips of this kind produce pixels.
func (k Kind) Visual() bool {
	return k.PaintPriority() >= 0
}

// DefaultDuration is the length in seconds a freshly added clip receives.
func DefaultDuration(k Kind) float64 {
	switch k {
	case KindVideo:
		return 10
	case KindAudio:
		return 30
	default:
		return 5
	}
}
