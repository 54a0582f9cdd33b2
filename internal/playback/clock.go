package playback

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"reelcut/internal/clip"
)

// DefaultInterval is the playback tick period, roughly one display frame.
const DefaultInterval = 16 * time.Millisecond

// ErrExportInProgress is returned by Play while an export holds the clock.
var ErrExportInProgress = errors.New("export in progress")

// State is the playback state.
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

// Timeline is the view of the editor the clock drives.
type Timeline interface {
	Duration() float64
	CurrentTime() float64
	SetCurrentTime(t float64) float64
	AudioClips() []clip.Clip
}

// FrameFunc is called after every time change with the new logical time.
type FrameFunc func(t float64)

// Options configures a Clock.
type Options struct {
	Scheduler Scheduler
	Interval  time.Duration
	Now       func() time.Time
	OnFrame   FrameFunc
	Logger    zerolog.Logger
}

// Clock advances logical time in step with the wall clock and activates
// audio clips as the playhead crosses them.
type Clock struct {
	tl       Timeline
	audio    *AudioManager
	sched    Scheduler
	interval time.Duration
	now      func() time.Time
	onFrame  FrameFunc
	logger   zerolog.Logger

	mu          sync.Mutex
	state       State
	held        bool
	wallStart   time.Time
	initial     float64
	activeAudio string
}

// NewClock builds a stopped clock over tl.
func NewClock(tl Timeline, audio *AudioManager, opts Options) *Clock {
	c := &Clock{
		tl:       tl,
		audio:    audio,
		sched:    opts.Scheduler,
		interval: opts.Interval,
		now:      opts.Now,
		onFrame:  opts.OnFrame,
		logger:   opts.Logger,
	}
	if c.sched == nil {
		c.sched = &WallScheduler{}
	}
	if c.interval <= 0 {
		c.interval = DefaultInterval
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// State returns the playback state.
func (c *Clock) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Playing reports whether the clock is running.
func (c *Clock) Playing() bool { return c.State() == Playing }

// Play starts advancing from the current time. Playing at or past the end
// restarts from zero.
func (c *Clock) Play() error {
	c.mu.Lock()
	if c.held {
		c.mu.Unlock()
		return ErrExportInProgress
	}
	if c.state == Playing {
		c.mu.Unlock()
		return nil
	}
	start := c.tl.CurrentTime()
	if start >= c.tl.Duration() {
		start = c.tl.SetCurrentTime(0)
	}
	c.initial = start
	c.wallStart = c.now()
	c.state = Playing
	c.syncAudioLocked(start)
	c.sched.Start(c.interval, c.tick)
	c.mu.Unlock()

	c.logger.Debug().Float64("from", start).Msg("playback started")
	c.emit(start)
	return nil
}

// Pause stops ticking and audio, keeping the position.
func (c *Clock) Pause() {
	c.mu.Lock()
	c.haltLocked(Paused)
	c.mu.Unlock()
}

// Stop pauses and rewinds to zero.
func (c *Clock) Stop() {
	c.mu.Lock()
	c.haltLocked(Stopped)
	t := c.tl.SetCurrentTime(0)
	c.mu.Unlock()
	c.emit(t)
}

// Toggle plays when paused and pauses when playing.
func (c *Clock) Toggle() (State, error) {
	if c.Playing() {
		c.Pause()
		return Paused, nil
	}
	if err := c.Play(); err != nil {
		return c.State(), err
	}
	return Playing, nil
}

// Seek moves the playhead, clamped to [0, duration], without changing the
// play state.
func (c *Clock) Seek(t float64) float64 {
	c.mu.Lock()
	if math.IsNaN(t) {
		t = 0
	}
	t = c.tl.SetCurrentTime(math.Max(0, math.Min(c.tl.Duration(), t)))
	if c.state == Playing {
		c.initial = t
		c.wallStart = c.now()
		c.syncAudioLocked(t)
	}
	c.mu.Unlock()
	c.emit(t)
	return t
}

// Hold pauses playback and refuses Play until Release. Export uses it so the
// clock and the export loop never drive the compositor together.
func (c *Clock) Hold() {
	c.mu.Lock()
	c.held = true
	if c.state == Playing {
		c.haltLocked(Paused)
	}
	c.mu.Unlock()
}

// Release undoes Hold.
func (c *Clock) Release() {
	c.mu.Lock()
	c.held = false
	c.mu.Unlock()
}

func (c *Clock) tick() {
	c.mu.Lock()
	if c.state != Playing {
		c.mu.Unlock()
		return
	}
	logical := c.initial + c.now().Sub(c.wallStart).Seconds()
	if logical >= c.tl.Duration() {
		c.haltLocked(Stopped)
		t := c.tl.SetCurrentTime(0)
		c.mu.Unlock()
		c.logger.Debug().Msg("playback reached end")
		c.emit(t)
		return
	}
	t := c.tl.SetCurrentTime(logical)
	c.syncAudioLocked(t)
	c.mu.Unlock()
	c.emit(t)
}

// syncAudioLocked activates the audio clip covering t. When several overlap
// the most recently added one wins.
func (c *Clock) syncAudioLocked(t float64) {
	if c.audio == nil {
		return
	}
	var want *clip.Clip
	clips := c.tl.AudioClips()
	for i := len(clips) - 1; i >= 0; i-- {
		if clips[i].ContainsInclusive(t) {
			want = &clips[i]
			break
		}
	}

	if want == nil {
		if c.activeAudio != "" {
			c.audio.Stop()
			c.activeAudio = ""
		}
		return
	}
	if want.ID == c.activeAudio {
		return
	}
	if c.activeAudio != "" {
		c.audio.Stop()
		c.activeAudio = ""
	}
	err := c.audio.Play(context.Background(), want.SourceURI)
	switch {
	case err == nil:
		c.activeAudio = want.ID
	case errors.Is(err, ErrAudioLocked):
		// retried on the next tick once the gate opens
	default:
		c.logger.Warn().Err(err).Str("clip", want.ID).Msg("start audio clip")
		c.activeAudio = want.ID
	}
}

func (c *Clock) haltLocked(next State) {
	c.sched.Stop()
	if c.audio != nil {
		c.audio.Stop()
	}
	c.activeAudio = ""
	if c.state == Playing || next == Stopped {
		c.state = next
	}
}

func (c *Clock) emit(t float64) {
	if c.onFrame != nil {
		c.onFrame(t)
	}
}
