package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"reelcut/internal/clip"
	"reelcut/internal/compositor"
	"reelcut/internal/config"
	"reelcut/internal/export"
	"reelcut/internal/history"
	"reelcut/internal/logx"
	"reelcut/internal/media"
	"reelcut/internal/playback"
	"reelcut/internal/runner"
	"reelcut/internal/timeline"
)

var (
	// ErrNotFound matches every missing clip or media error.
	ErrNotFound = timeline.ErrNotFound
	// ErrEmptyTimeline is returned when exporting a project without clips.
	ErrEmptyTimeline = errors.New("timeline has no clips")
	// ErrExportInProgress is returned by Play and Export while an export runs.
	ErrExportInProgress = playback.ErrExportInProgress
)

// Options wires the engine's collaborators. Zero values select defaults.
type Options struct {
	Name      string
	Config    config.Config
	Decoder   compositor.Decoder
	Audio     playback.AudioService
	Sinks     export.SinkFactory
	Scheduler playback.Scheduler
	Now       func() time.Time
	// OnFrame is called after every playhead change driven by the clock,
	// once the preview frame for that time has been rendered.
	OnFrame func(t float64)
	Logger  zerolog.Logger
}

// Engine is the editor core. Every timeline mutation and its history
// snapshot happen under one mutex.
type Engine struct {
	cfg    config.Config
	logger zerolog.Logger

	comp     *compositor.Compositor
	audio    *playback.AudioManager
	clock    *playback.Clock
	pipeline *export.Pipeline
	onFrame  func(t float64)
	closed   atomic.Bool

	frameMu  sync.Mutex
	frame    Frame
	frameSeq uint64

	mu        sync.Mutex
	name      string
	tl        *timeline.Timeline
	hist      *history.Manager
	lib       *media.Library
	revision  uint64
	exporting bool
}

// New builds an engine with an empty timeline.
func New(opts Options) (*Engine, error) {
	cfg := opts.Config
	if cfg.Version == 0 {
		cfg = config.Default()
	}
	cfg.ApplyDefaults()

	logger := opts.Logger
	decoder := opts.Decoder
	if decoder == nil {
		decoder = compositor.URIDecoder{
			Video: compositor.FFmpegFrameDecoder{Runner: runner.CmdRunner{}, FFmpeg: cfg.Tools.FFmpeg},
		}
	}
	rasters, err := compositor.NewRasterCache(decoder, cfg.Media.CacheEntries, cfg.Media.DecodeWorkers, logx.WithComponent(logger, "rasters"))
	if err != nil {
		return nil, err
	}
	comp, err := compositor.New(rasters, logx.WithComponent(logger, "compositor"))
	if err != nil {
		rasters.Close()
		return nil, err
	}

	svc := opts.Audio
	if svc == nil {
		svc = playback.NopService{}
	}
	sinks := opts.Sinks
	if sinks == nil {
		sinks = export.NewSinkFactory(runner.CmdRunner{}, cfg.Tools.FFmpeg)
	}

	name := strings.TrimSpace(opts.Name)
	if name == "" {
		name = DefaultProjectName
	}
	e := &Engine{
		cfg:     cfg,
		logger:  logx.WithComponent(logger, "engine"),
		comp:    comp,
		name:    name,
		tl:      timeline.New(),
		hist:    history.NewManager(cfg.Editor.HistoryLimit),
		lib:     media.NewLibrary(),
		onFrame: opts.OnFrame,
	}
	e.audio = playback.NewAudioManager(svc, logx.WithComponent(logger, "audio"))
	e.audio.SetVolume(cfg.Audio.Volume)
	e.clock = playback.NewClock(clockView{e}, e.audio, playback.Options{
		Scheduler: opts.Scheduler,
		Interval:  time.Duration(cfg.Preview.TickMS) * time.Millisecond,
		Now:       opts.Now,
		OnFrame:   e.onClockFrame,
		Logger:    logx.WithComponent(logger, "clock"),
	})
	e.pipeline = &export.Pipeline{
		Renderer: comp,
		Sinks:    sinks,
		Clock:    e.clock,
		Logger:   logx.WithComponent(logger, "export"),
	}
	return e, nil
}

// Close stops playback and releases the decode pool.
func (e *Engine) Close() {
	e.closed.Store(true)
	e.clock.Stop()
	e.comp.Close()
}

// Config returns the effective configuration.
func (e *Engine) Config() config.Config { return e.cfg }

// Compositor exposes the renderer for callers drawing custom surfaces.
func (e *Engine) Compositor() *compositor.Compositor { return e.comp }

// Audio exposes the audio manager, mainly for the interaction gate.
func (e *Engine) Audio() *playback.AudioManager { return e.audio }

// Clock exposes the playback clock.
func (e *Engine) Clock() *playback.Clock { return e.clock }

// Name returns the project name.
func (e *Engine) Name() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.name
}

// SetName renames the project.
func (e *Engine) SetName(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if name = strings.TrimSpace(name); name != "" {
		e.name = name
		e.revision++
	}
}

// Revision increases on every successful change. Autosave uses it to skip
// unchanged projects.
func (e *Engine) Revision() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.revision
}

// Status summarises the editor state.
type Status struct {
	Name        string             `json:"name"`
	Clips       int                `json:"clips"`
	Tracks      map[clip.Track]int `json:"tracks"`
	Media       map[clip.Kind]int  `json:"media"`
	Duration    float64            `json:"duration"`
	CurrentTime float64            `json:"currentTime"`
	Zoom        float64            `json:"zoom"`
	Playback    string             `json:"playback"`
	CanUndo     bool               `json:"canUndo"`
	CanRedo     bool               `json:"canRedo"`
	History     int                `json:"history"`
	Exporting   bool               `json:"exporting"`
}

// Status returns a summary of the editor state.
func (e *Engine) Status() Status {
	state := e.clock.State()
	e.mu.Lock()
	defer e.mu.Unlock()
	past, _ := e.hist.Len()
	tracks := make(map[clip.Track]int)
	for _, c := range e.tl.Clips() {
		tracks[c.Track]++
	}
	return Status{
		Name:        e.name,
		Clips:       e.tl.Len(),
		Media:       e.lib.Counts(),
		Duration:    e.tl.Duration(),
		CurrentTime: e.tl.CurrentTime(),
		Zoom:        e.tl.Zoom(),
		Playback:    state.String(),
		CanUndo:     e.hist.CanUndo(),
		CanRedo:     e.hist.CanRedo(),
		History:     past,
		Exporting:   e.exporting,
		Tracks:      tracks,
	}
}

// Clips returns a copy of every clip in insertion order.
func (e *Engine) Clips() []clip.Clip {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tl.Clips()
}

// Clip returns a copy of one clip.
func (e *Engine) Clip(id string) (clip.Clip, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tl.Get(id)
}

// ClipsAt returns the visual clips covering t in paint order.
func (e *Engine) ClipsAt(t float64) []clip.Clip {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tl.ClipsAt(t)
}

// Duration returns the timeline length.
func (e *Engine) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tl.Duration()
}

// CurrentTime returns the playhead.
func (e *Engine) CurrentTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tl.CurrentTime()
}

// mutate snapshots the undoable state, applies fn and records the snapshot
// only when fn succeeds. Timeline operations validate before committing, so
// a failed fn leaves the state untouched.
func (e *Engine) mutate(op string, fn func(tl *timeline.Timeline) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := history.Capture(e.tl.Clips(), e.tl.CurrentTime())
	if err := fn(e.tl); err != nil {
		e.logger.Debug().Err(err).Str("op", op).Msg("mutation rejected")
		return err
	}
	e.hist.Record(snap)
	e.revision++
	e.logger.Debug().Str("op", op).Int("clips", e.tl.Len()).Msg("mutation applied")
	return nil
}

// AddClip validates c and appends it to the timeline.
func (e *Engine) AddClip(c clip.Clip) (clip.Clip, error) {
	if c.ID == "" {
		c.ID = clip.NewID()
	}
	if c.Start < 0 {
		c.Start = 0
	}
	var added clip.Clip
	err := e.mutate("add", func(tl *timeline.Timeline) error {
		var err error
		added, err = tl.Add(c)
		return err
	})
	return added, err
}

// AddMedia places a library asset on a track. An empty track picks the
// kind's default track. The clip receives the kind's default duration.
func (e *Engine) AddMedia(mediaID string, track clip.Track, start float64) (clip.Clip, error) {
	e.mu.Lock()
	asset, err := e.lib.Get(mediaID)
	e.mu.Unlock()
	if err != nil {
		return clip.Clip{}, err
	}
	if track == "" {
		track = clip.DefaultTrack(asset.Kind)
	}
	meta := map[string]string{}
	for k, v := range asset.Meta {
		meta[k] = v
	}
	c, err := clip.New(asset.Kind, track, start, clip.DefaultDuration(asset.Kind), clip.Params{
		MediaID:   asset.ID,
		Name:      asset.Title(),
		SourceURI: asset.SourceURI,
		Meta:      meta,
	})
	if err != nil {
		return clip.Clip{}, err
	}
	return e.AddClip(c)
}

// AddAudioAtPlayhead places an audio asset at the current time.
func (e *Engine) AddAudioAtPlayhead(mediaID string) (clip.Clip, error) {
	return e.AddMedia(mediaID, clip.TrackAudio, e.CurrentTime())
}

// AddText adds a text clip at the playhead from a preset. Empty text keeps
// the preset's placeholder.
func (e *Engine) AddText(preset, text string) (clip.Clip, error) {
	if preset == "" {
		preset = "subtitle"
	}
	style, err := clip.Preset(preset)
	if err != nil {
		return clip.Clip{}, err
	}
	if strings.TrimSpace(text) != "" {
		style.Text = text
	}
	c, err := clip.New(clip.KindText, clip.TrackText, e.CurrentTime(), clip.DefaultDuration(clip.KindText), clip.Params{
		Text: &style,
	})
	if err != nil {
		return clip.Clip{}, err
	}
	return e.AddClip(c)
}

// Move sets a clip's start, clamped to zero.
func (e *Engine) Move(id string, start float64) (clip.Clip, error) {
	var out clip.Clip
	err := e.mutate("move", func(tl *timeline.Timeline) error {
		var err error
		out, err = tl.Move(id, start)
		return err
	})
	return out, err
}

// ResizeBy drags one edge of a clip by delta seconds.
func (e *Engine) ResizeBy(id string, edge timeline.Edge, delta float64) (clip.Clip, error) {
	var out clip.Clip
	err := e.mutate("resize", func(tl *timeline.Timeline) error {
		var err error
		out, err = tl.ResizeBy(id, edge, delta)
		return err
	})
	return out, err
}

// SetDuration edits a clip's duration, floored at clip.MinEditDuration.
func (e *Engine) SetDuration(id string, duration float64) (clip.Clip, error) {
	var out clip.Clip
	err := e.mutate("set-duration", func(tl *timeline.Timeline) error {
		var err error
		out, err = tl.SetDuration(id, duration)
		return err
	})
	return out, err
}

// Update applies a property edit to one clip.
func (e *Engine) Update(id string, fn func(*clip.Clip) error) (clip.Clip, error) {
	var out clip.Clip
	err := e.mutate("update", func(tl *timeline.Timeline) error {
		var err error
		out, err = tl.Update(id, fn)
		return err
	})
	return out, err
}

// SetEffects replaces a clip's effects, clamping every value.
func (e *Engine) SetEffects(id string, fx clip.Effects) (clip.Clip, error) {
	return e.Update(id, func(c *clip.Clip) error {
		if !c.Kind.Visual() {
			return clip.ValidationError{ClipID: id, Field: "effects", Message: "audio clips have no effects"}
		}
		c.Effects = fx.Clamp()
		return nil
	})
}

// SetTransition assigns a transition.
func (e *Engine) SetTransition(id string, tr clip.Transition) (clip.Clip, error) {
	return e.Update(id, func(c *clip.Clip) error {
		c.Transition = tr
		return nil
	})
}

// SetAnimation assigns an animation.
func (e *Engine) SetAnimation(id string, an clip.Animation) (clip.Clip, error) {
	return e.Update(id, func(c *clip.Clip) error {
		c.Animation = an
		return nil
	})
}

// Rename changes a clip's display name.
func (e *Engine) Rename(id, name string) (clip.Clip, error) {
	return e.Update(id, func(c *clip.Clip) error {
		if strings.TrimSpace(name) == "" {
			return clip.ValidationError{ClipID: id, Field: "name", Message: "must not be empty"}
		}
		c.Name = name
		return nil
	})
}

// SetText edits the text style of a text clip. fn receives the current style.
func (e *Engine) SetText(id string, fn func(*clip.TextStyle)) (clip.Clip, error) {
	return e.Update(id, func(c *clip.Clip) error {
		if c.Kind != clip.KindText || c.Text == nil {
			return clip.ValidationError{ClipID: id, Field: "textStyle", Message: "not a text clip"}
		}
		style := *c.Text
		fn(&style)
		style = style.Normalize()
		c.Text = &style
		return nil
	})
}

// Split cuts a clip at an absolute time.
func (e *Engine) Split(id string, at float64) (head, tail clip.Clip, err error) {
	err = e.mutate("split", func(tl *timeline.Timeline) error {
		var err error
		head, tail, err = tl.Split(id, at)
		return err
	})
	return head, tail, err
}

// SplitAtPlayhead cuts a clip at the current time.
func (e *Engine) SplitAtPlayhead(id string) (head, tail clip.Clip, err error) {
	return e.Split(id, e.CurrentTime())
}

// Delete removes a clip.
func (e *Engine) Delete(id string) (clip.Clip, error) {
	var out clip.Clip
	err := e.mutate("delete", func(tl *timeline.Timeline) error {
		var err error
		out, err = tl.Delete(id)
		return err
	})
	return out, err
}

// Undo restores the previous snapshot.
func (e *Engine) Undo() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	prev, err := e.hist.Undo(history.Capture(e.tl.Clips(), e.tl.CurrentTime()))
	if err != nil {
		return err
	}
	e.tl.ReplaceClips(prev.Clips, prev.CurrentTime)
	e.revision++
	return nil
}

// Redo reapplies the most recently undone snapshot.
func (e *Engine) Redo() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	next, err := e.hist.Redo(history.Capture(e.tl.Clips(), e.tl.CurrentTime()))
	if err != nil {
		return err
	}
	e.tl.ReplaceClips(next.Clips, next.CurrentTime)
	e.revision++
	return nil
}

// Zoom operations are view state and skip history.

// SetZoom sets the timeline zoom, clamped to [0.1, 5].
func (e *Engine) SetZoom(z float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tl.SetZoom(z)
}

// ZoomIn multiplies the zoom by 1.5.
func (e *Engine) ZoomIn() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tl.ZoomBy(timeline.ZoomInFactor)
}

// ZoomOut multiplies the zoom by 0.67.
func (e *Engine) ZoomOut() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tl.ZoomBy(timeline.ZoomOutFactor)
}

// FitZoom resets the zoom to 1.
func (e *Engine) FitZoom() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tl.FitZoom()
}

// Play starts playback from the playhead.
func (e *Engine) Play() error { return e.clock.Play() }

// Pause halts playback, keeping the playhead.
func (e *Engine) Pause() { e.clock.Pause() }

// Stop halts playback and rewinds.
func (e *Engine) Stop() { e.clock.Stop() }

// TogglePlay flips between playing and paused.
func (e *Engine) TogglePlay() (playback.State, error) { return e.clock.Toggle() }

// Seek moves the playhead, clamped to the timeline.
func (e *Engine) Seek(t float64) float64 { return e.clock.Seek(t) }

// SetVolume sets the preview volume in [0, 1].
func (e *Engine) SetVolume(v float64) float64 { return e.audio.SetVolume(v) }

// PreviewAudio toggles a media library audio asset outside the timeline.
func (e *Engine) PreviewAudio(ctx context.Context, mediaID string) (bool, error) {
	e.mu.Lock()
	asset, err := e.lib.Get(mediaID)
	e.mu.Unlock()
	if err != nil {
		return false, err
	}
	if asset.Kind != clip.KindAudio {
		return false, fmt.Errorf("media %s is not audio", mediaID)
	}
	return e.audio.Toggle(ctx, asset.SourceURI)
}

// RenderFrame composites the frame at t into a new surface of the given
// size. wait blocks on raster decodes.
func (e *Engine) RenderFrame(ctx context.Context, t float64, width, height int, wait bool) (*image.RGBA, compositor.Stats) {
	clips := e.ClipsAt(t)
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	stats := e.comp.Render(ctx, dst, clips, compositor.Options{
		Wait:      wait,
		TextScale: float64(width) / float64(e.cfg.Text.BaselineWidth),
		Media:     e.mediaResolver(),
	})
	return dst, stats
}

// Preview renders the current frame at the configured preview size without
// waiting on decodes, and publishes it as the latest frame.
func (e *Engine) Preview(ctx context.Context) (*image.RGBA, compositor.Stats) {
	frame := e.renderPreview(ctx, e.CurrentTime())
	return frame.Image, frame.Stats
}

// clockView adapts the engine to playback.Timeline. Each call takes the
// engine lock; the clock never holds it across calls.
type clockView struct{ e *Engine }

func (v clockView) Duration() float64    { return v.e.Duration() }
func (v clockView) CurrentTime() float64 { return v.e.CurrentTime() }
func (v clockView) SetCurrentTime(t float64) float64 {
	v.e.mu.Lock()
	defer v.e.mu.Unlock()
	return v.e.tl.SetCurrentTime(t)
}
func (v clockView) AudioClips() []clip.Clip {
	v.e.mu.Lock()
	defer v.e.mu.Unlock()
	return v.e.tl.AudioClips()
}

// mediaResolver answers dangling-media lookups under the engine lock.
func (e *Engine) mediaResolver() compositor.MediaResolver {
	return resolverFunc(func(id string) bool {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.lib.Has(id)
	})
}

type resolverFunc func(id string) bool

func (f resolverFunc) Has(id string) bool { return f(id) }
