package engine

import (
	"context"
	"image"

	"reelcut/internal/compositor"
)

// Frame is the most recent preview render.
type Frame struct {
	Image    *image.RGBA
	Time     float64
	Stats    compositor.Stats
	Revision uint64
	// Seq counts renders since the engine started.
	Seq uint64
}

// renderPreview composites the frame at t at preview size and publishes it
// as the latest frame. Raster misses start decodes and leave the clip out.
func (e *Engine) renderPreview(ctx context.Context, t float64) Frame {
	rev := e.Revision()
	img, stats := e.RenderFrame(ctx, t, e.cfg.Preview.Width, e.cfg.Preview.Height, false)

	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	e.frameSeq++
	e.frame = Frame{Image: img, Time: t, Stats: stats, Revision: rev, Seq: e.frameSeq}
	return e.frame
}

// onClockFrame runs after every tick, seek and stop of the playback clock.
func (e *Engine) onClockFrame(t float64) {
	if e.closed.Load() {
		return
	}
	frame := e.renderPreview(context.Background(), t)
	if frame.Stats.Failed > 0 {
		e.logger.Debug().Int("failed", frame.Stats.Failed).Float64("t", t).Msg("preview frame has failed clips")
	}
	if e.onFrame != nil {
		e.onFrame(t)
	}
}

// LatestFrame returns the last preview render without rendering. ok is false
// before the first one.
func (e *Engine) LatestFrame() (Frame, bool) {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	return e.frame, e.frame.Image != nil
}

// LiveFrame returns the latest preview frame, rendering a fresh one when the
// playhead moved or the project changed since it was drawn.
func (e *Engine) LiveFrame(ctx context.Context) Frame {
	if frame, ok := e.LatestFrame(); ok && frame.Time == e.CurrentTime() && frame.Revision == e.Revision() {
		return frame
	}
	return e.renderPreview(ctx, e.CurrentTime())
}
