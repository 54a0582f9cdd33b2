package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"reelcut/internal/clip"
	"reelcut/internal/compositor"
)

// EncoderUnsupportedError is returned when every profile of a job was
// rejected by its sink.
type EncoderUnsupportedError struct {
	Tried []string
	Errs  []error
}

func (e *EncoderUnsupportedError) Error() string {
	parts := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		parts = append(parts, err.Error())
	}
	return fmt.Sprintf("no supported encoder (tried %s): %s", strings.Join(e.Tried, ", "), strings.Join(parts, "; "))
}

func (e *EncoderUnsupportedError) Unwrap() error { return ErrUnsupported }

// Frames is the frozen timeline an export renders from.
type Frames interface {
	Duration() float64
	ClipsAt(t float64) []clip.Clip
}

// Renderer paints clips onto a surface. *compositor.Compositor satisfies it.
type Renderer interface {
	Render(ctx context.Context, dst *image.RGBA, clips []clip.Clip, opts compositor.Options) compositor.Stats
}

// Holder pauses live playback for the duration of an export.
type Holder interface {
	Hold()
	Release()
}

// Progress is reported after every frame.
type Progress struct {
	Frame    int     `json:"frame"`
	Frames   int     `json:"frames"`
	Time     float64 `json:"time"`
	Fraction float64 `json:"fraction"`
}

// Job describes one export run.
type Job struct {
	Frames      Frames
	Resolution  string
	FPS         int
	BitrateKbps int
	Profiles    []string
	// OutputBase is the artifact path without extension.
	OutputBase string
	Media      compositor.MediaResolver
	// BaselineWidth is the surface width at which font sizes apply
	// unscaled. Zero means compositor.BaselineWidth.
	BaselineWidth int
	OnProgress    func(Progress)
}

// Artifact is the finalized export.
type Artifact struct {
	Path       string           `json:"path"`
	Profile    string           `json:"profile"`
	MimeType   string           `json:"mime_type"`
	Resolution Resolution       `json:"resolution"`
	FPS        int              `json:"fps"`
	Frames     int              `json:"frames"`
	Duration   float64          `json:"duration"`
	Elapsed    time.Duration    `json:"elapsed"`
	Stats      compositor.Stats `json:"stats"`
}

// Pipeline drives a renderer at a fixed frame step into a sink.
type Pipeline struct {
	Renderer Renderer
	Sinks    SinkFactory
	Clock    Holder
	Logger   zerolog.Logger
}

// Run renders every frame of job and finalizes the first profile whose sink
// starts. Cancelling ctx aborts the sink and removes partial output.
func (p *Pipeline) Run(ctx context.Context, job Job) (Artifact, error) {
	if job.Frames == nil {
		return Artifact{}, errors.New("export job has no timeline")
	}
	res, err := LookupResolution(job.Resolution)
	if err != nil {
		return Artifact{}, err
	}
	profs, err := resolveProfiles(job.Profiles)
	if err != nil {
		return Artifact{}, err
	}
	fps := job.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}
	bitrate := job.BitrateKbps
	if bitrate <= 0 {
		bitrate = DefaultBitrateKbps
	}
	duration := job.Frames.Duration()
	if duration <= 0 {
		return Artifact{}, errors.New("nothing to export: timeline is empty")
	}
	if strings.TrimSpace(job.OutputBase) == "" {
		return Artifact{}, errors.New("export job has no output path")
	}

	if p.Clock != nil {
		p.Clock.Hold()
		defer p.Clock.Release()
	}

	sink, prof, err := p.start(ctx, profs, SinkConfig{
		Width:       res.Width,
		Height:      res.Height,
		FPS:         fps,
		BitrateKbps: bitrate,
	}, job.OutputBase)
	if err != nil {
		return Artifact{}, err
	}

	logger := p.Logger.With().Str("profile", prof.Name).Str("resolution", res.Name).Logger()
	logger.Info().Float64("duration", duration).Int("fps", fps).Msg("export started")

	started := time.Now()
	total := int(math.Round(duration * float64(fps)))
	if total < 1 {
		total = 1
	}
	baseline := job.BaselineWidth
	if baseline <= 0 {
		baseline = compositor.BaselineWidth
	}
	surface := image.NewRGBA(image.Rect(0, 0, res.Width, res.Height))
	opts := compositor.Options{
		Wait:      true,
		TextScale: float64(res.Width) / float64(baseline),
		Media:     job.Media,
	}

	var stats compositor.Stats
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			sink.Abort()
			logger.Warn().Int("frame", i).Msg("export cancelled")
			return Artifact{}, fmt.Errorf("export cancelled: %w", err)
		}
		t := float64(i) / float64(fps)
		frameStats := p.Renderer.Render(ctx, surface, job.Frames.ClipsAt(t), opts)
		stats.Painted += frameStats.Painted
		stats.Failed += frameStats.Failed
		stats.Dangling += frameStats.Dangling
		stats.Loading += frameStats.Loading

		if err := sink.WriteFrame(surface); err != nil {
			sink.Abort()
			return Artifact{}, fmt.Errorf("export frame %d: %w", i, err)
		}
		if job.OnProgress != nil {
			next := float64(i+1) / float64(fps)
			job.OnProgress(Progress{
				Frame:    i + 1,
				Frames:   total,
				Time:     math.Min(next, duration),
				Fraction: math.Min(1, next/duration),
			})
		}
	}

	path, err := sink.Finish()
	if err != nil {
		sink.Abort()
		return Artifact{}, fmt.Errorf("finalize export: %w", err)
	}
	if job.OnProgress != nil {
		job.OnProgress(Progress{Frame: total, Frames: total, Time: duration, Fraction: 1})
	}

	art := Artifact{
		Path:       path,
		Profile:    prof.Name,
		MimeType:   prof.MimeType,
		Resolution: res,
		FPS:        fps,
		Frames:     total,
		Duration:   duration,
		Elapsed:    time.Since(started),
		Stats:      stats,
	}
	logger.Info().Str("path", path).Int("frames", total).Dur("elapsed", art.Elapsed).Msg("export finished")
	return art, nil
}

// start walks profiles in order until a sink accepts one.
func (p *Pipeline) start(ctx context.Context, profs []Profile, cfg SinkConfig, base string) (Sink, Profile, error) {
	unsupported := &EncoderUnsupportedError{}
	for _, prof := range profs {
		cfg.Profile = prof
		cfg.Path = base + prof.Ext
		if prof.Frames() {
			cfg.Path = base + "_frames"
		}
		sink := p.Sinks(prof)
		err := sink.Start(ctx, cfg)
		if err == nil {
			return sink, prof, nil
		}
		if !errors.Is(err, ErrUnsupported) {
			return nil, Profile{}, fmt.Errorf("start %s export: %w", prof.Name, err)
		}
		p.Logger.Warn().Err(err).Str("profile", prof.Name).Msg("encoder unsupported, trying next profile")
		unsupported.Tried = append(unsupported.Tried, prof.Name)
		unsupported.Errs = append(unsupported.Errs, err)
	}
	return nil, Profile{}, unsupported
}
