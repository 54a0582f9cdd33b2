package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"reelcut/internal/export"
	"reelcut/internal/timeline"
)

// ExportOptions overrides the configured export settings for one run.
type ExportOptions struct {
	Resolution  string
	FPS         int
	BitrateKbps int
	Profiles    []string
	// OutputBase is the artifact path without extension.
	OutputBase string
	OnProgress func(export.Progress)
}

// Export renders the timeline into an encoded artifact. Playback is paused
// for the duration and Play fails with ErrExportInProgress until it ends.
// Edits made while exporting do not affect the running export.
func (e *Engine) Export(ctx context.Context, opts ExportOptions) (export.Artifact, error) {
	e.mu.Lock()
	if e.exporting {
		e.mu.Unlock()
		return export.Artifact{}, ErrExportInProgress
	}
	if e.tl.Len() == 0 {
		e.mu.Unlock()
		return export.Artifact{}, ErrEmptyTimeline
	}
	frozen := timeline.New()
	if err := frozen.Load(e.tl.State()); err != nil {
		e.mu.Unlock()
		return export.Artifact{}, fmt.Errorf("snapshot timeline: %w", err)
	}
	e.exporting = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.exporting = false
		e.mu.Unlock()
	}()

	job := export.Job{
		Frames:        frozen,
		Resolution:    firstNonEmpty(opts.Resolution, e.cfg.Export.Resolution),
		FPS:           firstPositive(opts.FPS, e.cfg.Export.FPS),
		BitrateKbps:   firstPositive(opts.BitrateKbps, e.cfg.Export.BitrateKbps),
		Profiles:      opts.Profiles,
		OutputBase:    opts.OutputBase,
		Media:         e.mediaResolver(),
		BaselineWidth: e.cfg.Text.BaselineWidth,
		OnProgress:    opts.OnProgress,
	}
	if len(job.Profiles) == 0 {
		job.Profiles = e.cfg.Export.Profiles
	}
	if job.OutputBase == "" {
		job.OutputBase = filepath.Join(e.cfg.Export.OutputDir, FileStem(e.Name()))
	}
	return e.pipeline.Run(ctx, job)
}

// Exporting reports whether an export is running.
func (e *Engine) Exporting() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exporting
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

// FileStem turns a project name into a file name without extension.
func FileStem(name string) string {
	stem := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			return unicode.ToLower(r)
		case unicode.IsSpace(r):
			return '-'
		}
		return -1
	}, strings.TrimSpace(name))
	if stem == "" {
		return "export"
	}
	return stem
}
