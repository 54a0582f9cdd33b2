package engine

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// DefaultAutosaveInterval is how often an open project is saved.
const DefaultAutosaveInterval = 60 * time.Second

// Saver persists a project snapshot.
type Saver interface {
	Save(ctx context.Context, pf ProjectFile) error
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(ctx context.Context, pf ProjectFile) error

func (f SaverFunc) Save(ctx context.Context, pf ProjectFile) error { return f(ctx, pf) }

// FileSaver writes the project to path.
func FileSaver(path string) Saver {
	return SaverFunc(func(_ context.Context, pf ProjectFile) error {
		return WriteProjectFile(path, pf)
	})
}

// Autosaver saves a project periodically while it has clips.
type Autosaver struct {
	Engine   *Engine
	Savers   []Saver
	Interval time.Duration
	Logger   zerolog.Logger

	lastRevision uint64
	saved        bool
}

// Run saves every Interval until ctx is done. A final save runs on exit.
func (a *Autosaver) Run(ctx context.Context) {
	interval := a.Interval
	if interval <= 0 {
		interval = DefaultAutosaveInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if _, err := a.SaveNow(context.Background()); err != nil {
				a.Logger.Warn().Err(err).Msg("final autosave failed")
			}
			return
		case <-ticker.C:
			if _, err := a.SaveNow(ctx); err != nil {
				a.Logger.Warn().Err(err).Msg("autosave failed")
			}
		}
	}
}

// SaveNow saves when the timeline has clips and the project changed since
// the last save. It reports whether anything was written.
func (a *Autosaver) SaveNow(ctx context.Context) (bool, error) {
	rev := a.Engine.Revision()
	if a.saved && rev == a.lastRevision {
		return false, nil
	}
	if a.Engine.Status().Clips == 0 {
		return false, nil
	}
	pf := a.Engine.Serialize()
	var errs []error
	for _, s := range a.Savers {
		if err := s.Save(ctx, pf); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return false, err
	}
	a.lastRevision = rev
	a.saved = true
	a.Logger.Debug().Str("project", pf.Name).Int("clips", len(pf.Clips)).Msg("autosaved")
	return true, nil
}
