package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"reelcut/internal/config"
	"reelcut/internal/engine"
	"reelcut/internal/export"
	"reelcut/internal/logx"
	"reelcut/internal/media"
	"reelcut/internal/paths"
	"reelcut/internal/playback"
	"reelcut/internal/runner"
	"reelcut/internal/store"
	"reelcut/internal/tui"
)

// sessionOptions selects the collaborators a command needs.
type sessionOptions struct {
	// Audio plays preview audio through ffplay instead of discarding it.
	Audio bool
	// Quiet keeps logs off stderr. JSON and TUI output set it.
	Quiet   bool
	OnFrame func(t float64)
}

// session is an opened project: resolved paths, config, logger and an
// engine with project.json applied.
type session struct {
	pp     paths.ProjectPaths
	cfg    config.Config
	logger zerolog.Logger
	engine *engine.Engine

	closer io.Closer
	store  *store.Store
}

func openSession(opts sessionOptions) (*session, error) {
	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(pp.ConfigFile)
	if err != nil {
		return nil, err
	}
	pp = paths.ApplyConfig(pp, cfg)
	if err := pp.EnsureMetaDirs(); err != nil {
		return nil, err
	}

	logger, closer, err := logx.New(pp, logx.Options{Verbose: verbose, Console: !opts.Quiet})
	if err != nil {
		return nil, err
	}

	// Relative export dirs resolve against the project root, not the cwd.
	cfg.Export.OutputDir = pp.ExportsDir

	var audio playback.AudioService = playback.NopService{}
	if opts.Audio {
		audio = &playback.FFplayService{
			Runner: runner.CmdRunner{},
			Binary: cfg.Audio.Player,
			Logger: logx.WithComponent(logger, "ffplay"),
		}
	}

	eng, err := engine.New(engine.Options{
		Name:    filepath.Base(pp.Root),
		Config:  cfg,
		Audio:   audio,
		OnFrame: opts.OnFrame,
		Logger:  logger,
	})
	if err != nil {
		closer.Close()
		return nil, err
	}

	s := &session{pp: pp, cfg: cfg, logger: logger, engine: eng, closer: closer}
	if err := eng.LoadFile(pp.ProjectFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.Close()
		return nil, err
	}
	return s, nil
}

// save writes project.json.
func (s *session) save() error {
	if err := s.engine.SaveFile(s.pp.ProjectFile); err != nil {
		return err
	}
	s.logger.Debug().Str("path", s.pp.ProjectFile).Msg("project saved")
	return nil
}

// projects opens the sqlite project store on first use.
func (s *session) projects() (*store.Store, error) {
	if s.store != nil {
		return s.store, nil
	}
	st, err := store.Open(s.pp.DBFile, logx.WithComponent(s.logger, "store"))
	if err != nil {
		return nil, fmt.Errorf("open project store: %w", err)
	}
	s.store = st
	return st, nil
}

// autosaver saves to project.json and, when available, the project store.
func (s *session) autosaver() *engine.Autosaver {
	savers := []engine.Saver{engine.FileSaver(s.pp.ProjectFile)}
	if st, err := s.projects(); err == nil {
		savers = append(savers, st)
	} else {
		s.logger.Warn().Err(err).Msg("autosave limited to project file")
	}
	return &engine.Autosaver{
		Engine:   s.engine,
		Savers:   savers,
		Interval: s.cfg.AutosaveInterval(),
		Logger:   logx.WithComponent(s.logger, "autosave"),
	}
}

// preload decodes image rasters before playback or rendering.
func (s *session) preload(ctx context.Context) {
	loaded, failed, err := s.engine.Preload(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("preload rasters")
		return
	}
	if failed > 0 {
		s.logger.Warn().Int("loaded", loaded).Int("failed", failed).Msg("some images could not be decoded")
	}
}

// preloadWithStatus runs preload behind a spinner line on w when show is set.
func (s *session) preloadWithStatus(ctx context.Context, w io.Writer, show bool) {
	if !show {
		s.preload(ctx)
		return
	}
	sw := tui.NewStatusWriter(w)
	sw.Update("Decoding images")
	s.preload(ctx)
	sw.Stop()
}

func (s *session) ingester() media.Ingester {
	return media.Ingester{Workers: s.cfg.Media.DecodeWorkers, Logger: logx.WithComponent(s.logger, "media")}
}

func (s *session) prober() *export.Prober {
	return export.NewProber(runner.CmdRunner{}, s.cfg.Tools.FFmpeg)
}

func (s *session) Close() {
	s.engine.Close()
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("close project store")
		}
	}
	if s.closer != nil {
		s.closer.Close()
	}
}
