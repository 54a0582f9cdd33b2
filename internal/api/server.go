package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"reelcut/internal/engine"
	"reelcut/internal/export"
	"reelcut/internal/store"
)

// Projects is the persistence the API exposes. *store.Store satisfies it.
type Projects interface {
	Save(ctx context.Context, pf engine.ProjectFile) error
	Load(ctx context.Context, name string) (engine.ProjectFile, error)
	List(ctx context.Context) ([]store.ProjectSummary, error)
	RecordExport(ctx context.Context, project string, art export.Artifact) (store.ExportRecord, error)
	Exports(ctx context.Context, project string, limit int) ([]store.ExportRecord, error)
}

// ServerConfig wires the HTTP API.
type ServerConfig struct {
	Addr      string
	Engine    *engine.Engine
	Projects  Projects
	Logger    zerolog.Logger
	StartTime time.Time
	Version   string
}

// Server serves the editor over HTTP.
type Server struct {
	httpServer *http.Server
	logger     zerolog.Logger
}

// NewServer builds a server bound to cfg.Addr.
func NewServer(cfg ServerConfig) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      NewRouter(cfg),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

// Start blocks serving requests until Shutdown.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("starting HTTP server")
	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}
