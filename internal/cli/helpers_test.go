package cli

import (
	"testing"

	"github.com/rs/zerolog"

	"reelcut/internal/engine"
	"reelcut/internal/paths"
	"reelcut/internal/playback"
)

// newTestSession builds a session over a temp project without touching
// config files or log files.
func newTestSession(t *testing.T) *session {
	t.Helper()
	pp, err := paths.Resolve(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	e, err := engine.New(engine.Options{
		Name:      "Test Project",
		Scheduler: &playback.ManualScheduler{},
		Logger:    zerolog.Nop(),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(e.Close)
	return &session{pp: pp, logger: zerolog.Nop(), engine: e}
}
