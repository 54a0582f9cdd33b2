package logx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"reelcut/internal/paths"
)

// Options controls logger construction.
type Options struct {
	Verbose bool
	// Console disables the stderr writer when false. JSON and TUI modes keep
	// stderr quiet and log only to file.
	Console bool
}

// Init configures the global zerolog logger for console output.
func Init(verbose bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(level(verbose))
	log.Logger = zerolog.New(consoleWriter()).With().Timestamp().Logger()
}

// New creates a logger that writes to a timestamped file inside the project's
// logs directory and, optionally, to stderr. The returned closer should be
// closed when logging is no longer needed.
func New(p paths.ProjectPaths, opts Options) (zerolog.Logger, io.Closer, error) {
	if err := os.MkdirAll(p.LogsDir, 0o755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("ensure logs directory: %w", err)
	}

	filename := time.Now().Format("20060102-150405") + ".log"
	filePath := filepath.Join(p.LogsDir, filename)
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
	}

	writers := []io.Writer{file}
	if opts.Console {
		writers = append(writers, consoleWriter())
	}
	logger := NewLogger(writers...).Level(level(opts.Verbose))
	return logger, file, nil
}

// NewLogger creates a logger over the given writers, falling back to the
// global logger when none are supplied.
func NewLogger(writers ...io.Writer) zerolog.Logger {
	if len(writers) == 0 {
		return log.Logger
	}
	if len(writers) == 1 {
		return zerolog.New(writers[0]).With().Timestamp().Logger()
	}
	multi := zerolog.MultiLevelWriter(writers...)
	return zerolog.New(multi).With().Timestamp().Logger()
}

// WithComponent derives a logger tagged with a component field.
func WithComponent(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

func consoleWriter() zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}
}

func level(verbose bool) zerolog.Level {
	if verbose {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}
