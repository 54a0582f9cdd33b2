package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"reelcut/internal/clip"
	"reelcut/internal/engine"
	"reelcut/internal/export"
	"reelcut/internal/history"
	"reelcut/internal/media"
	"reelcut/internal/timeline"
)

type contextKey string

const RequestIDKey contextKey = "request_id"

func LoggingMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			requestID, _ := r.Context().Value(RequestIDKey).(string)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapped.status).
				Int64("duration_ms", time.Since(start).Milliseconds()).
				Str("request_id", requestID).
				Msg("http request")
		})
	}
}

func RecoveryMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					requestID, _ := r.Context().Value(RequestIDKey).(string)
					logger.Error().Interface("error", err).Str("request_id", requestID).Msg("panic recovered")
					WriteError(w, http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := uuid.NewString()[:8]
			ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
			w.Header().Set("X-Request-ID", requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// InteractionMiddleware opens the audio gate on the first request that
// changes editor state. Reads such as GET /frame never count as a user
// gesture.
func InteractionMiddleware(notify func(kind string)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
			default:
				notify("http " + r.Method)
			}
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func WriteError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message, Code: code})
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeEngineError maps editor errors onto HTTP statuses. Unknown errors
// fall back to fallback.
func writeEngineError(w http.ResponseWriter, err error, fallback int) {
	status, code := classify(err, fallback)
	WriteError(w, status, err.Error(), code)
}

func classify(err error, fallback int) (int, string) {
	var (
		validation  clip.ValidationError
		validations clip.ValidationErrors
		split       *timeline.SplitOutOfRangeError
		unsupported *export.EncoderUnsupportedError
	)
	switch {
	case errors.Is(err, engine.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.As(err, &validation), errors.As(err, &validations):
		return http.StatusBadRequest, "INVALID_CLIP"
	case errors.As(err, &split), errors.Is(err, timeline.ErrResizeTooShort), errors.Is(err, engine.ErrEmptyTimeline):
		return http.StatusUnprocessableEntity, "UNPROCESSABLE"
	case errors.Is(err, engine.ErrExportInProgress):
		return http.StatusConflict, "EXPORT_IN_PROGRESS"
	case errors.Is(err, history.ErrNothingToUndo), errors.Is(err, history.ErrNothingToRedo):
		return http.StatusConflict, "NO_HISTORY"
	case errors.Is(err, media.ErrDuplicate):
		return http.StatusConflict, "DUPLICATE"
	case errors.As(err, &unsupported):
		return http.StatusNotImplemented, "ENCODER_UNSUPPORTED"
	case errors.Is(err, context.Canceled):
		return 499, "CANCELLED"
	}
	if fallback == http.StatusBadRequest {
		return fallback, "BAD_REQUEST"
	}
	return fallback, "INTERNAL_ERROR"
}
