package api

import (
	"encoding/json"
	"image"
	"image/png"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"reelcut/internal/clip"
	"reelcut/internal/compositor"
	"reelcut/internal/engine"
	"reelcut/internal/media"
)

const maxFrameSide = 3840

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(InteractionMiddleware(cfg.Engine.Audio().NotifyInteraction))

	r.Get("/health", healthHandler(cfg))
	r.Get("/status", statusHandler(cfg))

	r.Route("/clips", func(r chi.Router) {
		r.Get("/", listClipsHandler(cfg))
		r.Post("/", addClipHandler(cfg))
		r.Get("/{id}", getClipHandler(cfg))
		r.Patch("/{id}", updateClipHandler(cfg))
		r.Delete("/{id}", deleteClipHandler(cfg))
		r.Post("/{id}/split", splitClipHandler(cfg))
	})

	r.Post("/commands", commandHandler(cfg))
	r.Post("/undo", historyHandler(cfg, (*engine.Engine).Undo))
	r.Post("/redo", historyHandler(cfg, (*engine.Engine).Redo))

	r.Get("/media", listMediaHandler(cfg))
	r.Post("/media", addMediaHandler(cfg))
	r.Delete("/media/{id}", deleteMediaHandler(cfg))
	r.Post("/media/{id}/place", placeMediaHandler(cfg))

	r.Get("/frame", frameHandler(cfg))
	r.Post("/interaction", interactionHandler(cfg))
	r.Post("/playback/{action}", playbackHandler(cfg))
	r.Post("/seek", seekHandler(cfg))

	r.Post("/export", exportHandler(cfg))
	r.Get("/exports", listExportsHandler(cfg))

	r.Get("/projects", listProjectsHandler(cfg))
	r.Post("/projects/save", saveProjectHandler(cfg))
	r.Post("/projects/{name}/load", loadProjectHandler(cfg))

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, cfg.Engine.Status())
	}
}

func listClipsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var clips []clip.Clip
		if at := r.URL.Query().Get("at"); at != "" {
			t, err := strconv.ParseFloat(at, 64)
			if err != nil {
				WriteError(w, http.StatusBadRequest, "at must be a number", "BAD_REQUEST")
				return
			}
			clips = cfg.Engine.ClipsAt(t)
		} else {
			clips = cfg.Engine.Clips()
		}
		if clips == nil {
			clips = []clip.Clip{}
		}
		WriteJSON(w, http.StatusOK, ClipsResponse{Clips: clips})
	}
}

func addClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddClipRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		kind, err := clip.ParseKind(req.Kind)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		track := clip.DefaultTrack(kind)
		if req.Track != "" {
			if track, err = clip.ParseTrack(req.Track); err != nil {
				WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
				return
			}
		}
		duration := req.Duration
		if duration == 0 {
			duration = clip.DefaultDuration(kind)
		}
		c, err := clip.New(kind, track, req.Start, duration, clip.Params{
			Name:      req.Name,
			SourceURI: req.Src,
			MediaID:   req.MediaID,
			Text:      req.Text,
		})
		if err != nil {
			writeEngineError(w, err, http.StatusBadRequest)
			return
		}
		added, err := cfg.Engine.AddClip(c)
		if err != nil {
			writeEngineError(w, err, http.StatusBadRequest)
			return
		}
		WriteJSON(w, http.StatusCreated, added)
	}
}

func getClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := cfg.Engine.Clip(chi.URLParam(r, "id"))
		if err != nil {
			writeEngineError(w, err, http.StatusInternalServerError)
			return
		}
		WriteJSON(w, http.StatusOK, c)
	}
}

func updateClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateClipRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		var (
			transition clip.Transition
			animation  clip.Animation
			err        error
		)
		if req.Transition != nil {
			if transition, err = clip.ParseTransition(*req.Transition); err != nil {
				WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
				return
			}
		}
		if req.Animation != nil {
			if animation, err = clip.ParseAnimation(*req.Animation); err != nil {
				WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
				return
			}
		}

		id := chi.URLParam(r, "id")
		updated, err := cfg.Engine.Update(id, func(c *clip.Clip) error {
			if req.Name != nil {
				if strings.TrimSpace(*req.Name) == "" {
					return clip.ValidationError{ClipID: id, Field: "name", Message: "must not be empty"}
				}
				c.Name = *req.Name
			}
			if req.Start != nil {
				c.Start = math.Max(0, *req.Start)
			}
			if req.Duration != nil {
				c.Duration = math.Max(clip.MinEditDuration, *req.Duration)
			}
			if req.Effects != nil {
				if !c.Kind.Visual() {
					return clip.ValidationError{ClipID: id, Field: "effects", Message: "audio clips have no effects"}
				}
				c.Effects = req.Effects.Clamp()
			}
			if req.Transition != nil {
				c.Transition = transition
			}
			if req.Animation != nil {
				c.Animation = animation
			}
			if req.Text != nil {
				if c.Kind != clip.KindText {
					return clip.ValidationError{ClipID: id, Field: "textStyle", Message: "not a text clip"}
				}
				style := req.Text.Normalize()
				c.Text = &style
			}
			return nil
		})
		if err != nil {
			writeEngineError(w, err, http.StatusBadRequest)
			return
		}
		WriteJSON(w, http.StatusOK, updated)
	}
}

func deleteClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := cfg.Engine.Delete(chi.URLParam(r, "id")); err != nil {
			writeEngineError(w, err, http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func splitClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SplitRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
				return
			}
		}
		at := cfg.Engine.CurrentTime()
		if req.At != nil {
			at = *req.At
		}
		head, tail, err := cfg.Engine.Split(chi.URLParam(r, "id"), at)
		if err != nil {
			writeEngineError(w, err, http.StatusBadRequest)
			return
		}
		WriteJSON(w, http.StatusOK, SplitResponse{Head: head, Tail: tail})
	}
}

func commandHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CommandRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		var cmd engine.Command
		switch {
		case req.Command != nil:
			cmd = *req.Command
		case strings.TrimSpace(req.Line) != "":
			parsed, err := engine.ParseCommand(req.Line)
			if err != nil {
				WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
				return
			}
			cmd = parsed
		}
		if cmd.Op == "" {
			WriteError(w, http.StatusBadRequest, "line or command is required", "BAD_REQUEST")
			return
		}
		res, err := cfg.Engine.Exec(r.Context(), cmd)
		if err != nil {
			writeEngineError(w, err, http.StatusBadRequest)
			return
		}
		WriteJSON(w, http.StatusOK, res)
	}
}

func historyHandler(cfg ServerConfig, step func(*engine.Engine) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := step(cfg.Engine); err != nil {
			writeEngineError(w, err, http.StatusInternalServerError)
			return
		}
		WriteJSON(w, http.StatusOK, cfg.Engine.Status())
	}
}

func listMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var kind clip.Kind
		if v := r.URL.Query().Get("type"); v != "" {
			k, err := clip.ParseKind(v)
			if err != nil {
				WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
				return
			}
			kind = k
		}
		assets := cfg.Engine.Media(kind)
		if assets == nil {
			assets = []media.Asset{}
		}
		WriteJSON(w, http.StatusOK, map[string][]media.Asset{"media": assets})
	}
}

func addMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddMediaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		kind, err := clip.ParseKind(req.Kind)
		if err != nil || kind == clip.KindText {
			WriteError(w, http.StatusBadRequest, "type must be image, video or audio", "BAD_REQUEST")
			return
		}
		if req.Name == "" || req.Src == "" {
			WriteError(w, http.StatusBadRequest, "name and src are required", "BAD_REQUEST")
			return
		}
		asset, err := cfg.Engine.ImportMedia(media.Asset{Kind: kind, Name: req.Name, SourceURI: req.Src, Meta: req.Meta})
		if err != nil {
			writeEngineError(w, err, http.StatusBadRequest)
			return
		}
		WriteJSON(w, http.StatusCreated, asset)
	}
}

func deleteMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := cfg.Engine.RemoveMedia(chi.URLParam(r, "id")); err != nil {
			writeEngineError(w, err, http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func placeMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PlaceMediaRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
				return
			}
		}
		var track clip.Track
		if req.Track != "" {
			t, err := clip.ParseTrack(req.Track)
			if err != nil {
				WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
				return
			}
			track = t
		}
		start := cfg.Engine.CurrentTime()
		if req.Start != nil {
			start = *req.Start
		}
		c, err := cfg.Engine.AddMedia(chi.URLParam(r, "id"), track, start)
		if err != nil {
			writeEngineError(w, err, http.StatusBadRequest)
			return
		}
		WriteJSON(w, http.StatusCreated, c)
	}
}

func frameHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if live, _ := strconv.ParseBool(q.Get("live")); live {
			frame := cfg.Engine.LiveFrame(r.Context())
			writeFrame(w, cfg, frame.Image, frame.Stats)
			return
		}
		conf := cfg.Engine.Config()
		t := cfg.Engine.CurrentTime()
		if v := q.Get("t"); v != "" {
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil {
				WriteError(w, http.StatusBadRequest, "t must be a number", "BAD_REQUEST")
				return
			}
			t = parsed
		}
		width, ok := intParam(w, q.Get("w"), conf.Preview.Width, "w")
		if !ok {
			return
		}
		height, ok := intParam(w, q.Get("h"), conf.Preview.Height, "h")
		if !ok {
			return
		}
		frame, stats := cfg.Engine.RenderFrame(r.Context(), t, width, height, true)
		writeFrame(w, cfg, frame, stats)
	}
}

func writeFrame(w http.ResponseWriter, cfg ServerConfig, frame *image.RGBA, stats compositor.Stats) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Clips-Painted", strconv.Itoa(stats.Painted))
	w.Header().Set("X-Clips-Loading", strconv.Itoa(stats.Loading))
	if err := png.Encode(w, frame); err != nil {
		cfg.Logger.Warn().Err(err).Msg("encode frame")
	}
}

// interactionHandler lets a client report a user gesture without editing.
// The middleware has already opened the gate by the time it runs.
func interactionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, InteractionResponse{AudioUnlocked: cfg.Engine.Audio().Unlocked()})
	}
}

func intParam(w http.ResponseWriter, value string, fallback int, name string) (int, bool) {
	if value == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 || n > maxFrameSide {
		WriteError(w, http.StatusBadRequest, name+" must be between 1 and "+strconv.Itoa(maxFrameSide), "BAD_REQUEST")
		return 0, false
	}
	return n, true
}

func playbackHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		switch chi.URLParam(r, "action") {
		case "play":
			err = cfg.Engine.Play()
		case "pause":
			cfg.Engine.Pause()
		case "stop":
			cfg.Engine.Stop()
		case "toggle":
			_, err = cfg.Engine.TogglePlay()
		default:
			WriteError(w, http.StatusNotFound, "unknown playback action", "NOT_FOUND")
			return
		}
		if err != nil {
			writeEngineError(w, err, http.StatusInternalServerError)
			return
		}
		writePlayback(w, cfg)
	}
}

func seekHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SeekRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		cfg.Engine.Seek(req.Time)
		writePlayback(w, cfg)
	}
}

func writePlayback(w http.ResponseWriter, cfg ServerConfig) {
	st := cfg.Engine.Status()
	WriteJSON(w, http.StatusOK, PlaybackResponse{State: st.Playback, CurrentTime: st.CurrentTime})
}

func exportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ExportRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
				return
			}
		}
		art, err := cfg.Engine.Export(r.Context(), engine.ExportOptions{
			Resolution:  req.Resolution,
			FPS:         req.FPS,
			BitrateKbps: req.BitrateKbps,
			Profiles:    req.Profiles,
			OutputBase:  req.Output,
		})
		if err != nil {
			writeEngineError(w, err, http.StatusInternalServerError)
			return
		}
		if cfg.Projects != nil {
			if _, err := cfg.Projects.RecordExport(r.Context(), cfg.Engine.Name(), art); err != nil {
				cfg.Logger.Warn().Err(err).Msg("record export")
			}
		}
		WriteJSON(w, http.StatusOK, art)
	}
}

func listExportsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Projects == nil {
			WriteError(w, http.StatusNotImplemented, "no project store configured", "NO_STORE")
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		recs, err := cfg.Projects.Exports(r.Context(), r.URL.Query().Get("project"), limit)
		if err != nil {
			writeEngineError(w, err, http.StatusInternalServerError)
			return
		}
		WriteJSON(w, http.StatusOK, ExportsResponse{Exports: recs})
	}
}

func listProjectsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Projects == nil {
			WriteError(w, http.StatusNotImplemented, "no project store configured", "NO_STORE")
			return
		}
		list, err := cfg.Projects.List(r.Context())
		if err != nil {
			writeEngineError(w, err, http.StatusInternalServerError)
			return
		}
		WriteJSON(w, http.StatusOK, ProjectsResponse{Projects: list})
	}
}

func saveProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Projects == nil {
			WriteError(w, http.StatusNotImplemented, "no project store configured", "NO_STORE")
			return
		}
		var req SaveProjectRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
				return
			}
		}
		if req.Name != "" {
			cfg.Engine.SetName(req.Name)
		}
		pf := cfg.Engine.Serialize()
		if err := cfg.Projects.Save(r.Context(), pf); err != nil {
			writeEngineError(w, err, http.StatusInternalServerError)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"name": pf.Name, "clips": len(pf.Clips)})
	}
}

func loadProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Projects == nil {
			WriteError(w, http.StatusNotImplemented, "no project store configured", "NO_STORE")
			return
		}
		pf, err := cfg.Projects.Load(r.Context(), chi.URLParam(r, "name"))
		if err != nil {
			writeEngineError(w, err, http.StatusInternalServerError)
			return
		}
		if err := cfg.Engine.Deserialize(pf); err != nil {
			writeEngineError(w, err, http.StatusBadRequest)
			return
		}
		WriteJSON(w, http.StatusOK, cfg.Engine.Status())
	}
}
