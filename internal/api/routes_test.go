package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"reelcut/internal/clip"
	"reelcut/internal/compositor"
	"reelcut/internal/config"
	"reelcut/internal/engine"
	"reelcut/internal/export"
	"reelcut/internal/playback"
	"reelcut/internal/store"
)

type nullSink struct{ cfg export.SinkConfig }

func (s *nullSink) Start(_ context.Context, cfg export.SinkConfig) error {
	s.cfg = cfg
	return nil
}
func (s *nullSink) WriteFrame(*image.RGBA) error { return nil }
func (s *nullSink) Finish() (string, error)      { return s.cfg.Path, nil }
func (s *nullSink) Abort()                       {}

type testServer struct {
	engine *engine.Engine
	store  *store.Store
	router http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := config.Default()
	cfg.Export.FPS = 1
	cfg.Export.OutputDir = t.TempDir()
	e, err := engine.New(engine.Options{
		Config: cfg,
		Decoder: compositor.DecoderFunc(func(context.Context, string) (image.Image, error) {
			return image.NewRGBA(image.Rect(0, 0, 4, 4)), nil
		}),
		Scheduler: &playback.ManualScheduler{},
		Sinks:     func(export.Profile) export.Sink { return &nullSink{} },
		Logger:    zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	t.Cleanup(e.Close)

	st, err := store.Open(filepath.Join(t.TempDir(), "projects.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	return &testServer{
		engine: e,
		store:  st,
		router: NewRouter(ServerConfig{
			Engine:    e,
			Projects:  st,
			Logger:    zerolog.Nop(),
			StartTime: time.Now(),
			Version:   "test",
		}),
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func decodeInto(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode response body %q: %v", rr.Body.String(), err)
	}
}

func TestClipLifecycle(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodPost, "/clips", AddClipRequest{Kind: "image", Start: 1, Duration: 4, Src: "mem://a"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("add status = %d body %s", rr.Code, rr.Body)
	}
	var added clip.Clip
	decodeInto(t, rr, &added)
	if added.Track != clip.TrackVideo {
		t.Fatalf("track = %s, want default video track", added.Track)
	}

	name := "Opening"
	dur := 0.01
	fade := "fade"
	rr = s.do(t, http.MethodPatch, "/clips/"+added.ID, UpdateClipRequest{
		Name:       &name,
		Duration:   &dur,
		Transition: &fade,
		Effects:    &clip.Effects{Contrast: 300},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("patch status = %d body %s", rr.Code, rr.Body)
	}
	var updated clip.Clip
	decodeInto(t, rr, &updated)
	if updated.Name != "Opening" || updated.Duration != clip.MinEditDuration || updated.Effects.Contrast != 100 || updated.Transition != clip.TransitionFade {
		t.Fatalf("updated = %+v", updated)
	}

	rr = s.do(t, http.MethodPost, "/undo", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("undo status = %d", rr.Code)
	}
	rr = s.do(t, http.MethodGet, "/clips/"+added.ID, nil)
	var restored clip.Clip
	decodeInto(t, rr, &restored)
	if restored.Duration != 4 || restored.Name == "Opening" {
		t.Fatalf("undo did not restore the clip: %+v", restored)
	}

	rr = s.do(t, http.MethodPost, "/clips/"+added.ID+"/split", SplitRequest{At: ptr(3.0)})
	if rr.Code != http.StatusOK {
		t.Fatalf("split status = %d body %s", rr.Code, rr.Body)
	}
	var split SplitResponse
	decodeInto(t, rr, &split)
	if split.Head.Duration != 2 || split.Tail.Start != 3 {
		t.Fatalf("split = %+v", split)
	}

	rr = s.do(t, http.MethodGet, "/clips?at=3.5", nil)
	var at ClipsResponse
	decodeInto(t, rr, &at)
	if len(at.Clips) != 1 || at.Clips[0].ID != split.Tail.ID {
		t.Fatalf("clips at 3.5 = %+v", at.Clips)
	}

	if rr := s.do(t, http.MethodDelete, "/clips/"+split.Tail.ID, nil); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rr.Code)
	}
}

func ptr[T any](v T) *T { return &v }

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(t, http.MethodPost, "/clips", AddClipRequest{Kind: "image", Start: 0, Duration: 2, Src: "mem://a"})
	var c clip.Clip
	decodeInto(t, rr, &c)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"missing clip", http.MethodGet, "/clips/nope", nil, http.StatusNotFound, "NOT_FOUND"},
		{"bad kind", http.MethodPost, "/clips", AddClipRequest{Kind: "hologram"}, http.StatusBadRequest, "BAD_REQUEST"},
		{"wrong track", http.MethodPost, "/clips", AddClipRequest{Kind: "audio", Track: "text", Duration: 2}, http.StatusBadRequest, "INVALID_CLIP"},
		{"split outside", http.MethodPost, "/clips/" + c.ID + "/split", SplitRequest{At: ptr(5.0)}, http.StatusUnprocessableEntity, "UNPROCESSABLE"},
		{"redo empty", http.MethodPost, "/redo", nil, http.StatusConflict, "NO_HISTORY"},
		{"unknown command", http.MethodPost, "/commands", CommandRequest{Line: "explode"}, http.StatusBadRequest, "BAD_REQUEST"},
		{"unknown action", http.MethodPost, "/playback/rewind", nil, http.StatusNotFound, "NOT_FOUND"},
		{"bad frame size", http.MethodGet, "/frame?w=0", nil, http.StatusBadRequest, "BAD_REQUEST"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rr := s.do(t, tt.method, tt.path, tt.body)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", rr.Code, tt.status, rr.Body)
			}
			var resp ErrorResponse
			decodeInto(t, rr, &resp)
			if resp.Code != tt.code {
				t.Fatalf("code = %s, want %s", resp.Code, tt.code)
			}
		})
	}
}

func TestCommandsAndPlayback(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(t, http.MethodPost, "/commands", CommandRequest{Line: `add-text title "Welcome"`})
	if rr.Code != http.StatusOK {
		t.Fatalf("command status = %d body %s", rr.Code, rr.Body)
	}
	var res engine.Result
	decodeInto(t, rr, &res)
	if res.Clip == nil || res.Clip.Text.Text != "Welcome" {
		t.Fatalf("result = %+v", res)
	}

	rr = s.do(t, http.MethodPost, "/commands", CommandRequest{Command: &engine.Command{Op: "seek", Args: []string{"2.5"}}})
	if rr.Code != http.StatusOK {
		t.Fatalf("seek command status = %d", rr.Code)
	}

	rr = s.do(t, http.MethodPost, "/playback/play", nil)
	var pb PlaybackResponse
	decodeInto(t, rr, &pb)
	if pb.State != playback.Playing.String() || pb.CurrentTime != 2.5 {
		t.Fatalf("playback = %+v", pb)
	}
	rr = s.do(t, http.MethodPost, "/seek", SeekRequest{Time: 500})
	decodeInto(t, rr, &pb)
	if pb.CurrentTime != s.engine.Duration() {
		t.Fatalf("seek not clamped: %+v", pb)
	}
}

func TestMediaEndpoints(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(t, http.MethodPost, "/media", AddMediaRequest{Kind: "audio", Name: "song.mp3", Src: "/music/song.mp3"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("add media status = %d body %s", rr.Code, rr.Body)
	}
	var asset struct {
		ID string `json:"id"`
	}
	decodeInto(t, rr, &asset)

	if rr := s.do(t, http.MethodPost, "/media", AddMediaRequest{Kind: "audio", Name: "song.mp3", Src: "/x"}); rr.Code != http.StatusConflict {
		t.Fatalf("duplicate status = %d", rr.Code)
	}

	rr = s.do(t, http.MethodPost, "/media/"+asset.ID+"/place", PlaceMediaRequest{Start: ptr(4.0)})
	if rr.Code != http.StatusCreated {
		t.Fatalf("place status = %d body %s", rr.Code, rr.Body)
	}
	var placed clip.Clip
	decodeInto(t, rr, &placed)
	if placed.Track != clip.TrackAudio || placed.Start != 4 || placed.Duration != 30 {
		t.Fatalf("placed = %+v", placed)
	}

	if rr := s.do(t, http.MethodDelete, "/media/"+asset.ID, nil); rr.Code != http.StatusNoContent {
		t.Fatalf("delete media status = %d", rr.Code)
	}
	if rr := s.do(t, http.MethodGet, "/clips/"+placed.ID, nil); rr.Code != http.StatusOK {
		t.Fatalf("clip should survive media removal, status = %d", rr.Code)
	}
}

func TestFrameReturnsPNG(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(t, http.MethodGet, "/frame?t=0&w=64&h=36", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rr.Code, rr.Body)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type = %s", ct)
	}
	img, err := png.Decode(rr.Body)
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 36 {
		t.Fatalf("bounds = %v", b)
	}
}

func TestLiveFrameFollowsPlayhead(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/clips", AddClipRequest{Kind: "image", Duration: 3, Src: "mem://a"})
	s.do(t, http.MethodPost, "/seek", SeekRequest{Time: 1})

	rr := s.do(t, http.MethodGet, "/frame?live=1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rr.Code, rr.Body)
	}
	img, err := png.Decode(rr.Body)
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	conf := s.engine.Config()
	if b := img.Bounds(); b.Dx() != conf.Preview.Width || b.Dy() != conf.Preview.Height {
		t.Fatalf("bounds = %v", b)
	}
	frame, ok := s.engine.LatestFrame()
	if !ok || frame.Time != 1 {
		t.Fatalf("latest frame = %+v ok=%v, want t=1", frame, ok)
	}
}

func TestAudioGateOpensOnFirstChange(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   bool
	}{
		{"status read", http.MethodGet, "/status", nil, false},
		{"frame read", http.MethodGet, "/frame?t=0&w=8&h=8", nil, false},
		{"explicit gesture", http.MethodPost, "/interaction", nil, true},
		{"seek", http.MethodPost, "/seek", SeekRequest{Time: 0}, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			if s.engine.Audio().Unlocked() {
				t.Fatal("audio unlocked before any request")
			}
			s.do(t, tt.method, tt.path, tt.body)
			if got := s.engine.Audio().Unlocked(); got != tt.want {
				t.Fatalf("unlocked = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExportAndProjects(t *testing.T) {
	s := newTestServer(t)
	if rr := s.do(t, http.MethodPost, "/export", nil); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty export status = %d", rr.Code)
	}
	s.do(t, http.MethodPost, "/clips", AddClipRequest{Kind: "image", Duration: 3, Src: "mem://a"})

	rr := s.do(t, http.MethodPost, "/export", ExportRequest{Resolution: "720p"})
	if rr.Code != http.StatusOK {
		t.Fatalf("export status = %d body %s", rr.Code, rr.Body)
	}
	var art export.Artifact
	decodeInto(t, rr, &art)
	if art.Frames != 60 || art.Profile != "webm-vp9" {
		t.Fatalf("artifact = %+v", art)
	}

	rr = s.do(t, http.MethodGet, "/exports", nil)
	var exports ExportsResponse
	decodeInto(t, rr, &exports)
	if len(exports.Exports) != 1 || exports.Exports[0].Frames != 60 {
		t.Fatalf("exports = %+v", exports)
	}

	rr = s.do(t, http.MethodPost, "/projects/save", SaveProjectRequest{Name: "Demo"})
	if rr.Code != http.StatusOK {
		t.Fatalf("save status = %d body %s", rr.Code, rr.Body)
	}
	rr = s.do(t, http.MethodGet, "/projects", nil)
	var projects ProjectsResponse
	decodeInto(t, rr, &projects)
	if len(projects.Projects) != 1 || projects.Projects[0].Name != "Demo" {
		t.Fatalf("projects = %+v", projects)
	}

	s.do(t, http.MethodDelete, "/clips/"+s.engine.Clips()[0].ID, nil)
	rr = s.do(t, http.MethodPost, "/projects/Demo/load", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("load status = %d body %s", rr.Code, rr.Body)
	}
	if n := len(s.engine.Clips()); n != 1 {
		t.Fatalf("%d clips after load, want 1", n)
	}
	if rr := s.do(t, http.MethodPost, "/projects/Missing/load", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("missing project status = %d", rr.Code)
	}
}
