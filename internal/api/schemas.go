package api

import (
	"reelcut/internal/clip"
	"reelcut/internal/engine"
	"reelcut/internal/store"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type ClipsResponse struct {
	Clips []clip.Clip `json:"clips"`
}

type AddClipRequest struct {
	Kind     string          `json:"type"`
	Track    string          `json:"track,omitempty"`
	Start    float64         `json:"startTime"`
	Duration float64         `json:"duration"`
	Name     string          `json:"name,omitempty"`
	Src      string          `json:"src,omitempty"`
	MediaID  string          `json:"mediaId,omitempty"`
	Text     *clip.TextStyle `json:"textStyle,omitempty"`
}

// UpdateClipRequest carries a partial clip edit. Nil fields are left alone.
type UpdateClipRequest struct {
	Name       *string         `json:"name,omitempty"`
	Start      *float64        `json:"startTime,omitempty"`
	Duration   *float64        `json:"duration,omitempty"`
	Effects    *clip.Effects   `json:"effects,omitempty"`
	Transition *string         `json:"transition,omitempty"`
	Animation  *string         `json:"animation,omitempty"`
	Text       *clip.TextStyle `json:"textStyle,omitempty"`
}

type SplitRequest struct {
	At *float64 `json:"at,omitempty"`
}

type SplitResponse struct {
	Head clip.Clip `json:"head"`
	Tail clip.Clip `json:"tail"`
}

// CommandRequest runs either a script line or a structured command.
type CommandRequest struct {
	Line    string          `json:"line,omitempty"`
	Command *engine.Command `json:"command,omitempty"`
}

type SeekRequest struct {
	Time float64 `json:"time"`
}

type PlaybackResponse struct {
	State       string  `json:"state"`
	CurrentTime float64 `json:"currentTime"`
}

type InteractionResponse struct {
	AudioUnlocked bool `json:"audioUnlocked"`
}

type AddMediaRequest struct {
	Kind string            `json:"type"`
	Name string            `json:"name"`
	Src  string            `json:"src"`
	Meta map[string]string `json:"meta,omitempty"`
}

type PlaceMediaRequest struct {
	Track string   `json:"track,omitempty"`
	Start *float64 `json:"startTime,omitempty"`
}

type ExportRequest struct {
	Resolution  string   `json:"resolution,omitempty"`
	FPS         int      `json:"fps,omitempty"`
	BitrateKbps int      `json:"bitrate_kbps,omitempty"`
	Profiles    []string `json:"profiles,omitempty"`
	Output      string   `json:"output,omitempty"`
}

type ProjectsResponse struct {
	Projects []store.ProjectSummary `json:"projects"`
}

type SaveProjectRequest struct {
	Name string `json:"name,omitempty"`
}

type ExportsResponse struct {
	Exports []store.ExportRecord `json:"exports"`
}
