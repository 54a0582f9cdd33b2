package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"reelcut/internal/clip"
	"reelcut/internal/history"
	"reelcut/internal/media"
	"reelcut/internal/timeline"
)

// DefaultProjectName names projects that were never given one.
const DefaultProjectName = "My Project"

// ProjectVersion is the current project file schema.
const ProjectVersion = 1

// ProjectFile is the persisted form of a project.
type ProjectFile struct {
	Version      int           `json:"version"`
	Name         string        `json:"name"`
	Clips        []clip.Clip   `json:"clips"`
	MediaLibrary []media.Asset `json:"mediaLibrary"`
	Duration     float64       `json:"duration"`
	CurrentTime  float64       `json:"currentTime"`
	Zoom         float64       `json:"zoom"`
	Resolution   string        `json:"resolution"`
	FPS          int           `json:"fps"`
	History      *HistoryFile  `json:"history,omitempty"`
	SavedAt      time.Time     `json:"savedAt"`
}

// HistoryFile holds the undo and redo stacks.
type HistoryFile struct {
	Past   []history.Snapshot `json:"past"`
	Future []history.Snapshot `json:"future"`
}

// Serialize captures the whole project.
func (e *Engine) Serialize() ProjectFile {
	e.mu.Lock()
	defer e.mu.Unlock()
	state := e.tl.State()
	assets := e.lib.List("")
	return ProjectFile{
		Version:      ProjectVersion,
		Name:         e.name,
		Clips:        state.Clips,
		MediaLibrary: assets,
		Duration:     state.Duration,
		CurrentTime:  state.CurrentTime,
		Zoom:         state.Zoom,
		Resolution:   e.cfg.Export.Resolution,
		FPS:          e.cfg.Export.FPS,
		History:      &HistoryFile{Past: e.hist.Past(), Future: e.hist.Future()},
		SavedAt:      time.Now().UTC(),
	}
}

// Deserialize replaces the project. Every clip is validated first; an
// invalid file leaves the current project untouched. Playback stops.
func (e *Engine) Deserialize(pf ProjectFile) error {
	if pf.Version > ProjectVersion {
		return fmt.Errorf("project version %d is newer than supported version %d", pf.Version, ProjectVersion)
	}
	next := timeline.New()
	if err := next.Load(timeline.State{
		Clips:       pf.Clips,
		Duration:    pf.Duration,
		CurrentTime: pf.CurrentTime,
		Zoom:        zoomOrDefault(pf.Zoom),
	}); err != nil {
		return fmt.Errorf("load clips: %w", err)
	}
	if err := validateHistory(pf.History); err != nil {
		return err
	}

	e.clock.Stop()

	e.mu.Lock()
	previous := e.lib.List("")
	e.tl = next
	e.lib.Replace(pf.MediaLibrary)
	if pf.History != nil {
		e.hist.Restore(pf.History.Past, pf.History.Future)
	} else {
		e.hist.Clear()
	}
	if pf.Name != "" {
		e.name = pf.Name
	}
	e.revision++
	e.mu.Unlock()

	for _, a := range previous {
		e.comp.Invalidate(a.ID)
	}
	// Stop rewound the old timeline; keep the loaded playhead.
	e.clock.Seek(pf.CurrentTime)
	e.logger.Info().Str("project", pf.Name).Int("clips", len(pf.Clips)).Int("media", len(pf.MediaLibrary)).Msg("project loaded")
	return nil
}

func zoomOrDefault(z float64) float64 {
	if z == 0 {
		return 1
	}
	return z
}

func validateHistory(h *HistoryFile) error {
	if h == nil {
		return nil
	}
	for _, stack := range [][]history.Snapshot{h.Past, h.Future} {
		for _, snap := range stack {
			for _, c := range snap.Clips {
				if err := c.Validate(); err != nil {
					return fmt.Errorf("load history: %w", err)
				}
			}
		}
	}
	return nil
}

// Marshal encodes the project as indented JSON.
func (pf ProjectFile) Marshal() ([]byte, error) {
	return json.MarshalIndent(pf, "", "  ")
}

// ParseProject decodes a project file.
func ParseProject(data []byte) (ProjectFile, error) {
	var pf ProjectFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return ProjectFile{}, fmt.Errorf("parse project: %w", err)
	}
	return pf, nil
}

// SaveFile writes the project atomically to path.
func (e *Engine) SaveFile(path string) error {
	return WriteProjectFile(path, e.Serialize())
}

// LoadFile reads and applies a project file. A missing file returns an
// error wrapping os.ErrNotExist.
func (e *Engine) LoadFile(path string) error {
	pf, err := ReadProjectFile(path)
	if err != nil {
		return err
	}
	return e.Deserialize(pf)
}

// WriteProjectFile writes pf to a temporary file and renames it over path.
func WriteProjectFile(path string, pf ProjectFile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare project dir: %w", err)
	}
	data, err := pf.Marshal()
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write project: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace project: %w", err)
	}
	return nil
}

// ReadProjectFile loads a project file from disk.
func ReadProjectFile(path string) (ProjectFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ProjectFile{}, fmt.Errorf("project file %s: %w", path, err)
		}
		return ProjectFile{}, fmt.Errorf("read project: %w", err)
	}
	return ParseProject(data)
}
