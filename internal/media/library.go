package media

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"reelcut/internal/clip"
	"reelcut/internal/timeline"
)

// ErrDuplicate is returned when an asset with the same name and kind is
// already in the library.
var ErrDuplicate = errors.New("media already in library")

// Asset is an ingested media file.
type Asset struct {
	ID        string            `json:"id"`
	Kind      clip.Kind         `json:"type"`
	Name      string            `json:"name"`
	SourceURI string            `json:"src"`
	Width     int               `json:"width,omitempty"`
	Height    int               `json:"height,omitempty"`
	Meta      map[string]string `json:"meta,omitempty"`
	AddedAt   time.Time         `json:"addedAt"`
}

// Title returns the display title, preferring a tag title over the file name.
func (a Asset) Title() string {
	if t := strings.TrimSpace(a.Meta["title"]); t != "" {
		return t
	}
	return a.Name
}

// Library owns the media assets of a project. It is not safe for concurrent
// use.
type Library struct {
	assets []Asset
}

// NewLibrary returns an empty library.
func NewLibrary() *Library {
	return &Library{}
}

// Add stores an asset, assigning an id when missing. Assets sharing name and
// kind with an existing one are rejected with ErrDuplicate.
func (l *Library) Add(a Asset) (Asset, error) {
	switch a.Kind {
	case clip.KindImage, clip.KindVideo, clip.KindAudio:
	default:
		return Asset{}, fmt.Errorf("unsupported media kind %q", a.Kind)
	}
	if strings.TrimSpace(a.SourceURI) == "" {
		return Asset{}, fmt.Errorf("media %q has no source", a.Name)
	}
	for _, existing := range l.assets {
		if existing.Name == a.Name && existing.Kind == a.Kind {
			return existing, fmt.Errorf("%w: %s", ErrDuplicate, a.Name)
		}
	}
	if a.ID == "" {
		a.ID = clip.NewID()
	}
	if a.AddedAt.IsZero() {
		a.AddedAt = time.Now()
	}
	l.assets = append(l.assets, a)
	return a, nil
}

// Get returns the asset with the given id.
func (l *Library) Get(id string) (Asset, error) {
	for _, a := range l.assets {
		if a.ID == id {
			return a, nil
		}
	}
	return Asset{}, &timeline.NotFoundError{Kind: "media", ID: id}
}

// Has reports whether id is in the library.
func (l *Library) Has(id string) bool {
	_, err := l.Get(id)
	return err == nil
}

// Remove deletes an asset. Clips referencing it become dangling.
func (l *Library) Remove(id string) (Asset, error) {
	for i, a := range l.assets {
		if a.ID == id {
			l.assets = append(l.assets[:i:i], l.assets[i+1:]...)
			return a, nil
		}
	}
	return Asset{}, &timeline.NotFoundError{Kind: "media", ID: id}
}

// List returns the assets, optionally filtered by kind, in insertion order.
func (l *Library) List(kind clip.Kind) []Asset {
	out := make([]Asset, 0, len(l.assets))
	for _, a := range l.assets {
		if kind != "" && a.Kind != kind {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Len returns the number of assets.
func (l *Library) Len() int { return len(l.assets) }

// Replace swaps the library contents, used when loading a project.
func (l *Library) Replace(assets []Asset) {
	l.assets = append([]Asset(nil), assets...)
}

// Counts tallies assets per kind.
func (l *Library) Counts() map[clip.Kind]int {
	counts := make(map[clip.Kind]int)
	for _, a := range l.assets {
		counts[a.Kind]++
	}
	return counts
}

// Names returns the asset names sorted alphabetically.
func (l *Library) Names() []string {
	names := make([]string, len(l.assets))
	for i, a := range l.assets {
		names[i] = a.Name
	}
	sort.Strings(names)
	return names
}
