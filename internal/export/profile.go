package export

import (
	"fmt"
	"sort"
	"strings"
)

const (
	// DefaultFPS is the export frame rate.
	DefaultFPS = 25
	// DefaultBitrateKbps is the target video bitrate.
	DefaultBitrateKbps = 8000
	// DefaultResolution names the resolution used when a job leaves it empty.
	DefaultResolution = "1080p"
)

// Resolution is an export surface size.
type Resolution struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

var resolutions = map[string]Resolution{
	"720p":  {Name: "720p", Width: 1280, Height: 720},
	"1080p": {Name: "1080p", Width: 1920, Height: 1080},
	"4k":    {Name: "4k", Width: 3840, Height: 2160},
}

// LookupResolution resolves a resolution name, case-insensitively.
func LookupResolution(name string) (Resolution, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = DefaultResolution
	}
	if r, ok := resolutions[name]; ok {
		return r, nil
	}
	return Resolution{}, fmt.Errorf("unknown resolution %q (want one of %s)", name, strings.Join(ResolutionNames(), ", "))
}

// ResolutionNames lists the known resolutions from smallest to largest.
func ResolutionNames() []string {
	list := make([]Resolution, 0, len(resolutions))
	for _, r := range resolutions {
		list = append(list, r)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Width < list[j].Width })
	names := make([]string, len(list))
	for i, r := range list {
		names[i] = r.Name
	}
	return names
}

// Profile is one encoding configuration the pipeline may try.
type Profile struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Codec    string `json:"codec"`
	// Ext is appended to the output base path. Empty means the sink writes a
	// directory.
	Ext string `json:"ext"`
}

// Frames reports whether the profile writes an image sequence instead of an
// encoded stream.
func (p Profile) Frames() bool { return p.Codec == "png" }

var profiles = []Profile{
	{Name: "webm-vp9", MimeType: "video/webm;codecs=vp9", Codec: "libvpx-vp9", Ext: ".webm"},
	{Name: "mp4-h264", MimeType: "video/mp4", Codec: "libx264", Ext: ".mp4"},
	{Name: "png-sequence", MimeType: "image/png", Codec: "png"},
}

// DefaultProfiles is the fallback order used when a job names none.
var DefaultProfiles = []string{"webm-vp9", "mp4-h264"}

// LookupProfile resolves a profile by name.
func LookupProfile(name string) (Profile, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, p := range profiles {
		if p.Name == name {
			return p, nil
		}
	}
	return Profile{}, fmt.Errorf("unknown export profile %q (want one of %s)", name, strings.Join(ProfileNames(), ", "))
}

// ProfileNames lists every known profile in preference order.
func ProfileNames() []string {
	names := make([]string, len(profiles))
	for i, p := range profiles {
		names[i] = p.Name
	}
	return names
}

func resolveProfiles(names []string) ([]Profile, error) {
	if len(names) == 0 {
		names = DefaultProfiles
	}
	out := make([]Profile, 0, len(names))
	seen := map[string]bool{}
	for _, name := range names {
		p, err := LookupProfile(name)
		if err != nil {
			return nil, err
		}
		if seen[p.Name] {
			continue
		}
		seen[p.Name] = true
		out = append(out, p)
	}
	return out, nil
}
