package config

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationResult captures a single validation finding.
type ValidationResult struct {
	Level   string `json:"level"` // "error" or "warning"
	Message string `json:"message"`
}

// Validate checks the config against the resolutions and encoder profiles the
// export pipeline knows about (pass export.ResolutionNames() and
// export.ProfileNames()).
func (c Config) Validate(knownResolutions, knownProfiles []string) []ValidationResult {
	var results []ValidationResult
	results = append(results, c.validatePreview()...)
	results = append(results, c.validateExport(knownResolutions, knownProfiles)...)
	results = append(results, c.validateEditor()...)
	results = append(results, c.validateAudio()...)
	return results
}

// HasErrors reports whether any result is an error.
func HasErrors(results []ValidationResult) bool {
	for _, r := range results {
		if r.Level == "error" {
			return true
		}
	}
	return false
}

func (c Config) validatePreview() []ValidationResult {
	var results []ValidationResult
	if c.Preview.Width%2 != 0 || c.Preview.Height%2 != 0 {
		results = append(results, ValidationResult{
			Level:   "warning",
			Message: fmt.Sprintf("preview size %dx%d has odd dimensions", c.Preview.Width, c.Preview.Height),
		})
	}
	if c.Preview.TickMS > 100 {
		results = append(results, ValidationResult{
			Level:   "warning",
			Message: fmt.Sprintf("preview.tick_ms %d will make playback choppy", c.Preview.TickMS),
		})
	}
	return results
}

func (c Config) validateExport(knownResolutions, knownProfiles []string) []ValidationResult {
	var results []ValidationResult
	if len(knownResolutions) > 0 && !contains(knownResolutions, c.Export.Resolution) {
		results = append(results, ValidationResult{
			Level:   "error",
			Message: fmt.Sprintf("export.resolution %q is not one of %s", c.Export.Resolution, joinSorted(knownResolutions)),
		})
	}
	if c.Export.FPS > 120 {
		results = append(results, ValidationResult{
			Level:   "error",
			Message: fmt.Sprintf("export.fps %d exceeds 120", c.Export.FPS),
		})
	}
	seen := map[string]bool{}
	for _, p := range c.Export.Profiles {
		if len(knownProfiles) > 0 && !contains(knownProfiles, p) {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("export profile %q is unknown (available: %s)", p, joinSorted(knownProfiles)),
			})
		}
		if seen[p] {
			results = append(results, ValidationResult{
				Level:   "warning",
				Message: fmt.Sprintf("export profile %q listed more than once", p),
			})
		}
		seen[p] = true
	}
	if len(c.Export.Profiles) == 1 {
		results = append(results, ValidationResult{
			Level:   "warning",
			Message: "only one export profile configured; exports fail outright if it is unsupported",
		})
	}
	return results
}

func (c Config) validateEditor() []ValidationResult {
	var results []ValidationResult
	if c.Editor.HistoryLimit > 500 {
		results = append(results, ValidationResult{
			Level:   "warning",
			Message: fmt.Sprintf("editor.history_limit %d keeps many full snapshots in memory", c.Editor.HistoryLimit),
		})
	}
	return results
}

func (c Config) validateAudio() []ValidationResult {
	var results []ValidationResult
	if c.Audio.Volume < 0 || c.Audio.Volume > 1 {
		results = append(results, ValidationResult{
			Level:   "error",
			Message: fmt.Sprintf("audio.volume %.2f must be between 0 and 1", c.Audio.Volume),
		})
	}
	return results
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}

func joinSorted(list []string) string {
	cp := append([]string(nil), list...)
	sort.Strings(cp)
	return strings.Join(cp, ", ")
}
