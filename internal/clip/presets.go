package clip

import (
	"fmt"
	"sort"
	"strings"
)

// TextPreset is a named starting point for a text clip.
type TextPreset struct {
	Name  string
	Style TextStyle
}

var textPresets = map[string]TextStyle{
	"title":    {Text: "Main Title", FontSize: 72, Color: "#ffffff", FontFamily: "Inter", PositionY: YPercent(30)},
	"subtitle": {Text: "Subtitle", FontSize: 48, Color: "#ffffff", FontFamily: "Inter", PositionY: YPercent(50)},
	"caption":  {Text: "Caption text", FontSize: 32, Color: "#ffffff", FontFamily: "Inter", PositionY: YPercent(80)},
	"quote":    {Text: "\"Inspiring quote\"", FontSize: 56, Color: "#ffd700", FontFamily: "Inter", PositionY: YPercent(50)},
}

// Preset returns the text style registered under name.
func Preset(name string) (TextStyle, error) {
	style, ok := textPresets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return TextStyle{}, fmt.Errorf("unknown text preset %q (available: %s)", name, strings.Join(PresetNames(), ", "))
	}
	return *style.clone(), nil
}

// PresetNames lists the registered presets alphabetically.
func PresetNames() []string {
	names := make([]string, 0, len(textPresets))
	for name := range textPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
