package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

const marqueeGap = "   "

// NonEmptyOrDash returns "-" for empty/whitespace strings.
func NonEmptyOrDash(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return value
}

// TruncateWithEllipsis shortens value to max display cells, ending in "..."
// when there is room for it. Wide runes such as CJK count as two cells.
func TruncateWithEllipsis(value string, max int) string {
	if max <= 0 {
		return ""
	}
	value = strings.TrimSpace(value)
	if runewidth.StringWidth(value) <= max {
		return value
	}
	if max <= 3 {
		return runewidth.Truncate(value, max, "")
	}
	return runewidth.Truncate(value, max, "...")
}

// pad right-fills s with spaces to width display cells.
func pad(s string, width int) string {
	return runewidth.FillRight(s, width)
}

// marqueeText shows a width-rune window sliding left one rune per tick over
// text that does not fit, with a gap before it repeats.
func marqueeText(text string, width, tick int) string {
	text = strings.TrimSpace(text)
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(text) <= width {
		return text
	}
	cycle := []rune(text + marqueeGap)
	offset := tick % len(cycle)
	window := make([]rune, 0, width)
	for i := 0; i < width; i++ {
		window = append(window, cycle[(offset+i)%len(cycle)])
	}
	return string(window)
}
