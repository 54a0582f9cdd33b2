package tui

import (
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/mattn/go-isatty"
)

// OutputMode selects how a command reports progress.
type OutputMode int

const (
	// ModeTUI draws a live bubbletea table.
	ModeTUI OutputMode = iota
	// ModePlain prints lines as work completes.
	ModePlain
	// ModeJSON prints one JSON document at the end.
	ModeJSON
)

func (m OutputMode) String() string {
	switch m {
	case ModeTUI:
		return "tui"
	case ModePlain:
		return "plain"
	case ModeJSON:
		return "json"
	}
	return "unknown"
}

// DetectMode picks ModeJSON when asked for, otherwise ModeTUI only when out
// is an interactive terminal that can redraw lines.
func DetectMode(out io.Writer, noProgress, jsonOutput bool) OutputMode {
	switch {
	case jsonOutput:
		return ModeJSON
	case noProgress, !Interactive(out):
		return ModePlain
	}
	return ModeTUI
}

// Interactive reports whether out is a terminal with cursor control.
func Interactive(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	term := os.Getenv("TERM")
	return term != "" && !strings.EqualFold(term, "dumb")
}
