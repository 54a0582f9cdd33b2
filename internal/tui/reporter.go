package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"reelcut/internal/export"
)

// reportStep is the minimum fraction change between two messages.
const reportStep = 0.01

// ExportReporter adapts bubbletea message sending to an export progress
// callback. Updates are throttled to whole percent steps; the final frame
// is always sent.
func ExportReporter(send func(tea.Msg), key string) func(export.Progress) {
	var (
		mu   sync.Mutex
		last = -1.0
	)
	return func(p export.Progress) {
		mu.Lock()
		final := p.Frames > 0 && p.Frame >= p.Frames
		if !final && last >= 0 && p.Fraction-last < reportStep {
			mu.Unlock()
			return
		}
		last = p.Fraction
		mu.Unlock()
		send(FrameProgressMsg{
			Key:      key,
			Frame:    p.Frame,
			Frames:   p.Frames,
			Fraction: p.Fraction,
		})
	}
}
