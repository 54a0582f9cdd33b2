package tui

import (
	"fmt"
	"io"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// sendGap is the minimum spacing between messages from the work function so
// the renderer can draw between bursts of row updates.
const sendGap = 5 * time.Millisecond

// RunWithWork runs model until work returns or the user quits. work runs on
// its own goroutine and reports through send. A panic in work is shown as an
// error instead of leaving the terminal in raw mode.
func RunWithWork(out io.Writer, model ProgressModel, work func(send func(tea.Msg))) error {
	p := tea.NewProgram(model, tea.WithOutput(out))

	go func() {
		// Give the program time to draw its first frame.
		time.Sleep(50 * time.Millisecond)
		defer func() {
			if r := recover(); r != nil {
				p.Send(ErrorMsg{Err: fmt.Errorf("export worker panicked: %v", r)})
			}
		}()
		work(pacedSender(p.Send))
		p.Send(WorkDoneMsg{})
	}()

	final, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(ProgressModel); ok {
		return m.Err()
	}
	return nil
}

// pacedSender wraps send so consecutive messages are at least sendGap apart.
func pacedSender(send func(tea.Msg)) func(tea.Msg) {
	var (
		mu   sync.Mutex
		last time.Time
	)
	return func(msg tea.Msg) {
		mu.Lock()
		defer mu.Unlock()
		if wait := sendGap - time.Since(last); wait > 0 {
			time.Sleep(wait)
		}
		send(msg)
		last = time.Now()
	}
}
