package tui

import (
	"fmt"
	"io"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// StatusWriter redraws one spinner line in place while a setup phase such as
// raster preloading runs ahead of playback or export.
type StatusWriter struct {
	w     io.Writer
	every time.Duration

	mu      sync.Mutex
	phase   string
	started time.Time

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewStatusWriter starts redrawing the line on w every 100ms.
func NewStatusWriter(w io.Writer) *StatusWriter {
	sw := &StatusWriter{
		w:       w,
		every:   100 * time.Millisecond,
		started: time.Now(),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go sw.run()
	return sw
}

// Update switches to a new phase and restarts its elapsed timer.
func (sw *StatusWriter) Update(phase string) {
	sw.mu.Lock()
	sw.phase = phase
	sw.started = time.Now()
	sw.mu.Unlock()
}

// Stop halts redrawing and clears the line. It is safe to call twice.
func (sw *StatusWriter) Stop() {
	sw.once.Do(func() {
		close(sw.stop)
		<-sw.done
		fmt.Fprint(sw.w, "\r\033[K")
	})
}

func (sw *StatusWriter) run() {
	defer close(sw.done)
	ticker := time.NewTicker(sw.every)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		select {
		case <-sw.stop:
			return
		case <-ticker.C:
		}
		fmt.Fprint(sw.w, sw.line(frame))
	}
}

func (sw *StatusWriter) line(frame int) string {
	sw.mu.Lock()
	phase, started := sw.phase, sw.started
	sw.mu.Unlock()
	return fmt.Sprintf("\r\033[K%s %s (%s)", spinnerFrames[frame%len(spinnerFrames)], phase, formatElapsed(time.Since(started)))
}

// formatElapsed renders a phase duration compactly: 850ms, 4.2s, 37s, 2m05s.
func formatElapsed(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < 10*time.Second:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}
