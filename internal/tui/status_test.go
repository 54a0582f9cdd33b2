package tui

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{850 * time.Millisecond, "850ms"},
		{4200 * time.Millisecond, "4.2s"},
		{37 * time.Second, "37s"},
		{125 * time.Second, "2m05s"},
	}
	for _, tt := range tests {
		if got := formatElapsed(tt.d); got != tt.want {
			t.Errorf("formatElapsed(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestStatusWriterDrawsPhaseAndClears(t *testing.T) {
	var out lockedBuffer
	sw := NewStatusWriter(&out)
	sw.Update("Decoding images")

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(out.String(), "Decoding images") {
		if time.Now().After(deadline) {
			t.Fatal("status line never drawn")
		}
		time.Sleep(20 * time.Millisecond)
	}

	sw.Stop()
	sw.Stop()
	if !strings.HasSuffix(out.String(), "\r\033[K") {
		t.Errorf("line not cleared on stop: %q", out.String())
	}
}
