package playback

import (
	"sync"
	"time"
)

// Scheduler drives the clock's tick function. Stop must be safe to call from
// inside the tick function.
type Scheduler interface {
	Start(interval time.Duration, tick func())
	Stop()
}

// WallScheduler ticks on a time.Ticker.
type WallScheduler struct {
	mu   sync.Mutex
	stop chan struct{}
}

func (s *WallScheduler) Start(interval time.Duration, tick func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		close(s.stop)
	}
	stop := make(chan struct{})
	s.stop = stop

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				tick()
			}
		}
	}()
}

func (s *WallScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
}

// ManualScheduler lets a caller fire ticks synchronously.
type ManualScheduler struct {
	mu      sync.Mutex
	tick    func()
	running bool
	starts  int
}

func (s *ManualScheduler) Start(_ time.Duration, tick func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tick = tick
	s.running = true
	s.starts++
}

func (s *ManualScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
}

// Fire runs one tick if the scheduler is running and reports whether it did.
func (s *ManualScheduler) Fire() bool {
	s.mu.Lock()
	tick, running := s.tick, s.running
	s.mu.Unlock()
	if !running || tick == nil {
		return false
	}
	tick()
	return true
}

// Running reports whether ticks are currently scheduled.
func (s *ManualScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
