package playback

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"reelcut/internal/runner"
)

// DefaultVolume is the preview volume before the user changes it.
const DefaultVolume = 0.7

var (
	// ErrAudioLocked is advisory: audio cannot start before the first user
	// interaction.
	ErrAudioLocked = errors.New("audio locked until user interaction")
	// ErrInvalidSource is returned for an empty audio URI.
	ErrInvalidSource = errors.New("invalid audio source")
)

// AudioService plays a single audio source.
type AudioService interface {
	Play(ctx context.Context, uri string) error
	Pause()
	SetVolume(v float64)
}

// AudioManager enforces a single active source and the interaction gate.
type AudioManager struct {
	svc    AudioService
	logger zerolog.Logger

	mu       sync.Mutex
	unlocked bool
	current  string
	playing  bool
	volume   float64
}

// NewAudioManager wraps svc.
func NewAudioManager(svc AudioService, logger zerolog.Logger) *AudioManager {
	m := &AudioManager{svc: svc, logger: logger, volume: DefaultVolume}
	svc.SetVolume(DefaultVolume)
	return m
}

// NotifyInteraction opens the audio gate. Once open it stays open.
func (m *AudioManager) NotifyInteraction(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.unlocked {
		m.logger.Debug().Str("event", kind).Msg("audio unlocked")
	}
	m.unlocked = true
}

// Unlocked reports whether the gate is open.
func (m *AudioManager) Unlocked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unlocked
}

// Play starts uri, stopping any other active source first.
func (m *AudioManager) Play(ctx context.Context, uri string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playLocked(ctx, uri)
}

func (m *AudioManager) playLocked(ctx context.Context, uri string) error {
	if strings.TrimSpace(uri) == "" {
		return ErrInvalidSource
	}
	if !m.unlocked {
		return ErrAudioLocked
	}
	m.stopLocked()
	if err := m.svc.Play(ctx, uri); err != nil {
		return fmt.Errorf("play audio: %w", err)
	}
	m.current = uri
	m.playing = true
	return nil
}

// Toggle pauses uri when it is the source already playing, otherwise starts
// it. It reports whether audio is playing afterwards.
func (m *AudioManager) Toggle(ctx context.Context, uri string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.playing && m.current == uri {
		m.stopLocked()
		return false, nil
	}
	if err := m.playLocked(ctx, uri); err != nil {
		return false, err
	}
	return true, nil
}

// Stop halts the active source. Calling it with nothing playing is a no-op.
func (m *AudioManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *AudioManager) stopLocked() {
	if m.playing {
		m.svc.Pause()
	}
	m.playing = false
	m.current = ""
}

// SetVolume clamps v to [0, 1] and applies it.
func (m *AudioManager) SetVolume(v float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if math.IsNaN(v) {
		v = DefaultVolume
	}
	m.volume = math.Max(0, math.Min(1, v))
	m.svc.SetVolume(m.volume)
	return m.volume
}

// Volume returns the current volume.
func (m *AudioManager) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

// Current returns the active source and whether it is playing.
func (m *AudioManager) Current() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, m.playing
}

// FFplayService plays audio through an ffplay child process.
type FFplayService struct {
	Runner runner.Runner
	Binary string
	Logger zerolog.Logger

	mu     sync.Mutex
	proc   runner.Process
	cancel context.CancelFunc
	volume float64
}

func (s *FFplayService) Play(_ context.Context, uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.killLocked()

	bin := s.Binary
	if bin == "" {
		bin = "ffplay"
	}
	vol := s.volume
	args := []string{
		"-nodisp", "-autoexit",
		"-loglevel", "error",
		"-volume", strconv.Itoa(int(math.Round(vol * 100))),
		uri,
	}
	procCtx, cancel := context.WithCancel(context.Background())
	proc, err := s.Runner.Start(procCtx, bin, args, runner.Options{})
	if err != nil {
		cancel()
		return err
	}
	s.proc = proc
	s.cancel = cancel
	go func() {
		if err := proc.Wait(); err != nil && procCtx.Err() == nil {
			s.Logger.Debug().Err(err).Str("uri", uri).Msg("ffplay exited")
		}
	}()
	return nil
}

func (s *FFplayService) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.killLocked()
}

func (s *FFplayService) SetVolume(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = v
}

func (s *FFplayService) killLocked() {
	if s.proc == nil {
		return
	}
	s.cancel()
	_ = s.proc.Kill()
	s.proc = nil
	s.cancel = nil
}

// NopService accepts every call and plays nothing.
type NopService struct{}

func (NopService) Play(context.Context, string) error { return nil }
func (NopService) Pause()                             {}
func (NopService) SetVolume(float64)                  {}
