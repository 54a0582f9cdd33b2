package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"reelcut/internal/runner"
)

// ErrUnsupported is returned by Sink.Start when the sink cannot encode the
// requested profile on this machine.
var ErrUnsupported = errors.New("encoder unsupported")

// SinkConfig describes the stream a sink is about to receive.
type SinkConfig struct {
	Width       int
	Height      int
	FPS         int
	BitrateKbps int
	Profile     Profile
	// Path is the output file, or directory for image sequences.
	Path string
}

// Sink consumes rendered frames and finalizes them into an artifact.
type Sink interface {
	Start(ctx context.Context, cfg SinkConfig) error
	WriteFrame(frame *image.RGBA) error
	// Finish flushes the encoder and returns the artifact path.
	Finish() (string, error)
	// Abort stops encoding and removes partial output.
	Abort()
}

// SinkFactory returns a fresh sink for a profile.
type SinkFactory func(p Profile) Sink

// NewSinkFactory routes image-sequence profiles to PNGSequenceSink and
// everything else to ffmpeg.
func NewSinkFactory(r runner.Runner, ffmpeg string) SinkFactory {
	prober := NewProber(r, ffmpeg)
	return func(p Profile) Sink {
		if p.Frames() {
			return &PNGSequenceSink{}
		}
		return &FFmpegSink{Runner: r, FFmpeg: ffmpeg, Prober: prober}
	}
}

// Prober checks and remembers which encoders ffmpeg can drive.
type Prober struct {
	runner runner.Runner
	ffmpeg string

	mu      sync.Mutex
	results map[string]error
}

// NewProber builds a prober for the given ffmpeg binary.
func NewProber(r runner.Runner, ffmpeg string) *Prober {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	return &Prober{runner: r, ffmpeg: ffmpeg, results: make(map[string]error)}
}

// Probe encodes a single black frame with codec. A nil error means the
// encoder works.
func (p *Prober) Probe(ctx context.Context, codec string) error {
	p.mu.Lock()
	if err, ok := p.results[codec]; ok {
		p.mu.Unlock()
		return err
	}
	p.mu.Unlock()

	args := []string{
		"-hide_banner",
		"-f", "lavfi",
		"-i", "color=black:s=64x64:d=1:r=1",
		"-c:v", codec,
		"-frames:v", "1",
		"-f", "null",
		"-",
	}
	res, err := p.runner.Run(ctx, p.ffmpeg, args, runner.Options{})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err = fmt.Errorf("%w: %s: %s", ErrUnsupported, codec, lastLine(res.Stderr, err))
	}

	p.mu.Lock()
	p.results[codec] = err
	p.mu.Unlock()
	return err
}

// FFmpegSink pipes raw RGBA frames into an ffmpeg child process.
type FFmpegSink struct {
	Runner runner.Runner
	FFmpeg string
	Prober *Prober

	cfg    SinkConfig
	proc   runner.Process
	stdin  io.WriteCloser
	cancel context.CancelFunc
}

func (s *FFmpegSink) Start(ctx context.Context, cfg SinkConfig) error {
	if s.Prober != nil {
		if err := s.Prober.Probe(ctx, cfg.Profile.Codec); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return fmt.Errorf("prepare export dir: %w", err)
	}

	bin := s.FFmpeg
	if bin == "" {
		bin = "ffmpeg"
	}
	procCtx, cancel := context.WithCancel(ctx)
	proc, err := s.Runner.Start(procCtx, bin, ffmpegArgs(cfg), runner.Options{})
	if err != nil {
		cancel()
		return fmt.Errorf("start encoder: %w", err)
	}
	s.cfg = cfg
	s.proc = proc
	s.stdin = proc.Stdin()
	s.cancel = cancel
	return nil
}

func ffmpegArgs(cfg SinkConfig) []string {
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"-r", strconv.Itoa(cfg.FPS),
		"-i", "-",
		"-an",
		"-c:v", cfg.Profile.Codec,
		"-b:v", fmt.Sprintf("%dk", cfg.BitrateKbps),
		"-pix_fmt", "yuv420p",
	}
	switch cfg.Profile.Codec {
	case "libvpx-vp9":
		args = append(args, "-row-mt", "1", "-deadline", "good")
	case "libx264":
		args = append(args, "-preset", "fast", "-movflags", "+faststart")
	}
	return append(args, cfg.Path)
}

func (s *FFmpegSink) WriteFrame(frame *image.RGBA) error {
	if s.proc == nil {
		return errors.New("encoder not started")
	}
	b := frame.Bounds()
	row := b.Dx() * 4
	if frame.Stride == row {
		if _, err := s.stdin.Write(frame.Pix[:row*b.Dy()]); err != nil {
			return s.pipeError(err)
		}
		return nil
	}
	for y := 0; y < b.Dy(); y++ {
		off := y * frame.Stride
		if _, err := s.stdin.Write(frame.Pix[off : off+row]); err != nil {
			return s.pipeError(err)
		}
	}
	return nil
}

func (s *FFmpegSink) pipeError(err error) error {
	if stderr := s.proc.Stderr(); len(stderr) > 0 {
		return fmt.Errorf("write frame: %w: %s", err, lastLine(stderr, err))
	}
	return fmt.Errorf("write frame: %w", err)
}

func (s *FFmpegSink) Finish() (string, error) {
	if s.proc == nil {
		return "", errors.New("encoder not started")
	}
	defer s.cancel()
	if err := s.stdin.Close(); err != nil {
		return "", fmt.Errorf("close encoder input: %w", err)
	}
	if err := s.proc.Wait(); err != nil {
		return "", fmt.Errorf("ffmpeg failed: %s", lastLine(s.proc.Stderr(), err))
	}
	s.proc = nil
	return s.cfg.Path, nil
}

func (s *FFmpegSink) Abort() {
	if s.proc == nil {
		return
	}
	_ = s.stdin.Close()
	_ = s.proc.Kill()
	_ = s.proc.Wait()
	s.cancel()
	s.proc = nil
	_ = os.Remove(s.cfg.Path)
}

// PNGSequenceSink writes each frame as a numbered PNG into a directory.
type PNGSequenceSink struct {
	dir     string
	next    int
	encoder png.Encoder
}

func (s *PNGSequenceSink) Start(_ context.Context, cfg SinkConfig) error {
	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return fmt.Errorf("prepare frame dir: %w", err)
	}
	s.dir = cfg.Path
	s.next = 0
	s.encoder = png.Encoder{CompressionLevel: png.BestSpeed}
	return nil
}

func (s *PNGSequenceSink) WriteFrame(frame *image.RGBA) error {
	if s.dir == "" {
		return errors.New("frame sink not started")
	}
	path := filepath.Join(s.dir, fmt.Sprintf("frame_%05d.png", s.next))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create frame: %w", err)
	}
	if err := s.encoder.Encode(f, frame); err != nil {
		f.Close()
		return fmt.Errorf("encode frame %d: %w", s.next, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close frame %d: %w", s.next, err)
	}
	s.next++
	return nil
}

func (s *PNGSequenceSink) Finish() (string, error) {
	if s.dir == "" {
		return "", errors.New("frame sink not started")
	}
	return s.dir, nil
}

func (s *PNGSequenceSink) Abort() {
	if s.dir == "" {
		return
	}
	_ = os.RemoveAll(s.dir)
	s.dir = ""
}

func lastLine(stderr []byte, fallback error) string {
	lines := strings.Split(strings.TrimSpace(string(stderr)), "\n")
	if last := strings.TrimSpace(lines[len(lines)-1]); last != "" {
		return last
	}
	return fallback.Error()
}
