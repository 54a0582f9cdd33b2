package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
)

type Options struct {
	Dir    string
	Env    []string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

type Result struct {
	Stdout []byte
	Stderr []byte
}

// Runner executes external tools such as ffmpeg and ffplay.
type Runner interface {
	Run(ctx context.Context, command string, args []string, opts Options) (Result, error)
	// Start launches a long-lived process. Stdin, when requested, is exposed
	// through the returned Process.
	Start(ctx context.Context, command string, args []string, opts Options) (Process, error)
}

// Process is a running child started by Runner.Start.
type Process interface {
	Stdin() io.WriteCloser
	Wait() error
	Kill() error
	Stderr() []byte
}

type CmdRunner struct{}

func (CmdRunner) Run(ctx context.Context, command string, args []string, opts Options) (Result, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	applyOptions(cmd, opts)
	if opts.Stdin != nil {
		cmd.Stdin = opts.Stdin
	}

	var stdoutBuf, stderrBuf bytes.Buffer

	stdoutWriter := io.Writer(&stdoutBuf)
	if opts.Stdout != nil {
		stdoutWriter = io.MultiWriter(&stdoutBuf, opts.Stdout)
	}
	stderrWriter := io.Writer(&stderrBuf)
	if opts.Stderr != nil {
		stderrWriter = io.MultiWriter(&stderrBuf, opts.Stderr)
	}

	cmd.Stdout = stdoutWriter
	cmd.Stderr = stderrWriter

	err := cmd.Run()
	return Result{Stdout: stdoutBuf.Bytes(), Stderr: stderrBuf.Bytes()}, err
}

func (CmdRunner) Start(ctx context.Context, command string, args []string, opts Options) (Process, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	applyOptions(cmd, opts)

	p := &cmdProcess{cmd: cmd}
	if opts.Stdin != nil {
		cmd.Stdin = opts.Stdin
	} else {
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return nil, fmt.Errorf("open stdin: %w", err)
		}
		p.stdin = stdin
	}
	cmd.Stdout = opts.Stdout
	if opts.Stderr != nil {
		cmd.Stderr = io.MultiWriter(&p.stderr, opts.Stderr)
	} else {
		cmd.Stderr = &p.stderr
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", command, err)
	}
	return p, nil
}

func applyOptions(cmd *exec.Cmd, opts Options) {
	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}
}

type cmdProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr lockedBuffer

	waitOnce sync.Once
	waitErr  error
}

func (p *cmdProcess) Stdin() io.WriteCloser {
	if p.stdin == nil {
		return nopWriteCloser{}
	}
	return p.stdin
}

func (p *cmdProcess) Wait() error {
	p.waitOnce.Do(func() {
		p.waitErr = p.cmd.Wait()
	})
	return p.waitErr
}

func (p *cmdProcess) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	err := p.cmd.Process.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

func (p *cmdProcess) Stderr() []byte {
	return p.stderr.Bytes()
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

type nopWriteCloser struct{}

func (nopWriteCloser) Write(p []byte) (int, error) { return len(p), nil }
func (nopWriteCloser) Close() error                { return nil }

var _ Runner = CmdRunner{}
