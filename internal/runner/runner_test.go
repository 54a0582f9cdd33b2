package runner

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"strings"
	"testing"
)

func requireShell(t *testing.T) string {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	return sh
}

func TestCmdRunnerRunCapturesOutput(t *testing.T) {
	sh := requireShell(t)

	var tee bytes.Buffer
	res, err := CmdRunner{}.Run(context.Background(), sh, []string{"-c", "echo out; echo err >&2; echo $REELCUT_TEST"}, Options{
		Env:    []string{"REELCUT_TEST=from-env"},
		Stdout: &tee,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := string(res.Stdout); got != "out\nfrom-env\n" {
		t.Errorf("stdout = %q", got)
	}
	if got := strings.TrimSpace(string(res.Stderr)); got != "err" {
		t.Errorf("stderr = %q", got)
	}
	if tee.String() != string(res.Stdout) {
		t.Errorf("tee = %q, want a copy of stdout", tee.String())
	}
}

func TestCmdRunnerStartPipesStdin(t *testing.T) {
	sh := requireShell(t)

	var out bytes.Buffer
	p, err := CmdRunner{}.Start(context.Background(), sh, []string{"-c", "wc -c; echo done >&2"}, Options{Stdout: &out})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.WriteString(p.Stdin(), "frame-bytes"); err != nil {
		t.Fatal(err)
	}
	if err := p.Stdin().Close(); err != nil {
		t.Fatal(err)
	}
	if err := p.Wait(); err != nil {
		t.Fatalf("wait: %v (stderr %s)", err, p.Stderr())
	}
	if got := strings.TrimSpace(out.String()); got != "11" {
		t.Errorf("child read %q bytes, want 11", got)
	}
	if got := strings.TrimSpace(string(p.Stderr())); got != "done" {
		t.Errorf("stderr = %q", got)
	}
	if err := p.Kill(); err != nil {
		t.Errorf("kill after exit = %v, want nil", err)
	}
}
