// Package executil provides shell execution utilities.
package executil

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

const (
	maxStderrLen = 500
	maxOutputLen = 64 * 1024
)

// limitedWriter caps writes to a bytes.Buffer at a maximum byte count.
// Bytes beyond the limit are silently discarded.
type limitedWriter struct {
	buf *bytes.Buffer
	n   int64
	max int64
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	if w.n >= w.max {
		return len(p), nil
	}
	remaining := w.max - w.n
	origLen := len(p)
	if int64(origLen) > remaining {
		p = p[:remaining]
	}
	n, err := w.buf.Write(p)
	w.n += int64(n)
	if err != nil {
		return n, err
	}
	return origLen, nil
}

// Executor runs shell commands.
type Executor interface {
	// RunSh runs cmd with sh -c in dir (empty means inherit cwd), waits for
	// it, and returns its stdout.
	RunSh(ctx context.Context, dir, cmd string) ([]byte, error)
	// StartSh starts cmd with sh -c in dir and returns without waiting.
	StartSh(dir, cmd string) error
}

// RealExecutor calls actual shell commands.
type RealExecutor struct{}

var _ Executor = (*RealExecutor)(nil)

// RunSh executes a shell command and returns stdout, capped at 64KiB.
// On failure, stderr is returned as the error message, capped at 500 bytes to
// prevent large or ANSI-polluted output from corrupting logs or messages.
// The original *exec.ExitError is preserved via wrapping so callers can inspect
// exit codes with errors.As.
func (RealExecutor) RunSh(ctx context.Context, dir, cmd string) ([]byte, error) {
	c := exec.CommandContext(ctx, "sh", "-c", cmd)
	if dir != "" {
		c.Dir = dir
	}
	var stdout, stderr bytes.Buffer
	c.Stdout = &limitedWriter{buf: &stdout, max: maxOutputLen}
	c.Stderr = &limitedWriter{buf: &stderr, max: maxStderrLen}
	if err := c.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return stdout.Bytes(), fmt.Errorf("%s: %w", msg, err)
		}
		return stdout.Bytes(), err
	}
	return stdout.Bytes(), nil
}

// StartSh starts a shell command detached from any context. The process is
// reaped in the background.
func (RealExecutor) StartSh(dir, cmd string) error {
	c := exec.Command("sh", "-c", cmd)
	if dir != "" {
		c.Dir = dir
	}
	if err := c.Start(); err != nil {
		return fmt.Errorf("start %q: %w", cmd, err)
	}
	go func() { _ = c.Wait() }()
	return nil
}
