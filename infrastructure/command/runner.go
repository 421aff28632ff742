package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// DefaultGracePeriod is how long a cancelled process gets to exit after SIGINT
const DefaultGracePeriod = 5 * time.Second

// maxStderr bounds the diagnostic output kept from a failed process
const maxStderr = 8 * 1024

// Runner defines the interface for running external commands.
// This allows mocking exec.Command in tests.
type Runner interface {
	// Run executes a command and discards stdout
	Run(ctx context.Context, name string, args ...string) error

	// Output executes a command and returns its stdout
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// Error describes a failed external process
type Error struct {
	Name   string
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Name, e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StderrOf returns the captured stderr of a failed command, if any
func StderrOf(err error) string {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Stderr
	}
	return ""
}

// IsNotFound reports whether the executable could not be located
func IsNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist)
}

// ExecRunner is the production implementation using os/exec. Cancelling the
// context interrupts the process and kills it after GracePeriod.
type ExecRunner struct {
	GracePeriod time.Duration
}

// NewExecRunner creates a runner with the default grace period
func NewExecRunner() *ExecRunner {
	return &ExecRunner{GracePeriod: DefaultGracePeriod}
}

// Run executes a command and returns any error
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	_, err := r.exec(ctx, false, name, args...)
	return err
}

// Output executes a command and returns its output
func (r *ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return r.exec(ctx, true, name, args...)
}

func (r *ExecRunner) exec(ctx context.Context, capture bool, name string, args ...string) ([]byte, error) {
	var stdout bytes.Buffer
	stderr := &tailBuffer{limit: maxStderr}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = stderr
	if capture {
		cmd.Stdout = &stdout
	}
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = r.GracePeriod
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = DefaultGracePeriod
	}

	err := cmd.Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return nil, &Error{Name: name, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return stdout.Bytes(), nil
}

// tailBuffer keeps the last limit bytes written to it
type tailBuffer struct {
	buf   []byte
	limit int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	if len(b.buf) > b.limit {
		b.buf = b.buf[len(b.buf)-b.limit:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	return string(b.buf)
}

var _ Runner = (*ExecRunner)(nil)
