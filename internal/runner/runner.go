// Package runner executes child processes for the compile, test, and
// run commands and reports how they ended.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// Mode selects where a child's output goes.
type Mode int

const (
	// Passthrough wires the child to the invoking terminal so its
	// output streams live. The child shares the foreground process
	// group, so an interrupt reaches it without any forwarding here.
	Passthrough Mode = iota

	// Captured buffers combined stdout and stderr for callers that
	// have no terminal of their own.
	Captured
)

// Spec describes one child process invocation.
type Spec struct {
	Argv    []string
	Dir     string
	Mode    Mode
	Timeout time.Duration // zero disables the deadline
}

// Outcome reports how a child process ended. A non-zero ExitCode is
// data for the caller to interpret, not an error.
type Outcome struct {
	ExitCode int
	Output   []byte // Captured mode only
	Duration time.Duration
}

var (
	// ErrNotFound reports that the command's executable is not on PATH.
	ErrNotFound = errors.New("runner: executable not found")

	// ErrTimeout reports that the child outlived its deadline and was killed.
	ErrTimeout = errors.New("runner: child process timed out")
)

// Run launches the child described by spec and blocks until it
// terminates. The child inherits this process's environment.
func Run(ctx context.Context, spec Spec) (Outcome, error) {
	if len(spec.Argv) == 0 {
		return Outcome{}, errors.New("runner: empty command")
	}

	path, err := exec.LookPath(spec.Argv[0])
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %q", ErrNotFound, spec.Argv[0])
	}

	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, path, spec.Argv[1:]...)
	cmd.Dir = spec.Dir

	var buf bytes.Buffer
	switch spec.Mode {
	case Captured:
		cmd.Stdout = &buf
		cmd.Stderr = &buf
	default:
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	start := time.Now()
	err = cmd.Run()
	outcome := Outcome{Output: buf.Bytes(), Duration: time.Since(start)}

	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case spec.Timeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded):
			return outcome, fmt.Errorf("%w after %s", ErrTimeout, spec.Timeout)
		case ctx.Err() != nil:
			return outcome, fmt.Errorf("runner: %q interrupted: %w", spec.Argv[0], ctx.Err())
		case errors.As(err, &exitErr):
			outcome.ExitCode = exitErr.ExitCode()
			return outcome, nil
		default:
			return outcome, fmt.Errorf("runner: run %q: %w", spec.Argv[0], err)
		}
	}
	return outcome, nil
}
