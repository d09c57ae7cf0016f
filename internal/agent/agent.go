// Package agent launches the external code generation agent against a
// staged prompt file and reports its exit status.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tlc-tools/tlc/internal/runner"
)

var (
	// ErrNotFound reports that the configured agent executable is not
	// installed on this machine.
	ErrNotFound = errors.New("agent: executable not found")

	// ErrTimeout reports that an invocation outlived the configured
	// deadline and was killed.
	ErrTimeout = errors.New("agent: invocation timed out")
)

// Invoker runs the configured agent command as a child process. The
// agent owns every file it writes; nothing here constrains it.
type Invoker struct {
	// Command is the agent command line, for example ["claude"]. The
	// prompt instruction is appended as one final argument.
	Command []string

	// Dir is the working directory the agent runs in.
	Dir string

	// Mode selects live terminal passthrough or captured output.
	Mode runner.Mode

	// Timeout bounds one invocation. Zero means wait forever, which
	// is the default: generation legitimately runs for minutes.
	Timeout time.Duration
}

// Invoke blocks until the agent exits. The agent receives a single
// instruction naming the prompt file; everything else it learns by
// reading that file. A non-zero exit code comes back in the Outcome,
// not as an error.
func (inv Invoker) Invoke(ctx context.Context, promptPath string) (runner.Outcome, error) {
	if len(inv.Command) == 0 {
		return runner.Outcome{}, errors.New("agent: no command configured")
	}

	argv := make([]string, 0, len(inv.Command)+1)
	argv = append(argv, inv.Command...)
	argv = append(argv, "Follow the instructions in "+promptPath)

	out, err := runner.Run(ctx, runner.Spec{
		Argv:    argv,
		Dir:     inv.Dir,
		Mode:    inv.Mode,
		Timeout: inv.Timeout,
	})
	switch {
	case errors.Is(err, runner.ErrNotFound):
		return out, fmt.Errorf("%w: %q", ErrNotFound, inv.Command[0])
	case errors.Is(err, runner.ErrTimeout):
		return out, fmt.Errorf("%w after %s", ErrTimeout, inv.Timeout)
	case err != nil:
		return out, err
	}
	return out, nil
}
