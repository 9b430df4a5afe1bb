// Package process runs external programs in their own process group so that
// cancellation kills the whole tree instead of leaving orphans behind.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long Wait blocks on I/O after the group was killed.
const waitDelay = 2 * time.Second

// maxStderr caps the stderr excerpt carried in errors.
const maxStderr = 512

// Command builds an exec.Cmd bound to ctx. When ctx is done the whole
// process group is killed, not only the leader.
func Command(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	setGroup(cmd)
	cmd.Cancel = func() error {
		if cmd.Process != nil {
			KillProcessGroup(cmd.Process.Pid)
		}
		return nil
	}
	cmd.WaitDelay = waitDelay
	return cmd
}

// Run executes name with args and returns its stdout. A non-zero exit is
// reported with a trimmed stderr excerpt. If ctx ended first, the context
// error is returned so callers can tell a timeout from an engine failure.
func Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := Command(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%s: %w", name, ctxErr)
	}
	if err != nil {
		return nil, &ExitError{Name: name, Err: err, Stderr: excerpt(stderr.String())}
	}
	return stdout.Bytes(), nil
}

// ExitError describes a failed external command.
type ExitError struct {
	Name   string
	Err    error
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Name, e.Err, e.Stderr)
}

func (e *ExitError) Unwrap() error { return e.Err }

// IsNotFound reports whether err means the executable does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound)
}

func excerpt(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderr {
		s = s[:maxStderr] + "..."
	}
	return s
}
