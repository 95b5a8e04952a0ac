package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultPollInterval is how often a running command is checked against its deadline.
const DefaultPollInterval = 250 * time.Millisecond

// waitDelay bounds how long Wait may block on output pipes after a kill.
const waitDelay = 2 * time.Second

// PollingRunner implements CommandRunner by starting the process and
// checking it at a fixed interval until it exits or its deadline passes.
// Output of a timed out command is discarded. On timeout or cancellation the
// whole process group is killed, including children the command spawned.
type PollingRunner struct {
	pollInterval time.Duration
}

// NewPollingRunner creates a runner. A non-positive interval selects DefaultPollInterval.
func NewPollingRunner(pollInterval time.Duration) *PollingRunner {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &PollingRunner{pollInterval: pollInterval}
}

// Run executes args[0] with the remaining arguments.
func (r *PollingRunner) Run(ctx context.Context, args []string, opts RunOptions) (ExecResult, error) {
	if len(args) < 1 {
		return ExecResult{}, fmt.Errorf("%w: no command provided", ErrStartFailed)
	}

	cmd := exec.Command(args[0], args[1:]...) //nolint:gosec // argv is built by this module, never by a shell
	cmd.WaitDelay = waitDelay
	setProcessGroup(cmd)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return ExecResult{}, fmt.Errorf("%w: %s: %w", ErrStartFailed, args[0], err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case waitErr := <-done:
			return finish(waitErr, &stdoutBuf, &stderrBuf, time.Since(start))
		case <-ctx.Done():
			kill(cmd, done)
			return ExecResult{}, ctx.Err()
		case <-ticker.C:
		}

		if opts.Timeout > 0 && time.Since(start) >= opts.Timeout {
			kill(cmd, done)
			if opts.OnTimeout != nil {
				opts.OnTimeout()
			}
			return ExecResult{TimedOut: true, Duration: time.Since(start)}, nil
		}
	}
}

func kill(cmd *exec.Cmd, done <-chan error) {
	killProcessGroup(cmd)
	<-done
}

func finish(waitErr error, stdout, stderr *bytes.Buffer, elapsed time.Duration) (ExecResult, error) {
	result := ExecResult{
		Stdout:   strings.ToValidUTF8(stdout.String(), "\uFFFD"),
		Stderr:   strings.ToValidUTF8(stderr.String(), "\uFFFD"),
		Duration: elapsed,
	}

	if waitErr == nil {
		result.ExitCode = intPtr(0)
		return result, nil
	}

	var exitErr *exec.ExitError
	if !errors.As(waitErr, &exitErr) {
		return ExecResult{}, fmt.Errorf("wait for command: %w", waitErr)
	}
	// ExitCode is -1 when the process was terminated by a signal.
	if code := exitErr.ExitCode(); code >= 0 {
		result.ExitCode = intPtr(code)
	}
	return result, nil
}
