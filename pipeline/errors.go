package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSaveFailed is returned when the snippet could not be written to scratch storage.
	ErrSaveFailed = errors.New("failed to save snippet")
	// ErrContainerStartFailed is returned when the sandbox container could not be started.
	ErrContainerStartFailed = errors.New("failed to start container")
	// ErrCopyFailed is returned when the snippet could not be copied into the container.
	ErrCopyFailed = errors.New("failed to copy snippet into container")
	// ErrCompileFailed marks a compiler that exited non-zero.
	ErrCompileFailed = errors.New("compilation failed")
	// ErrCompileTimeout marks a compile phase that ran past its deadline.
	ErrCompileTimeout = errors.New("compilation timed out")
	// ErrExecuteFailed is returned when the run command could not be issued at all.
	ErrExecuteFailed = errors.New("execution failed")
	// ErrExecuteTimeout marks an execution that ran past its deadline.
	ErrExecuteTimeout = errors.New("execution timed out")
	// ErrCleanupFailed is only ever logged.
	ErrCleanupFailed = errors.New("cleanup failed")
)

// CompileError carries the compiler diagnostics of a failed compilation.
type CompileError struct {
	ExitCode *int
	Stderr   string
}

func (e *CompileError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return ErrCompileFailed.Error()
	}
	return fmt.Sprintf("%s: %s", ErrCompileFailed, msg)
}

func (e *CompileError) Unwrap() error { return ErrCompileFailed }
