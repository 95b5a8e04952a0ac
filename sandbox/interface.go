package sandbox

import (
	"context"
	"errors"
	"os"
	"time"
)

// ErrStartFailed is returned when a command could not be launched at all.
// A command that starts and exits non-zero is not an error.
var ErrStartFailed = errors.New("command could not be started")

// ExecResult captures the outcome of one command.
// The zero value means the command was never attempted.
type ExecResult struct {
	ExitCode *int
	Stdout   string
	Stderr   string
	TimedOut bool
	Duration time.Duration
}

// Succeeded reports whether the command exited with status zero in time.
func (r ExecResult) Succeeded() bool {
	return !r.TimedOut && r.ExitCode != nil && *r.ExitCode == 0
}

// IsZero reports whether r is the never-attempted default.
func (r ExecResult) IsZero() bool {
	return r.ExitCode == nil && r.Stdout == "" && r.Stderr == "" && !r.TimedOut && r.Duration == 0
}

// RunOptions bounds a single command run.
type RunOptions struct {
	// Timeout of zero disables the deadline.
	Timeout time.Duration
	// OnTimeout runs after the process has been killed for exceeding Timeout.
	OnTimeout func()
}

// CommandRunner defines an interface for executing system commands
type CommandRunner interface {
	Run(ctx context.Context, args []string, opts RunOptions) (ExecResult, error)
}

// FileSystem defines an interface for file system operations
type FileSystem interface {
	MkdirAll(path string, perm os.FileMode) error
	WriteFile(filename string, data []byte, perm os.FileMode) error
	Remove(path string) error
	FileExists(path string) (bool, error)
}

// RealFileSystem implements FileSystem using actual file system operations
type RealFileSystem struct{}

func (RealFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (RealFileSystem) WriteFile(filename string, data []byte, perm os.FileMode) error {
	return os.WriteFile(filename, data, perm)
}

func (RealFileSystem) Remove(path string) error {
	return os.Remove(path)
}

func (RealFileSystem) FileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

// File permission constants
const (
	DirPermission  = 0755
	FilePermission = 0644
)

func intPtr(v int) *int { return &v }
