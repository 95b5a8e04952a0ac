package pipeline

import (
	"context"
	"time"

	"github.com/isdmx/snipbox/language"
	"github.com/isdmx/snipbox/sandbox"
)

// Settings are the per-request resource caps and phase deadlines.
type Settings struct {
	Limits           sandbox.Limits
	CompileTimeout   time.Duration
	ExecutionTimeout time.Duration
}

// SettingsProvider is read once at the start of every run.
type SettingsProvider interface {
	Settings() Settings
}

// SettingsFunc adapts a function to SettingsProvider.
type SettingsFunc func() Settings

func (f SettingsFunc) Settings() Settings { return f() }

// Recorder persists usage. Its failures never change a run's result.
type Recorder interface {
	RecordSnippet(ctx context.Context, author, languageName, code string) error
	RecordExecution(ctx context.Context, languageName string) error
}

// Reporter receives progress lines. Delivery is best effort.
type Reporter interface {
	Progress(ctx context.Context, message string)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, message string)

func (f ReporterFunc) Progress(ctx context.Context, message string) { f(ctx, message) }

type nopReporter struct{}

func (nopReporter) Progress(context.Context, string) {}

// Resolver maps a language code to an executable descriptor.
type Resolver interface {
	Resolve(code string) (language.Descriptor, error)
}

// Runtime is the container runtime a run drives.
type Runtime interface {
	Start(ctx context.Context, image string, limits sandbox.Limits) (string, error)
	CopyIn(ctx context.Context, id, hostPath, containerPath string) error
	Exec(ctx context.Context, id string, argv []string, timeout time.Duration) (sandbox.ExecResult, error)
	Destroy(ctx context.Context, id string) error
}

// Storage holds the host copy of a snippet.
type Storage interface {
	Save(author, ext, code string) (string, error)
	Write(path, code string) error
	Remove(path string) error
}
