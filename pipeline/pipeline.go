package pipeline

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/isdmx/snipbox/language"
	"github.com/isdmx/snipbox/sandbox"
)

// Progress lines sent to the Reporter.
const (
	ProgressSaving    = "Saving code..."
	ProgressStarting  = "Starting session..."
	ProgressCopying   = "Copying code snippet..."
	ProgressCompiling = "Compiling code snippet..."
	ProgressRunning   = "Running code snippet..."
	ProgressClosing   = "Closing session..."
)

const defaultCleanupTimeout = 30 * time.Second

// Request is one snippet submitted for execution.
type Request struct {
	Code     string
	Author   string
	Language string
}

// Status classifies a completed run.
type Status int

const (
	StatusSucceeded Status = iota
	StatusCompileFailed
	StatusCompileTimeout
	StatusExecuteTimeout
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusCompileFailed:
		return "compile_failed"
	case StatusCompileTimeout:
		return "compile_timeout"
	case StatusExecuteTimeout:
		return "execute_timeout"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Outcome is the result of a run that got as far as compiling.
// Execution is the zero value when compilation failed or timed out.
type Outcome struct {
	Language    string
	Code        string
	Compilation sandbox.ExecResult
	Execution   sandbox.ExecResult
	Status      Status
}

// Failure returns the error kind of an unsuccessful outcome, or nil.
func (o *Outcome) Failure() error {
	switch o.Status {
	case StatusCompileFailed:
		return &CompileError{ExitCode: o.Compilation.ExitCode, Stderr: o.Compilation.Stderr}
	case StatusCompileTimeout:
		return ErrCompileTimeout
	case StatusExecuteTimeout:
		return ErrExecuteTimeout
	default:
		return nil
	}
}

// Pipeline executes snippets. It holds no per-request state and may be used concurrently.
type Pipeline struct {
	logger         *zap.Logger
	resolver       Resolver
	runtime        Runtime
	storage        Storage
	settings       SettingsProvider
	recorder       Recorder
	cleanupTimeout time.Duration
}

// Option defines a functional option for Pipeline
type Option func(*Pipeline)

// WithRecorder sets the persistence collaborator.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) {
		p.recorder = r
	}
}

// WithCleanupTimeout bounds container teardown.
func WithCleanupTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		p.cleanupTimeout = d
	}
}

// New creates a Pipeline.
func New(logger *zap.Logger, resolver Resolver, runtime Runtime, storage Storage, settings SettingsProvider, opts ...Option) *Pipeline {
	p := &Pipeline{
		logger:         logger,
		resolver:       resolver,
		runtime:        runtime,
		storage:        storage,
		settings:       settings,
		cleanupTimeout: defaultCleanupTimeout,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Run executes req. Lookup, save, start and copy failures are returned as
// errors. Compile failures and timeouts are reported through Outcome.Status.
// The scratch file and the container are gone by the time Run returns.
func (p *Pipeline) Run(ctx context.Context, req Request, reporter Reporter) (*Outcome, error) {
	if reporter == nil {
		reporter = nopReporter{}
	}

	desc, err := p.resolver.Resolve(req.Language)
	if err != nil {
		return nil, err
	}

	log := p.logger.With(zap.String("language", desc.Name()), zap.String("author", req.Author))
	p.recordSnippet(ctx, log, req, desc)

	outcome, err := p.run(ctx, log, req, desc, reporter)
	if err != nil {
		log.Info("snippet run failed", zap.Error(err))
		return nil, err
	}

	sanitize(&outcome.Compilation)
	sanitize(&outcome.Execution)

	log.Info("snippet run finished",
		zap.Stringer("status", outcome.Status),
		zap.Duration("compile_time", outcome.Compilation.Duration),
		zap.Duration("execution_time", outcome.Execution.Duration))
	return outcome, nil
}

func (p *Pipeline) run(ctx context.Context, log *zap.Logger, req Request, desc language.Descriptor, reporter Reporter) (*Outcome, error) {
	settings := p.settings.Settings()

	reporter.Progress(ctx, ProgressSaving)
	hostPath, err := p.storage.Save(req.Author, desc.SourceExtension(), req.Code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	defer func() {
		if rmErr := p.storage.Remove(hostPath); rmErr != nil {
			log.Warn("failed to remove scratch file", zap.String("path", hostPath), zap.Error(fmt.Errorf("%w: %w", ErrCleanupFailed, rmErr)))
		}
	}()

	src := path.Join(sandbox.ContainerWorkdir, filepath.Base(hostPath))
	code := StripInvisible(req.Code)
	if rewritten, changed := desc.Preprocess(code, src); changed {
		code = rewritten
	}
	if code != req.Code {
		if err := p.storage.Write(hostPath, code); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSaveFailed, err)
		}
	}

	reporter.Progress(ctx, ProgressStarting)
	id, err := p.runtime.Start(ctx, desc.ImageName(), settings.Limits)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContainerStartFailed, err)
	}
	defer func() {
		reporter.Progress(ctx, ProgressClosing)
		p.destroy(log, id)
	}()

	reporter.Progress(ctx, ProgressCopying)
	if err := p.runtime.CopyIn(ctx, id, hostPath, src); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCopyFailed, err)
	}

	outcome := &Outcome{Language: desc.Name(), Code: code}
	out := desc.OutputPath(src)

	if compile := desc.CompileCommand(src, out); compile == nil {
		if err := p.runtime.CopyIn(ctx, id, hostPath, out); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCopyFailed, err)
		}
	} else {
		reporter.Progress(ctx, ProgressCompiling)
		res, err := p.compile(ctx, id, compile, settings.CompileTimeout)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCompileFailed, err)
		}
		outcome.Compilation = res
		switch {
		case res.TimedOut:
			outcome.Status = StatusCompileTimeout
			return outcome, nil
		case !res.Succeeded():
			outcome.Status = StatusCompileFailed
			return outcome, nil
		}
	}

	reporter.Progress(ctx, ProgressRunning)
	res, err := p.runtime.Exec(ctx, id, desc.ExecutionCommand(out), settings.ExecutionTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecuteFailed, err)
	}
	outcome.Execution = res
	if res.TimedOut {
		outcome.Status = StatusExecuteTimeout
	}

	p.recordExecution(ctx, log, desc)
	return outcome, nil
}

// compile runs each step in order under one phase deadline and stops at the
// first step that does not succeed. Output of executed steps is concatenated.
func (p *Pipeline) compile(ctx context.Context, id string, cmd language.Command, timeout time.Duration) (sandbox.ExecResult, error) {
	var (
		result         sandbox.ExecResult
		stdout, stderr strings.Builder
	)

	for _, step := range cmd {
		remaining := timeout
		if timeout > 0 {
			remaining = timeout - result.Duration
			if remaining <= 0 {
				return sandbox.ExecResult{TimedOut: true, Duration: result.Duration}, nil
			}
		}

		res, err := p.runtime.Exec(ctx, id, step, remaining)
		if err != nil {
			return sandbox.ExecResult{}, err
		}
		if res.TimedOut {
			return sandbox.ExecResult{TimedOut: true, Duration: result.Duration + res.Duration}, nil
		}

		stdout.WriteString(res.Stdout)
		stderr.WriteString(res.Stderr)
		result = sandbox.ExecResult{
			ExitCode: res.ExitCode,
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			Duration: result.Duration + res.Duration,
		}
		if !res.Succeeded() {
			break
		}
	}
	return result, nil
}

func (p *Pipeline) destroy(log *zap.Logger, id string) {
	ctx, cancel := context.WithTimeout(context.Background(), p.cleanupTimeout)
	defer cancel()

	if err := p.runtime.Destroy(ctx, id); err != nil {
		log.Warn("failed to destroy container", zap.String("container", id), zap.Error(fmt.Errorf("%w: %w", ErrCleanupFailed, err)))
	}
}

func (p *Pipeline) recordSnippet(ctx context.Context, log *zap.Logger, req Request, desc language.Descriptor) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.RecordSnippet(ctx, req.Author, desc.Name(), req.Code); err != nil {
		log.Warn("failed to record snippet", zap.Error(err))
	}
}

func (p *Pipeline) recordExecution(ctx context.Context, log *zap.Logger, desc language.Descriptor) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.RecordExecution(ctx, desc.Name()); err != nil {
		log.Warn("failed to record execution", zap.Error(err))
	}
}

func sanitize(r *sandbox.ExecResult) {
	r.Stdout = SanitizeOutput(r.Stdout)
	r.Stderr = SanitizeOutput(r.Stderr)
}
