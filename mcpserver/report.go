package mcpserver

import (
	"github.com/isdmx/snipbox/pipeline"
	"github.com/isdmx/snipbox/sandbox"
)

type executionReport struct {
	Language    string       `yaml:"language"`
	Status      string       `yaml:"status"`
	Code        string       `yaml:"code"`
	Compilation *phaseReport `yaml:"compilation,omitempty"`
	Execution   *phaseReport `yaml:"execution,omitempty"`
}

type phaseReport struct {
	ExitCode   *int   `yaml:"exit_code"`
	TimedOut   bool   `yaml:"timed_out"`
	DurationMS int64  `yaml:"duration_ms"`
	Stdout     string `yaml:"stdout"`
	Stderr     string `yaml:"stderr"`
}

func newExecutionReport(o *pipeline.Outcome) executionReport {
	return executionReport{
		Language:    o.Language,
		Status:      o.Status.String(),
		Code:        o.Code,
		Compilation: newPhaseReport(o.Compilation),
		Execution:   newPhaseReport(o.Execution),
	}
}

// newPhaseReport returns nil for a phase that never ran.
func newPhaseReport(r sandbox.ExecResult) *phaseReport {
	if r.IsZero() {
		return nil
	}
	return &phaseReport{
		ExitCode:   r.ExitCode,
		TimedOut:   r.TimedOut,
		DurationMS: r.Duration.Milliseconds(),
		Stdout:     r.Stdout,
		Stderr:     r.Stderr,
	}
}
