// Package pipeline runs one snippet end to end: it saves the source on the
// host, starts an isolated container, copies the source in, compiles it when
// the language needs it, runs it and always tears everything down again.
//
// Compile failures and timeouts are reported through Outcome.Status rather
// than as errors. Errors are reserved for requests that could not be run.
//
// Usage:
//
//	p := pipeline.New(logger, reg, runtime, scratch, cfg, pipeline.WithRecorder(st))
//	outcome, err := p.Run(ctx, pipeline.Request{Code: code, Author: "42", Language: "py"}, nil)
package pipeline
