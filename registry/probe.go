package registry

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/isdmx/snipbox/language"
	"github.com/isdmx/snipbox/sandbox"
)

// ImageBuilder is the part of the container runtime used by probing passes.
type ImageBuilder interface {
	BuildImage(ctx context.Context, tag, definition, contextDir string, timeout time.Duration) (sandbox.ExecResult, error)
	RunOnce(ctx context.Context, image string, argv []string, timeout time.Duration) (sandbox.ExecResult, error)
	PruneImages(ctx context.Context) error
}

// ProbeOptions configures the availability and version passes.
type ProbeOptions struct {
	BuildDir     string
	BuildContext string
	// BuildTimeout of zero lets a build run as long as it needs.
	BuildTimeout  time.Duration
	ProbeTimeout  time.Duration
	VersionMaxLen int
	PruneImages   bool
}

// DefaultProbeOptions returns the settings used when none are supplied.
func DefaultProbeOptions() ProbeOptions {
	return ProbeOptions{
		BuildDir:      "images",
		BuildContext:  ".",
		ProbeTimeout:  30 * time.Second,
		VersionMaxLen: 50,
	}
}

var errNoBuilder = errors.New("registry has no image builder")

// DefinitionPath returns the build definition file for d.
func (r *Registry) DefinitionPath(d language.Descriptor) string {
	return filepath.Join(r.probeOpts.BuildDir, strings.ToLower(d.Name()))
}

// ProbeAvailability builds every language image in turn and records which succeeded.
// A failure for one language never stops the pass.
func (r *Registry) ProbeAvailability(ctx context.Context) error {
	if r.builder == nil {
		return errNoBuilder
	}

	for _, d := range r.descriptors {
		if err := ctx.Err(); err != nil {
			return err
		}

		definition := r.DefinitionPath(d)
		res, err := r.builder.BuildImage(ctx, d.ImageName(), definition, r.probeOpts.BuildContext, r.probeOpts.BuildTimeout)
		switch {
		case err != nil:
			r.SetAvailable(d, false)
			r.logger.Warn("language unavailable", zap.String("language", d.Name()), zap.String("definition", definition), zap.Error(err))
		case res.TimedOut:
			r.SetAvailable(d, false)
			r.logger.Warn("language unavailable", zap.String("language", d.Name()), zap.String("definition", definition), zap.String("error", "image build timed out"))
		case !res.Succeeded():
			r.SetAvailable(d, false)
			r.logger.Warn("language unavailable", zap.String("language", d.Name()), zap.String("definition", definition), zap.String("error", strings.TrimSpace(res.Stderr)))
		default:
			r.SetAvailable(d, true)
			r.logger.Info("language available", zap.String("language", d.Name()), zap.Duration("build_time", res.Duration))
		}
	}
	return nil
}

// ProbeVersions runs each available language's probe command in its image and caches the output.
func (r *Registry) ProbeVersions(ctx context.Context) error {
	if r.builder == nil {
		return errNoBuilder
	}

	for _, d := range r.descriptors {
		if !r.IsAvailable(d) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := r.builder.RunOnce(ctx, d.ImageName(), d.ProbeCommand(), r.probeOpts.ProbeTimeout)
		if err != nil || !res.Succeeded() {
			r.logger.Warn("version probe failed", zap.String("language", d.Name()), zap.Error(err), zap.Bool("timed_out", res.TimedOut))
			r.clearVersion(d)
			continue
		}

		out := strings.TrimSpace(res.Stdout)
		if out == "" {
			out = strings.TrimSpace(res.Stderr)
		}
		version := truncate(out, r.probeOpts.VersionMaxLen)
		r.setVersion(d, version)
		r.logger.Debug("language version", zap.String("language", d.Name()), zap.String("version", version))
	}
	return nil
}

// Rebuild runs the availability pass then the version pass. Concurrent calls
// wait for the running pass instead of overlapping with it.
func (r *Registry) Rebuild(ctx context.Context) error {
	r.probeMu.Lock()
	defer r.probeMu.Unlock()

	start := time.Now()
	if err := r.ProbeAvailability(ctx); err != nil {
		return err
	}
	if err := r.ProbeVersions(ctx); err != nil {
		return err
	}

	if r.probeOpts.PruneImages {
		if err := r.builder.PruneImages(ctx); err != nil {
			r.logger.Warn("failed to prune images", zap.Error(err))
		}
	}

	available := 0
	for _, info := range r.Languages() {
		if info.Available {
			available++
		}
	}
	r.logger.Info("language probing finished",
		zap.Int("available", available),
		zap.Int("total", len(r.descriptors)),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
