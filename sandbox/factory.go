package sandbox

import (
	"time"

	"go.uber.org/zap"
)

// RuntimeConfig selects and tunes the container runtime.
type RuntimeConfig struct {
	Runtime        string
	PollInterval   time.Duration
	CommandTimeout time.Duration
}

// NewRuntime creates a ContainerCLI backed by a PollingRunner.
func NewRuntime(logger *zap.Logger, cfg RuntimeConfig) (*ContainerCLI, error) {
	opts := []ContainerOption{WithCommandRunner(NewPollingRunner(cfg.PollInterval))}
	if cfg.CommandTimeout > 0 {
		opts = append(opts, WithCommandTimeout(cfg.CommandTimeout))
	}
	return NewContainerCLI(logger.Named(cfg.Runtime), cfg.Runtime, opts...)
}
