package sandbox

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Supported container runtimes. Both accept the same CLI surface.
const (
	RuntimeDocker = "docker"
	RuntimePodman = "podman"
)

// ContainerWorkdir is the directory snippets are copied to and executed from.
const ContainerWorkdir = "/home"

// Limits are the resource ceilings applied to every snippet container.
type Limits struct {
	CPUs         string
	Memory       string
	KernelMemory string
}

// ContainerCLI drives a container runtime through its command line.
type ContainerCLI struct {
	logger         *zap.Logger
	binary         string
	cmdRunner      CommandRunner
	commandTimeout time.Duration
}

// ContainerOption defines a functional option for ContainerCLI
type ContainerOption func(*ContainerCLI)

// WithCommandRunner sets the CommandRunner for ContainerCLI
func WithCommandRunner(cmdRunner CommandRunner) ContainerOption {
	return func(c *ContainerCLI) {
		c.cmdRunner = cmdRunner
	}
}

// WithCommandTimeout bounds housekeeping commands (run -d, cp, kill, rm, prune).
func WithCommandTimeout(timeout time.Duration) ContainerOption {
	return func(c *ContainerCLI) {
		c.commandTimeout = timeout
	}
}

// NewContainerCLI creates a ContainerCLI for the given runtime binary.
func NewContainerCLI(logger *zap.Logger, binary string, opts ...ContainerOption) (*ContainerCLI, error) {
	switch binary {
	case RuntimeDocker, RuntimePodman:
	default:
		return nil, fmt.Errorf("unsupported container runtime: %s", binary)
	}

	c := &ContainerCLI{
		logger:         logger,
		binary:         binary,
		cmdRunner:      NewPollingRunner(DefaultPollInterval),
		commandTimeout: 60 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Binary returns the runtime executable name.
func (c *ContainerCLI) Binary() string { return c.binary }

// Start launches a detached container with networking disabled and returns its id.
func (c *ContainerCLI) Start(ctx context.Context, image string, limits Limits) (string, error) {
	args := []string{c.binary, "run", "--network=none"}
	if limits.KernelMemory != "" {
		args = append(args, "--kernel-memory", limits.KernelMemory)
	}
	if limits.CPUs != "" {
		args = append(args, "--cpus", limits.CPUs)
	}
	if limits.Memory != "" {
		args = append(args, "--memory", limits.Memory)
	}
	args = append(args, "-t", "-d", image)

	res, err := c.housekeeping(ctx, args)
	if err != nil {
		return "", err
	}

	id := strings.TrimSpace(res.Stdout)
	if id == "" {
		return "", fmt.Errorf("%s run printed no container id", c.binary)
	}
	c.logger.Debug("container started", zap.String("image", image), zap.String("container", id))
	return id, nil
}

// CopyIn copies a host file into the container.
func (c *ContainerCLI) CopyIn(ctx context.Context, id, hostPath, containerPath string) error {
	_, err := c.housekeeping(ctx, []string{c.binary, "cp", hostPath, id + ":" + containerPath})
	return err
}

// Exec runs argv inside the container from ContainerWorkdir. When the deadline
// passes the exec process is killed and so is the container.
func (c *ContainerCLI) Exec(ctx context.Context, id string, argv []string, timeout time.Duration) (ExecResult, error) {
	args := append([]string{c.binary, "exec", "-w", ContainerWorkdir, id}, argv...)
	return c.cmdRunner.Run(ctx, args, RunOptions{
		Timeout: timeout,
		OnTimeout: func() {
			if err := c.Kill(context.Background(), id); err != nil {
				c.logger.Warn("failed to kill container after timeout", zap.String("container", id), zap.Error(err))
			}
		},
	})
}

// Kill forcibly stops a container.
func (c *ContainerCLI) Kill(ctx context.Context, id string) error {
	_, err := c.housekeeping(ctx, []string{c.binary, "kill", id})
	return err
}

// Remove deletes a stopped container.
func (c *ContainerCLI) Remove(ctx context.Context, id string) error {
	_, err := c.housekeeping(ctx, []string{c.binary, "rm", id})
	return err
}

// Destroy kills and removes a container. A failed kill is only reported when
// the removal fails as well, since a container that already exited cannot be killed.
func (c *ContainerCLI) Destroy(ctx context.Context, id string) error {
	killErr := c.Kill(ctx, id)
	rmErr := c.Remove(ctx, id)
	if rmErr == nil {
		if killErr != nil {
			c.logger.Debug("kill before remove failed", zap.String("container", id), zap.Error(killErr))
		}
		return nil
	}
	return multierr.Combine(killErr, rmErr)
}

// BuildImage builds tag from a definition file within contextDir.
func (c *ContainerCLI) BuildImage(ctx context.Context, tag, definition, contextDir string, timeout time.Duration) (ExecResult, error) {
	args := []string{c.binary, "build", "-t", tag, "-f", definition, contextDir}
	return c.cmdRunner.Run(ctx, args, RunOptions{Timeout: timeout})
}

// RunOnce runs argv in a throwaway container of image.
func (c *ContainerCLI) RunOnce(ctx context.Context, image string, argv []string, timeout time.Duration) (ExecResult, error) {
	args := append([]string{c.binary, "run", "--rm", "--network=none", image}, argv...)
	return c.cmdRunner.Run(ctx, args, RunOptions{Timeout: timeout})
}

// PruneImages removes dangling images left behind by rebuilds.
func (c *ContainerCLI) PruneImages(ctx context.Context) error {
	_, err := c.housekeeping(ctx, []string{c.binary, "image", "prune", "-f"})
	return err
}

// housekeeping runs a runtime command that must succeed.
func (c *ContainerCLI) housekeeping(ctx context.Context, args []string) (ExecResult, error) {
	res, err := c.cmdRunner.Run(ctx, args, RunOptions{Timeout: c.commandTimeout})
	if err != nil {
		return res, err
	}
	if res.TimedOut {
		return res, fmt.Errorf("%s %s timed out after %s", c.binary, args[1], c.commandTimeout)
	}
	if !res.Succeeded() {
		return res, fmt.Errorf("%s %s failed: %s", c.binary, args[1], strings.TrimSpace(res.Stderr))
	}
	return res, nil
}
