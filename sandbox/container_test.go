package sandbox

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// MockCommandRunner records invocations and answers by subcommand.
type MockCommandRunner struct {
	mu       sync.Mutex
	calls    [][]string
	results  map[string]ExecResult
	errs     map[string]error
	timeouts map[string]bool
}

func newMockRunner() *MockCommandRunner {
	return &MockCommandRunner{
		results:  map[string]ExecResult{},
		errs:     map[string]error{},
		timeouts: map[string]bool{},
	}
}

func (m *MockCommandRunner) Run(_ context.Context, args []string, opts RunOptions) (ExecResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, args)
	m.mu.Unlock()

	sub := args[1]
	if err, ok := m.errs[sub]; ok {
		return ExecResult{}, err
	}
	if m.timeouts[sub] {
		if opts.OnTimeout != nil {
			opts.OnTimeout()
		}
		return ExecResult{TimedOut: true}, nil
	}
	if res, ok := m.results[sub]; ok {
		return res, nil
	}
	return ExecResult{ExitCode: intPtr(0)}, nil
}

func (m *MockCommandRunner) commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.calls))
	for _, c := range m.calls {
		out = append(out, strings.Join(c, " "))
	}
	return out
}

func newTestCLI(t *testing.T, runner CommandRunner) *ContainerCLI {
	t.Helper()
	cli, err := NewContainerCLI(zaptest.NewLogger(t), RuntimeDocker, WithCommandRunner(runner), WithCommandTimeout(time.Second))
	require.NoError(t, err)
	return cli
}

func TestNewContainerCLIRejectsUnknownRuntime(t *testing.T) {
	_, err := NewContainerCLI(zaptest.NewLogger(t), "lxc")
	require.Error(t, err)

	cli, err := NewContainerCLI(zaptest.NewLogger(t), RuntimePodman)
	require.NoError(t, err)
	assert.Equal(t, "podman", cli.Binary())
}

func TestContainerStart(t *testing.T) {
	runner := newMockRunner()
	runner.results["run"] = ExecResult{ExitCode: intPtr(0), Stdout: "abc123\n"}
	cli := newTestCLI(t, runner)

	id, err := cli.Start(context.Background(), "snipbox-c", Limits{CPUs: "0.5", Memory: "256m", KernelMemory: "64m"})
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)
	assert.Equal(t, []string{
		"docker run --network=none --kernel-memory 64m --cpus 0.5 --memory 256m -t -d snipbox-c",
	}, runner.commands())
}

func TestContainerStartFailures(t *testing.T) {
	t.Run("NonZeroExit", func(t *testing.T) {
		runner := newMockRunner()
		runner.results["run"] = ExecResult{ExitCode: intPtr(125), Stderr: "no such image"}
		_, err := newTestCLI(t, runner).Start(context.Background(), "snipbox-c", Limits{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no such image")
	})

	t.Run("EmptyID", func(t *testing.T) {
		runner := newMockRunner()
		runner.results["run"] = ExecResult{ExitCode: intPtr(0), Stdout: "  \n"}
		_, err := newTestCLI(t, runner).Start(context.Background(), "snipbox-c", Limits{})
		require.Error(t, err)
	})

	t.Run("RuntimeMissing", func(t *testing.T) {
		runner := newMockRunner()
		runner.errs["run"] = ErrStartFailed
		_, err := newTestCLI(t, runner).Start(context.Background(), "snipbox-c", Limits{})
		require.ErrorIs(t, err, ErrStartFailed)
	})
}

func TestContainerCopyAndExec(t *testing.T) {
	runner := newMockRunner()
	runner.results["exec"] = ExecResult{ExitCode: intPtr(3), Stdout: "hi"}
	cli := newTestCLI(t, runner)

	require.NoError(t, cli.CopyIn(context.Background(), "abc", "/tmp/u/s1.c", "/home/s1.c"))
	res, err := cli.Exec(context.Background(), "abc", []string{"/home/s1.c.out", "my arg"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 3, *res.ExitCode)

	require.Len(t, runner.calls, 2)
	assert.Equal(t, []string{"docker", "cp", "/tmp/u/s1.c", "abc:/home/s1.c"}, runner.calls[0])
	assert.Equal(t, []string{"docker", "exec", "-w", "/home", "abc", "/home/s1.c.out", "my arg"}, runner.calls[1])
}

func TestContainerExecTimeoutKillsContainer(t *testing.T) {
	runner := newMockRunner()
	runner.timeouts["exec"] = true
	cli := newTestCLI(t, runner)

	res, err := cli.Exec(context.Background(), "abc", []string{"sleep", "10"}, time.Second)
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
	assert.Contains(t, runner.commands(), "docker kill abc")
}

func TestContainerDestroy(t *testing.T) {
	t.Run("KillFailureIgnoredWhenRemoved", func(t *testing.T) {
		runner := newMockRunner()
		runner.results["kill"] = ExecResult{ExitCode: intPtr(1), Stderr: "not running"}
		cli := newTestCLI(t, runner)

		require.NoError(t, cli.Destroy(context.Background(), "abc"))
		assert.Equal(t, []string{"docker kill abc", "docker rm abc"}, runner.commands())
	})

	t.Run("BothFailures", func(t *testing.T) {
		runner := newMockRunner()
		runner.errs["kill"] = errors.New("kill broke")
		runner.errs["rm"] = errors.New("rm broke")
		err := newTestCLI(t, runner).Destroy(context.Background(), "abc")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "kill broke")
		assert.Contains(t, err.Error(), "rm broke")
	})
}

func TestContainerImageCommands(t *testing.T) {
	runner := newMockRunner()
	cli := newTestCLI(t, runner)
	ctx := context.Background()

	_, err := cli.BuildImage(ctx, "snipbox-rust", "images/rust", ".", time.Minute)
	require.NoError(t, err)
	_, err = cli.RunOnce(ctx, "snipbox-rust", []string{"rustc", "--version"}, time.Second)
	require.NoError(t, err)
	require.NoError(t, cli.PruneImages(ctx))

	assert.Equal(t, []string{
		"docker build -t snipbox-rust -f images/rust .",
		"docker run --rm --network=none snipbox-rust rustc --version",
		"docker image prune -f",
	}, runner.commands())
}

func TestHousekeepingTimeout(t *testing.T) {
	runner := newMockRunner()
	runner.timeouts["rm"] = true
	err := newTestCLI(t, runner).Remove(context.Background(), "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}
