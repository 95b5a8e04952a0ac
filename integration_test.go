package integration

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/isdmx/snipbox/config"
	"github.com/isdmx/snipbox/language"
	"github.com/isdmx/snipbox/logger"
	"github.com/isdmx/snipbox/mcpserver"
	"github.com/isdmx/snipbox/pipeline"
	"github.com/isdmx/snipbox/registry"
	"github.com/isdmx/snipbox/sandbox"
	"github.com/isdmx/snipbox/store"
)

// fakeDocker emulates the docker CLI on the host: a container is a directory
// under $FAKE_DOCKER_STATE and exec runs the command with /home mapped into it.
const fakeDocker = `#!/bin/sh
state="$FAKE_DOCKER_STATE"
cmd="$1"; shift
case "$cmd" in
build)
  [ -f "$4" ] || { echo "definition $4 not found" >&2; exit 1; }
  ;;
run)
  if [ "$1" = "--rm" ]; then
    shift 3
    exec "$@"
  fi
  id="c$$"
  mkdir -p "$state/$id/home"
  echo "$id"
  ;;
cp)
  id="${2%%:*}"
  cp "$1" "$state/$id${2#*:}"
  ;;
exec)
  shift 2
  root="$state/$1"
  shift
  [ -d "$root" ] || { echo "no such container" >&2; exit 1; }
  for a in "$@"; do
    shift
    case "$a" in /home/*) a="$root$a" ;; esac
    set -- "$@" "$a"
  done
  exec "$@"
  ;;
kill) ;;
rm) rm -rf "$state/$1" ;;
image) ;;
*) echo "unknown command $cmd" >&2; exit 1 ;;
esac
`

type env struct {
	cfg      *config.Config
	state    string
	registry *registry.Registry
	pipeline *pipeline.Pipeline
	store    *store.Store
}

func setup(t *testing.T) *env {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	root := t.TempDir()
	bin := filepath.Join(root, "bin")
	state := filepath.Join(root, "state")
	images := filepath.Join(root, "images")
	for _, dir := range []string{bin, state, images} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(bin, "docker"), []byte(fakeDocker), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(images, "shell"), []byte("FROM alpine\n"), 0o644))

	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))
	t.Setenv("FAKE_DOCKER_STATE", state)

	cfgPath := filepath.Join(root, "config.yaml")
	cfgYAML := "sandbox:\n" +
		"  snippets_dir: " + filepath.Join(root, "snippets") + "\n" +
		"  build_dir: " + images + "\n" +
		"  execution_timeout_sec: 1\n" +
		"  poll_interval_ms: 20\n" +
		"store:\n" +
		"  path: " + filepath.Join(root, "snipbox.db") + "\n" +
		"logging:\n" +
		"  mode: development\n" +
		"  level: debug\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgYAML), 0o644))

	cfg, err := config.NewFromFile(cfgPath)
	require.NoError(t, err)

	// the configured logger must build, tests log through zaptest
	appLogger, err := logger.NewFromConfig(cfg)
	require.NoError(t, err)
	_ = appLogger.Sync()

	log := zaptest.NewLogger(t)
	rt, err := sandbox.NewRuntime(log, cfg.RuntimeConfig())
	require.NoError(t, err)

	reg, err := registry.New(log, language.All(), registry.WithImageBuilder(rt), registry.WithProbeOptions(cfg.ProbeOptions()))
	require.NoError(t, err)

	st, err := store.Open(context.Background(), cfg.Store.Path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	scratch := sandbox.NewScratch(cfg.Sandbox.SnippetsDir, sandbox.RealFileSystem{})
	p := pipeline.New(log, reg, rt, scratch, cfg, pipeline.WithRecorder(st))

	return &env{cfg: cfg, state: state, registry: reg, pipeline: p, store: st}
}

func (e *env) assertNoLeftovers(t *testing.T) {
	t.Helper()
	containers, err := os.ReadDir(e.state)
	require.NoError(t, err)
	assert.Empty(t, containers, "containers left behind")

	authors, err := os.ReadDir(e.cfg.Sandbox.SnippetsDir)
	require.NoError(t, err)
	for _, a := range authors {
		files, err := os.ReadDir(filepath.Join(e.cfg.Sandbox.SnippetsDir, a.Name()))
		require.NoError(t, err)
		assert.Empty(t, files, "scratch files left behind")
	}
}

func TestIntegrationProbeAndRun(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	require.NoError(t, e.registry.Rebuild(ctx))
	assert.Equal(t, []string{"sh", "shell"}, e.registry.AvailableCodes())

	shell, err := e.registry.Lookup("sh")
	require.NoError(t, err)
	version, ok := e.registry.Version(shell)
	require.True(t, ok)
	assert.Equal(t, "ok", version)

	t.Run("ExitCodeAndOutput", func(t *testing.T) {
		outcome, err := e.pipeline.Run(ctx, pipeline.Request{Code: "echo test\necho oops >&2\nexit 3", Author: "42", Language: "SH"}, nil)
		require.NoError(t, err)
		assert.Equal(t, pipeline.StatusSucceeded, outcome.Status)
		assert.True(t, outcome.Compilation.IsZero())
		require.NotNil(t, outcome.Execution.ExitCode)
		assert.Equal(t, 3, *outcome.Execution.ExitCode)
		assert.Equal(t, "test\n", outcome.Execution.Stdout)
		assert.Equal(t, "oops\n", outcome.Execution.Stderr)
		e.assertNoLeftovers(t)
	})

	t.Run("Deterministic", func(t *testing.T) {
		req := pipeline.Request{Code: "echo same", Author: "42", Language: "shell"}
		first, err := e.pipeline.Run(ctx, req, nil)
		require.NoError(t, err)
		second, err := e.pipeline.Run(ctx, req, nil)
		require.NoError(t, err)
		assert.Equal(t, *first.Execution.ExitCode, *second.Execution.ExitCode)
		assert.Equal(t, first.Execution.Stdout, second.Execution.Stdout)
	})

	t.Run("Timeout", func(t *testing.T) {
		start := time.Now()
		outcome, err := e.pipeline.Run(ctx, pipeline.Request{Code: "exec sleep 10", Author: "42", Language: "sh"}, nil)
		require.NoError(t, err)
		assert.Less(t, time.Since(start), 8*time.Second)
		assert.Equal(t, pipeline.StatusExecuteTimeout, outcome.Status)
		assert.True(t, outcome.Execution.TimedOut)
		assert.Nil(t, outcome.Execution.ExitCode)
		e.assertNoLeftovers(t)
	})

	t.Run("Sanitized", func(t *testing.T) {
		outcome, err := e.pipeline.Run(ctx, pipeline.Request{Code: "echo '@everyone'", Author: "42", Language: "sh"}, nil)
		require.NoError(t, err)
		assert.Equal(t, "@ everyone\n", outcome.Execution.Stdout)
	})

	t.Run("UnavailableLanguage", func(t *testing.T) {
		_, err := e.pipeline.Run(ctx, pipeline.Request{Code: "print(1)", Author: "42", Language: "py"}, nil)
		require.ErrorIs(t, err, registry.ErrLanguageUnavailable)
	})

	t.Run("UnknownLanguage", func(t *testing.T) {
		_, err := e.pipeline.Run(ctx, pipeline.Request{Code: "+", Author: "42", Language: "brainfck"}, nil)
		var unknown *registry.UnknownLanguageError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, []string{"sh", "shell"}, unknown.Available)
	})

	t.Run("UsageRecorded", func(t *testing.T) {
		stats, err := e.store.Stats(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, stats)
		assert.Equal(t, "Shell", stats[0].Language)
		assert.GreaterOrEqual(t, stats[0].Executed, int64(4))

		total, err := e.store.SnippetCount(ctx, "")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, total, stats[0].Executed)
	})
}

func TestIntegrationServerWiring(t *testing.T) {
	e := setup(t)

	server, err := mcpserver.New(e.cfg, zaptest.NewLogger(t), e.pipeline, e.registry, e.store)
	require.NoError(t, err)
	require.NotNil(t, server.GetMCPServer())
}
