package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Transport: "http",
			HTTPPort:  8080,
		},
		Sandbox: SandboxConfig{
			Runtime:             "docker",
			CPUs:                "0.5",
			Memory:              "256m",
			KernelMemory:        "64m",
			CompileTimeoutSec:   30,
			ExecutionTimeoutSec: 10,
			ContainerTimeoutSec: 60,
			PollIntervalMS:      250,
			SnippetsDir:         "snippets",
			BuildDir:            "images",
			BuildContext:        ".",
			ProbeTimeoutSec:     30,
			VersionMaxLen:       50,
		},
		Store: StoreConfig{
			Enabled: true,
			Path:    "data/snipbox.db",
		},
		Logging: LoggingConfig{
			Mode:  "production",
			Level: "info",
		},
	}
}

func TestConfigValidation(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		require.NoError(t, validConfig().validate())
	})

	tests := []struct {
		name    string
		mutate  func(*Config)
		message string
	}{
		{"InvalidServerTransport", func(c *Config) { c.Server.Transport = "invalid" }, "invalid server.transport"},
		{"InvalidHTTPPort", func(c *Config) { c.Server.HTTPPort = 0 }, "invalid server.http_port"},
		{"UnsupportedRuntime", func(c *Config) { c.Sandbox.Runtime = "local" }, "unsupported sandbox.runtime"},
		{"InvalidCPUs", func(c *Config) { c.Sandbox.CPUs = "lots" }, "sandbox.cpus"},
		{"NegativeCPUs", func(c *Config) { c.Sandbox.CPUs = "-1" }, "sandbox.cpus"},
		{"InvalidMemory", func(c *Config) { c.Sandbox.Memory = "a lot" }, "invalid sandbox.memory"},
		{"InvalidKernelMemory", func(c *Config) { c.Sandbox.KernelMemory = "64 potatoes" }, "invalid sandbox.kernel_memory"},
		{"InvalidCompileTimeout", func(c *Config) { c.Sandbox.CompileTimeoutSec = 0 }, "sandbox.compile_timeout_sec must be positive"},
		{"InvalidExecutionTimeout", func(c *Config) { c.Sandbox.ExecutionTimeoutSec = -1 }, "sandbox.execution_timeout_sec must be positive"},
		{"InvalidPollInterval", func(c *Config) { c.Sandbox.PollIntervalMS = 0 }, "sandbox.poll_interval_ms must be positive"},
		{"NegativeBuildTimeout", func(c *Config) { c.Sandbox.BuildTimeoutSec = -5 }, "sandbox.build_timeout_sec"},
		{"MissingSnippetsDir", func(c *Config) { c.Sandbox.SnippetsDir = "" }, "sandbox.snippets_dir"},
		{"MissingStorePath", func(c *Config) { c.Store.Path = "" }, "store.path"},
		{"InvalidLoggingMode", func(c *Config) { c.Logging.Mode = "verbose" }, "invalid logging.mode"},
		{"InvalidLogLevel", func(c *Config) { c.Logging.Level = "loud" }, "invalid logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}

	t.Run("StdioIgnoresPort", func(t *testing.T) {
		cfg := validConfig()
		cfg.Server.Transport = "stdio"
		cfg.Server.HTTPPort = 0
		require.NoError(t, cfg.validate())
	})

	t.Run("DisabledStoreNeedsNoPath", func(t *testing.T) {
		cfg := validConfig()
		cfg.Store = StoreConfig{}
		require.NoError(t, cfg.validate())
	})
}

func TestNewFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  transport: http
  http_port: 9090
sandbox:
  runtime: podman
  cpus: 1.5
  memory: 1g
  execution_timeout_sec: 3
logging:
  mode: development
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := NewFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "http", cfg.Server.Transport)
	assert.Equal(t, 9090, cfg.Server.HTTPPort)
	assert.Equal(t, "podman", cfg.Sandbox.Runtime)
	assert.Equal(t, "1.5", cfg.Sandbox.CPUs)
	assert.Equal(t, "development", cfg.Logging.Mode)

	// untouched keys keep their defaults
	assert.Equal(t, 30, cfg.Sandbox.CompileTimeoutSec)
	assert.Equal(t, 250, cfg.Sandbox.PollIntervalMS)
	assert.Equal(t, 50, cfg.Sandbox.VersionMaxLen)
	assert.True(t, cfg.Store.Enabled)

	settings := cfg.Settings()
	assert.Equal(t, 3*time.Second, settings.ExecutionTimeout)
	assert.Equal(t, 30*time.Second, settings.CompileTimeout)
	assert.Equal(t, "1073741824", settings.Limits.Memory)
	assert.Empty(t, settings.Limits.KernelMemory)
}

func TestNewFromFileRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sandbox:\n  runtime: lxc\n"), 0o600))

	_, err := NewFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported sandbox.runtime")
}

func TestNewFromFileMissing(t *testing.T) {
	_, err := NewFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestEnvironmentOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sandbox:\n  memory: 128m\n"), 0o600))
	t.Setenv("SNIPBOX_SANDBOX_MEMORY", "512m")
	t.Setenv("SNIPBOX_SERVER_ENABLE_REBUILD_TOOL", "true")

	cfg, err := NewFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "512m", cfg.Sandbox.Memory)
	assert.True(t, cfg.Server.EnableRebuildTool)
}

func TestDerivedSettings(t *testing.T) {
	cfg := validConfig()
	cfg.Sandbox.BuildTimeoutSec = 0

	limits := cfg.Limits()
	assert.Equal(t, "0.5", limits.CPUs)
	assert.Equal(t, "268435456", limits.Memory)
	assert.Equal(t, "67108864", limits.KernelMemory)

	rt := cfg.RuntimeConfig()
	assert.Equal(t, "docker", rt.Runtime)
	assert.Equal(t, 250*time.Millisecond, rt.PollInterval)
	assert.Equal(t, time.Minute, rt.CommandTimeout)

	probe := cfg.ProbeOptions()
	assert.Equal(t, "images", probe.BuildDir)
	assert.Zero(t, probe.BuildTimeout)
	assert.Equal(t, 30*time.Second, probe.ProbeTimeout)
	assert.Equal(t, 50, probe.VersionMaxLen)
}
