package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/spf13/viper"

	"github.com/isdmx/snipbox/pipeline"
	"github.com/isdmx/snipbox/registry"
	"github.com/isdmx/snipbox/sandbox"
)

// EnvPrefix prefixes environment overrides, e.g. SNIPBOX_SANDBOX_RUNTIME.
const EnvPrefix = "SNIPBOX"

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Sandbox SandboxConfig `mapstructure:"sandbox"`
	Store   StoreConfig   `mapstructure:"store"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Transport         string `mapstructure:"transport"`
	HTTPPort          int    `mapstructure:"http_port"`
	EnableRebuildTool bool   `mapstructure:"enable_rebuild_tool"`
}

// SandboxConfig holds sandbox configuration
type SandboxConfig struct {
	Runtime             string `mapstructure:"runtime"`
	CPUs                string `mapstructure:"cpus"`
	Memory              string `mapstructure:"memory"`
	KernelMemory        string `mapstructure:"kernel_memory"`
	CompileTimeoutSec   int    `mapstructure:"compile_timeout_sec"`
	ExecutionTimeoutSec int    `mapstructure:"execution_timeout_sec"`
	ContainerTimeoutSec int    `mapstructure:"container_timeout_sec"`
	PollIntervalMS      int    `mapstructure:"poll_interval_ms"`
	SnippetsDir         string `mapstructure:"snippets_dir"`
	BuildDir            string `mapstructure:"build_dir"`
	BuildContext        string `mapstructure:"build_context"`
	BuildTimeoutSec     int    `mapstructure:"build_timeout_sec"`
	ProbeTimeoutSec     int    `mapstructure:"probe_timeout_sec"`
	VersionMaxLen       int    `mapstructure:"version_max_len"`
	ProbeOnStart        bool   `mapstructure:"probe_on_start"`
	PruneAfterProbe     bool   `mapstructure:"prune_after_probe"`
}

// StoreConfig holds usage statistics storage configuration
type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Mode  string `mapstructure:"mode"`
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// New loads config.yaml from the working directory or ./config, falling back
// to defaults when no file exists.
func New() (*Config, error) {
	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// If config file not found, continue with defaults
	}

	return load(v)
}

// NewFromFile loads configuration from an explicit file.
func NewFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return load(v)
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("server.transport", "stdio")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.enable_rebuild_tool", false)

	v.SetDefault("sandbox.runtime", sandbox.RuntimeDocker)
	v.SetDefault("sandbox.cpus", "0.5")
	v.SetDefault("sandbox.memory", "256m")
	v.SetDefault("sandbox.kernel_memory", "")
	v.SetDefault("sandbox.compile_timeout_sec", 30)
	v.SetDefault("sandbox.execution_timeout_sec", 10)
	v.SetDefault("sandbox.container_timeout_sec", 60)
	v.SetDefault("sandbox.poll_interval_ms", 250)
	v.SetDefault("sandbox.snippets_dir", "snippets")
	v.SetDefault("sandbox.build_dir", "images")
	v.SetDefault("sandbox.build_context", ".")
	v.SetDefault("sandbox.build_timeout_sec", 0)
	v.SetDefault("sandbox.probe_timeout_sec", 30)
	v.SetDefault("sandbox.version_max_len", 50)
	v.SetDefault("sandbox.probe_on_start", true)
	v.SetDefault("sandbox.prune_after_probe", false)

	v.SetDefault("store.enabled", true)
	v.SetDefault("store.path", "data/snipbox.db")

	v.SetDefault("logging.mode", "production")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

func load(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

// validate ensures the configuration is valid
func (c *Config) validate() error {
	if c.Server.Transport != "stdio" && c.Server.Transport != "http" {
		return fmt.Errorf("invalid server.transport: %s, must be 'stdio' or 'http'", c.Server.Transport)
	}

	if c.Server.Transport == "http" && (c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535) {
		return fmt.Errorf("invalid server.http_port: %d", c.Server.HTTPPort)
	}

	if c.Sandbox.Runtime != sandbox.RuntimeDocker && c.Sandbox.Runtime != sandbox.RuntimePodman {
		return fmt.Errorf("unsupported sandbox.runtime: %s, must be 'docker' or 'podman'", c.Sandbox.Runtime)
	}

	cpus, err := strconv.ParseFloat(c.Sandbox.CPUs, 64)
	if err != nil || cpus <= 0 {
		return fmt.Errorf("sandbox.cpus must be a positive number, got: %q", c.Sandbox.CPUs)
	}

	if _, err := units.RAMInBytes(c.Sandbox.Memory); err != nil {
		return fmt.Errorf("invalid sandbox.memory: %w", err)
	}

	if c.Sandbox.KernelMemory != "" {
		if _, err := units.RAMInBytes(c.Sandbox.KernelMemory); err != nil {
			return fmt.Errorf("invalid sandbox.kernel_memory: %w", err)
		}
	}

	positive := map[string]int{
		"sandbox.compile_timeout_sec":   c.Sandbox.CompileTimeoutSec,
		"sandbox.execution_timeout_sec": c.Sandbox.ExecutionTimeoutSec,
		"sandbox.container_timeout_sec": c.Sandbox.ContainerTimeoutSec,
		"sandbox.poll_interval_ms":      c.Sandbox.PollIntervalMS,
		"sandbox.probe_timeout_sec":     c.Sandbox.ProbeTimeoutSec,
	}
	for key, value := range positive {
		if value <= 0 {
			return fmt.Errorf("%s must be positive, got: %d", key, value)
		}
	}

	if c.Sandbox.BuildTimeoutSec < 0 {
		return fmt.Errorf("sandbox.build_timeout_sec must not be negative, got: %d", c.Sandbox.BuildTimeoutSec)
	}

	if c.Sandbox.SnippetsDir == "" {
		return errors.New("sandbox.snippets_dir must be set")
	}

	if c.Store.Enabled && c.Store.Path == "" {
		return errors.New("store.path must be set when the store is enabled")
	}

	if c.Logging.Mode != "production" && c.Logging.Mode != "development" {
		return fmt.Errorf("invalid logging.mode: %s, must be 'production' or 'development'", c.Logging.Mode)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "dpanic": true, "panic": true, "fatal": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	return nil
}

// Limits returns the container resource caps with memory sizes in bytes.
func (c *Config) Limits() sandbox.Limits {
	limits := sandbox.Limits{CPUs: c.Sandbox.CPUs}
	if n, err := units.RAMInBytes(c.Sandbox.Memory); err == nil {
		limits.Memory = strconv.FormatInt(n, 10)
	}
	if c.Sandbox.KernelMemory != "" {
		if n, err := units.RAMInBytes(c.Sandbox.KernelMemory); err == nil {
			limits.KernelMemory = strconv.FormatInt(n, 10)
		}
	}
	return limits
}

// Settings implements pipeline.SettingsProvider.
func (c *Config) Settings() pipeline.Settings {
	return pipeline.Settings{
		Limits:           c.Limits(),
		CompileTimeout:   seconds(c.Sandbox.CompileTimeoutSec),
		ExecutionTimeout: seconds(c.Sandbox.ExecutionTimeoutSec),
	}
}

// RuntimeConfig returns the container runtime settings.
func (c *Config) RuntimeConfig() sandbox.RuntimeConfig {
	return sandbox.RuntimeConfig{
		Runtime:        c.Sandbox.Runtime,
		PollInterval:   time.Duration(c.Sandbox.PollIntervalMS) * time.Millisecond,
		CommandTimeout: seconds(c.Sandbox.ContainerTimeoutSec),
	}
}

// ProbeOptions returns the registry probing settings.
func (c *Config) ProbeOptions() registry.ProbeOptions {
	return registry.ProbeOptions{
		BuildDir:      c.Sandbox.BuildDir,
		BuildContext:  c.Sandbox.BuildContext,
		BuildTimeout:  seconds(c.Sandbox.BuildTimeoutSec),
		ProbeTimeout:  seconds(c.Sandbox.ProbeTimeoutSec),
		VersionMaxLen: c.Sandbox.VersionMaxLen,
		PruneImages:   c.Sandbox.PruneAfterProbe,
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
