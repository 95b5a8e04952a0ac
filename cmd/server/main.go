package main

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/isdmx/snipbox/config"
	"github.com/isdmx/snipbox/language"
	"github.com/isdmx/snipbox/logger"
	"github.com/isdmx/snipbox/mcpserver"
	"github.com/isdmx/snipbox/pipeline"
	"github.com/isdmx/snipbox/registry"
	"github.com/isdmx/snipbox/sandbox"
	"github.com/isdmx/snipbox/store"
)

func main() {
	app := fx.New(
		// Provide dependencies
		fx.Provide(
			// Config
			config.New,

			// Logger with configuration
			logger.NewFromConfig,

			// Container runtime and language catalog
			newRuntime,
			newRegistry,

			// Usage statistics, nil when disabled
			newStore,

			// Snippet execution
			newPipeline,

			// MCP Server
			newServer,
		),

		fx.Invoke(registerProbe, registerTransport),

		// Use the application logger for fx logs
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
	)

	// Start the application
	app.Run()
}

func newRuntime(cfg *config.Config, log *zap.Logger) (*sandbox.ContainerCLI, error) {
	return sandbox.NewRuntime(log, cfg.RuntimeConfig())
}

func newRegistry(cfg *config.Config, log *zap.Logger, rt *sandbox.ContainerCLI) (*registry.Registry, error) {
	return registry.New(log.Named("registry"), language.All(),
		registry.WithImageBuilder(rt),
		registry.WithProbeOptions(cfg.ProbeOptions()),
	)
}

func newStore(lc fx.Lifecycle, cfg *config.Config) (*store.Store, error) {
	if !cfg.Store.Enabled {
		return nil, nil
	}

	st, err := store.Open(context.Background(), cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(st.Close))
	return st, nil
}

func newPipeline(cfg *config.Config, log *zap.Logger, reg *registry.Registry, rt *sandbox.ContainerCLI, st *store.Store) *pipeline.Pipeline {
	opts := []pipeline.Option{pipeline.WithCleanupTimeout(cfg.RuntimeConfig().CommandTimeout)}
	if st != nil {
		opts = append(opts, pipeline.WithRecorder(st))
	}
	scratch := sandbox.NewScratch(cfg.Sandbox.SnippetsDir, sandbox.RealFileSystem{})
	return pipeline.New(log.Named("pipeline"), reg, rt, scratch, cfg, opts...)
}

func newServer(cfg *config.Config, log *zap.Logger, p *pipeline.Pipeline, reg *registry.Registry, st *store.Store) (*mcpserver.MCPServer, error) {
	var stats mcpserver.StatsSource
	if st != nil {
		stats = st
	}
	return mcpserver.New(cfg, log, p, reg, stats)
}

// registerProbe runs the startup probing pass in the background so the
// transport is up while images build.
func registerProbe(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, reg *registry.Registry) {
	if !cfg.Sandbox.ProbeOnStart {
		log.Info("startup probing disabled, every language stays unavailable until a rebuild")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := reg.Rebuild(ctx); err != nil {
					log.Error("startup probing failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

func registerTransport(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, server *mcpserver.MCPServer, shutdowner fx.Shutdowner) error {
	var serve func() error
	switch cfg.Server.Transport {
	case "stdio":
		serve = server.ServeStdio
	case "http":
		serve = server.ServeHTTP
	default:
		return fmt.Errorf("unsupported transport: %s", cfg.Server.Transport)
	}

	lc.Append(fx.StartHook(func() {
		go func() {
			if err := serve(); err != nil {
				log.Error("transport stopped", zap.Error(err))
			}
			_ = shutdowner.Shutdown()
		}()
	}))
	return nil
}
