package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/isdmx/snipbox/config"
	"github.com/isdmx/snipbox/language"
	"github.com/isdmx/snipbox/logger"
	"github.com/isdmx/snipbox/registry"
	"github.com/isdmx/snipbox/sandbox"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := pflag.StringP("config", "c", "", "path to config file (default: ./config.yaml or ./config/config.yaml)")
	prune := pflag.Bool("prune", false, "remove dangling images after building")
	pflag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.NewFromFile(*configPath)
	} else {
		cfg, err = config.New()
	}
	if err != nil {
		return err
	}

	log, err := logger.NewFromConfig(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	rt, err := sandbox.NewRuntime(log, cfg.RuntimeConfig())
	if err != nil {
		return err
	}

	opts := cfg.ProbeOptions()
	opts.PruneImages = opts.PruneImages || *prune
	reg, err := registry.New(log.Named("registry"), language.All(),
		registry.WithImageBuilder(rt),
		registry.WithProbeOptions(opts),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := reg.Rebuild(ctx); err != nil {
		return fmt.Errorf("probing failed: %w", err)
	}

	out, err := yaml.Marshal(reg.Languages())
	if err != nil {
		return err
	}
	fmt.Print(string(out))

	if len(reg.AvailableCodes()) == 0 {
		log.Error("no language image could be built", zap.String("build_dir", opts.BuildDir))
		return fmt.Errorf("no languages available")
	}
	return nil
}
