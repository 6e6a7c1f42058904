package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/frederic-klein/addondeps/internal/checker"
	"github.com/frederic-klein/addondeps/internal/config"
	"github.com/frederic-klein/addondeps/internal/installer"
	"github.com/frederic-klein/addondeps/internal/loader"
	"github.com/frederic-klein/addondeps/internal/metrics"
	"github.com/frederic-klein/addondeps/internal/procrun"
)

// app holds what every command needs.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	promReg  *prometheus.Registry
	metrics  *metrics.Metrics
	checker  *checker.Checker
	registry *loader.Registry
}

func newApp(cmd *cobra.Command) (*app, error) {
	if err := config.LoadDotenv(".env"); err != nil {
		return nil, err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := newLogger(verbose, jsonLogs)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	promReg := prometheus.NewRegistry()
	m := metrics.New(metrics.WithRegistry(promReg))

	chk := checker.New(cfg.PackagesDir, logger).WithRecorder(m)
	registry := loader.NewRegistry(cfg.PackagesDir, chk, loader.NewLuaLoader(),
		loader.WithLogger(logger),
		loader.WithEntryFile(cfg.EntryFile),
		loader.WithRecorder(m))

	return &app{
		cfg:      cfg,
		logger:   logger,
		promReg:  promReg,
		metrics:  m,
		checker:  chk,
		registry: registry,
	}, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("packages-dir") {
		cfg.PackagesDir = packagesDir
	}
	if flags.Changed("python") {
		cfg.Python = python
	}
	if flags.Changed("timeout") {
		cfg.Timeout = timeout
	}
}

func newLogger(verbose, json bool) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if json {
		zcfg = zap.NewProductionConfig()
	}
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

func (a *app) installer() *installer.Installer {
	runner := &procrun.Runner{
		Timeout:      a.cfg.Timeout,
		MaxLineBytes: a.cfg.MaxLineBytes,
		Buffer:       a.cfg.LineBuffer,
	}
	return installer.New(a.cfg.PackagesDir, a.checker, a.registry,
		installer.WithPython(a.cfg.Python, a.cfg.PipArgs...),
		installer.WithExtraArgs(a.cfg.ExtraArgs...),
		installer.WithRunner(runner),
		installer.WithLogger(a.logger),
		installer.WithRecorder(a.metrics))
}

// close releases the module registry, flushes the logger and writes
// the metrics file when one was requested.
func (a *app) close() error {
	var errs []error
	if err := a.registry.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing module registry: %w", err))
	}
	_ = a.logger.Sync()
	if metricsFile != "" {
		if err := prometheus.WriteToTextfile(metricsFile, a.promReg); err != nil {
			errs = append(errs, fmt.Errorf("writing metrics: %w", err))
		}
	}
	return errors.Join(errs...)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}
