// Package installer installs an addon's requirement set into its packages
// directory and imports each package once it is present.
package installer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/frederic-klein/addondeps/internal/dist"
	"github.com/frederic-klein/addondeps/internal/loader"
	"github.com/frederic-klein/addondeps/internal/procrun"
)

const tracerName = "github.com/frederic-klein/addondeps/internal/installer"

// DefaultPython is the interpreter that runs the package manager.
const DefaultPython = "python3"

// DefaultPipArgs select pip's install command.
var DefaultPipArgs = []string{"-m", "pip", "install"}

// Checker reports whether a requirement is already satisfied.
type Checker interface {
	Check(name, constraint string) bool
}

// Importer loads an installed package. *loader.Registry implements it.
type Importer interface {
	Import(ctx context.Context, name string) (loader.Module, error)
}

// Recorder receives one observation per requirement
// ("installed", "skipped" or "failed") with the package manager run time.
type Recorder interface {
	ObserveInstall(result string, d time.Duration)
}

// Installer runs the package manager for missing requirements.
type Installer struct {
	dir       string
	python    string
	pipArgs   []string
	extraArgs []string
	checker   Checker
	importer  Importer
	runner    *procrun.Runner
	logger    *zap.Logger
	tracer    trace.Tracer
	recorder  Recorder
}

// Option configures an Installer.
type Option func(*Installer)

// WithPython sets the interpreter and, when given, the arguments that
// select the install command.
func WithPython(python string, pipArgs ...string) Option {
	return func(i *Installer) {
		if python != "" {
			i.python = python
		}
		if len(pipArgs) > 0 {
			i.pipArgs = pipArgs
		}
	}
}

// WithExtraArgs appends arguments after --target and before the package spec.
func WithExtraArgs(args ...string) Option {
	return func(i *Installer) {
		i.extraArgs = args
	}
}

// WithRunner sets the subprocess runner.
func WithRunner(r *procrun.Runner) Option {
	return func(i *Installer) {
		if r != nil {
			i.runner = r
		}
	}
}

// WithLogger sets the installer's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(i *Installer) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithRecorder sets where install outcomes are counted.
func WithRecorder(rec Recorder) Option {
	return func(i *Installer) {
		i.recorder = rec
	}
}

// WithTracer overrides the global OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(i *Installer) {
		if t != nil {
			i.tracer = t
		}
	}
}

// New creates an installer targeting the packages directory dir.
func New(dir string, checker Checker, importer Importer, opts ...Option) *Installer {
	i := &Installer{
		dir:      dir,
		python:   DefaultPython,
		pipArgs:  DefaultPipArgs,
		checker:  checker,
		importer: importer,
		runner:   &procrun.Runner{},
		logger:   zap.NewNop(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// CommandLine returns the package manager invocation for req.
func (i *Installer) CommandLine(req dist.Requirement) []string {
	argv := make([]string, 0, len(i.pipArgs)+len(i.extraArgs)+4)
	argv = append(argv, i.python)
	argv = append(argv, i.pipArgs...)
	argv = append(argv, "--target", i.dir)
	argv = append(argv, i.extraArgs...)
	return append(argv, req.Spec())
}

// InstallAll processes reqs in order. The first failure aborts the pass.
func (i *Installer) InstallAll(ctx context.Context, reqs []dist.Requirement) error {
	ctx, span := i.tracer.Start(ctx, "installer.InstallAll",
		trace.WithAttributes(attribute.Int("packages", len(reqs))))
	defer span.End()

	for _, req := range reqs {
		if err := i.Install(ctx, req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}

	i.logger.Info("Packages up to date", zap.Int("packages", len(reqs)))
	return nil
}

// Install makes sure req is present, then imports it.
func (i *Installer) Install(ctx context.Context, req dist.Requirement) error {
	ctx, span := i.tracer.Start(ctx, "installer.Install",
		trace.WithAttributes(
			attribute.String("package", req.Name),
			attribute.String("constraint", req.Version)))
	defer span.End()

	log := i.logger.With(zap.String("package", req.Name))
	log.Info(fmt.Sprintf("Installing %s ...", banner(req)))

	if i.checker.Check(req.Name, req.Version) {
		log.Info(fmt.Sprintf("%q already installed with compatible version", req.Name))
		i.observe("skipped", 0)
	} else {
		start := time.Now()
		if err := i.run(ctx, req, log); err != nil {
			log.Error("Installation failed", zap.Error(err))
			i.observe("failed", time.Since(start))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		log.Info(fmt.Sprintf("%q installed successfully", req.Name),
			zap.Duration("elapsed", time.Since(start)))
		i.observe("installed", time.Since(start))
	}

	if _, err := i.importer.Import(ctx, req.Name); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (i *Installer) run(ctx context.Context, req dist.Requirement, log *zap.Logger) error {
	argv := i.CommandLine(req)
	log.Debug("Running package manager", zap.Strings("args", argv))

	err := i.runner.Run(ctx, argv, func(l procrun.Line) {
		log.Info(l.Text, zap.String("stream", string(l.Stream)))
	})
	if err == nil {
		return nil
	}

	ierr := &InstallError{Package: req.Name, Args: argv, ExitCode: -1, Err: err}
	var exitErr *procrun.ExitError
	if errors.As(err, &exitErr) {
		ierr.ExitCode = exitErr.Code
	}
	return ierr
}

func (i *Installer) observe(result string, d time.Duration) {
	if i.recorder != nil {
		i.recorder.ObserveInstall(result, d)
	}
}

func banner(req dist.Requirement) string {
	if req.Version == "" {
		return fmt.Sprintf("%q", req.Name)
	}
	return fmt.Sprintf("%q (%s)", req.Name, req.Version)
}
