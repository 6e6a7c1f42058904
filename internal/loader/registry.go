package loader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/frederic-klein/addondeps/internal/dist"
)

const tracerName = "github.com/frederic-klein/addondeps/internal/loader"

// DefaultEntryFile is the entry file name looked up inside a package's module directory.
const DefaultEntryFile = "__init__.lua"

// Installed reports whether a package is present in the packages directory.
// *checker.Checker implements it.
type Installed interface {
	Check(name, constraint string) bool
}

// Recorder receives one observation per import ("loaded", "cached" or "failed").
type Recorder interface {
	ObserveImport(result string)
}

// Registry caches loaded modules by normalized package name. Entries live
// until Close; a module body is executed at most once per registry.
type Registry struct {
	dir       string
	entryFile string
	installed Installed
	loader    Loader
	logger    *zap.Logger
	tracer    trace.Tracer
	recorder  Recorder

	mu      sync.Mutex
	modules map[string]Module
	loading map[string]chan struct{} // closed when the load of that name returns
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithEntryFile overrides DefaultEntryFile.
func WithEntryFile(name string) Option {
	return func(r *Registry) {
		if name != "" {
			r.entryFile = name
		}
	}
}

// WithRecorder sets where import outcomes are counted.
func WithRecorder(rec Recorder) Option {
	return func(r *Registry) {
		r.recorder = rec
	}
}

// WithTracer overrides the global OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(r *Registry) {
		if t != nil {
			r.tracer = t
		}
	}
}

// NewRegistry creates a registry importing from the packages directory dir.
func NewRegistry(dir string, installed Installed, l Loader, opts ...Option) *Registry {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	r := &Registry{
		dir:       dir,
		entryFile: DefaultEntryFile,
		installed: installed,
		loader:    l,
		logger:    zap.NewNop(),
		tracer:    otel.Tracer(tracerName),
		modules:   make(map[string]Module),
		loading:   make(map[string]chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if b, ok := l.(interface{ Bind(Importer) }); ok {
		b.Bind(r)
	}
	return r
}

// Import returns the module for name, loading it on first use.
// Concurrent callers for the same name wait for the first load instead of
// running the body again. A caller arriving while the body executes, from
// inside it or from another goroutine, gets the registered module.
func (r *Registry) Import(ctx context.Context, name string) (Module, error) {
	ctx, span := r.tracer.Start(ctx, "loader.Import",
		trace.WithAttributes(attribute.String("package", name)))
	defer span.End()

	key := dist.Normalize(name)
	for {
		r.mu.Lock()
		if m, ok := r.modules[key]; ok {
			r.mu.Unlock()
			r.logger.Info(fmt.Sprintf("%q is already imported", name), zap.String("package", name))
			span.SetAttributes(attribute.Bool("cached", true))
			r.observe("cached")
			return m, nil
		}
		done, busy := r.loading[key]
		if !busy {
			done = make(chan struct{})
			r.loading[key] = done
			r.mu.Unlock()
			break
		}
		r.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m, err := r.load(ctx, name)

	r.mu.Lock()
	done := r.loading[key]
	delete(r.loading, key)
	r.mu.Unlock()
	close(done)

	if err != nil {
		r.logger.Error("Import failed", zap.String("package", name), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.observe("failed")
		return nil, err
	}

	r.logger.Info(fmt.Sprintf("%q is ready to be imported", name),
		zap.String("package", name),
		zap.String("path", m.Path()))
	r.observe("loaded")
	return m, nil
}

func (r *Registry) load(ctx context.Context, name string) (Module, error) {
	if !r.installed.Check(name, "") {
		return nil, fmt.Errorf("%q is %w", name, ErrNotInstalled)
	}

	path := r.EntryPath(name)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, &ImportError{Name: name, Err: fmt.Errorf("%w: %q", ErrEntryNotFound, path)}
		}
		return nil, &ImportError{Name: name, Err: err}
	}

	m, err := r.loader.NewModule(Spec{Name: name, Path: path})
	if err != nil {
		return nil, &ImportError{Name: name, Err: fmt.Errorf("%w for %q: %w", ErrInvalidSpec, name, err)}
	}
	if m == nil {
		return nil, &ImportError{Name: name, Err: fmt.Errorf("%w for %q", ErrInvalidSpec, name)}
	}

	key := dist.Normalize(name)
	r.mu.Lock()
	r.modules[key] = m
	r.mu.Unlock()

	// The lock is not held here: the body may import other packages, or this one.
	if err := r.loader.Exec(ctx, m); err != nil {
		r.mu.Lock()
		delete(r.modules, key)
		r.mu.Unlock()
		return nil, &ImportError{Name: name, Err: err}
	}

	return m, nil
}

// EntryPath returns the entry file path for a package name.
func (r *Registry) EntryPath(name string) string {
	return filepath.Join(r.dir, dist.ModuleDir(name), r.entryFile)
}

// Lookup returns a registered module without loading anything.
// A module whose body is still executing is returned as well.
func (r *Registry) Lookup(name string) (Module, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.modules[dist.Normalize(name)]
	return m, ok
}

// Names returns the normalized names of every registered module, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close drops every entry and closes the loader when it holds resources.
func (r *Registry) Close() error {
	r.mu.Lock()
	r.modules = make(map[string]Module)
	r.mu.Unlock()

	if c, ok := r.loader.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (r *Registry) observe(result string) {
	if r.recorder != nil {
		r.recorder.ObserveImport(result)
	}
}
