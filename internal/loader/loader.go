// Package loader imports installed packages into a module registry.
//
// A package is importable when the packages directory holds its
// distribution metadata and an entry file at
// <dir>/<name with "-" replaced by "_">/<entry file>. The Registry
// resolves that file, asks a Loader to build the module and executes
// it at most once; later imports return the cached module.
package loader

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotInstalled is returned when the package has no distribution in the packages directory.
	ErrNotInstalled = errors.New("not installed in the packages directory")
	// ErrImportSetupFailed matches every *ImportError.
	ErrImportSetupFailed = errors.New("import setup failed")
	// ErrEntryNotFound is the cause when the entry file is missing.
	ErrEntryNotFound = errors.New("package file not found")
	// ErrInvalidSpec is the cause when a Loader cannot build a module from its spec.
	ErrInvalidSpec = errors.New("could not create module spec")
)

// ImportError wraps any failure between locating the entry file and
// finishing execution of the module body.
type ImportError struct {
	Name string
	Err  error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("failed to setup %s: %v", e.Name, e.Err)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrImportSetupFailed) true for every ImportError.
func (e *ImportError) Is(target error) bool {
	return target == ErrImportSetupFailed
}

// Spec locates a module on disk.
type Spec struct {
	Name string // package name as requested
	Path string // absolute path of the entry file
}

// Module is a loaded (or loading) package.
type Module interface {
	Name() string
	Path() string
}

// Loader builds and executes modules. NewModule must not run the module
// body; the registry records the module before calling Exec so that
// imports of the same name made during execution see it.
type Loader interface {
	NewModule(spec Spec) (Module, error)
	Exec(ctx context.Context, m Module) error
}
