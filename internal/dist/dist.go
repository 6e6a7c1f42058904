package dist

import (
	"fmt"
	"regexp"
	"strings"
)

// Distribution represents an installed package found in the packages directory.
type Distribution struct {
	Name     string   // e.g., "requests", as declared in METADATA
	Version  string   // e.g., "2.31.0"
	Path     string   // path of the *.dist-info directory
	TopLevel []string // importable top-level module names
	Requires []string // raw Requires-Dist entries, e.g., "idna (<4,>=2.5)"
}

// Key returns the normalized package name.
func (d *Distribution) Key() string {
	return Normalize(d.Name)
}

// Requirement represents a package requirement.
type Requirement struct {
	Name    string
	Extras  []string // optional features, e.g., ["socks"]
	Version string   // e.g., ">=2.25.0,<3.0.0"; empty means any version
}

// Spec returns the argument handed to the package manager:
// the name, its extras in brackets and its constraint, e.g., "requests[socks]>=2".
func (r Requirement) Spec() string {
	return r.nameWithExtras() + r.Version
}

func (r Requirement) String() string {
	if r.Version == "" {
		return r.nameWithExtras()
	}
	return fmt.Sprintf("%s (%s)", r.nameWithExtras(), r.Version)
}

func (r Requirement) nameWithExtras() string {
	if len(r.Extras) == 0 {
		return r.Name
	}
	return r.Name + "[" + strings.Join(r.Extras, ",") + "]"
}

var (
	nameRe      = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9._-]*[A-Za-z0-9])?$`)
	separatorRe = regexp.MustCompile(`[-_.]+`)
)

// ValidName reports whether name is a valid package identifier.
func ValidName(name string) bool {
	return nameRe.MatchString(name)
}

// Normalize returns the canonical form of a package name:
// lowercase, with runs of "-", "_" and "." collapsed to a single "-".
func Normalize(name string) string {
	return separatorRe.ReplaceAllString(strings.ToLower(name), "-")
}

// ModuleDir returns the directory name of a package's importable module.
func ModuleDir(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}
