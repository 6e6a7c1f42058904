package checker

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/frederic-klein/addondeps/internal/dist"
	"github.com/frederic-klein/addondeps/internal/index"
	"github.com/frederic-klein/addondeps/internal/version"
)

// Status is the outcome of inspecting one package.
type Status int

const (
	// Absent means no distribution of that name is installed.
	Absent Status = iota
	// Conflicting means the packages directory holds more than one
	// distribution of that name, or its metadata cannot be read.
	Conflicting
	// Unsatisfied means the package is installed but its version
	// does not match the constraint.
	Unsatisfied
	// Satisfied means the package is installed with a matching version.
	Satisfied
)

func (s Status) String() string {
	switch s {
	case Absent:
		return "absent"
	case Conflicting:
		return "conflicting"
	case Unsatisfied:
		return "unsatisfied"
	case Satisfied:
		return "satisfied"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Result describes the installed state of a package.
type Result struct {
	Status   Status
	Dist     *dist.Distribution // set unless Absent
	Versions []string           // every version found, for Conflicting
}

// Recorder receives one observation per inspected package.
type Recorder interface {
	ObserveCheck(status string)
}

// Checker answers version queries against a packages directory.
// Every query rescans the directory so it sees installs made since the last call.
type Checker struct {
	dir      string
	logger   *zap.Logger
	recorder Recorder
}

// New creates a checker for dir. A nil logger disables logging.
func New(dir string, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{dir: dir, logger: logger}
}

// WithRecorder sets where check outcomes are counted.
func (c *Checker) WithRecorder(r Recorder) *Checker {
	c.recorder = r
	return c
}

// Dir returns the packages directory.
func (c *Checker) Dir() string {
	return c.dir
}

// Inspect reports whether name is installed and satisfies constraint.
// It only returns an error for an invalid name or constraint, or an unreadable directory.
func (c *Checker) Inspect(name, constraint string) (Result, error) {
	if !dist.ValidName(name) {
		return Result{}, fmt.Errorf("invalid package name %q", name)
	}
	cons, err := version.ParseConstraint(constraint)
	if err != nil {
		return Result{}, err
	}

	idx := index.NewLocalIndex(c.dir)
	if err := idx.Load(); err != nil {
		return Result{}, err
	}

	res := evaluate(idx.Lookup(name), cons)
	if c.recorder != nil {
		c.recorder.ObserveCheck(res.Status.String())
	}
	c.logger.Debug("Checked package",
		zap.String("package", name),
		zap.String("constraint", constraint),
		zap.Stringer("status", res.Status))
	return res, nil
}

func evaluate(entries []index.Entry, cons *version.Constraint) Result {
	if len(entries) == 0 {
		return Result{Status: Absent}
	}

	res := Result{Dist: entries[0].Dist}
	for _, e := range entries {
		res.Versions = append(res.Versions, e.Dist.Version)
	}

	if len(entries) > 1 {
		res.Status = Conflicting
		return res
	}
	if entries[0].Err != nil {
		res.Status = Conflicting
		return res
	}

	if cons.Check(res.Dist.Version) {
		res.Status = Satisfied
	} else {
		res.Status = Unsatisfied
	}
	return res
}

// Check reports whether name is installed and, when constraint is
// non-empty, whether its version satisfies it. Absent, conflicting and
// invalid queries are all reported as false.
func (c *Checker) Check(name, constraint string) bool {
	res, err := c.Inspect(name, constraint)
	if err != nil {
		c.logger.Warn("Version check failed",
			zap.String("package", name),
			zap.Error(err))
		return false
	}
	return res.Status == Satisfied
}
