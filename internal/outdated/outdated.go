// Package outdated compares installed package versions with the latest
// releases on the package index.
package outdated

import (
	"context"
	"sync"

	"github.com/frederic-klein/addondeps/internal/dist"
	"github.com/frederic-klein/addondeps/internal/index"
	"github.com/frederic-klein/addondeps/internal/version"
)

// Index returns the latest release of a package. *index.PyPIIndex implements it.
type Index interface {
	Latest(ctx context.Context, name string) (*index.Release, error)
}

// Job is one package to look up.
type Job struct {
	Requirement dist.Requirement
	Installed   string // empty when not installed
}

// Report is the lookup result for one Job.
type Report struct {
	Name       string
	Constraint string
	Installed  string
	Latest     string
	Error      error
}

// Outdated reports whether a newer release than the installed one exists.
func (r Report) Outdated() bool {
	return r.Error == nil && r.Installed != "" && version.Compare(r.Installed, r.Latest) < 0
}

// Allowed reports whether the latest release satisfies the constraint.
func (r Report) Allowed() bool {
	return r.Error == nil && version.Satisfies(r.Latest, r.Constraint)
}

// Checker looks up releases in parallel.
type Checker struct {
	workers int
	index   Index
}

// NewChecker creates a checker with the specified number of workers.
func NewChecker(workers int, idx Index) *Checker {
	if workers < 1 {
		workers = 1
	}
	return &Checker{workers: workers, index: idx}
}

// Check looks up every job. Reports are returned in job order.
func (c *Checker) Check(ctx context.Context, jobs []Job) []Report {
	reports := make([]Report, len(jobs))
	jobChan := make(chan int, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range jobChan {
				reports[n] = c.checkOne(ctx, jobs[n])
			}
		}()
	}

	for n := range jobs {
		jobChan <- n
	}
	close(jobChan)
	wg.Wait()

	return reports
}

func (c *Checker) checkOne(ctx context.Context, job Job) Report {
	report := Report{
		Name:       job.Requirement.Name,
		Constraint: job.Requirement.Version,
		Installed:  job.Installed,
	}
	if err := ctx.Err(); err != nil {
		report.Error = err
		return report
	}

	release, err := c.index.Latest(ctx, job.Requirement.Name)
	if err != nil {
		report.Error = err
		return report
	}
	report.Latest = release.Version
	return report
}
