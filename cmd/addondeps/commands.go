package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/frederic-klein/addondeps/internal/checker"
	"github.com/frederic-klein/addondeps/internal/dist"
	"github.com/frederic-klein/addondeps/internal/index"
	"github.com/frederic-klein/addondeps/internal/loader"
	"github.com/frederic-klein/addondeps/internal/outdated"
	"github.com/frederic-klein/addondeps/internal/requirements"
	"github.com/frederic-klein/addondeps/internal/snapshot"
)

func runInstall(cmd *cobra.Command, args []string) (err error) {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, a.close()) }()

	reqs, err := requirements.NewParser().Parse(requirementsPath)
	if err != nil {
		return fmt.Errorf("parsing requirements: %w", err)
	}
	if len(reqs) == 0 {
		return fmt.Errorf("no requirements found in %s", requirementsPath)
	}
	a.logger.Debug("Parsed requirements",
		zap.String("file", requirementsPath),
		zap.Int("count", len(reqs)))

	inst := a.installer()
	if dryRun {
		for _, req := range reqs {
			if a.checker.Check(req.Name, req.Version) {
				fmt.Printf("# %s already installed\n", req)
				continue
			}
			fmt.Println(strings.Join(inst.CommandLine(req), " "))
		}
		return nil
	}

	if err := os.MkdirAll(a.cfg.PackagesDir, 0755); err != nil {
		return fmt.Errorf("creating packages directory: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()
	return inst.InstallAll(ctx, reqs)
}

func runCheck(cmd *cobra.Command, args []string) (err error) {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, a.close()) }()

	name, constraint := args[0], ""
	if len(args) == 2 {
		constraint = args[1]
	}

	res, err := a.checker.Inspect(name, constraint)
	if err != nil {
		return err
	}

	switch res.Status {
	case checker.Absent:
		fmt.Printf("%s: %s\n", name, res.Status)
	case checker.Conflicting:
		fmt.Printf("%s: %s (%s)\n", name, res.Status, strings.Join(res.Versions, ", "))
	default:
		fmt.Printf("%s: %s (%s)\n", name, res.Status, res.Dist.Version)
	}

	if res.Status != checker.Satisfied {
		return fmt.Errorf("%s is %s", name, res.Status)
	}
	return nil
}

func runImport(cmd *cobra.Command, args []string) (err error) {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, a.close()) }()

	ctx, cancel := signalContext()
	defer cancel()

	for _, name := range args {
		m, err := a.registry.Import(ctx, name)
		if err != nil {
			return err
		}
		fmt.Printf("%s  %s\n", m.Name(), m.Path())
		if lm, ok := m.(*loader.LuaModule); ok {
			for _, key := range lm.Keys() {
				fmt.Printf("  %s = %s\n", key, lm.Get(key).String())
			}
		}
	}
	return nil
}

func runFreeze(cmd *cobra.Command, args []string) (err error) {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, a.close()) }()

	dists, err := installed(a.cfg.PackagesDir)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if snapshotPath != "-" {
		outFile, err := os.Create(snapshotPath)
		if err != nil {
			return fmt.Errorf("creating snapshot file: %w", err)
		}
		defer outFile.Close()
		w = outFile
	}

	if err := snapshot.NewEmitter(w).Emit(dists); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}

	if snapshotPath != "-" {
		fmt.Printf("Generated %s with %d distributions\n", snapshotPath, len(dists))
	}
	return nil
}

func runVerify(cmd *cobra.Command, args []string) (err error) {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, a.close()) }()

	f, err := os.Open(snapshotPath)
	if err != nil {
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	want, err := snapshot.NewParser(f).Parse()
	if err != nil {
		return fmt.Errorf("parsing snapshot: %w", err)
	}
	got, err := installed(a.cfg.PackagesDir)
	if err != nil {
		return err
	}

	diff := snapshot.Diff(want, got)
	for _, m := range diff {
		fmt.Println(m)
	}
	if len(diff) > 0 {
		return fmt.Errorf("%s does not match %s: %d differences", a.cfg.PackagesDir, snapshotPath, len(diff))
	}
	fmt.Printf("%s matches %s (%d distributions)\n", a.cfg.PackagesDir, snapshotPath, len(want))
	return nil
}

func runOutdated(cmd *cobra.Command, args []string) (err error) {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, a.close()) }()

	reqs, err := requirements.NewParser().Parse(requirementsPath)
	if err != nil {
		return fmt.Errorf("parsing requirements: %w", err)
	}

	local := index.NewLocalIndex(a.cfg.PackagesDir)
	if err := local.Load(); err != nil {
		return fmt.Errorf("scanning %s: %w", a.cfg.PackagesDir, err)
	}

	jobs := make([]outdated.Job, 0, len(reqs))
	for _, req := range reqs {
		job := outdated.Job{Requirement: req}
		if entries := local.Lookup(req.Name); len(entries) == 1 && entries[0].Err == nil {
			job.Installed = entries[0].Dist.Version
		}
		jobs = append(jobs, job)
	}

	ctx, cancel := signalContext()
	defer cancel()

	a.logger.Debug("Querying package index",
		zap.String("url", a.cfg.IndexURL),
		zap.Int("packages", len(jobs)))
	reports := outdated.NewChecker(workers, index.NewPyPIIndex(a.cfg.IndexURL)).Check(ctx, jobs)

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PACKAGE\tCONSTRAINT\tINSTALLED\tLATEST\tSTATUS")
	var failed int
	for _, r := range reports {
		status := "up to date"
		switch {
		case r.Error != nil:
			status = "error: " + r.Error.Error()
			failed++
		case r.Installed == "":
			status = "not installed"
		case r.Outdated() && !r.Allowed():
			status = "outdated (held back by constraint)"
		case r.Outdated():
			status = "outdated"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Name, orDash(r.Constraint), orDash(r.Installed), orDash(r.Latest), status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d lookups failed", failed)
	}
	return nil
}

func installed(dir string) ([]*dist.Distribution, error) {
	local := index.NewLocalIndex(dir)
	if err := local.Load(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	return local.Distributions(), nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
