package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	configPath  string
	packagesDir string
	python      string
	timeout     time.Duration
	verbose     bool
	jsonLogs    bool
	metricsFile string

	requirementsPath string
	snapshotPath     string
	dryRun           bool
	workers          int
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "addondeps",
		Short:        "Installs and loads the third-party packages of an addon",
		Long:         "addondeps keeps an addon's packages in a private directory: it checks installed versions, runs pip for anything missing and loads each package's entry module.",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "addondeps.yaml", "Config file path")
	rootCmd.PersistentFlags().StringVarP(&packagesDir, "packages-dir", "d", "", "Packages directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&python, "python", "", "Python interpreter (overrides config)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Timeout per package manager run (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Log as JSON")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")

	installCmd := &cobra.Command{
		Use:   "install",
		Short: "Install missing packages and import them",
		Args:  cobra.NoArgs,
		RunE:  runInstall,
	}
	installCmd.Flags().StringVarP(&requirementsPath, "file", "f", "packages.yaml", "Requirements file (.yaml or requirements.txt)")
	installCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the package manager commands without running them")

	checkCmd := &cobra.Command{
		Use:   "check NAME [CONSTRAINT]",
		Short: "Check whether a package is installed with a matching version",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runCheck,
	}

	importCmd := &cobra.Command{
		Use:   "import NAME...",
		Short: "Import installed packages and list their exports",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runImport,
	}

	freezeCmd := &cobra.Command{
		Use:   "freeze",
		Short: "Write a snapshot of the installed distributions",
		Args:  cobra.NoArgs,
		RunE:  runFreeze,
	}
	freezeCmd.Flags().StringVarP(&snapshotPath, "output", "o", "packages.snapshot", "Output snapshot path (- for stdout)")

	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Compare the packages directory with a snapshot",
		Args:  cobra.NoArgs,
		RunE:  runVerify,
	}
	verifyCmd.Flags().StringVarP(&snapshotPath, "snapshot", "s", "packages.snapshot", "Snapshot path")

	outdatedCmd := &cobra.Command{
		Use:   "outdated",
		Short: "Compare installed versions with the latest releases on the index",
		Args:  cobra.NoArgs,
		RunE:  runOutdated,
	}
	outdatedCmd.Flags().StringVarP(&requirementsPath, "file", "f", "packages.yaml", "Requirements file (.yaml or requirements.txt)")
	outdatedCmd.Flags().IntVarP(&workers, "workers", "w", 5, "Parallel index lookups")

	rootCmd.AddCommand(installCmd, checkCmd, importCmd, freezeCmd, verifyCmd, outdatedCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
