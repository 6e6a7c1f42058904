package installer

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInstallationFailed matches every *InstallError.
var ErrInstallationFailed = errors.New("installation failed")

// InstallError reports a package manager run that did not succeed.
type InstallError struct {
	Package  string
	Args     []string
	ExitCode int // -1 when the process did not exit normally
	Err      error
}

func (e *InstallError) Error() string {
	if e.ExitCode > 0 {
		return fmt.Sprintf("installing %s: %s exited with status %d", e.Package, strings.Join(e.Args, " "), e.ExitCode)
	}
	return fmt.Sprintf("installing %s: %v", e.Package, e.Err)
}

func (e *InstallError) Unwrap() error {
	return e.Err
}

func (e *InstallError) Is(target error) bool {
	return target == ErrInstallationFailed
}
