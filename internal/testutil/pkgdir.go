// Package testutil builds packages directories laid out the way
// "pip install --target" leaves them.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/frederic-klein/addondeps/internal/dist"
)

// WriteDist creates <dir>/<name>-<version>.dist-info with a METADATA file.
func WriteDist(dir, name, version string) (string, error) {
	distInfo := filepath.Join(dir, fmt.Sprintf("%s-%s.dist-info", dist.ModuleDir(name), version))
	if err := os.MkdirAll(distInfo, 0755); err != nil {
		return "", err
	}
	meta := fmt.Sprintf("Metadata-Version: 2.1\nName: %s\nVersion: %s\n\n", name, version)
	if err := os.WriteFile(filepath.Join(distInfo, "METADATA"), []byte(meta), 0644); err != nil {
		return "", err
	}
	topLevel := dist.ModuleDir(name) + "\n"
	if err := os.WriteFile(filepath.Join(distInfo, "top_level.txt"), []byte(topLevel), 0644); err != nil {
		return "", err
	}
	return distInfo, nil
}

// WriteEntry creates <dir>/<module dir>/<entryFile> holding body.
func WriteEntry(dir, name, entryFile, body string) (string, error) {
	modDir := filepath.Join(dir, dist.ModuleDir(name))
	if err := os.MkdirAll(modDir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(modDir, entryFile)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		return "", err
	}
	return path, nil
}

// TB is the subset of testing.TB used by the helpers below.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
}

// InstallPackage writes both the dist-info directory and a Lua entry file
// that exports the package name and version.
func InstallPackage(t TB, dir, name, version, entryFile string) {
	t.Helper()
	if _, err := WriteDist(dir, name, version); err != nil {
		t.Fatalf("writing dist-info for %s: %v", name, err)
	}
	body := fmt.Sprintf("return { name = %q, version = %q }\n", name, version)
	if _, err := WriteEntry(dir, name, entryFile, body); err != nil {
		t.Fatalf("writing entry for %s: %v", name, err)
	}
}
