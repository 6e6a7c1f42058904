package index

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/frederic-klein/addondeps/internal/dist"
	"github.com/frederic-klein/addondeps/internal/metadata"
)

// Entry is one *.dist-info directory found in the packages directory.
// Err is set when the directory's metadata could not be read; Dist then
// carries the name and version recovered from the directory name.
type Entry struct {
	Dist *dist.Distribution
	Err  error
}

// LocalIndex provides lookup of distributions installed in a packages directory.
type LocalIndex struct {
	dir     string
	entries map[string][]Entry
}

// NewLocalIndex creates an index over dir. Call Load before Lookup.
func NewLocalIndex(dir string) *LocalIndex {
	return &LocalIndex{
		dir:     dir,
		entries: make(map[string][]Entry),
	}
}

// Load scans the packages directory. A missing directory yields an empty index.
func (idx *LocalIndex) Load() error {
	idx.entries = make(map[string][]Entry)

	dirEntries, err := os.ReadDir(idx.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading packages directory: %w", err)
	}

	for _, de := range dirEntries {
		if !de.IsDir() {
			continue
		}
		name, ver, ok := metadata.ParseDirName(de.Name())
		if !ok {
			continue
		}

		path := filepath.Join(idx.dir, de.Name())
		d, err := metadata.ReadDistInfo(path)
		if err != nil {
			d = &dist.Distribution{Name: name, Version: ver, Path: path}
		}
		key := d.Key()
		idx.entries[key] = append(idx.entries[key], Entry{Dist: d, Err: err})
	}

	return nil
}

// Lookup returns every entry recorded for a package name.
// More than one entry means the directory holds conflicting installs.
func (idx *LocalIndex) Lookup(name string) []Entry {
	return idx.entries[dist.Normalize(name)]
}

// Distributions returns the readable distributions sorted by name.
func (idx *LocalIndex) Distributions() []*dist.Distribution {
	var dists []*dist.Distribution
	for _, entries := range idx.entries {
		for _, e := range entries {
			if e.Err == nil {
				dists = append(dists, e.Dist)
			}
		}
	}
	sort.Slice(dists, func(i, j int) bool {
		if dists[i].Key() != dists[j].Key() {
			return dists[i].Key() < dists[j].Key()
		}
		return dists[i].Version < dists[j].Version
	})
	return dists
}

// Dir returns the packages directory.
func (idx *LocalIndex) Dir() string {
	return idx.dir
}
