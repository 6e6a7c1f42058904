package metadata

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/frederic-klein/addondeps/internal/dist"
)

// DistInfoSuffix marks the metadata directory pip writes next to each installed package.
const DistInfoSuffix = ".dist-info"

// ErrNoMetadata is returned when a dist-info directory has no METADATA file.
var ErrNoMetadata = errors.New("no METADATA file")

// Metadata represents the core fields of a METADATA (or PKG-INFO) file.
type Metadata struct {
	MetadataVersion string
	Name            string
	Version         string
	Summary         string
	RequiresDist    []string
	RequiresPython  string
}

// Parse reads the header block of a METADATA file. The free-form
// description that follows the first blank line is ignored.
func Parse(r io.Reader) (*Metadata, error) {
	tp := textproto.NewReader(bufio.NewReader(r))
	header, err := tp.ReadMIMEHeader()
	if err != nil && !(errors.Is(err, io.EOF) && len(header) > 0) {
		return nil, fmt.Errorf("parsing METADATA: %w", err)
	}

	meta := &Metadata{
		MetadataVersion: header.Get("Metadata-Version"),
		Name:            strings.TrimSpace(header.Get("Name")),
		Version:         strings.TrimSpace(header.Get("Version")),
		Summary:         header.Get("Summary"),
		RequiresDist:    header.Values("Requires-Dist"),
		RequiresPython:  header.Get("Requires-Python"),
	}
	if meta.Name == "" {
		return nil, fmt.Errorf("parsing METADATA: missing Name")
	}
	if meta.Version == "" {
		return nil, fmt.Errorf("parsing METADATA: missing Version")
	}
	return meta, nil
}

// ParseDirName splits "requests-2.31.0.dist-info" into its name and version.
func ParseDirName(base string) (name, version string, ok bool) {
	stem, found := strings.CutSuffix(base, DistInfoSuffix)
	if !found {
		return "", "", false
	}
	name, version, ok = strings.Cut(stem, "-")
	if !ok || name == "" || version == "" {
		return "", "", false
	}
	return name, version, true
}

// ReadDistInfo reads METADATA and top_level.txt from a dist-info directory.
func ReadDistInfo(dir string) (*dist.Distribution, error) {
	file, err := os.Open(filepath.Join(dir, "METADATA"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", dir, ErrNoMetadata)
		}
		return nil, fmt.Errorf("opening METADATA: %w", err)
	}
	defer file.Close()

	meta, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dir, err)
	}

	d := &dist.Distribution{
		Name:     meta.Name,
		Version:  meta.Version,
		Path:     dir,
		Requires: meta.RequiresDist,
	}

	topLevel, err := readTopLevel(filepath.Join(dir, "top_level.txt"))
	if err != nil {
		return nil, err
	}
	d.TopLevel = topLevel

	return d, nil
}

func readTopLevel(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening top_level.txt: %w", err)
	}
	defer file.Close()

	var names []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if name := strings.TrimSpace(scanner.Text()); name != "" {
			names = append(names, name)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading top_level.txt: %w", err)
	}
	return names, nil
}
