// Package requirements reads the ordered requirement set of an addon.
//
// Two formats are accepted, chosen by file extension:
//
//	# packages.yaml
//	requests:
//	  version: ">=2.25.0,<3.0.0"
//	numpy: {}
//	scipy: "==1.15.2"
//	urllib3:
//	  extras: [socks]
//
//	# requirements.txt
//	requests>=2.25.0,<3.0.0
//	numpy
//	scipy==1.15.2
//	urllib3[socks]
package requirements

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/frederic-klein/addondeps/internal/dist"
	"github.com/frederic-klein/addondeps/internal/version"
)

// ErrDuplicate is returned when a package is listed twice.
var ErrDuplicate = errors.New("duplicate requirement")

// Format identifies a requirements file format.
type Format int

const (
	FormatYAML Format = iota
	FormatText
)

// DetectFormat picks the format from the file extension.
// Anything that is not .yaml or .yml is read as requirements.txt.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatText
	}
}

// Parser parses requirements files.
type Parser struct{}

// NewParser creates a new requirements parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse reads path and returns its requirements in file order.
func (p *Parser) Parse(path string) ([]dist.Requirement, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening requirements file: %w", err)
	}
	defer file.Close()

	var reqs []dist.Requirement
	switch DetectFormat(path) {
	case FormatYAML:
		reqs, err = p.ParseYAML(file)
	default:
		reqs, err = p.ParseText(file)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reqs, nil
}

type entry struct {
	Version string   `yaml:"version"`
	Extras  []string `yaml:"extras"`
}

// ParseYAML parses a mapping of package name to {version: constraint}.
// A scalar value is taken as the constraint itself.
func (p *Parser) ParseYAML(r io.Reader) ([]dist.Requirement, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return nil, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping of package names", root.Line)
	}

	var reqs []dist.Requirement
	seen := make(map[string]bool)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]

		var e entry
		switch value.Kind {
		case yaml.ScalarNode:
			if value.Tag != "!!null" {
				e.Version = value.Value
			}
		case yaml.MappingNode:
			if err := value.Decode(&e); err != nil {
				return nil, fmt.Errorf("line %d: %w", value.Line, err)
			}
		default:
			return nil, fmt.Errorf("line %d: invalid entry for %q", value.Line, key.Value)
		}

		req, err := newRequirement(key.Value, e.Extras, e.Version, seen)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", key.Line, err)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

var (
	lineRe   = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*)\s*(\[[^\]]*\])?\s*(.*)$`)
	markerRe = regexp.MustCompile(`\s*;.*$`)
)

// ParseText parses requirements.txt lines: a name, optional extras in
// brackets, then an optional constraint. Comments, blank lines, environment
// markers and pip options (lines starting with "-") are skipped.
func (p *Parser) ParseText(r io.Reader) ([]dist.Requirement, error) {
	var reqs []dist.Requirement
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.Index(line, " #"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		line = markerRe.ReplaceAllString(line, "")

		m := lineRe.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("line %d: cannot parse %q", lineNo, line)
		}
		constraint := strings.Join(strings.Fields(m[3]), "")

		req, err := newRequirement(m[1], parseExtras(m[2]), constraint, seen)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		reqs = append(reqs, req)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading requirements: %w", err)
	}
	return reqs, nil
}

// parseExtras splits "[socks, security]" into its names.
func parseExtras(s string) []string {
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	var extras []string
	for _, e := range strings.Split(s, ",") {
		if e = strings.TrimSpace(e); e != "" {
			extras = append(extras, e)
		}
	}
	return extras
}

func newRequirement(name string, extras []string, constraint string, seen map[string]bool) (dist.Requirement, error) {
	name = strings.TrimSpace(name)
	constraint = strings.TrimSpace(constraint)

	if !dist.ValidName(name) {
		return dist.Requirement{}, fmt.Errorf("invalid package name %q", name)
	}
	for _, e := range extras {
		if !dist.ValidName(e) {
			return dist.Requirement{}, fmt.Errorf("%s: invalid extra %q", name, e)
		}
	}
	if err := version.Validate(constraint); err != nil {
		return dist.Requirement{}, fmt.Errorf("%s: %w", name, err)
	}
	key := dist.Normalize(name)
	if seen[key] {
		return dist.Requirement{}, fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	seen[key] = true
	return dist.Requirement{Name: name, Extras: extras, Version: constraint}, nil
}
