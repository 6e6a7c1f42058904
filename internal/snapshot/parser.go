package snapshot

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/frederic-klein/addondeps/internal/dist"
)

var (
	distRe     = regexp.MustCompile(`^  (\S+) (\S+)$`)
	topLevelRe = regexp.MustCompile(`^    top_level:$`)
	requiresRe = regexp.MustCompile(`^    requires:$`)
	itemRe     = regexp.MustCompile(`^      (.+)$`)
)

// Parser reads snapshot files.
type Parser struct {
	r io.Reader
}

// NewParser creates a new snapshot parser.
func NewParser(r io.Reader) *Parser {
	return &Parser{r: r}
}

// Parse reads distributions from a snapshot file.
func (p *Parser) Parse() ([]*dist.Distribution, error) {
	var dists []*dist.Distribution
	var current *dist.Distribution
	var inTopLevel, inRequires bool

	scanner := bufio.NewScanner(p.r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if line == "" || strings.HasPrefix(line, "#") || line == "DISTRIBUTIONS" {
			continue
		}

		if matches := distRe.FindStringSubmatch(line); matches != nil {
			if current != nil {
				dists = append(dists, current)
			}
			current = &dist.Distribution{Name: matches[1], Version: matches[2]}
			inTopLevel = false
			inRequires = false
			continue
		}

		if current == nil {
			return nil, fmt.Errorf("line %d: entry outside a distribution", lineNo)
		}

		switch {
		case topLevelRe.MatchString(line):
			inTopLevel, inRequires = true, false
		case requiresRe.MatchString(line):
			inTopLevel, inRequires = false, true
		default:
			matches := itemRe.FindStringSubmatch(line)
			if matches == nil || (!inTopLevel && !inRequires) {
				return nil, fmt.Errorf("line %d: unexpected %q", lineNo, line)
			}
			if inTopLevel {
				current.TopLevel = append(current.TopLevel, matches[1])
			} else {
				current.Requires = append(current.Requires, matches[1])
			}
		}
	}

	if current != nil {
		dists = append(dists, current)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	return dists, nil
}
