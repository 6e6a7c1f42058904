package snapshot

import (
	"fmt"
	"sort"

	"github.com/frederic-klein/addondeps/internal/dist"
)

// Change classifies a difference between a snapshot and the packages directory.
type Change string

const (
	Missing Change = "missing" // in the snapshot, not installed
	Changed Change = "changed" // installed with another version
	Extra   Change = "extra"   // installed, not in the snapshot
)

// Mismatch is one difference found by Diff.
type Mismatch struct {
	Name   string
	Change Change
	Want   string // snapshot version
	Got    string // installed version
}

func (m Mismatch) String() string {
	switch m.Change {
	case Missing:
		return fmt.Sprintf("%s: missing (want %s)", m.Name, m.Want)
	case Extra:
		return fmt.Sprintf("%s: not in snapshot (have %s)", m.Name, m.Got)
	default:
		return fmt.Sprintf("%s: have %s, want %s", m.Name, m.Got, m.Want)
	}
}

// Diff compares want (a parsed snapshot) with got (the installed
// distributions). Names are compared normalized; the result is sorted by name.
func Diff(want, got []*dist.Distribution) []Mismatch {
	installed := make(map[string]*dist.Distribution, len(got))
	for _, d := range got {
		installed[d.Key()] = d
	}

	var out []Mismatch
	seen := make(map[string]bool, len(want))
	for _, w := range want {
		key := w.Key()
		seen[key] = true
		g, ok := installed[key]
		switch {
		case !ok:
			out = append(out, Mismatch{Name: w.Name, Change: Missing, Want: w.Version})
		case g.Version != w.Version:
			out = append(out, Mismatch{Name: w.Name, Change: Changed, Want: w.Version, Got: g.Version})
		}
	}
	for key, g := range installed {
		if !seen[key] {
			out = append(out, Mismatch{Name: g.Name, Change: Extra, Got: g.Version})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return dist.Normalize(out[i].Name) < dist.Normalize(out[j].Name)
	})
	return out
}
