package snapshot

import (
	"fmt"
	"io"
	"sort"

	"github.com/frederic-klein/addondeps/internal/dist"
)

const header = "# addondeps snapshot format: version 1\n"

// Emitter writes snapshot files.
type Emitter struct {
	w io.Writer
}

// NewEmitter creates a new snapshot emitter.
func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{w: w}
}

// Emit writes distributions sorted by normalized name.
func (e *Emitter) Emit(dists []*dist.Distribution) error {
	sorted := make([]*dist.Distribution, len(dists))
	copy(sorted, dists)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Key() < sorted[j].Key()
	})

	if _, err := fmt.Fprint(e.w, header); err != nil {
		return err
	}

	if _, err := fmt.Fprint(e.w, "DISTRIBUTIONS\n"); err != nil {
		return err
	}

	for _, d := range sorted {
		if err := e.emitDist(d); err != nil {
			return err
		}
	}

	return nil
}

func (e *Emitter) emitDist(d *dist.Distribution) error {
	if _, err := fmt.Fprintf(e.w, "  %s %s\n", d.Name, d.Version); err != nil {
		return err
	}

	if err := e.emitList("top_level", sortedCopy(d.TopLevel)); err != nil {
		return err
	}

	// Requires-Dist keeps METADATA order.
	return e.emitList("requires", d.Requires)
}

func (e *Emitter) emitList(section string, items []string) error {
	if len(items) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(e.w, "    %s:\n", section); err != nil {
		return err
	}
	for _, item := range items {
		if _, err := fmt.Fprintf(e.w, "      %s\n", item); err != nil {
			return err
		}
	}
	return nil
}

func sortedCopy(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	sort.Strings(out)
	return out
}
