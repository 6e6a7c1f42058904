package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/frederic-klein/addondeps/internal/dist"
)

func TestDiff(t *testing.T) {
	want := []*dist.Distribution{
		{Name: "requests", Version: "2.31.0"},
		{Name: "numpy", Version: "2.1.3"},
		{Name: "scipy", Version: "1.15.2"},
		{Name: "charset_normalizer", Version: "3.3.2"},
	}
	got := []*dist.Distribution{
		{Name: "requests", Version: "2.31.0"},
		{Name: "numpy", Version: "1.26.4"},
		{Name: "charset-normalizer", Version: "3.3.2"},
		{Name: "urllib3", Version: "2.2.3"},
	}

	diff := Diff(want, got)

	assert.Equal(t, []Mismatch{
		{Name: "numpy", Change: Changed, Want: "2.1.3", Got: "1.26.4"},
		{Name: "scipy", Change: Missing, Want: "1.15.2"},
		{Name: "urllib3", Change: Extra, Got: "2.2.3"},
	}, diff)
	assert.Equal(t, "numpy: have 1.26.4, want 2.1.3", diff[0].String())
	assert.Equal(t, "scipy: missing (want 1.15.2)", diff[1].String())
}

func TestDiff_Identical(t *testing.T) {
	dists := []*dist.Distribution{{Name: "numpy", Version: "2.1.3"}}
	assert.Empty(t, Diff(dists, dists))
}
