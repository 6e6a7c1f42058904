package checker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frederic-klein/addondeps/internal/testutil"
)

type countingRecorder map[string]int

func (r countingRecorder) ObserveCheck(status string) {
	r[status]++
}

func setupPackagesDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, ver := range map[string]string{
		"requests": "2.31.0",
		"scipy":    "1.15.2",
	} {
		_, err := testutil.WriteDist(dir, name, ver)
		require.NoError(t, err)
	}
	return dir
}

func TestChecker_Check(t *testing.T) {
	dir := setupPackagesDir(t)
	c := New(dir, nil)

	tests := []struct {
		name       string
		pkg        string
		constraint string
		want       bool
	}{
		{"absent without constraint", "numpy", "", false},
		{"absent with constraint", "numpy", ">=1.0", false},
		{"present without constraint", "requests", "", true},
		{"present in range", "requests", ">=2.25.0,<3.0.0", true},
		{"present out of range", "requests", ">=3.0", false},
		{"exact pin matches", "scipy", "==1.15.2", true},
		{"exact pin differs", "scipy", "==1.14.0", false},
		{"name is normalized", "SciPy", "==1.15.2", true},
		{"invalid constraint", "scipy", "1.15.2", false},
		{"invalid name", "../scipy", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Check(tt.pkg, tt.constraint))
		})
	}
}

func TestChecker_Inspect(t *testing.T) {
	dir := setupPackagesDir(t)
	_, err := testutil.WriteDist(dir, "numpy", "2.2.4")
	require.NoError(t, err)
	_, err = testutil.WriteDist(dir, "numpy", "1.26.4")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "idna-3.10.dist-info"), 0755))

	rec := countingRecorder{}
	c := New(dir, nil).WithRecorder(rec)

	tests := []struct {
		name         string
		pkg          string
		constraint   string
		wantStatus   Status
		wantVersions []string
	}{
		{"absent", "urllib3", "", Absent, nil},
		{"satisfied", "requests", "", Satisfied, []string{"2.31.0"}},
		{"unsatisfied", "scipy", "==1.14.0", Unsatisfied, []string{"1.15.2"}},
		{"duplicate installs conflict", "numpy", "", Conflicting, []string{"1.26.4", "2.2.4"}},
		{"unreadable metadata conflicts", "idna", "", Conflicting, []string{"3.10"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := c.Inspect(tt.pkg, tt.constraint)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, res.Status)
			assert.ElementsMatch(t, tt.wantVersions, res.Versions)
		})
	}

	assert.Equal(t, 2, rec["conflicting"])
	assert.Equal(t, 1, rec["absent"])
}

func TestChecker_Inspect_InvalidInput(t *testing.T) {
	c := New(t.TempDir(), nil)

	_, err := c.Inspect("", "")
	assert.Error(t, err)

	_, err = c.Inspect("requests", "=>2")
	assert.Error(t, err)
}

func TestChecker_SeesNewInstalls(t *testing.T) {
	dir := t.TempDir()
	c := New(dir, nil)
	require.False(t, c.Check("requests", ""))

	_, err := testutil.WriteDist(dir, "requests", "2.31.0")
	require.NoError(t, err)

	assert.True(t, c.Check("requests", "==2.31.0"))
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "absent", Absent.String())
	assert.Equal(t, "satisfied", Satisfied.String())
	assert.Equal(t, "Status(9)", Status(9).String())
}
