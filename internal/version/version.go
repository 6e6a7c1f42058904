package version

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Version is a parsed release identifier such as "1!2.0.1rc1.post2.dev3+local".
type Version struct {
	Original string
	Epoch    int
	Release  []int
	Local    string

	preKind int // one of the pre* constants
	preNum  int
	post    int // -1 when absent
	dev     int // math.MaxInt when absent
}

const (
	preDevOnly = -1
	preAlpha   = 0
	preBeta    = 1
	preRC      = 2
	preFinal   = 3
)

var versionRe = regexp.MustCompile(`(?i)^v?` +
	`(?:(\d+)!)?` +
	`(\d+(?:\.\d+)*)` +
	`(?:[-_.]?(a|b|c|rc|alpha|beta|pre|preview)[-_.]?(\d*))?` +
	`(?:-(\d+)|[-_.]?(post|rev|r)[-_.]?(\d*))?` +
	`(?:[-_.]?(dev)[-_.]?(\d*))?` +
	`(?:\+([a-z0-9]+(?:[-_.][a-z0-9]+)*))?$`)

// Parse parses a version string.
func Parse(s string) (*Version, error) {
	m := versionRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return nil, fmt.Errorf("invalid version %q", s)
	}

	v := &Version{
		Original: s,
		preKind:  preFinal,
		post:     -1,
		dev:      math.MaxInt,
		Local:    strings.ToLower(m[10]),
	}
	if m[1] != "" {
		v.Epoch = atoi(m[1])
	}
	for _, p := range strings.Split(m[2], ".") {
		v.Release = append(v.Release, atoi(p))
	}

	if m[3] != "" {
		switch strings.ToLower(m[3]) {
		case "a", "alpha":
			v.preKind = preAlpha
		case "b", "beta":
			v.preKind = preBeta
		default:
			v.preKind = preRC
		}
		v.preNum = atoi(m[4])
	}

	switch {
	case m[5] != "":
		v.post = atoi(m[5])
	case m[6] != "":
		v.post = atoi(m[7])
	}

	if m[8] != "" {
		v.dev = atoi(m[9])
		// A dev release of a final version sorts before its pre-releases.
		if m[3] == "" && v.post < 0 {
			v.preKind = preDevOnly
		}
	}

	return v, nil
}

// IsPrerelease reports whether v is an alpha, beta, rc or dev release.
func (v *Version) IsPrerelease() bool {
	return v.preKind != preFinal || v.dev != math.MaxInt
}

// IsPostrelease reports whether v carries a post-release segment.
func (v *Version) IsPostrelease() bool {
	return v.post >= 0
}

// public returns v without its local label.
func (v *Version) public() *Version {
	p := *v
	p.Local = ""
	return &p
}

// base returns the epoch and release segments of v as a final release.
func (v *Version) base() *Version {
	return &Version{
		Epoch:   v.Epoch,
		Release: v.Release,
		preKind: preFinal,
		post:    -1,
		dev:     math.MaxInt,
	}
}

func (v *Version) String() string {
	return v.Original
}

// Compare returns -1, 0 or 1 when v is lower, equal or higher than o.
func (v *Version) Compare(o *Version) int {
	if c := cmpInt(v.Epoch, o.Epoch); c != 0 {
		return c
	}
	if c := compareRelease(v.Release, o.Release); c != 0 {
		return c
	}
	if c := cmpInt(v.preKind, o.preKind); c != 0 {
		return c
	}
	if c := cmpInt(v.preNum, o.preNum); c != 0 {
		return c
	}
	if c := cmpInt(v.post, o.post); c != 0 {
		return c
	}
	if c := cmpInt(v.dev, o.dev); c != 0 {
		return c
	}
	return strings.Compare(v.Local, o.Local)
}

// Compare compares two version strings. Strings that do not parse
// fall back to a numeric comparison of their dotted segments.
func Compare(a, b string) int {
	va, errA := Parse(a)
	vb, errB := Parse(b)
	if errA == nil && errB == nil {
		return va.Compare(vb)
	}
	return compareRelease(looseSegments(a), looseSegments(b))
}

func compareRelease(a, b []int) int {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}

	for i := 0; i < maxLen; i++ {
		aVal := 0
		bVal := 0
		if i < len(a) {
			aVal = a[i]
		}
		if i < len(b) {
			bVal = b[i]
		}
		if aVal < bVal {
			return -1
		}
		if aVal > bVal {
			return 1
		}
	}
	return 0
}

var leadingDigitsRe = regexp.MustCompile(`^\d+`)

// looseSegments converts "v1.2.3-foo" to [1, 2, 3], ignoring anything that is not numeric.
func looseSegments(v string) []int {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	if v == "" {
		return []int{0}
	}

	parts := strings.Split(v, ".")
	result := make([]int, 0, len(parts))
	for _, p := range parts {
		digits := leadingDigitsRe.FindString(p)
		if digits == "" {
			break
		}
		result = append(result, atoi(digits))
	}
	return result
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
