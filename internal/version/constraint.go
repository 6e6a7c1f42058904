package version

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConstraint is returned for syntactically invalid constraint expressions.
var ErrInvalidConstraint = errors.New("invalid version constraint")

// Constraint is a parsed constraint expression such as ">=2.25.0,<3.0.0".
// The zero value matches every version.
type Constraint struct {
	raw     string
	clauses []clause
}

type clause struct {
	op       string
	version  *Version
	raw      string // right-hand side as written
	wildcard bool   // "==1.2.*" / "!=1.2.*"
}

// operators are matched longest first.
var operators = []string{"===", "~=", "==", "!=", ">=", "<=", ">", "<"}

// ParseConstraint parses a comma separated list of clauses.
// An empty expression yields a constraint that matches any version.
func ParseConstraint(expr string) (*Constraint, error) {
	c := &Constraint{raw: strings.TrimSpace(expr)}
	if c.raw == "" {
		return c, nil
	}

	for _, part := range strings.Split(c.raw, ",") {
		cl, err := parseClause(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidConstraint, expr, err)
		}
		c.clauses = append(c.clauses, cl)
	}
	return c, nil
}

func parseClause(s string) (clause, error) {
	if s == "" {
		return clause{}, errors.New("empty clause")
	}

	var cl clause
	for _, op := range operators {
		if strings.HasPrefix(s, op) {
			cl.op = op
			cl.raw = strings.TrimSpace(s[len(op):])
			break
		}
	}
	if cl.op == "" {
		return clause{}, fmt.Errorf("clause %q has no operator", s)
	}
	if cl.raw == "" {
		return clause{}, fmt.Errorf("clause %q has no version", s)
	}

	// Arbitrary equality compares strings verbatim.
	if cl.op == "===" {
		return cl, nil
	}

	target := cl.raw
	if strings.HasSuffix(target, ".*") {
		if cl.op != "==" && cl.op != "!=" {
			return clause{}, fmt.Errorf("wildcard not allowed with %s", cl.op)
		}
		cl.wildcard = true
		target = strings.TrimSuffix(target, ".*")
	}

	v, err := Parse(target)
	if err != nil {
		return clause{}, err
	}
	if cl.op == "~=" && len(v.Release) < 2 {
		return clause{}, fmt.Errorf("%q needs at least two release segments", s)
	}
	cl.version = v
	return cl, nil
}

// Check reports whether version v satisfies every clause.
// Pre-releases only match when a clause itself names one.
func (c *Constraint) Check(v string) bool {
	if c == nil || len(c.clauses) == 0 {
		return true
	}

	parsed, err := Parse(v)
	if err == nil && parsed.IsPrerelease() && !c.allowsPrereleases() {
		return false
	}
	for _, cl := range c.clauses {
		if cl.op == "===" {
			if !strings.EqualFold(strings.TrimSpace(v), cl.raw) {
				return false
			}
			continue
		}
		if err != nil || !cl.matches(parsed) {
			return false
		}
	}
	return true
}

func (c *Constraint) allowsPrereleases() bool {
	for _, cl := range c.clauses {
		switch cl.op {
		case "==", ">=", "<=", "~=":
			if cl.version.IsPrerelease() {
				return true
			}
		case "===":
			if v, err := Parse(cl.raw); err == nil && v.IsPrerelease() {
				return true
			}
		}
	}
	return false
}

func (c *Constraint) String() string {
	if c == nil {
		return ""
	}
	return c.raw
}

func (cl clause) matches(v *Version) bool {
	switch cl.op {
	case "==":
		if cl.wildcard {
			return prefixMatch(v, cl.version)
		}
		return equal(v, cl.version)
	case "!=":
		if cl.wildcard {
			return !prefixMatch(v, cl.version)
		}
		return !equal(v, cl.version)
	case ">=":
		return v.public().Compare(cl.version) >= 0
	case "<=":
		return v.public().Compare(cl.version) <= 0
	case ">":
		return greater(v, cl.version)
	case "<":
		return less(v, cl.version)
	case "~=":
		if v.public().Compare(cl.version) < 0 {
			return false
		}
		prefix := *cl.version
		prefix.Release = cl.version.Release[:len(cl.version.Release)-1]
		return prefixMatch(v, &prefix)
	}
	return false
}

// less excludes pre-releases of want unless want is one itself,
// so "3.0.0rc1" does not satisfy "<3.0.0".
func less(v, want *Version) bool {
	if v.public().Compare(want) >= 0 {
		return false
	}
	if !want.IsPrerelease() && v.IsPrerelease() && v.base().Compare(want.base()) == 0 {
		return false
	}
	return true
}

// greater excludes post-releases of want unless want is one itself, and
// local versions of want.
func greater(v, want *Version) bool {
	if v.public().Compare(want) <= 0 {
		return false
	}
	sameBase := v.base().Compare(want.base()) == 0
	if sameBase && !want.IsPostrelease() && v.IsPostrelease() {
		return false
	}
	if sameBase && v.Local != "" {
		return false
	}
	return true
}

// equal ignores the candidate's local label unless the clause names one.
func equal(v, want *Version) bool {
	if want.Local == "" && v.Local != "" {
		stripped := *v
		stripped.Local = ""
		return stripped.Compare(want) == 0
	}
	return v.Compare(want) == 0
}

func prefixMatch(v, prefix *Version) bool {
	if v.Epoch != prefix.Epoch {
		return false
	}
	for i, seg := range prefix.Release {
		have := 0
		if i < len(v.Release) {
			have = v.Release[i]
		}
		if have != seg {
			return false
		}
	}
	return true
}

// Validate returns an error wrapping ErrInvalidConstraint when expr does not parse.
func Validate(expr string) error {
	_, err := ParseConstraint(expr)
	return err
}

// Satisfies reports whether have satisfies the constraint expression want.
// An invalid expression is never satisfied.
func Satisfies(have, want string) bool {
	c, err := ParseConstraint(want)
	if err != nil {
		return false
	}
	return c.Check(have)
}
