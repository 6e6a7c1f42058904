package version

import (
	"errors"
	"testing"
)

func TestSatisfies(t *testing.T) {
	tests := []struct {
		have string
		want string
		ok   bool
	}{
		{"1.0", "", true},
		{"2.31.0", ">=2.25.0,<3.0.0", true},
		{"2.25.0", ">=2.25.0,<3.0.0", true},
		{"2.24.9", ">=2.25.0,<3.0.0", false},
		{"3.0.0", ">=2.25.0,<3.0.0", false},
		{"2.0", ">= 1.0, < 2.0", false},
		{"1.5", ">= 1.0, < 2.0", true},
		{"1.15.2", "==1.15.2", true},
		{"1.15.3", "==1.15.2", false},
		{"1.15", "==1.15.0", true},
		{"1.15.2+cpu", "==1.15.2", true},
		{"1.15.2+cpu", "==1.15.2+gpu", false},
		{"1.1", "!=1.0", true},
		{"1.0", "!=1.0", false},
		{"1.5", "> 1.0", true},
		{"1.0", "> 1.0", false},
		{"1.0", "<= 1.0", true},
		{"1.1", "<= 1.0", false},
		{"1.2.7", "==1.2.*", true},
		{"1.3.0", "==1.2.*", false},
		{"1.3.0", "!=1.2.*", true},
		{"2.2.1", "~=2.2", true},
		{"3.0", "~=2.2", false},
		{"1.4.9", "~=1.4.5", true},
		{"1.5.0", "~=1.4.5", false},
		{"1.4.4", "~=1.4.5", false},
		{"foobar", "===foobar", true},
		{"1.0", "===1.0.0", false},
		{"1.0", "1.0", false}, // no operator
		{"not-a-version", ">=1.0", false},
		// exclusive ordering
		{"3.0.0rc1", ">=2.25.0,<3.0.0", false},
		{"3.0.0rc2", ">=3.0.0rc1,<3.0.0rc3", true},
		{"3.0.0rc2", "<3.0.0rc3", false},
		{"1.0.post1", ">1.0", false},
		{"1.0.post2", ">1.0.post1", true},
		{"1.0+local", ">1.0", false},
		{"1.0.1+local", ">1.0", true},
		// local labels are ignored by inclusive ordering
		{"1.0+local", "<=1.0", true},
		{"1.0+local", ">=1.0", true},
		// pre-releases only match when the constraint names one
		{"2.26.0rc1", ">=2.25.0,<3.0.0", false},
		{"2.26.0.dev1", ">=2.25.0", false},
		{"2.26.0rc1", ">=2.26.0rc1", true},
		{"2.26.0rc1", "==2.26.0rc1", true},
		{"2.26.0rc1", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.have+"_"+tt.want, func(t *testing.T) {
			got := Satisfies(tt.have, tt.want)
			if got != tt.ok {
				t.Errorf("Satisfies(%q, %q) = %v, want %v", tt.have, tt.want, got, tt.ok)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a    string
		b    string
		want int
	}{
		{"1.0", "1.0", 0},
		{"1.0", "2.0", -1},
		{"2.0", "1.0", 1},
		{"1.10", "1.9", 1},
		{"1.2.3", "1.2.4", -1},
		{"v1.0", "1.0", 0},
		{"1", "1.0.0", 0},
		{"1.0a1", "1.0", -1},
		{"1.0a1", "1.0b1", -1},
		{"1.0b2", "1.0rc1", -1},
		{"1.0rc1", "1.0", -1},
		{"1.0.dev1", "1.0a1", -1},
		{"1.0", "1.0.post1", -1},
		{"1.0.post1", "1.0.post2", -1},
		{"1.0-1", "1.0.post1", 0},
		{"1!0.5", "2.0", 1},
		{"1.0+local", "1.0", 1},
		{"1.0.x", "1.0", 0}, // loose fallback
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			got := Compare(tt.a, tt.b)
			if got != tt.want {
				t.Errorf("Compare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := []string{"", ">=2.25.0,<3.0.0", "==1.15.2", "~=1.4", "==1.*", ">= 1.0, < 2.0", "===anything"}
	for _, expr := range valid {
		if err := Validate(expr); err != nil {
			t.Errorf("Validate(%q) error = %v", expr, err)
		}
	}

	invalid := []string{"1.0", ">=", ">=1.0,", "~=1", ">=1.*", "=>1.0", "==one"}
	for _, expr := range invalid {
		err := Validate(expr)
		if err == nil {
			t.Errorf("Validate(%q) error = nil, want error", expr)
			continue
		}
		if !errors.Is(err, ErrInvalidConstraint) {
			t.Errorf("Validate(%q) error = %v, want ErrInvalidConstraint", expr, err)
		}
	}
}

func TestParse_Prerelease(t *testing.T) {
	tests := []struct {
		input string
		pre   bool
	}{
		{"1.0", false},
		{"1.0rc1", true},
		{"1.0.dev0", true},
		{"1.0.post1", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.input, err)
			}
			if v.IsPrerelease() != tt.pre {
				t.Errorf("IsPrerelease() = %v, want %v", v.IsPrerelease(), tt.pre)
			}
		})
	}
}
