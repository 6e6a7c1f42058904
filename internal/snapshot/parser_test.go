package snapshot

import (
	"strings"
	"testing"
)

func TestParser_Parse(t *testing.T) {
	input := `# addondeps snapshot format: version 1
DISTRIBUTIONS
  numpy 2.1.3
    top_level:
      numpy
  requests 2.31.0
    top_level:
      requests
    requires:
      idna (<4,>=2.5)
      urllib3 (<3,>=1.21.1)
      PySocks (!=1.5.7,>=1.5.6) ; extra == "socks"
`

	parser := NewParser(strings.NewReader(input))
	dists, err := parser.Parse()
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if len(dists) != 2 {
		t.Fatalf("got %d dists, want 2", len(dists))
	}

	d1 := dists[0]
	if d1.Name != "numpy" || d1.Version != "2.1.3" {
		t.Errorf("dist 0 = %s %s, want numpy 2.1.3", d1.Name, d1.Version)
	}
	if len(d1.TopLevel) != 1 || d1.TopLevel[0] != "numpy" {
		t.Errorf("dist 0 top_level = %v", d1.TopLevel)
	}
	if len(d1.Requires) != 0 {
		t.Errorf("dist 0 requires = %v, want none", d1.Requires)
	}

	d2 := dists[1]
	if d2.Name != "requests" {
		t.Errorf("dist 1 name = %q, want requests", d2.Name)
	}
	if len(d2.Requires) != 3 {
		t.Fatalf("dist 1 requires = %d, want 3", len(d2.Requires))
	}
	if d2.Requires[2] != `PySocks (!=1.5.7,>=1.5.6) ; extra == "socks"` {
		t.Errorf("dist 1 requires[2] = %q", d2.Requires[2])
	}
}

func TestParser_Parse_Empty(t *testing.T) {
	dists, err := NewParser(strings.NewReader("# addondeps snapshot format: version 1\nDISTRIBUTIONS\n")).Parse()
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(dists) != 0 {
		t.Errorf("got %d dists, want 0", len(dists))
	}
}

func TestParser_Parse_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"item before dist", "DISTRIBUTIONS\n      numpy\n"},
		{"item outside section", "DISTRIBUTIONS\n  numpy 2.1.3\n      numpy\n"},
		{"unknown section", "DISTRIBUTIONS\n  numpy 2.1.3\n    provides:\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewParser(strings.NewReader(tt.input)).Parse(); err == nil {
				t.Error("Parse() error = nil, want error")
			}
		})
	}
}
