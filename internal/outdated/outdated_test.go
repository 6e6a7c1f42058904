package outdated

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/frederic-klein/addondeps/internal/dist"
	"github.com/frederic-klein/addondeps/internal/index"
)

func newPyPIServer(t *testing.T, latest map[string]string, hits *int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/pypi/"), "/json")
		v, ok := latest[name]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprintf(w, `{"info": {"name": %q, "version": %q}}`, name, v)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestChecker_Check(t *testing.T) {
	var hits int32
	server := newPyPIServer(t, map[string]string{
		"requests": "2.32.3",
		"numpy":    "2.1.3",
		"scipy":    "1.15.2",
	}, &hits)

	jobs := []Job{
		{Requirement: dist.Requirement{Name: "requests", Version: ">=2.25.0,<3.0.0"}, Installed: "2.31.0"},
		{Requirement: dist.Requirement{Name: "numpy"}, Installed: "2.1.3"},
		{Requirement: dist.Requirement{Name: "scipy", Version: "==1.14.0"}, Installed: "1.14.0"},
		{Requirement: dist.Requirement{Name: "no-such-package"}},
	}

	reports := NewChecker(3, index.NewPyPIIndex(server.URL)).Check(context.Background(), jobs)

	if len(reports) != 4 {
		t.Fatalf("got %d reports, want 4", len(reports))
	}
	if n := atomic.LoadInt32(&hits); n != 4 {
		t.Errorf("got %d requests, want 4", n)
	}

	tests := []struct {
		name         string
		wantLatest   string
		wantOutdated bool
		wantAllowed  bool
		wantErr      bool
	}{
		{"requests", "2.32.3", true, true, false},
		{"numpy", "2.1.3", false, true, false},
		{"scipy", "1.15.2", true, false, false},
		{"no-such-package", "", false, false, true},
	}
	for i, tt := range tests {
		r := reports[i]
		if r.Name != tt.name {
			t.Errorf("report %d name = %q, want %q", i, r.Name, tt.name)
		}
		if r.Latest != tt.wantLatest {
			t.Errorf("%s latest = %q, want %q", tt.name, r.Latest, tt.wantLatest)
		}
		if r.Outdated() != tt.wantOutdated {
			t.Errorf("%s Outdated() = %v, want %v", tt.name, r.Outdated(), tt.wantOutdated)
		}
		if r.Allowed() != tt.wantAllowed {
			t.Errorf("%s Allowed() = %v, want %v", tt.name, r.Allowed(), tt.wantAllowed)
		}
		if (r.Error != nil) != tt.wantErr {
			t.Errorf("%s error = %v, wantErr %v", tt.name, r.Error, tt.wantErr)
		}
	}
}

func TestChecker_Check_Empty(t *testing.T) {
	reports := NewChecker(0, index.NewPyPIIndex("http://127.0.0.1:0")).Check(context.Background(), nil)
	if len(reports) != 0 {
		t.Errorf("got %d reports, want 0", len(reports))
	}
}

func TestChecker_Check_Canceled(t *testing.T) {
	var hits int32
	server := newPyPIServer(t, map[string]string{"numpy": "2.1.3"}, &hits)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reports := NewChecker(2, index.NewPyPIIndex(server.URL)).Check(ctx, []Job{
		{Requirement: dist.Requirement{Name: "numpy"}},
	})

	if reports[0].Error == nil {
		t.Error("expected context error")
	}
	if n := atomic.LoadInt32(&hits); n != 0 {
		t.Errorf("got %d requests after cancel, want 0", n)
	}
}
