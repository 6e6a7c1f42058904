package index

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPyPIIndex_Latest(t *testing.T) {
	// Arrange: Create mock PyPI JSON API server
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/pypi/requests/json":
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"info": map[string]any{
					"name":            "requests",
					"version":         "2.32.3",
					"summary":         "Python HTTP for Humans.",
					"requires_python": ">=3.8",
				},
			})
		case "/pypi/nonexistent/json":
			w.WriteHeader(http.StatusNotFound)
		case "/pypi/broken/json":
			w.Write([]byte("{not json"))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	idx := NewPyPIIndex(server.URL + "/")

	tests := []struct {
		name        string
		pkg         string
		wantVersion string
		wantErr     bool
	}{
		{name: "found package", pkg: "requests", wantVersion: "2.32.3"},
		{name: "not found", pkg: "nonexistent", wantErr: true},
		{name: "invalid body", pkg: "broken", wantErr: true},
		{name: "server error", pkg: "other", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			release, err := idx.Latest(context.Background(), tt.pkg)

			// Assert
			if (err != nil) != tt.wantErr {
				t.Fatalf("Latest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && release.Version != tt.wantVersion {
				t.Errorf("Latest() version = %q, want %q", release.Version, tt.wantVersion)
			}
		})
	}
}

func TestNewPyPIIndex_Default(t *testing.T) {
	idx := NewPyPIIndex("")
	if idx.URL() != DefaultPyPIURL {
		t.Errorf("URL() = %q, want %q", idx.URL(), DefaultPyPIURL)
	}
}
