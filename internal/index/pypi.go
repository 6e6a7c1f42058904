package index

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// DefaultPyPIURL is the public package index.
const DefaultPyPIURL = "https://pypi.org"

// PyPIIndex looks up release information through the PyPI JSON API.
type PyPIIndex struct {
	apiURL string
	client *http.Client
}

// Release is the subset of the JSON API response we use.
type Release struct {
	Name           string `json:"name"`
	Version        string `json:"version"`
	Summary        string `json:"summary"`
	RequiresPython string `json:"requires_python"`
}

type projectResponse struct {
	Info Release `json:"info"`
}

// NewPyPIIndex creates a client for the index at apiURL (DefaultPyPIURL when empty).
func NewPyPIIndex(apiURL string) *PyPIIndex {
	if apiURL == "" {
		apiURL = DefaultPyPIURL
	}
	return &PyPIIndex{
		apiURL: strings.TrimSuffix(apiURL, "/"),
		client: &http.Client{},
	}
}

// Latest returns the latest release of a package.
func (idx *PyPIIndex) Latest(ctx context.Context, name string) (*Release, error) {
	apiURL := fmt.Sprintf("%s/pypi/%s/json", idx.apiURL, url.PathEscape(name))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := idx.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying PyPI: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("package %s not found", name)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("PyPI API error: HTTP %d", resp.StatusCode)
	}

	var project projectResponse
	if err := json.NewDecoder(resp.Body).Decode(&project); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	return &project.Info, nil
}

// URL returns the configured index URL.
func (idx *PyPIIndex) URL() string {
	return idx.apiURL
}
