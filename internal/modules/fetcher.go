package modules

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// Fetcher retrieves the script source for a game identifier. Implementations
// must treat the identifier as opaque.
type Fetcher interface {
	Fetch(ctx context.Context, id string) ([]byte, error)
}

// DirFetcher reads module sources from a local directory: <dir>/<id>.js.
type DirFetcher struct {
	Dir string
}

// Fetch reads the module file for id.
func (f DirFetcher) Fetch(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src, err := os.ReadFile(filepath.Join(f.Dir, id+".js"))
	if err != nil {
		return nil, fmt.Errorf("modules: read %s: %w", id, err)
	}
	return src, nil
}

// HTTPFetcher retrieves module sources from <base>/<id>.js.
type HTTPFetcher struct {
	BaseURL string
	Client  *http.Client
}

// Fetch downloads the module source for id.
func (f HTTPFetcher) Fetch(ctx context.Context, id string) ([]byte, error) {
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	u, err := url.JoinPath(f.BaseURL, id+".js")
	if err != nil {
		return nil, fmt.Errorf("modules: build url for %s: %w", id, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("modules: request for %s: %w", id, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("modules: fetch %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("modules: fetch %s: status %d", id, resp.StatusCode)
	}
	src, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("modules: read body for %s: %w", id, err)
	}
	return src, nil
}
