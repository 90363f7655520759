package schema

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Fetcher retrieves a schema document given its location. Generation uses it
// to pull imported and included schema fragments on demand.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, location string) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, location string) ([]byte, error) {
	return f(ctx, location)
}

// HTTPFetcher fetches schema documents over HTTP(S). Relative locations fall
// back to the local filesystem, which covers schemaLocation values that name
// sibling files.
type HTTPFetcher struct {
	client  *http.Client
	timeout time.Duration
}

// HTTPFetcherOption customises an HTTPFetcher.
type HTTPFetcherOption func(*HTTPFetcher)

// WithHTTPClient injects a custom http.Client.
func WithHTTPClient(client *http.Client) HTTPFetcherOption {
	return func(f *HTTPFetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithTimeout bounds each fetch. Zero disables the per-request deadline.
func WithTimeout(timeout time.Duration) HTTPFetcherOption {
	return func(f *HTTPFetcher) {
		f.timeout = timeout
	}
}

// NewHTTPFetcher constructs a fetcher with sane defaults.
func NewHTTPFetcher(options ...HTTPFetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client:  http.DefaultClient,
		timeout: 30 * time.Second,
	}
	for _, opt := range options {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

func (f *HTTPFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if location == "" {
		return nil, errors.New("schema fetcher: location is required")
	}
	if !isHTTP(location) {
		data, err := os.ReadFile(location)
		if err != nil {
			return nil, fmt.Errorf("schema fetcher: read %q: %w", location, err)
		}
		return data, nil
	}

	reqCtx := ctx
	var cancel context.CancelFunc
	if f.timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("schema fetcher: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("schema fetcher: fetch %q: %w", location, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("schema fetcher: fetch %q: unexpected status %s", location, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("schema fetcher: read body of %q: %w", location, err)
	}
	return data, nil
}

func isHTTP(location string) bool {
	return len(location) > 7 && (location[:7] == "http://" || (len(location) > 8 && location[:8] == "https://"))
}
