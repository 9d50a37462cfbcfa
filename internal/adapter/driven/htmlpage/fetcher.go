package htmlpage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/ericfisherdev/passpanel/internal/domain/model"
)

// maxPageBytes caps how much of a response body is parsed.
const maxPageBytes = 10 << 20

const userAgent = "passpanel-scan/1.0"

// Fetcher downloads pages and snapshots their forms. Responses are kept in
// an in-memory HTTP cache, so repeated scans of the same page revalidate
// with ETag instead of downloading it again.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher backed by an in-memory httpcache transport.
func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Transport: httpcache.NewMemoryCacheTransport(),
			Timeout:   timeout,
		},
	}
}

// NewFetcherWithClient creates a Fetcher with a custom http.Client.
// This constructor is intended for testing.
func NewFetcherWithClient(client *http.Client) *Fetcher {
	return &Fetcher{client: client}
}

// Fetch downloads pageURL and parses it. The snapshot URL is the final URL
// after redirects.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (model.FormSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return model.FormSnapshot{}, fmt.Errorf("build request for %s: %w", pageURL, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return model.FormSnapshot{}, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.FormSnapshot{}, fmt.Errorf("fetch %s: unexpected status %d", pageURL, resp.StatusCode)
	}

	finalURL := pageURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	snap, err := Parse(io.LimitReader(resp.Body, maxPageBytes), finalURL)
	if err != nil {
		return model.FormSnapshot{}, fmt.Errorf("snapshot %s: %w", pageURL, err)
	}

	// Drain so the cache transport sees EOF and stores the response.
	_, _ = io.Copy(io.Discard, resp.Body)

	return snap, nil
}

// Load snapshots target, which is either an http(s) URL or a local file path.
func (f *Fetcher) Load(ctx context.Context, target string) (model.FormSnapshot, error) {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return f.Fetch(ctx, target)
	}

	path := strings.TrimPrefix(target, "file://")
	file, err := os.Open(path)
	if err != nil {
		return model.FormSnapshot{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	return Parse(file, "file://"+filepath.ToSlash(abs))
}
