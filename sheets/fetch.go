package sheets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/apex/log"
)

// DefaultTimeout bounds a single CSV download.
const DefaultTimeout = 15 * time.Second

// ErrNotConfigured is returned when no source URL is set for a sheet.
var ErrNotConfigured = errors.New("sheets: source URL not configured")

// FetchError reports a non-2xx response from a sheet export.
type FetchError struct {
	StatusCode int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("sheets: export returned status %d", e.StatusCode)
}

// Fetcher downloads CSV exports over HTTP.
type Fetcher struct {
	client  *http.Client
	timeout time.Duration
}

// NewFetcher returns a Fetcher whose requests give up after timeout.
// A non-positive timeout falls back to DefaultTimeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// NewFetcherWithClient uses the given client; timeout is applied per request
// through the request context when positive.
func NewFetcherWithClient(client *http.Client, timeout time.Duration) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client, timeout: timeout}
}

// Text downloads the raw export body.
func (f *Fetcher) Text(ctx context.Context, url string) (string, error) {
	if url == "" {
		return "", ErrNotConfigured
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("sheets: build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sheets: fetch export: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &FetchError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("sheets: read export: %w", err)
	}

	log.Debugf("[Sheets] Downloaded %d bytes", len(body))
	return string(body), nil
}

// Table downloads and parses an export.
func (f *Fetcher) Table(ctx context.Context, url string) ([]Record, error) {
	text, err := f.Text(ctx, url)
	if err != nil {
		return nil, err
	}
	return Parse(text), nil
}

// Fetch downloads and parses an export with the given client and no extra timeout.
func Fetch(ctx context.Context, client *http.Client, url string) ([]Record, error) {
	return NewFetcherWithClient(client, 0).Table(ctx, url)
}
