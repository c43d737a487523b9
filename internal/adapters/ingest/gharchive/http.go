package gharchive

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	perr "ghscan/internal/platform/errors"
)

// DefaultBaseURL is the public archive endpoint
const DefaultBaseURL = "https://data.gharchive.org"

// StatusError is a non-200 answer from the archive endpoint
type StatusError struct {
	Status int
	URL    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gharchive: unexpected status %d for %s", e.Status, e.URL)
}

// HTTPSource downloads hours from the archive endpoint. Each Fetch is a single
// attempt; retries are the caller's concern.
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPSource returns a source for baseURL (DefaultBaseURL when empty);
// timeout 0 means no client timeout
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &HTTPSource{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

// URL is the remote location of hour
func (s *HTTPSource) URL(hour time.Time) string {
	return s.BaseURL + "/" + Key(hour)
}

// Open issues the GET; non-200 answers are CodeHTTP errors wrapping *StatusError
func (s *HTTPSource) Open(ctx context.Context, hour time.Time) (Body, error) {
	url := s.URL(hour)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Body{}, err
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return Body{}, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		se := &StatusError{Status: resp.StatusCode, URL: url}
		return Body{}, perr.Wrap(se, perr.CodeHTTP, "gharchive: fetch "+Key(hour))
	}
	return Body{Name: url, Compressed: true, ReadCloser: resp.Body}, nil
}

// Fetch implements Source with one download and decode
func (s *HTTPSource) Fetch(ctx context.Context, hour time.Time) ([]Record, error) {
	b, err := s.Open(ctx, hour)
	if err != nil {
		return nil, err
	}
	defer func() { _ = b.ReadCloser.Close() }()
	return ReadAll(b.ReadCloser, b.Compressed, Key(hour))
}
