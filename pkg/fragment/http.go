package fragment

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultMaxBytes caps the size of a fetched fragment.
const DefaultMaxBytes = 4 << 20

// HTTPSource fetches fragments with GET requests.
type HTTPSource struct {
	// BaseURL is prepended to relative keys. Keys that are already
	// absolute URLs are requested as is.
	BaseURL string

	// Client defaults to http.DefaultClient.
	Client *http.Client

	// Header is added to every request.
	Header http.Header

	// MaxBytes defaults to DefaultMaxBytes.
	MaxBytes int64
}

// Fetch implements Source. A 404 response matches ErrNotFound; any other
// non-2xx status is a fetch error.
func (s *HTTPSource) Fetch(ctx context.Context, key string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url(key), nil)
	if err != nil {
		return nil, fetchFailed(key, err)
	}
	for name, values := range s.Header {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fetchFailed(key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, notFound(key)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fetchFailed(key, fmt.Errorf("unexpected status %s", resp.Status))
	}

	limit := s.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fetchFailed(key, err)
	}
	if int64(len(body)) > limit {
		return nil, fetchFailed(key, fmt.Errorf("response exceeds %d bytes", limit))
	}
	return body, nil
}

func (s *HTTPSource) url(key string) string {
	if strings.HasPrefix(key, "http://") || strings.HasPrefix(key, "https://") {
		return key
	}
	if s.BaseURL == "" {
		return key
	}
	return strings.TrimSuffix(s.BaseURL, "/") + "/" + strings.TrimPrefix(key, "/")
}
