// Package itunes provides a client for the iTunes Search API, the first
// fallback metadata source. Search results carry full track metadata, so no
// per-candidate detail fetch is needed.
package itunes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the iTunes Search operations.
type Client interface {
	// SearchSongs queries the song catalog.
	SearchSongs(ctx context.Context, term string, limit int) ([]Track, error)
}

// Track is one iTunes search result. Artwork URLs come in fixed sizes; the
// 100px URL can be rewritten to higher resolutions.
type Track struct {
	TrackID        int64  `json:"trackId"`
	TrackName      string `json:"trackName"`
	ArtistName     string `json:"artistName"`
	CollectionName string `json:"collectionName"`
	ArtworkURL100  string `json:"artworkUrl100"`
	ArtworkURL60   string `json:"artworkUrl60"`
	ArtworkURL30   string `json:"artworkUrl30"`
}

type searchResponse struct {
	ResultCount int     `json:"resultCount"`
	Results     []Track `json:"results"`
}

// Option configures the itunes client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.http.Timeout = d
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates an iTunes Search client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: "https://itunes.apple.com",
		http: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) SearchSongs(ctx context.Context, term string, limit int) ([]Track, error) {
	reqURL := fmt.Sprintf("%s/search?term=%s&media=music&entity=song&limit=%d",
		c.baseURL, url.QueryEscape(term), limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "itunes: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "itunes: search request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "itunes: read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("itunes: unexpected status %d", resp.StatusCode)
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "itunes: unmarshal search response")
	}
	return result.Results, nil
}
