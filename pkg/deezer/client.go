// Package deezer provides a client for the Deezer search API, the second
// fallback metadata source.
package deezer

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

// Client defines the Deezer search operations.
type Client interface {
	// SearchTracks queries the track catalog.
	SearchTracks(ctx context.Context, query string, limit int) ([]Track, error)
}

// TrackArtist is the artist block on a search result.
type TrackArtist struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// TrackAlbum carries the album title and cover renditions from large to small.
type TrackAlbum struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	CoverXL     string `json:"cover_xl"`
	CoverBig    string `json:"cover_big"`
	CoverMedium string `json:"cover_medium"`
	CoverSmall  string `json:"cover_small"`
}

// Track is one Deezer search result, complete enough to match directly.
type Track struct {
	ID     int64       `json:"id"`
	Title  string      `json:"title"`
	Artist TrackArtist `json:"artist"`
	Album  TrackAlbum  `json:"album"`
}

type searchResponse struct {
	Data []Track `json:"data"`
}

// Option configures the deezer client.
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

// NewClient creates a Deezer search client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: "https://api.deezer.com",
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

func (c *httpClient) SearchTracks(ctx context.Context, query string, limit int) ([]Track, error) {
	reqURL := fmt.Sprintf("%s/search?q=%s&limit=%d", c.baseURL, url.QueryEscape(query), limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "deezer: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "deezer: search request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "deezer: read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("deezer: unexpected status %d", resp.StatusCode)
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "deezer: unmarshal search response")
	}
	return result.Data, nil
}
