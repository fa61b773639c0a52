// Package saavn provides a client for the JioSaavn catalog API, the primary
// metadata source. Search results are thin summaries; full song records come
// from a second per-song fetch.
package saavn

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the JioSaavn catalog operations.
type Client interface {
	// SearchSongs queries the song catalog and returns summary records.
	SearchSongs(ctx context.Context, query string, limit int) ([]SongSummary, error)
	// Song fetches the full record for one song id.
	Song(ctx context.Context, id string) (*Song, error)
}

// SongSummary is a search hit. It lacks language, album, and image data;
// match decisions need the full Song record.
type SongSummary struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	PrimaryArtists string `json:"primaryArtists"`
}

// Artist is a named credit on a song.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ArtistMap groups a song's credits by role.
type ArtistMap struct {
	Primary  []Artist `json:"primary"`
	Featured []Artist `json:"featured"`
	All      []Artist `json:"all"`
}

// Album is the album block on a full song record.
type Album struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Image is one rendition of the cover with a quality label like "500x500".
type Image struct {
	Quality string `json:"quality"`
	URL     string `json:"url"`
}

// Song is the full catalog record for one track.
type Song struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Language string    `json:"language"`
	Album    Album     `json:"album"`
	Artists  ArtistMap `json:"artists"`
	Images   []Image   `json:"image"`
}

type searchResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Results []SongSummary `json:"results"`
	} `json:"data"`
}

type songResponse struct {
	Success bool   `json:"success"`
	Data    []Song `json:"data"`
}

// Option configures the saavn client.
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

// NewClient creates a JioSaavn catalog client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: "https://saavn.dev",
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

func (c *httpClient) SearchSongs(ctx context.Context, query string, limit int) ([]SongSummary, error) {
	reqURL := fmt.Sprintf("%s/api/search/songs?query=%s&limit=%s",
		c.baseURL, url.QueryEscape(query), strconv.Itoa(limit))

	body, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, eris.Wrap(err, "saavn: search songs")
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "saavn: unmarshal search response")
	}
	if !result.Success {
		return nil, eris.New("saavn: search returned success=false")
	}
	return result.Data.Results, nil
}

func (c *httpClient) Song(ctx context.Context, id string) (*Song, error) {
	reqURL := fmt.Sprintf("%s/api/songs/%s", c.baseURL, url.PathEscape(id))

	body, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, eris.Wrapf(err, "saavn: fetch song %s", id)
	}

	var result songResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "saavn: unmarshal song response")
	}
	if !result.Success || len(result.Data) == 0 {
		return nil, eris.Errorf("saavn: song %s not found", id)
	}
	return &result.Data[0], nil
}

func (c *httpClient) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
