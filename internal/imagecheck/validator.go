// Package imagecheck validates cover image URLs and detects generic or
// placeholder artwork via perceptual hashing.
package imagecheck

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Validation is the outcome of probing a cover URL. Reason is always set on
// failure so adapters can log why a metadata match was discarded.
type Validation struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// Validator confirms that a URL actually serves image content without
// downloading the full payload. A HEAD probe runs first; servers that reject
// header-only requests get a 1KB ranged GET instead.
type Validator struct {
	client *http.Client
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(hc *http.Client) ValidatorOption {
	return func(v *Validator) {
		v.client = hc
	}
}

// NewValidator creates a Validator with the given probe timeout.
func NewValidator(timeout time.Duration, opts ...ValidatorOption) *Validator {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	v := &Validator{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateURL checks that url serves image content. Failures are expected
// negative outcomes, not errors; the result's Reason explains them.
func (v *Validator) ValidateURL(ctx context.Context, url string) Validation {
	if url == "" {
		return Validation{Valid: false, Reason: "No URL provided"}
	}

	if res, ok := v.probe(ctx, http.MethodHead, url); ok {
		return res
	}

	// Some CDNs reject HEAD outright. A ranged GET over the first kilobyte
	// gets us the content-type without pulling the whole image.
	if res, ok := v.probe(ctx, http.MethodGet, url); ok {
		return res
	}

	return Validation{Valid: false, Reason: "image URL unreachable"}
}

// probe issues a single metadata-only request. The second return value is
// false when the attempt failed in a way that warrants falling back to the
// next strategy (network error, method not allowed).
func (v *Validator) probe(ctx context.Context, method, url string) (Validation, bool) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return Validation{Valid: false, Reason: "invalid URL: " + err.Error()}, true
	}
	if method == http.MethodGet {
		req.Header.Set("Range", "bytes=0-1023")
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return Validation{}, false
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusPartialContent:
		ct := resp.Header.Get("Content-Type")
		if !strings.HasPrefix(ct, "image/") {
			return Validation{
				Valid:  false,
				Reason: fmt.Sprintf("unexpected content-type %q", ct),
			}, true
		}
		return Validation{Valid: true}, true
	case resp.StatusCode == http.StatusNotFound:
		return Validation{Valid: false, Reason: "image not found (404)"}, true
	case resp.StatusCode == http.StatusMethodNotAllowed && method == http.MethodHead:
		return Validation{}, false
	default:
		return Validation{
			Valid:  false,
			Reason: fmt.Sprintf("unexpected status %d", resp.StatusCode),
		}, true
	}
}
