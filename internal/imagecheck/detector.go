package imagecheck

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/corona10/goimagehash"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tunelore/coverart/internal/model"
)

// Detector verdict methods.
const (
	MethodHeuristic = "heuristic"
	MethodNetwork   = "network"
	MethodPHash     = "phash"
)

// DefaultPlaceholderTokens are URL substrings that mark obvious placeholder
// artwork. Matching is case-insensitive.
func DefaultPlaceholderTokens() []string {
	return []string{"placeholder", "default", "no-image", "noimage", "missing", "blank"}
}

// DetectorConfig tunes the generic-cover detector.
type DetectorConfig struct {
	// PlaceholderTokens are matched as case-insensitive URL substrings
	// before any network call.
	PlaceholderTokens []string
	// KnownHashes is the curated list of generic-cover perceptual hashes.
	// Treated as configuration; the detector never ships its own values.
	KnownHashes []*goimagehash.ImageHash
	// DistanceThreshold is the maximum Hamming distance to a known hash
	// that still counts as generic. Default 10.
	DistanceThreshold int
	// MaxDownloadBytes caps the image download. Default 2MB.
	MaxDownloadBytes int64
	// DownloadTimeout bounds the image fetch. Default 10s.
	DownloadTimeout time.Duration
}

// Detector flags generic or placeholder cover art. Cheap string heuristics
// run first; the download-and-hash cost is only paid when they pass.
type Detector struct {
	cfg    DetectorConfig
	client *http.Client

	// fetch allows test injection of the download step.
	fetch func(ctx context.Context, url string) ([]byte, error)
}

// NewDetector creates a Detector with defaults applied.
func NewDetector(cfg DetectorConfig) *Detector {
	if len(cfg.PlaceholderTokens) == 0 {
		cfg.PlaceholderTokens = DefaultPlaceholderTokens()
	}
	if cfg.DistanceThreshold <= 0 {
		cfg.DistanceThreshold = 10
	}
	if cfg.MaxDownloadBytes <= 0 {
		cfg.MaxDownloadBytes = 2 << 20
	}
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = 10 * time.Second
	}
	d := &Detector{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.DownloadTimeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	d.fetch = d.download
	return d
}

// WithFetchFunc replaces the download step (for testing).
func (d *Detector) WithFetchFunc(fn func(ctx context.Context, url string) ([]byte, error)) *Detector {
	d.fetch = fn
	return d
}

// CheckCover inspects one song's cover URL and returns a verdict. Rejections
// are expected outcomes, never errors.
func (d *Detector) CheckCover(ctx context.Context, coverURL string) model.CheckVerdict {
	if coverURL == "" {
		return model.CheckVerdict{
			Verified: false,
			Reason:   model.CheckMissingURL,
			Method:   MethodHeuristic,
		}
	}

	lower := strings.ToLower(coverURL)
	for _, token := range d.cfg.PlaceholderTokens {
		if strings.Contains(lower, token) {
			return model.CheckVerdict{
				Verified: false,
				Reason:   model.CheckPlaceholderPattern,
				Method:   MethodHeuristic,
			}
		}
	}

	data, err := d.fetch(ctx, coverURL)
	if err != nil {
		zap.L().Debug("cover download failed",
			zap.String("url", coverURL),
			zap.Error(err),
		)
		return model.CheckVerdict{
			Verified: false,
			Reason:   model.CheckDownloadFailed,
			Method:   MethodNetwork,
		}
	}

	hash, err := HashImage(data)
	if err != nil {
		return model.CheckVerdict{
			Verified: false,
			Reason:   model.CheckDecodeFailed,
			Method:   MethodNetwork,
		}
	}
	phash := FormatHash(hash)

	// The known set is small and fixed, so a linear Hamming scan is enough.
	for _, known := range d.cfg.KnownHashes {
		dist, err := hash.Distance(known)
		if err != nil {
			continue
		}
		if dist <= d.cfg.DistanceThreshold {
			return model.CheckVerdict{
				Verified:    false,
				Reason:      model.CheckGenericMatch,
				Method:      MethodPHash,
				PHash:       phash,
				MatchedHash: FormatHash(known),
			}
		}
	}

	return model.CheckVerdict{
		Verified: true,
		Reason:   model.CheckPassed,
		Method:   MethodPHash,
		PHash:    phash,
	}
}

// download fetches the image bytes, capped at MaxDownloadBytes.
func (d *Detector) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "imagecheck: create download request")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "imagecheck: download cover")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("imagecheck: download cover: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, d.cfg.MaxDownloadBytes))
	if err != nil {
		return nil, eris.Wrap(err, "imagecheck: read cover body")
	}
	return data, nil
}
