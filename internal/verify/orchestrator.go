// Package verify runs the multi-source cover verification pipeline: search
// each catalog in priority order, fuzzy-match candidates, validate their
// artwork, and cache the first fully verified result.
package verify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tunelore/coverart/internal/imagecheck"
	"github.com/tunelore/coverart/internal/match"
	"github.com/tunelore/coverart/internal/model"
	"github.com/tunelore/coverart/internal/source"
)

// ErrNoMatch is the terminal error string reported when every source is
// exhausted without a verified cover.
const ErrNoMatch = "No matching cover found in any source"

// URLValidator confirms that a URL serves image content.
type URLValidator interface {
	ValidateURL(ctx context.Context, url string) imagecheck.Validation
}

// Orchestrator tries each source in fixed priority order and returns the
// first candidate that is both metadata-matched and image-valid. The order
// encodes trust, not latency: the primary catalog is authoritative and the
// fallbacks only cover its gaps, so sources are never raced.
type Orchestrator struct {
	sources    []source.Source
	thresholds match.Thresholds
	validator  URLValidator

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

// NewOrchestrator creates an Orchestrator over the given sources, tried in
// slice order.
func NewOrchestrator(sources []source.Source, thresholds match.Thresholds, validator URLValidator) *Orchestrator {
	return &Orchestrator{
		sources:    sources,
		thresholds: thresholds,
		validator:  validator,
		nowFunc:    time.Now,
	}
}

// FetchCoverForSong runs the fallback chain for one song. It always returns
// a result; exhausting every source yields a terminal result with
// Verified=false and a non-empty Error, never a Go error.
func (o *Orchestrator) FetchCoverForSong(ctx context.Context, query model.QueryMeta) *model.VerificationResult {
	start := o.nowFunc()

	for _, src := range o.sources {
		if result := o.trySource(ctx, src, query); result != nil {
			result.VerificationTimeMS = o.nowFunc().Sub(start).Milliseconds()
			return result
		}
	}

	return &model.VerificationResult{
		Source:             model.SourceNone,
		Verified:           false,
		Error:              ErrNoMatch,
		VerificationTimeMS: o.nowFunc().Sub(start).Milliseconds(),
	}
}

// trySource runs one adapter. Candidates are taken in provider order; a
// mismatch or broken image moves on to the next candidate, and any
// provider-level failure makes the whole source contribute nothing. Errors
// never escape this method.
func (o *Orchestrator) trySource(ctx context.Context, src source.Source, query model.QueryMeta) *model.VerificationResult {
	log := zap.L().With(
		zap.String("source", string(src.Name())),
		zap.String("title", query.Title),
		zap.String("artist", query.Artist),
	)

	candidates, err := src.Search(ctx, query)
	if err != nil {
		log.Warn("source search failed", zap.Error(err))
		return nil
	}
	if len(candidates) == 0 {
		log.Debug("source returned no candidates")
		return nil
	}

	for _, cand := range candidates {
		detail, err := src.Detail(ctx, cand)
		if err != nil {
			log.Warn("candidate detail fetch failed",
				zap.String("candidate_id", cand.ID),
				zap.Error(err),
			)
			continue
		}

		res := match.Evaluate(detail, query, o.thresholds)
		if !res.Match {
			log.Debug("candidate rejected",
				zap.String("candidate_id", cand.ID),
				zap.String("reason", string(res.Reason)),
				zap.Float64("title_score", res.Scores.Title),
				zap.Float64("artist_score", res.Scores.Artist),
			)
			continue
		}

		coverURL := src.CoverURL(detail)
		validation := o.validator.ValidateURL(ctx, coverURL)
		if !validation.Valid {
			// A metadata match with a broken image is not a success.
			log.Debug("candidate cover invalid",
				zap.String("candidate_id", cand.ID),
				zap.String("cover_url", coverURL),
				zap.String("reason", validation.Reason),
			)
			continue
		}

		log.Info("cover verified",
			zap.String("candidate_id", detail.ID),
			zap.String("cover_url", coverURL),
		)
		scores := res.Scores
		return &model.VerificationResult{
			SongID:   detail.ID,
			CoverURL: coverURL,
			Source:   src.Name(),
			Verified: true,
			Metadata: &model.SongMeta{
				Title:    detail.Title,
				Artist:   detail.PrimaryArtist,
				Album:    detail.Album,
				Language: detail.Language,
			},
			Scores: &scores,
		}
	}

	return nil
}
