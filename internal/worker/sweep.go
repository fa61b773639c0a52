package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tunelore/coverart/internal/imagecheck"
	"github.com/tunelore/coverart/internal/model"
	"github.com/tunelore/coverart/internal/store"
)

// CoverChecker decides whether a stored cover is a real image or a generic
// placeholder. Satisfied by imagecheck.Detector.
type CoverChecker interface {
	CheckCover(ctx context.Context, coverURL string) model.CheckVerdict
}

var _ CoverChecker = (*imagecheck.Detector)(nil)

// SweepStats summarizes one sweep run.
type SweepStats struct {
	Scanned  int64 `json:"scanned"`
	Verified int64 `json:"verified"`
	Flagged  int64 `json:"flagged"`
	Failed   int64 `json:"failed"`
}

// Sweeper re-checks stored covers in the background: it lists candidate
// songs, runs the generic-cover detector on each, and records the verdict
// plus the derived verified badge.
type Sweeper struct {
	store       store.Store
	checker     CoverChecker
	concurrency int

	nowFunc func() time.Time
}

// NewSweeper builds a Sweeper running up to concurrency checks at once.
func NewSweeper(st store.Store, checker CoverChecker, concurrency int) *Sweeper {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Sweeper{
		store:       st,
		checker:     checker,
		concurrency: concurrency,
		nowFunc:     time.Now,
	}
}

// Run sweeps up to limit songs and returns aggregate counts. Per-song
// failures are counted and logged; only listing candidates or a cancelled
// context fail the run itself.
func (s *Sweeper) Run(ctx context.Context, limit int) (*SweepStats, error) {
	candidates, err := s.store.ListSweepCandidates(ctx, limit)
	if err != nil {
		return nil, eris.Wrap(err, "worker: list sweep candidates")
	}

	zap.L().Info("starting cover sweep",
		zap.Int("songs", len(candidates)),
		zap.Int("concurrency", s.concurrency),
	)

	var stats SweepStats
	pool := NewPool(ctx, s.concurrency)
	for _, cand := range candidates {
		if !pool.Submit(func(jctx context.Context) error {
			return s.sweepOne(jctx, cand, &stats)
		}) {
			break
		}
	}
	errs := pool.Shutdown()

	zap.L().Info("cover sweep finished",
		zap.Int64("scanned", stats.Scanned),
		zap.Int64("verified", stats.Verified),
		zap.Int64("flagged", stats.Flagged),
		zap.Int64("failed", stats.Failed),
	)
	if len(errs) > 0 {
		zap.L().Warn("sweep completed with per-song failures", zap.Int("count", len(errs)))
	}
	if ctx.Err() != nil {
		return &stats, eris.Wrap(ctx.Err(), "worker: sweep interrupted")
	}
	return &stats, nil
}

func (s *Sweeper) sweepOne(ctx context.Context, cand model.SweepCandidate, stats *SweepStats) error {
	atomic.AddInt64(&stats.Scanned, 1)
	log := zap.L().With(zap.String("song_id", cand.SongID))

	verdict := s.checker.CheckCover(ctx, cand.CoverURL)

	if err := s.store.UpsertCoverCheck(ctx, model.CoverCheckRecord{
		SongID:    cand.SongID,
		CoverURL:  cand.CoverURL,
		PHash:     verdict.PHash,
		CheckedAt: s.nowFunc(),
	}); err != nil {
		atomic.AddInt64(&stats.Failed, 1)
		log.Warn("cover check upsert failed", zap.Error(err))
		return eris.Wrapf(err, "worker: upsert cover check %s", cand.SongID)
	}
	if err := s.store.UpsertVerifiedBadge(ctx, cand.SongID, verdict.Verified, verdict.Reason); err != nil {
		atomic.AddInt64(&stats.Failed, 1)
		log.Warn("verified badge upsert failed", zap.Error(err))
		return eris.Wrapf(err, "worker: upsert badge %s", cand.SongID)
	}

	if verdict.Verified {
		atomic.AddInt64(&stats.Verified, 1)
	} else {
		atomic.AddInt64(&stats.Flagged, 1)
		log.Info("cover flagged",
			zap.String("reason", verdict.Reason),
			zap.String("method", verdict.Method),
		)
	}
	return nil
}
