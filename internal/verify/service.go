package verify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tunelore/coverart/internal/model"
	"github.com/tunelore/coverart/internal/store"
)

// DefaultMaxBatchSize caps one batch request.
const DefaultMaxBatchSize = 50

// ErrMissingFields rejects verification requests without both title and artist.
var ErrMissingFields = eris.New("verify: title and artist are required")

// BatchItem is one song in a batch verification request.
type BatchItem struct {
	model.QueryMeta
	SongID string `json:"song_id,omitempty"`
}

// BatchResult aggregates the per-item outcomes of one batch run.
type BatchResult struct {
	Results  []*model.VerificationResult `json:"results"`
	Total    int                         `json:"total"`
	Verified int                         `json:"verified"`
	Cached   int                         `json:"cached"`
	Failed   int                         `json:"failed"`
}

// Service wraps the orchestrator with the verification cache: fresh cached
// rows short-circuit the provider chain, and successful runs are upserted
// back unless an admin override holds the row.
type Service struct {
	orch      *Orchestrator
	store     store.Store
	freshness time.Duration
	maxBatch  int

	nowFunc func() time.Time
}

// NewService builds a Service. freshness bounds how long a cached automated
// verification stays authoritative; maxBatch <= 0 uses DefaultMaxBatchSize.
func NewService(orch *Orchestrator, st store.Store, freshness time.Duration, maxBatch int) *Service {
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatchSize
	}
	return &Service{
		orch:      orch,
		store:     st,
		freshness: freshness,
		maxBatch:  maxBatch,
		nowFunc:   time.Now,
	}
}

// MaxBatchSize reports the per-request batch cap.
func (s *Service) MaxBatchSize() int { return s.maxBatch }

// Verify runs one verification. songID is optional; when present it keys the
// cache lookup and the upsert, otherwise no cache row is read and a
// successful result is upserted under the provider's own ID.
func (s *Service) Verify(ctx context.Context, query model.QueryMeta, songID string) (*model.VerificationResult, error) {
	if query.Title == "" || query.Artist == "" {
		return nil, ErrMissingFields
	}

	if songID != "" {
		rec, err := s.store.GetCoverMap(ctx, songID)
		if err != nil {
			return nil, eris.Wrap(err, "verify: cache lookup")
		}
		if store.IsFresh(rec, s.freshness, s.nowFunc()) {
			return cachedResult(rec), nil
		}
	}

	result := s.orch.FetchCoverForSong(ctx, query)

	if result.Verified {
		key := songID
		if key == "" {
			key = result.SongID
		}
		rec := model.CoverMapRecord{
			SongID:     key,
			Title:      query.Title,
			Artist:     query.Artist,
			Language:   query.Language,
			Album:      query.Album,
			CoverURL:   result.CoverURL,
			Source:     result.Source,
			Scores:     result.Scores,
			Metadata:   result.Metadata,
			VerifiedAt: s.nowFunc(),
		}
		applied, err := s.store.UpsertVerification(ctx, rec)
		if err != nil {
			return nil, eris.Wrap(err, "verify: cache upsert")
		}
		if !applied {
			zap.L().Debug("cache upsert suppressed by manual override",
				zap.String("song_id", key))
		}
	}

	s.appendLog(ctx, query, result)
	return result, nil
}

// VerifyBatch runs items strictly in order, one at a time. Provider rate
// limits are shared process-wide, so batches gain nothing from concurrency
// and sequential runs keep per-item logs readable.
func (s *Service) VerifyBatch(ctx context.Context, items []BatchItem) (*BatchResult, error) {
	if len(items) == 0 {
		return nil, eris.New("verify: batch is empty")
	}
	if len(items) > s.maxBatch {
		return nil, eris.Errorf("verify: batch size %d exceeds limit %d", len(items), s.maxBatch)
	}

	out := &BatchResult{
		Results: make([]*model.VerificationResult, 0, len(items)),
		Total:   len(items),
	}
	for _, item := range items {
		result, err := s.Verify(ctx, item.QueryMeta, item.SongID)
		if err != nil {
			if eris.Is(err, ErrMissingFields) {
				result = &model.VerificationResult{
					SongID:   item.SongID,
					Source:   model.SourceNone,
					Verified: false,
					Error:    "title and artist are required",
				}
			} else {
				return nil, err
			}
		}
		out.Results = append(out.Results, result)
		switch {
		case result.Cached:
			out.Cached++
		case result.Verified:
			out.Verified++
		default:
			out.Failed++
		}
	}
	return out, nil
}

// appendLog writes the audit row. The log is write-only telemetry, so a
// failed append is logged and swallowed rather than failing the request.
func (s *Service) appendLog(ctx context.Context, query model.QueryMeta, result *model.VerificationResult) {
	rec := model.VerificationLogRecord{
		ID:          uuid.NewString(),
		Title:       query.Title,
		Artist:      query.Artist,
		Language:    query.Language,
		Album:       query.Album,
		Source:      result.Source,
		CandidateID: result.SongID,
		Scores:      result.Scores,
		DurationMS:  result.VerificationTimeMS,
		Success:     result.Verified,
		Error:       result.Error,
		CreatedAt:   s.nowFunc(),
	}
	if err := s.store.AppendVerificationLog(ctx, rec); err != nil {
		zap.L().Warn("verification log append failed", zap.Error(err))
	}
}

// cachedResult converts a fresh cache row into a response without touching
// any provider.
func cachedResult(rec *model.CoverMapRecord) *model.VerificationResult {
	return &model.VerificationResult{
		SongID:   rec.SongID,
		CoverURL: rec.CoverURL,
		Source:   rec.Source,
		Verified: true,
		Cached:   true,
		Metadata: rec.Metadata,
		Scores:   rec.Scores,
	}
}
