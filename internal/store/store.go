// Package store persists the cover verification cache, sweep results, and
// audit records behind a driver-agnostic interface.
package store

import (
	"context"
	"time"

	"github.com/tunelore/coverart/internal/model"
)

// Store defines the persistence contract for the verification pipeline.
//
// UpsertVerification is conditional: it must leave the row untouched while
// manual_override is set, expressed as a single guarded statement at the
// database so concurrent batch runs cannot race an admin override.
type Store interface {
	// Cover map (verification cache)
	GetCoverMap(ctx context.Context, songID string) (*model.CoverMapRecord, error)
	UpsertVerification(ctx context.Context, rec model.CoverMapRecord) (bool, error)
	ApplyOverride(ctx context.Context, songID, coverURL, reason, adminID string, meta *model.SongMeta) error
	RemoveOverride(ctx context.Context, songID string) (bool, error)

	// Sweep worker records
	UpsertCoverCheck(ctx context.Context, rec model.CoverCheckRecord) error
	UpsertVerifiedBadge(ctx context.Context, songID string, verified bool, reason string) error
	ListSweepCandidates(ctx context.Context, limit int) ([]model.SweepCandidate, error)

	// Audit / reports
	AppendVerificationLog(ctx context.Context, rec model.VerificationLogRecord) error
	InsertCoverReport(ctx context.Context, report model.CoverReport) (string, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// IsFresh reports whether a cached record can short-circuit re-verification:
// either an admin froze it, or it was verified within the freshness window.
func IsFresh(rec *model.CoverMapRecord, window time.Duration, now time.Time) bool {
	if rec == nil {
		return false
	}
	if rec.ManualOverride {
		return true
	}
	return now.Sub(rec.VerifiedAt) < window
}
