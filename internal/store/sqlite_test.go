package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunelore/coverart/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "coverart.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteStore_GetCoverMap_NotFound(t *testing.T) {
	s := newTestSQLiteStore(t)

	rec, err := s.GetCoverMap(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestSQLiteStore_UpsertAndGet(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	albumSim := 0.91
	applied, err := s.UpsertVerification(ctx, model.CoverMapRecord{
		SongID:   "song-1",
		Title:    "Peelings",
		Artist:   "Navod",
		Language: "Malayalam",
		Album:    "Aavesham",
		CoverURL: "https://cdn.example.com/cover.jpg",
		Source:   model.SourcePrimary,
		Scores:   &model.SimilarityScores{Title: 1, Artist: 1, Album: &albumSim},
		Metadata: &model.SongMeta{Title: "Peelings", Artist: "Navod"},
	})
	require.NoError(t, err)
	assert.True(t, applied)

	rec, err := s.GetCoverMap(ctx, "song-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "https://cdn.example.com/cover.jpg", rec.CoverURL)
	assert.Equal(t, model.SourcePrimary, rec.Source)
	require.NotNil(t, rec.Scores)
	assert.Equal(t, 1.0, rec.Scores.Title)
	require.NotNil(t, rec.Scores.Album)
	assert.Equal(t, 0.91, *rec.Scores.Album)
	assert.False(t, rec.ManualOverride)
}

func TestSQLiteStore_OverrideBlocksAutomatedUpsert(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := s.UpsertVerification(ctx, model.CoverMapRecord{
		SongID: "song-1", Title: "Peelings", Artist: "Navod",
		CoverURL: "https://cdn.example.com/auto.jpg", Source: model.SourcePrimary,
	})
	require.NoError(t, err)

	require.NoError(t, s.ApplyOverride(ctx, "song-1",
		"https://cdn.example.com/manual.jpg", "wrong artwork", "admin-7", nil))

	// Automated upsert while frozen: no change.
	applied, err := s.UpsertVerification(ctx, model.CoverMapRecord{
		SongID: "song-1", Title: "Peelings", Artist: "Navod",
		CoverURL: "https://cdn.example.com/newer.jpg", Source: model.SourceFallbackB,
	})
	require.NoError(t, err)
	assert.False(t, applied)

	rec, err := s.GetCoverMap(ctx, "song-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "https://cdn.example.com/manual.jpg", rec.CoverURL)
	assert.Equal(t, model.SourceManual, rec.Source)
	assert.True(t, rec.ManualOverride)
	assert.Equal(t, "admin-7", rec.AdminUserID)

	// Remove the override, then automated upserts take effect again.
	removed, err := s.RemoveOverride(ctx, "song-1")
	require.NoError(t, err)
	assert.True(t, removed)

	applied, err = s.UpsertVerification(ctx, model.CoverMapRecord{
		SongID: "song-1", Title: "Peelings", Artist: "Navod",
		CoverURL: "https://cdn.example.com/newer.jpg", Source: model.SourceFallbackB,
	})
	require.NoError(t, err)
	assert.True(t, applied)

	rec, err = s.GetCoverMap(ctx, "song-1")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/newer.jpg", rec.CoverURL)
	assert.Equal(t, model.SourceFallbackB, rec.Source)
}

func TestSQLiteStore_RemoveOverride_NoOpWhenNotOverridden(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	removed, err := s.RemoveOverride(ctx, "never-seen")
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = s.UpsertVerification(ctx, model.CoverMapRecord{
		SongID: "song-1", Title: "Peelings", Artist: "Navod",
		CoverURL: "https://cdn.example.com/auto.jpg", Source: model.SourcePrimary,
	})
	require.NoError(t, err)

	removed, err = s.RemoveOverride(ctx, "song-1")
	require.NoError(t, err)
	assert.False(t, removed, "no override set, nothing to remove")
}

func TestSQLiteStore_CoverCheckAndBadge(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertCoverCheck(ctx, model.CoverCheckRecord{
		SongID:   "song-1",
		CoverURL: "https://cdn.example.com/cover.jpg",
		PHash:    "81c3e7ff00183c7e",
	}))
	// Second write for the same song replaces, not duplicates.
	require.NoError(t, s.UpsertCoverCheck(ctx, model.CoverCheckRecord{
		SongID:   "song-1",
		CoverURL: "https://cdn.example.com/cover2.jpg",
		PHash:    "91c3e7ff00183c7e",
	}))

	require.NoError(t, s.UpsertVerifiedBadge(ctx, "song-1", true, "passed_checks"))
	require.NoError(t, s.UpsertVerifiedBadge(ctx, "song-1", false, "generic_match"))
}

func TestSQLiteStore_ListSweepCandidates(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, err := s.UpsertVerification(ctx, model.CoverMapRecord{
			SongID: id, Title: "T", Artist: "A",
			CoverURL: "https://cdn.example.com/" + id + ".jpg",
			Source:   model.SourcePrimary,
		})
		require.NoError(t, err)
	}

	candidates, err := s.ListSweepCandidates(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, candidates, 2)

	candidates, err = s.ListSweepCandidates(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, candidates, 3)
}

func TestSQLiteStore_VerificationLogAndReports(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendVerificationLog(ctx, model.VerificationLogRecord{
		Title: "Peelings", Artist: "Navod", Source: model.SourcePrimary,
		CandidateID: "cand-3", DurationMS: 412, Success: true,
	}))

	id, err := s.InsertCoverReport(ctx, model.CoverReport{
		SongID:            "song-1",
		DisplayedCoverURL: "https://cdn.example.com/wrong.jpg",
		CorrectHint:       "this is the single art, not the album art",
		UserID:            "user-9",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestIsFresh(t *testing.T) {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	window := 30 * 24 * time.Hour

	assert.False(t, IsFresh(nil, window, now))

	fresh := &model.CoverMapRecord{VerifiedAt: now.Add(-24 * time.Hour)}
	assert.True(t, IsFresh(fresh, window, now))

	stale := &model.CoverMapRecord{VerifiedAt: now.Add(-31 * 24 * time.Hour)}
	assert.False(t, IsFresh(stale, window, now))

	// An override freezes the record regardless of age.
	frozen := &model.CoverMapRecord{VerifiedAt: now.Add(-365 * 24 * time.Hour), ManualOverride: true}
	assert.True(t, IsFresh(frozen, window, now))
}
