package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunelore/coverart/internal/model"
	"github.com/tunelore/coverart/internal/store"
)

func TestPoolRunsAllJobs(t *testing.T) {
	pool := NewPool(context.Background(), 4)

	var ran atomic.Int64
	for i := 0; i < 20; i++ {
		ok := pool.Submit(func(ctx context.Context) error {
			ran.Add(1)
			return nil
		})
		require.True(t, ok)
	}
	errs := pool.Shutdown()
	assert.Empty(t, errs)
	assert.Equal(t, int64(20), ran.Load())
}

func TestPoolCollectsJobErrors(t *testing.T) {
	pool := NewPool(context.Background(), 2)

	for i := 0; i < 5; i++ {
		fail := i%2 == 0
		pool.Submit(func(ctx context.Context) error {
			if fail {
				return eris.New("job failed")
			}
			return nil
		})
	}
	errs := pool.Shutdown()
	assert.Len(t, errs, 3)
}

func TestPoolRejectsSubmitAfterShutdown(t *testing.T) {
	pool := NewPool(context.Background(), 1)
	pool.Shutdown()

	ok := pool.Submit(func(ctx context.Context) error { return nil })
	assert.False(t, ok)

	// Repeated shutdown is a no-op.
	assert.Empty(t, pool.Shutdown())
}

func TestPoolRejectsSubmitOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(ctx, 1)

	block := make(chan struct{})
	require.True(t, pool.Submit(func(ctx context.Context) error {
		<-block
		return nil
	}))
	cancel()

	done := make(chan bool, 1)
	go func() {
		done <- pool.Submit(func(ctx context.Context) error { return nil })
	}()
	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("submit did not unblock on context cancel")
	}
	close(block)
	pool.Shutdown()
}

// fakeSweepStore records sweep writes and serves a fixed candidate list.
type fakeSweepStore struct {
	store.Store

	mu         sync.Mutex
	candidates []model.SweepCandidate
	checks     map[string]model.CoverCheckRecord
	badges     map[string]bool
	checkErr   error
}

func newFakeSweepStore(candidates ...model.SweepCandidate) *fakeSweepStore {
	return &fakeSweepStore{
		candidates: candidates,
		checks:     map[string]model.CoverCheckRecord{},
		badges:     map[string]bool{},
	}
}

func (f *fakeSweepStore) ListSweepCandidates(ctx context.Context, limit int) ([]model.SweepCandidate, error) {
	if limit > 0 && limit < len(f.candidates) {
		return f.candidates[:limit], nil
	}
	return f.candidates, nil
}

func (f *fakeSweepStore) UpsertCoverCheck(ctx context.Context, rec model.CoverCheckRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.checkErr != nil {
		return f.checkErr
	}
	f.checks[rec.SongID] = rec
	return nil
}

func (f *fakeSweepStore) UpsertVerifiedBadge(ctx context.Context, songID string, verified bool, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.badges[songID] = verified
	return nil
}

type checkerFunc func(ctx context.Context, coverURL string) model.CheckVerdict

func (f checkerFunc) CheckCover(ctx context.Context, coverURL string) model.CheckVerdict {
	return f(ctx, coverURL)
}

func TestSweeperRecordsVerdicts(t *testing.T) {
	st := newFakeSweepStore(
		model.SweepCandidate{SongID: "s1", CoverURL: "https://img.test/s1.jpg"},
		model.SweepCandidate{SongID: "s2", CoverURL: "https://img.test/placeholder.jpg"},
		model.SweepCandidate{SongID: "s3", CoverURL: "https://img.test/s3.jpg"},
	)
	checker := checkerFunc(func(_ context.Context, coverURL string) model.CheckVerdict {
		if coverURL == "https://img.test/placeholder.jpg" {
			return model.CheckVerdict{Verified: false, Reason: model.CheckPlaceholderPattern, Method: "heuristic"}
		}
		return model.CheckVerdict{Verified: true, Reason: model.CheckPassed, Method: "phash", PHash: "8f373714acfcf4d0"}
	})

	sweeper := NewSweeper(st, checker, 2)
	stats, err := sweeper.Run(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, int64(3), stats.Scanned)
	assert.Equal(t, int64(2), stats.Verified)
	assert.Equal(t, int64(1), stats.Flagged)
	assert.Equal(t, int64(0), stats.Failed)

	assert.True(t, st.badges["s1"])
	assert.False(t, st.badges["s2"])
	assert.Equal(t, "8f373714acfcf4d0", st.checks["s1"].PHash)
	assert.False(t, st.checks["s1"].CheckedAt.IsZero())
}

func TestSweeperHonorsLimit(t *testing.T) {
	st := newFakeSweepStore(
		model.SweepCandidate{SongID: "s1", CoverURL: "u1"},
		model.SweepCandidate{SongID: "s2", CoverURL: "u2"},
	)
	checker := checkerFunc(func(context.Context, string) model.CheckVerdict {
		return model.CheckVerdict{Verified: true, Reason: model.CheckPassed}
	})

	stats, err := NewSweeper(st, checker, 1).Run(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Scanned)
}

func TestSweeperCountsPerSongFailures(t *testing.T) {
	st := newFakeSweepStore(model.SweepCandidate{SongID: "s1", CoverURL: "u1"})
	st.checkErr = eris.New("db down")
	checker := checkerFunc(func(context.Context, string) model.CheckVerdict {
		return model.CheckVerdict{Verified: true, Reason: model.CheckPassed}
	})

	stats, err := NewSweeper(st, checker, 1).Run(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(0), stats.Verified)
}
