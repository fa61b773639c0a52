package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tunelore/coverart/internal/config"
	"github.com/tunelore/coverart/internal/imagecheck"
	"github.com/tunelore/coverart/internal/source"
	"github.com/tunelore/coverart/internal/store"
	"github.com/tunelore/coverart/internal/verify"
	"github.com/tunelore/coverart/internal/worker"
	"github.com/tunelore/coverart/pkg/deezer"
	"github.com/tunelore/coverart/pkg/itunes"
	"github.com/tunelore/coverart/pkg/saavn"
)

// serviceEnv holds the initialized store, verification service, and sweeper
// shared by the serve/verify/sweep commands.
type serviceEnv struct {
	Store    store.Store
	Service  *verify.Service
	Sweeper  *worker.Sweeper
	Detector *imagecheck.Detector
}

// Close releases resources held by the environment.
func (se *serviceEnv) Close() {
	if se.Store != nil {
		_ = se.Store.Close()
	}
}

// initStore opens the configured database backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		if cfg.Store.DatabaseURL == "" {
			return nil, eris.New("store: database_url is required for postgres")
		}
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "coverart.db"
		}
		return store.NewSQLite(dsn)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Store.Driver)
	}
}

func limiterFor(p config.ProviderConfig) *rate.Limiter {
	burst := p.Burst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(p.RequestsPerSec), burst)
}

// initService sets up the store, catalog clients, and verification service.
// Callers should defer env.Close().
func initService(ctx context.Context) (*serviceEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	saavnClient := saavn.NewClient(saavn.WithBaseURL(cfg.Saavn.BaseURL), saavn.WithTimeout(cfg.Saavn.Timeout()))
	itunesClient := itunes.NewClient(itunes.WithBaseURL(cfg.ITunes.BaseURL), itunes.WithTimeout(cfg.ITunes.Timeout()))
	deezerClient := deezer.NewClient(deezer.WithBaseURL(cfg.Deezer.BaseURL), deezer.WithTimeout(cfg.Deezer.Timeout()))

	sources := []source.Source{
		source.NewSaavnSource(saavnClient, limiterFor(cfg.Saavn)),
		source.NewITunesSource(itunesClient, limiterFor(cfg.ITunes)),
		source.NewDeezerSource(deezerClient, limiterFor(cfg.Deezer)),
	}

	validator := imagecheck.NewValidator(time.Duration(cfg.Image.ValidateTimeoutSecs) * time.Second)
	orch := verify.NewOrchestrator(sources, cfg.Match, validator)
	svc := verify.NewService(orch, st, cfg.Cache.FreshnessWindow(), cfg.Batch.MaxSongs)

	knownHashes, err := imagecheck.ParseHashes(cfg.Image.KnownGenericHashes)
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "parse known generic hashes")
	}
	detector := imagecheck.NewDetector(imagecheck.DetectorConfig{
		PlaceholderTokens: cfg.Image.PlaceholderTokens,
		KnownHashes:       knownHashes,
		DistanceThreshold: cfg.Image.HashDistanceMax,
		MaxDownloadBytes:  cfg.Image.MaxDownloadBytes,
	})
	sweeper := worker.NewSweeper(st, detector, cfg.Sweep.Concurrency)

	zap.L().Info("service initialized",
		zap.String("store_driver", cfg.Store.Driver),
		zap.Int("known_generic_hashes", len(knownHashes)),
	)

	return &serviceEnv{
		Store:    st,
		Service:  svc,
		Sweeper:  sweeper,
		Detector: detector,
	}, nil
}
