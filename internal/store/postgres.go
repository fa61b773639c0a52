package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/tunelore/coverart/internal/db"
	"github.com/tunelore/coverart/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS cover_map (
	song_id           TEXT PRIMARY KEY,
	title             TEXT NOT NULL,
	artist            TEXT NOT NULL,
	language          TEXT,
	album             TEXT,
	cover_url         TEXT NOT NULL,
	source            TEXT NOT NULL,
	similarity_scores JSONB,
	metadata          JSONB,
	manual_override   BOOLEAN NOT NULL DEFAULT FALSE,
	admin_user_id     TEXT,
	override_reason   TEXT,
	verified_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS cover_checks (
	song_id    TEXT PRIMARY KEY,
	cover_url  TEXT NOT NULL,
	phash      TEXT,
	checked_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS verified_badges (
	song_id    TEXT PRIMARY KEY,
	verified   BOOLEAN NOT NULL,
	reason     TEXT,
	checked_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS verification_log (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	artist       TEXT NOT NULL,
	language     TEXT,
	album        TEXT,
	source       TEXT NOT NULL,
	candidate_id TEXT,
	scores       JSONB,
	duration_ms  BIGINT NOT NULL,
	success      BOOLEAN NOT NULL,
	error        TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS cover_reports (
	id                  TEXT PRIMARY KEY,
	song_id             TEXT NOT NULL,
	displayed_cover_url TEXT,
	correct_hint        TEXT,
	user_id             TEXT,
	status              TEXT NOT NULL DEFAULT 'pending',
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_cover_map_verified_at ON cover_map(verified_at);
CREATE INDEX IF NOT EXISTS idx_verification_log_created_at ON verification_log(created_at);
CREATE INDEX IF NOT EXISTS idx_cover_reports_song_id ON cover_reports(song_id);
CREATE INDEX IF NOT EXISTS idx_cover_reports_status ON cover_reports(status);
`

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// GetCoverMap fetches the cached verification for a song. Returns nil when
// no row exists.
func (s *PostgresStore) GetCoverMap(ctx context.Context, songID string) (*model.CoverMapRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT song_id, title, artist, COALESCE(language, ''), COALESCE(album, ''),
		cover_url, source, similarity_scores, metadata, manual_override,
		COALESCE(admin_user_id, ''), COALESCE(override_reason, ''), verified_at
		FROM cover_map WHERE song_id = $1`, songID)

	var rec model.CoverMapRecord
	var scoresJSON, metaJSON []byte
	err := row.Scan(&rec.SongID, &rec.Title, &rec.Artist, &rec.Language, &rec.Album,
		&rec.CoverURL, &rec.Source, &scoresJSON, &metaJSON, &rec.ManualOverride,
		&rec.AdminUserID, &rec.OverrideReason, &rec.VerifiedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get cover map")
	}

	if len(scoresJSON) > 0 {
		if err := json.Unmarshal(scoresJSON, &rec.Scores); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal scores")
		}
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &rec.Metadata); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal metadata")
		}
	}
	return &rec, nil
}

// UpsertVerification writes an automated verification result. The guard on
// manual_override lives in the statement itself so an existing override
// always wins; returns false when the write was suppressed.
func (s *PostgresStore) UpsertVerification(ctx context.Context, rec model.CoverMapRecord) (bool, error) {
	scoresJSON, err := marshalNullable(rec.Scores)
	if err != nil {
		return false, eris.Wrap(err, "postgres: marshal scores")
	}
	metaJSON, err := marshalNullable(rec.Metadata)
	if err != nil {
		return false, eris.Wrap(err, "postgres: marshal metadata")
	}

	verifiedAt := rec.VerifiedAt
	if verifiedAt.IsZero() {
		verifiedAt = time.Now().UTC()
	}

	tag, err := s.pool.Exec(ctx, `INSERT INTO cover_map
		(song_id, title, artist, language, album, cover_url, source, similarity_scores, metadata, manual_override, verified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE, $10)
		ON CONFLICT (song_id) DO UPDATE SET
			title = EXCLUDED.title,
			artist = EXCLUDED.artist,
			language = EXCLUDED.language,
			album = EXCLUDED.album,
			cover_url = EXCLUDED.cover_url,
			source = EXCLUDED.source,
			similarity_scores = EXCLUDED.similarity_scores,
			metadata = EXCLUDED.metadata,
			verified_at = EXCLUDED.verified_at
		WHERE cover_map.manual_override = FALSE`,
		rec.SongID, rec.Title, rec.Artist, rec.Language, rec.Album,
		rec.CoverURL, rec.Source, scoresJSON, metaJSON, verifiedAt)
	if err != nil {
		return false, eris.Wrap(err, "postgres: upsert verification")
	}
	return tag.RowsAffected() > 0, nil
}

// ApplyOverride pins a cover manually. Unconditional: it replaces whatever
// the automated pipeline wrote and freezes the row.
func (s *PostgresStore) ApplyOverride(ctx context.Context, songID, coverURL, reason, adminID string, meta *model.SongMeta) error {
	title, artist, language, album := "", "", "", ""
	if meta != nil {
		title, artist, language, album = meta.Title, meta.Artist, meta.Language, meta.Album
	}
	metaJSON, err := marshalNullable(meta)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal override metadata")
	}

	_, err = s.pool.Exec(ctx, `INSERT INTO cover_map
		(song_id, title, artist, language, album, cover_url, source, metadata, manual_override, admin_user_id, override_reason, verified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, $9, $10, $11)
		ON CONFLICT (song_id) DO UPDATE SET
			cover_url = EXCLUDED.cover_url,
			source = EXCLUDED.source,
			manual_override = TRUE,
			admin_user_id = EXCLUDED.admin_user_id,
			override_reason = EXCLUDED.override_reason,
			verified_at = EXCLUDED.verified_at`,
		songID, title, artist, language, album, coverURL, model.SourceManual,
		metaJSON, adminID, reason, time.Now().UTC())
	if err != nil {
		return eris.Wrap(err, "postgres: apply override")
	}
	return nil
}

// RemoveOverride unfreezes a song. Returns false when no override was set,
// so callers can signal "nothing to remove".
func (s *PostgresStore) RemoveOverride(ctx context.Context, songID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE cover_map
		SET manual_override = FALSE, admin_user_id = NULL, override_reason = NULL
		WHERE song_id = $1 AND manual_override = TRUE`, songID)
	if err != nil {
		return false, eris.Wrap(err, "postgres: remove override")
	}
	return tag.RowsAffected() > 0, nil
}

// UpsertCoverCheck records the sweep worker's hash result for a song.
func (s *PostgresStore) UpsertCoverCheck(ctx context.Context, rec model.CoverCheckRecord) error {
	checkedAt := rec.CheckedAt
	if checkedAt.IsZero() {
		checkedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO cover_checks (song_id, cover_url, phash, checked_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (song_id) DO UPDATE SET
			cover_url = EXCLUDED.cover_url,
			phash = EXCLUDED.phash,
			checked_at = EXCLUDED.checked_at`,
		rec.SongID, rec.CoverURL, rec.PHash, checkedAt)
	if err != nil {
		return eris.Wrap(err, "postgres: upsert cover check")
	}
	return nil
}

// UpsertVerifiedBadge stores the derived badge that gates trending-feed
// visibility.
func (s *PostgresStore) UpsertVerifiedBadge(ctx context.Context, songID string, verified bool, reason string) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO verified_badges (song_id, verified, reason, checked_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (song_id) DO UPDATE SET
			verified = EXCLUDED.verified,
			reason = EXCLUDED.reason,
			checked_at = EXCLUDED.checked_at`,
		songID, verified, reason, time.Now().UTC())
	if err != nil {
		return eris.Wrap(err, "postgres: upsert verified badge")
	}
	return nil
}

// ListSweepCandidates returns songs with covers worth re-checking, most
// recently verified first.
func (s *PostgresStore) ListSweepCandidates(ctx context.Context, limit int) ([]model.SweepCandidate, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `SELECT song_id, cover_url FROM cover_map
		WHERE cover_url <> '' ORDER BY verified_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sweep candidates")
	}
	defer rows.Close()

	var out []model.SweepCandidate
	for rows.Next() {
		var c model.SweepCandidate
		if err := rows.Scan(&c.SongID, &c.CoverURL); err != nil {
			return nil, eris.Wrap(err, "postgres: scan sweep candidate")
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate sweep candidates")
	}
	return out, nil
}

// AppendVerificationLog writes one audit row per orchestration run.
func (s *PostgresStore) AppendVerificationLog(ctx context.Context, rec model.VerificationLogRecord) error {
	scoresJSON, err := marshalNullable(rec.Scores)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal log scores")
	}

	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.pool.Exec(ctx, `INSERT INTO verification_log
		(id, title, artist, language, album, source, candidate_id, scores, duration_ms, success, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		id, rec.Title, rec.Artist, rec.Language, rec.Album, rec.Source,
		rec.CandidateID, scoresJSON, rec.DurationMS, rec.Success, rec.Error, createdAt)
	if err != nil {
		return eris.Wrap(err, "postgres: append verification log")
	}
	return nil
}

// InsertCoverReport appends a pending user report and returns its id.
func (s *PostgresStore) InsertCoverReport(ctx context.Context, report model.CoverReport) (string, error) {
	id := report.ID
	if id == "" {
		id = uuid.NewString()
	}
	status := report.Status
	if status == "" {
		status = "pending"
	}

	_, err := s.pool.Exec(ctx, `INSERT INTO cover_reports
		(id, song_id, displayed_cover_url, correct_hint, user_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, report.SongID, report.DisplayedCoverURL, report.CorrectHint,
		report.UserID, status, time.Now().UTC())
	if err != nil {
		return "", eris.Wrap(err, "postgres: insert cover report")
	}
	return id, nil
}

// marshalNullable JSON-encodes v, or returns nil for a nil pointer so the
// column stays NULL.
func marshalNullable(v any) ([]byte, error) {
	switch val := v.(type) {
	case *model.SimilarityScores:
		if val == nil {
			return nil, nil
		}
	case *model.SongMeta:
		if val == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}
