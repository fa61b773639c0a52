package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/tunelore/coverart/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Useful for local
// development and single-node deployments.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS cover_map (
	song_id           TEXT PRIMARY KEY,
	title             TEXT NOT NULL,
	artist            TEXT NOT NULL,
	language          TEXT,
	album             TEXT,
	cover_url         TEXT NOT NULL,
	source            TEXT NOT NULL,
	similarity_scores TEXT,
	metadata          TEXT,
	manual_override   INTEGER NOT NULL DEFAULT 0,
	admin_user_id     TEXT,
	override_reason   TEXT,
	verified_at       DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS cover_checks (
	song_id    TEXT PRIMARY KEY,
	cover_url  TEXT NOT NULL,
	phash      TEXT,
	checked_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS verified_badges (
	song_id    TEXT PRIMARY KEY,
	verified   INTEGER NOT NULL,
	reason     TEXT,
	checked_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS verification_log (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	artist       TEXT NOT NULL,
	language     TEXT,
	album        TEXT,
	source       TEXT NOT NULL,
	candidate_id TEXT,
	scores       TEXT,
	duration_ms  INTEGER NOT NULL,
	success      INTEGER NOT NULL,
	error        TEXT,
	created_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS cover_reports (
	id                  TEXT PRIMARY KEY,
	song_id             TEXT NOT NULL,
	displayed_cover_url TEXT,
	correct_hint        TEXT,
	user_id             TEXT,
	status              TEXT NOT NULL DEFAULT 'pending',
	created_at          DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cover_map_verified_at ON cover_map(verified_at);
CREATE INDEX IF NOT EXISTS idx_verification_log_created_at ON verification_log(created_at);
CREATE INDEX IF NOT EXISTS idx_cover_reports_song_id ON cover_reports(song_id);
`

// Migrate creates the schema if it does not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	return nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetCoverMap fetches the cached verification for a song. Returns nil when
// no row exists.
func (s *SQLiteStore) GetCoverMap(ctx context.Context, songID string) (*model.CoverMapRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT song_id, title, artist, COALESCE(language, ''), COALESCE(album, ''),
		cover_url, source, COALESCE(similarity_scores, ''), COALESCE(metadata, ''), manual_override,
		COALESCE(admin_user_id, ''), COALESCE(override_reason, ''), verified_at
		FROM cover_map WHERE song_id = ?`, songID)

	var rec model.CoverMapRecord
	var scoresJSON, metaJSON string
	err := row.Scan(&rec.SongID, &rec.Title, &rec.Artist, &rec.Language, &rec.Album,
		&rec.CoverURL, &rec.Source, &scoresJSON, &metaJSON, &rec.ManualOverride,
		&rec.AdminUserID, &rec.OverrideReason, &rec.VerifiedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cover map")
	}

	if scoresJSON != "" {
		if err := json.Unmarshal([]byte(scoresJSON), &rec.Scores); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal scores")
		}
	}
	if metaJSON != "" {
		if err := json.Unmarshal([]byte(metaJSON), &rec.Metadata); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal metadata")
		}
	}
	return &rec, nil
}

// UpsertVerification writes an automated result unless the row is frozen by
// a manual override. The guard is part of the upsert statement.
func (s *SQLiteStore) UpsertVerification(ctx context.Context, rec model.CoverMapRecord) (bool, error) {
	scoresJSON, err := marshalNullableText(rec.Scores)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: marshal scores")
	}
	metaJSON, err := marshalNullableText(rec.Metadata)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: marshal metadata")
	}

	verifiedAt := rec.VerifiedAt
	if verifiedAt.IsZero() {
		verifiedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO cover_map
		(song_id, title, artist, language, album, cover_url, source, similarity_scores, metadata, manual_override, verified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
		ON CONFLICT (song_id) DO UPDATE SET
			title = excluded.title,
			artist = excluded.artist,
			language = excluded.language,
			album = excluded.album,
			cover_url = excluded.cover_url,
			source = excluded.source,
			similarity_scores = excluded.similarity_scores,
			metadata = excluded.metadata,
			verified_at = excluded.verified_at
		WHERE cover_map.manual_override = 0`,
		rec.SongID, rec.Title, rec.Artist, rec.Language, rec.Album,
		rec.CoverURL, rec.Source, scoresJSON, metaJSON, verifiedAt)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: upsert verification")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n > 0, nil
}

// ApplyOverride pins a cover manually, replacing any automated result.
func (s *SQLiteStore) ApplyOverride(ctx context.Context, songID, coverURL, reason, adminID string, meta *model.SongMeta) error {
	title, artist, language, album := "", "", "", ""
	if meta != nil {
		title, artist, language, album = meta.Title, meta.Artist, meta.Language, meta.Album
	}
	metaJSON, err := marshalNullableText(meta)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal override metadata")
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO cover_map
		(song_id, title, artist, language, album, cover_url, source, metadata, manual_override, admin_user_id, override_reason, verified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?)
		ON CONFLICT (song_id) DO UPDATE SET
			cover_url = excluded.cover_url,
			source = excluded.source,
			manual_override = 1,
			admin_user_id = excluded.admin_user_id,
			override_reason = excluded.override_reason,
			verified_at = excluded.verified_at`,
		songID, title, artist, language, album, coverURL, model.SourceManual,
		metaJSON, adminID, reason, time.Now().UTC())
	if err != nil {
		return eris.Wrap(err, "sqlite: apply override")
	}
	return nil
}

// RemoveOverride unfreezes a song; returns false when nothing was overridden.
func (s *SQLiteStore) RemoveOverride(ctx context.Context, songID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE cover_map
		SET manual_override = 0, admin_user_id = NULL, override_reason = NULL
		WHERE song_id = ? AND manual_override = 1`, songID)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: remove override")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n > 0, nil
}

// UpsertCoverCheck records the sweep worker's hash result for a song.
func (s *SQLiteStore) UpsertCoverCheck(ctx context.Context, rec model.CoverCheckRecord) error {
	checkedAt := rec.CheckedAt
	if checkedAt.IsZero() {
		checkedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO cover_checks (song_id, cover_url, phash, checked_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (song_id) DO UPDATE SET
			cover_url = excluded.cover_url,
			phash = excluded.phash,
			checked_at = excluded.checked_at`,
		rec.SongID, rec.CoverURL, rec.PHash, checkedAt)
	if err != nil {
		return eris.Wrap(err, "sqlite: upsert cover check")
	}
	return nil
}

// UpsertVerifiedBadge stores the derived trending-feed badge.
func (s *SQLiteStore) UpsertVerifiedBadge(ctx context.Context, songID string, verified bool, reason string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO verified_badges (song_id, verified, reason, checked_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (song_id) DO UPDATE SET
			verified = excluded.verified,
			reason = excluded.reason,
			checked_at = excluded.checked_at`,
		songID, verified, reason, time.Now().UTC())
	if err != nil {
		return eris.Wrap(err, "sqlite: upsert verified badge")
	}
	return nil
}

// ListSweepCandidates returns songs with covers worth re-checking.
func (s *SQLiteStore) ListSweepCandidates(ctx context.Context, limit int) ([]model.SweepCandidate, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `SELECT song_id, cover_url FROM cover_map
		WHERE cover_url <> '' ORDER BY verified_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sweep candidates")
	}
	defer rows.Close()

	var out []model.SweepCandidate
	for rows.Next() {
		var c model.SweepCandidate
		if err := rows.Scan(&c.SongID, &c.CoverURL); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan sweep candidate")
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate sweep candidates")
	}
	return out, nil
}

// AppendVerificationLog writes one audit row per orchestration run.
func (s *SQLiteStore) AppendVerificationLog(ctx context.Context, rec model.VerificationLogRecord) error {
	scoresJSON, err := marshalNullableText(rec.Scores)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal log scores")
	}

	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO verification_log
		(id, title, artist, language, album, source, candidate_id, scores, duration_ms, success, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, rec.Title, rec.Artist, rec.Language, rec.Album, rec.Source,
		rec.CandidateID, scoresJSON, rec.DurationMS, rec.Success, rec.Error, createdAt)
	if err != nil {
		return eris.Wrap(err, "sqlite: append verification log")
	}
	return nil
}

// InsertCoverReport appends a pending user report and returns its id.
func (s *SQLiteStore) InsertCoverReport(ctx context.Context, report model.CoverReport) (string, error) {
	id := report.ID
	if id == "" {
		id = uuid.NewString()
	}
	status := report.Status
	if status == "" {
		status = "pending"
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO cover_reports
		(id, song_id, displayed_cover_url, correct_hint, user_id, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, report.SongID, report.DisplayedCoverURL, report.CorrectHint,
		report.UserID, status, time.Now().UTC())
	if err != nil {
		return "", eris.Wrap(err, "sqlite: insert cover report")
	}
	return id, nil
}

// marshalNullableText JSON-encodes v as TEXT, or returns NULL for nil.
func marshalNullableText(v any) (any, error) {
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
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
