package model

import "time"

// CoverSource identifies which provider a verified cover came from.
type CoverSource string

const (
	SourcePrimary   CoverSource = "saavn"
	SourceFallbackA CoverSource = "itunes"
	SourceFallbackB CoverSource = "deezer"
	SourceManual    CoverSource = "manual"
	SourceNone      CoverSource = "none"
)

// MismatchReason explains why a candidate was rejected by the match evaluator.
type MismatchReason string

const (
	ReasonTitleMismatch    MismatchReason = "title_mismatch"
	ReasonArtistMismatch   MismatchReason = "artist_mismatch"
	ReasonLanguageMismatch MismatchReason = "language_mismatch"
)

// QueryMeta is the immutable input to a verification attempt.
// Title and Artist are required; Language and Album refine matching when present.
type QueryMeta struct {
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Language string `json:"language,omitempty"`
	Album    string `json:"album,omitempty"`
}

// Candidate is a provider search hit. It carries just enough to decide
// whether a detail fetch is worth making. Providers whose search results are
// already complete populate Detail up front.
type Candidate struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Artist string  `json:"artist,omitempty"`
	Detail *Detail `json:"detail,omitempty"`
}

// ImageVariant is one rendition of a cover image with a provider quality label.
type ImageVariant struct {
	Quality string `json:"quality"`
	URL     string `json:"url"`
}

// Detail is a provider's full record for one candidate.
type Detail struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	PrimaryArtist string         `json:"primary_artist"`
	Artists       []string       `json:"artists,omitempty"`
	Album         string         `json:"album,omitempty"`
	Language      string         `json:"language,omitempty"`
	Images        []ImageVariant `json:"images,omitempty"`
}

// SimilarityScores holds per-field similarity values from one evaluation.
// Album is nil when either side lacked an album name.
type SimilarityScores struct {
	Title  float64  `json:"title"`
	Artist float64  `json:"artist,omitempty"`
	Album  *float64 `json:"album,omitempty"`
}

// MatchResult is the match evaluator's verdict for one candidate.
type MatchResult struct {
	Match  bool             `json:"match"`
	Reason MismatchReason   `json:"reason,omitempty"`
	Scores SimilarityScores `json:"scores"`
}

// SongMeta is the provider metadata attached to a successful verification.
type SongMeta struct {
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album,omitempty"`
	Language string `json:"language,omitempty"`
}

// VerificationResult is the outcome of one orchestration run. It is produced
// once and never mutated; callers check Verified, not an error value.
type VerificationResult struct {
	SongID             string            `json:"song_id,omitempty"`
	CoverURL           string            `json:"cover_url,omitempty"`
	Source             CoverSource       `json:"source"`
	Verified           bool              `json:"verified"`
	Cached             bool              `json:"cached,omitempty"`
	Metadata           *SongMeta         `json:"metadata,omitempty"`
	Scores             *SimilarityScores `json:"similarity_scores,omitempty"`
	VerificationTimeMS int64             `json:"verification_time_ms"`
	Error              string            `json:"error,omitempty"`
}

// CoverMapRecord is the persisted verification cache row, keyed by song ID.
// While ManualOverride is set, automated upserts must not touch CoverURL,
// Source, or VerifiedAt.
type CoverMapRecord struct {
	SongID         string            `json:"song_id"`
	Title          string            `json:"title"`
	Artist         string            `json:"artist"`
	Language       string            `json:"language,omitempty"`
	Album          string            `json:"album,omitempty"`
	CoverURL       string            `json:"cover_url"`
	Source         CoverSource       `json:"source"`
	Scores         *SimilarityScores `json:"similarity_scores,omitempty"`
	Metadata       *SongMeta         `json:"metadata,omitempty"`
	ManualOverride bool              `json:"manual_override"`
	AdminUserID    string            `json:"admin_user_id,omitempty"`
	OverrideReason string            `json:"override_reason,omitempty"`
	VerifiedAt     time.Time         `json:"verified_at"`
}

// CoverCheckRecord is the sweep worker's per-song hash record. It lives
// independently of the cover map and feeds the verified badge.
type CoverCheckRecord struct {
	SongID    string    `json:"song_id"`
	CoverURL  string    `json:"cover_url"`
	PHash     string    `json:"phash,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// CheckVerdict is the generic-cover detector's outcome for one song.
type CheckVerdict struct {
	Verified    bool   `json:"verified"`
	Reason      string `json:"reason"`
	Method      string `json:"method"`
	PHash       string `json:"phash,omitempty"`
	MatchedHash string `json:"matched_hash,omitempty"`
}

// Detector verdict reasons.
const (
	CheckMissingURL         = "missing_url"
	CheckPlaceholderPattern = "placeholder_pattern"
	CheckDownloadFailed     = "download_failed"
	CheckDecodeFailed       = "decode_failed"
	CheckGenericMatch       = "generic_match"
	CheckPassed             = "passed_checks"
)

// VerificationLogRecord is one append-only audit row per orchestration run.
// It is written for both successes and terminal failures and never read back
// by the verification core.
type VerificationLogRecord struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Artist      string            `json:"artist"`
	Language    string            `json:"language,omitempty"`
	Album       string            `json:"album,omitempty"`
	Source      CoverSource       `json:"source"`
	CandidateID string            `json:"candidate_id,omitempty"`
	Scores      *SimilarityScores `json:"scores,omitempty"`
	DurationMS  int64             `json:"duration_ms"`
	Success     bool              `json:"success"`
	Error       string            `json:"error,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// CoverReport is a user-submitted complaint about a displayed cover.
// Reports are appended as "pending" and triaged out-of-band; they never
// change verification state directly.
type CoverReport struct {
	ID                string    `json:"id"`
	SongID            string    `json:"song_id"`
	DisplayedCoverURL string    `json:"displayed_cover_url"`
	CorrectHint       string    `json:"correct_hint,omitempty"`
	UserID            string    `json:"user_id,omitempty"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
}

// SweepCandidate is one song the background sweep should re-check.
type SweepCandidate struct {
	SongID   string `json:"song_id"`
	CoverURL string `json:"cover_url"`
}
