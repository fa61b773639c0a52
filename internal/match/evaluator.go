// Package match decides whether a provider record corresponds to a queried
// song, using per-field similarity thresholds.
package match

import (
	"strings"

	"github.com/tunelore/coverart/internal/model"
	"github.com/tunelore/coverart/internal/textnorm"
)

// Thresholds are the per-field minimum similarity scores a candidate must
// clear. Album never gates the match; its threshold is kept for callers that
// want to interpret the informational score.
type Thresholds struct {
	Title  float64 `yaml:"title" mapstructure:"title"`
	Artist float64 `yaml:"artist" mapstructure:"artist"`
	Album  float64 `yaml:"album" mapstructure:"album"`
}

// DefaultThresholds are tuned so minor punctuation and typo variance passes
// while wrong songs fail.
func DefaultThresholds() Thresholds {
	return Thresholds{Title: 0.72, Artist: 0.65, Album: 0.6}
}

// Evaluate applies the similarity scorer to a candidate's detail record
// field by field. Gating order is title, then primary artist, then language;
// the first failing field short-circuits with its reason. Language is only
// checked when the query specifies one and the provider populated one;
// providers fill it too inconsistently to treat absence as a mismatch.
func Evaluate(detail *model.Detail, query model.QueryMeta, th Thresholds) model.MatchResult {
	titleSim := textnorm.Similarity(detail.Title, query.Title)
	if titleSim < th.Title {
		return model.MatchResult{
			Match:  false,
			Reason: model.ReasonTitleMismatch,
			Scores: model.SimilarityScores{Title: titleSim},
		}
	}

	// Only the primary artist is compared; joined "feat." lists drag the
	// score down on legitimate matches.
	artistSim := textnorm.Similarity(detail.PrimaryArtist, query.Artist)
	if artistSim < th.Artist {
		return model.MatchResult{
			Match:  false,
			Reason: model.ReasonArtistMismatch,
			Scores: model.SimilarityScores{Title: titleSim, Artist: artistSim},
		}
	}

	if query.Language != "" && detail.Language != "" &&
		!strings.EqualFold(query.Language, detail.Language) {
		return model.MatchResult{
			Match:  false,
			Reason: model.ReasonLanguageMismatch,
			Scores: model.SimilarityScores{Title: titleSim, Artist: artistSim},
		}
	}

	scores := model.SimilarityScores{Title: titleSim, Artist: artistSim}
	if query.Album != "" && detail.Album != "" {
		albumSim := textnorm.Similarity(detail.Album, query.Album)
		scores.Album = &albumSim
	}

	return model.MatchResult{Match: true, Scores: scores}
}
