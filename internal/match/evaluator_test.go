package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunelore/coverart/internal/model"
	"github.com/tunelore/coverart/internal/textnorm"
)

func TestEvaluate_ExactMatch(t *testing.T) {
	detail := &model.Detail{Title: "Peelings", PrimaryArtist: "Navod"}
	query := model.QueryMeta{Title: "Peelings", Artist: "Navod"}

	res := Evaluate(detail, query, DefaultThresholds())
	assert.True(t, res.Match)
	assert.Empty(t, res.Reason)
	assert.Equal(t, 1.0, res.Scores.Title)
	assert.Equal(t, 1.0, res.Scores.Artist)
	assert.Nil(t, res.Scores.Album)
}

func TestEvaluate_ParentheticalStripping(t *testing.T) {
	detail := &model.Detail{Title: `Peelings (From "Aavesham")`, PrimaryArtist: "Navod"}
	query := model.QueryMeta{Title: "Peelings", Artist: "Navod"}

	res := Evaluate(detail, query, DefaultThresholds())
	assert.True(t, res.Match)
	assert.Equal(t, 1.0, res.Scores.Title)
}

func TestEvaluate_TitleMismatch(t *testing.T) {
	detail := &model.Detail{Title: "Illuminati", PrimaryArtist: "Navod"}
	query := model.QueryMeta{Title: "Peelings", Artist: "Navod"}

	res := Evaluate(detail, query, DefaultThresholds())
	assert.False(t, res.Match)
	assert.Equal(t, model.ReasonTitleMismatch, res.Reason)
	// Artist is never scored once the title gate fails.
	assert.Zero(t, res.Scores.Artist)
}

func TestEvaluate_ArtistMismatch(t *testing.T) {
	detail := &model.Detail{Title: "Peelings", PrimaryArtist: "Someone Else Entirely"}
	query := model.QueryMeta{Title: "Peelings", Artist: "Navod"}

	res := Evaluate(detail, query, DefaultThresholds())
	assert.False(t, res.Match)
	assert.Equal(t, model.ReasonArtistMismatch, res.Reason)
	assert.Equal(t, 1.0, res.Scores.Title)
}

func TestEvaluate_LanguageMismatch(t *testing.T) {
	detail := &model.Detail{Title: "Peelings", PrimaryArtist: "Navod", Language: "Tamil"}

	withLang := model.QueryMeta{Title: "Peelings", Artist: "Navod", Language: "Malayalam"}
	res := Evaluate(detail, withLang, DefaultThresholds())
	assert.False(t, res.Match)
	assert.Equal(t, model.ReasonLanguageMismatch, res.Reason)

	// Same inputs with the query language omitted: language is never checked.
	withoutLang := model.QueryMeta{Title: "Peelings", Artist: "Navod"}
	res = Evaluate(detail, withoutLang, DefaultThresholds())
	assert.True(t, res.Match)
}

func TestEvaluate_LanguageCaseInsensitive(t *testing.T) {
	detail := &model.Detail{Title: "Peelings", PrimaryArtist: "Navod", Language: "malayalam"}
	query := model.QueryMeta{Title: "Peelings", Artist: "Navod", Language: "Malayalam"}

	res := Evaluate(detail, query, DefaultThresholds())
	assert.True(t, res.Match)
}

func TestEvaluate_EmptyProviderLanguageNeverGates(t *testing.T) {
	detail := &model.Detail{Title: "Peelings", PrimaryArtist: "Navod"}
	query := model.QueryMeta{Title: "Peelings", Artist: "Navod", Language: "Malayalam"}

	res := Evaluate(detail, query, DefaultThresholds())
	assert.True(t, res.Match)
}

func TestEvaluate_AlbumScoreIsInformational(t *testing.T) {
	detail := &model.Detail{
		Title:         "Peelings",
		PrimaryArtist: "Navod",
		Album:         "A Totally Unrelated Compilation",
	}
	query := model.QueryMeta{Title: "Peelings", Artist: "Navod", Album: "Aavesham"}

	res := Evaluate(detail, query, DefaultThresholds())
	assert.True(t, res.Match, "a weak album score must not gate the match")
	require.NotNil(t, res.Scores.Album)
	assert.Less(t, *res.Scores.Album, DefaultThresholds().Album)
}

func TestEvaluate_AlbumScoreAbsentWhenEitherSideMissing(t *testing.T) {
	detail := &model.Detail{Title: "Peelings", PrimaryArtist: "Navod"}
	query := model.QueryMeta{Title: "Peelings", Artist: "Navod", Album: "Aavesham"}

	res := Evaluate(detail, query, DefaultThresholds())
	assert.True(t, res.Match)
	assert.Nil(t, res.Scores.Album)
}

func TestEvaluate_ThresholdMonotonicity(t *testing.T) {
	detail := &model.Detail{Title: "Peeling", PrimaryArtist: "Navod"}
	query := model.QueryMeta{Title: "Peelings", Artist: "Navod"}

	titleSim := textnorm.Similarity(detail.Title, query.Title)
	require.Greater(t, titleSim, 0.0)
	require.Less(t, titleSim, 1.0)

	below := DefaultThresholds()
	below.Title = titleSim - 0.01
	assert.True(t, Evaluate(detail, query, below).Match)

	// Raising the title threshold above the candidate's score flips the verdict.
	above := DefaultThresholds()
	above.Title = titleSim + 0.01
	res := Evaluate(detail, query, above)
	assert.False(t, res.Match)
	assert.Equal(t, model.ReasonTitleMismatch, res.Reason)
}
