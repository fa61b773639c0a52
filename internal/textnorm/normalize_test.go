package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_Empty(t *testing.T) {
	assert.Equal(t, "", Normalize(""))
	assert.Equal(t, "", Normalize("   "))
}

func TestNormalize_Lowercases(t *testing.T) {
	assert.Equal(t, "peelings", Normalize("PEELINGS"))
}

func TestNormalize_StripsParentheticals(t *testing.T) {
	assert.Equal(t, "peelings", Normalize(`Peelings (From "Aavesham")`))
	assert.Equal(t, "blinding lights", Normalize("Blinding Lights [Remix]"))
	assert.Equal(t, "song", Normalize("Song (Live) [Deluxe Edition]"))
}

func TestNormalize_StripsDiacritics(t *testing.T) {
	assert.Equal(t, "beyonce", Normalize("Beyoncé"))
	assert.Equal(t, "senorita", Normalize("Señorita"))
	assert.Equal(t, "motorhead", Normalize("Mötörhead"))
}

func TestNormalize_StripsPunctuation(t *testing.T) {
	assert.Equal(t, "dont stop me now", Normalize("Don't Stop Me Now!"))
	assert.Equal(t, "mr brightside", Normalize("Mr. Brightside"))
}

func TestNormalize_CollapsesWhitespace(t *testing.T) {
	assert.Equal(t, "hello world", Normalize("  Hello    World  "))
	assert.Equal(t, "hello world", Normalize("Hello\t \nWorld"))
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"", "Peelings (From \"Aavesham\")", "Beyoncé — Halo", "  A  B  ",
		"Don't Stop Me Now!", "already normalized",
	}
	for _, s := range inputs {
		once := Normalize(s)
		assert.Equal(t, once, Normalize(once), "input %q", s)
	}
}

func TestSimilarity_Identity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("hello", "hello"))
	assert.Equal(t, 1.0, Similarity("Peelings", "peelings"))
}

func TestSimilarity_EmptyInputs(t *testing.T) {
	assert.Equal(t, 0.0, Similarity("", "x"))
	assert.Equal(t, 0.0, Similarity("x", ""))
	assert.Equal(t, 0.0, Similarity("", ""))
}

func TestSimilarity_BracketOnlyInputs(t *testing.T) {
	// Both normalize to "", which is no evidence of a match.
	assert.Equal(t, 0.0, Similarity("(x)", "[y]"))
	assert.Equal(t, 0.0, Similarity("(Remix)", "hello"))
}

func TestSimilarity_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"hello", "hlelo"},
		{"Blinding Lights", "Blinding Light"},
		{"Navod", "Navod Anjana"},
	}
	for _, p := range pairs {
		assert.Equal(t, Similarity(p[0], p[1]), Similarity(p[1], p[0]), "pair %v", p)
	}
}

func TestSimilarity_TranspositionTolerance(t *testing.T) {
	// A single adjacent swap costs 1 edit, not 2.
	got := Similarity("hlelo", "hello")
	assert.Greater(t, got, 0.7)
	assert.InDelta(t, 0.8, got, 1e-9)
}

func TestSimilarity_Bounded(t *testing.T) {
	pairs := [][2]string{
		{"a", "completely different thing"},
		{"Shape of You", "Shape of You"},
		{"abc", "xyz"},
	}
	for _, p := range pairs {
		got := Similarity(p[0], p[1])
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 1.0)
	}
}

func TestSimilarity_WrongSongScoresLow(t *testing.T) {
	assert.Less(t, Similarity("Peelings", "Illuminati"), 0.5)
}

func TestOSADistance_Basic(t *testing.T) {
	assert.Equal(t, 0, osaDistance([]rune("abc"), []rune("abc")))
	assert.Equal(t, 1, osaDistance([]rune("abc"), []rune("abcd")))
	assert.Equal(t, 1, osaDistance([]rune("abcd"), []rune("abc")))
	assert.Equal(t, 1, osaDistance([]rune("abc"), []rune("axc")))
	assert.Equal(t, 1, osaDistance([]rune("ab"), []rune("ba")))
	assert.Equal(t, 3, osaDistance([]rune("kitten"), []rune("sitting")))
}
