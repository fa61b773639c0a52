// Package textnorm normalizes song metadata strings and scores their
// similarity for fuzzy matching against provider catalogs.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	bracketedRe  = regexp.MustCompile(`\(.*?\)|\[.*?\]`)
	nonWordRe    = regexp.MustCompile(`[^\w\s]`)
	multiSpaceRe = regexp.MustCompile(`\s+`)
)

// stripMarks removes Unicode combining marks so accented letters fold to
// their base letters ("Beyoncé" -> "Beyonce").
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize standardizes a metadata string for matching by:
//  1. Removing bracketed and parenthetical segments ("(From ...)", "[Remix]")
//  2. Folding accented letters to their base letters
//  3. Lowercasing
//  4. Stripping everything that is not a word character or whitespace
//  5. Collapsing whitespace runs and trimming
//
// Normalize is idempotent.
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	s = bracketedRe.ReplaceAllString(s, "")

	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}

	s = strings.ToLower(s)
	s = nonWordRe.ReplaceAllString(s, "")
	s = multiSpaceRe.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}
