// Package source adapts external music catalogs to a uniform search and
// detail-fetch interface for the verification orchestrator. Each adapter
// owns its own rate gate so providers with different etiquette rules stay
// independent.
package source

import (
	"context"

	"github.com/tunelore/coverart/internal/model"
)

// MaxCandidates caps the search page requested from every provider.
const MaxCandidates = 8

// Source is one external metadata catalog. Adapters never panic or leak
// provider errors as Go errors from individual candidates; a failed search
// returns an error that the orchestrator treats as "this source contributes
// nothing".
type Source interface {
	// Name identifies the provider in results and logs.
	Name() model.CoverSource
	// RequiresDetailFetch reports whether search hits are thin summaries
	// that need a per-candidate detail fetch before matching. When false,
	// candidates embed their Detail.
	RequiresDetailFetch() bool
	// Search queries the provider with the composed title+artist query.
	Search(ctx context.Context, query model.QueryMeta) ([]model.Candidate, error)
	// Detail fetches the full record for one candidate.
	Detail(ctx context.Context, c model.Candidate) (*model.Detail, error)
	// CoverURL extracts the preferred cover variant from a detail record,
	// using the provider's own quality-label ordering.
	CoverURL(detail *model.Detail) string
}

// searchQuery composes the provider query string from the song metadata.
func searchQuery(q model.QueryMeta) string {
	return q.Title + " " + q.Artist
}

// PickCoverURL selects a cover URL from a variant list using a fixed
// quality-label preference order, falling back to the first variant with a
// URL when no preferred label is present.
func PickCoverURL(variants []model.ImageVariant, preference []string) string {
	for _, want := range preference {
		for _, v := range variants {
			if v.Quality == want && v.URL != "" {
				return v.URL
			}
		}
	}
	for _, v := range variants {
		if v.URL != "" {
			return v.URL
		}
	}
	return ""
}
