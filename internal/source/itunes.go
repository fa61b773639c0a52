package source

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/tunelore/coverart/internal/model"
	"github.com/tunelore/coverart/pkg/itunes"
)

// itunesCoverPreference orders artwork variants best-first. The 600x600
// label is synthesized by rewriting the 100px URL Apple serves.
var itunesCoverPreference = []string{"600x600", "100x100", "60x60", "30x30"}

// ITunesSource adapts the iTunes Search API, the first fallback. Search
// results are complete, so candidates embed their detail records.
type ITunesSource struct {
	client  itunes.Client
	limiter *rate.Limiter
}

// NewITunesSource creates the fallback A adapter with its own rate limiter.
func NewITunesSource(client itunes.Client, limiter *rate.Limiter) *ITunesSource {
	return &ITunesSource{client: client, limiter: limiter}
}

// Name implements Source.
func (s *ITunesSource) Name() model.CoverSource {
	return model.SourceFallbackA
}

// RequiresDetailFetch implements Source.
func (s *ITunesSource) RequiresDetailFetch() bool {
	return false
}

// Search implements Source.
func (s *ITunesSource) Search(ctx context.Context, query model.QueryMeta) ([]model.Candidate, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "itunes source: rate gate")
	}

	tracks, err := s.client.SearchSongs(ctx, searchQuery(query), MaxCandidates)
	if err != nil {
		return nil, err
	}

	candidates := make([]model.Candidate, 0, len(tracks))
	for _, t := range tracks {
		id := strconv.FormatInt(t.TrackID, 10)
		detail := &model.Detail{
			ID:            id,
			Title:         t.TrackName,
			PrimaryArtist: t.ArtistName,
			Album:         t.CollectionName,
			Images:        itunesVariants(t),
		}
		candidates = append(candidates, model.Candidate{
			ID:     id,
			Name:   t.TrackName,
			Artist: t.ArtistName,
			Detail: detail,
		})
	}
	return candidates, nil
}

// Detail implements Source. iTunes candidates carry their detail already.
func (s *ITunesSource) Detail(ctx context.Context, c model.Candidate) (*model.Detail, error) {
	if c.Detail == nil {
		return nil, eris.Errorf("itunes source: candidate %s has no embedded detail", c.ID)
	}
	return c.Detail, nil
}

// CoverURL implements Source.
func (s *ITunesSource) CoverURL(detail *model.Detail) string {
	return PickCoverURL(detail.Images, itunesCoverPreference)
}

// itunesVariants builds the variant list for one track. Apple's CDN serves
// arbitrary sizes by path substitution, so a 600x600 rendition is derived
// from the 100px URL.
func itunesVariants(t itunes.Track) []model.ImageVariant {
	var variants []model.ImageVariant
	if t.ArtworkURL100 != "" {
		if hi := strings.Replace(t.ArtworkURL100, "100x100", "600x600", 1); hi != t.ArtworkURL100 {
			variants = append(variants, model.ImageVariant{Quality: "600x600", URL: hi})
		}
		variants = append(variants, model.ImageVariant{Quality: "100x100", URL: t.ArtworkURL100})
	}
	if t.ArtworkURL60 != "" {
		variants = append(variants, model.ImageVariant{Quality: "60x60", URL: t.ArtworkURL60})
	}
	if t.ArtworkURL30 != "" {
		variants = append(variants, model.ImageVariant{Quality: "30x30", URL: t.ArtworkURL30})
	}
	return variants
}
