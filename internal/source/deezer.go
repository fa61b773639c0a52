package source

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/tunelore/coverart/internal/model"
	"github.com/tunelore/coverart/pkg/deezer"
)

// deezerCoverPreference orders Deezer cover renditions best-first.
var deezerCoverPreference = []string{"xl", "big", "medium", "small"}

// DeezerSource adapts the Deezer search API, the second fallback. Like
// iTunes, its search results are complete enough to match directly.
type DeezerSource struct {
	client  deezer.Client
	limiter *rate.Limiter
}

// NewDeezerSource creates the fallback B adapter with its own rate limiter.
func NewDeezerSource(client deezer.Client, limiter *rate.Limiter) *DeezerSource {
	return &DeezerSource{client: client, limiter: limiter}
}

// Name implements Source.
func (s *DeezerSource) Name() model.CoverSource {
	return model.SourceFallbackB
}

// RequiresDetailFetch implements Source.
func (s *DeezerSource) RequiresDetailFetch() bool {
	return false
}

// Search implements Source.
func (s *DeezerSource) Search(ctx context.Context, query model.QueryMeta) ([]model.Candidate, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "deezer source: rate gate")
	}

	tracks, err := s.client.SearchTracks(ctx, searchQuery(query), MaxCandidates)
	if err != nil {
		return nil, err
	}

	candidates := make([]model.Candidate, 0, len(tracks))
	for _, t := range tracks {
		id := strconv.FormatInt(t.ID, 10)
		detail := &model.Detail{
			ID:            id,
			Title:         t.Title,
			PrimaryArtist: t.Artist.Name,
			Album:         t.Album.Title,
			Images:        deezerVariants(t),
		}
		candidates = append(candidates, model.Candidate{
			ID:     id,
			Name:   t.Title,
			Artist: t.Artist.Name,
			Detail: detail,
		})
	}
	return candidates, nil
}

// Detail implements Source. Deezer candidates carry their detail already.
func (s *DeezerSource) Detail(ctx context.Context, c model.Candidate) (*model.Detail, error) {
	if c.Detail == nil {
		return nil, eris.Errorf("deezer source: candidate %s has no embedded detail", c.ID)
	}
	return c.Detail, nil
}

// CoverURL implements Source.
func (s *DeezerSource) CoverURL(detail *model.Detail) string {
	return PickCoverURL(detail.Images, deezerCoverPreference)
}

func deezerVariants(t deezer.Track) []model.ImageVariant {
	var variants []model.ImageVariant
	for _, v := range []struct{ quality, url string }{
		{"xl", t.Album.CoverXL},
		{"big", t.Album.CoverBig},
		{"medium", t.Album.CoverMedium},
		{"small", t.Album.CoverSmall},
	} {
		if v.url != "" {
			variants = append(variants, model.ImageVariant{Quality: v.quality, URL: v.url})
		}
	}
	return variants
}
