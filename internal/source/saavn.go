package source

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/tunelore/coverart/internal/model"
	"github.com/tunelore/coverart/pkg/saavn"
)

// saavnCoverPreference orders JioSaavn image quality labels best-first.
var saavnCoverPreference = []string{"500x500", "150x150", "50x50"}

// SaavnSource adapts the JioSaavn catalog, the authoritative source for this
// domain. Search hits are summaries; matching needs the per-song detail
// fetch, which shares the same rate gate as search.
type SaavnSource struct {
	client  saavn.Client
	limiter *rate.Limiter
}

// NewSaavnSource creates the primary adapter with its own rate limiter.
func NewSaavnSource(client saavn.Client, limiter *rate.Limiter) *SaavnSource {
	return &SaavnSource{client: client, limiter: limiter}
}

// Name implements Source.
func (s *SaavnSource) Name() model.CoverSource {
	return model.SourcePrimary
}

// RequiresDetailFetch implements Source. JioSaavn summaries lack language,
// album, and image data.
func (s *SaavnSource) RequiresDetailFetch() bool {
	return true
}

// Search implements Source.
func (s *SaavnSource) Search(ctx context.Context, query model.QueryMeta) ([]model.Candidate, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "saavn source: rate gate")
	}

	summaries, err := s.client.SearchSongs(ctx, searchQuery(query), MaxCandidates)
	if err != nil {
		return nil, err
	}

	candidates := make([]model.Candidate, 0, len(summaries))
	for _, sum := range summaries {
		candidates = append(candidates, model.Candidate{
			ID:     sum.ID,
			Name:   sum.Name,
			Artist: sum.PrimaryArtists,
		})
	}
	return candidates, nil
}

// Detail implements Source.
func (s *SaavnSource) Detail(ctx context.Context, c model.Candidate) (*model.Detail, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "saavn source: rate gate")
	}

	song, err := s.client.Song(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	detail := &model.Detail{
		ID:       song.ID,
		Title:    song.Name,
		Album:    song.Album.Name,
		Language: song.Language,
	}
	for _, a := range song.Artists.All {
		detail.Artists = append(detail.Artists, a.Name)
	}
	if len(song.Artists.Primary) > 0 {
		detail.PrimaryArtist = song.Artists.Primary[0].Name
	} else if len(detail.Artists) > 0 {
		detail.PrimaryArtist = detail.Artists[0]
	}
	for _, img := range song.Images {
		detail.Images = append(detail.Images, model.ImageVariant{Quality: img.Quality, URL: img.URL})
	}
	return detail, nil
}

// CoverURL extracts the best cover variant from a saavn detail record.
func (s *SaavnSource) CoverURL(detail *model.Detail) string {
	return PickCoverURL(detail.Images, saavnCoverPreference)
}
