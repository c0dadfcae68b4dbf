package spotify

import (
	"context"
	"errors"
	"strings"

	"github.com/zmb3/spotify/v2"
)

// ErrTrackNotFound is returned when a search yields no usable track.
var ErrTrackNotFound = errors.New("no matching track found")

// TrackMatch is a catalog track resolved from a search query.
type TrackMatch struct {
	ID         string
	URI        string
	Name       string
	Artist     string
	Album      string
	Popularity int
}

// SearchTrack resolves a free-text query (typically "title artist" from a
// parsed LLM suggestion) to a real catalog track. Returns ErrTrackNotFound
// when Spotify has nothing for the query.
func (c *Client) SearchTrack(ctx context.Context, query string) (*TrackMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrTrackNotFound
	}

	result, err := c.api.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(1))
	if err != nil {
		return nil, classify("searching track", err)
	}
	if result.Tracks == nil || len(result.Tracks.Tracks) == 0 {
		return nil, ErrTrackNotFound
	}

	track := result.Tracks.Tracks[0]
	match := &TrackMatch{
		ID:         track.ID.String(),
		URI:        string(track.URI),
		Name:       track.Name,
		Album:      track.Album.Name,
		Popularity: int(track.Popularity),
	}
	if len(track.Artists) > 0 {
		match.Artist = track.Artists[0].Name
	}
	return match, nil
}

// MatchScore estimates how well a found track matches what was asked for,
// in [0,1]. Exact title and artist matches score 1; partial containment
// scores lower. Used to flag low-confidence catalog resolutions.
func MatchScore(wantTitle, wantArtist string, match *TrackMatch) float64 {
	score := 0.0
	title := strings.ToLower(strings.TrimSpace(wantTitle))
	artist := strings.ToLower(strings.TrimSpace(wantArtist))
	gotTitle := strings.ToLower(match.Name)
	gotArtist := strings.ToLower(match.Artist)

	switch {
	case title == gotTitle:
		score += 0.6
	case strings.Contains(gotTitle, title) || strings.Contains(title, gotTitle):
		score += 0.4
	}
	switch {
	case artist == gotArtist:
		score += 0.4
	case strings.Contains(gotArtist, artist) || strings.Contains(artist, gotArtist):
		score += 0.25
	}
	return score
}
