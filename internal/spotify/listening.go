package spotify

import (
	"context"
	"strings"
	"time"

	"github.com/zmb3/spotify/v2"

	"github.com/cwinters/go-spotify-muse/internal/profile"
)

// Collection limits, trimmed to keep downstream prompt sizes bounded.
const (
	recentLimit         = 30
	topTrackLimit       = 15
	topArtistLimit      = 12
	savedLimit          = 20
	playlistLimit       = 10
	maxIDsPerLookup     = 50
	maxTracksPerRequest = 100
)

// Library is everything collected from a user's listening history in one
// pass. It is the unit cached between requests.
type Library struct {
	Samples        []profile.ListeningSample
	PlaylistNames  []string
	TotalPlaylists int
}

// RecentDisplay returns "Title by Artist" strings for the user's recent
// listening, in collection order, capped at n.
func (l Library) RecentDisplay(n int) []string {
	var out []string
	for _, s := range l.Samples {
		if s.Source != profile.SourceRecent {
			continue
		}
		if len(out) >= n {
			break
		}
		out = append(out, s.Name+" by "+s.PrimaryArtist())
	}
	return out
}

// CollectLibrary fetches the user's listening history across all sources:
// recently played, top tracks over three time ranges, top artists (for
// genre data) and saved tracks. Duplicate tracks within a source are
// dropped by name+artist. Genres are attached from a batched artist
// lookup.
func (c *Client) CollectLibrary(ctx context.Context) (*Library, error) {
	lib := &Library{}

	recent, err := c.api.PlayerRecentlyPlayedOpt(ctx, &spotify.RecentlyPlayedOptions{Limit: recentLimit})
	if err != nil {
		return nil, classify("fetching recently played", err)
	}
	for _, item := range recent {
		sample := fromSimpleTrack(item.Track, profile.SourceRecent)
		sample.PlayedAt = item.PlayedAt
		lib.Samples = append(lib.Samples, sample)
	}

	topRanges := []struct {
		r      spotify.Range
		source profile.Source
	}{
		{spotify.ShortTermRange, profile.SourceTopShort},
		{spotify.MediumTermRange, profile.SourceTopMedium},
		{spotify.LongTermRange, profile.SourceTopLong},
	}

	artistGenres := make(map[string][]string)
	for _, tr := range topRanges {
		page, err := c.api.CurrentUsersTopTracks(ctx, spotify.Timerange(tr.r), spotify.Limit(topTrackLimit))
		if err != nil {
			return nil, classify("fetching top tracks", err)
		}
		for _, track := range page.Tracks {
			lib.Samples = append(lib.Samples, fromFullTrack(track, tr.source))
		}

		artists, err := c.api.CurrentUsersTopArtists(ctx, spotify.Timerange(tr.r), spotify.Limit(topArtistLimit))
		if err != nil {
			return nil, classify("fetching top artists", err)
		}
		for _, artist := range artists.Artists {
			artistGenres[artist.ID.String()] = artist.Genres
		}
	}

	saved, err := c.api.CurrentUsersTracks(ctx, spotify.Limit(savedLimit))
	if err != nil {
		return nil, classify("fetching saved tracks", err)
	}
	for _, item := range saved.Tracks {
		sample := fromFullTrack(item.FullTrack, profile.SourceSaved)
		if addedAt, parseErr := time.Parse(time.RFC3339, item.AddedAt); parseErr == nil {
			sample.PlayedAt = addedAt
		}
		lib.Samples = append(lib.Samples, sample)
	}

	playlists, err := c.api.CurrentUsersPlaylists(ctx, spotify.Limit(playlistLimit))
	if err != nil {
		return nil, classify("fetching playlists", err)
	}
	lib.TotalPlaylists = len(playlists.Playlists)
	for _, pl := range playlists.Playlists {
		if pl.Name != "" && len(lib.PlaylistNames) < playlistLimit {
			lib.PlaylistNames = append(lib.PlaylistNames, pl.Name)
		}
	}

	lib.Samples = dedupeSamples(lib.Samples)

	if err := c.attachGenres(ctx, lib.Samples, artistGenres); err != nil {
		return nil, err
	}
	return lib, nil
}

// FetchAudioFeatures retrieves audio features for the given samples and
// updates them in place. Requests are batched to Spotify's limit of 100
// IDs. Samples without available features keep a nil Features field.
func (c *Client) FetchAudioFeatures(ctx context.Context, samples []profile.ListeningSample) error {
	if len(samples) == 0 {
		return nil
	}

	ids := make([]spotify.ID, 0, len(samples))
	indexByID := make(map[string][]int, len(samples))
	for i, s := range samples {
		if s.TrackID == "" {
			continue
		}
		if _, seen := indexByID[s.TrackID]; !seen {
			ids = append(ids, spotify.ID(s.TrackID))
		}
		indexByID[s.TrackID] = append(indexByID[s.TrackID], i)
	}

	for start := 0; start < len(ids); start += maxTracksPerRequest {
		end := min(start+maxTracksPerRequest, len(ids))
		features, err := c.api.GetAudioFeatures(ctx, ids[start:end]...)
		if err != nil {
			return classify("fetching audio features", err)
		}
		for _, f := range features {
			if f == nil {
				continue
			}
			for _, idx := range indexByID[f.ID.String()] {
				samples[idx].Features = toAudioFeatures(f)
			}
		}
	}
	return nil
}

// attachGenres fills sample genres from the artist-genre map, batching a
// lookup for artists the top-artist pages didn't cover.
func (c *Client) attachGenres(ctx context.Context, samples []profile.ListeningSample, known map[string][]string) error {
	var missing []spotify.ID
	seen := make(map[string]bool)
	for _, s := range samples {
		for _, a := range s.Artists {
			if a.ID == "" || seen[a.ID] {
				continue
			}
			seen[a.ID] = true
			if _, ok := known[a.ID]; !ok {
				missing = append(missing, spotify.ID(a.ID))
			}
		}
	}

	for start := 0; start < len(missing); start += maxIDsPerLookup {
		end := min(start+maxIDsPerLookup, len(missing))
		artists, err := c.api.GetArtists(ctx, missing[start:end]...)
		if err != nil {
			return classify("fetching artist genres", err)
		}
		for _, artist := range artists {
			if artist != nil {
				known[artist.ID.String()] = artist.Genres
			}
		}
	}

	for i := range samples {
		samples[i].Genres = genresFor(samples[i].Artists, known)
	}
	return nil
}

// genresFor unions the genres of a sample's artists, preserving first-seen
// order for deterministic downstream tallies.
func genresFor(artists []profile.Artist, known map[string][]string) []string {
	var genres []string
	seen := make(map[string]bool)
	for _, a := range artists {
		for _, g := range known[a.ID] {
			if !seen[g] {
				seen[g] = true
				genres = append(genres, g)
			}
		}
	}
	return genres
}

// dedupeSamples drops repeated tracks by lowercased name+primary artist,
// keeping the first occurrence. Ordering is preserved.
func dedupeSamples(samples []profile.ListeningSample) []profile.ListeningSample {
	seen := make(map[string]bool, len(samples))
	out := samples[:0]
	for _, s := range samples {
		key := strings.ToLower(s.Name) + "||" + strings.ToLower(s.PrimaryArtist()) + "||" + string(s.Source)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

func fromSimpleTrack(track spotify.SimpleTrack, source profile.Source) profile.ListeningSample {
	return profile.ListeningSample{
		TrackID: track.ID.String(),
		Name:    track.Name,
		Artists: convertArtists(track.Artists),
		Source:  source,
	}
}

func fromFullTrack(track spotify.FullTrack, source profile.Source) profile.ListeningSample {
	sample := fromSimpleTrack(track.SimpleTrack, source)
	sample.Popularity = int(track.Popularity)
	return sample
}

func convertArtists(artists []spotify.SimpleArtist) []profile.Artist {
	out := make([]profile.Artist, len(artists))
	for i, a := range artists {
		out[i] = profile.Artist{ID: a.ID.String(), Name: a.Name}
	}
	return out
}

func toAudioFeatures(f *spotify.AudioFeatures) *profile.AudioFeatures {
	return &profile.AudioFeatures{
		Acousticness:     &f.Acousticness,
		Danceability:     &f.Danceability,
		Energy:           &f.Energy,
		Instrumentalness: &f.Instrumentalness,
		Liveness:         &f.Liveness,
		Speechiness:      &f.Speechiness,
		Tempo:            &f.Tempo,
		Valence:          &f.Valence,
	}
}
