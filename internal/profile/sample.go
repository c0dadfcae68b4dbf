// Package profile derives compact taste profiles from raw listening history.
package profile

import "time"

// Source identifies where a listening sample was collected from.
type Source string

const (
	SourceRecent    Source = "recent"
	SourceTopShort  Source = "top-short"
	SourceTopMedium Source = "top-medium"
	SourceTopLong   Source = "top-long"
	SourceSaved     Source = "saved"
	SourcePlaylist  Source = "playlist"
)

// Artist identifies a track artist.
type Artist struct {
	ID   string
	Name string
}

// AudioFeatures holds a track's numeric audio attributes.
// Fields are nil when Spotify has no value for the attribute.
type AudioFeatures struct {
	Acousticness     *float32
	Danceability     *float32
	Energy           *float32
	Instrumentalness *float32
	Liveness         *float32
	Speechiness      *float32
	Tempo            *float32
	Valence          *float32
}

// ListeningSample is a single track occurrence from a user's history.
// Samples are immutable once fetched; a batch of samples is the unit
// the summarizer consumes.
type ListeningSample struct {
	TrackID    string
	Name       string
	Artists    []Artist
	Genres     []string
	Popularity int // 0-100
	PlayedAt   time.Time
	Source     Source
	Features   *AudioFeatures
}

// PrimaryArtist returns the first artist's name, or "" if unknown.
func (s ListeningSample) PrimaryArtist() string {
	if len(s.Artists) == 0 {
		return ""
	}
	return s.Artists[0].Name
}

// PrimaryGenre returns the first genre of the sample, or "" if unknown.
func (s ListeningSample) PrimaryGenre() string {
	if len(s.Genres) == 0 {
		return ""
	}
	return s.Genres[0]
}
