package spotify

import (
	"reflect"
	"testing"

	spotifyapi "github.com/zmb3/spotify/v2"

	"github.com/cwinters/go-spotify-muse/internal/profile"
)

func TestDedupeSamples(t *testing.T) {
	samples := []profile.ListeningSample{
		{Name: "Everlong", Artists: []profile.Artist{{Name: "Foo Fighters"}}, Source: profile.SourceRecent},
		{Name: "everlong", Artists: []profile.Artist{{Name: "foo fighters"}}, Source: profile.SourceRecent},
		{Name: "Everlong", Artists: []profile.Artist{{Name: "Foo Fighters"}}, Source: profile.SourceTopLong},
		{Name: "Breathe", Artists: []profile.Artist{{Name: "Pink Floyd"}}, Source: profile.SourceRecent},
	}

	got := dedupeSamples(samples)

	if len(got) != 3 {
		t.Fatalf("got %d samples, want 3", len(got))
	}
	// Case-insensitive duplicate within a source is dropped; the same
	// track from a different source survives for evolution analysis.
	if got[1].Source != profile.SourceTopLong {
		t.Errorf("unexpected survivor order: %+v", got)
	}
}

func TestGenresFor(t *testing.T) {
	known := map[string][]string{
		"a1": {"rock", "grunge"},
		"a2": {"grunge", "punk"},
	}
	artists := []profile.Artist{{ID: "a1"}, {ID: "a2"}, {ID: "unknown"}}

	got := genresFor(artists, known)
	want := []string{"rock", "grunge", "punk"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("genresFor = %v, want %v (first-seen order, no duplicates)", got, want)
	}
}

func TestRecentDisplay(t *testing.T) {
	lib := Library{Samples: []profile.ListeningSample{
		{Name: "One", Artists: []profile.Artist{{Name: "A"}}, Source: profile.SourceRecent},
		{Name: "Two", Artists: []profile.Artist{{Name: "B"}}, Source: profile.SourceTopShort},
		{Name: "Three", Artists: []profile.Artist{{Name: "C"}}, Source: profile.SourceRecent},
	}}

	got := lib.RecentDisplay(5)
	want := []string{"One by A", "Three by C"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RecentDisplay = %v, want %v", got, want)
	}

	if got := lib.RecentDisplay(1); len(got) != 1 {
		t.Errorf("cap ignored: %v", got)
	}
}

func TestMatchScore(t *testing.T) {
	tests := []struct {
		name   string
		title  string
		artist string
		match  *TrackMatch
		want   float64
	}{
		{
			name:   "exact match",
			title:  "Testify",
			artist: "Rage Against The Machine",
			match:  &TrackMatch{Name: "Testify", Artist: "Rage Against The Machine"},
			want:   1.0,
		},
		{
			name:   "remaster suffix still matches title partially",
			title:  "Everlong",
			artist: "Foo Fighters",
			match:  &TrackMatch{Name: "Everlong - 2011 Remaster", Artist: "Foo Fighters"},
			want:   0.8,
		},
		{
			name:   "unrelated result",
			title:  "Testify",
			artist: "Rage Against The Machine",
			match:  &TrackMatch{Name: "Something Else", Artist: "Nobody"},
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchScore(tt.title, tt.artist, tt.match)
			if got != tt.want {
				t.Errorf("MatchScore = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestToAudioFeatures(t *testing.T) {
	src := &spotifyapi.AudioFeatures{
		Energy:  0.8,
		Valence: 0.3,
		Tempo:   128,
	}

	got := toAudioFeatures(src)
	if *got.Energy != 0.8 || *got.Valence != 0.3 || *got.Tempo != 128 {
		t.Errorf("conversion lost values: %+v", got)
	}
}
