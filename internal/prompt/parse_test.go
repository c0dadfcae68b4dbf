package prompt

import (
	"errors"
	"testing"
)

func TestParseRecommendation(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantTitle  string
		wantArtist string
		wantErr    error
	}{
		{
			name:       "quoted canonical form",
			text:       `"Paranoid Android" by Radiohead`,
			wantTitle:  "Paranoid Android",
			wantArtist: "Radiohead",
		},
		{
			name:       "track prefix",
			text:       "Track: Testify by Rage Against The Machine",
			wantTitle:  "Testify",
			wantArtist: "Rage Against The Machine",
		},
		{
			name:       "unquoted with chatter after",
			text:       "Everlong by Foo Fighters\n\nThis matches their high-energy rock taste.",
			wantTitle:  "Everlong",
			wantArtist: "Foo Fighters",
		},
		{
			name:       "markdown bold",
			text:       `**"Karma Police" by Radiohead**`,
			wantTitle:  "Karma Police",
			wantArtist: "Radiohead",
		},
		{
			name:       "dash separator",
			text:       "Breathe - Pink Floyd",
			wantTitle:  "Breathe",
			wantArtist: "Pink Floyd",
		},
		{
			name:       "title containing by splits on last by",
			text:       `"Killed by Death" by Motörhead`,
			wantTitle:  "Killed by Death",
			wantArtist: "Motörhead",
		},
		{
			name:    "nothing parseable",
			text:    "I could not come up with a recommendation.",
			wantErr: ErrUnparseable,
		},
		{
			name:    "empty",
			text:    "",
			wantErr: ErrUnparseable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRecommendation(tt.text)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Title != tt.wantTitle || got.Artist != tt.wantArtist {
				t.Errorf("got %q by %q, want %q by %q", got.Title, got.Artist, tt.wantTitle, tt.wantArtist)
			}
		})
	}
}

func TestParsePlaylist(t *testing.T) {
	text := `1. "Everlong" by Foo Fighters
2. "Testify" by Rage Against The Machine
not a track line
3. "Breathe" by Pink Floyd
4. "Karma Police" by Radiohead`

	tracks := ParsePlaylist(text, 3)
	if len(tracks) != 3 {
		t.Fatalf("got %d tracks, want 3 (max cap)", len(tracks))
	}
	if tracks[0].Title != "Everlong" || tracks[2].Title != "Breathe" {
		t.Errorf("unexpected tracks: %+v", tracks)
	}
}

func TestSearchQuery(t *testing.T) {
	track := ParsedTrack{Title: "Testify", Artist: "Rage Against The Machine"}
	if got := track.SearchQuery(); got != "Testify Rage Against The Machine" {
		t.Errorf("SearchQuery = %q", got)
	}
}
