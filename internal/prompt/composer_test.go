package prompt

import (
	"strings"
	"testing"

	"github.com/cwinters/go-spotify-muse/internal/profile"
)

func rockProfile() profile.TasteProfile {
	return profile.TasteProfile{
		DominantGenres:   []profile.GenreCount{{Genre: "rock", Count: 3}},
		TopArtists:       []profile.ArtistCount{{ID: "a1", Name: "Rage Against The Machine", Count: 3}},
		PopularityMean:   72,
		ConsistencyScore: 1.0,
		GenreDiversity:   1,
		ArtistVariety:    1,
		Mainstream:       true,
		SampleCount:      3,
	}
}

func TestComposeContainsProfile(t *testing.T) {
	out := Compose(Request{
		Profile:         rockProfile(),
		Insights:        profile.AudioInsights{Insufficient: true},
		RecentFavorites: []string{"Testify by Rage Against The Machine"},
	}, DefaultBudget)

	if !strings.Contains(out, "rock") {
		t.Error("prompt missing dominant genre")
	}
	if !strings.Contains(out, "Rage Against The Machine") {
		t.Error("prompt missing core artist")
	}
	if strings.Contains(out, "DO NOT RECOMMEND") {
		t.Error("exclusion section rendered despite empty exclusion set")
	}
	if strings.Contains(out, "AUDIO CHARACTER") {
		t.Error("audio section rendered despite insufficient data")
	}
}

func TestComposeNewUserMarker(t *testing.T) {
	out := Compose(Request{}, DefaultBudget)
	if !strings.Contains(out, "NEW USER") {
		t.Error("empty profile must produce an explicit new-user marker")
	}
}

func TestComposeBudgetNeverExceeded(t *testing.T) {
	req := Request{
		Profile: rockProfile(),
	}
	for i := 0; i < 60; i++ {
		req.ExcludedTracks = append(req.ExcludedTracks, strings.Repeat("x", 40))
		req.RecentFavorites = append(req.RecentFavorites, strings.Repeat("y", 40))
	}

	for _, budget := range []int{200, 500, 1000, 2000, DefaultBudget} {
		out := Compose(req, budget)
		if len(out) > budget {
			t.Errorf("budget %d exceeded: output %d chars", budget, len(out))
		}
	}
}

func TestComposeTruncationOrder(t *testing.T) {
	req := Request{
		Profile:         rockProfile(),
		ExcludedTracks:  []string{"Excluded One by A", "Excluded Two by B", "Excluded Three by C"},
		RecentFavorites: []string{"Favorite One by D"},
	}

	full := Compose(req, DefaultBudget)
	if !strings.Contains(full, "Excluded Three") {
		t.Fatal("full budget should keep all exclusions")
	}

	// Shrink the budget just enough to force dropping exclusion items.
	tight := Compose(req, len(full)-10)
	if strings.Contains(tight, "Excluded Three") {
		t.Error("exclusion list must be truncated first")
	}
	if !strings.Contains(tight, "Favorite One") {
		t.Error("favorites dropped before exclusions were exhausted")
	}
	if !strings.Contains(tight, "rock") {
		t.Error("genre list dropped before exclusions were exhausted")
	}
}

func TestComposeSessionAdjustmentVerbatim(t *testing.T) {
	adjustment := "something upbeat with horns, no ballads"
	req := Request{
		Profile:           rockProfile(),
		ExcludedTracks:    []string{"Old Pick by A", "Older Pick by B"},
		SessionAdjustment: adjustment,
	}

	out := Compose(req, DefaultBudget)
	if !strings.Contains(out, adjustment) {
		t.Error("session adjustment must be included verbatim")
	}
}

func TestComposeOversizedAdjustmentTruncated(t *testing.T) {
	req := Request{
		SessionAdjustment: strings.Repeat("mellow jazz ", 200),
	}

	budget := 400
	out := Compose(req, budget)
	if len(out) > budget {
		t.Fatalf("output %d chars exceeds budget %d", len(out), budget)
	}
	if !strings.Contains(out, EllipsisMarker) {
		t.Error("truncated adjustment must carry the ellipsis marker")
	}
}

func TestComposeDeterministic(t *testing.T) {
	req := Request{
		Profile: rockProfile(),
		Insights: profile.AudioInsights{
			Labels: map[string]string{"energy": "high energy", "valence": "upbeat"},
			Means:  map[string]float64{"energy": 0.8, "valence": 0.7},
		},
		ExcludedTracks: []string{"One by A", "Two by B"},
	}

	first := Compose(req, DefaultBudget)
	for i := 0; i < 10; i++ {
		if got := Compose(req, DefaultBudget); got != first {
			t.Fatal("compose output varies across identical calls")
		}
	}
}

func TestComposePlaylistTask(t *testing.T) {
	out := Compose(Request{
		Profile:      rockProfile(),
		Task:         TaskPlaylist,
		PlaylistSize: 12,
	}, DefaultBudget)

	if !strings.Contains(out, "12") {
		t.Error("playlist prompt missing requested size")
	}
}
