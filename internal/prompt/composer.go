// Package prompt assembles natural-language requests for the LLM from
// taste profiles, audio insights and exclusion lists, under a character
// budget.
package prompt

import (
	"fmt"
	"strings"

	"github.com/cwinters/go-spotify-muse/internal/profile"
)

// DefaultBudget is the default prompt size limit in characters.
const DefaultBudget = 4000

// EllipsisMarker is appended when the session adjustment itself has to
// be cut to fit the budget.
const EllipsisMarker = "…"

// Task selects what the composed prompt asks the LLM for.
type Task int

const (
	// TaskTrack asks for a single track recommendation.
	TaskTrack Task = iota
	// TaskPlaylist asks for a list of tracks.
	TaskPlaylist
	// TaskAnalysis asks for a free-text musical/psychological analysis.
	TaskAnalysis
)

// Request carries everything the composer needs. It holds display strings
// only; resolving IDs to names is the caller's job.
type Request struct {
	Profile  profile.TasteProfile
	Insights profile.AudioInsights

	// RecentFavorites are "Title by Artist" display strings, most recent first.
	RecentFavorites []string

	// ExcludedTracks are previously recommended tracks the LLM must avoid.
	ExcludedTracks []string

	// OverexposedArtists have been recommended too often recently.
	OverexposedArtists []string

	// SessionAdjustment is the user's free-text steering instruction for
	// this request only. Included verbatim whenever it fits.
	SessionAdjustment string

	Task         Task
	PlaylistSize int
}

// section is one block of the prompt. Truncatable sections drop items from
// the end; the order of truncation across sections is fixed (see Compose).
type section struct {
	header string
	items  []string
	fixed  []string // lines that never get dropped item-by-item
}

func (s *section) render(b *strings.Builder) {
	if len(s.items) == 0 && len(s.fixed) == 0 {
		return
	}
	b.WriteString(s.header)
	b.WriteString("\n")
	for _, line := range s.fixed {
		b.WriteString(line)
		b.WriteString("\n")
	}
	for _, item := range s.items {
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

// Compose builds the prompt text. The output never exceeds budget: sections
// are truncated whole-item-at-a-time in a fixed priority order (exclusions
// first, then dominant genres, then recent favorites). The session
// adjustment is always included verbatim unless it alone exceeds the budget,
// in which case it is cut at a rune boundary with an ellipsis marker.
// Compose is a pure function of its inputs.
func Compose(req Request, budget int) string {
	if budget <= 0 {
		budget = DefaultBudget
	}

	exclusions := exclusionSection(req)
	genres := genreSection(req.Profile)
	favorites := favoritesSection(req.RecentFavorites)

	out := render(req, exclusions, genres, favorites)

	// Drop items from the least important section first until we fit.
	for _, s := range []*section{exclusions, genres, favorites} {
		for len(out) > budget && len(s.items) > 0 {
			s.items = s.items[:len(s.items)-1]
			out = render(req, exclusions, genres, favorites)
		}
		if len(out) <= budget {
			return out
		}
	}

	if len(out) <= budget {
		return out
	}

	// Everything droppable is gone; the adjustment has to give.
	if req.SessionAdjustment != "" {
		overhead := len(out) - len(req.SessionAdjustment)
		keep := budget - overhead - len(EllipsisMarker)
		if keep < 0 {
			keep = 0
		}
		req.SessionAdjustment = truncateRunes(req.SessionAdjustment, keep) + EllipsisMarker
		out = render(req, exclusions, genres, favorites)
	}

	// Hard cut as the final guarantee, still at a rune boundary.
	if len(out) > budget {
		out = truncateRunes(out, budget)
	}
	return out
}

func render(req Request, exclusions, genres, favorites *section) string {
	var b strings.Builder

	b.WriteString(taskIntro(req))
	b.WriteString("\n\n")

	profileSection(req.Profile, req.Insights).render(&b)
	genres.render(&b)
	favorites.render(&b)
	audioSection(req.Insights).render(&b)
	exclusions.render(&b)

	if req.SessionAdjustment != "" {
		b.WriteString("SESSION PREFERENCE: ")
		b.WriteString(req.SessionAdjustment)
		b.WriteString("\nPrioritize this preference while staying true to the established taste.\n\n")
	}

	b.WriteString(taskInstruction(req))
	return b.String()
}

func taskIntro(req Request) string {
	switch req.Task {
	case TaskPlaylist:
		return fmt.Sprintf("Build a playlist of %d songs for this listener based on their music profile.", req.PlaylistSize)
	case TaskAnalysis:
		return "Analyze this listener's musical identity and psychology based on their music profile."
	default:
		return "Recommend ONE song for this listener based on their music profile."
	}
}

func taskInstruction(req Request) string {
	switch req.Task {
	case TaskPlaylist:
		return fmt.Sprintf("Respond with exactly %d lines, each formatted as: \"Song Title\" by Artist Name", req.PlaylistSize)
	case TaskAnalysis:
		return "Cover: musical identity, mood patterns, discovery style, and what their taste says about them. Be specific and concise."
	default:
		return "The song must be real and available on Spotify.\nRespond with ONLY: \"Song Title\" by Artist Name"
	}
}

func profileSection(p profile.TasteProfile, insights profile.AudioInsights) *section {
	s := &section{header: "LISTENING PROFILE:"}
	if p.IsEmpty() {
		s.fixed = append(s.fixed, "NEW USER: no listening history available yet. Recommend a widely loved, accessible track.")
		return s
	}
	style := "eclectic"
	if p.Mainstream {
		style = "mainstream"
	}
	s.fixed = append(s.fixed,
		fmt.Sprintf("Samples analyzed: %d", p.SampleCount),
		fmt.Sprintf("Popularity preference: %.0f/100 (%s)", p.PopularityMean, style),
		fmt.Sprintf("Taste consistency: %.2f", p.ConsistencyScore),
		fmt.Sprintf("Variety: %d genres, %d artists", p.GenreDiversity, p.ArtistVariety),
	)
	if len(p.TopArtists) > 0 {
		names := make([]string, len(p.TopArtists))
		for i, a := range p.TopArtists {
			names[i] = a.Name
		}
		s.fixed = append(s.fixed, "Core artists: "+strings.Join(names, ", "))
	}
	if p.Mood != "" {
		s.fixed = append(s.fixed, "Dominant listening mood: "+p.Mood)
	}
	if p.ExploringNew {
		s.fixed = append(s.fixed, "Currently exploring new artists.")
	}
	return s
}

func genreSection(p profile.TasteProfile) *section {
	s := &section{header: "DOMINANT GENRES:"}
	for _, g := range p.DominantGenres {
		s.items = append(s.items, fmt.Sprintf("%s (%d)", g.Genre, g.Count))
	}
	return s
}

func favoritesSection(favorites []string) *section {
	return &section{header: "RECENT FAVORITES:", items: favorites}
}

func audioSection(insights profile.AudioInsights) *section {
	s := &section{header: "AUDIO CHARACTER:"}
	if insights.Insufficient {
		return s
	}
	// Deterministic order; maps must not leak iteration order into output.
	for _, attr := range []string{"energy", "valence", "danceability", "acousticness", "instrumentalness", "speechiness", "liveness", "tempo"} {
		if label, ok := insights.Labels[attr]; ok {
			s.fixed = append(s.fixed, fmt.Sprintf("%s: %s", attr, label))
		}
	}
	return s
}

func exclusionSection(req Request) *section {
	s := &section{header: "DO NOT RECOMMEND (already suggested recently):"}
	s.items = append(s.items, req.ExcludedTracks...)
	if len(req.OverexposedArtists) > 0 {
		s.fixed = append(s.fixed, "Avoid these over-recommended artists entirely: "+strings.Join(req.OverexposedArtists, ", "))
	}
	return s
}

// truncateRunes cuts s to at most n bytes without splitting a rune.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8Start(s[n]) {
		n--
	}
	return s[:n]
}

func utf8Start(b byte) bool {
	return b&0xC0 != 0x80
}
