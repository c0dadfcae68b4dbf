package profile

import "sort"

// Default truncation limits for derived aggregates.
const (
	DefaultTopGenres  = 8
	DefaultTopArtists = 15

	// mainstreamThreshold is the mean popularity above which a user's
	// taste counts as mainstream rather than eclectic.
	mainstreamThreshold = 60

	// newArtistThreshold is how many recent-only artists indicate the
	// user is actively exploring new music.
	newArtistThreshold = 5
)

// GenreCount is a genre with the number of samples carrying it.
type GenreCount struct {
	Genre string
	Count int
}

// ArtistCount is an artist with the number of sample occurrences.
type ArtistCount struct {
	ID    string
	Name  string
	Count int
}

// TasteProfile is a compact statistical summary of a batch of listening
// samples. It is recomputed wholesale whenever the backing sample changes;
// it is never partially updated.
type TasteProfile struct {
	DominantGenres   []GenreCount
	TopArtists       []ArtistCount
	PopularityMean   float64
	ConsistencyScore float64 // [0,1] share of samples matching the dominant genre
	GenreDiversity   int     // distinct genres seen
	ArtistVariety    int     // distinct artists seen
	Mainstream       bool
	RecentOverlap    float64 // share of all-time artists still in recent listening
	ExploringNew     bool
	SampleCount      int
	Mood             string // optional hint from mood clustering
}

// IsEmpty reports whether the profile was built from no usable samples.
func (p TasteProfile) IsEmpty() bool {
	return p.SampleCount == 0
}

// Summarizer reduces raw listening samples into a TasteProfile.
type Summarizer struct {
	topGenres  int
	topArtists int
}

// SummarizerOption configures a Summarizer.
type SummarizerOption func(*Summarizer)

// WithTopGenres sets how many dominant genres are kept.
func WithTopGenres(n int) SummarizerOption {
	return func(s *Summarizer) {
		s.topGenres = n
	}
}

// WithTopArtists sets how many top artists are kept.
func WithTopArtists(n int) SummarizerOption {
	return func(s *Summarizer) {
		s.topArtists = n
	}
}

// NewSummarizer creates a Summarizer with the default truncation limits.
func NewSummarizer(opts ...SummarizerOption) *Summarizer {
	s := &Summarizer{
		topGenres:  DefaultTopGenres,
		topArtists: DefaultTopArtists,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summarize computes a TasteProfile from a batch of samples. It is a pure
// function of its input: identical samples yield identical profiles, and an
// empty batch yields an empty profile with consistency 0 rather than an error.
func (s *Summarizer) Summarize(samples []ListeningSample) TasteProfile {
	profile := TasteProfile{SampleCount: len(samples)}
	if len(samples) == 0 {
		return profile
	}

	genreCounts := make(map[string]int)
	var genreOrder []string
	artistCounts := make(map[string]int)
	artistNames := make(map[string]string)
	var artistOrder []string

	var popularitySum int
	recentArtists := make(map[string]bool)
	allTimeArtists := make(map[string]bool)

	for _, sample := range samples {
		for _, genre := range sample.Genres {
			if _, seen := genreCounts[genre]; !seen {
				genreOrder = append(genreOrder, genre)
			}
			genreCounts[genre]++
		}
		for _, artist := range sample.Artists {
			key := artistKey(artist)
			if _, seen := artistCounts[key]; !seen {
				artistOrder = append(artistOrder, key)
				artistNames[key] = artist.Name
			}
			artistCounts[key]++
		}
		popularitySum += sample.Popularity

		switch sample.Source {
		case SourceRecent:
			recentArtists[sample.PrimaryArtist()] = true
		case SourceTopLong:
			allTimeArtists[sample.PrimaryArtist()] = true
		}
	}

	profile.DominantGenres = rankGenres(genreCounts, genreOrder, s.topGenres)
	profile.TopArtists = rankArtists(artistCounts, artistNames, artistOrder, s.topArtists)
	profile.GenreDiversity = len(genreCounts)
	profile.ArtistVariety = len(artistCounts)
	profile.PopularityMean = float64(popularitySum) / float64(len(samples))
	profile.Mainstream = profile.PopularityMean > mainstreamThreshold
	profile.ConsistencyScore = consistencyScore(samples, profile.DominantGenres)
	profile.RecentOverlap, profile.ExploringNew = tasteEvolution(recentArtists, allTimeArtists)

	return profile
}

// artistKey prefers the Spotify artist ID, falling back to the name for
// samples built from sources without IDs.
func artistKey(a Artist) string {
	if a.ID != "" {
		return a.ID
	}
	return a.Name
}

// rankGenres orders genres by count descending, breaking ties by first-seen
// order so the result is deterministic for identical input.
func rankGenres(counts map[string]int, order []string, limit int) []GenreCount {
	ranked := make([]GenreCount, 0, len(order))
	for _, genre := range order {
		ranked = append(ranked, GenreCount{Genre: genre, Count: counts[genre]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func rankArtists(counts map[string]int, names map[string]string, order []string, limit int) []ArtistCount {
	ranked := make([]ArtistCount, 0, len(order))
	for _, key := range order {
		ranked = append(ranked, ArtistCount{ID: key, Name: names[key], Count: counts[key]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// consistencyScore is the share of samples whose primary genre matches the
// single most frequent genre. 1.0 means every sample shares that genre.
func consistencyScore(samples []ListeningSample, dominant []GenreCount) float64 {
	if len(dominant) == 0 {
		return 0
	}
	top := dominant[0].Genre
	matches := 0
	for _, sample := range samples {
		if sample.PrimaryGenre() == top {
			matches++
		}
	}
	return float64(matches) / float64(len(samples))
}

// tasteEvolution compares recent listening against all-time favorites.
func tasteEvolution(recent, allTime map[string]bool) (overlap float64, exploring bool) {
	if len(allTime) == 0 {
		return 0, false
	}
	shared := 0
	fresh := 0
	for artist := range recent {
		if allTime[artist] {
			shared++
		} else {
			fresh++
		}
	}
	return float64(shared) / float64(len(allTime)), fresh > newArtistThreshold
}
