// Package recommend orchestrates the recommendation flows: listening data
// collection, profile summarization, prompt composition, the LLM call,
// catalog resolution and history recording.
package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"

	"github.com/cwinters/go-spotify-muse/internal/cache"
	"github.com/cwinters/go-spotify-muse/internal/gemini"
	"github.com/cwinters/go-spotify-muse/internal/history"
	"github.com/cwinters/go-spotify-muse/internal/profile"
	"github.com/cwinters/go-spotify-muse/internal/prompt"
	"github.com/cwinters/go-spotify-muse/internal/spotify"
)

// analysisTTL is how long a taste analysis stays cached. Analyses change
// slowly; listening data moves faster than a user's musical identity.
const analysisTTL = 24 * time.Hour

// Catalog is the music catalog the service recommends from. Implemented by
// the spotify client; tests use a fake.
type Catalog interface {
	CollectLibrary(ctx context.Context) (*spotify.Library, error)
	FetchAudioFeatures(ctx context.Context, samples []profile.ListeningSample) error
	SearchTrack(ctx context.Context, query string) (*spotify.TrackMatch, error)
	CreatePlaylist(ctx context.Context, name, description string, public bool) (string, error)
	AddTracks(ctx context.Context, playlistID string, trackIDs []string) error
}

// LLM generates text from a prompt. Implemented by the gemini client.
type LLM interface {
	Complete(ctx context.Context, model, promptText string) (string, error)
}

// Service wires the collaborators behind the recommendation flows. A
// Service is shared across users; the per-user catalog client is passed
// per call because it carries the user's OAuth token.
type Service struct {
	cache      cache.Cache
	llm        LLM
	tracker    *history.Tracker
	summarizer *profile.Summarizer
	feedback   FeedbackSource
	now        func() time.Time
}

// New creates a recommendation service.
func New(c cache.Cache, llm LLM, tracker *history.Tracker, feedback FeedbackSource) *Service {
	return &Service{
		cache:      c,
		llm:        llm,
		tracker:    tracker,
		summarizer: profile.NewSummarizer(),
		feedback:   feedback,
		now:        time.Now,
	}
}

// Options tune a single recommendation request. The zero value selects
// sensible defaults everywhere.
type Options struct {
	// Adjustment is the user's free-text steering instruction.
	Adjustment string

	// Window and MaxArtistRepeat tune the exclusion set; zero values fall
	// back to the history package defaults.
	Window          time.Duration
	MaxArtistRepeat int

	// Budget caps the composed prompt size in characters.
	Budget int

	// Model overrides the model tier for the LLM call.
	Model string
}

// Track is a resolved recommendation returned to the caller.
type Track struct {
	RecordID   string  `json:"record_id"`
	TrackID    string  `json:"track_id"`
	URI        string  `json:"uri"`
	Name       string  `json:"name"`
	Artist     string  `json:"artist"`
	Album      string  `json:"album,omitempty"`
	Confidence float64 `json:"confidence"`
	MatchScore float64 `json:"match_score"`
}

// Result is the outcome of a single-track recommendation.
type Result struct {
	Track  Track          `json:"track"`
	Method history.Method `json:"method"`
	Cached bool           `json:"cached"`
}

// PlaylistResult is the outcome of an AI playlist build.
type PlaylistResult struct {
	PlaylistID string  `json:"playlist_id"`
	Name       string  `json:"name"`
	Tracks     []Track `json:"tracks"`
	Requested  int     `json:"requested"`
}

// Recommend runs the standard flow: full listening collection with audio
// features, taste summarization, exclusion lookup, prompt composition, the
// LLM call and catalog resolution. The recommendation is recorded only
// after the catalog confirms the track exists. Identical requests within
// the cache TTL return the cached result without a new LLM call.
func (s *Service) Recommend(ctx context.Context, userID string, catalog Catalog, opts Options) (*Result, error) {
	category := recommendationCategory(history.MethodStandard, opts.Adjustment)
	if cached, ok := s.cachedResult(ctx, userID, category); ok {
		return cached, nil
	}

	lib, err := s.library(ctx, userID, catalog, true)
	if err != nil {
		return nil, err
	}
	taste, insights := s.buildProfile(lib)

	result, err := s.recommendOnce(ctx, userID, catalog, lib.RecentDisplay(10), taste, insights, history.MethodStandard, model(opts, gemini.ModelBalanced), opts)
	if err != nil {
		return nil, err
	}

	s.putResult(ctx, userID, category, result)
	return result, nil
}

// Lightning runs the fast flow: it reuses the cached taste profile when one
// exists and asks the cheapest model tier, trading freshness and nuance for
// latency. A cold cache falls back to collecting listening data without the
// audio-feature pass.
func (s *Service) Lightning(ctx context.Context, userID string, catalog Catalog, opts Options) (*Result, error) {
	category := recommendationCategory(history.MethodLightning, opts.Adjustment)
	if cached, ok := s.cachedResult(ctx, userID, category); ok {
		return cached, nil
	}

	cp, err := s.fastProfile(ctx, userID, catalog)
	if err != nil {
		return nil, err
	}

	result, err := s.recommendOnce(ctx, userID, catalog, cp.Favorites, cp.Profile, cp.Insights, history.MethodLightning, model(opts, gemini.ModelLightning), opts)
	if err != nil {
		return nil, err
	}

	s.putResult(ctx, userID, category, result)
	return result, nil
}

// Playlist asks the LLM for size tracks, resolves each against the catalog,
// creates a Spotify playlist from the resolved ones and records each. Tracks
// the catalog cannot resolve are skipped rather than failing the build; the
// build fails only when nothing resolves.
func (s *Service) Playlist(ctx context.Context, userID string, catalog Catalog, name string, size int, opts Options) (*PlaylistResult, error) {
	if size <= 0 {
		size = 10
	}
	if name == "" {
		name = "Muse Mix " + s.now().Format("Jan 2")
	}

	lib, err := s.library(ctx, userID, catalog, true)
	if err != nil {
		return nil, err
	}
	taste, insights := s.buildProfile(lib)

	excl, err := s.tracker.ExclusionSet(ctx, userID, opts.Window, opts.MaxArtistRepeat)
	if err != nil {
		return nil, err
	}

	req := s.promptRequest(lib.RecentDisplay(10), taste, insights, excl, opts)
	req.Task = prompt.TaskPlaylist
	req.PlaylistSize = size

	raw, err := s.llm.Complete(ctx, model(opts, gemini.ModelBalanced), prompt.Compose(req, opts.Budget))
	if err != nil {
		return nil, fmt.Errorf("generating playlist: %w", err)
	}

	parsed := prompt.ParsePlaylist(raw, size)
	if len(parsed) == 0 {
		return nil, fmt.Errorf("generating playlist: %w", prompt.ErrUnparseable)
	}

	result := &PlaylistResult{Name: name, Requested: size}
	var trackIDs []string
	for _, pt := range parsed {
		match, err := catalog.SearchTrack(ctx, pt.SearchQuery())
		if err != nil {
			continue
		}
		track, err := s.record(ctx, userID, pt, match, taste, history.MethodPlaylist)
		if err != nil {
			return nil, err
		}
		result.Tracks = append(result.Tracks, track)
		trackIDs = append(trackIDs, match.ID)
	}
	if len(result.Tracks) == 0 {
		return nil, fmt.Errorf("generating playlist: %w", spotify.ErrTrackNotFound)
	}

	playlistID, err := catalog.CreatePlaylist(ctx, name, "Generated from your listening profile", false)
	if err != nil {
		return nil, err
	}
	if err := catalog.AddTracks(ctx, playlistID, trackIDs); err != nil {
		return nil, err
	}
	result.PlaylistID = playlistID
	return result, nil
}

// Analyze returns a free-text musical and psychological read on the user's
// taste, cached for a day.
func (s *Service) Analyze(ctx context.Context, userID string, catalog Catalog) (string, error) {
	if data, ok := s.cache.Get(ctx, userID, cache.CategoryAnalysis); ok {
		return string(data), nil
	}

	lib, err := s.library(ctx, userID, catalog, true)
	if err != nil {
		return "", err
	}
	taste, insights := s.buildProfile(lib)

	req := s.promptRequest(lib.RecentDisplay(10), taste, insights, history.Exclusions{}, Options{})
	req.Task = prompt.TaskAnalysis

	text, err := s.llm.Complete(ctx, gemini.ModelPremium, prompt.Compose(req, 0))
	if err != nil {
		return "", fmt.Errorf("generating analysis: %w", err)
	}

	s.cache.Put(ctx, userID, cache.CategoryAnalysis, []byte(text), analysisTTL)
	return text, nil
}

// ClearCache drops every cached entry for the user.
func (s *Service) ClearCache(ctx context.Context, userID string) error {
	return s.cache.InvalidateUser(ctx, userID)
}

// History returns the user's recent recommendation records.
func (s *Service) History(ctx context.Context, userID string, window time.Duration) ([]history.Record, error) {
	return s.tracker.Recent(ctx, userID, window)
}

// MarkPlayed flags the user's past recommendation as actually listened to.
func (s *Service) MarkPlayed(ctx context.Context, userID, recordID string) error {
	id, err := uuid.Parse(recordID)
	if err != nil {
		return fmt.Errorf("invalid recommendation ID: %w", err)
	}
	return s.tracker.MarkPlayed(ctx, userID, id)
}

// recommendOnce runs the shared single-track tail: exclusions, prompt, LLM,
// parse, catalog search, record.
func (s *Service) recommendOnce(ctx context.Context, userID string, catalog Catalog, favorites []string, taste profile.TasteProfile, insights profile.AudioInsights, method history.Method, modelName string, opts Options) (*Result, error) {
	excl, err := s.tracker.ExclusionSet(ctx, userID, opts.Window, opts.MaxArtistRepeat)
	if err != nil {
		return nil, err
	}

	req := s.promptRequest(favorites, taste, insights, excl, opts)
	req.Task = prompt.TaskTrack

	raw, err := s.llm.Complete(ctx, modelName, prompt.Compose(req, opts.Budget))
	if err != nil {
		return nil, fmt.Errorf("generating recommendation: %w", err)
	}

	parsed, err := prompt.ParseRecommendation(raw)
	if err != nil {
		return nil, fmt.Errorf("generating recommendation: %w", err)
	}

	match, err := catalog.SearchTrack(ctx, parsed.SearchQuery())
	if err != nil {
		return nil, fmt.Errorf("resolving %q by %s: %w", parsed.Title, parsed.Artist, err)
	}

	track, err := s.record(ctx, userID, parsed, match, taste, method)
	if err != nil {
		return nil, err
	}
	return &Result{Track: track, Method: method}, nil
}

// record persists the recommendation and converts it to the caller-facing
// Track. Nothing is persisted before this point: an LLM suggestion that the
// catalog could not confirm leaves no trace in history.
func (s *Service) record(ctx context.Context, userID string, parsed prompt.ParsedTrack, match *spotify.TrackMatch, taste profile.TasteProfile, method history.Method) (Track, error) {
	score := spotify.MatchScore(parsed.Title, parsed.Artist, match)
	rec := &history.Record{
		UserID:     userID,
		TrackID:    match.ID,
		TrackName:  match.Name,
		ArtistName: match.Artist,
		Method:     method,
		Confidence: confidence(taste, score),
		MatchScore: score,
	}
	if err := s.tracker.Record(ctx, rec); err != nil {
		return Track{}, err
	}
	return Track{
		RecordID:   rec.ID.String(),
		TrackID:    match.ID,
		URI:        match.URI,
		Name:       match.Name,
		Artist:     match.Artist,
		Album:      match.Album,
		Confidence: rec.Confidence,
		MatchScore: rec.MatchScore,
	}, nil
}

// library returns the user's listening library, from cache when fresh. The
// audio-feature pass runs only on a cache miss and only when requested.
func (s *Service) library(ctx context.Context, userID string, catalog Catalog, withFeatures bool) (*spotify.Library, error) {
	if data, ok := s.cache.Get(ctx, userID, cache.CategoryLibrary); ok {
		var lib spotify.Library
		if err := json.Unmarshal(data, &lib); err == nil {
			return &lib, nil
		}
		// Corrupt entry; refetch.
		s.cache.Invalidate(ctx, userID, cache.CategoryLibrary)
	}

	lib, err := catalog.CollectLibrary(ctx)
	if err != nil {
		return nil, err
	}
	if withFeatures {
		if err := catalog.FetchAudioFeatures(ctx, lib.Samples); err != nil {
			return nil, err
		}
	}

	if data, err := json.Marshal(lib); err == nil {
		s.cache.Put(ctx, userID, cache.CategoryLibrary, data, cache.DefaultTTL)
	}
	return lib, nil
}

// cachedProfile is the serialized form of the lightning flow's inputs.
type cachedProfile struct {
	Profile   profile.TasteProfile
	Insights  profile.AudioInsights
	Favorites []string
}

// fastProfile returns the taste profile for the lightning flow, preferring
// the profile cache, then the library cache, and only then the network.
func (s *Service) fastProfile(ctx context.Context, userID string, catalog Catalog) (cachedProfile, error) {
	if data, ok := s.cache.Get(ctx, userID, cache.CategoryProfile); ok {
		var cp cachedProfile
		if err := json.Unmarshal(data, &cp); err == nil {
			return cp, nil
		}
		s.cache.Invalidate(ctx, userID, cache.CategoryProfile)
	}

	lib, err := s.library(ctx, userID, catalog, false)
	if err != nil {
		return cachedProfile{}, err
	}
	taste, insights := s.buildProfile(lib)

	cp := cachedProfile{Profile: taste, Insights: insights, Favorites: lib.RecentDisplay(10)}
	if data, err := json.Marshal(cp); err == nil {
		s.cache.Put(ctx, userID, cache.CategoryProfile, data, cache.DefaultTTL)
	}
	return cp, nil
}

// buildProfile summarizes a library into a taste profile plus audio
// insights, including the dominant mood from clustering when detectable.
func (s *Service) buildProfile(lib *spotify.Library) (profile.TasteProfile, profile.AudioInsights) {
	taste := s.summarizer.Summarize(lib.Samples)
	moods := profile.DetectMoodClusters(lib.Samples, profile.DefaultMoodConfig())
	taste.Mood = profile.DominantMood(moods)
	return taste, profile.AggregateAudio(lib.Samples)
}

func (s *Service) promptRequest(favorites []string, taste profile.TasteProfile, insights profile.AudioInsights, excl history.Exclusions, opts Options) prompt.Request {
	return prompt.Request{
		Profile:            taste,
		Insights:           insights,
		RecentFavorites:    favorites,
		ExcludedTracks:     excl.Display,
		OverexposedArtists: excl.OverexposedArtists,
		SessionAdjustment:  opts.Adjustment,
	}
}

func (s *Service) cachedResult(ctx context.Context, userID, category string) (*Result, bool) {
	data, ok := s.cache.Get(ctx, userID, category)
	if !ok {
		return nil, false
	}
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		s.cache.Invalidate(ctx, userID, category)
		return nil, false
	}
	result.Cached = true
	return &result, true
}

func (s *Service) putResult(ctx context.Context, userID, category string, result *Result) {
	if data, err := json.Marshal(result); err == nil {
		s.cache.Put(ctx, userID, category, data, cache.DefaultTTL)
	}
}

// recommendationCategory builds the cache category for a method and
// adjustment so different steering instructions never share a cached
// answer.
func recommendationCategory(method history.Method, adjustment string) string {
	h := fnv.New32a()
	h.Write([]byte(adjustment))
	return fmt.Sprintf("%s:%s:%08x", cache.CategoryRecommendation, method, h.Sum32())
}

// confidence scales the catalog match score by how much listening data
// backed the recommendation. A thin profile means even a perfect catalog
// match is a guess.
func confidence(taste profile.TasteProfile, matchScore float64) float64 {
	strength := float64(taste.SampleCount) / 20
	if strength > 1 {
		strength = 1
	}
	if strength < 0.25 {
		strength = 0.25
	}
	return matchScore * strength
}

func model(opts Options, fallback string) string {
	if opts.Model != "" {
		return opts.Model
	}
	return fallback
}
