package recommend

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cwinters/go-spotify-muse/internal/cache"
	"github.com/cwinters/go-spotify-muse/internal/db"
	"github.com/cwinters/go-spotify-muse/internal/history"
	"github.com/cwinters/go-spotify-muse/internal/profile"
	"github.com/cwinters/go-spotify-muse/internal/spotify"
)

type fakeCatalog struct {
	lib          *spotify.Library
	collectCalls int
	matches      map[string]*spotify.TrackMatch
	playlists    []string
	added        map[string][]string
}

func (f *fakeCatalog) CollectLibrary(_ context.Context) (*spotify.Library, error) {
	f.collectCalls++
	if f.lib == nil {
		return &spotify.Library{}, nil
	}
	return f.lib, nil
}

func (f *fakeCatalog) FetchAudioFeatures(_ context.Context, _ []profile.ListeningSample) error {
	return nil
}

func (f *fakeCatalog) SearchTrack(_ context.Context, query string) (*spotify.TrackMatch, error) {
	if match, ok := f.matches[query]; ok {
		return match, nil
	}
	return nil, spotify.ErrTrackNotFound
}

func (f *fakeCatalog) CreatePlaylist(_ context.Context, name, _ string, _ bool) (string, error) {
	f.playlists = append(f.playlists, name)
	return "pl-1", nil
}

func (f *fakeCatalog) AddTracks(_ context.Context, playlistID string, trackIDs []string) error {
	if f.added == nil {
		f.added = make(map[string][]string)
	}
	f.added[playlistID] = append(f.added[playlistID], trackIDs...)
	return nil
}

type fakeLLM struct {
	responses []string
	err       error
	calls     int
	prompts   []string
	models    []string
}

func (f *fakeLLM) Complete(_ context.Context, model, promptText string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, promptText)
	f.models = append(f.models, model)
	if f.err != nil {
		return "", f.err
	}
	i := f.calls - 1
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return f.responses[i], nil
}

type memStore struct {
	records []history.Record
}

func (m *memStore) Create(_ context.Context, rec *history.Record) error {
	m.records = append(m.records, *rec)
	return nil
}

func (m *memStore) ListSince(_ context.Context, userID string, since time.Time) ([]history.Record, error) {
	var out []history.Record
	for _, rec := range m.records {
		if rec.UserID == userID && !rec.CreatedAt.Before(since) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memStore) MarkPlayed(_ context.Context, userID string, id uuid.UUID, playedAt time.Time) error {
	for i := range m.records {
		if m.records[i].ID == id && m.records[i].UserID == userID {
			m.records[i].WasPlayed = true
			m.records[i].PlayCount++
			m.records[i].LastPlayedAt = &playedAt
			return nil
		}
	}
	return history.ErrRecordNotFound
}

func (m *memStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	kept := m.records[:0]
	var deleted int64
	for _, rec := range m.records {
		if rec.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	m.records = kept
	return deleted, nil
}

type fakeFeedback struct {
	entries []db.Feedback
}

func (f *fakeFeedback) ListForUser(_ context.Context, _ string, limit int) ([]db.Feedback, error) {
	if limit > 0 && len(f.entries) > limit {
		return f.entries[:limit], nil
	}
	return f.entries, nil
}

func sampleLibrary() *spotify.Library {
	return &spotify.Library{
		Samples: []profile.ListeningSample{
			{TrackID: "t1", Name: "Everlong", Artists: []profile.Artist{{ID: "a1", Name: "Foo Fighters"}}, Genres: []string{"rock"}, Popularity: 75, Source: profile.SourceRecent},
			{TrackID: "t2", Name: "Breathe", Artists: []profile.Artist{{ID: "a2", Name: "Pink Floyd"}}, Genres: []string{"rock"}, Popularity: 80, Source: profile.SourceTopLong},
		},
	}
}

func newService(llm *fakeLLM, store *memStore, feedback *fakeFeedback) *Service {
	if store == nil {
		store = &memStore{}
	}
	if feedback == nil {
		feedback = &fakeFeedback{}
	}
	return New(cache.NewMemory(), llm, history.New(store), feedback)
}

func TestRecommendRecordsResolvedTrack(t *testing.T) {
	llm := &fakeLLM{responses: []string{`"Harvest Moon" by Neil Young`}}
	store := &memStore{}
	svc := newService(llm, store, nil)
	catalog := &fakeCatalog{
		lib: sampleLibrary(),
		matches: map[string]*spotify.TrackMatch{
			"Harvest Moon Neil Young": {ID: "t9", URI: "spotify:track:t9", Name: "Harvest Moon", Artist: "Neil Young"},
		},
	}

	result, err := svc.Recommend(context.Background(), "user-1", catalog, Options{})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}

	if result.Track.Name != "Harvest Moon" || result.Track.Artist != "Neil Young" {
		t.Errorf("unexpected track: %+v", result.Track)
	}
	if result.Track.MatchScore != 1.0 {
		t.Errorf("MatchScore = %v, want 1.0", result.Track.MatchScore)
	}
	if result.Cached {
		t.Error("fresh result marked cached")
	}
	if len(store.records) != 1 {
		t.Fatalf("got %d records, want 1", len(store.records))
	}
	if store.records[0].Method != history.MethodStandard {
		t.Errorf("method = %s, want standard", store.records[0].Method)
	}
}

func TestRecommendRecordsNothingWhenSearchFails(t *testing.T) {
	llm := &fakeLLM{responses: []string{`"Imaginary Song" by Nobody Real`}}
	store := &memStore{}
	svc := newService(llm, store, nil)
	catalog := &fakeCatalog{lib: sampleLibrary()}

	_, err := svc.Recommend(context.Background(), "user-1", catalog, Options{})
	if !errors.Is(err, spotify.ErrTrackNotFound) {
		t.Fatalf("err = %v, want ErrTrackNotFound", err)
	}
	if len(store.records) != 0 {
		t.Errorf("recorded %d recommendations for an unresolvable track", len(store.records))
	}
}

func TestRecommendCachesByAdjustment(t *testing.T) {
	llm := &fakeLLM{responses: []string{`"Harvest Moon" by Neil Young`}}
	svc := newService(llm, nil, nil)
	catalog := &fakeCatalog{
		lib: sampleLibrary(),
		matches: map[string]*spotify.TrackMatch{
			"Harvest Moon Neil Young": {ID: "t9", Name: "Harvest Moon", Artist: "Neil Young"},
		},
	}
	ctx := context.Background()

	first, err := svc.Recommend(ctx, "user-1", catalog, Options{})
	if err != nil {
		t.Fatalf("first Recommend: %v", err)
	}
	second, err := svc.Recommend(ctx, "user-1", catalog, Options{})
	if err != nil {
		t.Fatalf("second Recommend: %v", err)
	}

	if first.Cached || !second.Cached {
		t.Errorf("cached flags: first=%v second=%v", first.Cached, second.Cached)
	}
	if llm.calls != 1 {
		t.Errorf("LLM called %d times, want 1 (second request served from cache)", llm.calls)
	}

	// A different adjustment must not share the cached answer.
	if _, err := svc.Recommend(ctx, "user-1", catalog, Options{Adjustment: "something jazzy"}); err != nil {
		t.Fatalf("adjusted Recommend: %v", err)
	}
	if llm.calls != 2 {
		t.Errorf("LLM called %d times, want 2 after adjustment change", llm.calls)
	}
}

func TestRecommendExcludesHistory(t *testing.T) {
	llm := &fakeLLM{responses: []string{`"Harvest Moon" by Neil Young`}}
	store := &memStore{records: []history.Record{{
		ID:         uuid.New(),
		UserID:     "user-1",
		TrackID:    "t5",
		TrackName:  "Creep",
		ArtistName: "Radiohead",
		CreatedAt:  time.Now().Add(-time.Hour),
	}}}
	svc := newService(llm, store, nil)
	catalog := &fakeCatalog{
		lib: sampleLibrary(),
		matches: map[string]*spotify.TrackMatch{
			"Harvest Moon Neil Young": {ID: "t9", Name: "Harvest Moon", Artist: "Neil Young"},
		},
	}

	if _, err := svc.Recommend(context.Background(), "user-1", catalog, Options{}); err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if !strings.Contains(llm.prompts[0], "Creep") {
		t.Error("prompt does not mention the previously recommended track")
	}
}

func TestLightningUsesCachedProfile(t *testing.T) {
	llm := &fakeLLM{responses: []string{`"Harvest Moon" by Neil Young`}}
	svc := newService(llm, nil, nil)
	catalog := &fakeCatalog{
		lib: sampleLibrary(),
		matches: map[string]*spotify.TrackMatch{
			"Harvest Moon Neil Young": {ID: "t9", Name: "Harvest Moon", Artist: "Neil Young"},
		},
	}
	ctx := context.Background()

	// First call warms the profile cache.
	if _, err := svc.Lightning(ctx, "user-1", catalog, Options{}); err != nil {
		t.Fatalf("first Lightning: %v", err)
	}
	collects := catalog.collectCalls

	// Different adjustment bypasses the result cache but not the profile
	// cache, so no new collection happens.
	if _, err := svc.Lightning(ctx, "user-1", catalog, Options{Adjustment: "more acoustic"}); err != nil {
		t.Fatalf("second Lightning: %v", err)
	}
	if catalog.collectCalls != collects {
		t.Errorf("collectCalls = %d, want %d (profile should come from cache)", catalog.collectCalls, collects)
	}
}

func TestPlaylistSkipsUnresolvedTracks(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		"\"Harvest Moon\" by Neil Young\n\"Imaginary Song\" by Nobody Real\n\"Breathe\" by Pink Floyd",
	}}
	store := &memStore{}
	svc := newService(llm, store, nil)
	catalog := &fakeCatalog{
		lib: sampleLibrary(),
		matches: map[string]*spotify.TrackMatch{
			"Harvest Moon Neil Young": {ID: "t9", Name: "Harvest Moon", Artist: "Neil Young"},
			"Breathe Pink Floyd":      {ID: "t2", Name: "Breathe", Artist: "Pink Floyd"},
		},
	}

	result, err := svc.Playlist(context.Background(), "user-1", catalog, "Test Mix", 3, Options{})
	if err != nil {
		t.Fatalf("Playlist: %v", err)
	}

	if len(result.Tracks) != 2 {
		t.Fatalf("got %d tracks, want 2 (unresolvable skipped)", len(result.Tracks))
	}
	if result.PlaylistID != "pl-1" {
		t.Errorf("PlaylistID = %q", result.PlaylistID)
	}
	if got := catalog.added["pl-1"]; len(got) != 2 {
		t.Errorf("added %v to playlist, want 2 tracks", got)
	}
	if len(store.records) != 2 {
		t.Errorf("recorded %d, want 2", len(store.records))
	}
	for _, rec := range store.records {
		if rec.Method != history.MethodPlaylist {
			t.Errorf("method = %s, want playlist", rec.Method)
		}
	}
}

func TestAnalyzeCachesResult(t *testing.T) {
	llm := &fakeLLM{responses: []string{"You are an adventurous listener."}}
	svc := newService(llm, nil, nil)
	catalog := &fakeCatalog{lib: sampleLibrary()}
	ctx := context.Background()

	first, err := svc.Analyze(ctx, "user-1", catalog)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	second, err := svc.Analyze(ctx, "user-1", catalog)
	if err != nil {
		t.Fatalf("second Analyze: %v", err)
	}

	if first != second {
		t.Errorf("cached analysis differs: %q vs %q", first, second)
	}
	if llm.calls != 1 {
		t.Errorf("LLM called %d times, want 1", llm.calls)
	}
}
