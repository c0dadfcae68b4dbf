// Package history tracks past recommendations per user and derives the
// exclusion set used to keep new suggestions from repeating them.
package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrRecordNotFound is returned when a record ID does not exist.
var ErrRecordNotFound = errors.New("recommendation record not found")

// Method identifies how a recommendation was produced.
type Method string

const (
	MethodStandard  Method = "standard"
	MethodLightning Method = "lightning"
	MethodPlaylist  Method = "playlist"
)

// Defaults for the exclusion window and retention.
const (
	// DefaultWindow is the time window for the exclusion set.
	DefaultWindow = 72 * time.Hour

	// DefaultMaxArtistRepeat is how many recommendations of one artist
	// are tolerated inside the window before the artist itself is excluded.
	DefaultMaxArtistRepeat = 2

	// DefaultRetention is how long records are kept before the cleanup
	// sweep may remove them. Cleanup is advisory; a stale record simply
	// ages out of the window naturally.
	DefaultRetention = 30 * 24 * time.Hour

	// maxDisplayTracks bounds the exclusion list rendered into prompts.
	maxDisplayTracks = 50
)

// Record is one recommendation given to a user. Created once per
// suggestion; only the playback fields are ever mutated, via MarkPlayed.
type Record struct {
	ID           uuid.UUID
	UserID       string
	TrackID      string
	TrackName    string
	ArtistName   string
	Method       Method
	CreatedAt    time.Time
	WasPlayed    bool
	PlayCount    int
	LastPlayedAt *time.Time
	Confidence   float64 // [0,1]
	MatchScore   float64 // [0,1] how well catalog search matched the LLM's suggestion
}

// Store is the persistence contract the tracker needs. The pgx repository
// implements it in production; tests use an in-memory fake.
type Store interface {
	Create(ctx context.Context, rec *Record) error
	ListSince(ctx context.Context, userID string, since time.Time) ([]Record, error)
	MarkPlayed(ctx context.Context, userID string, id uuid.UUID, playedAt time.Time) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Exclusions is the set of tracks and artists ineligible for
// re-recommendation, recomputed per request rather than incrementally
// maintained.
type Exclusions struct {
	// Tracks holds every track ID recommended inside the window,
	// regardless of method.
	Tracks map[string]bool

	// Artists holds lowercased artist names recommended more than
	// maxArtistRepeat times inside the window.
	Artists map[string]bool

	// Display lists excluded tracks as `"Title" by Artist`, newest
	// first, capped so prompts stay bounded.
	Display []string

	// OverexposedArtists are the display-cased names behind Artists.
	OverexposedArtists []string

	// TotalCount is the full number of records in the window, before
	// the display cap.
	TotalCount int
}

// Empty reports whether nothing is excluded.
func (e Exclusions) Empty() bool {
	return len(e.Tracks) == 0 && len(e.Artists) == 0
}

// Tracker maintains recommendation history through a Store.
type Tracker struct {
	store     Store
	retention time.Duration
	now       func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithRetention sets the cleanup horizon.
func WithRetention(d time.Duration) Option {
	return func(t *Tracker) {
		t.retention = d
	}
}

// New creates a Tracker backed by the given store.
func New(store Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:     store,
		retention: DefaultRetention,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Record persists a new recommendation. It assigns an ID and creation time
// when unset. Records are append-only: nothing here ever rewrites an
// existing record.
func (t *Tracker) Record(ctx context.Context, rec *Record) error {
	if rec.UserID == "" || rec.TrackID == "" {
		return fmt.Errorf("recording recommendation: missing user or track ID")
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = t.now()
	}
	if err := t.store.Create(ctx, rec); err != nil {
		return fmt.Errorf("recording recommendation: %w", err)
	}
	return nil
}

// ExclusionSet computes the exclusions for a user: every track recommended
// within the window (across all methods), plus artists recommended more
// than maxArtistRepeat times within the same window.
func (t *Tracker) ExclusionSet(ctx context.Context, userID string, window time.Duration, maxArtistRepeat int) (Exclusions, error) {
	if window <= 0 {
		window = DefaultWindow
	}
	if maxArtistRepeat <= 0 {
		maxArtistRepeat = DefaultMaxArtistRepeat
	}

	records, err := t.store.ListSince(ctx, userID, t.now().Add(-window))
	if err != nil {
		return Exclusions{}, fmt.Errorf("loading recent recommendations: %w", err)
	}

	excl := Exclusions{
		Tracks:     make(map[string]bool, len(records)),
		Artists:    make(map[string]bool),
		TotalCount: len(records),
	}

	artistCounts := make(map[string]int)
	artistNames := make(map[string]string)
	for _, rec := range records {
		excl.Tracks[rec.TrackID] = true
		if len(excl.Display) < maxDisplayTracks {
			excl.Display = append(excl.Display, fmt.Sprintf("%q by %s", rec.TrackName, rec.ArtistName))
		}
		key := strings.ToLower(strings.TrimSpace(rec.ArtistName))
		if key == "" {
			continue
		}
		artistCounts[key]++
		artistNames[key] = rec.ArtistName
	}

	for key, count := range artistCounts {
		if count > maxArtistRepeat {
			excl.Artists[key] = true
		}
	}
	// Derive display names from the ordered records so the output is
	// deterministic for identical input.
	seen := make(map[string]bool)
	for _, rec := range records {
		key := strings.ToLower(strings.TrimSpace(rec.ArtistName))
		if excl.Artists[key] && !seen[key] {
			seen[key] = true
			excl.OverexposedArtists = append(excl.OverexposedArtists, artistNames[key])
		}
	}

	return excl, nil
}

// Recent returns the user's recommendations inside the window, newest
// first as stored.
func (t *Tracker) Recent(ctx context.Context, userID string, window time.Duration) ([]Record, error) {
	if window <= 0 {
		window = DefaultWindow
	}
	records, err := t.store.ListSince(ctx, userID, t.now().Add(-window))
	if err != nil {
		return nil, fmt.Errorf("loading recent recommendations: %w", err)
	}
	return records, nil
}

// MarkPlayed records that a recommendation was actually listened to. This
// is the only mutation allowed on an existing record. The update is scoped
// to the owning user; another user's record ID reads as not found.
func (t *Tracker) MarkPlayed(ctx context.Context, userID string, id uuid.UUID) error {
	if err := t.store.MarkPlayed(ctx, userID, id, t.now()); err != nil {
		return fmt.Errorf("marking recommendation played: %w", err)
	}
	return nil
}

// Cleanup removes records older than the retention horizon and returns how
// many were deleted.
func (t *Tracker) Cleanup(ctx context.Context) (int64, error) {
	deleted, err := t.store.DeleteOlderThan(ctx, t.now().Add(-t.retention))
	if err != nil {
		return 0, fmt.Errorf("cleaning up recommendation history: %w", err)
	}
	return deleted, nil
}
