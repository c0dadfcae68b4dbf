package db

import (
	"time"

	"github.com/google/uuid"
)

// User represents a Spotify user profile.
type User struct {
	ID          string
	DisplayName string
	Email       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Session represents an authenticated web session.
type Session struct {
	ID           string
	UserID       string
	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time
	Adjustment   string // session-scoped prompt adjustment, empty when unset
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// Recommendation represents a track suggested to a user.
type Recommendation struct {
	ID           uuid.UUID
	UserID       string
	TrackID      string
	TrackName    string
	ArtistName   string
	Method       string // "standard", "lightning" or "playlist"
	CreatedAt    time.Time
	WasPlayed    bool
	PlayCount    int
	LastPlayedAt *time.Time // nullable
	Confidence   float64
	MatchScore   float64
}

// Feedback represents a user's reaction to a recommendation.
type Feedback struct {
	ID               uuid.UUID
	UserID           string
	RecommendationID *uuid.UUID // nullable - feedback may be free-form
	TrackName        string
	ArtistName       string
	Rating           int // 1 (disliked) to 5 (loved)
	Comment          string
	CreatedAt        time.Time
}
