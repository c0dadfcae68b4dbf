// Package cache provides a short-TTL keyed store used to avoid redundant
// Spotify API calls and redundant LLM calls for identical inputs.
package cache

import (
	"context"
	"time"
)

// DefaultTTL is how long cached listening data stays fresh.
const DefaultTTL = 15 * time.Minute

// Well-known cache categories.
const (
	CategoryLibrary        = "library"
	CategoryProfile        = "profile"
	CategoryAnalysis       = "analysis"
	CategoryRecommendation = "recommendation"
	CategoryInsights       = "insights"
)

// Cache is a TTL-based store keyed by user and category. Values are opaque
// bytes; callers marshal what they store. An entry moves through exactly
// {absent -> fresh -> stale -> absent}: a Get on a stale entry behaves as a
// miss and removes it.
type Cache interface {
	// Get returns the cached value for (userID, category), or false on a
	// miss or an expired entry.
	Get(ctx context.Context, userID, category string) ([]byte, bool)

	// Put stores a value with the given TTL, replacing any previous entry.
	Put(ctx context.Context, userID, category string, value []byte, ttl time.Duration) error

	// Invalidate removes a single entry regardless of TTL.
	Invalidate(ctx context.Context, userID, category string) error

	// InvalidateUser removes every entry for the user, for "clear my
	// cache" requests.
	InvalidateUser(ctx context.Context, userID string) error
}

// Key builds the store key for a user and category.
func Key(userID, category string) string {
	return userID + ":" + category
}
