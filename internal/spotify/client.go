// Package spotify wraps the Spotify Web API as the music catalog
// collaborator: listening history collection, track search and playlist
// creation.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/zmb3/spotify/v2"
)

// ErrAuthExpired is returned when Spotify rejects the user's token. It is
// never retried here; the caller must send the user back through OAuth.
var ErrAuthExpired = errors.New("spotify authorization expired")

// Client wraps the Spotify API client with convenience methods.
type Client struct {
	api *spotify.Client
}

// New creates a new Spotify client wrapper.
// The underlying client should already be authenticated.
func New(api *spotify.Client) *Client {
	return &Client{api: api}
}

// UserID returns the current user's Spotify ID.
func (c *Client) UserID(ctx context.Context) (string, error) {
	user, err := c.api.CurrentUser(ctx)
	if err != nil {
		return "", classify("getting current user", err)
	}
	return user.ID, nil
}

// classify wraps an API error, mapping expired authorization onto the
// ErrAuthExpired sentinel so callers can tell it apart from generic
// failure.
func classify(op string, err error) error {
	var apiErr spotify.Error
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		return fmt.Errorf("%s: %w", op, ErrAuthExpired)
	}
	return fmt.Errorf("%s: %w", op, err)
}
