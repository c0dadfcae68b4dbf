package spotify

import (
	"context"

	"github.com/zmb3/spotify/v2"
)

// CreatePlaylist creates a new playlist for the current user and returns
// its ID.
func (c *Client) CreatePlaylist(ctx context.Context, name, description string, public bool) (string, error) {
	userID, err := c.UserID(ctx)
	if err != nil {
		return "", err
	}

	playlist, err := c.api.CreatePlaylistForUser(ctx, userID, name, description, public, false)
	if err != nil {
		return "", classify("creating playlist", err)
	}
	return playlist.ID.String(), nil
}

// AddTracks adds tracks to a playlist, batching to Spotify's limit of 100
// per request.
func (c *Client) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if len(trackIDs) == 0 {
		return nil
	}

	ids := make([]spotify.ID, len(trackIDs))
	for i, id := range trackIDs {
		ids[i] = spotify.ID(id)
	}

	for start := 0; start < len(ids); start += maxTracksPerRequest {
		end := min(start+maxTracksPerRequest, len(ids))
		if _, err := c.api.AddTracksToPlaylist(ctx, spotify.ID(playlistID), ids[start:end]...); err != nil {
			return classify("adding playlist tracks", err)
		}
	}
	return nil
}
