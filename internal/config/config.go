// Package config reads application configuration from environment variables.
package config

import (
	"errors"
	"os"
)

// Errors for missing required configuration.
var (
	// ErrMissingSpotifyCredentials is returned when SPOTIFY_ID or
	// SPOTIFY_SECRET is not set.
	ErrMissingSpotifyCredentials = errors.New("missing SPOTIFY_ID or SPOTIFY_SECRET environment variable")

	// ErrMissingGeminiKey is returned when GEMINI_API_KEY is not set.
	ErrMissingGeminiKey = errors.New("missing GEMINI_API_KEY environment variable")
)

// Config holds application configuration.
type Config struct {
	// Spotify OAuth app credentials.
	SpotifyID     string
	SpotifySecret string

	// GeminiKey authenticates LLM calls.
	GeminiKey string

	// DatabaseURL is optional; without it the server runs with in-memory
	// sessions and no persistent history.
	DatabaseURL string

	// RedisURL is optional; without it the cache is in-process.
	RedisURL string

	// Addr is the listen address, defaulting to 127.0.0.1:8080.
	Addr string

	// RedirectURI overrides the OAuth callback URL for deployments.
	RedirectURI string
}

// Load reads configuration from environment variables. Spotify credentials
// and the Gemini key are required; everything else has a sensible default
// or degrades gracefully when absent.
func Load() (*Config, error) {
	cfg := &Config{
		SpotifyID:     os.Getenv("SPOTIFY_ID"),
		SpotifySecret: os.Getenv("SPOTIFY_SECRET"),
		GeminiKey:     os.Getenv("GEMINI_API_KEY"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		Addr:          os.Getenv("MUSE_ADDR"),
		RedirectURI:   os.Getenv("MUSE_REDIRECT_URI"),
	}

	if cfg.SpotifyID == "" || cfg.SpotifySecret == "" {
		return nil, ErrMissingSpotifyCredentials
	}
	if cfg.GeminiKey == "" {
		return nil, ErrMissingGeminiKey
	}

	return cfg, nil
}
