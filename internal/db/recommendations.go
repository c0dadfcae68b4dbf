package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cwinters/go-spotify-muse/internal/history"
)

// RecommendationRepository handles recommendation database operations. It
// implements history.Store.
type RecommendationRepository struct {
	pool *pgxpool.Pool
}

// Create inserts a new recommendation record.
func (r *RecommendationRepository) Create(ctx context.Context, rec *history.Record) error {
	query := `
		INSERT INTO recommendations (id, user_id, track_id, track_name, artist_name, method, created_at, was_played, play_count, confidence, match_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.pool.Exec(ctx, query,
		rec.ID,
		rec.UserID,
		rec.TrackID,
		rec.TrackName,
		rec.ArtistName,
		string(rec.Method),
		rec.CreatedAt,
		rec.WasPlayed,
		rec.PlayCount,
		rec.Confidence,
		rec.MatchScore,
	)
	if err != nil {
		return fmt.Errorf("inserting recommendation: %w", err)
	}
	return nil
}

// Get retrieves a recommendation by ID.
func (r *RecommendationRepository) Get(ctx context.Context, id uuid.UUID) (*Recommendation, error) {
	query := `
		SELECT id, user_id, track_id, track_name, artist_name, method, created_at, was_played, play_count, last_played_at, confidence, match_score
		FROM recommendations
		WHERE id = $1
	`
	var rec Recommendation
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&rec.ID,
		&rec.UserID,
		&rec.TrackID,
		&rec.TrackName,
		&rec.ArtistName,
		&rec.Method,
		&rec.CreatedAt,
		&rec.WasPlayed,
		&rec.PlayCount,
		&rec.LastPlayedAt,
		&rec.Confidence,
		&rec.MatchScore,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying recommendation: %w", err)
	}
	return &rec, nil
}

// ListSince returns a user's recommendations created at or after the given
// time, newest first.
func (r *RecommendationRepository) ListSince(ctx context.Context, userID string, since time.Time) ([]history.Record, error) {
	query := `
		SELECT id, user_id, track_id, track_name, artist_name, method, created_at, was_played, play_count, last_played_at, confidence, match_score
		FROM recommendations
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("querying recommendations: %w", err)
	}
	defer rows.Close()

	var records []history.Record
	for rows.Next() {
		var rec history.Record
		var method string
		err := rows.Scan(
			&rec.ID,
			&rec.UserID,
			&rec.TrackID,
			&rec.TrackName,
			&rec.ArtistName,
			&method,
			&rec.CreatedAt,
			&rec.WasPlayed,
			&rec.PlayCount,
			&rec.LastPlayedAt,
			&rec.Confidence,
			&rec.MatchScore,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning recommendation: %w", err)
		}
		rec.Method = history.Method(method)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating recommendations: %w", err)
	}
	return records, nil
}

// MarkPlayed flags the user's recommendation as played and bumps its play
// count. Scoping by user keeps one user from touching another's records.
func (r *RecommendationRepository) MarkPlayed(ctx context.Context, userID string, id uuid.UUID, playedAt time.Time) error {
	query := `
		UPDATE recommendations
		SET was_played = TRUE, play_count = play_count + 1, last_played_at = $2
		WHERE id = $1 AND user_id = $3
	`
	result, err := r.pool.Exec(ctx, query, id, playedAt, userID)
	if err != nil {
		return fmt.Errorf("marking recommendation played: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteOlderThan removes recommendations created before the cutoff and
// returns how many were deleted.
func (r *RecommendationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM recommendations WHERE created_at < $1`
	result, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting old recommendations: %w", err)
	}
	return result.RowsAffected(), nil
}
