package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// FeedbackRepository handles feedback database operations.
type FeedbackRepository struct {
	pool *pgxpool.Pool
}

// Create inserts a new feedback entry.
func (r *FeedbackRepository) Create(ctx context.Context, fb *Feedback) error {
	query := `
		INSERT INTO feedback (id, user_id, recommendation_id, track_name, artist_name, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now()
	}
	_, err := r.pool.Exec(ctx, query,
		fb.ID,
		fb.UserID,
		fb.RecommendationID,
		fb.TrackName,
		fb.ArtistName,
		fb.Rating,
		fb.Comment,
		fb.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting feedback: %w", err)
	}
	return nil
}

// ListForUser returns a user's feedback entries, newest first, capped at
// limit (0 means no cap).
func (r *FeedbackRepository) ListForUser(ctx context.Context, userID string, limit int) ([]Feedback, error) {
	query := `
		SELECT id, user_id, recommendation_id, track_name, artist_name, rating, comment, created_at
		FROM feedback
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying feedback: %w", err)
	}
	defer rows.Close()

	var entries []Feedback
	for rows.Next() {
		var fb Feedback
		err := rows.Scan(
			&fb.ID,
			&fb.UserID,
			&fb.RecommendationID,
			&fb.TrackName,
			&fb.ArtistName,
			&fb.Rating,
			&fb.Comment,
			&fb.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning feedback: %w", err)
		}
		entries = append(entries, fb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating feedback: %w", err)
	}
	return entries, nil
}
