package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// High scores back the single-player color match: one persisted scalar per
// player name, read at game mount and raised on each new record.
//
// Schema:
//
//	CREATE TABLE IF NOT EXISTS high_scores (
//	    player_name TEXT PRIMARY KEY,
//	    score       INTEGER NOT NULL,
//	    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
//	);

// GetHighScore returns the stored high score for the player, or 0 when none
// has been recorded yet.
func GetHighScore(ctx context.Context, name string) (int, error) {
	var score int
	err := DB.QueryRow(ctx,
		`SELECT score FROM high_scores WHERE player_name = $1`, name,
	).Scan(&score)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return score, nil
}

// SaveHighScore records the score if it beats the stored one. Returns whether
// a new record was written.
func SaveHighScore(ctx context.Context, name string, score int) (bool, error) {
	tag, err := DB.Exec(ctx, `
		INSERT INTO high_scores (player_name, score, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (player_name) DO UPDATE
		SET score = EXCLUDED.score, updated_at = now()
		WHERE high_scores.score < EXCLUDED.score
	`, name, score)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
