package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/google/uuid"
)

// CreateRound inserts a round, ignoring one that already exists
func CreateRound(ctx context.Context, db Execer, round *RoundRecord) error {
	if round.ID == "" {
		round.ID = uuid.New().String()
	}
	if round.Providers == nil {
		round.Providers = JSONStringArray{}
	}
	if round.StartedAt.IsZero() {
		round.StartedAt = time.Now()
	}

	query := `INSERT OR IGNORE INTO rounds (id, epoch, prompt, providers, started_at) VALUES (?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query, round.ID, round.Epoch, round.Prompt, round.Providers, round.StartedAt)
	return err
}

// GetRoundByID retrieves a round by its ID
func GetRoundByID(ctx context.Context, db sqlscan.Querier, roundID string) (*RoundRecord, error) {
	query := `SELECT id, epoch, prompt, json(providers) as providers, started_at FROM rounds WHERE id = ?`
	var r RoundRecord
	err := sqlscan.Get(ctx, db, &r, query, roundID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, err
	}
	return &r, nil
}

// GetLatestRound retrieves the most recently started round
func GetLatestRound(ctx context.Context, db sqlscan.Querier) (*RoundRecord, error) {
	query := `SELECT id, epoch, prompt, json(providers) as providers, started_at FROM rounds ORDER BY started_at DESC, epoch DESC LIMIT 1`
	var r RoundRecord
	err := sqlscan.Get(ctx, db, &r, query)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No rounds yet
		}
		return nil, err
	}
	return &r, nil
}

// ListRounds returns up to limit rounds, newest first
func ListRounds(ctx context.Context, db sqlscan.Querier, limit int) ([]RoundRecord, error) {
	query := `SELECT id, epoch, prompt, json(providers) as providers, started_at FROM rounds ORDER BY started_at DESC, epoch DESC LIMIT ?`
	var rounds []RoundRecord
	if err := sqlscan.Select(ctx, db, &rounds, query, limit); err != nil {
		return nil, err
	}
	return rounds, nil
}

// CreateRoundResult inserts one provider outcome
func CreateRoundResult(ctx context.Context, db Execer, result *RoundResult) error {
	if result.ID == "" {
		result.ID = uuid.New().String()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now()
	}

	query := `INSERT INTO round_results (id, round_id, provider, model, content, error, duration_ms, stale, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		result.ID,
		result.RoundID,
		result.Provider,
		result.Model,
		result.Content,
		result.Error,
		result.DurationMs,
		result.Stale,
		result.CreatedAt,
	)
	return err
}

// GetRoundResults retrieves all outcomes of a round ordered by arrival
func GetRoundResults(ctx context.Context, db sqlscan.Querier, roundID string) ([]RoundResult, error) {
	query := `SELECT id, round_id, provider, model, content, error, duration_ms, stale, created_at FROM round_results WHERE round_id = ? ORDER BY created_at`
	var results []RoundResult
	if err := sqlscan.Select(ctx, db, &results, query, roundID); err != nil {
		return nil, err
	}
	return results, nil
}
