package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/elee1766/quorum/src/dispatch"
	"github.com/elee1766/quorum/src/provider"
	"github.com/elee1766/quorum/src/session"
)

// Store persists session state and round history in sqlite
type Store struct {
	db     *DB
	logger *slog.Logger
}

var (
	_ session.Store          = (*Store)(nil)
	_ dispatch.RoundRecorder = (*Store)(nil)
)

// NewStore wraps an open database
func NewStore(db *DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger.With("component", "storage")}
}

// Load reads stored credentials and model choices. Rows naming a provider
// this build does not know are skipped.
func (s *Store) Load(ctx context.Context) (session.Snapshot, error) {
	snap := session.Snapshot{
		Credentials:    make(map[provider.ID]string),
		SelectedModels: make(map[provider.ID]string),
	}

	creds, err := ListCredentials(ctx, s.db.DB())
	if err != nil {
		return snap, fmt.Errorf("failed to load credentials: %w", err)
	}
	for _, c := range creds {
		id, err := provider.ParseID(c.Provider)
		if err != nil {
			s.logger.Warn("skipping stored credential", "provider", c.Provider, "error", err)
			continue
		}
		snap.Credentials[id] = c.Credential
	}

	models, err := ListSelectedModels(ctx, s.db.DB())
	if err != nil {
		return snap, fmt.Errorf("failed to load selected models: %w", err)
	}
	for _, m := range models {
		id, err := provider.ParseID(m.Provider)
		if err != nil {
			s.logger.Warn("skipping stored model choice", "provider", m.Provider, "error", err)
			continue
		}
		snap.SelectedModels[id] = m.Model
	}

	return snap, nil
}

// SaveCredentials replaces the stored credentials
func (s *Store) SaveCredentials(ctx context.Context, credentials map[provider.ID]string) error {
	return s.replace(ctx, credentials, ReplaceCredentials)
}

// SaveSelectedModels replaces the stored model choices
func (s *Store) SaveSelectedModels(ctx context.Context, selected map[provider.ID]string) error {
	return s.replace(ctx, selected, ReplaceSelectedModels)
}

func (s *Store) replace(ctx context.Context, values map[provider.ID]string, write func(context.Context, Execer, map[string]string) error) error {
	rows := make(map[string]string, len(values))
	for id, v := range values {
		rows[string(id)] = v
	}

	tx, err := s.db.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := write(ctx, tx, rows); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// RecordRound stores a round as it starts
func (s *Store) RecordRound(ctx context.Context, round session.Round) error {
	providers := make(JSONStringArray, len(round.Providers))
	for i, id := range round.Providers {
		providers[i] = string(id)
	}

	return CreateRound(ctx, s.db.DB(), &RoundRecord{
		ID:        round.ID,
		Epoch:     int64(round.Epoch),
		Prompt:    round.Prompt,
		Providers: providers,
		StartedAt: round.StartedAt,
	})
}

// RecordOutcome stores one provider's outcome under roundID
func (s *Store) RecordOutcome(ctx context.Context, roundID string, outcome dispatch.Outcome) error {
	return CreateRoundResult(ctx, s.db.DB(), &RoundResult{
		RoundID:    roundID,
		Provider:   string(outcome.Provider),
		Model:      outcome.Model,
		Content:    outcome.Text,
		Error:      outcome.ErrorMessage(),
		DurationMs: outcome.Duration.Milliseconds(),
		Stale:      outcome.Stale,
	})
}

// LatestRound returns the most recent round and the answers it collected.
// Failed and stale results are left out. ok is false when nothing was
// recorded yet.
func (s *Store) LatestRound(ctx context.Context) (round session.Round, responses map[provider.ID]string, ok bool, err error) {
	record, err := GetLatestRound(ctx, s.db.DB())
	if err != nil {
		return round, nil, false, fmt.Errorf("failed to load latest round: %w", err)
	}
	if record == nil {
		return round, nil, false, nil
	}

	results, err := GetRoundResults(ctx, s.db.DB(), record.ID)
	if err != nil {
		return round, nil, false, fmt.Errorf("failed to load round results: %w", err)
	}

	round = session.Round{
		ID:        record.ID,
		Epoch:     uint64(record.Epoch),
		Prompt:    record.Prompt,
		StartedAt: record.StartedAt,
	}
	for _, name := range record.Providers {
		if id, err := provider.ParseID(name); err == nil {
			round.Providers = append(round.Providers, id)
		}
	}

	responses = make(map[provider.ID]string)
	for _, r := range results {
		if r.Stale || r.Error != "" || r.Content == "" {
			continue
		}
		id, err := provider.ParseID(r.Provider)
		if err != nil {
			continue
		}
		responses[id] = r.Content
	}

	return round, responses, true, nil
}
