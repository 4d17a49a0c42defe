// Package session holds the mutable state of one quorum process: the
// credentials, the model choices and the answers of the current round.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/elee1766/quorum/src/provider"
	"github.com/google/uuid"
)

// ErrUnknownModel is returned when a model id is not in the resolved list
var ErrUnknownModel = errors.New("model not offered by provider")

// State is the progress of one provider within a round
type State string

const (
	StateIdle    State = ""
	StatePending State = "pending"
	StateSuccess State = "success"
	StateError   State = "error"
)

// Status is a provider's state in the current round
type Status struct {
	State   State  `json:"state"`
	Message string `json:"message,omitempty"`
}

// Snapshot is what a Store persists between processes
type Snapshot struct {
	Credentials    map[provider.ID]string `json:"tokens"`
	SelectedModels map[provider.ID]string `json:"selected_models"`
}

// Store persists credentials and model choices.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	SaveCredentials(ctx context.Context, credentials map[provider.ID]string) error
	SaveSelectedModels(ctx context.Context, selected map[provider.ID]string) error
}

// Round identifies one dispatch round. Writes tagged with an older Epoch are
// discarded.
type Round struct {
	ID        string        `json:"id"`
	Epoch     uint64        `json:"epoch"`
	Prompt    string        `json:"prompt"`
	Providers []provider.ID `json:"providers"`
	StartedAt time.Time     `json:"started_at"`
}

// Session is safe for concurrent use.
type Session struct {
	mu sync.RWMutex

	table provider.Table
	store Store

	credentials map[provider.ID]string
	// credentials taken from the environment; never written back
	ephemeral map[provider.ID]bool
	selected  map[provider.ID]string

	round     Round
	responses map[provider.ID]string
	status    map[provider.ID]Status

	logger *slog.Logger
}

// New builds a session from a store snapshot. store may be nil, in which case
// changes live only as long as the process.
func New(snapshot Snapshot, table provider.Table, store Store, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		table:       table,
		store:       store,
		credentials: make(map[provider.ID]string),
		ephemeral:   make(map[provider.ID]bool),
		selected:    make(map[provider.ID]string),
		responses:   make(map[provider.ID]string),
		status:      make(map[provider.ID]Status),
		logger:      logger.With("component", "session"),
	}
	for id, cred := range snapshot.Credentials {
		if _, ok := table[id]; ok && cred != "" {
			s.credentials[id] = cred
		}
	}
	for id, model := range snapshot.SelectedModels {
		if _, ok := table[id]; ok && model != "" {
			s.selected[id] = model
		}
	}
	return s
}

// Load reads the snapshot from store and builds a session from it.
func Load(ctx context.Context, table provider.Table, store Store, logger *slog.Logger) (*Session, error) {
	snapshot, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return New(snapshot, table, store, logger), nil
}

// Seed sets a credential that is used but never persisted. Stored
// credentials win over seeded ones.
func (s *Session) Seed(id provider.ID, credential string) {
	if credential == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.credentials[id]; ok {
		return
	}
	s.credentials[id] = credential
	s.ephemeral[id] = true
}

// SetCredential stores a credential for id.
func (s *Session) SetCredential(ctx context.Context, id provider.ID, credential string) error {
	if _, err := s.table.Get(id); err != nil {
		return err
	}
	if credential == "" {
		return fmt.Errorf("empty credential for %s", id)
	}

	s.mu.Lock()
	s.credentials[id] = credential
	delete(s.ephemeral, id)
	persisted := s.persistedCredentialsLocked()
	s.mu.Unlock()

	s.logger.Info("credential set", "provider", id)
	return s.saveCredentials(ctx, persisted)
}

// DeleteCredential removes the credential for id together with its answer
// and status in the current round.
func (s *Session) DeleteCredential(ctx context.Context, id provider.ID) error {
	s.mu.Lock()
	_, had := s.credentials[id]
	delete(s.credentials, id)
	delete(s.ephemeral, id)
	delete(s.responses, id)
	delete(s.status, id)
	persisted := s.persistedCredentialsLocked()
	s.mu.Unlock()

	if !had {
		return nil
	}
	s.logger.Info("credential deleted", "provider", id)
	return s.saveCredentials(ctx, persisted)
}

// Credential returns the credential for id
func (s *Session) Credential(id provider.ID) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.credentials[id]
	return cred, ok
}

// IsSeeded reports whether the credential for id came from the environment
func (s *Session) IsSeeded(id provider.ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ephemeral[id]
}

// Credentialed lists the providers holding a credential, in canonical order
func (s *Session) Credentialed() []provider.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []provider.ID
	for _, id := range provider.Order {
		if s.credentials[id] != "" {
			out = append(out, id)
		}
	}
	return out
}

// SelectModel records model as the choice for id. model must be one of
// available, which is the provider's last resolved list.
func (s *Session) SelectModel(ctx context.Context, id provider.ID, model string, available []provider.Model) error {
	if _, err := s.table.Get(id); err != nil {
		return err
	}
	if _, ok := provider.Lookup(available, model); !ok {
		return fmt.Errorf("%w: %s has no model %q", ErrUnknownModel, id, model)
	}

	s.mu.Lock()
	s.selected[id] = model
	selected := maps.Clone(s.selected)
	s.mu.Unlock()

	s.logger.Info("model selected", "provider", id, "model", model)
	if s.store == nil {
		return nil
	}
	if err := s.store.SaveSelectedModels(ctx, selected); err != nil {
		return fmt.Errorf("failed to save selected models: %w", err)
	}
	return nil
}

// SelectedModel returns the chosen model for id, or the provider default
func (s *Session) SelectedModel(id provider.ID) string {
	s.mu.RLock()
	model := s.selected[id]
	s.mu.RUnlock()
	if model != "" {
		return model
	}
	if d, ok := s.table[id]; ok {
		return d.DefaultModel
	}
	return ""
}

// ReconcileModel resets the choice for id to the default when it is not in
// available. It reports whether a reset happened.
func (s *Session) ReconcileModel(ctx context.Context, id provider.ID, available []provider.Model) (bool, error) {
	s.mu.Lock()
	model, ok := s.selected[id]
	if !ok {
		s.mu.Unlock()
		return false, nil
	}
	if _, found := provider.Lookup(available, model); found {
		s.mu.Unlock()
		return false, nil
	}
	delete(s.selected, id)
	selected := maps.Clone(s.selected)
	s.mu.Unlock()

	s.logger.Info("selected model no longer offered, using default", "provider", id, "model", model)
	if s.store == nil {
		return true, nil
	}
	if err := s.store.SaveSelectedModels(ctx, selected); err != nil {
		return true, fmt.Errorf("failed to save selected models: %w", err)
	}
	return true, nil
}

// BeginRound starts a new round over providers. All answers and statuses of
// the previous round are dropped before this returns.
func (s *Session) BeginRound(prompt string, providers []provider.ID) Round {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.round = Round{
		ID:        uuid.NewString(),
		Epoch:     s.round.Epoch + 1,
		Prompt:    prompt,
		Providers: slices.Clone(providers),
		StartedAt: time.Now(),
	}
	clear(s.responses)
	clear(s.status)
	for _, id := range providers {
		s.status[id] = Status{State: StatePending}
	}

	s.logger.Debug("round started", "round_id", s.round.ID, "epoch", s.round.Epoch, "providers", len(providers))
	return s.round
}

// Complete records the answer of id for the round with the given epoch.
// It returns false when the round is stale and nothing was written.
func (s *Session) Complete(epoch uint64, id provider.ID, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.acceptsLocked(epoch, id) {
		return false
	}
	s.responses[id] = text
	s.status[id] = Status{State: StateSuccess}
	return true
}

// Fail records a failure of id for the round with the given epoch.
// It returns false when the round is stale and nothing was written.
func (s *Session) Fail(epoch uint64, id provider.ID, message string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.acceptsLocked(epoch, id) {
		return false
	}
	delete(s.responses, id)
	s.status[id] = Status{State: StateError, Message: message}
	return true
}

func (s *Session) acceptsLocked(epoch uint64, id provider.ID) bool {
	if epoch != s.round.Epoch {
		s.logger.Debug("discarding stale result", "provider", id, "epoch", epoch, "current", s.round.Epoch)
		return false
	}
	// the credential was deleted while the call was in flight
	if _, ok := s.status[id]; !ok {
		return false
	}
	return true
}

// Restore loads a finished round, e.g. one read back from storage, as the
// current round.
func (s *Session) Restore(round Round, responses map[provider.ID]string) Round {
	s.mu.Lock()
	defer s.mu.Unlock()

	round.Epoch = s.round.Epoch + 1
	s.round = round
	clear(s.responses)
	clear(s.status)
	for id, text := range responses {
		if text == "" || provider.IsParseFailure(text) {
			continue
		}
		s.responses[id] = text
		s.status[id] = Status{State: StateSuccess}
	}
	return s.round
}

// Round returns the current round
func (s *Session) Round() Round {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.round
}

// Prompt returns the prompt of the current round
func (s *Session) Prompt() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.round.Prompt
}

// Responses returns a copy of the answers collected so far
func (s *Session) Responses() map[provider.ID]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.responses)
}

// Status returns the state of id in the current round
func (s *Session) Status(id provider.ID) Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status[id]
}

// Snapshot returns what would be persisted for this session
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Credentials:    s.persistedCredentialsLocked(),
		SelectedModels: maps.Clone(s.selected),
	}
}

func (s *Session) persistedCredentialsLocked() map[provider.ID]string {
	out := make(map[provider.ID]string, len(s.credentials))
	for id, cred := range s.credentials {
		if !s.ephemeral[id] {
			out[id] = cred
		}
	}
	return out
}

func (s *Session) saveCredentials(ctx context.Context, credentials map[provider.ID]string) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.SaveCredentials(ctx, credentials); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}
