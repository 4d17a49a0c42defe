package session

import (
	"context"
	"errors"
	"maps"
	"sync"
	"testing"

	"github.com/elee1766/quorum/src/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu        sync.Mutex
	snapshot  Snapshot
	saveCalls int
	failSave  error
}

func (m *memoryStore) Load(ctx context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Credentials:    maps.Clone(m.snapshot.Credentials),
		SelectedModels: maps.Clone(m.snapshot.SelectedModels),
	}, nil
}

func (m *memoryStore) SaveCredentials(ctx context.Context, credentials map[provider.ID]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	if m.failSave != nil {
		return m.failSave
	}
	m.snapshot.Credentials = maps.Clone(credentials)
	return nil
}

func (m *memoryStore) SaveSelectedModels(ctx context.Context, selected map[provider.ID]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	if m.failSave != nil {
		return m.failSave
	}
	m.snapshot.SelectedModels = maps.Clone(selected)
	return nil
}

func newTestSession(t *testing.T, snapshot Snapshot) (*Session, *memoryStore) {
	t.Helper()
	store := &memoryStore{snapshot: snapshot}
	s, err := Load(context.Background(), provider.Builtin(), store, nil)
	require.NoError(t, err)
	return s, store
}

func TestNewIgnoresUnknownProviders(t *testing.T) {
	s, _ := newTestSession(t, Snapshot{
		Credentials: map[provider.ID]string{
			provider.Claude: "ck",
			"mystery":       "x",
			provider.Grok:   "",
		},
		SelectedModels: map[provider.ID]string{"mystery": "m"},
	})

	assert.Equal(t, []provider.ID{provider.Claude}, s.Credentialed())
	assert.Empty(t, s.Snapshot().SelectedModels)
}

func TestCredentialLifecycle(t *testing.T) {
	ctx := context.Background()
	s, store := newTestSession(t, Snapshot{})

	require.NoError(t, s.SetCredential(ctx, provider.DeepSeek, "dk"))
	require.NoError(t, s.SetCredential(ctx, provider.ChatGPT, "ok"))
	assert.Equal(t, []provider.ID{provider.ChatGPT, provider.DeepSeek}, s.Credentialed())
	assert.Equal(t, map[provider.ID]string{provider.ChatGPT: "ok", provider.DeepSeek: "dk"}, store.snapshot.Credentials)

	require.NoError(t, s.DeleteCredential(ctx, provider.ChatGPT))
	assert.Equal(t, []provider.ID{provider.DeepSeek}, s.Credentialed())
	assert.Equal(t, map[provider.ID]string{provider.DeepSeek: "dk"}, store.snapshot.Credentials)

	assert.Error(t, s.SetCredential(ctx, "mystery", "x"))
	assert.Error(t, s.SetCredential(ctx, provider.Grok, ""))
}

func TestDeleteCredentialDropsResponse(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(t, Snapshot{Credentials: map[provider.ID]string{
		provider.Gemini: "gk",
		provider.Kimi:   "kk",
	}})

	round := s.BeginRound("q", s.Credentialed())
	assert.True(t, s.Complete(round.Epoch, provider.Gemini, "gemini says"))
	assert.True(t, s.Complete(round.Epoch, provider.Kimi, "kimi says"))

	require.NoError(t, s.DeleteCredential(ctx, provider.Kimi))
	assert.Equal(t, map[provider.ID]string{provider.Gemini: "gemini says"}, s.Responses())
	assert.Equal(t, StateIdle, s.Status(provider.Kimi).State)
}

func TestDeleteWhileInFlightSuppressesLateAnswer(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(t, Snapshot{Credentials: map[provider.ID]string{provider.Grok: "xk"}})

	round := s.BeginRound("q", s.Credentialed())
	require.NoError(t, s.DeleteCredential(ctx, provider.Grok))

	assert.False(t, s.Complete(round.Epoch, provider.Grok, "late"))
	assert.Empty(t, s.Responses())
}

func TestSeededCredentialsAreNotPersisted(t *testing.T) {
	ctx := context.Background()
	s, store := newTestSession(t, Snapshot{Credentials: map[provider.ID]string{provider.Claude: "stored"}})

	s.Seed(provider.Claude, "from-env")
	s.Seed(provider.Gemini, "from-env")

	cred, _ := s.Credential(provider.Claude)
	assert.Equal(t, "stored", cred, "stored credentials win")
	assert.True(t, s.IsSeeded(provider.Gemini))

	require.NoError(t, s.SetCredential(ctx, provider.Kimi, "kk"))
	assert.Equal(t, map[provider.ID]string{provider.Claude: "stored", provider.Kimi: "kk"}, store.snapshot.Credentials)

	require.NoError(t, s.SetCredential(ctx, provider.Gemini, "explicit"))
	assert.False(t, s.IsSeeded(provider.Gemini))
	assert.Equal(t, "explicit", store.snapshot.Credentials[provider.Gemini])
}

func TestSelectModel(t *testing.T) {
	ctx := context.Background()
	s, store := newTestSession(t, Snapshot{})
	available := []provider.Model{{ID: "grok-beta", Name: "Grok Beta"}, {ID: "grok-2-latest", Name: "Grok 2"}}

	assert.Equal(t, "grok-beta", s.SelectedModel(provider.Grok), "default before any choice")

	require.NoError(t, s.SelectModel(ctx, provider.Grok, "grok-2-latest", available))
	assert.Equal(t, "grok-2-latest", s.SelectedModel(provider.Grok))
	assert.Equal(t, "grok-2-latest", store.snapshot.SelectedModels[provider.Grok])

	err := s.SelectModel(ctx, provider.Grok, "grok-9", available)
	assert.ErrorIs(t, err, ErrUnknownModel)
	assert.Equal(t, "grok-2-latest", s.SelectedModel(provider.Grok), "rejected choice leaves the old one")
}

func TestReconcileModel(t *testing.T) {
	ctx := context.Background()
	s, store := newTestSession(t, Snapshot{SelectedModels: map[provider.ID]string{provider.ChatGPT: "gpt-retired"}})

	reset, err := s.ReconcileModel(ctx, provider.ChatGPT, []provider.Model{{ID: "gpt-4o", Name: "GPT-4o"}})
	require.NoError(t, err)
	assert.True(t, reset)
	assert.Equal(t, "gpt-4o", s.SelectedModel(provider.ChatGPT))
	assert.Empty(t, store.snapshot.SelectedModels)

	reset, err = s.ReconcileModel(ctx, provider.ChatGPT, nil)
	require.NoError(t, err)
	assert.False(t, reset)
}

func TestBeginRoundClearsPreviousRound(t *testing.T) {
	s, _ := newTestSession(t, Snapshot{Credentials: map[provider.ID]string{
		provider.ChatGPT: "a",
		provider.Claude:  "b",
	}})

	first := s.BeginRound("one", s.Credentialed())
	s.Complete(first.Epoch, provider.ChatGPT, "first answer")
	s.Fail(first.Epoch, provider.Claude, "API Error 500: boom")

	second := s.BeginRound("two", []provider.ID{provider.Claude})
	assert.Greater(t, second.Epoch, first.Epoch)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "two", s.Prompt())
	assert.Empty(t, s.Responses())
	assert.Equal(t, StatePending, s.Status(provider.Claude).State)
	assert.Equal(t, StateIdle, s.Status(provider.ChatGPT).State)
}

func TestStaleEpochIsDiscarded(t *testing.T) {
	s, _ := newTestSession(t, Snapshot{Credentials: map[provider.ID]string{provider.Gemini: "g"}})

	first := s.BeginRound("one", s.Credentialed())
	second := s.BeginRound("two", s.Credentialed())

	assert.False(t, s.Complete(first.Epoch, provider.Gemini, "stale"))
	assert.False(t, s.Fail(first.Epoch, provider.Gemini, "stale failure"))
	assert.Empty(t, s.Responses())
	assert.Equal(t, StatePending, s.Status(provider.Gemini).State)

	assert.True(t, s.Complete(second.Epoch, provider.Gemini, "fresh"))
	assert.Equal(t, map[provider.ID]string{provider.Gemini: "fresh"}, s.Responses())
}

func TestFailRemovesResponse(t *testing.T) {
	s, _ := newTestSession(t, Snapshot{Credentials: map[provider.ID]string{provider.Kimi: "k"}})
	round := s.BeginRound("q", s.Credentialed())

	s.Fail(round.Epoch, provider.Kimi, "timeout")
	status := s.Status(provider.Kimi)
	assert.Equal(t, StateError, status.State)
	assert.Equal(t, "timeout", status.Message)
	assert.NotContains(t, s.Responses(), provider.Kimi)
}

func TestResponsesIsACopy(t *testing.T) {
	s, _ := newTestSession(t, Snapshot{Credentials: map[provider.ID]string{provider.Kimi: "k"}})
	round := s.BeginRound("q", s.Credentialed())
	s.Complete(round.Epoch, provider.Kimi, "answer")

	got := s.Responses()
	got[provider.Kimi] = "mutated"
	assert.Equal(t, "answer", s.Responses()[provider.Kimi])
}

func TestRestore(t *testing.T) {
	s, _ := newTestSession(t, Snapshot{})
	live := s.BeginRound("live", nil)

	restored := s.Restore(Round{ID: "stored-round", Prompt: "old question"}, map[provider.ID]string{
		provider.Claude:   "claude answer",
		provider.Grok:     provider.ParseFailure,
		provider.DeepSeek: "",
	})

	assert.Greater(t, restored.Epoch, live.Epoch)
	assert.Equal(t, "old question", s.Prompt())
	assert.Equal(t, "stored-round", s.Round().ID)
	assert.Equal(t, map[provider.ID]string{provider.Claude: "claude answer"}, s.Responses())
	assert.False(t, s.Complete(live.Epoch, provider.Claude, "stale"))
}

func TestStoreErrorsAreWrapped(t *testing.T) {
	s, store := newTestSession(t, Snapshot{})
	store.failSave = errors.New("disk full")

	err := s.SetCredential(context.Background(), provider.Claude, "c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save credentials")
	assert.ErrorIs(t, err, store.failSave)
}

func TestConcurrentCompletion(t *testing.T) {
	creds := make(map[provider.ID]string)
	for _, id := range provider.Order {
		creds[id] = "k"
	}
	s, _ := newTestSession(t, Snapshot{Credentials: creds})
	round := s.BeginRound("q", s.Credentialed())

	var wg sync.WaitGroup
	for _, id := range provider.Order {
		wg.Add(1)
		go func(id provider.ID) {
			defer wg.Done()
			s.Complete(round.Epoch, id, string(id))
		}(id)
	}
	wg.Wait()

	assert.Len(t, s.Responses(), len(provider.Order))
}
