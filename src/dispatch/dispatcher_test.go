package dispatch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/elee1766/quorum/src/provider"
	"github.com/elee1766/quorum/src/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	provider   provider.ID
	credential string
	model      string
	prompt     string
}

// fakeCompleter answers per provider through a function the test supplies
type fakeCompleter struct {
	mu     sync.Mutex
	calls  []call
	answer func(ctx context.Context, id provider.ID, prompt string) (string, error)
}

func (f *fakeCompleter) Complete(ctx context.Context, d provider.Descriptor, credential, model, prompt string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{provider: d.ID, credential: credential, model: model, prompt: prompt})
	f.mu.Unlock()
	return f.answer(ctx, d.ID, prompt)
}

func (f *fakeCompleter) callFor(id provider.ID) (call, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c.provider == id {
			return c, true
		}
	}
	return call{}, false
}

type collectingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *collectingSink) Send(event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *collectingSink) Close() error { return nil }

func (s *collectingSink) ofType(t EventType) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, e := range s.events {
		if e.GetType() == t {
			out = append(out, e)
		}
	}
	return out
}

type memoryRecorder struct {
	mu       sync.Mutex
	rounds   []session.Round
	outcomes map[string][]Outcome
}

func (m *memoryRecorder) RecordRound(ctx context.Context, round session.Round) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rounds = append(m.rounds, round)
	return nil
}

func (m *memoryRecorder) RecordOutcome(ctx context.Context, roundID string, outcome Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcomes == nil {
		m.outcomes = make(map[string][]Outcome)
	}
	m.outcomes[roundID] = append(m.outcomes[roundID], outcome)
	return nil
}

type upperRenderer struct{}

func (upperRenderer) Render(markdown string) string { return "<p>" + strings.ToUpper(markdown) + "</p>" }

func newSession(creds map[provider.ID]string) *session.Session {
	return session.New(session.Snapshot{Credentials: creds}, provider.Builtin(), nil, nil)
}

func waitRound(t *testing.T, r *Round) []Outcome {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	outcomes, err := r.Wait(ctx)
	require.NoError(t, err)
	return outcomes
}

func TestDispatchAllNoCredentials(t *testing.T) {
	client := &fakeCompleter{}
	d := New(client, newSession(nil), provider.Builtin())

	round, err := d.DispatchAll(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrNoCredentials)
	assert.Nil(t, round)
	assert.Empty(t, client.calls)
}

func TestDispatchAllOnlyCredentialedProviders(t *testing.T) {
	sess := newSession(map[provider.ID]string{
		provider.ChatGPT: "ok",
		provider.Claude:  "ck",
	})
	require.NoError(t, sess.SelectModel(context.Background(), provider.Claude, "claude-3-opus-20240229", provider.Builtin().MustGet(provider.Claude).Fallback))

	client := &fakeCompleter{answer: func(ctx context.Context, id provider.ID, prompt string) (string, error) {
		return "answer from " + string(id), nil
	}}
	d := New(client, sess, provider.Builtin())

	round, err := d.DispatchAll(context.Background(), "what is 2+2?")
	require.NoError(t, err)
	outcomes := waitRound(t, round)

	require.Len(t, outcomes, 2)
	assert.Equal(t, provider.ChatGPT, outcomes[0].Provider)
	assert.Equal(t, provider.Claude, outcomes[1].Provider)
	assert.Equal(t, map[provider.ID]string{
		provider.ChatGPT: "answer from chatgpt",
		provider.Claude:  "answer from claude",
	}, sess.Responses())

	c, ok := client.callFor(provider.Claude)
	require.True(t, ok)
	assert.Equal(t, "ck", c.credential)
	assert.Equal(t, "claude-3-opus-20240229", c.model)
	assert.Equal(t, "what is 2+2?"+ConciseInstruction, c.prompt)

	c, _ = client.callFor(provider.ChatGPT)
	assert.Equal(t, "gpt-4o", c.model, "default model when nothing selected")

	_, asked := client.callFor(provider.Gemini)
	assert.False(t, asked)
}

func TestDispatchAllIsolatesFailures(t *testing.T) {
	sess := newSession(map[provider.ID]string{
		provider.ChatGPT:  "a",
		provider.Gemini:   "b",
		provider.Claude:   "c",
		provider.DeepSeek: "d",
	})

	client := &fakeCompleter{answer: func(ctx context.Context, id provider.ID, prompt string) (string, error) {
		switch id {
		case provider.Gemini:
			return "", errors.New(`API Error 400: {"error":"bad"}`)
		case provider.Claude:
			return provider.ParseFailure, nil
		case provider.DeepSeek:
			panic("nil map write")
		}
		return "fine", nil
	}}
	d := New(client, sess, provider.Builtin())

	round, err := d.DispatchAll(context.Background(), "q")
	require.NoError(t, err)
	outcomes := waitRound(t, round)
	require.Len(t, outcomes, 4)

	assert.Equal(t, map[provider.ID]string{provider.ChatGPT: "fine"}, sess.Responses())

	gemini := sess.Status(provider.Gemini)
	assert.Equal(t, session.StateError, gemini.State)
	assert.Contains(t, gemini.Message, `{"error":"bad"}`)

	assert.ErrorIs(t, outcomes[2].Err, ErrUnparsable)
	assert.Equal(t, session.StateError, sess.Status(provider.Claude).State)

	assert.Contains(t, outcomes[3].ErrorMessage(), "panic: nil map write")
	assert.Equal(t, session.StateError, sess.Status(provider.DeepSeek).State)
}

func TestDispatchAllClearsBeforeAnyRequest(t *testing.T) {
	sess := newSession(map[provider.ID]string{provider.Kimi: "k", provider.Grok: "g"})
	first := sess.BeginRound("old", sess.Credentialed())
	sess.Complete(first.Epoch, provider.Kimi, "old answer")

	var seen map[provider.ID]string
	var once sync.Once
	client := &fakeCompleter{answer: func(ctx context.Context, id provider.ID, prompt string) (string, error) {
		once.Do(func() { seen = sess.Responses() })
		return "new", nil
	}}
	d := New(client, sess, provider.Builtin())

	round, err := d.DispatchAll(context.Background(), "new question")
	require.NoError(t, err)
	waitRound(t, round)

	assert.Empty(t, seen, "previous answers must be gone before the first request")
}

func TestRoundIsolation(t *testing.T) {
	sess := newSession(map[provider.ID]string{provider.Gemini: "g", provider.Grok: "x"})

	release := make(chan struct{})
	client := &fakeCompleter{answer: func(ctx context.Context, id provider.ID, prompt string) (string, error) {
		if strings.HasPrefix(prompt, "slow") {
			<-release
			return "stale " + string(id), nil
		}
		return "fresh " + string(id), nil
	}}
	recorder := &memoryRecorder{}
	d := New(client, sess, provider.Builtin(), WithRecorder(recorder))

	first, err := d.DispatchAll(context.Background(), "slow question")
	require.NoError(t, err)

	second, err := d.DispatchAll(context.Background(), "fast question")
	require.NoError(t, err)
	waitRound(t, second)

	close(release)
	firstOutcomes := waitRound(t, first)

	assert.Equal(t, map[provider.ID]string{
		provider.Gemini: "fresh gemini",
		provider.Grok:   "fresh grok",
	}, sess.Responses())

	for _, o := range firstOutcomes {
		assert.True(t, o.Stale, "first round outcome for %s should be stale", o.Provider)
	}

	require.Len(t, recorder.rounds, 2)
	assert.Len(t, recorder.outcomes[first.ID], 2)
	assert.Len(t, recorder.outcomes[second.ID], 2)
}

func TestResultsChannel(t *testing.T) {
	sess := newSession(map[provider.ID]string{provider.ChatGPT: "a", provider.Kimi: "b", provider.Grok: "c"})
	client := &fakeCompleter{answer: func(ctx context.Context, id provider.ID, prompt string) (string, error) {
		return "**" + string(id) + "**", nil
	}}
	d := New(client, sess, provider.Builtin(), WithRenderer(upperRenderer{}))

	round, err := d.DispatchAll(context.Background(), "q")
	require.NoError(t, err)

	got := map[provider.ID]Outcome{}
	for o := range round.Results() {
		got[o.Provider] = o
	}
	<-round.Done()

	require.Len(t, got, 3)
	assert.Equal(t, "**kimi**", got[provider.Kimi].Text)
	assert.Equal(t, "<p>**KIMI**</p>", got[provider.Kimi].HTML)
}

func TestDispatchTimeout(t *testing.T) {
	sess := newSession(map[provider.ID]string{provider.Claude: "c", provider.ChatGPT: "o"})
	client := &fakeCompleter{answer: func(ctx context.Context, id provider.ID, prompt string) (string, error) {
		if id == provider.Claude {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "quick", nil
	}}
	d := New(client, sess, provider.Builtin(), WithTimeout(20*time.Millisecond))

	round, err := d.DispatchAll(context.Background(), "q")
	require.NoError(t, err)
	outcomes := waitRound(t, round)

	require.Len(t, outcomes, 2)
	assert.True(t, outcomes[0].Succeeded())
	assert.ErrorIs(t, outcomes[1].Err, context.DeadlineExceeded)
	assert.Equal(t, map[provider.ID]string{provider.ChatGPT: "quick"}, sess.Responses())
}

func TestDispatchEvents(t *testing.T) {
	sess := newSession(map[provider.ID]string{provider.ChatGPT: "a", provider.Gemini: "b"})
	client := &fakeCompleter{answer: func(ctx context.Context, id provider.ID, prompt string) (string, error) {
		if id == provider.Gemini {
			return "", errors.New("connection reset")
		}
		return "ok", nil
	}}
	sink := &collectingSink{}
	d := New(client, sess, provider.Builtin(), WithEventSink(sink), WithRenderer(upperRenderer{}))

	round, err := d.DispatchAll(context.Background(), "q")
	require.NoError(t, err)
	waitRound(t, round)

	assert.Len(t, sink.ofType(EventRoundStarted), 1)
	assert.Len(t, sink.ofType(EventProviderStarted), 2)

	succeeded := sink.ofType(EventProviderSucceeded)
	require.Len(t, succeeded, 1)
	ev := succeeded[0].(*ProviderSucceededEvent)
	assert.Equal(t, provider.ChatGPT, ev.Provider)
	assert.Equal(t, "<p>OK</p>", ev.HTML)
	assert.Equal(t, round.ID, ev.GetRoundID())

	failed := sink.ofType(EventProviderFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, "connection reset", failed[0].(*ProviderFailedEvent).Message)

	complete := sink.ofType(EventRoundComplete)
	require.Len(t, complete, 1)
	assert.Equal(t, 1, complete[0].(*RoundCompleteEvent).Succeeded)
	assert.Equal(t, 1, complete[0].(*RoundCompleteEvent).Failed)
}

type countingProcessor struct {
	mu     sync.Mutex
	count  int
	closed bool
}

func (p *countingProcessor) Process(event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count++
	return nil
}

func (p *countingProcessor) Close() error {
	p.closed = true
	return nil
}

func TestChannelEventSink(t *testing.T) {
	proc := &countingProcessor{}
	sink := NewChannelEventSink(4, nil, proc)
	emitter := NewEventEmitter(sink, "round-1")

	require.NoError(t, emitter.EmitProviderStarted(provider.Grok, "grok-beta"))
	require.NoError(t, emitter.EmitOutcome(Outcome{Provider: provider.Grok, Text: "hi"}))
	require.NoError(t, emitter.EmitRoundComplete(1, 0, time.Second))
	require.NoError(t, sink.Close())

	assert.Equal(t, 3, proc.count)
	assert.True(t, proc.closed)
	assert.Error(t, sink.Send(&RoundCompleteEvent{}))
	assert.NoError(t, sink.Close(), "closing twice is harmless")
}

func TestNilSinkEmitterIsNoop(t *testing.T) {
	emitter := NewEventEmitter(nil, "r")
	assert.NoError(t, emitter.EmitRoundStarted("q", nil))
	assert.NoError(t, emitter.EmitOutcome(Outcome{Err: errors.New("x")}))
}
