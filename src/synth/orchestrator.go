// Package synth asks one provider to summarize the answers of a round and
// splits its reply into per-provider summaries and a verdict.
package synth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/elee1766/quorum/src/dispatch"
	"github.com/elee1766/quorum/src/provider"
	"github.com/elee1766/quorum/src/session"
)

var (
	// ErrNoResponses means the current round has no answers to summarize
	ErrNoResponses = errors.New("no responses to summarize")

	// ErrNoSynthesizer means no provider in the priority list has a credential
	ErrNoSynthesizer = errors.New("no provider available to generate summary")
)

// Summary is one provider's line in a verdict
type Summary struct {
	Provider provider.ID `json:"provider"`
	Name     string      `json:"name"`
	Text     string      `json:"text"`
	// Extracted is false when Text is a cut of the raw answer because the
	// synthesizer did not write a line for this provider.
	Extracted bool `json:"extracted"`
}

// Verdict is the structured result of a synthesis
type Verdict struct {
	Synthesizer provider.ID `json:"synthesizer"`
	Model       string      `json:"model"`
	Summaries   []Summary   `json:"summaries"`
	Verdict     string      `json:"verdict"`
	// Structured is false when the reply had no verdict marker; Raw should
	// be shown instead of Verdict.
	Structured bool          `json:"structured"`
	Raw        string        `json:"raw"`
	Duration   time.Duration `json:"duration"`
}

// Orchestrator runs synthesis over a session's current answers.
type Orchestrator struct {
	client         dispatch.Completer
	session        *session.Session
	table          provider.Table
	priority       []provider.ID
	fallbackLength int
	logger         *slog.Logger
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithPriority overrides the order in which synthesizers are tried
func WithPriority(priority []provider.ID) Option {
	return func(o *Orchestrator) {
		if len(priority) > 0 {
			o.priority = priority
		}
	}
}

// WithFallbackLength sets how many runes of a raw answer replace a missing
// summary line
func WithFallbackLength(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.fallbackLength = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// New creates an orchestrator.
func New(client dispatch.Completer, sess *session.Session, table provider.Table, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client:         client,
		session:        sess,
		table:          table,
		priority:       provider.Order,
		fallbackLength: DefaultFallbackLength,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With("component", "synth")
	return o
}

// Synthesize summarizes whatever answers the session holds right now.
// Providers still in flight are left out.
func (o *Orchestrator) Synthesize(ctx context.Context, prompt string) (*Verdict, error) {
	included, responses := o.included()
	if len(included) == 0 {
		return nil, ErrNoResponses
	}

	synthID, err := o.PickSynthesizer()
	if err != nil {
		return nil, err
	}
	desc, err := o.table.Get(synthID)
	if err != nil {
		return nil, err
	}
	credential, _ := o.session.Credential(synthID)
	model := o.session.SelectedModel(synthID)

	logger := o.logger.With("synthesizer", synthID, "model", model)
	logger.Info("synthesizing", "responses", len(included))

	instruction := BuildInstruction(prompt, BuildTranscript(o.table, included, responses), o.names(included))

	start := time.Now()
	raw, err := o.client.Complete(ctx, desc, credential, model, instruction)
	if err != nil {
		logger.Warn("synthesis failed", "error", err)
		return nil, fmt.Errorf("failed to generate summary: %w", err)
	}
	if provider.IsParseFailure(raw) {
		logger.Warn("synthesis reply had unexpected shape")
		return nil, fmt.Errorf("failed to generate summary: %w", dispatch.ErrUnparsable)
	}

	verdict := o.Assemble(raw, included, responses)
	verdict.Synthesizer = synthID
	verdict.Model = model
	verdict.Duration = time.Since(start)

	logger.Info("synthesis complete", "structured", verdict.Structured, "elapsed", verdict.Duration)
	return verdict, nil
}

// Assemble splits a synthesizer reply into a Verdict for the included
// providers. responses supplies the raw answers used for fallbacks.
func (o *Orchestrator) Assemble(raw string, included []provider.ID, responses map[provider.ID]string) *Verdict {
	split := SplitVerdict(raw)

	verdict := &Verdict{
		Raw:        raw,
		Structured: split.Found,
		Summaries:  make([]Summary, 0, len(included)),
	}
	for _, id := range included {
		name := o.table.DisplayName(id)
		s := Summary{Provider: id, Name: name}
		if text, ok := ExtractSummary(split.Summaries, name); ok {
			s.Text = text
			s.Extracted = true
		} else {
			s.Text = Fallback(responses[id], o.fallbackLength)
		}
		verdict.Summaries = append(verdict.Summaries, s)
	}

	switch {
	case !split.Found:
		verdict.Verdict = raw
	case split.Verdict == "":
		verdict.Verdict = NoVerdict
	default:
		verdict.Verdict = split.Verdict
	}
	return verdict
}

// PickSynthesizer returns the first provider in priority order that has a
// credential.
func (o *Orchestrator) PickSynthesizer() (provider.ID, error) {
	for _, id := range o.priority {
		if _, ok := o.table[id]; !ok {
			continue
		}
		if cred, ok := o.session.Credential(id); ok && cred != "" {
			return id, nil
		}
	}
	return "", ErrNoSynthesizer
}

// included returns the providers with a non-empty answer, in canonical order
func (o *Orchestrator) included() ([]provider.ID, map[provider.ID]string) {
	responses := o.session.Responses()
	var ids []provider.ID
	for _, id := range provider.Order {
		if responses[id] != "" {
			ids = append(ids, id)
		}
	}
	return ids, responses
}

func (o *Orchestrator) names(ids []provider.ID) []string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = o.table.DisplayName(id)
	}
	return names
}

// BuildTranscript labels each answer with its provider's upper-cased name.
func BuildTranscript(table provider.Table, ids []provider.ID, responses map[provider.ID]string) string {
	var b strings.Builder
	for _, id := range ids {
		fmt.Fprintf(&b, "\n[%s]:\n%s\n\n", strings.ToUpper(table.DisplayName(id)), responses[id])
	}
	return b.String()
}

// BuildInstruction is the prompt sent to the synthesizer.
func BuildInstruction(prompt, transcript string, names []string) string {
	var format strings.Builder
	for _, name := range names {
		fmt.Fprintf(&format, "%s: [one sentence summary]\n", name)
	}

	return fmt.Sprintf(`User Question: %s

Here are responses from multiple AI models:
%s

Your task:
1. For EACH AI model listed above, write ONE concise sentence summarizing their answer. Format each one EXACTLY as:
%s2. After listing all summaries, write "%s" on a new line
3. Then provide a brief final answer synthesizing all responses

Be direct and concise. Each summary should be on its own line.`, prompt, transcript, format.String(), VerdictMarker)
}
