// Package dispatch fans a prompt out to every credentialed provider and
// records each answer independently.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/elee1766/quorum/src/provider"
	"github.com/elee1766/quorum/src/session"
	"golang.org/x/sync/errgroup"
)

// ConciseInstruction is appended to every prompt sent to a provider
const ConciseInstruction = "\n\nBe concise, straight to the point, answer directly no fancy words."

var (
	// ErrNoCredentials means there is nobody to ask
	ErrNoCredentials = errors.New("no provider has a credential configured")

	// ErrUnparsable marks an answer whose payload had an unexpected shape
	ErrUnparsable = errors.New(provider.ParseFailure)
)

// Completer sends one prompt to one provider
type Completer interface {
	Complete(ctx context.Context, d provider.Descriptor, credential, model, prompt string) (string, error)
}

// Renderer turns an answer into display markup
type Renderer interface {
	Render(markdown string) string
}

// RoundRecorder persists rounds and their outcomes
type RoundRecorder interface {
	RecordRound(ctx context.Context, round session.Round) error
	RecordOutcome(ctx context.Context, roundID string, outcome Outcome) error
}

// Dispatcher issues one request per credentialed provider.
type Dispatcher struct {
	client   Completer
	session  *session.Session
	table    provider.Table
	sink     EventSink
	renderer Renderer
	recorder RoundRecorder
	timeout  time.Duration
	logger   *slog.Logger
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithEventSink sends round events to sink
func WithEventSink(sink EventSink) Option {
	return func(d *Dispatcher) { d.sink = sink }
}

// WithRenderer renders every successful answer
func WithRenderer(r Renderer) Option {
	return func(d *Dispatcher) { d.renderer = r }
}

// WithRecorder persists rounds
func WithRecorder(r RoundRecorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

// WithTimeout bounds every provider call. Zero leaves it to the client.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.timeout = timeout }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// New creates a dispatcher.
func New(client Completer, sess *session.Session, table provider.Table, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		client:  client,
		session: sess,
		table:   table,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "dispatcher")
	return d
}

// DispatchAll starts a new round for prompt over every provider that has a
// credential right now. The previous round's answers are cleared before any
// request is sent. It returns without waiting for the providers.
func (d *Dispatcher) DispatchAll(ctx context.Context, prompt string) (*Round, error) {
	ids := d.session.Credentialed()
	if len(ids) == 0 {
		return nil, ErrNoCredentials
	}

	// credentials and models are captured now; later changes do not
	// affect this round
	type target struct {
		desc       provider.Descriptor
		credential string
		model      string
	}
	targets := make([]target, 0, len(ids))
	for _, id := range ids {
		desc, err := d.table.Get(id)
		if err != nil {
			return nil, err
		}
		cred, _ := d.session.Credential(id)
		targets = append(targets, target{desc: desc, credential: cred, model: d.session.SelectedModel(id)})
	}

	info := d.session.BeginRound(prompt, ids)
	round := newRound(info)
	emitter := NewEventEmitter(d.sink, info.ID)
	logger := d.logger.With("round_id", info.ID)

	if d.recorder != nil {
		if err := d.recorder.RecordRound(ctx, info); err != nil {
			logger.Warn("failed to record round", "error", err)
		}
	}
	if err := emitter.EmitRoundStarted(prompt, ids); err != nil {
		logger.Debug("failed to emit event", "error", err)
	}
	logger.Info("dispatching prompt", "providers", len(ids))

	fullPrompt := prompt + ConciseInstruction
	start := time.Now()

	// errors are never returned from the group, so one provider failing
	// never cancels its siblings
	var eg errgroup.Group
	for _, t := range targets {
		eg.Go(func() error {
			if err := emitter.EmitProviderStarted(t.desc.ID, t.model); err != nil {
				logger.Debug("failed to emit event", "error", err)
			}

			out := d.invokeSafe(ctx, t.desc, t.credential, t.model, fullPrompt)
			d.settle(ctx, info, &out, logger)

			if err := emitter.EmitOutcome(out); err != nil {
				logger.Debug("failed to emit event", "error", err)
			}
			round.deliver(out)
			return nil
		})
	}

	go func() {
		_ = eg.Wait()
		var succeeded, failed int
		for _, o := range round.Outcomes() {
			if o.Succeeded() {
				succeeded++
			} else {
				failed++
			}
		}
		if err := emitter.EmitRoundComplete(succeeded, failed, time.Since(start)); err != nil {
			logger.Debug("failed to emit event", "error", err)
		}
		logger.Info("round complete", "succeeded", succeeded, "failed", failed, "elapsed", time.Since(start))
		round.finish()
	}()

	return round, nil
}

// settle writes the outcome to the session and the recorder.
func (d *Dispatcher) settle(ctx context.Context, info session.Round, out *Outcome, logger *slog.Logger) {
	if out.Err == nil && d.renderer != nil {
		out.HTML = d.renderer.Render(out.Text)
	}

	var accepted bool
	if out.Err != nil {
		accepted = d.session.Fail(info.Epoch, out.Provider, out.Err.Error())
		logger.Warn("provider failed", "provider", out.Provider, "error", out.Err, "elapsed", out.Duration)
	} else {
		accepted = d.session.Complete(info.Epoch, out.Provider, out.Text)
		logger.Debug("provider answered", "provider", out.Provider, "bytes", len(out.Text), "elapsed", out.Duration)
	}
	out.Stale = !accepted

	if d.recorder != nil {
		if err := d.recorder.RecordOutcome(ctx, info.ID, *out); err != nil {
			logger.Warn("failed to record outcome", "provider", out.Provider, "error", err)
		}
	}
}

func (d *Dispatcher) call(ctx context.Context, desc provider.Descriptor, credential, model, prompt string) Outcome {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := d.client.Complete(ctx, desc, credential, model, prompt)
	out := Outcome{Provider: desc.ID, Model: model, Duration: time.Since(start)}
	switch {
	case err != nil:
		out.Err = err
	case provider.IsParseFailure(text):
		out.Err = ErrUnparsable
	default:
		out.Text = text
	}
	return out
}

func (d *Dispatcher) invokeSafe(ctx context.Context, desc provider.Descriptor, credential, model, prompt string) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("provider call panicked", "provider", desc.ID, "panic", r)
			out = Outcome{Provider: desc.ID, Model: model, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return d.call(ctx, desc, credential, model, prompt)
}
