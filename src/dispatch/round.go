package dispatch

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/elee1766/quorum/src/provider"
	"github.com/elee1766/quorum/src/session"
)

// Outcome is the result of one provider call within a round
type Outcome struct {
	Provider provider.ID   `json:"provider"`
	Model    string        `json:"model"`
	Text     string        `json:"text,omitempty"`
	HTML     string        `json:"html,omitempty"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration"`
	// Stale is set when the session had already moved on and discarded
	// the result.
	Stale bool `json:"stale,omitempty"`
}

// Succeeded reports whether the call produced a usable answer
func (o Outcome) Succeeded() bool {
	return o.Err == nil
}

// ErrorMessage returns the failure text, or "" on success
func (o Outcome) ErrorMessage() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// Round is a running fan-out. Outcomes arrive on Results in completion
// order; the channel is closed once every provider has finished.
type Round struct {
	session.Round

	results chan Outcome
	done    chan struct{}

	mu       sync.Mutex
	outcomes []Outcome
}

func newRound(info session.Round) *Round {
	return &Round{
		Round: info,
		// buffered so provider goroutines never wait on a reader
		results: make(chan Outcome, len(info.Providers)),
		done:    make(chan struct{}),
	}
}

// Results streams outcomes as providers finish
func (r *Round) Results() <-chan Outcome {
	return r.results
}

// Done is closed after the last outcome has been delivered
func (r *Round) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until every provider has finished or ctx is done, and returns
// the outcomes collected so far in canonical provider order.
func (r *Round) Wait(ctx context.Context) ([]Outcome, error) {
	select {
	case <-r.done:
		return r.Outcomes(), nil
	case <-ctx.Done():
		return r.Outcomes(), ctx.Err()
	}
}

// Outcomes returns the outcomes recorded so far in canonical provider order
func (r *Round) Outcomes() []Outcome {
	r.mu.Lock()
	out := slices.Clone(r.outcomes)
	r.mu.Unlock()

	slices.SortFunc(out, func(a, b Outcome) int {
		return slices.Index(provider.Order, a.Provider) - slices.Index(provider.Order, b.Provider)
	})
	return out
}

func (r *Round) deliver(o Outcome) {
	r.mu.Lock()
	r.outcomes = append(r.outcomes, o)
	r.mu.Unlock()
	r.results <- o
}

func (r *Round) finish() {
	close(r.results)
	close(r.done)
}
