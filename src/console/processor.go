package console

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/elee1766/quorum/src/dispatch"
	"github.com/elee1766/quorum/src/provider"
	"github.com/elee1766/quorum/src/theme"
)

// ProcessorConfig configures the console event processor
type ProcessorConfig struct {
	ShowTimestamps bool
	ShowProgress   bool // print a line as each provider starts
	RawMode        bool // only answer text, no headers
	Width          int  // wrap answers to this many columns, 0 disables
	MaxErrorLength int
}

// Processor prints round events as they arrive
type Processor struct {
	config ProcessorConfig
	table  provider.Table
	theme  theme.Theme
	out    io.Writer
	mu     sync.Mutex
}

var _ dispatch.EventProcessor = (*Processor)(nil)

// NewProcessor creates a console processor writing to out
func NewProcessor(out io.Writer, table provider.Table, config ProcessorConfig) *Processor {
	if config.MaxErrorLength == 0 {
		config.MaxErrorLength = 200
	}

	return &Processor{
		config: config,
		table:  table,
		theme:  theme.CurrentTheme,
		out:    out,
	}
}

// Process handles a single event
func (p *Processor) Process(event dispatch.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.config.RawMode {
		if e, ok := event.(*dispatch.ProviderSucceededEvent); ok {
			fmt.Fprintln(p.out, e.Text)
		}
		return nil
	}

	switch e := event.(type) {
	case *dispatch.RoundStartedEvent:
		p.processRoundStarted(e)

	case *dispatch.ProviderStartedEvent:
		if p.config.ShowProgress {
			fmt.Fprintf(p.out, "%s%s %s\n", p.stamp(e), p.theme.Muted().Render("asking"), p.name(e.Provider))
		}

	case *dispatch.ProviderSucceededEvent:
		p.processSucceeded(e)

	case *dispatch.ProviderFailedEvent:
		p.processFailed(e)

	case *dispatch.RoundCompleteEvent:
		fmt.Fprintf(p.out, "\n%s\n", p.theme.Muted().Render(fmt.Sprintf("%d answered, %d failed in %v", e.Succeeded, e.Failed, e.Duration.Round(10*time.Millisecond))))
	}

	return nil
}

// Close cleans up resources
func (p *Processor) Close() error {
	return nil
}

func (p *Processor) processRoundStarted(e *dispatch.RoundStartedEvent) {
	names := make([]string, len(e.Providers))
	for i, id := range e.Providers {
		names[i] = p.table.DisplayName(id)
	}
	fmt.Fprintf(p.out, "%s%s\n", p.stamp(e), p.theme.Muted().Render("Asking "+strings.Join(names, ", ")))
}

func (p *Processor) processSucceeded(e *dispatch.ProviderSucceededEvent) {
	fmt.Fprintf(p.out, "\n%s%s %s\n", p.stamp(e), p.theme.Header(e.Provider).Render(p.name(e.Provider)), p.theme.Muted().Render(p.detail(e.Model, e.Duration)))
	fmt.Fprintln(p.out, p.wrap(e.Text))
}

func (p *Processor) processFailed(e *dispatch.ProviderFailedEvent) {
	msg := e.Message
	if msg == "" && e.Error != nil {
		msg = e.Error.Error()
	}
	msg = strings.ReplaceAll(msg, "\n", " ")
	if len(msg) > p.config.MaxErrorLength {
		msg = ansi.Truncate(msg, p.config.MaxErrorLength, "...")
	}

	fmt.Fprintf(p.out, "\n%s%s %s\n", p.stamp(e), p.theme.Header(e.Provider).Render(p.name(e.Provider)), p.theme.Muted().Render(p.detail(e.Model, e.Duration)))
	fmt.Fprintln(p.out, p.theme.Failure().Render("Error: "+msg))
}

func (p *Processor) name(id provider.ID) string {
	return p.table.DisplayName(id)
}

func (p *Processor) detail(model string, d time.Duration) string {
	return fmt.Sprintf("(%s, %v)", model, d.Round(10*time.Millisecond))
}

func (p *Processor) stamp(e dispatch.Event) string {
	if !p.config.ShowTimestamps {
		return ""
	}
	return p.theme.Muted().Render(e.GetTimestamp().Format("15:04:05")) + " "
}

func (p *Processor) wrap(text string) string {
	if p.config.Width <= 0 {
		return text
	}
	return ansi.Wordwrap(text, p.config.Width, "")
}

// JSONProcessor writes every event as one JSON line
type JSONProcessor struct {
	enc *json.Encoder
	mu  sync.Mutex
}

var _ dispatch.EventProcessor = (*JSONProcessor)(nil)

// NewJSONProcessor creates a processor writing JSON lines to out
func NewJSONProcessor(out io.Writer) *JSONProcessor {
	return &JSONProcessor{enc: json.NewEncoder(out)}
}

// Process handles a single event
func (p *JSONProcessor) Process(event dispatch.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enc.Encode(event)
}

// Close cleans up resources
func (p *JSONProcessor) Close() error {
	return nil
}
