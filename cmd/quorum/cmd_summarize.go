package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/elee1766/quorum/src/app"
	"github.com/elee1766/quorum/src/console"
	"github.com/elee1766/quorum/src/synth"
)

// SummarizeCmd summarizes the latest stored round
type SummarizeCmd struct {
	Prompt string `help:"Question to put to the synthesizer instead of the round's prompt"`
	JSON   bool   `help:"Print the verdict as JSON"`
}

// Run executes the summarize command
func (c *SummarizeCmd) Run(ctx context.Context, cli *CLI) error {
	a, _, err := openApp(ctx, cli)
	if err != nil {
		return err
	}
	defer a.Close()

	ok, err := a.RestoreLatest(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return synth.ErrNoResponses
	}

	return summarize(ctx, a, c.Prompt, c.JSON, terminalWidth())
}

// summarize runs synthesis over the session's current answers and prints it
func summarize(ctx context.Context, a *app.App, prompt string, asJSON bool, width int) error {
	if prompt == "" {
		prompt = a.Session.Prompt()
	}

	verdict, err := a.Orchestrator().Synthesize(ctx, prompt)
	if err != nil {
		if errors.Is(err, synth.ErrNoResponses) {
			return fmt.Errorf("%w, run `quorum ask` first", err)
		}
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(verdict)
	}

	console.PrintVerdict(os.Stdout, a.Table, verdict, width)
	return nil
}
