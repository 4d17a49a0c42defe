package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/elee1766/quorum/src/app"
	"github.com/elee1766/quorum/src/console"
	"github.com/elee1766/quorum/src/dispatch"
)

// AskCmd sends one prompt to every credentialed provider
type AskCmd struct {
	Prompt     []string `arg:"" optional:"" help:"Prompt text; read from stdin when omitted"`
	Summarize  bool     `short:"s" help:"Summarize the answers once all providers are done"`
	Format     string   `short:"f" help:"Output format (text, html, json)" enum:"text,html,json" default:"text"`
	Raw        bool     `help:"Print answer text only, without headers"`
	Timestamps bool     `help:"Show event timestamps"`
	Progress   bool     `help:"Show a line as each provider is asked"`
}

// Run executes the ask command
func (c *AskCmd) Run(ctx context.Context, cli *CLI) error {
	prompt, err := readInput(c.Prompt, os.Stdin)
	if err != nil {
		return err
	}
	if prompt == "" {
		return fmt.Errorf("invalid usage: empty prompt")
	}

	a, logger, err := openApp(ctx, cli)
	if err != nil {
		return err
	}
	defer a.Close()

	var sink *dispatch.ChannelEventSink
	if c.Format == "text" {
		sink = dispatch.NewChannelEventSink(64, logger, console.NewProcessor(os.Stdout, a.Table, console.ProcessorConfig{
			ShowTimestamps: c.Timestamps,
			ShowProgress:   c.Progress,
			RawMode:        c.Raw,
			Width:          terminalWidth(),
		}))
	}

	var d *dispatch.Dispatcher
	if sink != nil {
		d = a.Dispatcher(sink)
	} else {
		d = a.Dispatcher(nil)
	}

	round, err := d.DispatchAll(ctx, prompt)
	if err != nil {
		if sink != nil {
			sink.Close()
		}
		return err
	}

	outcomes, err := round.Wait(ctx)
	if sink != nil {
		sink.Close()
	}
	if err != nil {
		return err
	}

	switch c.Format {
	case "json":
		if err := writeJSON(round, outcomes); err != nil {
			return err
		}
	case "html":
		writeHTML(a, outcomes)
	}

	if c.Summarize {
		return summarize(ctx, a, "", c.Format == "json", terminalWidth())
	}
	return nil
}

func writeJSON(round *dispatch.Round, outcomes []dispatch.Outcome) error {
	type result struct {
		dispatch.Outcome
		Error string `json:"error,omitempty"`
	}
	out := struct {
		RoundID string   `json:"round_id"`
		Prompt  string   `json:"prompt"`
		Results []result `json:"results"`
	}{RoundID: round.ID, Prompt: round.Prompt}
	for _, o := range outcomes {
		out.Results = append(out.Results, result{Outcome: o, Error: o.ErrorMessage()})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeHTML(a *app.App, outcomes []dispatch.Outcome) {
	for _, o := range outcomes {
		fmt.Printf("<section data-provider=\"%s\">\n<h2>%s</h2>\n", o.Provider, a.Table.DisplayName(o.Provider))
		if o.Succeeded() {
			fmt.Println(o.HTML)
		} else {
			fmt.Println(a.Renderer.Render("Error: " + o.ErrorMessage()))
		}
		fmt.Println("</section>")
	}
}
