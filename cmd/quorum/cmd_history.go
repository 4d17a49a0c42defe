package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/x/ansi"
	"github.com/elee1766/quorum/src/storage"
)

// HistoryCmd lists past rounds
type HistoryCmd struct {
	Limit int `short:"n" help:"How many rounds to show" default:"20"`
}

// Run executes the history command
func (c *HistoryCmd) Run(ctx context.Context, cli *CLI) error {
	a, _, err := openApp(ctx, cli)
	if err != nil {
		return err
	}
	defer a.Close()

	rounds, err := storage.ListRounds(ctx, a.DB.DB(), c.Limit)
	if err != nil {
		return fmt.Errorf("failed to list rounds: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tID\tPROVIDERS\tPROMPT")
	for _, r := range rounds {
		prompt := strings.ReplaceAll(r.Prompt, "\n", " ")
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.ID[:min(8, len(r.ID))],
			strings.Join(r.Providers, ","),
			ansi.Truncate(prompt, 60, "..."),
		)
	}
	return w.Flush()
}
