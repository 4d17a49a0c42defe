package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
)

// CLI represents the main CLI structure
type CLI struct {
	Config   string `help:"Path to a config file, loaded after the user config" type:"path"`
	LogLevel string `help:"Log level (debug, info, warn, error)"`
	DBPath   string `name:"db" help:"Database path (defaults to config)"`

	Ask       AskCmd       `cmd:"" help:"Send a prompt to every provider with a credential"`
	Summarize SummarizeCmd `cmd:"" help:"Summarize the latest round into one verdict"`
	Token     TokenCmd     `cmd:"" help:"Manage provider API keys"`
	Model     ModelCmd     `cmd:"" help:"List and select provider models"`
	Render    RenderCmd    `cmd:"" help:"Render markdown to HTML"`
	History   HistoryCmd   `cmd:"" help:"List past rounds"`
	Conf      ConfigCmd    `cmd:"" name:"config" help:"Inspect configuration"`
	Migrate   MigrateCmd   `cmd:"" help:"Database migrations"`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("quorum"),
		kong.Description("Ask several LLMs at once and summarize what they say"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	kctx.BindTo(ctx, (*context.Context)(nil))

	if err := kctx.Run(&cli); err != nil {
		stop()
		FatalError(createCLILogger(cli.LogLevel), err)
	}
}
