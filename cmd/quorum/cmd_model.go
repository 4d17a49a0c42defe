package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/elee1766/quorum/src/provider"
)

// ModelCmd manages model operations
type ModelCmd struct {
	List   ModelListCmd   `cmd:"" help:"List models a provider offers"`
	Select ModelSelectCmd `cmd:"" help:"Choose the model used for a provider"`
}

// ModelListCmd lists available models
type ModelListCmd struct {
	Provider string `arg:"" help:"Provider id"`
	Format   string `help:"Output format (table, json)" enum:"table,json" default:"table"`
}

// Run executes the model list command
func (c *ModelListCmd) Run(ctx context.Context, cli *CLI) error {
	id, err := provider.ParseID(c.Provider)
	if err != nil {
		return err
	}

	a, _, err := openApp(ctx, cli)
	if err != nil {
		return err
	}
	defer a.Close()

	models, err := a.Models(ctx, id)
	if err != nil {
		return err
	}
	selected := a.Session.SelectedModel(id)

	switch c.Format {
	case "json":
		return printModelsJSON(models, selected)
	default:
		return printModelsTable(models, selected)
	}
}

// ModelSelectCmd selects a model
type ModelSelectCmd struct {
	Provider string `arg:"" help:"Provider id"`
	Model    string `arg:"" help:"Model id as shown by model list"`
}

// Run executes the model select command
func (c *ModelSelectCmd) Run(ctx context.Context, cli *CLI) error {
	id, err := provider.ParseID(c.Provider)
	if err != nil {
		return err
	}

	a, _, err := openApp(ctx, cli)
	if err != nil {
		return err
	}
	defer a.Close()

	models, err := a.Models(ctx, id)
	if err != nil {
		return err
	}
	if err := a.Session.SelectModel(ctx, id, c.Model, models); err != nil {
		return err
	}
	fmt.Printf("%s will use %s\n", a.Table.DisplayName(id), c.Model)
	return nil
}

func printModelsTable(models []provider.Model, selected string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tID\tNAME")
	for _, m := range models {
		mark := ""
		if m.ID == selected {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", mark, m.ID, m.Name)
	}
	return w.Flush()
}

func printModelsJSON(models []provider.Model, selected string) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Selected string           `json:"selected"`
		Models   []provider.Model `json:"models"`
	}{selected, models})
}
