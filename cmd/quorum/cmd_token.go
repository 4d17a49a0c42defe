package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/elee1766/quorum/src/provider"
)

// TokenCmd manages provider credentials
type TokenCmd struct {
	Set    TokenSetCmd    `cmd:"" help:"Store an API key for a provider"`
	Delete TokenDeleteCmd `cmd:"" help:"Remove a stored API key"`
	List   TokenListCmd   `cmd:"" help:"List configured API keys"`
}

// TokenSetCmd stores a credential
type TokenSetCmd struct {
	Provider string `arg:"" help:"Provider id (chatgpt, gemini, claude, kimi, grok, deepseek)"`
	Key      string `arg:"" optional:"" help:"API key; prompted for when omitted"`
}

// Run executes the token set command
func (c *TokenSetCmd) Run(ctx context.Context, cli *CLI) error {
	id, err := provider.ParseID(c.Provider)
	if err != nil {
		return err
	}

	key := c.Key
	if key == "" {
		if key, err = readSecret(fmt.Sprintf("API key for %s: ", id), os.Stdin); err != nil {
			return err
		}
	}

	a, _, err := openApp(ctx, cli)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.SetCredential(ctx, id, key); err != nil {
		return err
	}
	fmt.Printf("Saved API key for %s\n", a.Table.DisplayName(id))
	return nil
}

// TokenDeleteCmd removes a credential
type TokenDeleteCmd struct {
	Provider string `arg:"" help:"Provider id"`
}

// Run executes the token delete command
func (c *TokenDeleteCmd) Run(ctx context.Context, cli *CLI) error {
	id, err := provider.ParseID(c.Provider)
	if err != nil {
		return err
	}

	a, _, err := openApp(ctx, cli)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.DeleteCredential(ctx, id); err != nil {
		return fmt.Errorf("failed to delete %s key: %w", id, err)
	}
	fmt.Printf("Deleted API key for %s\n", a.Table.DisplayName(id))
	return nil
}

// TokenListCmd lists credentials with masked values
type TokenListCmd struct{}

// Run executes the token list command
func (c *TokenListCmd) Run(ctx context.Context, cli *CLI) error {
	a, _, err := openApp(ctx, cli)
	if err != nil {
		return err
	}
	defer a.Close()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tKEY\tSOURCE\tMODEL")
	for _, id := range provider.Order {
		key, ok := a.Session.Credential(id)
		if !ok {
			fmt.Fprintf(w, "%s\t-\t-\t%s\n", id, a.Session.SelectedModel(id))
			continue
		}
		source := "stored"
		if a.Session.IsSeeded(id) {
			source = "env:" + a.Config.Providers[string(id)].APIKeyEnv
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", id, maskAPIKey(key), source, a.Session.SelectedModel(id))
	}
	return w.Flush()
}
