package main

import (
	"fmt"
	"io"
	"os"

	"github.com/elee1766/quorum/src/markup"
	"github.com/spf13/afero"
)

// RenderCmd converts markdown to HTML with the answer renderer
type RenderCmd struct {
	File      string `arg:"" optional:"" help:"Markdown file; stdin when omitted or -"`
	Loose     bool   `help:"Only escape headings and code blocks, as answers were rendered originally"`
	Highlight bool   `help:"Highlight fenced code blocks"`
	Style     string `help:"Chroma style for highlighting" default:"monokai"`
}

// Run executes the render command
func (c *RenderCmd) Run() error {
	return c.render(afero.NewOsFs(), os.Stdin, os.Stdout)
}

func (c *RenderCmd) render(fs afero.Fs, in io.Reader, out io.Writer) error {
	input, err := c.read(fs, in)
	if err != nil {
		return err
	}

	var opts []markup.Option
	if !c.Loose {
		opts = append(opts, markup.WithStrictEscaping())
	}
	if c.Highlight {
		opts = append(opts, markup.WithHighlighting(c.Style))
	}

	_, err = fmt.Fprintln(out, markup.New(opts...).Render(input))
	return err
}

func (c *RenderCmd) read(fs afero.Fs, in io.Reader) (string, error) {
	if c.File == "" || c.File == "-" {
		data, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := afero.ReadFile(fs, c.File)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", c.File, err)
	}
	return string(data), nil
}
