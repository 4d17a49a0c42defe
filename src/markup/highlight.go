package markup

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// DefaultStyle is used when no chroma style is configured
const DefaultStyle = "monokai"

type highlighter struct {
	style     *chroma.Style
	formatter *chromahtml.Formatter
}

func newHighlighter(style string) *highlighter {
	if style == "" {
		style = DefaultStyle
	}
	return &highlighter{
		// unknown names fall back to chroma's default style
		style:     styles.Get(style),
		formatter: chromahtml.New(chromahtml.WithClasses(false)),
	}
}

// highlight returns false when lang is unknown or formatting fails, so the
// caller can emit a plain escaped block instead.
func (h *highlighter) highlight(lang, code string) (string, bool) {
	lexer := lexers.Get(lang)
	if lexer == nil {
		return "", false
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", false
	}

	var b strings.Builder
	if err := h.formatter.Format(&b, h.style, iterator); err != nil {
		return "", false
	}
	return b.String(), true
}
