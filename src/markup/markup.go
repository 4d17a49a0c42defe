// Package markup renders the small markdown subset that models tend to
// answer with into HTML.
//
// The renderer is line oriented and keeps a single piece of state, the kind
// of list currently open. It does not try to be CommonMark.
package markup

import (
	"html"
	"regexp"
	"strconv"
	"strings"
)

var (
	headingRe   = regexp.MustCompile(`^(#{1,6})\s`)
	headingTrim = regexp.MustCompile(`^#+\s*`)

	boldStarRe      = regexp.MustCompile(`\*\*(.+?)\*\*`)
	boldUnderRe     = regexp.MustCompile(`__(.+?)__`)
	italicStarRe    = regexp.MustCompile(`\*(.+?)\*`)
	italicUnderRe   = regexp.MustCompile(`_(.+?)_`)
	unorderedItemRe = regexp.MustCompile(`^\s*[-*+]\s`)
	orderedItemRe   = regexp.MustCompile(`^\s*\d+\.\s`)
	inlineCodeRe    = regexp.MustCompile("`([^`]+)`")

	// targets may hold one level of balanced parentheses
	linkRe = regexp.MustCompile(`\[([^\]]+)\]\(((?:[^()]|\([^()]*\))+)\)`)
)

const fence = "```"

type listKind int

const (
	listNone listKind = iota
	listUnordered
	listOrdered
)

func (k listKind) tag() string {
	if k == listOrdered {
		return "ol"
	}
	return "ul"
}

// Renderer converts markdown to HTML. It holds no per-call state and is safe
// for concurrent use.
type Renderer struct {
	strict      bool
	highlighter *highlighter
}

// Option configures a Renderer
type Option func(*Renderer)

// WithStrictEscaping escapes list and paragraph text before any markup is
// applied, and drops links whose target is not http, https or mailto.
// Without it only heading text and fenced blocks are escaped.
func WithStrictEscaping() Option {
	return func(r *Renderer) { r.strict = true }
}

// WithHighlighting colors fenced blocks that name a known language using
// the given chroma style.
func WithHighlighting(style string) Option {
	return func(r *Renderer) { r.highlighter = newHighlighter(style) }
}

// New creates a renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render converts markdown to HTML.
func (r *Renderer) Render(markdown string) string {
	lines := strings.Split(markdown, "\n")
	out := make([]string, 0, len(lines))
	open := listNone

	closeList := func() {
		if open != listNone {
			out = append(out, "</"+open.tag()+">")
			open = listNone
		}
	}
	openList := func(kind listKind) {
		if open == kind {
			return
		}
		closeList()
		out = append(out, "<"+kind.tag()+">")
		open = kind
	}

	for i := 0; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], "\r")

		if m := headingRe.FindStringSubmatch(line); m != nil {
			closeList()
			level := strconv.Itoa(len(m[1]))
			text := strings.TrimSpace(headingTrim.ReplaceAllString(line, ""))
			out = append(out, "<h"+level+">"+escape(text)+"</h"+level+">")
			continue
		}

		if r.strict {
			line = escape(line)
		}
		line = emphasize(line)

		if unorderedItemRe.MatchString(line) {
			openList(listUnordered)
			text := strings.TrimSpace(unorderedItemRe.ReplaceAllString(line, ""))
			out = append(out, "<li>"+r.inline(text)+"</li>")
			continue
		}
		if orderedItemRe.MatchString(line) {
			openList(listOrdered)
			text := strings.TrimSpace(orderedItemRe.ReplaceAllString(line, ""))
			out = append(out, "<li>"+r.inline(text)+"</li>")
			continue
		}
		closeList()

		if trimmed := strings.TrimSpace(line); strings.HasPrefix(trimmed, fence) {
			lang := strings.TrimSpace(strings.TrimPrefix(trimmed, fence))
			var body []string
			i++
			for i < len(lines) && !strings.HasPrefix(strings.TrimSpace(lines[i]), fence) {
				body = append(body, strings.TrimRight(lines[i], "\r"))
				i++
			}
			out = append(out, r.codeBlock(lang, body))
			continue
		}

		line = r.inline(line)

		if strings.TrimSpace(line) == "" {
			if len(out) > 0 && out[len(out)-1] != "<br>" {
				out = append(out, "<br>")
			}
			continue
		}

		out = append(out, "<p>"+line+"</p>")
	}
	closeList()

	return strings.Join(out, "")
}

func (r *Renderer) codeBlock(lang string, body []string) string {
	if r.highlighter != nil && lang != "" {
		if highlighted, ok := r.highlighter.highlight(lang, strings.Join(body, "\n")+"\n"); ok {
			return highlighted
		}
	}

	var b strings.Builder
	b.WriteString("<pre><code>")
	for _, line := range body {
		b.WriteString(escape(line))
		b.WriteString("\n")
	}
	b.WriteString("</code></pre>")
	return b.String()
}

// inline applies code spans and links.
func (r *Renderer) inline(text string) string {
	text = inlineCodeRe.ReplaceAllString(text, "<code>$1</code>")
	return linkRe.ReplaceAllStringFunc(text, func(match string) string {
		m := linkRe.FindStringSubmatch(match)
		label, target := m[1], m[2]
		if r.strict && !safeTarget(target) {
			return label
		}
		return `<a href="` + target + `" target="_blank" rel="noopener noreferrer">` + label + `</a>`
	})
}

func emphasize(line string) string {
	line = boldStarRe.ReplaceAllString(line, "<strong>$1</strong>")
	line = boldUnderRe.ReplaceAllString(line, "<strong>$1</strong>")
	line = italicStarRe.ReplaceAllString(line, "<em>$1</em>")
	line = italicUnderRe.ReplaceAllString(line, "<em>$1</em>")
	return line
}

func safeTarget(target string) bool {
	lower := strings.ToLower(strings.TrimSpace(html.UnescapeString(target)))
	for _, scheme := range []string{"http://", "https://", "mailto:"} {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}
	return false
}

func escape(s string) string {
	return html.EscapeString(s)
}
