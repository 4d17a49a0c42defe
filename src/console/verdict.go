package console

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/elee1766/quorum/src/provider"
	"github.com/elee1766/quorum/src/synth"
	"github.com/elee1766/quorum/src/theme"
)

// PrintVerdict writes a synthesized verdict: one summary line per provider,
// then the verdict itself. An unstructured reply is printed as is.
func PrintVerdict(out io.Writer, table provider.Table, v *synth.Verdict, width int) {
	t := theme.CurrentTheme
	wrap := func(s string) string {
		if width <= 0 {
			return s
		}
		return ansi.Wordwrap(s, width, "")
	}

	fmt.Fprintf(out, "%s\n\n", t.Muted().Render(fmt.Sprintf("Summarized by %s (%s, %v)", table.DisplayName(v.Synthesizer), v.Model, v.Duration.Round(10*time.Millisecond))))

	if !v.Structured {
		fmt.Fprintln(out, wrap(v.Raw))
		return
	}

	for _, s := range v.Summaries {
		line := s.Text
		if !s.Extracted {
			line = t.Muted().Render(line)
		}
		fmt.Fprintf(out, "%s %s\n", t.Header(s.Provider).Render(s.Name+":"), wrap(line))
	}

	fmt.Fprintf(out, "\n%s\n", t.Verdict().Render(wrap(synth.VerdictMarker+" "+v.Verdict)))
}
