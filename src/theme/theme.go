package theme

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/elee1766/quorum/src/provider"
)

// Theme represents a color theme
type Theme struct {
	Primary   lipgloss.Color
	Text      lipgloss.Color
	TextMuted lipgloss.Color
	Success   lipgloss.Color
	Error     lipgloss.Color

	// Providers gives each model family its own header color
	Providers map[provider.ID]lipgloss.Color
}

// CurrentTheme is the theme used by the console output
var CurrentTheme = Theme{
	Primary:   lipgloss.Color("#00ff00"),
	Text:      lipgloss.Color("#ffffff"),
	TextMuted: lipgloss.Color("#808080"),
	Success:   lipgloss.Color("#10a37f"),
	Error:     lipgloss.Color("#ff5f5f"),
	Providers: map[provider.ID]lipgloss.Color{
		provider.ChatGPT:  lipgloss.Color("#10a37f"),
		provider.Gemini:   lipgloss.Color("#4285f4"),
		provider.Claude:   lipgloss.Color("#d97757"),
		provider.Kimi:     lipgloss.Color("#8b5cf6"),
		provider.Grok:     lipgloss.Color("#e5e5e5"),
		provider.DeepSeek: lipgloss.Color("#4d6bfe"),
	},
}

// SetTheme sets the current theme
func SetTheme(t Theme) {
	CurrentTheme = t
}

// ProviderColor returns the provider's color, or Primary when it has none
func (t Theme) ProviderColor(id provider.ID) lipgloss.Color {
	if c, ok := t.Providers[id]; ok {
		return c
	}
	return t.Primary
}

// Header styles a provider's section title
func (t Theme) Header(id provider.ID) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(t.ProviderColor(id))
}

// Muted styles secondary text such as timings
func (t Theme) Muted() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.TextMuted)
}

// Failure styles error lines
func (t Theme) Failure() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error)
}

// Verdict styles the synthesized verdict
func (t Theme) Verdict() lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(t.Text).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(0, 1)
}
