package tui

import (
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders node text as markdown using
// glamour, picking a light or dark style from the terminal background.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		// Fall back to passthrough rather than failing the whole CLI.
		return func(text string) (string, error) { return text, nil }
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}
