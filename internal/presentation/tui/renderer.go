package tui

import (
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// NewRenderer returns a function that renders question markdown for the
// terminal. On a real TTY it uses glamour with automatic light/dark
// detection; when output is piped, text passes through untouched so
// transcripts stay clean.
func NewRenderer() func(string) (string, error) {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return PlainRenderer()
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
	)
	if err != nil {
		return PlainRenderer()
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// PlainRenderer passes markdown through unchanged.
func PlainRenderer() func(string) (string, error) {
	return func(markdown string) (string, error) {
		return markdown + "\n", nil
	}
}
