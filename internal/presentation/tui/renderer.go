package tui

import (
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

const defaultWidth = 80

// Renderer turns Markdown into terminal output.
type Renderer func(markdown string) (string, error)

// NewRenderer returns a glamour renderer wrapped to the terminal width.
// When stdout is not a terminal it returns the Markdown untouched.
func NewRenderer() Renderer {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return Plain
	}
	width := defaultWidth
	if w, _, err := term.GetSize(fd); err == nil && w > 0 {
		width = w
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-4),
	)
	if err != nil {
		return Plain
	}
	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// Plain renders Markdown as-is.
func Plain(markdown string) (string, error) {
	return strings.TrimSpace(markdown) + "\n", nil
}
