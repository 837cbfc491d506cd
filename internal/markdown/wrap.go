package markdown

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// WrapText wraps text to fit within width columns, breaking at word
// boundaries the way a terminal paragraph renderer needs to: never
// mid-word unless a single word alone exceeds width. Width accounting
// is rune-width aware (wide CJK runes count as two columns), which
// matters for the same reason the original renderer wrapped with a
// Unicode-aware text wrapper rather than counting bytes or runes.
func WrapText(text string, width int) []string {
	if text == "" {
		return nil
	}
	if width <= 0 {
		return []string{text}
	}
	wrapped := ansi.Wordwrap(text, width, "")
	return strings.Split(wrapped, "\n")
}
