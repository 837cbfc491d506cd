package streamingui

import (
	"strings"

	"github.com/ferroterm/ferroterm/internal/grid"
	"github.com/ferroterm/ferroterm/internal/markdown"
	"github.com/ferroterm/ferroterm/internal/scrollbuf"
)

func styleAttrs(s markdown.TextStyle) grid.Attr {
	var a grid.Attr
	if s.Bold {
		a |= grid.AttrBold
	}
	if s.Italic {
		a |= grid.AttrItalic
	}
	if s.Underline {
		a |= grid.AttrUnderline
	}
	if s.Dim {
		a |= grid.AttrDim
	}
	return a
}

// tokensToLines lays out a flat markdown token stream into fixed-width
// terminal lines, hard-wrapping at width the way a live render pass must
// (word-boundary wrapping is markdown.WrapText's job, used for
// plain reflow elsewhere; here each character already carries its
// rendered style, so wrapping is strictly a line-break decision).
func tokensToLines(tokens []markdown.Token, width int) []scrollbuf.Line {
	if width < 1 {
		width = 1
	}

	var lines []scrollbuf.Line
	var cur []grid.Cell

	flush := func() {
		var raw strings.Builder
		for _, c := range cur {
			raw.WriteRune(c.Char)
		}
		lines = append(lines, scrollbuf.Line{Raw: raw.String(), Styled: append([]grid.Cell(nil), cur...)})
		cur = cur[:0]
	}

	push := func(ch rune, style markdown.TextStyle) {
		if ch == '\n' || len(cur) >= width {
			flush()
		}
		if ch != '\n' {
			cur = append(cur, grid.Cell{
				Char:       ch,
				Foreground: style.Foreground,
				Background: style.Background,
				Attrs:      styleAttrs(style),
			})
		}
	}

	for _, tok := range tokens {
		switch tok.Kind {
		case markdown.CodeBlock:
			for _, run := range tok.Runs {
				for _, ch := range run.Text {
					push(ch, run.Style)
				}
			}
		case markdown.LineBreak:
			flush()
		default:
			for _, ch := range tok.Content {
				push(ch, tok.Style)
			}
		}
	}
	if len(cur) > 0 {
		flush()
	}
	return lines
}
