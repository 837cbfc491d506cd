package streamingui

import (
	"github.com/muesli/termenv"

	"github.com/ferroterm/ferroterm/internal/scrollbuf"
)

// Renderer is the GPU renderer boundary contract: the streaming UI hands
// it the currently visible scrollback window and the typing-indicator
// state once per frame tick, and it is responsible for presenting them.
// The GPU implementation itself (shaders, glyph atlas) is out of scope
// here; any caller-supplied implementation satisfies this.
type Renderer interface {
	RenderFrame(lines []scrollbuf.Line, typingIndicatorActive bool)
}

// NopRenderer discards frames. Useful for tests and headless operation.
type NopRenderer struct{}

func (NopRenderer) RenderFrame([]scrollbuf.Line, bool) {}

const typingIndicatorText = "▋ Generating..."

// TypingIndicatorLabel returns the typing indicator rendered as a
// dim-italic ANSI string, for renderers that compose plain escape-coded
// text rather than styling cells themselves.
func TypingIndicatorLabel() string {
	return termenv.String(typingIndicatorText).Faint().Italic().String()
}
