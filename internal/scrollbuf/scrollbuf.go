// Package scrollbuf implements the virtual scroll buffer: a bounded
// ring of styled output lines with a scrollable window over them and
// an auto-follow-at-bottom invariant, the way the terminal's
// scrollback and the Streaming UI's response history both need.
//
// Grounded on the capture-then-trim-from-front idiom the session
// virtual terminal uses for its own scrollback buffers
// (internal/session/virtualterminal/vt.go's ScrollHistory/PlainHistory:
// append, then if over the configured max, slice off the overflow from
// the front), generalized here to carry both the raw line and its
// rendered grid cells, and to track a separately-scrollable visible
// window over the retained lines.
package scrollbuf

import "github.com/ferroterm/ferroterm/internal/grid"

// Line is one retained scrollback line: the raw text alongside its
// already-styled grid cells, so the buffer never has to re-render on
// scroll.
type Line struct {
	Raw    string
	Styled []grid.Cell
}

// Buffer retains up to LMax styled lines and exposes a V-height window
// over them. It auto-follows new lines while the window sits at the
// bottom, and stops following once the user scrolls up.
type Buffer struct {
	lines       []Line
	lMax        int
	visibleStart int
	v           int
}

// New returns an empty Buffer retaining at most lMax lines and
// exposing a v-line visible window.
func New(lMax, v int) *Buffer {
	if lMax < 1 {
		lMax = 1
	}
	if v < 1 {
		v = 1
	}
	return &Buffer{lMax: lMax, v: v}
}

// AtBottom reports whether the visible window currently includes the
// last retained line.
func (b *Buffer) AtBottom() bool {
	return b.visibleStart+b.v >= len(b.lines)
}

// AddLine appends one line, dropping the oldest retained line first if
// already at capacity. If the window was at bottom before the
// insertion, it follows to the new bottom; otherwise the scroll
// position (and whatever the user was reading) is left untouched.
func (b *Buffer) AddLine(raw string, styled []grid.Cell) {
	wasAtBottom := b.AtBottom()

	if len(b.lines) >= b.lMax {
		drop := len(b.lines) - b.lMax + 1
		b.lines = b.lines[drop:]
		b.visibleStart -= drop
		if b.visibleStart < 0 {
			b.visibleStart = 0
		}
	}
	b.lines = append(b.lines, Line{Raw: raw, Styled: styled})

	if wasAtBottom {
		b.ScrollToBottom()
	} else {
		b.clampVisibleStart()
	}
}

// ReplaceAll discards all retained lines and replaces them with lines,
// trimmed to the newest LMax entries if lines is longer. Used by
// callers that recompute their full content on every update (e.g. a
// streaming response re-rendered from its markdown source) rather than
// appending incrementally. The at-bottom/follow invariant is preserved
// exactly as AddLine preserves it.
func (b *Buffer) ReplaceAll(lines []Line) {
	wasAtBottom := b.AtBottom()

	if len(lines) > b.lMax {
		lines = lines[len(lines)-b.lMax:]
	}
	b.lines = append([]Line(nil), lines...)

	if wasAtBottom {
		b.ScrollToBottom()
	} else {
		b.clampVisibleStart()
	}
}

// Scroll shifts the visible window by delta lines (negative scrolls
// up, toward older content), clamped to [0, max(0, total-V)].
func (b *Buffer) Scroll(delta int) {
	b.visibleStart += delta
	b.clampVisibleStart()
}

// ScrollToBottom moves the visible window to show the newest lines.
func (b *Buffer) ScrollToBottom() {
	b.visibleStart = len(b.lines) - b.v
	if b.visibleStart < 0 {
		b.visibleStart = 0
	}
}

func (b *Buffer) clampVisibleStart() {
	max := len(b.lines) - b.v
	if max < 0 {
		max = 0
	}
	if b.visibleStart > max {
		b.visibleStart = max
	}
	if b.visibleStart < 0 {
		b.visibleStart = 0
	}
}

// GetVisibleLines returns the lines currently in the visible window,
// oldest first. The returned slice aliases the buffer's internal
// storage and must not be retained past the next mutating call.
func (b *Buffer) GetVisibleLines() []Line {
	end := b.visibleStart + b.v
	if end > len(b.lines) {
		end = len(b.lines)
	}
	return b.lines[b.visibleStart:end]
}

// Len reports the number of retained lines.
func (b *Buffer) Len() int { return len(b.lines) }

// VisibleStart reports the index of the first visible line.
func (b *Buffer) VisibleStart() int { return b.visibleStart }

// Resize changes the visible window height, clamping the current
// scroll position into the new bounds.
func (b *Buffer) Resize(v int) {
	if v < 1 {
		v = 1
	}
	atBottom := b.AtBottom()
	b.v = v
	if atBottom {
		b.ScrollToBottom()
	} else {
		b.clampVisibleStart()
	}
}
