package ptyboundary

import "unicode/utf8"

// Plain-history ANSI-stripping state machine, ported directly from
// vt.go's CapturePlainHistory/plainParse* constants: walk the raw PTY
// bytes alongside (not instead of) the VT parser, tracking just enough
// escape-sequence state to know when to flush a logical line and when
// a CSI sequence's final byte means something to plain-history capture
// specifically (cursor reposition/clear, or DECSTBM marking
// ScrollRegionUsed).
const (
	plainParseNormal = iota
	plainParseEsc
	plainParseCSI
	plainParseOSC
	plainParseOSCEsc
)

// capturePlainHistory appends ANSI-stripped output lines to
// PlainHistory, the fallback scrollback source for children that
// repaint rather than scroll.
func (b *Boundary) capturePlainHistory(data []byte) {
	if b.plainMaxLines <= 0 {
		b.plainMaxLines = 50000
	}
	for len(data) > 0 {
		r, sz := utf8.DecodeRune(data)
		if r == utf8.RuneError && sz == 1 {
			r = rune(data[0])
		}
		data = data[sz:]

		switch b.plainParseState {
		case plainParseEsc:
			switch r {
			case '[':
				b.plainParseState = plainParseCSI
			case ']':
				b.plainParseState = plainParseOSC
			default:
				b.plainParseState = plainParseNormal
			}
			continue
		case plainParseCSI:
			if r >= 0x40 && r <= 0x7E { // CSI ends with a final byte in 0x40-0x7E
				if r == 'H' || r == 'f' || r == 'J' {
					// Cursor-position/erase-display: the app is
					// repositioning or clearing, so discard whatever
					// text has accumulated rather than let a TUI
					// repaint corrupt history.
					b.plainLine = b.plainLine[:0]
				}
				if r == 'r' { // DECSTBM (CSI...r): Set Scrolling Region
					b.ScrollRegionUsed = true
				}
				b.plainParseState = plainParseNormal
			}
			continue
		case plainParseOSC:
			if r == 0x07 { // BEL
				b.plainParseState = plainParseNormal
			} else if r == 0x1B {
				b.plainParseState = plainParseOSCEsc
			}
			continue
		case plainParseOSCEsc:
			if r == '\\' {
				b.plainParseState = plainParseNormal
			} else if r == 0x1B {
				b.plainParseState = plainParseOSCEsc
			} else {
				b.plainParseState = plainParseOSC
			}
			continue
		}

		switch r {
		case 0x1B:
			b.plainParseState = plainParseEsc
		case '\r':
			// Leave any accumulated line alone; clearing eagerly on CR
			// turns CRLF output into empty history lines.
		case '\n':
			b.appendPlainLine(string(b.plainLine))
			b.plainLine = b.plainLine[:0]
		case 0x08, 0x7F:
			if len(b.plainLine) > 0 {
				b.plainLine = b.plainLine[:len(b.plainLine)-1]
			}
		case '\t':
			b.plainLine = append(b.plainLine, ' ', ' ', ' ', ' ')
		default:
			if r >= 0x20 {
				b.plainLine = append(b.plainLine, r)
			}
		}
	}
}

func (b *Boundary) appendPlainLine(line string) {
	b.PlainHistory = append(b.PlainHistory, line)
	if len(b.PlainHistory) > b.plainMaxLines {
		trim := len(b.PlainHistory) - b.plainMaxLines
		b.PlainHistory = b.PlainHistory[trim:]
	}
}

// RecentPlainLines returns up to n of the most recently captured plain
// scrollback lines, oldest first.
func (b *Boundary) RecentPlainLines(n int) []string {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	if n <= 0 || len(b.PlainHistory) == 0 {
		return nil
	}
	start := len(b.PlainHistory) - n
	if start < 0 {
		start = 0
	}
	return append([]string(nil), b.PlainHistory[start:]...)
}

// ResetPlainHistory clears the fallback plain scrollback parser state.
func (b *Boundary) ResetPlainHistory() {
	b.PlainHistory = nil
	b.plainLine = nil
	b.plainParseState = plainParseNormal
}
