package input

import (
	"time"
	"unicode/utf8"
)

// Decode splits a raw stdin chunk into KeyEvents, consuming bytes one
// event at a time. It recognizes the CSI/SS3 escape sequences a
// terminal in raw mode actually sends for arrows, Home/End, Page
// Up/Down, Delete, and F1-F12, grounded on the same byte ranges the
// teacher's HandleCSI/HandleEscape dispatch on; anything else either
// decodes as a single UTF-8 rune (KeyChar) or, for the C0 control
// range, as the named key or Ctrl-modified character it conventionally
// maps to.
func Decode(buf []byte, now time.Time) []KeyEvent {
	var events []KeyEvent
	for len(buf) > 0 {
		ev, n := decodeOne(buf, now)
		events = append(events, ev)
		if n <= 0 {
			n = 1
		}
		buf = buf[n:]
	}
	return events
}

func decodeOne(buf []byte, now time.Time) (KeyEvent, int) {
	b0 := buf[0]

	if b0 == 0x1B {
		if len(buf) == 1 {
			return namedEvent(KeyEscape, now), 1
		}
		switch buf[1] {
		case '[':
			return decodeCSI(buf, now)
		case 'O':
			return decodeSS3(buf, now)
		}
		return namedEvent(KeyEscape, now), 1
	}

	switch b0 {
	case '\r', '\n':
		return namedEvent(KeyEnter, now), 1
	case '\t':
		return namedEvent(KeyTab, now), 1
	case 0x7F, 0x08:
		return namedEvent(KeyBackspace, now), 1
	}

	if b0 >= 0x01 && b0 <= 0x1A && b0 != 0x09 && b0 != 0x0D {
		// Ctrl-A..Ctrl-Z (excluding Tab/Enter, already handled above).
		ev := KeyEvent{
			Key:       Key{Kind: KeyChar, Char: rune('a' + b0 - 1)},
			Mods:      NewModSet(ModCtrl),
			Timestamp: now,
		}
		return ev, 1
	}

	r, sz := utf8.DecodeRune(buf)
	if r == utf8.RuneError && sz <= 1 {
		return KeyEvent{Key: Key{Kind: KeyChar, Char: rune(b0)}, Text: string(rune(b0)), Timestamp: now}, 1
	}
	return KeyEvent{Key: Key{Kind: KeyChar, Char: r}, Text: string(r), Timestamp: now}, sz
}

func namedEvent(kind KeyKind, now time.Time) KeyEvent {
	return KeyEvent{Key: Key{Kind: kind}, Timestamp: now}
}

// decodeCSI handles ESC [ ... sequences. buf[0], buf[1] are ESC, '['.
func decodeCSI(buf []byte, now time.Time) (KeyEvent, int) {
	i := 2
	for i < len(buf) && buf[i] >= 0x30 && buf[i] <= 0x3F {
		i++
	}
	for i < len(buf) && buf[i] >= 0x20 && buf[i] <= 0x2F {
		i++
	}
	if i >= len(buf) {
		return namedEvent(KeyEscape, now), len(buf)
	}
	final := buf[i]
	params := string(buf[2:i])
	consumed := i + 1

	switch final {
	case 'A':
		return namedEvent(KeyUp, now), consumed
	case 'B':
		return namedEvent(KeyDown, now), consumed
	case 'C':
		return namedEvent(KeyRight, now), consumed
	case 'D':
		return namedEvent(KeyLeft, now), consumed
	case 'H':
		return namedEvent(KeyHome, now), consumed
	case 'F':
		return namedEvent(KeyEnd, now), consumed
	case '~':
		switch params {
		case "1", "7":
			return namedEvent(KeyHome, now), consumed
		case "2":
			return namedEvent(KeyInsert, now), consumed
		case "3":
			return namedEvent(KeyDelete, now), consumed
		case "4", "8":
			return namedEvent(KeyEnd, now), consumed
		case "5":
			return namedEvent(KeyPageUp, now), consumed
		case "6":
			return namedEvent(KeyPageDown, now), consumed
		case "15":
			return namedEvent(KeyF5, now), consumed
		case "17":
			return namedEvent(KeyF6, now), consumed
		case "18":
			return namedEvent(KeyF7, now), consumed
		case "19":
			return namedEvent(KeyF8, now), consumed
		case "20":
			return namedEvent(KeyF9, now), consumed
		case "21":
			return namedEvent(KeyF10, now), consumed
		case "23":
			return namedEvent(KeyF11, now), consumed
		case "24":
			return namedEvent(KeyF12, now), consumed
		case "200":
			// Bracketed paste introducer: let Processor.maybeStartPaste
			// see it verbatim via Text rather than collapsing it to a
			// named key.
			return KeyEvent{Key: Key{Kind: KeyChar}, Text: "\x1b[200~", Timestamp: now}, consumed
		case "201":
			return KeyEvent{Key: Key{Kind: KeyChar}, Text: "\x1b[201~", Timestamp: now}, consumed
		}
	}
	return namedEvent(KeyEscape, now), consumed
}

// decodeSS3 handles ESC O x sequences (application-keypad arrows/F1-F4).
func decodeSS3(buf []byte, now time.Time) (KeyEvent, int) {
	if len(buf) < 3 {
		return namedEvent(KeyEscape, now), len(buf)
	}
	switch buf[2] {
	case 'A':
		return namedEvent(KeyUp, now), 3
	case 'B':
		return namedEvent(KeyDown, now), 3
	case 'C':
		return namedEvent(KeyRight, now), 3
	case 'D':
		return namedEvent(KeyLeft, now), 3
	case 'P':
		return namedEvent(KeyF1, now), 3
	case 'Q':
		return namedEvent(KeyF2, now), 3
	case 'R':
		return namedEvent(KeyF3, now), 3
	case 'S':
		return namedEvent(KeyF4, now), 3
	}
	return namedEvent(KeyEscape, now), 3
}
