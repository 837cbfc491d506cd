// Package vtparse implements the VT/ANSI byte-stream state machine: a
// pure function of prior parser state and input bytes that produces a
// slice of grid.Actions (spec §4.1). It never touches the Grid
// directly and has no side effects.
package vtparse

import (
	"unicode/utf8"

	"github.com/ferroterm/ferroterm/internal/grid"
)

type state uint8

const (
	stateNormal state = iota
	stateEscape
	stateCSI
	stateOSC
	stateOSCEscape
)

// Parser is a byte-stream-to-Action state machine. The zero value is not
// ready for use; call New.
type Parser struct {
	st state

	params   []uint32
	curParam uint32
	haveCur  bool

	utf8Buf [4]byte
	utf8Len int
	utf8Exp int
}

// New creates a parser starting in the Normal state.
func New() *Parser {
	return &Parser{}
}

// Feed consumes bytes and returns the Actions they produce. It is a pure
// function of the parser's prior state and the bytes given: calling Feed
// repeatedly with successive chunks of a stream is equivalent to calling
// it once with the concatenation, except that a malformed sequence only
// ever drops the one in-progress sequence — actions already emitted
// remain valid (spec §4.1 failure model).
func (p *Parser) Feed(data []byte) []grid.Action {
	var actions []grid.Action
	for _, b := range data {
		if a, ok := p.feedByte(b); ok {
			actions = append(actions, a...)
		}
	}
	return actions
}

func (p *Parser) feedByte(b byte) ([]grid.Action, bool) {
	switch p.st {
	case stateNormal:
		return p.normal(b)
	case stateEscape:
		return p.escape(b)
	case stateCSI:
		return p.csi(b)
	case stateOSC:
		return p.osc(b)
	case stateOSCEscape:
		return p.oscEscape(b)
	}
	return nil, false
}

func (p *Parser) reset() {
	p.st = stateNormal
	p.params = p.params[:0]
	p.curParam = 0
	p.haveCur = false
}

func (p *Parser) normal(b byte) ([]grid.Action, bool) {
	switch {
	case b == 0x1B:
		p.st = stateEscape
		return nil, false
	case b == 0x08:
		return one(grid.Action{Kind: grid.ActionBackspace}), true
	case b == 0x09:
		return one(grid.Action{Kind: grid.ActionTab}), true
	case b == 0x0A:
		return one(grid.Action{Kind: grid.ActionNewline}), true
	case b == 0x0D:
		return one(grid.Action{Kind: grid.ActionCarriageReturn}), true
	case b == 0x07:
		return one(grid.Action{Kind: grid.ActionBell}), true
	case b >= 0x20 && b <= 0x7E:
		return one(grid.Action{Kind: grid.ActionPrintChar, Char: rune(b)}), true
	case b >= 0x80:
		return p.feedUTF8(b)
	default:
		return nil, false // other control characters ignored
	}
}

// feedUTF8 accumulates continuation bytes of a multi-byte UTF-8 sequence
// across Feed calls, emitting PrintChar per decoded scalar (spec §4.1
// allows implementations to decode to code points).
func (p *Parser) feedUTF8(b byte) ([]grid.Action, bool) {
	if p.utf8Len == 0 {
		switch {
		case b&0xE0 == 0xC0:
			p.utf8Exp = 2
		case b&0xF0 == 0xE0:
			p.utf8Exp = 3
		case b&0xF8 == 0xF0:
			p.utf8Exp = 4
		default:
			// invalid leading byte; treat as a single opaque rune
			return one(grid.Action{Kind: grid.ActionPrintChar, Char: rune(b)}), true
		}
		p.utf8Buf[0] = b
		p.utf8Len = 1
		return nil, false
	}

	p.utf8Buf[p.utf8Len] = b
	p.utf8Len++
	if p.utf8Len < p.utf8Exp {
		return nil, false
	}

	r, size := utf8.DecodeRune(p.utf8Buf[:p.utf8Len])
	p.utf8Len = 0
	p.utf8Exp = 0
	if size == 0 {
		r = utf8.RuneError
	}
	return one(grid.Action{Kind: grid.ActionPrintChar, Char: r}), true
}

func (p *Parser) escape(b byte) ([]grid.Action, bool) {
	switch b {
	case '[':
		p.st = stateCSI
		p.params = p.params[:0]
		p.curParam = 0
		p.haveCur = false
		return nil, false
	case ']':
		p.st = stateOSC
		return nil, false
	case 'M':
		p.reset()
		return one(grid.Action{Kind: grid.ActionScrollUp, N: 1}), true
	case 'D':
		p.reset()
		return one(grid.Action{Kind: grid.ActionScrollDown, N: 1}), true
	case '=':
		p.reset()
		return one(grid.Action{Kind: grid.ActionSetApplicationMode, On: true}), true
	case '>':
		p.reset()
		return one(grid.Action{Kind: grid.ActionSetApplicationMode, On: false}), true
	default:
		p.reset()
		return nil, false // unknown escape: reset + fail-soft
	}
}

func (p *Parser) osc(b byte) ([]grid.Action, bool) {
	switch b {
	case 0x07:
		p.reset()
	case 0x1B:
		p.st = stateOSCEscape
	}
	return nil, false
}

func (p *Parser) oscEscape(b byte) ([]grid.Action, bool) {
	if b == '\\' {
		p.reset()
	} else {
		p.st = stateOSC
	}
	return nil, false
}

func (p *Parser) pushParam() {
	if p.haveCur {
		p.params = append(p.params, p.curParam)
	}
	p.curParam = 0
	p.haveCur = false
}

func (p *Parser) param(i int, def uint32) uint32 {
	if i < len(p.params) {
		return p.params[i]
	}
	return def
}

func (p *Parser) csi(b byte) ([]grid.Action, bool) {
	switch {
	case b >= '0' && b <= '9':
		p.curParam = p.curParam*10 + uint32(b-'0')
		p.haveCur = true
		return nil, false
	case b == ';':
		p.pushParam()
		return nil, false
	case b == 'A':
		p.pushParam()
		n := firstOrOne(p.params)
		p.reset()
		return one(grid.Action{Kind: grid.ActionMoveCursorUp, N: n}), true
	case b == 'B':
		p.pushParam()
		n := firstOrOne(p.params)
		p.reset()
		return one(grid.Action{Kind: grid.ActionMoveCursorDown, N: n}), true
	case b == 'C':
		p.pushParam()
		n := firstOrOne(p.params)
		p.reset()
		return one(grid.Action{Kind: grid.ActionMoveCursorRight, N: n}), true
	case b == 'D':
		p.pushParam()
		n := firstOrOne(p.params)
		p.reset()
		return one(grid.Action{Kind: grid.ActionMoveCursorLeft, N: n}), true
	case b == 'H' || b == 'f':
		p.pushParam()
		row := subOne(p.param(0, 1))
		col := subOne(p.param(1, 1))
		p.reset()
		return one(grid.Action{Kind: grid.ActionMoveCursor, Row: row, Col: col}), true
	case b == 'G':
		p.pushParam()
		col := subOne(p.param(0, 1))
		p.reset()
		return one(grid.Action{Kind: grid.ActionMoveCursorToColumn, Col: col}), true
	case b == 'J':
		p.pushParam()
		mode := p.param(0, 0)
		p.reset()
		switch mode {
		case 0:
			return one(grid.Action{Kind: grid.ActionClearScreenFromCursor}), true
		case 1:
			return one(grid.Action{Kind: grid.ActionClearScreenToCursor}), true
		case 2:
			return one(grid.Action{Kind: grid.ActionClearScreen}), true
		}
		return nil, false
	case b == 'K':
		p.pushParam()
		mode := p.param(0, 0)
		p.reset()
		switch mode {
		case 0:
			return one(grid.Action{Kind: grid.ActionClearLineFromCursor}), true
		case 1:
			return one(grid.Action{Kind: grid.ActionClearLineToCursor}), true
		case 2:
			return one(grid.Action{Kind: grid.ActionClearLine}), true
		}
		return nil, false
	case b == 'P':
		p.pushParam()
		n := firstOrOne(p.params)
		p.reset()
		return one(grid.Action{Kind: grid.ActionDeleteChar, N: n}), true
	case b == '@':
		p.pushParam()
		n := firstOrOne(p.params)
		p.reset()
		return one(grid.Action{Kind: grid.ActionInsertChar, N: n}), true
	case b == 'm':
		p.pushParam()
		actions := parseSGR(p.params)
		p.reset()
		return actions, len(actions) > 0
	case b == 'h' || b == 'l':
		p.pushParam()
		mode := p.param(0, 0)
		p.reset()
		if mode == 25 {
			if b == 'h' {
				return one(grid.Action{Kind: grid.ActionShowCursor}), true
			}
			return one(grid.Action{Kind: grid.ActionHideCursor}), true
		}
		return nil, false // other modes unsupported, fail-soft
	case b >= 0x40 && b <= 0x7E:
		// recognized final byte but no handler above: unknown CSI, fail-soft
		p.reset()
		return nil, false
	default:
		return nil, false // still accumulating intermediate bytes
	}
}

func one(a grid.Action) []grid.Action { return []grid.Action{a} }

func firstOrOne(params []uint32) uint32 {
	if len(params) == 0 || params[0] == 0 {
		return 1
	}
	return params[0]
}

func subOne(n uint32) uint32 {
	if n == 0 {
		return 0
	}
	return n - 1
}
