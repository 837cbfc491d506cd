// Package grid implements the terminal cell grid: cursor, pen, scroll
// region, and the dirty-tracking discipline the GPU renderer relies on.
// It is the single rendering source of truth (spec §2); the VT parser in
// internal/vtparse feeds it a slice of Actions, and the GPU
// backend reads a Snapshot of it once per frame.
package grid

import (
	"sync"

	"github.com/mattn/go-runewidth"
)

// Pen holds the attributes applied to subsequent writes.
type Pen struct {
	Foreground Color
	Background Color
	Attrs      Attr // Bold/Italic/Underline/Strikethrough/Dim/Reverse/Blink
}

// DefaultPen returns the pen a fresh Grid starts with: white on black,
// no attributes.
func DefaultPen() Pen {
	return Pen{Foreground: NamedColorValue(White), Background: NamedColorValue(Black)}
}

// Grid holds the cell buffer, cursor, pen, and terminal modes for one
// virtual terminal. It is guarded by a single writer/multiple-reader
// lock per spec §5: Apply takes a write borrow per batch, Snapshot takes
// a read borrow per frame.
type Grid struct {
	mu sync.RWMutex

	width, height int
	cells         []Cell

	cursorX, cursorY int
	cursorVisible    bool

	pen Pen

	wrapMode        bool
	applicationMode bool

	scrollTop, scrollBottom int

	onScrollback func(row []Cell)
}

// OnScrollback registers fn to be called, under Apply's write lock,
// with a copy of each row's cells just before ScrollUp's shift
// overwrites it — the rows that scroll off the top of the grid and
// would otherwise be lost. Passing nil disables capture.
func (g *Grid) OnScrollback(fn func(row []Cell)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onScrollback = fn
}

// New creates a W×H grid, cursor at the origin, wrap mode on.
func New(w, h int) *Grid {
	g := &Grid{
		width: w, height: h,
		cursorVisible: true,
		pen:           DefaultPen(),
		wrapMode:      true,
		scrollBottom:  h - 1,
	}
	g.cells = make([]Cell, w*h)
	g.fillBlank(0, len(g.cells))
	return g
}

func (g *Grid) fillBlank(start, end int) {
	bg := g.pen.Background
	for i := start; i < end; i++ {
		g.cells[i] = Blank(bg)
	}
}

func (g *Grid) index(x, y int) int { return y*g.width + x }

// Dimensions returns the current width and height.
func (g *Grid) Dimensions() (int, int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.width, g.height
}

// Cursor returns the cursor position and visibility.
func (g *Grid) Cursor() (x, y int, visible bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cursorX, g.cursorY, g.cursorVisible
}

// Cell returns a copy of the cell at (x, y). Out-of-range coordinates
// return the zero Cell.
func (g *Grid) Cell(x, y int) Cell {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if x < 0 || y < 0 || x >= g.width || y >= g.height {
		return Cell{}
	}
	return g.cells[g.index(x, y)]
}

// Apply applies a batch of Actions to the grid under a single write
// lock, in order. Out-of-range parameters are clamped; unsupported
// combinations are no-ops. No action is ever fatal.
func (g *Grid) Apply(actions []Action) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, a := range actions {
		g.apply(a)
	}
}

func (g *Grid) apply(a Action) {
	switch a.Kind {
	case ActionPrintChar:
		g.printChar(a.Char)
	case ActionMoveCursor:
		g.cursorY = clampInt(int(a.Row), 0, g.height-1)
		g.cursorX = clampInt(int(a.Col), 0, g.width-1)
	case ActionMoveCursorUp:
		g.cursorY = clampInt(g.cursorY-int(orOne(a.N)), 0, g.height-1)
	case ActionMoveCursorDown:
		g.cursorY = clampInt(g.cursorY+int(orOne(a.N)), 0, g.height-1)
	case ActionMoveCursorLeft:
		g.cursorX = clampInt(g.cursorX-int(orOne(a.N)), 0, g.width-1)
	case ActionMoveCursorRight:
		g.cursorX = clampInt(g.cursorX+int(orOne(a.N)), 0, g.width-1)
	case ActionMoveCursorToColumn:
		g.cursorX = clampInt(int(a.Col), 0, g.width-1)
	case ActionMoveCursorHome:
		g.cursorX, g.cursorY = 0, 0
	case ActionClearLine:
		g.clearLineRange(g.cursorY, 0, g.width)
	case ActionClearLineFromCursor:
		g.clearLineRange(g.cursorY, g.cursorX, g.width)
	case ActionClearLineToCursor:
		g.clearLineRange(g.cursorY, 0, g.cursorX+1)
	case ActionClearScreen:
		g.fillBlank(0, len(g.cells))
	case ActionClearScreenFromCursor:
		g.fillBlank(g.index(g.cursorX, g.cursorY), len(g.cells))
	case ActionClearScreenToCursor:
		end := g.index(g.cursorX, g.cursorY) + 1
		if end > len(g.cells) {
			end = len(g.cells)
		}
		g.fillBlank(0, end)
	case ActionDeleteChar:
		g.deleteChars(int(orOne(a.N)))
	case ActionInsertChar:
		g.insertChars(int(orOne(a.N)))
	case ActionSetForeground:
		g.pen.Foreground = a.Color
	case ActionSetBackground:
		g.pen.Background = a.Color
	case ActionSetBold:
		g.setAttr(AttrBold, a.On)
	case ActionSetItalic:
		g.setAttr(AttrItalic, a.On)
	case ActionSetUnderline:
		g.setAttr(AttrUnderline, a.On)
	case ActionSetStrikethrough:
		g.setAttr(AttrStrikethrough, a.On)
	case ActionSetDim:
		g.setAttr(AttrDim, a.On)
	case ActionSetReverse:
		g.setAttr(AttrReverse, a.On)
	case ActionSetBlink:
		g.setAttr(AttrBlink, a.On)
	case ActionResetAttributes:
		g.pen = DefaultPen()
	case ActionScrollUp:
		g.scrollUp(int(orOne(a.N)))
	case ActionScrollDown:
		g.scrollDown(int(orOne(a.N)))
	case ActionNewline:
		g.newline()
	case ActionCarriageReturn:
		g.cursorX = 0
	case ActionTab:
		next := ((g.cursorX / 8) + 1) * 8
		g.cursorX = clampInt(next, 0, g.width-1)
	case ActionBell:
		// Visual bell is a renderer concern; no grid state changes.
	case ActionBackspace:
		if g.cursorX > 0 {
			g.cursorX--
		}
	case ActionShowCursor:
		g.cursorVisible = true
	case ActionHideCursor:
		g.cursorVisible = false
	case ActionSetApplicationMode:
		g.applicationMode = a.On
	case ActionSetWrapMode:
		g.wrapMode = a.On
	}
}

func (g *Grid) setAttr(bit Attr, on bool) {
	if on {
		g.pen.Attrs |= bit
	} else {
		g.pen.Attrs &^= bit
	}
}

// printChar writes a character at the cursor using the active pen,
// advancing the cursor by the cell's display width (1 or 2 for wide
// characters). Wrapping and bottom-of-screen scrolling follow spec §4.2.
func (g *Grid) printChar(c rune) {
	if g.cursorX >= g.width {
		if !g.wrapMode {
			return
		}
		g.cursorX = 0
		g.cursorY++
		if g.cursorY > g.scrollBottom {
			g.scrollUp(1)
			g.cursorY = g.scrollBottom
		}
	}

	wide := runewidth.RuneWidth(c) >= 2
	idx := g.index(g.cursorX, g.cursorY)
	if idx >= 0 && idx < len(g.cells) {
		fg, bg := g.pen.Foreground, g.pen.Background
		attrs := g.pen.Attrs | AttrDirty
		if g.pen.Attrs.Has(AttrReverse) {
			fg, bg = bg, fg
		}
		if wide {
			attrs |= AttrWide
		}
		g.cells[idx] = Cell{Char: c, Foreground: fg, Background: bg, Attrs: attrs}
	}

	width := 1
	if wide {
		width = 2
	}
	g.cursorX += width
}

func (g *Grid) newline() {
	g.cursorX = 0
	g.cursorY++
	if g.cursorY > g.scrollBottom {
		g.scrollUp(1)
		g.cursorY = g.scrollBottom
	}
}

func (g *Grid) clearLineRange(y, from, to int) {
	if y < 0 || y >= g.height {
		return
	}
	lineStart := g.index(0, y)
	lineEnd := lineStart + g.width
	start := clampInt(g.index(from, y), lineStart, lineEnd)
	end := clampInt(g.index(to, y), lineStart, lineEnd)
	g.fillBlank(start, end)
}

// deleteChars deletes n characters at the cursor on the current line,
// shifting the remainder left and clearing the vacated tail.
func (g *Grid) deleteChars(n int) {
	y := g.cursorY
	if y < 0 || y >= g.height {
		return
	}
	lineStart := g.index(0, y)
	lineEnd := lineStart + g.width
	delStart := g.index(g.cursorX, y)

	for dst := delStart; dst < lineEnd; dst++ {
		src := dst + n
		if src < lineEnd {
			g.cells[dst] = g.cells[src]
			g.cells[dst].Attrs |= AttrDirty
		} else {
			g.cells[dst] = Blank(g.pen.Background)
		}
	}
}

// insertChars inserts n blank characters at the cursor, shifting the
// remainder right and clearing the inserted gap.
func (g *Grid) insertChars(n int) {
	y := g.cursorY
	if y < 0 || y >= g.height {
		return
	}
	lineStart := g.index(0, y)
	lineEnd := lineStart + g.width
	insStart := g.index(g.cursorX, y)

	for dst := lineEnd - 1; dst >= insStart; dst-- {
		src := dst - n
		if src >= insStart {
			g.cells[dst] = g.cells[src]
			g.cells[dst].Attrs |= AttrDirty
		} else {
			g.cells[dst] = Blank(g.pen.Background)
		}
	}
}

func (g *Grid) scrollUp(n int) {
	top, bottom := g.scrollTop, g.scrollBottom
	if n > bottom-top+1 {
		n = bottom - top + 1
	}
	if g.onScrollback != nil {
		for y := top; y < top+n && y <= bottom; y++ {
			row := append([]Cell(nil), g.cells[g.index(0, y):g.index(0, y)+g.width]...)
			g.onScrollback(row)
		}
	}
	for destY := top; destY+n <= bottom; destY++ {
		srcY := destY + n
		copy(g.cells[g.index(0, destY):g.index(0, destY)+g.width], g.cells[g.index(0, srcY):g.index(0, srcY)+g.width])
		g.markRowDirty(destY)
	}
	for y := bottom - n + 1; y <= bottom; y++ {
		g.clearLineRange(y, 0, g.width)
	}
}

func (g *Grid) scrollDown(n int) {
	top, bottom := g.scrollTop, g.scrollBottom
	if n > bottom-top+1 {
		n = bottom - top + 1
	}
	for destY := bottom; destY-n >= top; destY-- {
		srcY := destY - n
		copy(g.cells[g.index(0, destY):g.index(0, destY)+g.width], g.cells[g.index(0, srcY):g.index(0, srcY)+g.width])
		g.markRowDirty(destY)
	}
	for y := top; y < top+n && y <= bottom; y++ {
		g.clearLineRange(y, 0, g.width)
	}
}

func (g *Grid) markRowDirty(y int) {
	start := g.index(0, y)
	for i := start; i < start+g.width; i++ {
		g.cells[i].Attrs |= AttrDirty
	}
}

// Resize changes the grid dimensions, preserving as many top-left cells
// as fit, clamping the cursor, and resetting the scroll region to the
// full new height (spec §4.2, §8 "Grid resize preservation").
func (g *Grid) Resize(w, h int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if w == g.width && h == g.height {
		return
	}
	old := g.cells
	oldW, oldH := g.width, g.height

	g.width, g.height = w, h
	g.cells = make([]Cell, w*h)
	g.fillBlank(0, len(g.cells))

	copyW, copyH := minInt(oldW, w), minInt(oldH, h)
	for y := 0; y < copyH; y++ {
		for x := 0; x < copyW; x++ {
			g.cells[y*w+x] = old[y*oldW+x]
		}
	}

	g.cursorX = clampInt(g.cursorX, 0, w-1)
	g.cursorY = clampInt(g.cursorY, 0, h-1)
	g.scrollTop = 0
	g.scrollBottom = h - 1
}

// SetScrollRegion sets [top,bottom] after clamping into [0,H).
func (g *Grid) SetScrollRegion(top, bottom int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	top = clampInt(top, 0, g.height-1)
	bottom = clampInt(bottom, 0, g.height-1)
	if top > bottom {
		top, bottom = bottom, top
	}
	g.scrollTop, g.scrollBottom = top, bottom
}

// Snapshot is the read-only frame the GPU renderer consumes each
// present: dimensions, cell contents, and cursor presentation state
// (spec §6 GPU renderer boundary).
type Snapshot struct {
	Width, Height int
	Cells         []Cell
	CursorX       int
	CursorY       int
	CursorVisible bool
}

// Snapshot takes a read borrow and copies out the current frame.
func (g *Grid) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	cells := make([]Cell, len(g.cells))
	copy(cells, g.cells)
	return Snapshot{
		Width: g.width, Height: g.height,
		Cells:         cells,
		CursorX:       g.cursorX,
		CursorY:       g.cursorY,
		CursorVisible: g.cursorVisible,
	}
}

// ClearDirty clears every cell's dirty flag. Called by the renderer
// after it has presented a frame.
func (g *Grid) ClearDirty() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.cells {
		g.cells[i].Attrs &^= AttrDirty
	}
}

// WrapMode, ApplicationMode report the current terminal modes.
func (g *Grid) WrapMode() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.wrapMode
}

func (g *Grid) ApplicationMode() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.applicationMode
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func orOne(n uint32) uint32 {
	if n == 0 {
		return 1
	}
	return n
}
