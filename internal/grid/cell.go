package grid

// Attr is a bitmask of cell attribute flags.
type Attr uint16

const (
	AttrBold Attr = 1 << iota
	AttrItalic
	AttrUnderline
	AttrStrikethrough
	AttrDim
	AttrReverse
	AttrBlink
	AttrWide
	AttrDoubleHeight
	AttrDirty
)

// Has reports whether all bits in want are set in a.
func (a Attr) Has(want Attr) bool { return a&want == want }

// Cell is a single grid unit: a character, its foreground/background
// colors, and its attribute bits. Dirty (AttrDirty) is set on any field
// change and cleared by the renderer after it presents a frame.
type Cell struct {
	Char       rune
	Foreground Color
	Background Color
	Attrs      Attr
}

// Blank returns the default cell: a space on the given background with
// the dirty bit set, matching the teacher's TerminalCell::default.
func Blank(bg Color) Cell {
	return Cell{
		Char:       ' ',
		Foreground: NamedColorValue(White),
		Background: bg,
		Attrs:      AttrDirty,
	}
}
