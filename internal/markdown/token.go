// Package markdown incrementally parses a growing Markdown buffer into
// styled tokens, and rule-tokenises fenced code blocks for syntax
// highlighting. It never renders directly: the Streaming UI converts
// tokens into grid cells.
package markdown

import "github.com/ferroterm/ferroterm/internal/grid"

// Kind tags the variant of a Token.
type Kind int

const (
	Text Kind = iota
	Header // Level holds 1-6
	Bold
	Italic
	Code // inline code
	CodeBlock
	Link // URL holds the target
	List // Depth holds nesting depth
	Quote
	LineBreak
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "Text"
	case Header:
		return "Header"
	case Bold:
		return "Bold"
	case Italic:
		return "Italic"
	case Code:
		return "Code"
	case CodeBlock:
		return "CodeBlock"
	case Link:
		return "Link"
	case List:
		return "List"
	case Quote:
		return "Quote"
	case LineBreak:
		return "LineBreak"
	default:
		return "Unknown"
	}
}

// TextStyle is the default presentation derived from a Token's Kind,
// overridable by the syntax highlighter for CodeBlock runs.
type TextStyle struct {
	Foreground grid.Color
	Background grid.Color
	Bold       bool
	Italic     bool
	Underline  bool
	Dim        bool
}

// Token is one parsed unit of Markdown content: a type tag, its
// textual content, kind-specific metadata, and a default style.
type Token struct {
	Kind     Kind
	Content  string
	Level    int    // Header level 1-6
	Depth    int    // List nesting depth
	URL      string // Link target
	Language string // CodeBlock fence language tag, empty if none given
	Style    TextStyle
	Runs     []StyledRun // CodeBlock only: syntax-highlighted sub-runs
}

// StyledRun is one syntax-highlighted fragment of a CodeBlock token's
// content, tagged with the highlighter's classification and style.
type StyledRun struct {
	Text  string
	Tag   RunTag
	Style TextStyle
}

// headerColors assigns one of 6 distinct hues per header level, the way
// a themed renderer would; defaultStyle gives out-of-range levels the
// last hue.
var headerColors = [6]grid.Color{
	grid.RGBColor(255, 100, 100), // H1 red
	grid.RGBColor(100, 255, 100), // H2 green
	grid.RGBColor(100, 100, 255), // H3 blue
	grid.RGBColor(255, 255, 100), // H4 yellow
	grid.RGBColor(255, 100, 255), // H5 magenta
	grid.RGBColor(100, 255, 255), // H6 cyan
}

var (
	defaultForeground = grid.RGBColor(230, 230, 230)
	codeForeground    = grid.RGBColor(200, 200, 200)
	codeBackground    = grid.RGBColor(40, 40, 40)
	quoteForeground   = grid.RGBColor(150, 150, 150)
	linkForeground    = grid.RGBColor(100, 180, 255)
)

// defaultStyle derives the TextStyle for a token from its Kind and,
// for headers, its Level.
func defaultStyle(kind Kind, level int) TextStyle {
	switch kind {
	case Header:
		idx := level - 1
		if idx < 0 || idx >= len(headerColors) {
			idx = len(headerColors) - 1
		}
		return TextStyle{
			Foreground: headerColors[idx],
			Bold:       true,
			Underline:  level <= 2,
		}
	case Bold:
		return TextStyle{Foreground: defaultForeground, Bold: true}
	case Italic:
		return TextStyle{Foreground: defaultForeground, Italic: true}
	case Code:
		return TextStyle{Foreground: codeForeground, Background: codeBackground}
	case CodeBlock:
		return TextStyle{Foreground: codeForeground, Background: codeBackground}
	case Quote:
		return TextStyle{Foreground: quoteForeground, Italic: true}
	case Link:
		return TextStyle{Foreground: linkForeground, Underline: true}
	case List:
		return TextStyle{Foreground: defaultForeground}
	default:
		return TextStyle{Foreground: defaultForeground}
	}
}
