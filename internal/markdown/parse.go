package markdown

import (
	"fmt"
	"strings"

	"github.com/ferroterm/ferroterm/internal/ferrors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
)

// md is the shared goldmark parser. Confirmed blocks are delegated to it;
// the streamer only owns the buffering/retry decision around it.
var md = goldmark.New()

// ParseComplete parses a fully-formed Markdown document into a flat
// token sequence. Inline formatting (Bold, Italic, Code, Link) is
// emitted inline with surrounding Text tokens; block-level elements
// (Header, CodeBlock, Quote, and each List item) are each collapsed to
// one token carrying their flattened text.
func ParseComplete(content string) (tokens []Token, err error) {
	defer func() {
		if r := recover(); r != nil {
			tokens = nil
			err = ferrors.New(ferrors.Parse, "markdown.ParseComplete", fmt.Sprintf("%v", r))
		}
	}()

	source := []byte(content)
	reader := gmtext.NewReader(source)
	doc := md.Parser().Parse(reader)

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		tokens = append(tokens, walkBlock(n, source, 1)...)
	}
	return tokens, nil
}

func walkBlock(n ast.Node, source []byte, listDepth int) []Token {
	switch v := n.(type) {
	case *ast.Heading:
		text := flattenText(n, source)
		return []Token{{Kind: Header, Content: text, Level: v.Level, Style: defaultStyle(Header, v.Level)}}

	case *ast.FencedCodeBlock:
		lang := string(v.Language(source))
		content := linesText(v.Lines(), source)
		tok := Token{Kind: CodeBlock, Content: content, Language: lang, Style: defaultStyle(CodeBlock, 0)}
		tok.Runs = Highlight(lang, content)
		return []Token{tok}

	case *ast.CodeBlock:
		content := linesText(v.Lines(), source)
		tok := Token{Kind: CodeBlock, Content: content, Style: defaultStyle(CodeBlock, 0)}
		tok.Runs = Highlight("", content)
		return []Token{tok}

	case *ast.Blockquote:
		text := flattenText(n, source)
		return []Token{{Kind: Quote, Content: text, Style: defaultStyle(Quote, 0)}}

	case *ast.List:
		var items []Token
		for item := n.FirstChild(); item != nil; item = item.NextSibling() {
			text := flattenText(item, source)
			items = append(items, Token{Kind: List, Content: text, Depth: listDepth, Style: defaultStyle(List, 0)})
		}
		return items

	case *ast.ThematicBreak:
		return []Token{{Kind: LineBreak}}

	case *ast.Paragraph, *ast.TextBlock:
		toks := walkInline(n, source)
		toks = append(toks, Token{Kind: LineBreak})
		return toks

	default:
		// Unrecognized block container (e.g. HTMLBlock): recurse into its
		// children on the chance it wraps something we do handle.
		var toks []Token
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			toks = append(toks, walkBlock(c, source, listDepth)...)
		}
		return toks
	}
}

// walkInline renders the inline children of a block node into a flat
// token sequence, preserving source order.
func walkInline(n ast.Node, source []byte) []Token {
	var toks []Token
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch v := c.(type) {
		case *ast.Text:
			s := string(v.Segment.Value(source))
			if s != "" {
				toks = append(toks, Token{Kind: Text, Content: s, Style: defaultStyle(Text, 0)})
			}
			if v.SoftLineBreak() {
				toks = append(toks, Token{Kind: Text, Content: " ", Style: defaultStyle(Text, 0)})
			}
			if v.HardLineBreak() {
				toks = append(toks, Token{Kind: LineBreak})
			}

		case *ast.Emphasis:
			inner := flattenText(c, source)
			kind := Italic
			if v.Level >= 2 {
				kind = Bold
			}
			toks = append(toks, Token{Kind: kind, Content: inner, Style: defaultStyle(kind, 0)})

		case *ast.CodeSpan:
			inner := flattenText(c, source)
			toks = append(toks, Token{Kind: Code, Content: inner, Style: defaultStyle(Code, 0)})

		case *ast.Link:
			inner := flattenText(c, source)
			toks = append(toks, Token{Kind: Link, Content: inner, URL: string(v.Destination), Style: defaultStyle(Link, 0)})

		case *ast.AutoLink:
			url := string(v.URL(source))
			toks = append(toks, Token{Kind: Link, Content: url, URL: url, Style: defaultStyle(Link, 0)})

		case *ast.Image:
			alt := flattenText(c, source)
			toks = append(toks, Token{Kind: Link, Content: alt, URL: string(v.Destination), Style: defaultStyle(Link, 0)})

		default:
			toks = append(toks, walkInline(c, source)...)
		}
	}
	return toks
}

// flattenText recursively concatenates the plain-text content of an
// inline (or inline-bearing) node, discarding any nested formatting
// marks. Used for block-level tokens (Header, Quote, List item) that
// collapse their inline content to one string.
func flattenText(n ast.Node, source []byte) string {
	var b strings.Builder
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch v := c.(type) {
			case *ast.Text:
				b.Write(v.Segment.Value(source))
				if v.SoftLineBreak() {
					b.WriteByte(' ')
				}
				if v.HardLineBreak() {
					b.WriteByte('\n')
				}
			default:
				walk(c)
			}
		}
	}
	walk(n)
	return b.String()
}

func linesText(lines *gmtext.Segments, source []byte) string {
	var b strings.Builder
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	return b.String()
}
