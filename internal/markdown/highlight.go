package markdown

import (
	"strings"

	"github.com/ferroterm/ferroterm/internal/grid"
)

// RunTag classifies one highlighted fragment of a code block.
type RunTag int

const (
	RunPlain RunTag = iota
	RunKeyword
	RunString
	RunComment
	RunNumber
	RunFunction
	RunVariable
	RunOperator
)

func (t RunTag) String() string {
	switch t {
	case RunKeyword:
		return "keyword"
	case RunString:
		return "string"
	case RunComment:
		return "comment"
	case RunNumber:
		return "number"
	case RunFunction:
		return "function"
	case RunVariable:
		return "variable"
	case RunOperator:
		return "operator"
	default:
		return "plain"
	}
}

func runStyle(tag RunTag) TextStyle {
	switch tag {
	case RunKeyword:
		return TextStyle{Foreground: grid.RGBColor(197, 134, 192), Background: codeBackground, Bold: true}
	case RunString:
		return TextStyle{Foreground: grid.RGBColor(206, 145, 120), Background: codeBackground}
	case RunComment:
		return TextStyle{Foreground: grid.RGBColor(106, 153, 85), Background: codeBackground, Italic: true}
	case RunNumber:
		return TextStyle{Foreground: grid.RGBColor(181, 206, 168), Background: codeBackground}
	case RunFunction:
		return TextStyle{Foreground: grid.RGBColor(220, 220, 170), Background: codeBackground}
	case RunVariable:
		return TextStyle{Foreground: grid.RGBColor(156, 220, 254), Background: codeBackground}
	case RunOperator:
		return TextStyle{Foreground: grid.RGBColor(212, 212, 212), Background: codeBackground}
	default:
		return TextStyle{Foreground: codeForeground, Background: codeBackground}
	}
}

// langRules is the rule-set one language's tokenizer scans against.
type langRules struct {
	lineComment       string
	blockCommentStart string
	blockCommentEnd   string
	keywords          map[string]bool
	stringQuotes      string
}

func keywordSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

var rustKeywords = keywordSet(
	"as", "async", "await", "break", "const", "continue", "crate", "dyn", "else",
	"enum", "extern", "false", "fn", "for", "if", "impl", "in", "let", "loop",
	"match", "mod", "move", "mut", "pub", "ref", "return", "self", "Self",
	"static", "struct", "super", "trait", "true", "type", "unsafe", "use", "where", "while",
)

var pythonKeywords = keywordSet(
	"False", "None", "True", "and", "as", "assert", "async", "await", "break",
	"class", "continue", "def", "del", "elif", "else", "except", "finally",
	"for", "from", "global", "if", "import", "in", "is", "lambda", "nonlocal",
	"not", "or", "pass", "raise", "return", "try", "while", "with", "yield",
)

var javascriptKeywords = keywordSet(
	"async", "await", "break", "case", "catch", "class", "const", "continue",
	"debugger", "default", "delete", "do", "else", "export", "extends",
	"finally", "for", "function", "get", "if", "import", "in", "instanceof",
	"let", "new", "of", "return", "set", "static", "super", "switch", "this",
	"throw", "try", "typeof", "var", "void", "while", "with", "yield",
)

var typescriptKeywords = keywordSet(
	"as", "declare", "enum", "implements", "infer", "interface", "is", "keyof",
	"namespace", "private", "protected", "public", "readonly", "type",
)

var bashKeywords = keywordSet(
	"break", "case", "continue", "do", "done", "elif", "else", "esac",
	"export", "fi", "for", "function", "if", "in", "local", "readonly",
	"return", "select", "then", "time", "until", "while",
)

var yamlKeywords = keywordSet("true", "false", "null", "yes", "no")
var jsonKeywords = keywordSet("true", "false", "null")

func mergedKeywords(sets ...map[string]bool) map[string]bool {
	m := make(map[string]bool)
	for _, s := range sets {
		for k := range s {
			m[k] = true
		}
	}
	return m
}

var languageTable = map[string]langRules{
	"rust":       {lineComment: "//", blockCommentStart: "/*", blockCommentEnd: "*/", keywords: rustKeywords, stringQuotes: `"`},
	"python":     {lineComment: "#", keywords: pythonKeywords, stringQuotes: `"'`},
	"javascript": {lineComment: "//", blockCommentStart: "/*", blockCommentEnd: "*/", keywords: javascriptKeywords, stringQuotes: "\"'`"},
	"typescript": {lineComment: "//", blockCommentStart: "/*", blockCommentEnd: "*/", keywords: mergedKeywords(javascriptKeywords, typescriptKeywords), stringQuotes: "\"'`"},
	"json":       {keywords: jsonKeywords, stringQuotes: `"`},
	"yaml":       {lineComment: "#", keywords: yamlKeywords, stringQuotes: `"'`},
	"bash":       {lineComment: "#", keywords: bashKeywords, stringQuotes: `"'`},
	"markdown":   {keywords: map[string]bool{}, stringQuotes: ""},
}

var languageAliases = map[string]string{
	"rs": "rust", "py": "python",
	"js": "javascript", "jsx": "javascript", "mjs": "javascript", "cjs": "javascript",
	"ts": "typescript", "tsx": "typescript",
	"yml": "yaml", "sh": "bash", "shell": "bash", "zsh": "bash", "md": "markdown",
}

func normalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if alias, ok := languageAliases[lang]; ok {
		return alias
	}
	return lang
}

// Highlight tokenizes code according to language's rule-set, returning
// a sequence of styled runs. An unrecognized language tag falls
// through to one plain run over the whole text.
func Highlight(language, code string) []StyledRun {
	rules, ok := languageTable[normalizeLanguage(language)]
	if !ok {
		return []StyledRun{{Text: code, Tag: RunPlain, Style: runStyle(RunPlain)}}
	}
	return mergeRuns(tokenize(code, rules))
}

func tokenize(code string, rules langRules) []StyledRun {
	var runs []StyledRun
	i, n := 0, len(code)

	for i < n {
		switch {
		case rules.lineComment != "" && strings.HasPrefix(code[i:], rules.lineComment):
			end := strings.IndexByte(code[i:], '\n')
			if end == -1 {
				end = n
			} else {
				end += i
			}
			runs = append(runs, mkRun(code[i:end], RunComment))
			i = end

		case rules.blockCommentStart != "" && strings.HasPrefix(code[i:], rules.blockCommentStart):
			rest := code[i+len(rules.blockCommentStart):]
			close := strings.Index(rest, rules.blockCommentEnd)
			var end int
			if close == -1 {
				end = n
			} else {
				end = i + len(rules.blockCommentStart) + close + len(rules.blockCommentEnd)
			}
			runs = append(runs, mkRun(code[i:end], RunComment))
			i = end

		case strings.IndexByte(rules.stringQuotes, code[i]) >= 0:
			quote := code[i]
			end := i + 1
			for end < n {
				if code[end] == '\\' && end+1 < n {
					end += 2
					continue
				}
				if code[end] == quote {
					end++
					break
				}
				end++
			}
			runs = append(runs, mkRun(code[i:end], RunString))
			i = end

		case isDigit(code[i]):
			end := i
			for end < n && (isDigit(code[end]) || code[end] == '.' || code[end] == '_') {
				end++
			}
			runs = append(runs, mkRun(code[i:end], RunNumber))
			i = end

		case isIdentStart(code[i]):
			end := i
			for end < n && isIdentPart(code[end]) {
				end++
			}
			word := code[i:end]
			tag := RunVariable
			if rules.keywords[word] {
				tag = RunKeyword
			} else if end < n && code[end] == '(' {
				tag = RunFunction
			}
			runs = append(runs, mkRun(word, tag))
			i = end

		case isOperator(code[i]):
			end := i
			for end < n && isOperator(code[end]) {
				end++
			}
			runs = append(runs, mkRun(code[i:end], RunOperator))
			i = end

		default:
			end := i + 1
			for end < n && !isIdentStart(code[end]) && !isDigit(code[end]) && !isOperator(code[end]) &&
				strings.IndexByte(rules.stringQuotes, code[end]) < 0 &&
				!(rules.lineComment != "" && strings.HasPrefix(code[end:], rules.lineComment)) &&
				!(rules.blockCommentStart != "" && strings.HasPrefix(code[end:], rules.blockCommentStart)) {
				end++
			}
			runs = append(runs, mkRun(code[i:end], RunPlain))
			i = end
		}
	}
	return runs
}

func mkRun(text string, tag RunTag) StyledRun {
	return StyledRun{Text: text, Tag: tag, Style: runStyle(tag)}
}

func isDigit(c byte) bool      { return c >= '0' && c <= '9' }
func isIdentStart(c byte) bool { return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isIdentPart(c byte) bool  { return isIdentStart(c) || isDigit(c) }
func isOperator(c byte) bool {
	return strings.IndexByte("+-*/%=<>!&|^~", c) >= 0
}

// mergeRuns coalesces consecutive runs of the same tag, which the
// scanner above produces often (e.g. plain whitespace between tokens).
func mergeRuns(runs []StyledRun) []StyledRun {
	if len(runs) == 0 {
		return runs
	}
	merged := make([]StyledRun, 1, len(runs))
	merged[0] = runs[0]
	for _, r := range runs[1:] {
		last := &merged[len(merged)-1]
		if last.Tag == r.Tag {
			last.Text += r.Text
			continue
		}
		merged = append(merged, r)
	}
	return merged
}
