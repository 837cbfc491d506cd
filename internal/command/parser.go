package command

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ferroterm/ferroterm/internal/ferrors"
)

const defaultContextLines = 100

// Parser recognises Agent Commands at line start and tracks the
// scrollback/continuation state Parse needs. It is not safe for
// concurrent use; callers that share a Parser across goroutines must
// guard it themselves (mirrors the single-writer discipline elsewhere in
// this module).
type Parser struct {
	prefix         string
	escapeSequence string
	contextLines   int
	includeEnv     bool

	scrollback          []string
	continuationBuffer  string
}

// New creates a Parser with the default context window (100 lines) and
// environment forwarding enabled.
func New(prefix string) *Parser {
	return NewWithConfig(prefix, defaultContextLines, true)
}

// NewWithConfig creates a Parser with an explicit scrollback window and
// environment-forwarding setting.
func NewWithConfig(prefix string, contextLines int, includeEnv bool) *Parser {
	return &Parser{
		prefix:         prefix,
		escapeSequence: "\\" + prefix,
		contextLines:   contextLines,
		includeEnv:     includeEnv,
	}
}

// Prefix returns the currently configured prefix string.
func (p *Parser) Prefix() string { return p.prefix }

// UpdatePrefix changes the active prefix (and its escape form) in place.
func (p *Parser) UpdatePrefix(newPrefix string) {
	p.prefix = newPrefix
	p.escapeSequence = "\\" + newPrefix
}

// IsAgentPrefix performs the O(1) line-start prefix check: it inspects
// only the start of line, never scanning the whole string.
func (p *Parser) IsAgentPrefix(line string) bool {
	if line == "" {
		return false
	}
	if strings.HasPrefix(line, p.escapeSequence) {
		return false
	}
	return strings.HasPrefix(line, p.prefix)
}

// Parse classifies a line as Terminal pass-through or an Agent Command,
// performing full option/prompt parsing and context collection in the
// latter case.
func (p *Parser) Parse(line string) (ParsedCommand, error) {
	if strings.HasPrefix(line, p.escapeSequence) {
		literal := line[len(p.escapeSequence):]
		return ParsedCommand{Kind: KindTerminal, Terminal: p.prefix + literal, RawInput: line}, nil
	}
	if !p.IsAgentPrefix(line) {
		return ParsedCommand{Kind: KindTerminal, Terminal: line, RawInput: line}, nil
	}
	return p.parseAgentCommand(line)
}

func (p *Parser) parseAgentCommand(line string) (ParsedCommand, error) {
	remaining := strings.TrimPrefix(line, p.prefix)
	remaining = strings.TrimSpace(remaining)

	agent, err := p.ParseArgs(remaining)
	if err != nil {
		return ParsedCommand{}, err
	}
	return ParsedCommand{Kind: KindAgent, Agent: agent, RawInput: line}, nil
}

// ParseArgs parses agent-command syntax directly from a string that has
// already had its line-start prefix stripped (the Input Processor's
// prefix-mode buffer never contains the prefix character itself, since
// it was consumed to enter prefix mode). This is the entry point
// prefix-mode submission uses; Parse itself uses it after stripping the
// prefix from a raw pass-through-or-agent line.
func (p *Parser) ParseArgs(remaining string) (AgentCommand, error) {
	agent, err := newArgScanner(remaining).parse()
	if err != nil {
		return AgentCommand{}, err
	}
	agent.Context, err = p.CollectContext()
	if err != nil {
		return AgentCommand{}, err
	}
	agent.IsContinuation = p.continuationBuffer != ""
	return agent, nil
}

// CollectContext snapshots the current scrollback window, working
// directory, and whitelisted environment variables.
func (p *Parser) CollectContext() (AgentContext, error) {
	wd, err := os.Getwd()
	if err != nil {
		return AgentContext{}, ferrors.Wrap(ferrors.Parse, "command.CollectContext", "get working directory", err)
	}

	start := len(p.scrollback) - p.contextLines
	if start < 0 {
		start = 0
	}

	ctx := AgentContext{
		ScrollbackLines: append([]string(nil), p.scrollback[start:]...),
		EnvironmentVars: map[string]string{},
		WorkingDir:      wd,
	}

	if p.includeEnv {
		for _, name := range relevantEnvVars {
			if v, ok := os.LookupEnv(name); ok {
				ctx.EnvironmentVars[name] = v
			}
		}
	}
	return ctx, nil
}

// UpdateScrollback appends newly-seen terminal lines, truncating to
// 2*contextLines to bound memory.
func (p *Parser) UpdateScrollback(lines []string) {
	p.scrollback = append(p.scrollback, lines...)
	max := p.contextLines * 2
	if len(p.scrollback) > max {
		p.scrollback = append([]string(nil), p.scrollback[len(p.scrollback)-max:]...)
	}
}

// AddContinuation feeds a line into the multi-line continuation buffer.
// It returns true while continuation is still open (the line ended in an
// unescaped backslash).
func (p *Parser) AddContinuation(line string) bool {
	trailing := 0
	for i := len(line) - 1; i >= 0 && line[i] == '\\'; i-- {
		trailing++
	}
	continues := trailing%2 == 1
	if p.continuationBuffer == "" && !continues {
		return false
	}
	if continues {
		p.continuationBuffer += line[:len(line)-1] + "\n"
		return true
	}
	p.continuationBuffer += line
	return false
}

// GetContinuation returns and clears the accumulated continuation buffer.
func (p *Parser) GetContinuation() string {
	buf := p.continuationBuffer
	p.continuationBuffer = ""
	return buf
}

// Cancel discards any in-progress continuation state.
func (p *Parser) Cancel() {
	p.continuationBuffer = ""
}

// argScanner implements the spec-exact agent-command argument grammar:
// `--name value` / `--name=value` options in any order, quoted values
// with a fixed escape set, then a verbatim prompt for everything after
// the first non-option token.
type argScanner struct {
	input []rune
	pos   int
}

func newArgScanner(s string) *argScanner {
	return &argScanner{input: []rune(s)}
}

func (s *argScanner) parse() (AgentCommand, error) {
	var cmd AgentCommand

	for {
		s.skipWhitespace()
		if s.pos >= len(s.input) {
			break
		}
		if s.peek() == '-' && s.peekAt(1) == '-' {
			name, value, err := s.parseArgument()
			if err != nil {
				return AgentCommand{}, err
			}
			if err := applyOption(&cmd, name, value); err != nil {
				return AgentCommand{}, err
			}
			continue
		}
		cmd.Prompt = strings.TrimSpace(s.collectRemaining())
		break
	}

	if cmd.Prompt == "" {
		return AgentCommand{}, ferrors.New(ferrors.Parse, "command.Parse", "missing argument: prompt text")
	}
	return cmd, nil
}

func applyOption(cmd *AgentCommand, name string, value *string) error {
	switch name {
	case "model":
		if value == nil {
			return ferrors.New(ferrors.Parse, "command.Parse", "missing argument: model name")
		}
		cmd.ModelOverride = *value
		cmd.HasModel = true
	case "temp", "temperature":
		if value == nil {
			return ferrors.New(ferrors.Parse, "command.Parse", "missing argument: temperature value")
		}
		t, err := strconv.ParseFloat(*value, 32)
		if err != nil {
			return ferrors.Wrap(ferrors.Parse, "command.Parse", fmt.Sprintf("invalid temperature: %s", *value), err)
		}
		if t < 0.0 || t > 2.0 {
			return ferrors.New(ferrors.Parse, "command.Parse", "temperature must be between 0.0 and 2.0")
		}
		cmd.Temperature = float32(t)
		cmd.HasTemperature = true
	case "max-tokens", "tokens":
		if value == nil {
			return ferrors.New(ferrors.Parse, "command.Parse", "missing argument: max tokens value")
		}
		n, err := strconv.ParseUint(*value, 10, 32)
		if err != nil {
			return ferrors.Wrap(ferrors.Parse, "command.Parse", fmt.Sprintf("invalid max tokens: %s", *value), err)
		}
		cmd.MaxTokens = uint32(n)
		cmd.HasMaxTokens = true
	default:
		return ferrors.New(ferrors.Parse, "command.Parse", fmt.Sprintf("unknown argument: %s", name))
	}
	return nil
}

func (s *argScanner) parseArgument() (string, *string, error) {
	s.advance() // first '-'
	s.advance() // second '-'

	name := s.collectUntil(func(r rune) bool { return isSpace(r) || r == '=' })
	if name == "" {
		return "", nil, ferrors.New(ferrors.Parse, "command.Parse", "empty argument name")
	}

	s.skipWhitespace()

	var value *string
	switch {
	case s.peek() == '=':
		s.advance()
		v, err := s.parseArgumentValue()
		if err != nil {
			return "", nil, err
		}
		value = &v
	case s.pos < len(s.input) && s.peek() != '-':
		v, err := s.parseArgumentValue()
		if err != nil {
			return "", nil, err
		}
		value = &v
	}
	return name, value, nil
}

func (s *argScanner) parseArgumentValue() (string, error) {
	s.skipWhitespace()
	if s.peek() == '"' || s.peek() == '\'' {
		return s.parseQuotedString()
	}
	return s.collectUntil(func(r rune) bool {
		return isSpace(r) || (r == '-' && s.peekAtRune(1) == '-')
	}), nil
}

func (s *argScanner) parseQuotedString() (string, error) {
	quote := s.advance()
	var b strings.Builder
	escaped := false
	for s.pos < len(s.input) {
		ch := s.advance()
		if escaped {
			switch ch {
			case 'n':
				b.WriteRune('\n')
			case 't':
				b.WriteRune('\t')
			case 'r':
				b.WriteRune('\r')
			case '\\':
				b.WriteRune('\\')
			case quote:
				b.WriteRune(quote)
			default:
				b.WriteRune('\\')
				b.WriteRune(ch)
			}
			escaped = false
			continue
		}
		if ch == '\\' {
			escaped = true
			continue
		}
		if ch == quote {
			return b.String(), nil
		}
		b.WriteRune(ch)
	}
	return "", ferrors.New(ferrors.Parse, "command.Parse", fmt.Sprintf("unterminated quoted string starting with %c", quote))
}

func (s *argScanner) collectRemaining() string {
	out := string(s.input[s.pos:])
	s.pos = len(s.input)
	return out
}

func (s *argScanner) collectUntil(stop func(rune) bool) string {
	start := s.pos
	for s.pos < len(s.input) && !stop(s.input[s.pos]) {
		s.pos++
	}
	return string(s.input[start:s.pos])
}

func (s *argScanner) skipWhitespace() {
	for s.pos < len(s.input) && isSpace(s.input[s.pos]) {
		s.pos++
	}
}

func (s *argScanner) peek() rune {
	if s.pos >= len(s.input) {
		return 0
	}
	return s.input[s.pos]
}

func (s *argScanner) peekAt(offset int) rune { return s.peekAtRune(offset) }

func (s *argScanner) peekAtRune(offset int) rune {
	i := s.pos + offset
	if i < 0 || i >= len(s.input) {
		return 0
	}
	return s.input[i]
}

func (s *argScanner) advance() rune {
	r := s.peek()
	if s.pos < len(s.input) {
		s.pos++
	}
	return r
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
