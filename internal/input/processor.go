package input

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ferroterm/ferroterm/internal/command"
)

const (
	defaultPrefixTimeout = 5 * time.Second
	lruCacheCapacity     = 512
)

// ShellMode is the detected line-editing mode, used to pick the Vi or
// Emacs keybinding context when no prefix mode or explicit context
// applies.
type ShellMode uint8

const (
	ShellAuto ShellMode = iota
	ShellVi
	ShellEmacs
)

type prefixState struct {
	active     bool
	buffer     strings.Builder
	escapeMode bool
	startTime  time.Time
}

// Processor is the Input Processor: it consumes KeyEvents and produces
// InputActions, resolving keybindings under context precedence and
// driving the prefix-mode state machine.
type Processor struct {
	mu sync.Mutex

	prefixChar    rune
	prefixTimeout time.Duration
	bindings      *BindingMap
	cache         *lruCache
	cmdParser     *command.Parser

	prefix    prefixState
	lineStart bool
	shellMode ShellMode

	pasteActive bool
	pasteBuf    strings.Builder

	Stats Stats
}

// Stats mirrors the processor's running performance counters.
type Stats struct {
	TotalKeysProcessed uint64
	CacheHits          uint64
	CacheMisses        uint64
	PrefixActivations  uint64
	ConflictsResolved  uint64
}

// New creates a Processor using the given agent-command prefix character
// and Command Prefix Parser.
func New(prefixChar rune, cmdParser *command.Parser) *Processor {
	return &Processor{
		prefixChar:    prefixChar,
		prefixTimeout: defaultPrefixTimeout,
		bindings:      defaultBindingMap(),
		cache:         newLRUCache(lruCacheCapacity),
		cmdParser:     cmdParser,
		lineStart:     true,
		shellMode:     detectShellMode(),
	}
}

// Rebind registers a keybinding override and invalidates the resolution
// cache, since a changed binding can change the answer for any cached
// key.
func (p *Processor) Rebind(key Key, mods ModSet, ctx Context, action InputAction, priority uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bindings.Rebind(key, mods, ctx, action, priority)
	p.cache.clear()
}

// Unbind removes a keybinding and invalidates the resolution cache.
func (p *Processor) Unbind(key Key, mods ModSet, ctx Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bindings.Unbind(key, mods, ctx)
	p.cache.clear()
}

// Process handles one KeyEvent end to end and returns the InputActions
// it produces: none when the key is absorbed (for example by prefix
// mode or an unfinished paste), otherwise one.
func (p *Processor) Process(event KeyEvent) []InputAction {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Stats.TotalKeysProcessed++

	if p.pasteActive {
		return p.continuePaste(event)
	}
	if started, actions := p.maybeStartPaste(event); started {
		return actions
	}

	if actions, handled := p.checkPrefixActivation(event); handled {
		p.updateLineStart(event)
		return actions
	}

	if action, ok := p.resolveBinding(event); ok {
		p.updateLineStart(event)
		return []InputAction{action}
	}

	p.updateLineStart(event)
	return []InputAction{p.fallThrough(event)}
}

func (p *Processor) updateLineStart(event KeyEvent) {
	switch event.Key.Kind {
	case KeyEnter:
		p.lineStart = true
	case KeyChar:
		p.lineStart = false
	}
}

// The bracketed-paste introducer, ESC [ 2 0 0 ~, and its terminator.
const (
	pasteStart = "\x1b[200~"
	pasteEnd   = "\x1b[201~"
)

func (p *Processor) maybeStartPaste(event KeyEvent) (bool, []InputAction) {
	if !strings.HasPrefix(event.Text, pasteStart) {
		return false, nil
	}
	p.pasteActive = true
	p.pasteBuf.Reset()
	return true, p.continuePaste(event)
}

func (p *Processor) continuePaste(event KeyEvent) []InputAction {
	text := event.Text
	text = strings.TrimPrefix(text, pasteStart)
	if idx := strings.Index(text, pasteEnd); idx >= 0 {
		p.pasteBuf.WriteString(text[:idx])
		p.pasteActive = false
		content := p.pasteBuf.String()
		p.pasteBuf.Reset()
		return []InputAction{sendText(content)}
	}
	p.pasteBuf.WriteString(text)
	return nil
}

// checkPrefixActivation implements precedence steps 2 and 3: prefix
// activation/escape at line start, and the in-prefix-mode key handling
// (Enter submits, Escape cancels, Backspace pops, printable chars
// append, and a timeout since activation auto-cancels).
func (p *Processor) checkPrefixActivation(event KeyEvent) ([]InputAction, bool) {
	if p.prefix.escapeMode {
		p.prefix.escapeMode = false
		if event.Key.Kind == KeyChar && event.Key.Char == p.prefixChar {
			return []InputAction{sendText(string(p.prefixChar))}, true
		}
		// fall through to normal processing for this event
	}

	if !p.prefix.active && p.lineStart && event.Key.Kind == KeyChar && event.Key.Char == '\\' && event.Mods.Empty() {
		p.prefix.escapeMode = true
		return nil, true
	}

	if !p.prefix.active && p.lineStart && event.Key.Kind == KeyChar && event.Key.Char == p.prefixChar && event.Mods.Empty() {
		p.prefix.active = true
		p.prefix.buffer.Reset()
		p.prefix.startTime = event.Timestamp
		p.Stats.PrefixActivations++
		return nil, true
	}

	if p.prefix.active {
		if !event.Timestamp.IsZero() && !p.prefix.startTime.IsZero() &&
			event.Timestamp.Sub(p.prefix.startTime) > p.prefixTimeout {
			p.prefix.active = false
			p.prefix.buffer.Reset()
			return nil, true
		}

		switch event.Key.Kind {
		case KeyEnter:
			line := p.prefix.buffer.String()
			p.prefix.active = false
			p.prefix.buffer.Reset()
			if line == "" {
				return nil, true
			}
			agent, err := p.cmdParser.ParseArgs(line)
			if err != nil {
				return []InputAction{sendText("Command error: " + err.Error() + "\n")}, true
			}
			parsed := command.ParsedCommand{Kind: command.KindAgent, Agent: agent, RawInput: line}
			return []InputAction{{Kind: ActionExecuteParsedCommand, Parsed: parsed}}, true
		case KeyEscape:
			p.prefix.active = false
			p.prefix.buffer.Reset()
			return nil, true
		case KeyBackspace:
			s := p.prefix.buffer.String()
			if len(s) > 0 {
				p.prefix.buffer.Reset()
				p.prefix.buffer.WriteString(s[:len(s)-1])
			} else {
				p.prefix.active = false
			}
			return nil, true
		case KeyTab:
			return nil, true
		case KeyChar:
			p.prefix.buffer.WriteRune(event.Key.Char)
			return nil, true
		default:
			return nil, true
		}
	}

	return nil, false
}

func (p *Processor) resolveBinding(event KeyEvent) (InputAction, bool) {
	ctx := p.currentContext()
	b := Binding{Key: event.Key, Mods: event.Mods, Context: ctx}
	key := b.mapKey()

	if cached, ok := p.cache.get(key); ok {
		if cached != nil {
			p.Stats.CacheHits++
			return cached.InputAction, true
		}
		p.Stats.CacheMisses++
		return InputAction{}, false
	}

	a, ok := p.bindings.lookup(b)
	if !ok {
		p.cache.put(key, nil)
		return InputAction{}, false
	}
	p.cache.put(key, &a)
	return a.InputAction, true
}

func (p *Processor) currentContext() Context {
	if p.prefix.active {
		return ContextAgent
	}
	switch p.shellMode {
	case ShellVi:
		return ContextVi
	case ShellEmacs:
		return ContextEmacs
	default:
		return ContextShell
	}
}

// fallThrough implements precedence step 5: plain characters pass
// through as-is; named keys emit their standard VT sequence.
func (p *Processor) fallThrough(event KeyEvent) InputAction {
	switch event.Key.Kind {
	case KeyChar:
		return sendText(string(event.Key.Char))
	case KeyEnter:
		return sendText("\n")
	case KeyTab:
		return sendText("\t")
	case KeyBackspace:
		return sendText("\x08")
	case KeyDelete:
		return sendText("\x7f")
	case KeyEscape:
		return sendText("\x1b")
	case KeyUp:
		return sendText("\x1b[A")
	case KeyDown:
		return sendText("\x1b[B")
	case KeyRight:
		return sendText("\x1b[C")
	case KeyLeft:
		return sendText("\x1b[D")
	case KeyHome:
		return sendText("\x1b[H")
	case KeyEnd:
		return sendText("\x1b[F")
	case KeyPageUp:
		return sendText("\x1b[5~")
	case KeyPageDown:
		return sendText("\x1b[6~")
	case KeyInsert:
		return sendText("\x1b[2~")
	case KeyF1:
		return sendText("\x1bOP")
	case KeyF2:
		return sendText("\x1bOQ")
	case KeyF3:
		return sendText("\x1bOR")
	case KeyF4:
		return sendText("\x1bOS")
	case KeyF5:
		return sendText("\x1b[15~")
	case KeyF6:
		return sendText("\x1b[17~")
	case KeyF7:
		return sendText("\x1b[18~")
	case KeyF8:
		return sendText("\x1b[19~")
	case KeyF9:
		return sendText("\x1b[20~")
	case KeyF10:
		return sendText("\x1b[21~")
	case KeyF11:
		return sendText("\x1b[23~")
	case KeyF12:
		return sendText("\x1b[24~")
	default:
		if event.Text != "" {
			return sendText(event.Text)
		}
		return sendText("")
	}
}

func detectShellMode() ShellMode {
	if editor := os.Getenv("EDITOR"); strings.Contains(editor, "vi") {
		return ShellVi
	}
	if inputrc := os.Getenv("INPUTRC"); inputrc != "" {
		if content, err := os.ReadFile(inputrc); err == nil {
			switch {
			case strings.Contains(string(content), "set editing-mode vi"):
				return ShellVi
			case strings.Contains(string(content), "set editing-mode emacs"):
				return ShellEmacs
			}
		}
	}
	return ShellEmacs
}
