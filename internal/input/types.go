// Package input maps key events to Input Actions: it resolves
// keybindings under context precedence, drives the prefix-mode state
// machine that feeds the Command Prefix Parser, and detects bracketed
// paste sequences.
package input

import (
	"time"

	"github.com/ferroterm/ferroterm/internal/command"
)

// Key is a tagged key identity: printable characters, named control
// keys, function keys, keypad keys, and media keys.
type Key struct {
	Kind KeyKind
	Char rune // meaningful only when Kind == KeyChar
}

// KeyKind enumerates the Key variants.
type KeyKind uint8

const (
	KeyChar KeyKind = iota
	KeyEnter
	KeyTab
	KeyBackspace
	KeyDelete
	KeyEscape
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyInsert
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
	KeyF13
	KeyF14
	KeyF15
	KeyF16
	KeyF17
	KeyF18
	KeyF19
	KeyF20
	KeyF21
	KeyF22
	KeyF23
	KeyF24
	KeySpace
	KeyKpDivide
	KeyKpMultiply
	KeyKpMinus
	KeyKpPlus
	KeyKpEnter
	KeyKpPeriod
	KeyKp0
	KeyKp1
	KeyKp2
	KeyKp3
	KeyKp4
	KeyKp5
	KeyKp6
	KeyKp7
	KeyKp8
	KeyKp9
	KeyVolumeUp
	KeyVolumeDown
	KeyVolumeMute
	KeyMediaNext
	KeyMediaPrev
	KeyMediaStop
	KeyMediaPlay
)

// Modifier is drawn from the fixed set a KeyEvent's modifier set is
// built from.
type Modifier uint8

const (
	ModCtrl Modifier = iota
	ModAlt
	ModShift
	ModSuper
	ModMeta
	ModHyper
)

// ModSet is a small sorted set of Modifiers; sorted so two ModSets built
// from the same members always compare equal and hash identically when
// used as a map key component.
type ModSet []Modifier

// NewModSet builds a sorted, de-duplicated ModSet.
func NewModSet(mods ...Modifier) ModSet {
	seen := map[Modifier]bool{}
	var out ModSet
	for _, m := range mods {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func (m ModSet) key() string {
	b := make([]byte, len(m))
	for i, mod := range m {
		b[i] = byte('0' + mod)
	}
	return string(b)
}

func (m ModSet) Empty() bool { return len(m) == 0 }

func (m ModSet) Has(mod Modifier) bool {
	for _, x := range m {
		if x == mod {
			return true
		}
	}
	return false
}

// KeyEvent is a single key press observation.
type KeyEvent struct {
	Key       Key
	Mods      ModSet
	Text      string
	Repeat    bool
	Timestamp time.Time
}

// Context is the keybinding resolution context a KeyEvent is evaluated
// under.
type Context uint8

const (
	ContextGlobal Context = iota
	ContextShell
	ContextAgent
	ContextVi
	ContextEmacs
)

// Binding is the (Key, ModSet, Context) lookup key for the binding map.
type Binding struct {
	Key     Key
	Mods    ModSet
	Context Context
}

func (b Binding) mapKey() string {
	return string(rune(b.Context)) + string(rune(b.Key.Kind)) + string(b.Key.Char) + b.Mods.key()
}

// Action is a resolved key binding: an Input Action plus the priority it
// was registered with, used to break ties among same-key bindings across
// contexts.
type Action struct {
	InputAction InputAction
	Priority    uint8
}

// InputAction is the closed set of actions the Input Processor can emit.
type InputAction struct {
	Kind   InputActionKind
	Text   string               // SendToTerminal, ExecuteCommand
	Parsed command.ParsedCommand // ExecuteParsedCommand
	Name   string                // Custom
	Args   []string              // Custom
}

// InputActionKind enumerates the InputAction variants.
type InputActionKind uint8

const (
	ActionSendToTerminal InputActionKind = iota
	ActionExecuteCommand
	ActionExecuteParsedCommand
	ActionScrollUp
	ActionScrollDown
	ActionScrollPageUp
	ActionScrollPageDown
	ActionScrollToTop
	ActionScrollToBottom
	ActionCopy
	ActionPaste
	ActionCut
	ActionSelectAll
	ActionClear
	ActionClearLine
	ActionInterrupt
	ActionEof
	ActionSuspend
	ActionResume
	ActionHistoryPrev
	ActionHistoryNext
	ActionHistorySearch
	ActionWindowNew
	ActionWindowClose
	ActionWindowNext
	ActionWindowPrev
	ActionWordBack
	ActionWordForward
	ActionLineStart
	ActionLineEnd
	ActionDeleteWord
	ActionDeleteToEnd
	ActionDeleteToStart
	ActionCustom
)

func sendText(s string) InputAction { return InputAction{Kind: ActionSendToTerminal, Text: s} }
