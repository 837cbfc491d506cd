package input

// ctxAction records which context an entry in the tie-break list came
// from, so a rebind replaces rather than duplicates it.
type ctxAction struct {
	ctx    Context
	action Action
}

// BindingMap holds the full set of registered keybindings, keyed by a
// flattened string so lookups avoid Go's (slower, allocation-heavy)
// struct-with-slice map keys.
type BindingMap struct {
	entries  map[string]Action
	byKeyMod map[string][]ctxAction // all entries sharing (Key, Mods), ignoring Context, for priority tie-breaking
}

func newBindingMap() *BindingMap {
	return &BindingMap{
		entries:  make(map[string]Action),
		byKeyMod: make(map[string][]ctxAction),
	}
}

func (m *BindingMap) insert(b Binding, a Action) {
	m.entries[b.mapKey()] = a
	km := keyModKey(b.Key, b.Mods)
	for i, c := range m.byKeyMod[km] {
		if c.ctx == b.Context {
			m.byKeyMod[km][i].action = a
			return
		}
	}
	m.byKeyMod[km] = append(m.byKeyMod[km], ctxAction{ctx: b.Context, action: a})
}

func (m *BindingMap) remove(b Binding) {
	delete(m.entries, b.mapKey())
	km := keyModKey(b.Key, b.Mods)
	list := m.byKeyMod[km]
	for i, c := range list {
		if c.ctx == b.Context {
			m.byKeyMod[km] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

func keyModKey(k Key, mods ModSet) string {
	return string(rune(k.Kind)) + string(k.Char) + mods.key()
}

func charKey(c rune) Key { return Key{Kind: KeyChar, Char: c} }
func namedKey(kind KeyKind) Key { return Key{Kind: kind} }

// defaultBindingMap reproduces the baseline keybindings: terminal-global
// control keys, copy/paste, scrolling, and the Emacs-style line-editing
// set.
func defaultBindingMap() *BindingMap {
	m := newBindingMap()

	add := func(key Key, mods ModSet, ctx Context, action InputAction, priority uint8) {
		m.insert(Binding{Key: key, Mods: mods, Context: ctx}, Action{InputAction: action, Priority: priority})
	}

	add(charKey('c'), NewModSet(ModCtrl), ContextGlobal, InputAction{Kind: ActionInterrupt}, 100)
	add(charKey('d'), NewModSet(ModCtrl), ContextGlobal, InputAction{Kind: ActionEof}, 100)
	add(charKey('z'), NewModSet(ModCtrl), ContextGlobal, InputAction{Kind: ActionSuspend}, 100)
	add(charKey('l'), NewModSet(ModCtrl), ContextGlobal, InputAction{Kind: ActionClear}, 90)

	add(charKey('c'), NewModSet(ModCtrl, ModShift), ContextGlobal, InputAction{Kind: ActionCopy}, 90)
	add(charKey('v'), NewModSet(ModCtrl, ModShift), ContextGlobal, InputAction{Kind: ActionPaste}, 90)
	add(charKey('x'), NewModSet(ModCtrl, ModShift), ContextGlobal, InputAction{Kind: ActionCut}, 90)
	add(charKey('a'), NewModSet(ModCtrl), ContextGlobal, InputAction{Kind: ActionSelectAll}, 80)

	add(namedKey(KeyPageUp), NewModSet(ModShift), ContextGlobal, InputAction{Kind: ActionScrollPageUp}, 80)
	add(namedKey(KeyPageDown), NewModSet(ModShift), ContextGlobal, InputAction{Kind: ActionScrollPageDown}, 80)
	add(namedKey(KeyHome), NewModSet(ModCtrl), ContextGlobal, InputAction{Kind: ActionScrollToTop}, 80)
	add(namedKey(KeyEnd), NewModSet(ModCtrl), ContextGlobal, InputAction{Kind: ActionScrollToBottom}, 80)

	add(charKey('a'), NewModSet(ModCtrl), ContextEmacs, InputAction{Kind: ActionLineStart}, 70)
	add(charKey('e'), NewModSet(ModCtrl), ContextEmacs, InputAction{Kind: ActionLineEnd}, 70)
	add(charKey('k'), NewModSet(ModCtrl), ContextEmacs, InputAction{Kind: ActionDeleteToEnd}, 70)
	add(charKey('u'), NewModSet(ModCtrl), ContextEmacs, InputAction{Kind: ActionDeleteToStart}, 70)
	add(charKey('w'), NewModSet(ModCtrl), ContextEmacs, InputAction{Kind: ActionDeleteWord}, 70)
	add(charKey('b'), NewModSet(ModAlt), ContextEmacs, InputAction{Kind: ActionWordBack}, 70)
	add(charKey('f'), NewModSet(ModAlt), ContextEmacs, InputAction{Kind: ActionWordForward}, 70)
	add(charKey('p'), NewModSet(ModCtrl), ContextEmacs, InputAction{Kind: ActionHistoryPrev}, 70)
	add(charKey('n'), NewModSet(ModCtrl), ContextEmacs, InputAction{Kind: ActionHistoryNext}, 70)
	add(charKey('r'), NewModSet(ModCtrl), ContextEmacs, InputAction{Kind: ActionHistorySearch}, 70)

	add(charKey('t'), NewModSet(ModCtrl, ModShift), ContextGlobal, InputAction{Kind: ActionWindowNew}, 60)
	add(charKey('w'), NewModSet(ModCtrl, ModShift), ContextGlobal, InputAction{Kind: ActionWindowClose}, 60)
	add(namedKey(KeyTab), NewModSet(ModCtrl), ContextGlobal, InputAction{Kind: ActionWindowNext}, 60)
	add(namedKey(KeyTab), NewModSet(ModCtrl, ModShift), ContextGlobal, InputAction{Kind: ActionWindowPrev}, 60)

	return m
}

// Rebind registers or overwrites a single keybinding.
func (m *BindingMap) Rebind(key Key, mods ModSet, ctx Context, action InputAction, priority uint8) {
	m.insert(Binding{Key: key, Mods: mods, Context: ctx}, Action{InputAction: action, Priority: priority})
}

// Unbind removes a single keybinding if present.
func (m *BindingMap) Unbind(key Key, mods ModSet, ctx Context) {
	m.remove(Binding{Key: key, Mods: mods, Context: ctx})
}

func (m *BindingMap) lookup(b Binding) (Action, bool) {
	if a, ok := m.entries[b.mapKey()]; ok {
		return a, true
	}
	global := Binding{Key: b.Key, Mods: b.Mods, Context: ContextGlobal}
	if b.Context != ContextGlobal {
		if a, ok := m.entries[global.mapKey()]; ok {
			return a, true
		}
	}
	candidates := m.byKeyMod[keyModKey(b.Key, b.Mods)]
	if len(candidates) == 0 {
		return Action{}, false
	}
	best := candidates[0].action
	for _, c := range candidates[1:] {
		if c.action.Priority > best.Priority {
			best = c.action
		}
	}
	return best, true
}
