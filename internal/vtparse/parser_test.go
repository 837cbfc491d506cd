package vtparse

import (
	"testing"

	"github.com/ferroterm/ferroterm/internal/grid"
)

func TestFeedPrintsPlainASCII(t *testing.T) {
	p := New()
	actions := p.Feed([]byte("Hi"))
	if len(actions) != 2 {
		t.Fatalf("got %d actions, want 2", len(actions))
	}
	if actions[0].Kind != grid.ActionPrintChar || actions[0].Char != 'H' {
		t.Fatalf("actions[0] = %+v", actions[0])
	}
	if actions[1].Kind != grid.ActionPrintChar || actions[1].Char != 'i' {
		t.Fatalf("actions[1] = %+v", actions[1])
	}
}

func TestFeedCursorPosition(t *testing.T) {
	p := New()
	actions := p.Feed([]byte("\x1b[2;3H"))
	if len(actions) != 1 || actions[0].Kind != grid.ActionMoveCursor {
		t.Fatalf("actions = %+v", actions)
	}
	if actions[0].Row != 1 || actions[0].Col != 2 {
		t.Fatalf("move to row=%d col=%d, want row=1 col=2", actions[0].Row, actions[0].Col)
	}
}

func TestFeedCursorMoveDefaultsToOne(t *testing.T) {
	p := New()
	actions := p.Feed([]byte("\x1b[A"))
	if len(actions) != 1 || actions[0].Kind != grid.ActionMoveCursorUp || actions[0].N != 1 {
		t.Fatalf("actions = %+v", actions)
	}
}

func TestFeedSplitAcrossCalls(t *testing.T) {
	p := New()
	first := p.Feed([]byte("\x1b[2"))
	if len(first) != 0 {
		t.Fatalf("partial sequence should emit nothing, got %+v", first)
	}
	second := p.Feed([]byte(";3H"))
	if len(second) != 1 || second[0].Kind != grid.ActionMoveCursor {
		t.Fatalf("actions = %+v", second)
	}
}

func TestFeedUTF8AcrossCalls(t *testing.T) {
	p := New()
	// 'é' = 0xC3 0xA9
	first := p.Feed([]byte{0xC3})
	if len(first) != 0 {
		t.Fatalf("incomplete utf8 should emit nothing, got %+v", first)
	}
	second := p.Feed([]byte{0xA9})
	if len(second) != 1 || second[0].Char != 'é' {
		t.Fatalf("actions = %+v", second)
	}
}

func TestFeedMalformedEscapeDropsOnlyInProgressSequence(t *testing.T) {
	p := New()
	actions := p.Feed([]byte("A\x1bZB"))
	if len(actions) != 2 {
		t.Fatalf("got %d actions, want 2 (A and B survive, Z dropped): %+v", len(actions), actions)
	}
	if actions[0].Char != 'A' || actions[1].Char != 'B' {
		t.Fatalf("actions = %+v", actions)
	}
}

func TestFeedClearScreenMode(t *testing.T) {
	p := New()
	actions := p.Feed([]byte("\x1b[2J"))
	if len(actions) != 1 || actions[0].Kind != grid.ActionClearScreen {
		t.Fatalf("actions = %+v", actions)
	}
}

func TestFeedSGRResetOnEmptyParams(t *testing.T) {
	p := New()
	actions := p.Feed([]byte("\x1b[m"))
	if len(actions) != 1 || actions[0].Kind != grid.ActionResetAttributes {
		t.Fatalf("actions = %+v", actions)
	}
}

func TestFeedSGRUnknownParamsProduceNoActions(t *testing.T) {
	p := New()
	actions := p.Feed([]byte("\x1b[38m"))
	if len(actions) != 0 {
		t.Fatalf("actions = %+v, want none (malformed 38 missing ;5;N or ;2;r;g;b)", actions)
	}
}

func TestFeedSGRMultipleActionsFromOneSequence(t *testing.T) {
	p := New()
	actions := p.Feed([]byte("\x1b[1;4;31m"))
	if len(actions) != 3 {
		t.Fatalf("got %d actions, want 3 (bold, underline, red fg): %+v", len(actions), actions)
	}
	if actions[0].Kind != grid.ActionSetBold || !actions[0].On {
		t.Fatalf("actions[0] = %+v", actions[0])
	}
	if actions[1].Kind != grid.ActionSetUnderline || !actions[1].On {
		t.Fatalf("actions[1] = %+v", actions[1])
	}
	if actions[2].Kind != grid.ActionSetForeground || actions[2].Color != grid.NamedColorValue(grid.Red) {
		t.Fatalf("actions[2] = %+v", actions[2])
	}
}

func TestFeedSGRPaletteColor(t *testing.T) {
	p := New()
	actions := p.Feed([]byte("\x1b[38;5;200m"))
	if len(actions) != 1 || actions[0].Kind != grid.ActionSetForeground {
		t.Fatalf("actions = %+v", actions)
	}
	if actions[0].Color != grid.PaletteColor(200) {
		t.Fatalf("color = %+v", actions[0].Color)
	}
}

func TestFeedSGRDirectRGB(t *testing.T) {
	p := New()
	actions := p.Feed([]byte("\x1b[48;2;10;20;30m"))
	if len(actions) != 1 || actions[0].Kind != grid.ActionSetBackground {
		t.Fatalf("actions = %+v", actions)
	}
	if actions[0].Color != grid.RGBColor(10, 20, 30) {
		t.Fatalf("color = %+v", actions[0].Color)
	}
}

func TestFeedOSCDiscardedUntilTerminator(t *testing.T) {
	p := New()
	actions := p.Feed([]byte("\x1b]0;window title\x07X"))
	if len(actions) != 1 || actions[0].Char != 'X' {
		t.Fatalf("actions = %+v, want only the trailing X", actions)
	}
}

func TestFeedOSCTerminatedByST(t *testing.T) {
	p := New()
	actions := p.Feed([]byte("\x1b]0;title\x1b\\Y"))
	if len(actions) != 1 || actions[0].Char != 'Y' {
		t.Fatalf("actions = %+v", actions)
	}
}

func TestFeedCursorShowHide(t *testing.T) {
	p := New()
	actions := p.Feed([]byte("\x1b[?25l\x1b[25h"))
	if len(actions) != 2 {
		t.Fatalf("got %d actions, want 2: %+v", len(actions), actions)
	}
	if actions[0].Kind != grid.ActionHideCursor {
		t.Fatalf("actions[0] = %+v", actions[0])
	}
	if actions[1].Kind != grid.ActionShowCursor {
		t.Fatalf("actions[1] = %+v", actions[1])
	}
}

func TestFeedDeleteAndInsertDefaultCountOne(t *testing.T) {
	p := New()
	actions := p.Feed([]byte("\x1b[P"))
	if len(actions) != 1 || actions[0].Kind != grid.ActionDeleteChar || actions[0].N != 1 {
		t.Fatalf("actions = %+v", actions)
	}
}
