package ptyboundary

import (
	"testing"
	"time"
)

func feed(b *Boundary, s string) {
	actions := b.Parser.Feed([]byte(s))
	b.Grid.Apply(actions)
	b.capturePlainHistory([]byte(s))
}

func TestBoundary_FeedsGridThroughParser(t *testing.T) {
	b := New(5, 10, 100)
	feed(b, "hello")
	if c := b.Grid.Cell(0, 0); c.Char != 'h' {
		t.Fatalf("cell(0,0) = %q, want h", c.Char)
	}
}

func TestBoundary_ScrollCapturesIntoScrollback(t *testing.T) {
	b := New(2, 5, 100)
	feed(b, "AAAAA\r\n")
	feed(b, "BBBBB\r\n")
	feed(b, "CCCCC\r\n")

	lines := b.Scrollback.GetVisibleLines()
	if len(lines) == 0 {
		t.Fatal("expected at least one captured scrollback line")
	}
	found := false
	for _, l := range lines {
		if l.Raw == "AAAAA" {
			found = true
		}
	}
	if !found {
		t.Fatalf("scrollback = %+v, want to contain the row that scrolled off the top", lines)
	}
}

func TestBoundary_PlainHistoryCapturesLogicalLines(t *testing.T) {
	b := New(5, 20, 100)
	feed(b, "first line\n")
	feed(b, "second line\n")

	if len(b.PlainHistory) != 2 {
		t.Fatalf("PlainHistory = %+v, want 2 lines", b.PlainHistory)
	}
	if b.PlainHistory[0] != "first line" || b.PlainHistory[1] != "second line" {
		t.Fatalf("PlainHistory = %+v", b.PlainHistory)
	}
}

func TestBoundary_DECSTBMSetsScrollRegionUsed(t *testing.T) {
	b := New(5, 20, 100)
	if b.ScrollRegionUsed {
		t.Fatal("ScrollRegionUsed should start false")
	}
	feed(b, "\x1b[2;4r")
	if !b.ScrollRegionUsed {
		t.Fatal("expected ScrollRegionUsed after DECSTBM")
	}
}

func TestBoundary_CursorHomeDiscardsAccumulatedPlainLine(t *testing.T) {
	b := New(5, 20, 100)
	feed(b, "partial")
	feed(b, "\x1b[H")
	feed(b, "\n")
	if len(b.PlainHistory) != 1 || b.PlainHistory[0] != "" {
		t.Fatalf("PlainHistory = %+v, want discarded partial line", b.PlainHistory)
	}
}

func TestBoundary_IsIdleReflectsLastOutput(t *testing.T) {
	b := New(5, 20, 100)
	if b.IsIdle(time.Millisecond) {
		t.Fatal("never-written boundary should not report idle")
	}
	b.LastOut = time.Now().Add(-time.Second)
	if !b.IsIdle(100 * time.Millisecond) {
		t.Fatal("expected idle after exceeding the threshold")
	}
}

func TestBoundary_ResetScrollHistoryClears(t *testing.T) {
	b := New(2, 5, 100)
	feed(b, "AAAAA\r\n")
	feed(b, "BBBBB\r\n")
	if b.Scrollback.Len() == 0 {
		t.Fatal("expected captured scrollback before reset")
	}
	b.ResetScrollHistory()
	if b.Scrollback.Len() != 0 {
		t.Fatalf("Scrollback.Len() = %d after reset, want 0", b.Scrollback.Len())
	}
}

func TestBoundary_ResetPlainHistoryClears(t *testing.T) {
	b := New(5, 20, 100)
	feed(b, "a line\n")
	b.ResetPlainHistory()
	if len(b.PlainHistory) != 0 || b.plainParseState != plainParseNormal {
		t.Fatalf("PlainHistory/state not reset: %+v state=%d", b.PlainHistory, b.plainParseState)
	}
}
