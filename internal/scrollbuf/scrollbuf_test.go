package scrollbuf

import "testing"

func addRaw(b *Buffer, raw string) {
	b.AddLine(raw, nil)
}

func rawLines(lines []Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Raw
	}
	return out
}

func TestBuffer_DropsOldestAtCapacity(t *testing.T) {
	b := New(3, 3)
	addRaw(b, "a")
	addRaw(b, "b")
	addRaw(b, "c")
	addRaw(b, "d")

	if b.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", b.Len())
	}
	got := rawLines(b.GetVisibleLines())
	want := []string{"b", "c", "d"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestBuffer_AutoFollowsAtBottom(t *testing.T) {
	b := New(10, 2)
	addRaw(b, "1")
	addRaw(b, "2")
	if !b.AtBottom() {
		t.Fatal("expected to be at bottom after filling the window")
	}
	addRaw(b, "3")
	got := rawLines(b.GetVisibleLines())
	if len(got) != 2 || got[0] != "2" || got[1] != "3" {
		t.Fatalf("expected window to follow to [2 3], got %v", got)
	}
}

func TestBuffer_ScrollingUpStopsAutoFollow(t *testing.T) {
	b := New(10, 2)
	for i := 0; i < 5; i++ {
		addRaw(b, string(rune('a'+i)))
	}
	// window currently at bottom: [d e]
	b.Scroll(-2)
	if b.AtBottom() {
		t.Fatal("expected scrolling up to leave bottom")
	}
	addRaw(b, "f")
	if b.AtBottom() {
		t.Fatal("expected a new line while scrolled up to not re-follow to bottom")
	}
}

func TestBuffer_ScrollToBottomRestoresFollow(t *testing.T) {
	b := New(10, 2)
	for i := 0; i < 5; i++ {
		addRaw(b, string(rune('a'+i)))
	}
	b.Scroll(-10)
	if b.VisibleStart() != 0 {
		t.Fatalf("VisibleStart() = %d, want 0 (clamped)", b.VisibleStart())
	}
	b.ScrollToBottom()
	if !b.AtBottom() {
		t.Fatal("expected ScrollToBottom to restore the bottom-follow invariant")
	}
}

func TestBuffer_ScrollClampsToValidRange(t *testing.T) {
	b := New(10, 3)
	for i := 0; i < 5; i++ {
		addRaw(b, string(rune('a'+i)))
	}
	b.Scroll(100)
	if !b.AtBottom() {
		t.Fatal("expected scrolling far past the end to clamp at bottom")
	}
	b.Scroll(-100)
	if b.VisibleStart() != 0 {
		t.Fatalf("VisibleStart() = %d, want 0", b.VisibleStart())
	}
}

func TestBuffer_TotalNeverExceedsLMax(t *testing.T) {
	b := New(4, 2)
	for i := 0; i < 100; i++ {
		addRaw(b, string(rune('a'+(i%26))))
	}
	if b.Len() != 4 {
		t.Fatalf("Len() = %d, want 4 (LMax)", b.Len())
	}
}

func TestBuffer_ReplaceAllPreservesFollowAndTrims(t *testing.T) {
	b := New(3, 2)
	addRaw(b, "stale")

	b.ReplaceAll([]Line{{Raw: "a"}, {Raw: "b"}, {Raw: "c"}, {Raw: "d"}})
	if b.Len() != 3 {
		t.Fatalf("Len() = %d, want 3 (trimmed to LMax)", b.Len())
	}
	got := rawLines(b.GetVisibleLines())
	if len(got) != 2 || got[0] != "c" || got[1] != "d" {
		t.Fatalf("expected window to follow replaced content to [c d], got %v", got)
	}

	b2 := New(10, 2)
	for i := 0; i < 5; i++ {
		addRaw(b2, string(rune('a'+i)))
	}
	b2.Scroll(-10)
	b2.ReplaceAll([]Line{{Raw: "x"}, {Raw: "y"}, {Raw: "z"}})
	if b2.AtBottom() {
		t.Fatal("expected ReplaceAll while scrolled up to leave the scroll position alone")
	}
}

func TestBuffer_Resize(t *testing.T) {
	b := New(10, 2)
	for i := 0; i < 5; i++ {
		addRaw(b, string(rune('a'+i)))
	}
	b.Resize(4)
	got := rawLines(b.GetVisibleLines())
	if len(got) != 4 {
		t.Fatalf("expected resized window of 4 lines, got %v", got)
	}
	if !b.AtBottom() {
		t.Fatal("expected Resize while at bottom to keep following")
	}
}
