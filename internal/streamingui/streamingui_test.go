package streamingui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ferroterm/ferroterm/internal/markdown"
	"github.com/ferroterm/ferroterm/internal/modelhost/adapter"
	"github.com/ferroterm/ferroterm/internal/scrollbuf"
)

type fakeHost struct {
	tokens []string
	fail   error
	delay  time.Duration
}

func (f *fakeHost) InferStream(ctx context.Context, req adapter.Request) (<-chan adapter.StreamToken, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	ch := make(chan adapter.StreamToken, len(f.tokens))
	go func() {
		defer close(ch)
		for i, t := range f.tokens {
			if f.delay > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(f.delay):
				}
			}
			select {
			case <-ctx.Done():
				return
			case ch <- adapter.StreamToken{Text: t, Index: i, IsFinal: i == len(f.tokens)-1}:
			}
		}
	}()
	return ch, nil
}

type recordingRenderer struct {
	mu    sync.Mutex
	calls int
	last  []scrollbuf.Line
}

func (r *recordingRenderer) RenderFrame(lines []scrollbuf.Line, typing bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.last = lines
}

func (r *recordingRenderer) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func TestUI_StreamsTokensToCompletion(t *testing.T) {
	host := &fakeHost{tokens: []string{"hello ", "world"}}
	renderer := &recordingRenderer{}
	cfg := DefaultConfig()
	cfg.RenderInterval = 5 * time.Millisecond
	cfg.TypingIndicatorEnabled = false

	ui := New(host, renderer, cfg, 80, 10)
	ui.Start()
	defer ui.Stop()

	_, err := ui.StartStreamingResponse(context.Background(), adapter.Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("StartStreamingResponse: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		_, ok := ui.CurrentResponse()
		return !ok
	})

	ui.mu.Lock()
	n := ui.history.Len()
	ui.mu.Unlock()
	if n != 1 {
		t.Fatalf("history length = %d, want 1", n)
	}
}

func TestUI_InterruptResponseAcknowledgesBeforeTimeout(t *testing.T) {
	host := &fakeHost{tokens: []string{"a", "b", "c", "d", "e"}, delay: 50 * time.Millisecond}
	renderer := &recordingRenderer{}
	cfg := DefaultConfig()
	cfg.RenderInterval = 5 * time.Millisecond
	cfg.InterruptTimeout = 500 * time.Millisecond
	cfg.TypingIndicatorEnabled = false

	ui := New(host, renderer, cfg, 80, 10)
	ui.Start()
	defer ui.Stop()

	_, err := ui.StartStreamingResponse(context.Background(), adapter.Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("StartStreamingResponse: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if err := ui.InterruptResponse(); err != nil {
		t.Fatalf("InterruptResponse: %v", err)
	}
}

type hungHost struct{}

func (hungHost) InferStream(ctx context.Context, req adapter.Request) (<-chan adapter.StreamToken, error) {
	// Blocks inside the call itself: the driver goroutine never reaches
	// its select loop, so it cannot observe the interrupt signal.
	select {}
}

func TestUI_InterruptTimesOutWhenNotAcknowledged(t *testing.T) {
	renderer := &recordingRenderer{}
	cfg := DefaultConfig()
	cfg.RenderInterval = 5 * time.Millisecond
	cfg.InterruptTimeout = 50 * time.Millisecond
	cfg.TypingIndicatorEnabled = false

	ui := New(hungHost{}, renderer, cfg, 80, 10)
	ui.Start()
	defer ui.Stop()

	if _, err := ui.StartStreamingResponse(context.Background(), adapter.Request{Prompt: "hi"}); err != nil {
		t.Fatalf("StartStreamingResponse: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	start := time.Now()
	err := ui.InterruptResponse()
	if err == nil {
		t.Fatal("expected InterruptTimeout from an unacknowledged interrupt")
	}
	if elapsed := time.Since(start); elapsed < cfg.InterruptTimeout {
		t.Fatalf("returned after %v, want >= %v", elapsed, cfg.InterruptTimeout)
	}
}

func TestUI_ErrorOccurredDeactivatesResponse(t *testing.T) {
	host := &fakeHost{fail: errors.New("backend unavailable")}
	renderer := &recordingRenderer{}
	cfg := DefaultConfig()
	cfg.RenderInterval = 5 * time.Millisecond
	cfg.TypingIndicatorEnabled = false

	ui := New(host, renderer, cfg, 80, 10)
	ui.Start()
	defer ui.Stop()

	_, err := ui.StartStreamingResponse(context.Background(), adapter.Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("StartStreamingResponse: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		_, ok := ui.CurrentResponse()
		return !ok
	})

	ui.mu.Lock()
	resp, ok := ui.history.Current()
	ui.mu.Unlock()
	if !ok || !strings.Contains(resp.Content, "ERROR:") {
		t.Fatalf("history entry = %+v, want an ERROR marker", resp)
	}
}

func TestUI_NavigateHistoryMovesCursor(t *testing.T) {
	renderer := &recordingRenderer{}
	cfg := DefaultConfig()
	ui := New(&fakeHost{}, renderer, cfg, 80, 10)

	ui.history.Add(ResponseState{ID: "one", Content: "first"})
	ui.history.Add(ResponseState{ID: "two", Content: "second"})

	if err := ui.NavigateHistory(-1); err != nil {
		t.Fatalf("NavigateHistory: %v", err)
	}
	current, ok := ui.history.Current()
	if !ok || current.ID != "one" {
		t.Fatalf("current = %+v, want id=one", current)
	}
}

func TestHistory_BoundedAndNavigable(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Add(ResponseState{ID: string(rune('a' + i))})
	}
	if h.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", h.Len())
	}
	current, ok := h.Current()
	if !ok || current.ID != "e" {
		t.Fatalf("Current() = %+v, want id=e", current)
	}
	prev, _ := h.NavigatePrevious()
	if prev.ID != "d" {
		t.Fatalf("NavigatePrevious() = %+v, want id=d", prev)
	}
	next, _ := h.NavigateNext()
	if next.ID != "e" {
		t.Fatalf("NavigateNext() = %+v, want id=e", next)
	}
}

func TestTokensToLines_WrapsAtWidthAndBreaksOnLineBreak(t *testing.T) {
	lines := tokensToLines(nil, 5)
	if lines != nil {
		t.Fatalf("expected nil for no tokens, got %+v", lines)
	}

	lines = tokensToLines([]markdown.Token{
		{Kind: markdown.Text, Content: "abcdefg"},
		{Kind: markdown.LineBreak},
		{Kind: markdown.Text, Content: "hi"},
	}, 5)
	got := make([]string, len(lines))
	for i, l := range lines {
		got[i] = l.Raw
	}
	if want := "abcde|fg|hi"; strings.Join(got, "|") != want {
		t.Fatalf("lines = %q, want %q", strings.Join(got, "|"), want)
	}
}
