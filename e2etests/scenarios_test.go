// Package e2etests drives the six concrete end-to-end scenarios across
// package boundaries: a command line through the Command Parser, raw
// PTY bytes through the VT Parser into the Grid, and a streamed
// response through the Model Host and Streaming UI.
package e2etests

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ferroterm/ferroterm/internal/command"
	"github.com/ferroterm/ferroterm/internal/grid"
	"github.com/ferroterm/ferroterm/internal/modelhost"
	"github.com/ferroterm/ferroterm/internal/modelhost/adapter"
	"github.com/ferroterm/ferroterm/internal/scrollbuf"
	"github.com/ferroterm/ferroterm/internal/streamingui"
	"github.com/ferroterm/ferroterm/internal/vtparse"
)

// Scenario 1: a plain line passes through unchanged.
func TestScenario_PlainLinePassesThrough(t *testing.T) {
	p := command.New("p")
	parsed, err := p.Parse("ls -la")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.Kind != command.KindTerminal || parsed.Terminal != "ls -la" {
		t.Fatalf("parsed = %+v", parsed)
	}
}

// Scenario 2: an agent command with a model override and no temperature
// or token limit collects prompt, override, and context.
func TestScenario_AgentCommandWithModelOverride(t *testing.T) {
	p := command.New("p")
	parsed, err := p.Parse("p --model gpt-4 explain rust")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.Kind != command.KindAgent {
		t.Fatalf("Kind = %v, want KindAgent", parsed.Kind)
	}
	agent := parsed.Agent
	if agent.Prompt != "explain rust" {
		t.Errorf("Prompt = %q, want %q", agent.Prompt, "explain rust")
	}
	if !agent.HasModel || agent.ModelOverride != "gpt-4" {
		t.Errorf("model override = %+v, want gpt-4", agent)
	}
	if agent.HasTemperature {
		t.Errorf("HasTemperature = true, want false")
	}
	if agent.HasMaxTokens {
		t.Errorf("HasMaxTokens = true, want false")
	}
	if agent.IsContinuation {
		t.Errorf("IsContinuation = true, want false")
	}
}

// Scenario 3: an out-of-range temperature fails to parse.
func TestScenario_OutOfRangeTemperatureFails(t *testing.T) {
	p := command.New("p")
	_, err := p.Parse("p --temp 5.0 creative")
	if err == nil {
		t.Fatal("expected a parse error for temperature out of range")
	}
}

// Scenario 4: CSI cursor-position bytes applied to a fresh 80x24 grid
// move the cursor and write the cell at its destination.
func TestScenario_CursorPositionAndPrint(t *testing.T) {
	g := grid.New(80, 24)
	parser := vtparse.New()

	actions := parser.Feed([]byte("\x1b[2;3HX"))
	g.Apply(actions)

	x, y, _ := g.Cursor()
	if x != 3 || y != 1 {
		t.Fatalf("cursor = (%d,%d), want (3,1)", x, y)
	}
	cell := g.Cell(2, 1)
	if cell.Char != 'X' {
		t.Fatalf("cell(2,1).Char = %q, want 'X'", cell.Char)
	}
}

type fakeStreamer struct {
	tokens []string
	delay  time.Duration
}

func (f *fakeStreamer) InferStream(ctx context.Context, req adapter.Request) (<-chan adapter.StreamToken, error) {
	ch := make(chan adapter.StreamToken, len(f.tokens))
	go func() {
		defer close(ch)
		for i, tok := range f.tokens {
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
			case ch <- adapter.StreamToken{Text: tok, Index: i, IsFinal: i == len(f.tokens)-1}:
			}
		}
	}()
	return ch, nil
}

type capturingRenderer struct {
	lastLines []scrollbuf.Line
}

func (r *capturingRenderer) RenderFrame(lines []scrollbuf.Line, typingIndicatorActive bool) {
	r.lastLines = lines
}

func (r *capturingRenderer) text() string {
	var sb strings.Builder
	for _, l := range r.lastLines {
		sb.WriteString(l.Raw)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Scenario 5: interrupting a streaming response after the second token
// leaves the interrupted content rendered with the interruption suffix,
// acknowledged within the configured deadline.
func TestScenario_InterruptMidStream(t *testing.T) {
	streamer := &fakeStreamer{tokens: []string{"Hello", " ", "world", "!"}, delay: 40 * time.Millisecond}
	renderer := &capturingRenderer{}
	cfg := streamingui.DefaultConfig()
	cfg.RenderInterval = 5 * time.Millisecond
	cfg.InterruptTimeout = 500 * time.Millisecond
	cfg.TypingIndicatorEnabled = false

	ui := streamingui.New(streamer, renderer, cfg, 80, 10)
	ui.Start()
	defer ui.Stop()

	if _, err := ui.StartStreamingResponse(context.Background(), adapter.Request{Prompt: "hi"}); err != nil {
		t.Fatalf("StartStreamingResponse: %v", err)
	}

	// Let the first two tokens ("Hello", " ") land before interrupting.
	time.Sleep(90 * time.Millisecond)

	start := time.Now()
	if err := ui.InterruptResponse(); err != nil {
		t.Fatalf("InterruptResponse: %v", err)
	}
	if elapsed := time.Since(start); elapsed > cfg.InterruptTimeout {
		t.Fatalf("interrupt took %v, want <= %v", elapsed, cfg.InterruptTimeout)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(renderer.text(), "INTERRUPTED") {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !strings.Contains(renderer.text(), "INTERRUPTED") {
		t.Fatalf("rendered content = %q, want it to contain INTERRUPTED", renderer.text())
	}
}

type fallbackAdapter struct {
	name string
	fail bool
}

func (f *fallbackAdapter) Load(ctx context.Context) error   { return nil }
func (f *fallbackAdapter) Unload(ctx context.Context) error { return nil }
func (f *fallbackAdapter) IsLoaded() bool                   { return true }
func (f *fallbackAdapter) GetModelInfo() adapter.Info       { return adapter.Info{Name: f.name} }
func (f *fallbackAdapter) SupportsStreaming() bool          { return true }
func (f *fallbackAdapter) SupportsBatch() bool              { return false }
func (f *fallbackAdapter) Warmup(ctx context.Context) error { return nil }
func (f *fallbackAdapter) HealthCheck(ctx context.Context) error { return nil }

func (f *fallbackAdapter) Infer(ctx context.Context, req adapter.Request) (adapter.Response, error) {
	if f.fail {
		return adapter.Response{}, errors.New("adapter forced failure")
	}
	return adapter.Response{Text: "ok from " + f.name, ModelUsed: f.name}, nil
}

func (f *fallbackAdapter) InferStream(ctx context.Context, req adapter.Request) (<-chan adapter.StreamToken, error) {
	out := make(chan adapter.StreamToken, 1)
	out <- adapter.StreamToken{Text: "ok from " + f.name, IsFinal: true}
	close(out)
	return out, nil
}

func (f *fallbackAdapter) BatchInfer(ctx context.Context, reqs []adapter.Request) ([]adapter.Response, error) {
	return nil, errors.New("not used")
}

// Scenario 6: model A fails and falls back to model B on an 8192MB
// ledger with both models costing 2048MB each.
func TestScenario_FallbackOnAdapterFailure(t *testing.T) {
	host := modelhost.New(8192, nil)

	err := host.RegisterModel(modelhost.ModelConfig{
		Name:           "A",
		Type:           adapter.ModelTypeLocalQuantized,
		VramRequiredMB: 2048,
		WarmPoolSize:   1,
		MaxConcurrent:  1,
		FallbackModels: []string{"B"},
		AdapterFactory: func() adapter.Adapter { return &fallbackAdapter{name: "A", fail: true} },
	})
	if err != nil {
		t.Fatalf("register A: %v", err)
	}
	err = host.RegisterModel(modelhost.ModelConfig{
		Name:           "B",
		Type:           adapter.ModelTypeLocalQuantized,
		VramRequiredMB: 2048,
		WarmPoolSize:   1,
		MaxConcurrent:  1,
		AdapterFactory: func() adapter.Adapter { return &fallbackAdapter{name: "B"} },
	})
	if err != nil {
		t.Fatalf("register B: %v", err)
	}

	if err := host.LoadModel(context.Background(), "A"); err != nil {
		t.Fatalf("load A: %v", err)
	}
	if err := host.LoadModel(context.Background(), "B"); err != nil {
		t.Fatalf("load B: %v", err)
	}

	before := host.Stats().FallbackActivations
	resp, err := host.Infer(context.Background(), adapter.Request{ModelName: "A"})
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if !resp.IsFallback || resp.ModelUsed != "B" {
		t.Fatalf("resp = %+v, want fallback to B", resp)
	}
	after := host.Stats().FallbackActivations
	if after-before != 1 {
		t.Fatalf("FallbackActivations delta = %d, want 1", after-before)
	}
}
