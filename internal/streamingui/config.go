// Package streamingui drives one inference response from first token to
// final render: it owns the response's lifecycle, the event queue that
// serializes token arrivals against user input, the frame-paced render
// loop, and the bounded history of past responses.
//
// Grounded on original_source/src/streaming_ui.rs (StreamingUI /
// ResponseState / StreamingEvent / ResponseHistory / VirtualScrollBuffer),
// adapted to the teacher's idiom for a long-running event loop
// (internal/session/daemon.go's accept-loop-plus-background-goroutine
// shape, internal/overlay's render-then-compose-output structure) and
// wired onto internal/modelhost's adapter.Request/StreamToken contract
// and internal/markdown/internal/scrollbuf instead of hand-rolling
// markdown parsing and scrollback again.
package streamingui

import "time"

// Config controls one StreamingUI instance. Defaults mirror the original
// implementation's tuning.
type Config struct {
	MaxResponseLength         int
	MemoryLimitMB             uint64
	InterruptTimeout          time.Duration
	ScrollBufferLines         int
	TypingIndicatorEnabled    bool
	SyntaxHighlightingEnabled bool
	ProgressiveRendering      bool
	BatchSize                 int
	RenderInterval            time.Duration
	HistorySize               int
}

// DefaultConfig returns the tuning the original implementation shipped
// with: a 1MB response cap, a 10MB memory ceiling, a 100ms interrupt
// deadline, a 10000-line scrollback, 64-character progressive render
// batches at a 16ms (~60Hz) render tick, and a 100-entry response
// history.
func DefaultConfig() Config {
	return Config{
		MaxResponseLength:         1_000_000,
		MemoryLimitMB:             10,
		InterruptTimeout:          100 * time.Millisecond,
		ScrollBufferLines:         10000,
		TypingIndicatorEnabled:    true,
		SyntaxHighlightingEnabled: true,
		ProgressiveRendering:      true,
		BatchSize:                 64,
		RenderInterval:            16 * time.Millisecond,
		HistorySize:               100,
	}
}

const interruptPollInterval = 10 * time.Millisecond
