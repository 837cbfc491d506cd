// Package obslog is a JSONL structured activity logger: one line of JSON
// per event, used for the ambient activity trail (parse failures, model
// lifecycle events, interrupts, frame pacing overruns) rather than
// free-form debug output.
package obslog

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// Logger appends JSONL events to a file. A disabled Logger (or one
// created with Nop) is a complete no-op: it never creates the file.
type Logger struct {
	mu        sync.Mutex
	enabled   bool
	actor     string
	sessionID string
	file      *os.File
}

// New opens (creating if necessary) the log file at path when enabled is
// true. When enabled is false, every method is a no-op and the file is
// never touched.
func New(enabled bool, path, actor, sessionID string) *Logger {
	l := &Logger{enabled: enabled, actor: actor, sessionID: sessionID}
	if !enabled {
		return l
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		// Logging must never crash the terminal; fall back to disabled.
		l.enabled = false
		return l
	}
	l.file = f
	return l
}

// Nop returns a Logger that discards every event; safe to call all
// methods on, including Close.
func Nop() *Logger {
	return &Logger{enabled: false}
}

// Close closes the underlying file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

func (l *Logger) write(event string, fields map[string]any) {
	if !l.enabled {
		return
	}
	rec := map[string]any{
		"ts":         time.Now().UTC().Format(time.RFC3339Nano),
		"actor":      l.actor,
		"session_id": l.sessionID,
		"event":      event,
	}
	for k, v := range fields {
		rec[k] = v
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		_, _ = l.file.Write(data)
	}
}

// ParseError records a VT or agent-command parse failure that was
// recovered locally (the parser reset its own state; nothing propagated
// to the Grid).
func (l *Logger) ParseError(source, message string) {
	l.write("parse_error", map[string]any{"source": source, "message": message})
}

// ModelLoad records a load_model attempt and its outcome.
func (l *Logger) ModelLoad(model string, success bool, durationMS int64) {
	l.write("model_load", map[string]any{"model": model, "success": success, "duration_ms": durationMS})
}

// Fallback records a fallback-chain activation.
func (l *Logger) Fallback(requestedModel, usedModel string, chainLength int) {
	l.write("fallback", map[string]any{
		"requested_model": requestedModel,
		"used_model":      usedModel,
		"chain_length":    chainLength,
	})
}

// HotSwap records a model hot-swap request and its outcome.
func (l *Logger) HotSwap(from, to string, success bool) {
	l.write("hot_swap", map[string]any{"from": from, "to": to, "success": success})
}

// HotSwapSlow records a hot-swap that exceeded the 3s target time. A
// warning, not an error: the swap itself completed.
func (l *Logger) HotSwapSlow(from, to string, durationMS int64) {
	l.write("hot_swap_slow", map[string]any{"from": from, "to": to, "duration_ms": durationMS})
}

// Interrupt records an interrupt request and whether it was honoured
// within its deadline.
func (l *Logger) Interrupt(responseID string, honoured bool, elapsedMS int64) {
	l.write("interrupt", map[string]any{
		"response_id": responseID,
		"honoured":    honoured,
		"elapsed_ms":  elapsedMS,
	})
}

// FrameOverrun records a render-loop tick that exceeded its pacing
// budget.
func (l *Logger) FrameOverrun(budgetMS, actualMS int64) {
	l.write("frame_overrun", map[string]any{"budget_ms": budgetMS, "actual_ms": actualMS})
}

// VramThrottle records a VRAM allocation that was denied or throttled.
func (l *Logger) VramThrottle(model string, requestedMB, availableMB int64) {
	l.write("vram_throttle", map[string]any{
		"model":        model,
		"requested_mb": requestedMB,
		"available_mb": availableMB,
	})
}
