package streamingui

import (
	"time"

	"github.com/ferroterm/ferroterm/internal/markdown"
)

// ResponseState tracks one in-flight or completed streaming response.
type ResponseState struct {
	ID             string
	Content        string
	MarkdownTokens []markdown.Token
	StartLine      int
	CurrentLine    int
	IsActive       bool
	IsInterrupted  bool
	TokensPerSecond float32
	TotalTokens    int
	StartTime      time.Time
	LastUpdate     time.Time
	MemoryUsage    uint64
}

// History is a bounded ring of past responses with a navigable cursor,
// the way a shell keeps command history: oldest entries fall off the
// front once MaxEntries is reached, and the cursor starts parked on the
// most recent entry after every append.
type History struct {
	responses []ResponseState
	current   int // index into responses; -1 means unset
	maxEntries int
}

// NewHistory returns an empty History bounded to maxEntries responses.
func NewHistory(maxEntries int) *History {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &History{maxEntries: maxEntries, current: -1}
}

// Add appends response, evicting the oldest entry first if at capacity,
// and parks the cursor on the newly added entry.
func (h *History) Add(response ResponseState) {
	if len(h.responses) >= h.maxEntries {
		h.responses = h.responses[1:]
	}
	h.responses = append(h.responses, response)
	h.current = len(h.responses) - 1
}

// Current returns the entry the cursor points at, or the most recent
// entry if the cursor has never been set.
func (h *History) Current() (ResponseState, bool) {
	if h.current >= 0 && h.current < len(h.responses) {
		return h.responses[h.current], true
	}
	if len(h.responses) > 0 {
		return h.responses[len(h.responses)-1], true
	}
	return ResponseState{}, false
}

// NavigatePrevious moves the cursor toward older entries, clamped at the
// oldest, and returns the entry it now points at.
func (h *History) NavigatePrevious() (ResponseState, bool) {
	if h.current >= 0 {
		if h.current > 0 {
			h.current--
		}
	} else if len(h.responses) > 0 {
		h.current = len(h.responses) - 1
	}
	return h.Current()
}

// NavigateNext moves the cursor toward newer entries, clamped at the
// newest, and returns the entry it now points at.
func (h *History) NavigateNext() (ResponseState, bool) {
	if h.current >= 0 && h.current+1 < len(h.responses) {
		h.current++
	}
	return h.Current()
}

// Clear empties the history and resets the cursor.
func (h *History) Clear() {
	h.responses = nil
	h.current = -1
}

// Len reports the number of retained responses.
func (h *History) Len() int { return len(h.responses) }
