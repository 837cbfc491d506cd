package streamingui

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ferroterm/ferroterm/internal/ferrors"
	"github.com/ferroterm/ferroterm/internal/markdown"
	"github.com/ferroterm/ferroterm/internal/modelhost"
	"github.com/ferroterm/ferroterm/internal/modelhost/adapter"
	"github.com/ferroterm/ferroterm/internal/scrollbuf"
)

// InferStreamer is the subset of modelhost.Host the UI calls against.
// Accepting an interface (rather than *modelhost.Host directly) keeps
// this package testable without a real model registry.
type InferStreamer interface {
	InferStream(ctx context.Context, req adapter.Request) (<-chan adapter.StreamToken, error)
}

var _ InferStreamer = (*modelhost.Host)(nil)

// UI drives the streaming response lifecycle: it owns the active
// ResponseState, the event queue that serializes token arrivals against
// user input, the bounded response history, and the virtual scroll
// buffer the render loop paints from.
type UI struct {
	host     InferStreamer
	renderer Renderer
	config   Config
	streamer *markdown.Streamer

	mu              sync.Mutex
	current         *ResponseState
	history         *History
	buffer          *scrollbuf.Buffer
	typingIndicator bool
	width           int
	memoryUsage     uint64

	events    chan Event
	interrupt chan struct{}

	frames FrameStats

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New returns a UI ready to Start. width is the terminal column count
// used to lay out rendered lines; visibleHeight is the scroll window's
// row count.
func New(host InferStreamer, renderer Renderer, cfg Config, width, visibleHeight int) *UI {
	return &UI{
		host:      host,
		renderer:  renderer,
		config:    cfg,
		streamer:  markdown.NewStreamer(),
		history:   NewHistory(cfg.HistorySize),
		buffer:    scrollbuf.New(cfg.ScrollBufferLines, visibleHeight),
		width:     width,
		events:    make(chan Event, 256),
		interrupt: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start launches the background render/event loop. Call Stop to shut it
// down; Start must not be called more than once per UI.
func (u *UI) Start() {
	go u.loop()
}

// Stop halts the render/event loop and waits for it to exit.
func (u *UI) Stop() {
	u.stopOnce.Do(func() { close(u.stopCh) })
	<-u.doneCh
}

// StartStreamingResponse begins a new response: it creates the
// ResponseState, fires the typing indicator, and spawns the goroutine
// that drives req through the model host, forwarding tokens and
// completion/interruption/error as queued events. It returns the new
// response's id immediately; the response itself completes
// asynchronously.
func (u *UI) StartStreamingResponse(ctx context.Context, req adapter.Request) (string, error) {
	id := uuid.NewString()
	now := time.Now()

	u.mu.Lock()
	u.current = &ResponseState{
		ID:         id,
		StartLine:  u.currentLine(),
		CurrentLine: u.currentLine(),
		IsActive:   true,
		StartTime:  now,
		LastUpdate: now,
	}
	u.streamer.Reset()
	if u.config.TypingIndicatorEnabled {
		u.typingIndicator = true
	}
	u.mu.Unlock()

	if u.config.TypingIndicatorEnabled {
		u.enqueue(EventTypingIndicator{Enabled: true})
	}

	// Drain any stale interrupt signal from a prior response before
	// arming a fresh one.
	select {
	case <-u.interrupt:
	default:
	}

	req.ID = id
	req.Stream = true
	go u.driveInference(ctx, req)

	return id, nil
}

func (u *UI) driveInference(ctx context.Context, req adapter.Request) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tokens, err := u.host.InferStream(ctx, req)
	if err != nil {
		u.enqueue(EventErrorOccurred{Message: err.Error()})
		return
	}

	for {
		select {
		case <-u.interrupt:
			cancel()
			u.enqueue(EventResponseInterrupted{})
			return
		case tok, ok := <-tokens:
			if !ok {
				u.enqueue(EventResponseComplete{})
				return
			}
			u.enqueue(EventTokenReceived{Text: tok.Text})
			if tok.IsFinal {
				u.enqueue(EventResponseComplete{})
				return
			}
		}
	}
}

func (u *UI) enqueue(e Event) {
	select {
	case u.events <- e:
	case <-u.stopCh:
	}
}

// InterruptResponse signals the active response to stop and blocks until
// the inference goroutine acknowledges — the event loop processes its
// ResponseInterrupted (or a racing completion/error) and retires the
// response — or the configured interrupt deadline elapses. Only the
// event loop clears the active slot, so acknowledgement here means the
// interrupt was genuinely observed, not merely requested.
func (u *UI) InterruptResponse() error {
	start := time.Now()
	timeout := u.config.InterruptTimeout

	u.mu.Lock()
	if u.current == nil {
		u.mu.Unlock()
		return nil
	}
	u.current.IsInterrupted = true
	u.mu.Unlock()

	select {
	case u.interrupt <- struct{}{}:
	default:
	}

	ticker := time.NewTicker(interruptPollInterval)
	defer ticker.Stop()
	for time.Since(start) < timeout {
		<-ticker.C
		u.mu.Lock()
		retired := u.current == nil
		u.mu.Unlock()
		if retired {
			return nil
		}
	}
	return ferrors.New(ferrors.Timeout, "streamingui.InterruptResponse", "interrupt acknowledgement timed out")
}

// RequestScroll queues a scroll-by-delta-lines event.
func (u *UI) RequestScroll(delta int) { u.enqueue(EventScrollRequest{Delta: delta}) }

// RequestCopy queues a copy-current-response event, returning the
// content it will carry (empty if no response is active).
func (u *UI) RequestCopy() string {
	u.mu.Lock()
	content := ""
	if u.current != nil {
		content = u.current.Content
	}
	u.mu.Unlock()
	if content != "" {
		u.enqueue(EventCopyRequest{Content: content})
	}
	return content
}

// NavigateHistory moves the history cursor by one entry (negative:
// older, positive: newer) and re-renders the entry it lands on.
func (u *UI) NavigateHistory(direction int) error {
	u.mu.Lock()
	var (
		response ResponseState
		ok       bool
	)
	if direction < 0 {
		response, ok = u.history.NavigatePrevious()
	} else {
		response, ok = u.history.NavigateNext()
	}
	u.mu.Unlock()

	if !ok {
		return nil
	}
	return u.renderContent(response.Content)
}

// CurrentResponse returns a copy of the active response, if any.
func (u *UI) CurrentResponse() (ResponseState, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.current == nil {
		return ResponseState{}, false
	}
	return *u.current, true
}

// ClearHistory discards all retained responses.
func (u *UI) ClearHistory() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.history.Clear()
}

// SetWidth updates the column width used to lay out rendered lines.
func (u *UI) SetWidth(width int) {
	u.mu.Lock()
	u.width = width
	u.mu.Unlock()
}

func (u *UI) currentLine() int {
	return u.buffer.Len()
}

// loop is the single goroutine that owns all mutable UI state outside
// of the response/history locks: a render ticker and the event queue,
// selected over exactly as the original's tokio::select! render loop
// did, preserving FIFO delivery of events relative to render ticks.
func (u *UI) loop() {
	defer close(u.doneCh)

	ticker := time.NewTicker(u.config.RenderInterval)
	defer ticker.Stop()

	for {
		select {
		case <-u.stopCh:
			return
		case <-ticker.C:
			u.renderFrame()
		case e := <-u.events:
			u.handleEvent(e)
		}
	}
}

func (u *UI) handleEvent(e Event) {
	var err error
	switch ev := e.(type) {
	case EventTokenReceived:
		if tokErr := u.onTokenReceived(ev.Text); tokErr != nil {
			// A failed response is terminated like an inference error: the
			// driver is signalled to stop and the response is retired with
			// the failure appended.
			select {
			case u.interrupt <- struct{}{}:
			default:
			}
			err = u.onErrorOccurred(tokErr.Error())
		}
	case EventResponseComplete:
		err = u.onResponseComplete()
	case EventResponseInterrupted:
		err = u.onResponseInterrupted()
	case EventErrorOccurred:
		err = u.onErrorOccurred(ev.Message)
	case EventScrollRequest:
		u.mu.Lock()
		u.buffer.Scroll(ev.Delta)
		u.mu.Unlock()
	case EventCopyRequest:
		// Transport is the caller's concern; queuing the event is the
		// full contract here.
	case EventTypingIndicator:
		u.mu.Lock()
		u.typingIndicator = ev.Enabled
		u.mu.Unlock()
	}
	if err != nil {
		log.Printf("streamingui: event handling error: %v", err)
	}
}

func (u *UI) onTokenReceived(text string) error {
	u.mu.Lock()
	resp := u.current
	if resp == nil {
		u.mu.Unlock()
		return nil
	}
	resp.Content += text
	resp.TotalTokens++
	resp.LastUpdate = time.Now()

	elapsed := resp.LastUpdate.Sub(resp.StartTime).Seconds()
	if elapsed > 0 {
		resp.TokensPerSecond = float32(float64(resp.TotalTokens) / elapsed)
	}

	resp.MemoryUsage = uint64(len(resp.Content))
	u.memoryUsage = resp.MemoryUsage
	limit := u.config.MemoryLimitMB * 1024 * 1024
	over := limit > 0 && resp.MemoryUsage > limit
	over = over || (u.config.MaxResponseLength > 0 && len(resp.Content) > u.config.MaxResponseLength)
	content := resp.Content
	shouldRender := u.config.ProgressiveRendering && u.config.BatchSize > 0 && len(content)%u.config.BatchSize == 0
	u.mu.Unlock()

	if over {
		return ferrors.New(ferrors.MemoryLimit, "streamingui.onTokenReceived", "response exceeded configured memory limit")
	}
	if shouldRender {
		return u.renderContent(content)
	}
	return nil
}

func (u *UI) onResponseComplete() error {
	u.mu.Lock()
	u.typingIndicator = false
	resp := u.current
	u.current = nil
	u.mu.Unlock()

	if resp == nil {
		return nil
	}
	resp.IsActive = false

	if err := u.renderContent(resp.Content); err != nil {
		return err
	}

	u.mu.Lock()
	u.history.Add(*resp)
	u.mu.Unlock()
	return nil
}

func (u *UI) onResponseInterrupted() error {
	u.mu.Lock()
	u.typingIndicator = false
	resp := u.current
	u.current = nil
	if resp != nil {
		resp.IsInterrupted = true
		resp.IsActive = false
		resp.Content += "\n[INTERRUPTED]"
	}
	u.mu.Unlock()

	if resp == nil {
		return nil
	}
	if err := u.renderContent(resp.Content); err != nil {
		return err
	}
	u.mu.Lock()
	u.history.Add(*resp)
	u.mu.Unlock()
	return nil
}

func (u *UI) onErrorOccurred(message string) error {
	u.mu.Lock()
	u.typingIndicator = false
	resp := u.current
	u.current = nil
	if resp != nil {
		resp.IsActive = false
		resp.Content += "\n[ERROR: " + message + "]"
	}
	u.mu.Unlock()

	if resp == nil {
		return nil
	}
	if err := u.renderContent(resp.Content); err != nil {
		return err
	}
	u.mu.Lock()
	u.history.Add(*resp)
	u.mu.Unlock()
	return nil
}

// renderContent re-tokenizes content in full and replaces the virtual
// scroll buffer's contents with the freshly laid-out lines. Progressive
// rendering re-parses the whole response on every batch rather than
// diffing, matching what a markdown-aware terminal render pass needs
// anyway: upstream emphasis/lists can retroactively change earlier
// lines' styling as new characters close them off.
func (u *UI) renderContent(content string) error {
	tokens, err := markdown.ParseComplete(content)
	if err != nil {
		return err
	}

	u.mu.Lock()
	width := u.width
	u.mu.Unlock()

	lines := tokensToLines(tokens, width)

	u.mu.Lock()
	u.buffer.ReplaceAll(lines)
	u.mu.Unlock()

	return u.renderFrame()
}

func (u *UI) renderFrame() error {
	start := time.Now()

	u.mu.Lock()
	lines := append([]scrollbuf.Line(nil), u.buffer.GetVisibleLines()...)
	typing := u.typingIndicator
	u.mu.Unlock()

	u.renderer.RenderFrame(lines, typing)

	elapsed := time.Since(start)
	u.mu.Lock()
	u.frames.TotalFrames++
	if elapsed > u.config.RenderInterval {
		u.frames.SlowFrames++
	}
	// Exponentially weighted rolling average, 1/8 smoothing.
	if u.frames.RollingFrameTime == 0 {
		u.frames.RollingFrameTime = elapsed
	} else {
		u.frames.RollingFrameTime += (elapsed - u.frames.RollingFrameTime) / 8
	}
	if elapsed > u.frames.WorstFrameTime {
		u.frames.WorstFrameTime = elapsed
	}
	u.mu.Unlock()
	return nil
}

// FrameStats is the render loop's rolling pacing record: total ticks,
// ticks that overran the configured frame budget, a smoothed frame-time
// average, and the worst single frame observed.
type FrameStats struct {
	TotalFrames      uint64
	SlowFrames       uint64
	RollingFrameTime time.Duration
	WorstFrameTime   time.Duration
}

// FrameStats returns a snapshot of the render loop's pacing statistics.
func (u *UI) FrameStats() FrameStats {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.frames
}
