package adapter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ferroterm/ferroterm/internal/ferrors"
)

// InferenceRunner is the narrow seam a LocalQuantizedAdapter drives: it
// turns a prompt + parameters into generated text, one token at a time.
// A real deployment backs this with an MLC-style or llama.cpp-style
// quantized-model runtime; tests back it with a fake.
type InferenceRunner interface {
	// Generate streams tokens for prompt to out until done or until ctx is
	// cancelled. It does not close out; the adapter closes it after
	// Generate returns. Returns the finish reason and total token count.
	Generate(ctx context.Context, prompt string, params Parameters, out chan<- StreamToken) (FinishReason, int, error)
}

// LocalQuantizedAdapter wraps an in-process quantized-model runtime
// (the "local quantized" / MLC-style adapter variant of spec §4.5).
type LocalQuantizedAdapter struct {
	mu     sync.Mutex
	info   Info
	runner InferenceRunner
	loaded bool
}

// NewLocalQuantizedAdapter creates an adapter for the given model, driven
// by runner once loaded.
func NewLocalQuantizedAdapter(info Info, runner InferenceRunner) *LocalQuantizedAdapter {
	info.Type = ModelTypeLocalQuantized
	return &LocalQuantizedAdapter{info: info, runner: runner}
}

func (a *LocalQuantizedAdapter) Load(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.loaded = true
	return nil
}

func (a *LocalQuantizedAdapter) Unload(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.loaded = false
	return nil
}

func (a *LocalQuantizedAdapter) IsLoaded() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loaded
}

func (a *LocalQuantizedAdapter) GetModelInfo() Info { return a.info }

func (a *LocalQuantizedAdapter) SupportsStreaming() bool { return true }

func (a *LocalQuantizedAdapter) SupportsBatch() bool { return false }

func (a *LocalQuantizedAdapter) HealthCheck(ctx context.Context) error {
	if !a.IsLoaded() {
		return ferrors.New(ferrors.ModelNotFound, "LocalQuantizedAdapter.HealthCheck", fmt.Sprintf("model %s is not loaded", a.info.Name))
	}
	return nil
}

func (a *LocalQuantizedAdapter) Warmup(ctx context.Context) error {
	_, err := a.Infer(ctx, Request{Prompt: "", ModelName: a.info.Name, Parameters: Parameters{MaxTokens: 1}})
	return err
}

func (a *LocalQuantizedAdapter) Infer(ctx context.Context, req Request) (Response, error) {
	if !a.IsLoaded() {
		return Response{}, ferrors.New(ferrors.ModelNotFound, "LocalQuantizedAdapter.Infer", fmt.Sprintf("model %s is not loaded", a.info.Name))
	}
	start := time.Now()
	tokens := make(chan StreamToken, 8)
	done := make(chan struct{})
	var text string
	var total int
	var reason FinishReason
	var genErr error

	go func() {
		defer close(done)
		for tok := range tokens {
			text += tok.Text
		}
	}()
	reason, total, genErr = a.runner.Generate(ctx, req.Prompt, req.Parameters, tokens)
	close(tokens)
	<-done

	if genErr != nil {
		return Response{}, ferrors.Wrap(ferrors.ModelLoadFailed, "LocalQuantizedAdapter.Infer", "generation failed", genErr)
	}
	elapsed := time.Since(start)
	return Response{
		Text:            text,
		TokensGenerated: total,
		TotalTokens:     total,
		FinishReason:    reason,
		Timing:          Timing{EvalMS: elapsed.Milliseconds(), TotalMS: elapsed.Milliseconds()},
		ModelUsed:       a.info.Name,
	}, nil
}

func (a *LocalQuantizedAdapter) InferStream(ctx context.Context, req Request) (<-chan StreamToken, error) {
	if !a.IsLoaded() {
		return nil, ferrors.New(ferrors.ModelNotFound, "LocalQuantizedAdapter.InferStream", fmt.Sprintf("model %s is not loaded", a.info.Name))
	}
	out := make(chan StreamToken, 16)
	go func() {
		defer close(out)
		_, _, _ = a.runner.Generate(ctx, req.Prompt, req.Parameters, out)
	}()
	return out, nil
}

func (a *LocalQuantizedAdapter) BatchInfer(ctx context.Context, reqs []Request) ([]Response, error) {
	out := make([]Response, 0, len(reqs))
	for _, r := range reqs {
		resp, err := a.Infer(ctx, r)
		if err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	return out, nil
}
