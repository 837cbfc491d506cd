package adapter

import (
	"context"
	"errors"
	"testing"
)

type fakeRunner struct {
	text string
	err  error
}

func (f *fakeRunner) Generate(ctx context.Context, prompt string, params Parameters, out chan<- StreamToken) (FinishReason, int, error) {
	if f.err != nil {
		return FinishError, 0, f.err
	}
	out <- StreamToken{Text: f.text, IsFinal: true, Index: 0}
	return FinishStop, len(f.text), nil
}

func TestLocalQuantizedAdapterInferRequiresLoad(t *testing.T) {
	a := NewLocalQuantizedAdapter(Info{Name: "tiny"}, &fakeRunner{text: "hi"})
	if _, err := a.Infer(context.Background(), Request{ModelName: "tiny"}); err == nil {
		t.Fatal("expected error before load")
	}
}

func TestLocalQuantizedAdapterInferAfterLoad(t *testing.T) {
	a := NewLocalQuantizedAdapter(Info{Name: "tiny"}, &fakeRunner{text: "hello world"})
	if err := a.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	resp, err := a.Infer(context.Background(), Request{ModelName: "tiny", Prompt: "hi"})
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if resp.Text != "hello world" {
		t.Errorf("text = %q", resp.Text)
	}
	if resp.ModelUsed != "tiny" {
		t.Errorf("model used = %q", resp.ModelUsed)
	}
}

func TestLocalQuantizedAdapterGenerationFailure(t *testing.T) {
	a := NewLocalQuantizedAdapter(Info{Name: "tiny"}, &fakeRunner{err: errors.New("boom")})
	a.Load(context.Background())
	if _, err := a.Infer(context.Background(), Request{ModelName: "tiny"}); err == nil {
		t.Fatal("expected generation error to propagate")
	}
}

func TestLocalQuantizedAdapterUnloadResetsLoaded(t *testing.T) {
	a := NewLocalQuantizedAdapter(Info{Name: "tiny"}, &fakeRunner{text: "x"})
	a.Load(context.Background())
	a.Unload(context.Background())
	if a.IsLoaded() {
		t.Fatal("expected not loaded after Unload")
	}
}

func TestSecureAPIKeyNeverPrintsValue(t *testing.T) {
	k := NewSecureAPIKey("sk-super-secret")
	if k.String() == "sk-super-secret" {
		t.Fatal("String() must not expose the raw key")
	}
	if got := k.Reveal(); got != "sk-super-secret" {
		t.Errorf("Reveal() = %q", got)
	}
}

func TestSecureAPIKeyEmptyRedaction(t *testing.T) {
	k := NewSecureAPIKey("")
	if k.String() != "<empty>" {
		t.Errorf("String() = %q, want <empty>", k.String())
	}
}

func TestRemoteHTTPAdapterLoadFailsWithoutCredential(t *testing.T) {
	t.Setenv("FERROTERM_TEST_MISSING_KEY", "")
	a := NewRemoteHTTPAdapter(RemoteHTTPConfig{
		Info:      Info{Name: "gpt-4"},
		Provider:  ProviderOpenAI,
		APIKeyEnv: "FERROTERM_TEST_MISSING_KEY",
	})
	if err := a.Load(context.Background()); err == nil {
		t.Fatal("expected authentication error for missing credential")
	}
}

func TestRemoteHTTPAdapterLoadSucceedsWithCredential(t *testing.T) {
	t.Setenv("FERROTERM_TEST_KEY", "sk-present")
	a := NewRemoteHTTPAdapter(RemoteHTTPConfig{
		Info:      Info{Name: "gpt-4"},
		Provider:  ProviderOpenAI,
		APIKeyEnv: "FERROTERM_TEST_KEY",
	})
	if err := a.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestFinishReasonFromString(t *testing.T) {
	cases := map[string]FinishReason{
		"length":     FinishLength,
		"max_tokens": FinishLength,
		"stop":       FinishStop,
		"":           FinishStop,
		"content_filter": FinishError,
	}
	for in, want := range cases {
		if got := finishReasonFromString(in); got != want {
			t.Errorf("finishReasonFromString(%q) = %v, want %v", in, got, want)
		}
	}
}
