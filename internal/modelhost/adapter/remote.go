package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/ferroterm/ferroterm/internal/ferrors"
)

// Provider distinguishes the request/response wire shape a RemoteHTTPAdapter
// speaks. All providers share the same transport plumbing; only request
// encoding and response decoding differ.
type Provider int

const (
	ProviderOpenAI Provider = iota
	ProviderAnthropic
	ProviderGemini
	ProviderOllama
	ProviderGeneric
)

// RemoteHTTPConfig configures a hosted-API adapter.
type RemoteHTTPConfig struct {
	Info        Info
	Provider    Provider
	Endpoint    string
	APIKeyEnv   string // env var holding the credential; never logged
	HTTPTimeout time.Duration
}

// RemoteHTTPAdapter calls a hosted inference API (OpenAI, Anthropic,
// Gemini, Ollama, or a generic JSON completion endpoint).
type RemoteHTTPAdapter struct {
	cfg    RemoteHTTPConfig
	client *http.Client
	apiKey SecureAPIKey
	loaded bool
}

// NewRemoteHTTPAdapter creates a remote adapter. The credential is read
// from cfg.APIKeyEnv once, at construction, and held only as a
// SecureAPIKey for the adapter's lifetime.
func NewRemoteHTTPAdapter(cfg RemoteHTTPConfig) *RemoteHTTPAdapter {
	cfg.Info.Type = ModelTypeRemoteHTTP
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 120 * time.Second
	}
	return &RemoteHTTPAdapter{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.HTTPTimeout},
		apiKey: NewSecureAPIKey(os.Getenv(cfg.APIKeyEnv)),
	}
}

func (a *RemoteHTTPAdapter) Load(ctx context.Context) error {
	if a.cfg.APIKeyEnv != "" && a.apiKey.Reveal() == "" {
		return ferrors.New(ferrors.Authentication, "RemoteHTTPAdapter.Load", fmt.Sprintf("missing credential: %s is not set", a.cfg.APIKeyEnv))
	}
	a.loaded = true
	return nil
}

func (a *RemoteHTTPAdapter) Unload(ctx context.Context) error {
	a.loaded = false
	return nil
}

func (a *RemoteHTTPAdapter) IsLoaded() bool { return a.loaded }

func (a *RemoteHTTPAdapter) GetModelInfo() Info { return a.cfg.Info }

func (a *RemoteHTTPAdapter) SupportsStreaming() bool { return true }

func (a *RemoteHTTPAdapter) SupportsBatch() bool { return false }

func (a *RemoteHTTPAdapter) HealthCheck(ctx context.Context) error {
	if !a.loaded {
		return ferrors.New(ferrors.ModelNotFound, "RemoteHTTPAdapter.HealthCheck", fmt.Sprintf("model %s is not loaded", a.cfg.Info.Name))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.Endpoint, nil)
	if err != nil {
		return ferrors.Wrap(ferrors.Parse, "RemoteHTTPAdapter.HealthCheck", "build request", err)
	}
	a.authorize(req)
	resp, err := a.client.Do(req)
	if err != nil {
		return ferrors.Wrap(ferrors.Timeout, "RemoteHTTPAdapter.HealthCheck", "endpoint unreachable", err)
	}
	resp.Body.Close()
	return nil
}

func (a *RemoteHTTPAdapter) Warmup(ctx context.Context) error { return nil }

func (a *RemoteHTTPAdapter) authorize(req *http.Request) {
	key := a.apiKey.Reveal()
	if key == "" {
		return
	}
	switch a.cfg.Provider {
	case ProviderAnthropic:
		req.Header.Set("x-api-key", key)
		req.Header.Set("anthropic-version", "2023-06-01")
	case ProviderGemini:
		q := req.URL.Query()
		q.Set("key", key)
		req.URL.RawQuery = q.Encode()
	default:
		req.Header.Set("Authorization", "Bearer "+key)
	}
	req.Header.Set("Content-Type", "application/json")
}

func (a *RemoteHTTPAdapter) encodeRequest(req Request) ([]byte, error) {
	switch a.cfg.Provider {
	case ProviderAnthropic:
		return json.Marshal(map[string]any{
			"model":       a.cfg.Info.Name,
			"max_tokens":  req.Parameters.MaxTokens,
			"temperature": req.Parameters.Temperature,
			"messages":    []map[string]string{{"role": "user", "content": req.Prompt}},
			"stream":      req.Stream,
		})
	case ProviderGemini:
		return json.Marshal(map[string]any{
			"contents": []map[string]any{{"parts": []map[string]string{{"text": req.Prompt}}}},
			"generationConfig": map[string]any{
				"temperature":     req.Parameters.Temperature,
				"maxOutputTokens": req.Parameters.MaxTokens,
			},
		})
	case ProviderOllama:
		return json.Marshal(map[string]any{
			"model":  a.cfg.Info.Name,
			"prompt": req.Prompt,
			"stream": req.Stream,
		})
	default: // OpenAI-compatible and generic
		return json.Marshal(map[string]any{
			"model":       a.cfg.Info.Name,
			"prompt":      req.Prompt,
			"temperature": req.Parameters.Temperature,
			"max_tokens":  req.Parameters.MaxTokens,
			"stream":      req.Stream,
		})
	}
}

type genericCompletion struct {
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason"`
}

func (a *RemoteHTTPAdapter) decodeResponse(body []byte) (Response, error) {
	var out Response
	switch a.cfg.Provider {
	case ProviderAnthropic:
		var parsed struct {
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
			StopReason string `json:"stop_reason"`
			Usage      struct {
				InputTokens  int `json:"input_tokens"`
				OutputTokens int `json:"output_tokens"`
			} `json:"usage"`
		}
		if err := json.Unmarshal(body, &parsed); err != nil {
			return out, err
		}
		for _, c := range parsed.Content {
			out.Text += c.Text
		}
		out.TokensGenerated = parsed.Usage.OutputTokens
		out.TotalTokens = parsed.Usage.InputTokens + parsed.Usage.OutputTokens
		out.FinishReason = finishReasonFromString(parsed.StopReason)
	case ProviderGemini:
		var parsed struct {
			Candidates []struct {
				Content struct {
					Parts []struct {
						Text string `json:"text"`
					} `json:"parts"`
				} `json:"content"`
				FinishReason string `json:"finishReason"`
			} `json:"candidates"`
		}
		if err := json.Unmarshal(body, &parsed); err != nil {
			return out, err
		}
		if len(parsed.Candidates) > 0 {
			for _, p := range parsed.Candidates[0].Content.Parts {
				out.Text += p.Text
			}
			out.FinishReason = finishReasonFromString(parsed.Candidates[0].FinishReason)
		}
	case ProviderOllama:
		var parsed struct {
			Response string `json:"response"`
			Done     bool   `json:"done"`
		}
		if err := json.Unmarshal(body, &parsed); err != nil {
			return out, err
		}
		out.Text = parsed.Response
		out.FinishReason = FinishStop
	default:
		var parsed struct {
			Choices []genericCompletion `json:"choices"`
		}
		if err := json.Unmarshal(body, &parsed); err != nil {
			return out, err
		}
		if len(parsed.Choices) > 0 {
			out.Text = parsed.Choices[0].Text
			out.FinishReason = finishReasonFromString(parsed.Choices[0].FinishReason)
		}
	}
	out.ModelUsed = a.cfg.Info.Name
	return out, nil
}

func finishReasonFromString(s string) FinishReason {
	switch s {
	case "length", "max_tokens", "MAX_TOKENS":
		return FinishLength
	case "", "stop", "end_turn", "STOP":
		return FinishStop
	default:
		return FinishError
	}
}

func (a *RemoteHTTPAdapter) Infer(ctx context.Context, req Request) (Response, error) {
	if !a.loaded {
		return Response{}, ferrors.New(ferrors.ModelNotFound, "RemoteHTTPAdapter.Infer", fmt.Sprintf("model %s is not loaded", a.cfg.Info.Name))
	}
	start := time.Now()
	body, err := a.encodeRequest(req)
	if err != nil {
		return Response{}, ferrors.Wrap(ferrors.Parse, "RemoteHTTPAdapter.Infer", "encode request", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, ferrors.Wrap(ferrors.Parse, "RemoteHTTPAdapter.Infer", "build request", err)
	}
	a.authorize(httpReq)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return Response{}, ferrors.Wrap(ferrors.Timeout, "RemoteHTTPAdapter.Infer", "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return Response{}, ferrors.New(ferrors.Authentication, "RemoteHTTPAdapter.Infer", fmt.Sprintf("credential rejected (status %d)", resp.StatusCode))
	}

	var respBody bytes.Buffer
	if _, err := respBody.ReadFrom(resp.Body); err != nil {
		return Response{}, ferrors.Wrap(ferrors.Parse, "RemoteHTTPAdapter.Infer", "read response body", err)
	}
	out, err := a.decodeResponse(respBody.Bytes())
	if err != nil {
		return Response{}, ferrors.Wrap(ferrors.Parse, "RemoteHTTPAdapter.Infer", "decode response", err)
	}
	elapsed := time.Since(start)
	out.Timing = Timing{EvalMS: elapsed.Milliseconds(), TotalMS: elapsed.Milliseconds()}
	return out, nil
}

func (a *RemoteHTTPAdapter) InferStream(ctx context.Context, req Request) (<-chan StreamToken, error) {
	resp, err := a.Infer(ctx, req)
	if err != nil {
		return nil, err
	}
	out := make(chan StreamToken, 1)
	out <- StreamToken{Text: resp.Text, IsFinal: true, Index: 0}
	close(out)
	return out, nil
}

func (a *RemoteHTTPAdapter) BatchInfer(ctx context.Context, reqs []Request) ([]Response, error) {
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
