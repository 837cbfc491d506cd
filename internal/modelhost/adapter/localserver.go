package adapter

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/exec"
	"sync"
	"time"

	"github.com/google/shlex"

	"github.com/ferroterm/ferroterm/internal/ferrors"
)

// LocalServerConfig configures a local high-throughput inference server
// (an in-process-managed subprocess speaking an HTTP API, the vLLM-style
// adapter variant of spec §4.5).
type LocalServerConfig struct {
	Info Info
	// Command is the executable to spawn (e.g. a vLLM-style server binary).
	Command string
	// Args is a single shell-style argument string, tokenized the same way
	// the terminal's own shell-command execution path does.
	Args string
	// Endpoint is the base URL the spawned server listens on once ready.
	Endpoint string
	// StartupTimeout bounds how long Load waits for the server to answer
	// health checks after spawning.
	StartupTimeout time.Duration
}

// LocalServerAdapter manages a spawned local inference server process and
// proxies inference calls to it over HTTP.
type LocalServerAdapter struct {
	cfg    LocalServerConfig
	client *http.Client

	mu     sync.Mutex
	cmd    *exec.Cmd
	loaded bool
}

// NewLocalServerAdapter creates an adapter that will spawn and manage the
// configured server process on Load.
func NewLocalServerAdapter(cfg LocalServerConfig) *LocalServerAdapter {
	cfg.Info.Type = ModelTypeLocalServer
	if cfg.StartupTimeout == 0 {
		cfg.StartupTimeout = 30 * time.Second
	}
	return &LocalServerAdapter{cfg: cfg, client: &http.Client{Timeout: 60 * time.Second}}
}

func (a *LocalServerAdapter) Load(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.loaded {
		return nil
	}

	argv, err := shlex.Split(a.cfg.Args)
	if err != nil {
		return ferrors.Wrap(ferrors.Parse, "LocalServerAdapter.Load", "invalid server arguments", err)
	}

	path, err := exec.LookPath(a.cfg.Command)
	if err != nil {
		return ferrors.Wrap(ferrors.ModelLoadFailed, "LocalServerAdapter.Load", fmt.Sprintf("server binary %q not found", a.cfg.Command), err)
	}

	cmd := exec.CommandContext(context.Background(), path, argv...)
	if err := cmd.Start(); err != nil {
		return ferrors.Wrap(ferrors.ModelLoadFailed, "LocalServerAdapter.Load", "failed to start server process", err)
	}
	a.cmd = cmd

	deadline := time.Now().Add(a.cfg.StartupTimeout)
	for time.Now().Before(deadline) {
		if a.healthCheckOnce(ctx) == nil {
			a.loaded = true
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}

	_ = cmd.Process.Kill()
	a.cmd = nil
	return ferrors.New(ferrors.Timeout, "LocalServerAdapter.Load", "server did not become healthy within startup timeout")
}

func (a *LocalServerAdapter) Unload(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cmd != nil && a.cmd.Process != nil {
		_ = a.cmd.Process.Kill()
	}
	a.cmd = nil
	a.loaded = false
	return nil
}

func (a *LocalServerAdapter) IsLoaded() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loaded
}

func (a *LocalServerAdapter) GetModelInfo() Info { return a.cfg.Info }

func (a *LocalServerAdapter) SupportsStreaming() bool { return true }

func (a *LocalServerAdapter) SupportsBatch() bool { return true }

func (a *LocalServerAdapter) healthCheckOnce(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.Endpoint+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

func (a *LocalServerAdapter) HealthCheck(ctx context.Context) error {
	if !a.IsLoaded() {
		return ferrors.New(ferrors.ModelNotFound, "LocalServerAdapter.HealthCheck", fmt.Sprintf("model %s is not loaded", a.cfg.Info.Name))
	}
	if err := a.healthCheckOnce(ctx); err != nil {
		return ferrors.Wrap(ferrors.Timeout, "LocalServerAdapter.HealthCheck", "server health probe failed", err)
	}
	return nil
}

func (a *LocalServerAdapter) Warmup(ctx context.Context) error {
	_, err := a.Infer(ctx, Request{Prompt: "", ModelName: a.cfg.Info.Name, Parameters: Parameters{MaxTokens: 1}})
	return err
}

func (a *LocalServerAdapter) Infer(ctx context.Context, req Request) (Response, error) {
	if !a.IsLoaded() {
		return Response{}, ferrors.New(ferrors.ModelNotFound, "LocalServerAdapter.Infer", fmt.Sprintf("model %s is not loaded", a.cfg.Info.Name))
	}
	start := time.Now()
	body, err := json.Marshal(map[string]any{
		"prompt":      req.Prompt,
		"temperature": req.Parameters.Temperature,
		"max_tokens":  req.Parameters.MaxTokens,
		"stop":        req.Parameters.StopSequences,
	})
	if err != nil {
		return Response{}, ferrors.Wrap(ferrors.Parse, "LocalServerAdapter.Infer", "encode request", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.Endpoint+"/generate", bytes.NewReader(body))
	if err != nil {
		return Response{}, ferrors.Wrap(ferrors.Parse, "LocalServerAdapter.Infer", "build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := a.client.Do(httpReq)
	if err != nil {
		return Response{}, ferrors.Wrap(ferrors.Timeout, "LocalServerAdapter.Infer", "server call failed", err)
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	var text string
	for scanner.Scan() {
		text += scanner.Text()
	}
	elapsed := time.Since(start)
	return Response{
		Text:         text,
		TotalTokens:  len(text) / 4,
		FinishReason: FinishStop,
		Timing:       Timing{EvalMS: elapsed.Milliseconds(), TotalMS: elapsed.Milliseconds()},
		ModelUsed:    a.cfg.Info.Name,
	}, nil
}

func (a *LocalServerAdapter) InferStream(ctx context.Context, req Request) (<-chan StreamToken, error) {
	resp, err := a.Infer(ctx, req)
	if err != nil {
		return nil, err
	}
	out := make(chan StreamToken, 1)
	out <- StreamToken{Text: resp.Text, IsFinal: true, Index: 0}
	close(out)
	return out, nil
}

func (a *LocalServerAdapter) BatchInfer(ctx context.Context, reqs []Request) ([]Response, error) {
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
