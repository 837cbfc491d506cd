// Package modelhost is the orchestration core: it registers models,
// owns per-model worker pools, enforces a VRAM budget, routes inference
// requests through fallback chains, and supports hot-swapping the active
// model.
package modelhost

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ferroterm/ferroterm/internal/ferrors"
	"github.com/ferroterm/ferroterm/internal/modelhost/adapter"
	"github.com/ferroterm/ferroterm/internal/obslog"
)

// Host is the Model Host: registry of models, VRAM ledger, and the
// routing logic tying requests to workers.
type Host struct {
	mu    sync.RWMutex
	regs  map[string]*registration
	vram  *VRAMLedger
	stats *counters
	log   *obslog.Logger

	current string // name of the currently hot-swapped "active" model, if any
}

// New creates a Model Host with the given total VRAM budget in MB.
func New(vramTotalMB int64, log *obslog.Logger) *Host {
	if log == nil {
		log = obslog.Nop()
	}
	return &Host{
		regs:  make(map[string]*registration),
		vram:  NewVRAMLedger(vramTotalMB),
		stats: newCounters(),
		log:   log,
	}
}

// RegisterModel creates cfg.WarmPoolSize workers, each with an
// independently constructed adapter, and stores the model's
// configuration and fallback list. For local-type models this does not
// allocate VRAM; LoadModel does.
func (h *Host) RegisterModel(cfg ModelConfig) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cfg.WarmPoolSize <= 0 {
		cfg.WarmPoolSize = 1
	}
	workers := make([]*Worker, cfg.WarmPoolSize)
	for i := 0; i < cfg.WarmPoolSize; i++ {
		workers[i] = newWorker(i, cfg.AdapterFactory())
	}
	h.regs[cfg.Name] = &registration{
		cfg:   cfg,
		pool:  newPool(workers),
		local: isLocalType(cfg.Type),
	}
	return nil
}

// LoadModel loads every worker's adapter for the named model. It is a
// no-op if already loaded. For local-type models it first reserves VRAM
// from the ledger; on any worker's load failure, already-loaded workers
// are rolled back and VRAM is released.
func (h *Host) LoadModel(ctx context.Context, name string) error {
	reg, ok := h.lookup(name)
	if !ok {
		return ferrors.New(ferrors.ModelNotFound, "Host.LoadModel", fmt.Sprintf("model %q is not registered", name))
	}

	workers := reg.pool.all()
	alreadyLoaded := true
	for _, w := range workers {
		if !w.Adapter.IsLoaded() {
			alreadyLoaded = false
			break
		}
	}
	if alreadyLoaded {
		return nil
	}

	start := time.Now()
	if reg.local {
		if !h.vram.Allocate(reg.cfg.VramRequiredMB) {
			h.stats.recordVramThrottle()
			return ferrors.New(ferrors.VramExhausted, "Host.LoadModel",
				fmt.Sprintf("insufficient VRAM for %q: need %d MB, have %d MB available", name, reg.cfg.VramRequiredMB, h.vram.Available()))
		}
	}

	loaded := make([]*Worker, 0, len(workers))
	var loadErr error
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, w := range workers {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Adapter.Load(ctx); err != nil {
				mu.Lock()
				if loadErr == nil {
					loadErr = err
				}
				mu.Unlock()
				return
			}
			mu.Lock()
			loaded = append(loaded, w)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if loadErr != nil {
		for _, w := range loaded {
			_ = w.Adapter.Unload(ctx)
		}
		if reg.local {
			h.vram.Deallocate(reg.cfg.VramRequiredMB)
		}
		h.log.ModelLoad(name, false, time.Since(start).Milliseconds())
		return ferrors.Wrap(ferrors.ModelLoadFailed, "Host.LoadModel", fmt.Sprintf("model %q: partial load failure", name), loadErr)
	}

	for _, w := range workers {
		_ = w.Adapter.Warmup(ctx)
	}
	h.log.ModelLoad(name, true, time.Since(start).Milliseconds())
	return nil
}

// UnloadModel unloads every worker's adapter for the named model and,
// for local-type models, returns its VRAM reservation to the ledger. It
// is a no-op if no worker is loaded.
func (h *Host) UnloadModel(ctx context.Context, name string) error {
	reg, ok := h.lookup(name)
	if !ok {
		return ferrors.New(ferrors.ModelNotFound, "Host.UnloadModel", fmt.Sprintf("model %q is not registered", name))
	}

	anyLoaded := false
	for _, w := range reg.pool.all() {
		if w.Adapter.IsLoaded() {
			anyLoaded = true
			_ = w.Adapter.Unload(ctx)
		}
	}
	if anyLoaded && reg.local {
		h.vram.Deallocate(reg.cfg.VramRequiredMB)
	}

	h.mu.Lock()
	if h.current == name {
		h.current = ""
	}
	h.mu.Unlock()
	return nil
}

func (h *Host) lookup(name string) (*registration, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	reg, ok := h.regs[name]
	return reg, ok
}

// fallbackChain builds [primary] ++ (explicit OR configured fallback list).
func (h *Host) fallbackChain(primary string, explicit []string) []string {
	chain := []string{primary}
	if len(explicit) > 0 {
		return append(chain, explicit...)
	}
	if reg, ok := h.lookup(primary); ok {
		return append(chain, reg.cfg.FallbackModels...)
	}
	return chain
}

// Infer routes a unary inference request through the fallback chain,
// returning the first successful response.
func (h *Host) Infer(ctx context.Context, req adapter.Request) (adapter.Response, error) {
	chain := h.fallbackChain(req.ModelName, req.FallbackChain)

	var lastErr error
	for i, name := range chain {
		reg, ok := h.lookup(name)
		if !ok {
			lastErr = ferrors.New(ferrors.ModelNotFound, "Host.Infer", fmt.Sprintf("model %q is not registered", name))
			continue
		}

		worker, ok := reg.pool.acquire()
		if !ok {
			lastErr = ferrors.New(ferrors.PoolExhausted, "Host.Infer", fmt.Sprintf("all workers busy for model %q", name))
			continue
		}

		err := worker.Adapter.HealthCheck(ctx)
		if err == nil {
			var resp adapter.Response
			resp, err = worker.Adapter.Infer(ctx, req)
			if err == nil {
				worker.Release()
				resp.IsFallback = i > 0
				resp.ModelUsed = name
				h.stats.recordInference(resp.TotalTokens, time.Duration(resp.Timing.TotalMS)*time.Millisecond)
				if i > 0 {
					h.stats.recordFallback()
					h.log.Fallback(req.ModelName, name, len(chain))
				}
				return resp, nil
			}
		}
		worker.Release()
		h.stats.recordError()
		lastErr = err
	}

	return adapter.Response{}, ferrors.Wrap(ferrors.FallbackExhausted, "Host.Infer",
		fmt.Sprintf("all %d models in fallback chain failed", len(chain)), lastErr)
}

// InferStream acquires a worker for req.ModelName (no fallback: spec
// streams commit to one backend) and returns its token stream. The
// worker is released when the returned channel closes.
func (h *Host) InferStream(ctx context.Context, req adapter.Request) (<-chan adapter.StreamToken, error) {
	reg, ok := h.lookup(req.ModelName)
	if !ok {
		return nil, ferrors.New(ferrors.ModelNotFound, "Host.InferStream", fmt.Sprintf("model %q is not registered", req.ModelName))
	}
	worker, ok := reg.pool.acquire()
	if !ok {
		return nil, ferrors.New(ferrors.PoolExhausted, "Host.InferStream", fmt.Sprintf("all workers busy for model %q", req.ModelName))
	}

	upstream, err := worker.Adapter.InferStream(ctx, req)
	if err != nil {
		worker.Release()
		h.stats.recordError()
		return nil, err
	}

	h.stats.recordStream()
	out := make(chan adapter.StreamToken)
	go func() {
		defer close(out)
		defer worker.Release()
		for tok := range upstream {
			select {
			case out <- tok:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// BatchInfer groups requests by model name. Adapters that support batch
// get one BatchInfer call per group; others are served by repeated
// Infer calls. Parallelism per model is bounded by the model's
// max_concurrent. Responses preserve input order within each group;
// the overall sequence is a concatenation in group-emission order.
func (h *Host) BatchInfer(ctx context.Context, reqs []adapter.Request) ([]adapter.Response, error) {
	groups := make(map[string][]adapter.Request)
	order := make([]string, 0)
	for _, r := range reqs {
		if _, seen := groups[r.ModelName]; !seen {
			order = append(order, r.ModelName)
		}
		groups[r.ModelName] = append(groups[r.ModelName], r)
	}

	h.stats.recordBatch()
	var out []adapter.Response
	for _, name := range order {
		group := groups[name]
		reg, ok := h.lookup(name)
		if !ok {
			return nil, ferrors.New(ferrors.ModelNotFound, "Host.BatchInfer", fmt.Sprintf("model %q is not registered", name))
		}
		worker, ok := reg.pool.acquire()
		if !ok {
			return nil, ferrors.New(ferrors.PoolExhausted, "Host.BatchInfer", fmt.Sprintf("all workers busy for model %q", name))
		}

		var resps []adapter.Response
		var err error
		if worker.Adapter.SupportsBatch() {
			resps, err = h.boundedBatch(ctx, worker.Adapter, group, reg.cfg.MaxConcurrent)
		} else {
			resps = make([]adapter.Response, len(group))
			for i, r := range group {
				resps[i], err = worker.Adapter.Infer(ctx, r)
				if err != nil {
					break
				}
			}
		}
		worker.Release()
		if err != nil {
			h.stats.recordError()
			return nil, err
		}
		out = append(out, resps...)
	}
	return out, nil
}

func (h *Host) boundedBatch(ctx context.Context, a adapter.Adapter, reqs []adapter.Request, maxConcurrent int) ([]adapter.Response, error) {
	if maxConcurrent <= 0 || maxConcurrent >= len(reqs) {
		return a.BatchInfer(ctx, reqs)
	}
	out := make([]adapter.Response, len(reqs))
	var firstErr error
	var mu sync.Mutex
	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup
	for i, r := range reqs {
		i, r := i, r
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			resp, err := a.Infer(ctx, r)
			mu.Lock()
			defer mu.Unlock()
			if err != nil && firstErr == nil {
				firstErr = err
				return
			}
			out[i] = resp
		}()
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// RequestHotSwap switches the host's notion of the "current" model to
// target: it checks the target is registered, optionally verifies VRAM
// fits (unless force), unloads whatever is currently active, loads
// target, and updates current.
func (h *Host) RequestHotSwap(ctx context.Context, target string, force bool) error {
	reg, ok := h.lookup(target)
	if !ok {
		return ferrors.New(ferrors.ModelNotFound, "Host.RequestHotSwap", fmt.Sprintf("model %q is not registered", target))
	}

	if !force && reg.local {
		if reg.cfg.VramRequiredMB > h.vram.Available()+h.currentVramUsage() {
			h.stats.recordVramThrottle()
			return ferrors.New(ferrors.VramExhausted, "Host.RequestHotSwap",
				fmt.Sprintf("target %q does not fit even after freeing the active model", target))
		}
	}

	h.mu.Lock()
	previous := h.current
	h.mu.Unlock()

	start := time.Now()
	if previous != "" && previous != target {
		_ = h.UnloadModel(ctx, previous)
	}

	if err := h.LoadModel(ctx, target); err != nil {
		return err
	}

	h.mu.Lock()
	h.current = target
	h.mu.Unlock()

	h.stats.recordHotSwap()
	h.log.HotSwap(previous, target, true)
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		h.log.HotSwapSlow(previous, target, elapsed.Milliseconds())
	}
	return nil
}

func (h *Host) currentVramUsage() int64 {
	h.mu.RLock()
	current := h.current
	h.mu.RUnlock()
	if current == "" {
		return 0
	}
	if reg, ok := h.lookup(current); ok && reg.local {
		return reg.cfg.VramRequiredMB
	}
	return 0
}

// Stats returns a snapshot of the host's running counters.
func (h *Host) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	active := 0
	for _, reg := range h.regs {
		active += reg.pool.activeCount()
	}
	s := h.stats.snapshot(active)
	PublishPrometheus(s)
	return s
}

// VRAM exposes the host's ledger for diagnostics/tests.
func (h *Host) VRAM() *VRAMLedger { return h.vram }

// NewRequestID generates a fresh inference request id.
func NewRequestID() string { return uuid.NewString() }
