package modelhost

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ferroterm/ferroterm/internal/modelhost/adapter"
)

// Worker is a single pool slot: an owned adapter instance plus the
// bookkeeping the Model Host needs to pick an available one.
type Worker struct {
	ID          int
	Adapter     adapter.Adapter
	busy        atomic.Bool
	lastUsed    atomic.Int64 // UnixNano
	requestCount atomic.Uint64
}

func newWorker(id int, a adapter.Adapter) *Worker {
	w := &Worker{ID: id, Adapter: a}
	w.lastUsed.Store(time.Now().UnixNano())
	return w
}

// TryAcquire marks the worker busy if it was free, returning whether it
// succeeded.
func (w *Worker) TryAcquire() bool {
	return w.busy.CompareAndSwap(false, true)
}

// Release marks the worker free again and records usage.
func (w *Worker) Release() {
	w.requestCount.Add(1)
	w.lastUsed.Store(time.Now().UnixNano())
	w.busy.Store(false)
}

// Busy reports whether the worker currently holds a request.
func (w *Worker) Busy() bool { return w.busy.Load() }

// LastUsed returns the worker's last-release timestamp.
func (w *Worker) LastUsed() time.Time {
	return time.Unix(0, w.lastUsed.Load())
}

// RequestCount returns the monotonic count of requests this worker has served.
func (w *Worker) RequestCount() uint64 { return w.requestCount.Load() }

// pool is a fixed-size set of workers for one model.
type pool struct {
	mu      sync.Mutex
	workers []*Worker
}

func newPool(workers []*Worker) *pool {
	return &pool{workers: workers}
}

// acquire scans the pool and returns the first free worker, in pool order.
func (p *pool) acquire() (*Worker, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, w := range p.workers {
		if w.TryAcquire() {
			return w, true
		}
	}
	return nil, false
}

func (p *pool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

func (p *pool) activeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, w := range p.workers {
		if w.Busy() {
			n++
		}
	}
	return n
}

func (p *pool) all() []*Worker {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Worker, len(p.workers))
	copy(out, p.workers)
	return out
}
