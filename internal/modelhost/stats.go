package modelhost

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Stats is the plain-struct snapshot of the Model Host's running counters,
// returned by Host.Stats(). The same counters are also exported as
// Prometheus collectors (see the package-level metrics below) so a caller
// can use either surface.
type Stats struct {
	TotalRequests       uint64
	TotalTokens         uint64
	TotalInferenceTimeMS uint64
	Errors              uint64
	HotSwaps            uint64
	VramThrottles       uint64
	FallbackActivations uint64
	BatchRequests       uint64
	StreamRequests      uint64
	QueueWaitTimeMS     uint64
	ActiveWorkers       int
}

// counters holds the atomic fields backing both Stats() and the
// Prometheus collectors. One counters instance per Host.
type counters struct {
	totalRequests       atomic.Uint64
	totalTokens         atomic.Uint64
	totalInferenceTimeMS atomic.Uint64
	errors              atomic.Uint64
	hotSwaps            atomic.Uint64
	vramThrottles       atomic.Uint64
	fallbackActivations atomic.Uint64
	batchRequests       atomic.Uint64
	streamRequests      atomic.Uint64
	queueWaitTimeMS     atomic.Uint64
}

func newCounters() *counters { return &counters{} }

func (c *counters) recordInference(tokens int, elapsed time.Duration) {
	c.totalRequests.Add(1)
	c.totalTokens.Add(uint64(tokens))
	c.totalInferenceTimeMS.Add(uint64(elapsed.Milliseconds()))
	requestsTotal.Inc()
	tokensTotal.Add(float64(tokens))
}

func (c *counters) recordError() {
	c.errors.Add(1)
	errorsTotal.Inc()
}

func (c *counters) recordHotSwap() {
	c.hotSwaps.Add(1)
	hotSwapsTotal.Inc()
}

func (c *counters) recordVramThrottle() {
	c.vramThrottles.Add(1)
	vramThrottlesTotal.Inc()
}

func (c *counters) recordFallback() {
	c.fallbackActivations.Add(1)
	fallbackActivationsTotal.Inc()
}

func (c *counters) recordBatch()  { c.batchRequests.Add(1) }
func (c *counters) recordStream() { c.streamRequests.Add(1) }
func (c *counters) recordQueueWait(d time.Duration) {
	c.queueWaitTimeMS.Add(uint64(d.Milliseconds()))
}

func (c *counters) snapshot(activeWorkers int) Stats {
	return Stats{
		TotalRequests:        c.totalRequests.Load(),
		TotalTokens:          c.totalTokens.Load(),
		TotalInferenceTimeMS: c.totalInferenceTimeMS.Load(),
		Errors:               c.errors.Load(),
		HotSwaps:             c.hotSwaps.Load(),
		VramThrottles:        c.vramThrottles.Load(),
		FallbackActivations:  c.fallbackActivations.Load(),
		BatchRequests:        c.batchRequests.Load(),
		StreamRequests:       c.streamRequests.Load(),
		QueueWaitTimeMS:      c.queueWaitTimeMS.Load(),
		ActiveWorkers:        activeWorkers,
	}
}

// Prometheus collectors mirroring the atomic counters above. Global by
// design (no unbounded label cardinality, one Host per process in
// practice); registered once with the default registry in init.
var (
	requestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ferroterm_modelhost_requests_total",
		Help: "Total inference requests handled by the Model Host",
	})
	tokensTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ferroterm_modelhost_tokens_total",
		Help: "Total tokens generated across all inference requests",
	})
	errorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ferroterm_modelhost_errors_total",
		Help: "Total failed inference attempts (each failed model in a fallback chain counts once)",
	})
	hotSwapsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ferroterm_modelhost_hot_swaps_total",
		Help: "Total model hot-swap operations completed",
	})
	vramThrottlesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ferroterm_modelhost_vram_throttles_total",
		Help: "Total load attempts denied by the VRAM ledger",
	})
	fallbackActivationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ferroterm_modelhost_fallback_activations_total",
		Help: "Total inference requests served by a fallback model",
	})
	activeWorkersGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ferroterm_modelhost_active_workers",
		Help: "Current count of busy workers across all models",
	})
)

func init() {
	prometheus.MustRegister(requestsTotal, tokensTotal, errorsTotal, hotSwapsTotal,
		vramThrottlesTotal, fallbackActivationsTotal, activeWorkersGauge)
}

// PublishPrometheus updates the active-workers gauge to match a Stats
// snapshot. The monotonic counters are already kept in sync with
// Prometheus as events occur (see counters' record* methods); only the
// point-in-time gauge needs an explicit publish.
func PublishPrometheus(s Stats) {
	activeWorkersGauge.Set(float64(s.ActiveWorkers))
}
