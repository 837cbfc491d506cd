package modelhost

import (
	"github.com/ferroterm/ferroterm/internal/modelhost/adapter"
)

// ModelConfig is the registration-time description of a model: enough to
// construct its adapter and workers, and to drive fallback/VRAM decisions
// without touching the adapter itself.
type ModelConfig struct {
	Name            string
	Type            adapter.ModelType
	ContextWindow   int
	VramRequiredMB  int64
	WarmPoolSize    int
	MaxConcurrent   int
	FallbackModels  []string
	DefaultParameters adapter.Parameters

	// AdapterFactory constructs one adapter instance for one worker. Called
	// WarmPoolSize times on registration.
	AdapterFactory func() adapter.Adapter
}

// registration is the Host's internal bookkeeping for one registered model.
type registration struct {
	cfg  ModelConfig
	pool *pool
	local bool // true for local-type models: registration doesn't allocate VRAM, Load does.
}

func isLocalType(t adapter.ModelType) bool {
	return t == adapter.ModelTypeLocalQuantized || t == adapter.ModelTypeLocalServer
}
