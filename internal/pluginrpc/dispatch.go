package pluginrpc

import (
	"fmt"
	"sync"

	"github.com/ferroterm/ferroterm/internal/ferrors"
)

// Handler answers one RPC message for a registered plugin. Concrete
// transports adapt whatever wire format they use into a Message and a
// Handler call.
type Handler func(pluginName string, msg Message) (Response, error)

// Registry tracks registered plugin manifests and routes Dispatch calls
// through a rate limit and a capability check before a Handler ever
// sees the message — the transport (actual broker) is the caller's
// concern; this is the full policy surface spec.md's plugin contract
// names.
type Registry struct {
	limiter *RateLimiter

	mu        sync.RWMutex
	manifests map[string]Manifest
}

// NewRegistry returns an empty plugin Registry.
func NewRegistry() *Registry {
	return &Registry{
		limiter:   NewRateLimiter(),
		manifests: make(map[string]Manifest),
	}
}

// Register records a plugin's manifest, replacing any prior manifest
// and resetting its rate-limit window for the name. A manifest with no
// positive RateLimitPerSecond is given the default of 30 requests per
// second.
func (r *Registry) Register(m Manifest) {
	if m.RateLimitPerSecond <= 0 {
		m.RateLimitPerSecond = 30
	}
	r.mu.Lock()
	r.manifests[m.Name] = m
	r.mu.Unlock()
	r.limiter.Reset(m.Name)
}

// Unregister removes a plugin's manifest and its rate-limit state.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	delete(r.manifests, name)
	r.mu.Unlock()
	r.limiter.Reset(name)
}

// Dispatch checks pluginName's rate limit, then its capability to send
// msg, and only then invokes handle. Checks run in that order because a
// plugin exceeding its rate budget shouldn't need a valid capability to
// be told so.
func (r *Registry) Dispatch(pluginName string, msg Message, handle Handler) (Response, error) {
	r.mu.RLock()
	manifest, ok := r.manifests[pluginName]
	r.mu.RUnlock()
	if !ok {
		return Response{}, ferrors.New(ferrors.PluginNotFound, "pluginrpc.Dispatch", fmt.Sprintf("no registered plugin %q", pluginName))
	}

	if !r.limiter.Allow(pluginName, manifest.RateLimitPerSecond) {
		return Response{}, ferrors.New(ferrors.RateLimitExceeded, "pluginrpc.Dispatch", fmt.Sprintf("plugin %q exceeded its rate limit of %d req/s", pluginName, manifest.RateLimitPerSecond))
	}

	if required, needsCheck := requiredCapability(msg); needsCheck && !manifest.HasCapability(required) {
		return Response{}, ferrors.New(ferrors.CapabilityDenied, "pluginrpc.Dispatch", fmt.Sprintf("plugin %q lacks capability %s", pluginName, required))
	}

	return handle(pluginName, msg)
}
