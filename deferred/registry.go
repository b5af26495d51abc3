package deferred

import (
	"sync"

	"github.com/mamala42/remix/handoff"
)

// Registry is the per-document registry of deferred values, keyed by route
// id then key. It lives for the document lifetime and is torn down only
// with it. The streaming consumer is its only settling writer; renders
// never mutate it except to install a fresh pending entry on first
// reference.
type Registry struct {
	mu      sync.Mutex
	entries map[string]map[string]*Future
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]map[string]*Future)}
}

// Install returns the live future for (routeID, key), creating a pending
// one on first reference. Subsequent installs observe the same future.
func (r *Registry) Install(routeID, key string) *Future {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.installLocked(routeID, key)
}

func (r *Registry) installLocked(routeID, key string) *Future {
	byKey, ok := r.entries[routeID]
	if !ok {
		byKey = make(map[string]*Future)
		r.entries[routeID] = byKey
	}
	f, ok := byKey[key]
	if !ok {
		f = newFuture(routeID, key)
		byKey[key] = f
	}
	return f
}

// Lookup returns the future for (routeID, key) without installing one.
func (r *Registry) Lookup(routeID, key string) (*Future, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byKey, ok := r.entries[routeID]
	if !ok {
		return nil, false
	}
	f, ok := byKey[key]
	return f, ok
}

// ResolutionMessage is one streamed settlement: the Go-side form of the
// resolution script. Exactly one of Value and Error is meaningful.
type ResolutionMessage struct {
	RouteID string                   `json:"routeId"`
	Key     string                   `json:"key"`
	Value   any                      `json:"value,omitempty"`
	Error   *handoff.SerializedError `json:"error,omitempty"`
}

// Apply installs-if-absent then settles the entry for the message. The
// install-first step is what makes arrival order irrelevant: the resolver
// exists before the value is written whether the consumer or the producer
// ran first. Settling an already-terminal entry reports false.
func (r *Registry) Apply(msg ResolutionMessage) bool {
	r.mu.Lock()
	f := r.installLocked(msg.RouteID, msg.Key)
	r.mu.Unlock()

	if msg.Error != nil {
		return f.Reject(msg.Error.Reconstruct())
	}
	return f.Resolve(msg.Value)
}
