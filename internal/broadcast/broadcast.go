// Package broadcast maps a project id to the single currently bound
// subscriber channel. There is no fan-out: binding a new channel replaces
// the previous one, and frames sent to an unbound project are dropped.
package broadcast

import (
	"encoding/json"
	"log/slog"
	"sync"
)

const channelBuffer = 256

// Registry delivers pre-marshaled JSON frames to at most one subscriber
// per project.
type Registry struct {
	mu       sync.RWMutex
	bindings map[string]chan []byte
}

// NewRegistry creates an empty registry. Construct one in main and inject
// it; the registry carries no global state.
func NewRegistry() *Registry {
	return &Registry{
		bindings: make(map[string]chan []byte),
	}
}

// Bind attaches a fresh subscriber channel for the project, replacing and
// closing any prior binding. In-flight frames buffered on the old channel
// are discarded, not replayed.
func (r *Registry) Bind(projectID string) <-chan []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.bindings[projectID]; ok {
		close(old)
	}
	ch := make(chan []byte, channelBuffer)
	r.bindings[projectID] = ch
	return ch
}

// Unbind removes the project's binding. Calling it for an unbound project
// is a no-op.
func (r *Registry) Unbind(projectID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ch, ok := r.bindings[projectID]; ok {
		close(ch)
		delete(r.bindings, projectID)
	}
}

// Release unbinds only if ch is still the project's current binding.
// A subscriber that was already replaced by a newer Bind must not tear
// down the replacement, so disconnect paths use this instead of Unbind.
func (r *Registry) Release(projectID string, ch <-chan []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.bindings[projectID]; ok && (<-chan []byte)(cur) == ch {
		close(cur)
		delete(r.bindings, projectID)
	}
}

// Bound reports whether a subscriber is currently attached.
func (r *Registry) Bound(projectID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.bindings[projectID]
	return ok
}

// Send marshals msg and delivers it to the bound subscriber. Sends to an
// unbound project are dropped before marshaling, so an unattended
// session's output costs no serialization work; a full subscriber buffer
// also drops rather than blocking the producer.
func (r *Registry) Send(projectID string, msg any) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ch, ok := r.bindings[projectID]
	if !ok {
		slog.Debug("broadcast: no subscriber bound", "project", projectID)
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("broadcast: marshal failed", "project", projectID, "error", err)
		return
	}
	select {
	case ch <- data:
	default:
		slog.Debug("broadcast: subscriber buffer full, dropping frame",
			"project", projectID)
	}
}
