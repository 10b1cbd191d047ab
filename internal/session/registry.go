package session

import (
	"log/slog"
	"sync"
)

// Registry hands out at most one live controller per project id.
type Registry struct {
	mu          sync.Mutex
	deps        Deps
	controllers map[string]*Controller
}

// NewRegistry returns an empty registry wiring deps into every controller
// it creates.
func NewRegistry(deps Deps) *Registry {
	return &Registry{
		deps:        deps,
		controllers: make(map[string]*Controller),
	}
}

// GetOrCreate returns the project's controller, creating one on first
// use. Concurrent callers for the same project always receive the same
// instance. A controller whose child has exited but that was never
// explicitly closed stays registered; the subscriber decides whether to
// restart it or drop it via Remove.
func (r *Registry) GetOrCreate(projectID string) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ctrl, ok := r.controllers[projectID]; ok {
		return ctrl
	}

	ctrl := newController(projectID, r.deps)
	r.controllers[projectID] = ctrl
	slog.Info("session controller created", "project_id", projectID)
	return ctrl
}

// Get returns the project's controller, or nil when none exists.
func (r *Registry) Get(projectID string) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.controllers[projectID]
}

// Remove closes and unregisters the project's controller. Removing an
// unknown project is a no-op.
func (r *Registry) Remove(projectID string) {
	r.mu.Lock()
	ctrl, ok := r.controllers[projectID]
	delete(r.controllers, projectID)
	r.mu.Unlock()

	if !ok {
		return
	}
	ctrl.Close()
	slog.Info("session controller removed", "project_id", projectID)
}

// Projects lists the ids with a registered controller.
func (r *Registry) Projects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.controllers))
	for id := range r.controllers {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of registered controllers.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.controllers)
}
