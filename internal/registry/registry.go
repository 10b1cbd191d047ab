// Package registry loads agent launch profiles from YAML files so the
// terminal host receives already-resolved command strings.
package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

var profileIDPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type Registry struct {
	dir      string
	profiles map[string]*AgentProfile
	mu       sync.RWMutex
}

func NewRegistry(dir string) (*Registry, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("agents dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create registry dir: %w", err)
	}
	if err := ensureDefaults(dir); err != nil {
		return nil, err
	}

	r := &Registry{
		dir:      dir,
		profiles: make(map[string]*AgentProfile),
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Get returns a copy of the named profile, or nil if unknown.
func (r *Registry) Get(id string) *AgentProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[id]
	if !ok {
		return nil
	}
	return cloneProfile(p)
}

// List returns all profiles sorted by id.
func (r *Registry) List() []*AgentProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*AgentProfile, 0, len(r.profiles))
	for _, p := range r.profiles {
		result = append(result, cloneProfile(p))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Reload re-reads every YAML profile from the registry dir. Invalid files
// are skipped with an error only when nothing loads at all.
func (r *Registry) Reload() error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("read registry dir: %w", err)
	}

	loaded := make(map[string]*AgentProfile)
	var firstErr error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.ToLower(entry.Name())
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		p, err := loadProfile(filepath.Join(r.dir, entry.Name()))
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		loaded[p.ID] = p
	}

	if len(loaded) == 0 && firstErr != nil {
		return firstErr
	}

	r.mu.Lock()
	r.profiles = loaded
	r.mu.Unlock()
	return nil
}

func loadProfile(path string) (*AgentProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile %q: %w", path, err)
	}
	var p AgentProfile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile %q: %w", path, err)
	}
	if !profileIDPattern.MatchString(p.ID) {
		return nil, fmt.Errorf("profile %q has invalid id %q", path, p.ID)
	}
	if strings.TrimSpace(p.Command) == "" {
		return nil, fmt.Errorf("profile %q has no command", path)
	}
	return &p, nil
}

func cloneProfile(p *AgentProfile) *AgentProfile {
	clone := *p
	clone.AllowedTools = append([]string(nil), p.AllowedTools...)
	clone.DisallowedTools = append([]string(nil), p.DisallowedTools...)
	return &clone
}
