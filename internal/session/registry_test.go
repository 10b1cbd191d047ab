package session

import (
	"sync"
	"testing"

	"github.com/user/claudeterm/internal/broadcast"
)

func testDeps(t *testing.T) Deps {
	t.Helper()
	return Deps{
		Broadcast:      broadcast.NewRegistry(),
		DefaultCommand: "/bin/sh",
		WorkDir:        t.TempDir(),
	}
}

func TestGetOrCreateReturnsSameController(t *testing.T) {
	r := NewRegistry(testDeps(t))

	a := r.GetOrCreate("proj-1")
	b := r.GetOrCreate("proj-1")
	if a != b {
		t.Error("GetOrCreate returned different controllers for the same project")
	}
	if a.ProjectID() != "proj-1" {
		t.Errorf("ProjectID() = %q, want proj-1", a.ProjectID())
	}
}

func TestGetOrCreateConcurrent(t *testing.T) {
	r := NewRegistry(testDeps(t))

	const workers = 32
	results := make([]*Controller, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.GetOrCreate("proj-race")
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if results[i] != results[0] {
			t.Fatalf("worker %d received a different controller", i)
		}
	}
	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
}

func TestRegistryIsolatesProjects(t *testing.T) {
	r := NewRegistry(testDeps(t))

	a := r.GetOrCreate("proj-a")
	b := r.GetOrCreate("proj-b")
	if a == b {
		t.Error("distinct projects share a controller")
	}
	if r.Count() != 2 {
		t.Errorf("Count() = %d, want 2", r.Count())
	}
}

func TestRemove(t *testing.T) {
	r := NewRegistry(testDeps(t))
	r.GetOrCreate("proj-1")

	r.Remove("proj-1")
	if r.Get("proj-1") != nil {
		t.Error("Get() returned a controller after Remove")
	}

	// Removing again is a no-op.
	r.Remove("proj-1")
	if r.Count() != 0 {
		t.Errorf("Count() = %d, want 0", r.Count())
	}
}
