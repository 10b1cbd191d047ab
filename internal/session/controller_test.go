package session

import (
	"context"
	"testing"
	"time"

	"github.com/user/claudeterm/internal/term"
)

// TestRestartReleasesDeadSession starts a child that exits immediately,
// then restarts. The dead predecessor must be fully closed, fd included,
// before the replacement spawns.
func TestRestartReleasesDeadSession(t *testing.T) {
	deps := testDeps(t)
	ctrl := newController("proj-restart", deps)
	frames := &frameCollector{ch: deps.Broadcast.Bind("proj-restart")}

	ctrl.handleStart(context.Background(), "true")
	started := frames.next(t)
	if started["type"] != "session_started" || started["success"] != true {
		t.Fatalf("first start frame = %v", started)
	}

	ctrl.mu.Lock()
	old := ctrl.sess
	ctrl.mu.Unlock()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && old.IsAlive() {
		time.Sleep(20 * time.Millisecond)
	}

	ctrl.handleStart(context.Background(), "sleep 30")
	for {
		frame := frames.next(t)
		if frame["type"] == "session_started" {
			if frame["success"] != true {
				t.Fatalf("restart frame = %v", frame)
			}
			break
		}
	}

	if old.State() != term.StateClosed {
		t.Errorf("old session state = %v, want %v", old.State(), term.StateClosed)
	}
	ctrl.mu.Lock()
	replaced := ctrl.sess != old
	ctrl.mu.Unlock()
	if !replaced {
		t.Error("restart kept the dead session instance")
	}
	if !ctrl.Alive() {
		t.Error("Alive() = false after restart")
	}

	ctrl.Close()
}
