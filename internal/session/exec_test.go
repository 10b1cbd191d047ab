package session

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// frameCollector drains a subscriber channel into decoded frames so tests
// can assert on what the controller sent.
type frameCollector struct {
	ch <-chan []byte
}

func (fc *frameCollector) next(t *testing.T) map[string]any {
	t.Helper()
	select {
	case data := <-fc.ch:
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("unmarshal frame: %v", err)
		}
		return m
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for frame")
	}
	return nil
}

func newTestController(t *testing.T) (*Controller, *frameCollector) {
	t.Helper()
	deps := testDeps(t)
	ctrl := newController("proj-exec", deps)
	ch := deps.Broadcast.Bind("proj-exec")
	return ctrl, &frameCollector{ch: ch}
}

func TestHandleCommandEcho(t *testing.T) {
	ctrl, frames := newTestController(t)

	ctrl.handleCommand(context.Background(), "echo one-shot")

	executing := frames.next(t)
	if executing["type"] != "executing" || executing["command"] != "echo one-shot" {
		t.Fatalf("executing frame = %v", executing)
	}

	result := frames.next(t)
	if result["type"] != "output" {
		t.Fatalf("result frame = %v", result)
	}
	if result["success"] != true {
		t.Errorf("success = %v, want true", result["success"])
	}
	if result["output"] != "one-shot" {
		t.Errorf("output = %q, want one-shot", result["output"])
	}
}

func TestHandleCommandFailure(t *testing.T) {
	ctrl, frames := newTestController(t)

	ctrl.handleCommand(context.Background(), "false")

	frames.next(t) // executing
	result := frames.next(t)
	if result["success"] != false {
		t.Errorf("success = %v, want false for failing command", result["success"])
	}
}

func TestHandleCommandEmptyIsNoop(t *testing.T) {
	ctrl, frames := newTestController(t)

	ctrl.handleCommand(context.Background(), "   ")

	select {
	case data := <-frames.ch:
		t.Errorf("empty command produced frame %s", data)
	default:
	}
}

func TestHandleCommandEmptyOutputMarker(t *testing.T) {
	ctrl, frames := newTestController(t)

	ctrl.handleCommand(context.Background(), "true")

	frames.next(t) // executing
	result := frames.next(t)
	if result["output"] != "✓" {
		t.Errorf("output = %q, want success marker for silent command", result["output"])
	}
}

func TestHandleCommandCdAndPwd(t *testing.T) {
	ctrl, frames := newTestController(t)

	sub := filepath.Join(ctrl.execDir, "nested")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	ctrl.handleCommand(context.Background(), "cd nested")
	frames.next(t) // executing
	if result := frames.next(t); result["success"] != true {
		t.Fatalf("cd frame = %v", result)
	}

	ctrl.handleCommand(context.Background(), "pwd")
	frames.next(t) // executing
	result := frames.next(t)
	if result["output"] != sub {
		t.Errorf("pwd = %q, want %q", result["output"], sub)
	}

	// Later one-shots inherit the tracked directory.
	ctrl.handleCommand(context.Background(), "pwd -P")
	frames.next(t)
	result = frames.next(t)
	if got, _ := result["output"].(string); !strings.HasSuffix(got, "nested") {
		t.Errorf("shell pwd = %q, want it to end in nested", got)
	}
}

func TestHandleCommandCdMissingDirectory(t *testing.T) {
	ctrl, frames := newTestController(t)
	before := ctrl.execDir

	ctrl.handleCommand(context.Background(), "cd /definitely/not/here")
	frames.next(t) // executing
	result := frames.next(t)
	if result["success"] != false {
		t.Errorf("cd to missing dir succeeded: %v", result)
	}
	if ctrl.execDir != before {
		t.Errorf("execDir changed to %q on failed cd", ctrl.execDir)
	}
}

func TestHandleCommandTimeout(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping 5s timeout wait in short mode")
	}
	ctrl, frames := newTestController(t)

	start := time.Now()
	ctrl.handleCommand(context.Background(), "sleep 30")
	frames.next(t) // executing
	result := frames.next(t)

	if result["success"] != false {
		t.Errorf("timed-out command reported success: %v", result)
	}
	if elapsed := time.Since(start); elapsed > 15*time.Second {
		t.Errorf("timeout took %v, want about 5s", elapsed)
	}
	if got, _ := result["output"].(string); !strings.Contains(got, "timed out") {
		t.Errorf("output = %q, want timeout notice", got)
	}
}
