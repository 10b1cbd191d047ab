package session

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/user/claudeterm/internal/protocol"
)

// oneShotTimeout bounds commands that hang waiting for input; one-shot
// mode has no terminal to answer prompts.
const oneShotTimeout = 5 * time.Second

// handleCommand runs a single shell command in the controller's tracked
// working directory and replies with executing + output frames. `cd` and
// `pwd` are handled in-process so the directory context survives between
// commands.
func (c *Controller) handleCommand(ctx context.Context, command string) {
	command = strings.TrimSpace(command)
	if command == "" {
		return
	}

	c.send(protocol.ExecutingFrame{
		Type:      "executing",
		Command:   command,
		Timestamp: protocol.Now(),
	})

	output, success := c.runOneShot(ctx, command)
	c.send(protocol.CommandResultFrame{
		Type:      "output",
		Output:    output,
		Success:   success,
		Timestamp: protocol.Now(),
	})
}

func (c *Controller) runOneShot(ctx context.Context, command string) (string, bool) {
	if rest, ok := strings.CutPrefix(command, "cd "); ok {
		return c.changeDir(strings.TrimSpace(rest))
	}
	if command == "cd" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err.Error(), false
		}
		return c.changeDir(home)
	}
	if command == "pwd" {
		c.mu.Lock()
		dir := c.execDir
		c.mu.Unlock()
		return dir, true
	}

	execCtx, cancel := context.WithTimeout(ctx, oneShotTimeout)
	defer cancel()

	c.mu.Lock()
	dir := c.execDir
	c.mu.Unlock()

	cmd := exec.CommandContext(execCtx, "sh", "-c", command)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")

	combined, err := cmd.CombinedOutput()
	output := strings.TrimRight(string(combined), "\n")

	if execCtx.Err() == context.DeadlineExceeded {
		return "command interrupted: timed out waiting for input", false
	}
	if err != nil {
		if output == "" {
			output = err.Error()
		}
		return output, false
	}
	if output == "" {
		output = "✓"
	}
	return output, true
}

// changeDir resolves and validates a cd target against the tracked
// working directory.
func (c *Controller) changeDir(target string) (string, bool) {
	if target == "" {
		return "", true
	}
	if strings.HasPrefix(target, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return err.Error(), false
		}
		target = filepath.Join(home, strings.TrimPrefix(target, "~"))
	}

	c.mu.Lock()
	current := c.execDir
	c.mu.Unlock()

	if !filepath.IsAbs(target) {
		target = filepath.Join(current, target)
	}
	target = filepath.Clean(target)

	info, err := os.Stat(target)
	if err != nil || !info.IsDir() {
		return "cd: no such directory: " + target, false
	}

	c.mu.Lock()
	c.execDir = target
	c.mu.Unlock()
	return "", true
}
