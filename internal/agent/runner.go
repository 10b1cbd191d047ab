package agent

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/google/uuid"
	"github.com/kballard/go-shellquote"

	"github.com/user/claudeterm/internal/cache"
	"github.com/user/claudeterm/internal/stream"
)

const scanBufferSize = 1024 * 1024

// userMessage is the JSON line written to the agent's stdin for a query.
type userMessage struct {
	Type      string      `json:"type"`
	Message   messageBody `json:"message"`
	SessionID string      `json:"session_id"`
}

type messageBody struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Runner executes one agent turn: it spawns the CLI in stream-json mode,
// submits the prompt on stdin and classifies every stdout line, invoking
// onEvent for each typed event in stream order.
type Runner struct {
	command    string
	opts       Options
	sessionID  string
	classifier *stream.Classifier
	responses  *cache.ResponseCache
	onEvent    func(stream.Event)
}

// NewRunner builds a runner around a resolved CLI command string (e.g.
// "claude" or "claude --verbose"). responses may be nil to disable the
// cache.
func NewRunner(command string, opts Options, classifier *stream.Classifier,
	responses *cache.ResponseCache, onEvent func(stream.Event)) *Runner {
	sessionID := opts.Resume
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return &Runner{
		command:    command,
		opts:       opts,
		sessionID:  sessionID,
		classifier: classifier,
		responses:  responses,
		onEvent:    onEvent,
	}
}

// SessionID returns the agent session identifier, updated from the last
// result message when the agent assigns its own.
func (r *Runner) SessionID() string { return r.sessionID }

// Run executes a single turn for prompt. Classifier state resets at turn
// start; malformed output lines are logged and skipped, never fatal.
func (r *Runner) Run(ctx context.Context, prompt string) error {
	if r.responses != nil {
		key := cache.Key(prompt, r.opts.CacheView())
		if response, ok := r.responses.Get(key); ok {
			r.emitCached(response)
			return nil
		}
	}

	base, err := shellquote.Split(r.command)
	if err != nil || len(base) == 0 {
		return fmt.Errorf("agent: invalid command %q: %w", r.command, err)
	}
	argv := append(base, r.opts.Args()...)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = r.opts.WorkDir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("agent: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("agent: stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("agent: failed to start %q: %w", argv[0], err)
	}
	slog.Info("agent started", "command", argv[0], "session", r.sessionID, "pid", cmd.Process.Pid)

	r.classifier.StartTracking()

	query := userMessage{
		Type: "user",
		Message: messageBody{
			Role:    "user",
			Content: []contentBlock{{Type: "text", Text: prompt}},
		},
		SessionID: r.sessionID,
	}
	payload, err := json.Marshal(query)
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("agent: encode query: %w", err)
	}
	if _, err := stdin.Write(append(payload, '\n')); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("agent: write query: %w", err)
	}
	_ = stdin.Close()

	completed := false
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), scanBufferSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		ev, ok, perr := r.classifier.Process(line)
		if perr != nil {
			var decodeErr *stream.DecodeError
			if errors.As(perr, &decodeErr) {
				slog.Warn("agent: skipping malformed message",
					"session", r.sessionID, "error", perr)
				continue
			}
			return perr
		}
		if !ok {
			continue
		}
		if ev.Kind == stream.KindCompletion {
			completed = true
			if ev.SessionID != "" {
				r.sessionID = ev.SessionID
			}
		}
		if r.onEvent != nil {
			r.onEvent(ev)
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		slog.Warn("agent: output stream error", "session", r.sessionID, "error", err)
	}

	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if waitErr != nil && !completed {
		return fmt.Errorf("agent: process failed: %w", waitErr)
	}

	if completed && r.responses != nil {
		if response := r.classifier.ResponseText(); response != "" {
			r.responses.Put(cache.Key(prompt, r.opts.CacheView()), response)
		}
	}
	return nil
}

// emitCached replays a cached response as a text event followed by a
// completion, without spawning the agent.
func (r *Runner) emitCached(response string) {
	now := time.Now()
	if r.onEvent == nil {
		return
	}
	r.onEvent(stream.Event{
		Kind:      stream.KindText,
		Timestamp: now,
		Content:   response,
	})
	total := 0.0
	r.onEvent(stream.Event{
		Kind:            stream.KindCompletion,
		Timestamp:       now,
		SessionID:       r.sessionID,
		TotalDurationMS: &total,
	})
}
