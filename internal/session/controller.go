// Package session binds a project id to its running child process, the
// output pump, the event classifier and the subscriber channel, and
// dispatches the inbound command envelope.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/user/claudeterm/internal/agent"
	"github.com/user/claudeterm/internal/broadcast"
	"github.com/user/claudeterm/internal/cache"
	"github.com/user/claudeterm/internal/db"
	"github.com/user/claudeterm/internal/monitor"
	"github.com/user/claudeterm/internal/protocol"
	"github.com/user/claudeterm/internal/registry"
	"github.com/user/claudeterm/internal/stream"
	"github.com/user/claudeterm/internal/term"
)

// Deps carries the injected collaborators shared by all controllers.
// SessionRepo, TranscriptRepo, Metrics, Responses and Agents may be nil;
// the controller degrades to in-memory operation without them.
type Deps struct {
	Broadcast      *broadcast.Registry
	SessionRepo    *db.SessionRepo
	TranscriptRepo *db.TranscriptRepo
	Metrics        *monitor.Metrics
	Responses      *cache.ResponseCache
	Agents         *registry.Registry

	// DefaultCommand is the fallback interactive command (typically the
	// user's shell) when a start envelope names none.
	DefaultCommand string
	// WorkDir is the initial working directory for new sessions.
	WorkDir string
}

// Controller owns one project's session end to end. All envelope handling
// runs on the subscriber's single read loop; the pump is the only other
// goroutine touching the session.
type Controller struct {
	projectID  string
	deps       Deps
	classifier *stream.Classifier

	mu         sync.Mutex
	sess       *term.Session
	pumpCancel context.CancelFunc
	record     *db.Session
	execDir    string
	turnActive bool
}

func newController(projectID string, deps Deps) *Controller {
	workDir := deps.WorkDir
	return &Controller{
		projectID:  projectID,
		deps:       deps,
		classifier: stream.NewClassifier(projectID),
		execDir:    workDir,
	}
}

// ProjectID returns the owning project identifier.
func (c *Controller) ProjectID() string { return c.projectID }

// Alive reports whether the hosted child process is still running.
func (c *Controller) Alive() bool {
	c.mu.Lock()
	sess := c.sess
	c.mu.Unlock()
	return sess != nil && sess.IsAlive()
}

// HandleMessage decodes one inbound envelope and executes it. Failures
// surface as error frames to the subscriber; nothing unwinds to the read
// loop.
func (c *Controller) HandleMessage(ctx context.Context, raw []byte) {
	var msg protocol.ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("invalid message format")
		return
	}

	switch msg.Type {
	case protocol.TypeStart:
		c.handleStart(ctx, msg.Command)
	case protocol.TypeInput:
		c.handleInput(msg.Data)
	case protocol.TypeResize:
		c.handleResize(msg.Rows, msg.Cols)
	case protocol.TypeClose:
		c.handleClose(ctx)
	case protocol.TypeCommand:
		c.handleCommand(ctx, msg.Command)
	case protocol.TypePrompt:
		c.handlePrompt(ctx, msg.Agent, msg.Prompt)
	case protocol.TypePing:
		c.send(protocol.PongFrame{Type: "pong", Timestamp: protocol.Now()})
	case protocol.TypeStats:
		c.handleStats()
	default:
		c.sendError("unknown message type: " + msg.Type)
	}
}

// handleStart spawns the interactive child and starts its output pump.
// The command resolves in order: explicit envelope command, agent profile
// id lookup, then the configured default shell.
func (c *Controller) handleStart(ctx context.Context, command string) {
	c.mu.Lock()
	if c.sess != nil && c.sess.IsAlive() {
		c.mu.Unlock()
		c.send(protocol.SessionStartedFrame{
			Type:      "session_started",
			Success:   true,
			SessionID: c.projectID,
			Message:   "session already running",
			Timestamp: protocol.Now(),
		})
		return
	}

	// A previous session whose child died still holds resources until
	// closed; release them before spawning the replacement.
	if prev := c.sess; prev != nil {
		_ = prev.Close()
		if c.pumpCancel != nil {
			c.pumpCancel()
			c.pumpCancel = nil
		}
		c.sess = nil
	}

	resolved := c.resolveCommand(command)
	sess := term.NewSession(c.projectID, c.execDir, c.deps.DefaultCommand)
	id, err := sess.Start(resolved)
	if err != nil {
		c.mu.Unlock()
		var spawnErr *term.SpawnError
		if errors.As(err, &spawnErr) && c.deps.Metrics != nil {
			c.deps.Metrics.RecordError("spawn_error")
		}
		c.send(protocol.SessionStartedFrame{
			Type:      "session_started",
			Success:   false,
			Message:   err.Error(),
			Timestamp: protocol.Now(),
		})
		return
	}

	c.sess = sess
	pumpCtx, cancel := context.WithCancel(context.Background())
	c.pumpCancel = cancel
	pump := term.NewPump(sess, func(chunk string) {
		c.deps.Broadcast.Send(c.projectID, protocol.OutputFrame{
			Type:      "output",
			Data:      chunk,
			Timestamp: protocol.Now(),
		})
	})
	go pump.Run(pumpCtx)
	c.mu.Unlock()

	c.persistStart(ctx, resolved)
	slog.Info("session started", "project", c.projectID, "pid", sess.PID())
	c.send(protocol.SessionStartedFrame{
		Type:      "session_started",
		Success:   true,
		SessionID: id,
		Message:   "interactive session started",
		Timestamp: protocol.Now(),
	})
}

func (c *Controller) handleInput(data string) {
	c.mu.Lock()
	sess := c.sess
	c.mu.Unlock()

	if sess == nil {
		c.sendError("session not started")
		return
	}
	if err := sess.Input([]byte(data)); err != nil {
		if errors.Is(err, term.ErrNotStarted) {
			c.sendError("session not started")
			return
		}
		if c.deps.Metrics != nil {
			c.deps.Metrics.RecordError("io_error")
		}
		c.sendError("write failed: " + err.Error())
	}
}

func (c *Controller) handleResize(rows, cols int) {
	c.mu.Lock()
	sess := c.sess
	c.mu.Unlock()

	if sess == nil {
		c.sendError("session not started")
		return
	}
	if rows <= 0 {
		rows = 24
	}
	if cols <= 0 {
		cols = 80
	}
	if err := sess.Resize(uint16(rows), uint16(cols)); err != nil {
		// Resizing a dead session is non-fatal; tell the subscriber and
		// carry on.
		if errors.Is(err, term.ErrNotStarted) {
			c.sendError("session not started")
			return
		}
		slog.Debug("resize failed", "project", c.projectID, "error", err)
	}
}

func (c *Controller) handleClose(ctx context.Context) {
	c.mu.Lock()
	sess := c.sess
	cancel := c.pumpCancel
	c.sess = nil
	c.pumpCancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if sess != nil {
		_ = sess.Close()
	}
	c.persistClose(ctx)
	slog.Info("session closed", "project", c.projectID)
}

// handlePrompt runs one structured agent turn on its own goroutine so the
// subscriber's read loop stays responsive while the agent streams. The
// classifier holds per-turn state, so only one turn runs at a time.
func (c *Controller) handlePrompt(ctx context.Context, profileID, prompt string) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		c.sendError("empty prompt")
		return
	}

	c.mu.Lock()
	if c.turnActive {
		c.mu.Unlock()
		c.sendError("agent turn already in progress")
		return
	}
	c.turnActive = true
	c.mu.Unlock()

	go func() {
		defer func() {
			c.mu.Lock()
			c.turnActive = false
			c.mu.Unlock()
		}()
		if err := c.RunAgentTurn(ctx, profileID, prompt); err != nil {
			if c.deps.Metrics != nil {
				c.deps.Metrics.RecordError("agent_error")
			}
			slog.Warn("agent turn failed", "project", c.projectID, "error", err)
			c.sendError("agent turn failed: " + err.Error())
		}
	}()
}

func (c *Controller) handleStats() {
	if c.deps.Metrics == nil {
		c.sendError("metrics unavailable")
		return
	}
	c.send(protocol.StatsFrame{
		Type:      "stats",
		Stats:     c.deps.Metrics.Snapshot(),
		Timestamp: protocol.Now(),
	})
}

// Close tears down the hosted process and pump. Used by the registry when
// a project is evicted.
func (c *Controller) Close() {
	c.handleClose(context.Background())
}

// ForwardEvent publishes a classified event to the subscriber, records it
// in the metrics window and appends it to the session transcript.
func (c *Controller) ForwardEvent(ctx context.Context, ev stream.Event) {
	if frame := protocol.EventFrame(ev); frame != nil {
		c.deps.Broadcast.Send(c.projectID, frame)
	}
	if c.deps.Metrics != nil {
		c.deps.Metrics.Record(ev)
	}
	c.persistEvent(ctx, ev)
}

// RunAgentTurn executes one structured agent turn for prompt using the
// named profile (empty id selects "claude-code" when available).
func (c *Controller) RunAgentTurn(ctx context.Context, profileID, prompt string) error {
	command, opts := c.agentLaunch(profileID)
	runner := agent.NewRunner(command, opts, c.classifier, c.deps.Responses,
		func(ev stream.Event) {
			ev.ProjectID = c.projectID
			c.ForwardEvent(ctx, ev)
		})
	return runner.Run(ctx, prompt)
}

// Classifier exposes the project's classifier for resumable turns.
func (c *Controller) Classifier() *stream.Classifier { return c.classifier }

func (c *Controller) agentLaunch(profileID string) (string, agent.Options) {
	opts := agent.Options{WorkDir: c.execDir}
	command := c.deps.DefaultCommand

	if c.deps.Agents == nil {
		return command, opts
	}
	if profileID == "" {
		profileID = "claude-code"
	}
	profile := c.deps.Agents.Get(profileID)
	if profile == nil {
		return command, opts
	}
	opts.Model = profile.Model
	opts.PermissionMode = profile.PermissionMode
	opts.MaxTurns = profile.MaxTurns
	opts.AllowedTools = profile.AllowedTools
	opts.DisallowedTools = profile.DisallowedTools
	return profile.Command, opts
}

func (c *Controller) resolveCommand(command string) string {
	command = strings.TrimSpace(command)
	if command == "" {
		return c.deps.DefaultCommand
	}
	if c.deps.Agents != nil {
		if profile := c.deps.Agents.Get(command); profile != nil {
			return profile.Command
		}
	}
	return command
}

func (c *Controller) send(frame any) {
	c.deps.Broadcast.Send(c.projectID, frame)
}

func (c *Controller) sendError(message string) {
	c.send(protocol.ErrorFrame{
		Type:      "error",
		Message:   message,
		Timestamp: protocol.Now(),
	})
}

func (c *Controller) persistStart(ctx context.Context, command string) {
	if c.deps.SessionRepo == nil {
		return
	}
	record := &db.Session{
		ProjectID: c.projectID,
		AgentType: command,
		Status:    "running",
		WorkDir:   c.execDir,
	}
	if err := c.deps.SessionRepo.Create(ctx, record); err != nil {
		slog.Warn("failed to persist session", "project", c.projectID, "error", err)
		return
	}
	c.mu.Lock()
	c.record = record
	c.mu.Unlock()
}

func (c *Controller) persistClose(ctx context.Context) {
	c.mu.Lock()
	record := c.record
	c.record = nil
	c.mu.Unlock()

	if c.deps.SessionRepo == nil || record == nil {
		return
	}
	record.Status = "closed"
	if err := c.deps.SessionRepo.Update(ctx, record); err != nil {
		slog.Warn("failed to update session", "project", c.projectID, "error", err)
	}
}

func (c *Controller) persistEvent(ctx context.Context, ev stream.Event) {
	c.mu.Lock()
	record := c.record
	c.mu.Unlock()

	if c.deps.TranscriptRepo == nil || record == nil {
		return
	}
	entry := &db.TranscriptEvent{
		SessionID:  record.ID,
		Kind:       string(ev.Kind),
		ToolName:   ev.ToolName,
		Content:    ev.Content,
		IsError:    ev.IsError,
		DurationMS: ev.DurationMS,
		CreatedAt:  ev.Timestamp,
	}
	if err := c.deps.TranscriptRepo.Append(ctx, entry); err != nil {
		slog.Warn("failed to append transcript", "project", c.projectID, "error", err)
	}

	if ev.Kind == stream.KindCompletion && c.deps.SessionRepo != nil {
		record.TotalCostUSD += ev.TotalCostUSD
		record.NumTurns += ev.NumTurns
		if err := c.deps.SessionRepo.Update(ctx, record); err != nil {
			slog.Warn("failed to update session totals", "project", c.projectID, "error", err)
		}
	}
}
