package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	thinkingPreviewLimit = 200
	toolResultLimit      = 500
	bashSummaryLimit     = 50
)

// DecodeError reports a malformed agent message. The stream continues;
// the caller logs and skips.
type DecodeError struct {
	Line []byte
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("stream: malformed message: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Classifier turns an agent's message stream into typed events and keeps
// the correlation state for tool invocations. All mutation happens on the
// single dispatch path (Process / ProcessMessage); callers must not share
// one Classifier across concurrent streams.
type Classifier struct {
	projectID string

	mu           sync.Mutex
	pending      map[string]PendingTool
	response     strings.Builder
	messageCount int
	startTime    time.Time
}

// NewClassifier creates a classifier for one project's agent stream.
func NewClassifier(projectID string) *Classifier {
	return &Classifier{
		projectID: projectID,
		pending:   make(map[string]PendingTool),
	}
}

// StartTracking resets the turn state: response buffer, message counter,
// pending tools and the wall-clock start used for Completion durations.
// Call it when beginning a new turn on a resumable session.
func (c *Classifier) StartTracking() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startTime = time.Now()
	c.messageCount = 0
	c.response.Reset()
	c.pending = make(map[string]PendingTool)
}

// Process decodes one JSON line from the agent and classifies it.
// Malformed input yields a DecodeError and no event; the classifier
// remains usable for subsequent messages.
func (c *Classifier) Process(line []byte) (Event, bool, error) {
	var msg Message
	if err := json.Unmarshal(line, &msg); err != nil {
		return Event{}, false, &DecodeError{Line: line, Err: err}
	}
	ev, ok := c.ProcessMessage(&msg)
	return ev, ok, nil
}

// ProcessMessage dispatches on the message's declared kind. Unrecognized
// kinds are logged and produce no event.
func (c *Classifier) ProcessMessage(msg *Message) (Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messageCount++
	now := time.Now()

	switch msg.Type {
	case "text":
		content := msg.ContentString()
		c.response.WriteString(content)
		return Event{
			Kind:      KindText,
			ProjectID: c.projectID,
			Timestamp: now,
			Content:   content,
		}, true

	case "thinking", "ultrathinking":
		content := msg.ContentString()
		if preview, cut := truncateRunes(content, thinkingPreviewLimit); cut {
			content = preview + "..."
		}
		return Event{
			Kind:      KindThinking,
			ProjectID: c.projectID,
			Timestamp: now,
			Content:   content,
		}, true

	case "tool_use":
		c.pending[msg.ID] = PendingTool{
			Name:      msg.Name,
			Input:     msg.Input,
			StartTime: now,
		}
		return Event{
			Kind:      KindToolStart,
			ProjectID: c.projectID,
			Timestamp: now,
			ToolID:    msg.ID,
			ToolName:  msg.Name,
			Summary:   toolSummary(msg.Name, msg.Input),
			Input:     msg.Input,
		}, true

	case "tool_result":
		name := "unknown"
		var durationMS *float64
		if tool, ok := c.pending[msg.ToolUseID]; ok {
			delete(c.pending, msg.ToolUseID)
			name = tool.Name
			d := float64(now.Sub(tool.StartTime)) / float64(time.Millisecond)
			durationMS = &d
		}
		content := msg.ContentString()
		content, _ = truncateRunes(content, toolResultLimit)
		return Event{
			Kind:       KindToolResult,
			ProjectID:  c.projectID,
			Timestamp:  now,
			ToolID:     msg.ToolUseID,
			ToolName:   name,
			Content:    content,
			IsError:    msg.IsError,
			DurationMS: durationMS,
		}, true

	case "result":
		var totalMS *float64
		if !c.startTime.IsZero() {
			d := float64(now.Sub(c.startTime)) / float64(time.Millisecond)
			totalMS = &d
		}
		return Event{
			Kind:            KindCompletion,
			ProjectID:       c.projectID,
			Timestamp:       now,
			SessionID:       msg.SessionID,
			IsError:         msg.IsError,
			TotalCostUSD:    msg.TotalCostUSD,
			NumTurns:        msg.NumTurns,
			APIDurationMS:   msg.APIDurationMS,
			TotalDurationMS: totalMS,
			MessageCount:    c.messageCount,
		}, true

	case "error":
		text := msg.Message
		if text == "" {
			text = "Unknown error"
		}
		return Event{
			Kind:      KindError,
			ProjectID: c.projectID,
			Timestamp: now,
			Content:   text,
		}, true

	default:
		slog.Debug("unknown agent message type",
			"project", c.projectID, "type", msg.Type)
		return Event{}, false
	}
}

// ResponseText returns the response accumulated from text fragments since
// the last StartTracking.
func (c *Classifier) ResponseText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.response.String()
}

// PendingCount returns the number of tool invocations still awaiting a
// result.
func (c *Classifier) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// MessageCount returns the number of messages processed since the last
// StartTracking.
func (c *Classifier) MessageCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.messageCount
}

// toolSummary builds a short human-readable line for a tool invocation.
// Unrecognized tools fall back to listing up to three input keys.
func toolSummary(name string, input map[string]any) string {
	switch name {
	case "Read":
		return "📖 Reading: " + inputString(input, "file_path")
	case "Write":
		return "✏️ Writing: " + inputString(input, "file_path")
	case "Edit":
		return "🔧 Editing: " + inputString(input, "file_path")
	case "MultiEdit":
		return "🔧 Multi-editing: " + inputString(input, "file_path")
	case "Bash":
		cmd, _ := input["command"].(string)
		if preview, cut := truncateRunes(cmd, bashSummaryLimit); cut {
			cmd = preview + "..."
		}
		return "💻 Running: " + cmd
	case "Glob":
		return "🔍 Searching: " + inputString(input, "pattern")
	case "Grep":
		return "🔎 Grep: " + inputString(input, "pattern")
	case "LS":
		path, ok := input["path"].(string)
		if !ok || path == "" {
			path = "current dir"
		}
		return "📁 Listing: " + path
	case "WebFetch":
		return "🌐 Fetching: " + inputString(input, "url")
	case "TodoWrite":
		return "📝 Managing todos"
	default:
		keys := make([]string, 0, len(input))
		for k := range input {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if len(keys) > 3 {
			keys = keys[:3]
		}
		return fmt.Sprintf("🔧 %s: [%s]", name, strings.Join(keys, " "))
	}
}

func inputString(input map[string]any, key string) string {
	if v, ok := input[key].(string); ok && v != "" {
		return v
	}
	return "unknown"
}

// truncateRunes caps s at limit characters without splitting a rune. The
// second return reports whether anything was cut.
func truncateRunes(s string, limit int) (string, bool) {
	if len(s) <= limit {
		return s, false
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i], true
		}
		n++
	}
	return s, false
}
