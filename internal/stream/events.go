// Package stream classifies the heterogeneous JSON message stream of an
// external coding-agent process into a closed set of typed events,
// correlating tool invocations with their results.
package stream

import (
	"encoding/json"
	"time"
)

// Kind identifies the event variant. The set is closed; forward-incompatible
// message kinds map to KindUnknown and are never emitted downstream.
type Kind string

const (
	KindText       Kind = "text"
	KindThinking   Kind = "thinking"
	KindToolStart  Kind = "tool_start"
	KindToolResult Kind = "tool_result"
	KindCompletion Kind = "completion"
	KindError      Kind = "error"
	KindUnknown    Kind = "unknown"
)

// Event is one classified notification. Events are immutable once
// constructed; only the fields relevant to the Kind are populated.
type Event struct {
	Kind      Kind
	ProjectID string
	Timestamp time.Time

	// KindText, KindThinking, KindError.
	Content string

	// KindToolStart, KindToolResult.
	ToolID   string
	ToolName string
	Summary  string
	Input    map[string]any
	IsError  bool
	// DurationMS is nil when the matching tool_use was never observed.
	DurationMS *float64

	// KindCompletion.
	SessionID       string
	TotalCostUSD    float64
	NumTurns        int
	APIDurationMS   float64
	TotalDurationMS *float64
	MessageCount    int
}

// Message is the loose inbound envelope produced by the agent process.
// Field sets overlap across kinds; Type decides which ones matter.
type Message struct {
	Type string `json:"type"`

	// text / thinking: incremental content fragment.
	// tool_result: result payload, sometimes a non-string JSON value.
	Content json.RawMessage `json:"content"`

	// tool_use.
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`

	// tool_result.
	ToolUseID string `json:"tool_use_id"`
	IsError   bool   `json:"is_error"`

	// result.
	SessionID     string  `json:"session_id"`
	TotalCostUSD  float64 `json:"total_cost_usd"`
	NumTurns      int     `json:"num_turns"`
	APIDurationMS float64 `json:"api_duration_ms"`

	// error.
	Message string `json:"message"`
}

// ContentString renders the content field as text. String payloads come
// back unquoted; anything else (arrays of content blocks, objects) is
// passed through as its raw JSON so malformed agents never crash the host.
func (m *Message) ContentString() string {
	if len(m.Content) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(m.Content, &s); err == nil {
		return s
	}
	return string(m.Content)
}

// PendingTool records an in-flight tool invocation awaiting its result.
// Entries live only in the classifier's map and are matched at most once.
type PendingTool struct {
	Name      string
	Input     map[string]any
	StartTime time.Time
}
