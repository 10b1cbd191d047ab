// Package protocol defines the JSON envelopes exchanged with the single
// subscriber of a project: the inbound command envelope and the outbound
// event frames. Timestamps on the wire are ISO-8601.
package protocol

import (
	"time"

	"github.com/user/claudeterm/internal/stream"
)

// Inbound command types.
const (
	TypeStart   = "start"
	TypeInput   = "input"
	TypeResize  = "resize"
	TypeClose   = "close"
	TypeCommand = "command"
	TypePrompt  = "prompt"
	TypePing    = "ping"
	TypeStats   = "stats"
)

// ClientMessage is the inbound command envelope. Type selects which of
// the remaining fields are meaningful.
type ClientMessage struct {
	Type    string `json:"type"`
	Command string `json:"command,omitempty"`
	Data    string `json:"data,omitempty"`
	Rows    int    `json:"rows,omitempty"`
	Cols    int    `json:"cols,omitempty"`
	Agent   string `json:"agent,omitempty"`
	Prompt  string `json:"prompt,omitempty"`
}

type InitFrame struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type SessionStartedFrame struct {
	Type      string `json:"type"`
	Success   bool   `json:"success"`
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`
}

type OutputFrame struct {
	Type      string `json:"type"`
	Data      string `json:"data"`
	Timestamp string `json:"timestamp"`
}

type ExecutingFrame struct {
	Type      string `json:"type"`
	Command   string `json:"command"`
	Timestamp string `json:"timestamp"`
}

type CommandResultFrame struct {
	Type      string `json:"type"`
	Output    string `json:"output"`
	Success   bool   `json:"success"`
	Timestamp string `json:"timestamp"`
}

type ErrorFrame struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type PongFrame struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

type StatsFrame struct {
	Type      string `json:"type"`
	Stats     any    `json:"stats"`
	Timestamp string `json:"timestamp"`
}

// Agent event frames mirror the classifier's typed events.
type AssistantMessageFrame struct {
	Type        string `json:"type"`
	Content     string `json:"content"`
	MessageType string `json:"message_type"`
	Timestamp   string `json:"timestamp"`
}

type AssistantThinkingFrame struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type ToolUseFrame struct {
	Type      string         `json:"type"`
	ToolID    string         `json:"tool_id"`
	ToolName  string         `json:"tool_name"`
	Summary   string         `json:"summary"`
	Input     map[string]any `json:"input"`
	Timestamp string         `json:"timestamp"`
}

type ToolResultFrame struct {
	Type       string   `json:"type"`
	ToolID     string   `json:"tool_id"`
	ToolName   string   `json:"tool_name"`
	Content    string   `json:"content,omitempty"`
	IsError    bool     `json:"is_error"`
	DurationMS *float64 `json:"duration_ms"`
	Timestamp  string   `json:"timestamp"`
}

type CompletionFrame struct {
	Type            string   `json:"type"`
	SessionID       string   `json:"session_id,omitempty"`
	IsError         bool     `json:"is_error"`
	TotalCostUSD    float64  `json:"total_cost_usd"`
	NumTurns        int      `json:"num_turns"`
	APIDurationMS   float64  `json:"api_duration_ms"`
	TotalDurationMS *float64 `json:"total_duration_ms"`
	MessageCount    int      `json:"message_count"`
	Timestamp       string   `json:"timestamp"`
}

// Stamp formats t for the wire.
func Stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// Now returns the current wire timestamp.
func Now() string {
	return Stamp(time.Now())
}

// EventFrame converts a classified event into its outbound frame.
// KindUnknown has no frame; callers get nil and skip it.
func EventFrame(ev stream.Event) any {
	ts := Stamp(ev.Timestamp)
	switch ev.Kind {
	case stream.KindText:
		return AssistantMessageFrame{
			Type:        "assistant_message",
			Content:     ev.Content,
			MessageType: "text",
			Timestamp:   ts,
		}
	case stream.KindThinking:
		return AssistantThinkingFrame{
			Type:      "assistant_thinking",
			Content:   ev.Content,
			Timestamp: ts,
		}
	case stream.KindToolStart:
		return ToolUseFrame{
			Type:      "tool_use",
			ToolID:    ev.ToolID,
			ToolName:  ev.ToolName,
			Summary:   ev.Summary,
			Input:     ev.Input,
			Timestamp: ts,
		}
	case stream.KindToolResult:
		return ToolResultFrame{
			Type:       "tool_result",
			ToolID:     ev.ToolID,
			ToolName:   ev.ToolName,
			Content:    ev.Content,
			IsError:    ev.IsError,
			DurationMS: ev.DurationMS,
			Timestamp:  ts,
		}
	case stream.KindCompletion:
		return CompletionFrame{
			Type:            "completion",
			SessionID:       ev.SessionID,
			IsError:         ev.IsError,
			TotalCostUSD:    ev.TotalCostUSD,
			NumTurns:        ev.NumTurns,
			APIDurationMS:   ev.APIDurationMS,
			TotalDurationMS: ev.TotalDurationMS,
			MessageCount:    ev.MessageCount,
			Timestamp:       ts,
		}
	case stream.KindError:
		return ErrorFrame{
			Type:      "error",
			Message:   ev.Content,
			Timestamp: ts,
		}
	default:
		return nil
	}
}
