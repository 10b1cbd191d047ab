package db

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Session is one hosted child-process session for a project.
type Session struct {
	ID             string    `json:"id"`
	ProjectID      string    `json:"project_id"`
	AgentType      string    `json:"agent_type"`
	Status         string    `json:"status"`
	WorkDir        string    `json:"work_dir"`
	TotalCostUSD   float64   `json:"total_cost_usd"`
	NumTurns       int       `json:"num_turns"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// TranscriptEvent is one classified event recorded for a session.
type TranscriptEvent struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Kind       string    `json:"kind"`
	ToolName   string    `json:"tool_name"`
	Content    string    `json:"content"`
	IsError    bool      `json:"is_error"`
	DurationMS *float64  `json:"duration_ms,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type SessionFilter struct {
	ProjectID string
	Status    string
}

func NewID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		ts = nowUTC()
	}
	return ts.UTC().Format(time.RFC3339)
}

func parseTimestamp(v string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", v, err)
	}
	return ts, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
