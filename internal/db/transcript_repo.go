package db

import (
	"context"
	"database/sql"
	"fmt"
)

type TranscriptRepo struct {
	db *sql.DB
}

func NewTranscriptRepo(db *sql.DB) *TranscriptRepo {
	return &TranscriptRepo{db: db}
}

func (r *TranscriptRepo) Append(ctx context.Context, ev *TranscriptEvent) error {
	if ev.ID == "" {
		id, err := NewID()
		if err != nil {
			return err
		}
		ev.ID = id
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = nowUTC()
	}

	var duration sql.NullFloat64
	if ev.DurationMS != nil {
		duration = sql.NullFloat64{Float64: *ev.DurationMS, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO transcript_events (id, session_id, kind, tool_name, content, is_error, duration_ms, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, ev.ID, ev.SessionID, ev.Kind, ev.ToolName, ev.Content,
		boolToInt(ev.IsError), duration, formatTimestamp(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to append transcript event: %w", err)
	}
	return nil
}

func (r *TranscriptRepo) ListBySession(ctx context.Context, sessionID string) ([]*TranscriptEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, session_id, kind, tool_name, content, is_error, duration_ms, created_at
FROM transcript_events
WHERE session_id = ?
ORDER BY created_at ASC, id ASC
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transcript events: %w", err)
	}
	defer rows.Close()

	events := []*TranscriptEvent{}
	for rows.Next() {
		var ev TranscriptEvent
		var isErrorInt int
		var duration sql.NullFloat64
		var createdAtRaw string

		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.Kind, &ev.ToolName,
			&ev.Content, &isErrorInt, &duration, &createdAtRaw); err != nil {
			return nil, fmt.Errorf("failed to scan transcript event: %w", err)
		}
		ev.IsError = isErrorInt != 0
		if duration.Valid {
			d := duration.Float64
			ev.DurationMS = &d
		}
		if ev.CreatedAt, err = parseTimestamp(createdAtRaw); err != nil {
			return nil, err
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}
