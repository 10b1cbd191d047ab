package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type SessionRepo struct {
	db *sql.DB
}

func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) Create(ctx context.Context, session *Session) error {
	if session.ID == "" {
		id, err := NewID()
		if err != nil {
			return err
		}
		session.ID = id
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = nowUTC()
	}
	if session.LastActivityAt.IsZero() {
		session.LastActivityAt = session.CreatedAt
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO sessions (id, project_id, agent_type, status, work_dir, total_cost_usd, num_turns, created_at, last_activity_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, session.ID, session.ProjectID, session.AgentType, session.Status, session.WorkDir,
		session.TotalCostUSD, session.NumTurns,
		formatTimestamp(session.CreatedAt), formatTimestamp(session.LastActivityAt))
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

func (r *SessionRepo) Get(ctx context.Context, id string) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, project_id, agent_type, status, work_dir, total_cost_usd, num_turns, created_at, last_activity_at
FROM sessions
WHERE id = ?
`, id)
	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session %q: %w", id, err)
	}
	return s, nil
}

func (r *SessionRepo) List(ctx context.Context, filter SessionFilter) ([]*Session, error) {
	query := `SELECT id, project_id, agent_type, status, work_dir, total_cost_usd, num_turns, created_at, last_activity_at FROM sessions`
	args := []any{}
	where := []string{}

	if filter.ProjectID != "" {
		where = append(where, "project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []*Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *SessionRepo) Update(ctx context.Context, session *Session) error {
	session.LastActivityAt = nowUTC()
	res, err := r.db.ExecContext(ctx, `
UPDATE sessions
SET status = ?, total_cost_usd = ?, num_turns = ?, last_activity_at = ?
WHERE id = ?
`, session.Status, session.TotalCostUSD, session.NumTurns,
		formatTimestamp(session.LastActivityAt), session.ID)
	if err != nil {
		return fmt.Errorf("failed to update session %q: %w", session.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("session %q not found", session.ID)
	}
	return nil
}

func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete session %q: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var s Session
	var createdAtRaw, lastActivityAtRaw string

	err := row.Scan(&s.ID, &s.ProjectID, &s.AgentType, &s.Status, &s.WorkDir,
		&s.TotalCostUSD, &s.NumTurns, &createdAtRaw, &lastActivityAtRaw)
	if err != nil {
		return nil, err
	}

	if s.CreatedAt, err = parseTimestamp(createdAtRaw); err != nil {
		return nil, err
	}
	if s.LastActivityAt, err = parseTimestamp(lastActivityAtRaw); err != nil {
		return nil, err
	}
	return &s, nil
}
