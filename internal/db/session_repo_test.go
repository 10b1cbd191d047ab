package db

import (
	"context"
	"testing"
)

func TestSessionRepoCreateAndGet(t *testing.T) {
	database, _ := openTestDB(t)
	repo := NewSessionRepo(database.SQL())
	ctx := context.Background()

	session := &Session{
		ProjectID: "proj-1",
		AgentType: "claude",
		Status:    "running",
		WorkDir:   "/home/dev/proj-1",
	}
	if err := repo.Create(ctx, session); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if session.ID == "" {
		t.Fatal("Create() left ID empty")
	}
	if session.CreatedAt.IsZero() || session.LastActivityAt.IsZero() {
		t.Fatal("Create() left timestamps zero")
	}

	got, err := repo.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil {
		t.Fatal("Get() = nil for existing session")
	}
	if got.ProjectID != "proj-1" || got.AgentType != "claude" || got.Status != "running" {
		t.Errorf("Get() = %+v, want created fields back", got)
	}
}

func TestSessionRepoGetMissing(t *testing.T) {
	database, _ := openTestDB(t)
	repo := NewSessionRepo(database.SQL())

	got, err := repo.Get(context.Background(), "no-such-id")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != nil {
		t.Fatalf("Get() = %+v, want nil for missing session", got)
	}
}

func TestSessionRepoListFilters(t *testing.T) {
	database, _ := openTestDB(t)
	repo := NewSessionRepo(database.SQL())
	ctx := context.Background()

	seed := []*Session{
		{ProjectID: "proj-a", Status: "running"},
		{ProjectID: "proj-a", Status: "closed"},
		{ProjectID: "proj-b", Status: "running"},
	}
	for _, s := range seed {
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	all, err := repo.List(ctx, SessionFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List() returned %d sessions, want 3", len(all))
	}

	projA, err := repo.List(ctx, SessionFilter{ProjectID: "proj-a"})
	if err != nil {
		t.Fatalf("List(proj-a) error = %v", err)
	}
	if len(projA) != 2 {
		t.Fatalf("List(proj-a) returned %d sessions, want 2", len(projA))
	}

	running, err := repo.List(ctx, SessionFilter{ProjectID: "proj-a", Status: "running"})
	if err != nil {
		t.Fatalf("List(proj-a, running) error = %v", err)
	}
	if len(running) != 1 || running[0].Status != "running" {
		t.Fatalf("List(proj-a, running) = %+v, want one running session", running)
	}
}

func TestSessionRepoUpdate(t *testing.T) {
	database, _ := openTestDB(t)
	repo := NewSessionRepo(database.SQL())
	ctx := context.Background()

	session := &Session{ProjectID: "proj-1", Status: "running"}
	if err := repo.Create(ctx, session); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	session.Status = "closed"
	session.TotalCostUSD = 1.5
	session.NumTurns = 7
	if err := repo.Update(ctx, session); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := repo.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != "closed" || got.TotalCostUSD != 1.5 || got.NumTurns != 7 {
		t.Errorf("Get() after update = %+v", got)
	}
}

func TestSessionRepoUpdateMissing(t *testing.T) {
	database, _ := openTestDB(t)
	repo := NewSessionRepo(database.SQL())

	err := repo.Update(context.Background(), &Session{ID: "ghost", Status: "closed"})
	if err == nil {
		t.Fatal("Update() = nil error for missing session")
	}
}

func TestSessionRepoDeleteCascades(t *testing.T) {
	database, _ := openTestDB(t)
	sessions := NewSessionRepo(database.SQL())
	transcripts := NewTranscriptRepo(database.SQL())
	ctx := context.Background()

	session := &Session{ProjectID: "proj-1", Status: "running"}
	if err := sessions.Create(ctx, session); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := transcripts.Append(ctx, &TranscriptEvent{
		SessionID: session.ID,
		Kind:      "text",
		Content:   "hello",
	}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if err := sessions.Delete(ctx, session.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	events, err := transcripts.ListBySession(ctx, session.ID)
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	if len(events) != 0 {
		t.Errorf("transcript events survived session delete: %d left", len(events))
	}
}
