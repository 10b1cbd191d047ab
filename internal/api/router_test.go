package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/user/claudeterm/internal/db"
	"github.com/user/claudeterm/internal/registry"
)

func newTestRouter(t *testing.T, token string) (http.Handler, *db.DB) {
	t.Helper()
	dir := t.TempDir()

	database, err := db.Open(context.Background(), filepath.Join(dir, "api-test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })

	agents, err := registry.NewRegistry(filepath.Join(dir, "agents"))
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	return NewRouter(database.SQL(), agents, token), database
}

func doRequest(t *testing.T, router http.Handler, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAuthRequired(t *testing.T) {
	router, _ := newTestRouter(t, "secret")

	rec := doRequest(t, router, http.MethodGet, "/api/sessions", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/sessions", "wrong")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d, want 401", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/sessions", "secret")
	if rec.Code != http.StatusOK {
		t.Errorf("bearer token status = %d, want 200", rec.Code)
	}

	// Query-parameter tokens also pass, for clients that cannot set
	// headers.
	req := httptest.NewRequest(http.MethodGet, "/api/sessions?token=secret", nil)
	queryRec := httptest.NewRecorder()
	router.ServeHTTP(queryRec, req)
	if queryRec.Code != http.StatusOK {
		t.Errorf("query token status = %d, want 200", queryRec.Code)
	}
}

func TestListSessionsFiltered(t *testing.T) {
	router, database := newTestRouter(t, "secret")
	repo := db.NewSessionRepo(database.SQL())
	ctx := context.Background()

	for _, s := range []*db.Session{
		{ProjectID: "proj-a", Status: "running"},
		{ProjectID: "proj-b", Status: "closed"},
	} {
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	rec := doRequest(t, router, http.MethodGet, "/api/sessions?project_id=proj-a", "secret")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var sessions []db.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &sessions); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ProjectID != "proj-a" {
		t.Errorf("sessions = %+v, want just proj-a", sessions)
	}
}

func TestGetSessionAndTranscript(t *testing.T) {
	router, database := newTestRouter(t, "secret")
	ctx := context.Background()

	session := &db.Session{ProjectID: "proj-a", Status: "running"}
	if err := db.NewSessionRepo(database.SQL()).Create(ctx, session); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := db.NewTranscriptRepo(database.SQL()).Append(ctx, &db.TranscriptEvent{
		SessionID: session.ID,
		Kind:      "text",
		Content:   "hello",
	}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	rec := doRequest(t, router, http.MethodGet, "/api/sessions/"+session.ID, "secret")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, want 200", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/sessions/"+session.ID+"/transcript", "secret")
	if rec.Code != http.StatusOK {
		t.Fatalf("transcript status = %d, want 200", rec.Code)
	}
	var events []db.TranscriptEvent
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(events) != 1 || events[0].Content != "hello" {
		t.Errorf("events = %+v", events)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/sessions/missing", "secret")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing session status = %d, want 404", rec.Code)
	}
}

func TestDeleteSession(t *testing.T) {
	router, database := newTestRouter(t, "secret")
	ctx := context.Background()

	session := &db.Session{ProjectID: "proj-a", Status: "closed"}
	if err := db.NewSessionRepo(database.SQL()).Create(ctx, session); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	rec := doRequest(t, router, http.MethodDelete, "/api/sessions/"+session.ID, "secret")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", rec.Code)
	}

	rec = doRequest(t, router, http.MethodDelete, "/api/sessions/"+session.ID, "secret")
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestAgentEndpoints(t *testing.T) {
	router, _ := newTestRouter(t, "secret")

	rec := doRequest(t, router, http.MethodGet, "/api/agents", "secret")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", rec.Code)
	}
	var profiles []registry.AgentProfile
	if err := json.Unmarshal(rec.Body.Bytes(), &profiles); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(profiles) == 0 {
		t.Fatal("no default agent profiles listed")
	}

	rec = doRequest(t, router, http.MethodGet, "/api/agents/claude-code", "secret")
	if rec.Code != http.StatusOK {
		t.Errorf("get status = %d, want 200", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/agents/nope", "secret")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing profile status = %d, want 404", rec.Code)
	}

	rec = doRequest(t, router, http.MethodPost, "/api/agents/reload", "secret")
	if rec.Code != http.StatusOK {
		t.Errorf("reload status = %d, want 200", rec.Code)
	}
}
