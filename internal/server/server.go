// Package server wires the HTTP routes and owns the listener lifecycle.
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/user/claudeterm/internal/config"
	"github.com/user/claudeterm/internal/hub"
	"github.com/user/claudeterm/internal/monitor"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	cfg        *config.Config
	db         *sql.DB
	httpServer *http.Server
}

func New(cfg *config.Config, h *hub.Hub, db *sql.DB, metrics *monitor.Metrics, apiHandler http.Handler) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws/terminal/{project}", h.HandleTerminal)
	if apiHandler != nil {
		mux.Handle("/api/sessions", apiHandler)
		mux.Handle("/api/sessions/", apiHandler)
		mux.Handle("/api/agents", apiHandler)
		mux.Handle("/api/agents/", apiHandler)
	}

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		status := "ok"
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				status = "degraded"
			}
		}
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	})

	mux.HandleFunc("GET /api/stats", func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" || token != cfg.Token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if metrics == nil {
			w.Write([]byte("{}"))
			return
		}
		json.NewEncoder(w).Encode(metrics.Snapshot())
	})

	return &Server{
		cfg: cfg,
		db:  db,
		httpServer: &http.Server{
			Addr:    fmt.Sprintf("0.0.0.0:%d", cfg.Port),
			Handler: mux,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}
