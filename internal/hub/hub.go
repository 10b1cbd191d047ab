// Package hub accepts WebSocket subscribers and attaches each one to its
// project's session controller. A project has at most one subscriber; a
// new connection for the same project replaces the old one.
package hub

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"github.com/user/claudeterm/internal/broadcast"
	"github.com/user/claudeterm/internal/protocol"
	"github.com/user/claudeterm/internal/session"
)

const (
	readLimit    = 32768
	pingInterval = 30 * time.Second
)

type Hub struct {
	token     string
	broadcast *broadcast.Registry
	sessions  *session.Registry
}

func New(token string, bc *broadcast.Registry, sessions *session.Registry) *Hub {
	return &Hub{
		token:     token,
		broadcast: bc,
		sessions:  sessions,
	}
}

// HandleTerminal upgrades the connection and runs the subscriber loops
// until the client disconnects. Route it with a {project} path wildcard.
func (h *Hub) HandleTerminal(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project")
	if projectID == "" {
		http.Error(w, "missing project id", http.StatusBadRequest)
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" || token != h.token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept failed", "project_id", projectID, "error", err)
		return
	}

	h.serve(r.Context(), conn, projectID)
}

func (h *Hub) serve(ctx context.Context, conn *websocket.Conn, projectID string) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ctrl := h.sessions.GetOrCreate(projectID)
	frames := h.broadcast.Bind(projectID)
	slog.Info("subscriber connected", "project_id", projectID)

	defer func() {
		h.broadcast.Release(projectID, frames)
		// Keep the controller for a replacement subscriber or a live
		// child; reap it only when both are gone.
		if !h.broadcast.Bound(projectID) && !ctrl.Alive() {
			h.sessions.Remove(projectID)
		}
		conn.Close(websocket.StatusNormalClosure, "")
		slog.Info("subscriber disconnected", "project_id", projectID)
	}()

	conn.SetReadLimit(readLimit)

	h.broadcast.Send(projectID, protocol.InitFrame{
		Type:      "init",
		Message:   "connected to project " + projectID,
		Timestamp: protocol.Now(),
	})

	go h.writePump(ctx, cancel, conn, frames)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure &&
				ctx.Err() == nil {
				slog.Debug("subscriber read error", "project_id", projectID, "error", err)
			}
			return
		}
		ctrl.HandleMessage(ctx, data)
	}
}

// writePump drains the bound frame channel onto the socket and keeps the
// connection alive with periodic pings. The channel closing means this
// subscriber was replaced or released.
func (h *Hub) writePump(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, frames <-chan []byte) {
	defer cancel()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.Ping(ctx); err != nil {
				return
			}
		case msg, ok := <-frames:
			if !ok {
				conn.Close(websocket.StatusPolicyViolation, "replaced by newer subscriber")
				return
			}
			if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}
}
