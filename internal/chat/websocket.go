package chat

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wolfman30/vetchat/internal/conversation"
)

const (
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second
	wsWriteWait  = 10 * time.Second
)

type wsUpgrader = websocket.Upgrader

func newUpgrader(allowedOrigins []string) wsUpgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range allowedOrigins {
				if allowed == "*" || strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// wsInbound is one client frame. Type is "message" or "init".
type wsInbound struct {
	Type      string               `json:"type"`
	SessionID string               `json:"sessionId"`
	Message   string               `json:"message"`
	Context   conversation.Context `json:"context"`
}

type wsOutbound struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// WebSocket handles GET /api/chat/ws. Frames carry the same operations as
// the HTTP routes; a frame without sessionId reuses the connection's session.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	go h.pingLoop(ctx, conn)

	sessionID := strings.TrimSpace(r.URL.Query().Get("sessionId"))
	for {
		var in wsInbound
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))

		if id := strings.TrimSpace(in.SessionID); id != "" {
			sessionID = id
		}

		switch in.Type {
		case "init":
			sess, err := h.svc.InitSession(ctx, in.Context)
			if err != nil {
				h.logger.Error("session init failed", "error", err)
				h.writeFrame(conn, "error", "", map[string]string{"message": "Failed to initialize session"})
				continue
			}
			sessionID = sess.SessionID
			h.writeFrame(conn, "session", sessionID, sess)
		case "message", "":
			reply, err := h.svc.HandleMessage(ctx, sessionID, in.Message, in.Context)
			if err != nil {
				_, msg := h.classify(err, sessionID)
				h.writeFrame(conn, "error", sessionID, map[string]string{"message": msg})
				continue
			}
			sessionID = reply.SessionID
			h.writeFrame(conn, "reply", sessionID, reply)
		default:
			h.writeFrame(conn, "error", sessionID, map[string]string{"message": "unknown frame type"})
		}
	}
}

func (h *Handler) writeFrame(conn *websocket.Conn, kind, sessionID string, data any) {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(wsOutbound{Type: kind, SessionID: sessionID, Data: data, Timestamp: time.Now().Unix()}); err != nil {
		h.logger.Warn("websocket write failed", "error", err, "type", kind)
	}
}

func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}
