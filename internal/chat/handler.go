package chat

import (
	"errors"
	"net/http"
	"strings"

	"github.com/wolfman30/vetchat/internal/conversation"
	"github.com/wolfman30/vetchat/internal/http/response"
	"github.com/wolfman30/vetchat/pkg/logging"
)

const politeFailure = "Sorry, we couldn't process your message right now. Please try again in a moment."

// Handler serves the public chat routes.
type Handler struct {
	svc      *Service
	upgrader wsUpgrader
	logger   *logging.Logger
}

// NewHandler creates a chat handler. allowedOrigins limits websocket
// upgrades the same way CORS limits XHR; "*" allows any origin.
func NewHandler(svc *Service, allowedOrigins []string, logger *logging.Logger) *Handler {
	if svc == nil {
		panic("chat: service is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, upgrader: newUpgrader(allowedOrigins), logger: logger}
}

type messageRequest struct {
	SessionID string               `json:"sessionId"`
	Message   string               `json:"message"`
	Context   conversation.Context `json:"context"`
}

type initRequest struct {
	Context conversation.Context `json:"context"`
}

// Message handles POST /api/chat/message.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	reply, err := h.svc.HandleMessage(r.Context(), req.SessionID, req.Message, req.Context)
	if err != nil {
		status, msg := h.classify(err, req.SessionID)
		response.Error(w, status, msg)
		return
	}
	response.JSON(w, http.StatusOK, reply)
}

// Init handles POST /api/chat/init.
func (h *Handler) Init(w http.ResponseWriter, r *http.Request) {
	var req initRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	sess, err := h.svc.InitSession(r.Context(), req.Context)
	if err != nil {
		h.logger.Error("session init failed", "error", err)
		response.Error(w, http.StatusInternalServerError, "Failed to initialize session")
		return
	}
	response.JSON(w, http.StatusOK, sess)
}

// Status handles GET /api/chat/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]any{
		"ai":     h.svc.Status(),
		"server": "running",
	})
}

// classify maps a HandleMessage error to an HTTP status and user-facing text.
func (h *Handler) classify(err error, sessionID string) (int, string) {
	switch {
	case errors.Is(err, ErrEmptyMessage):
		return http.StatusBadRequest, "Message is required"
	case errors.Is(err, conversation.ErrNotFound):
		return http.StatusNotFound, "Conversation not found"
	case errors.Is(err, conversation.ErrLockTimeout):
		return http.StatusConflict, "Another message for this conversation is still being processed"
	default:
		h.logger.Error("chat message failed", "error", err, "session_id", strings.TrimSpace(sessionID))
		return http.StatusInternalServerError, politeFailure
	}
}
