package chat

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/vetchat/internal/appointments"
	"github.com/wolfman30/vetchat/internal/booking"
	"github.com/wolfman30/vetchat/internal/conversation"
	"github.com/wolfman30/vetchat/internal/http/response"
	"github.com/wolfman30/vetchat/pkg/logging"
)

// ConversationsHandler serves the admin conversation routes.
type ConversationsHandler struct {
	convs  conversation.Store
	appts  appointments.Repository
	logger *logging.Logger
}

func NewConversationsHandler(convs conversation.Store, appts appointments.Repository, logger *logging.Logger) *ConversationsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ConversationsHandler{convs: convs, appts: appts, logger: logger}
}

type conversationList struct {
	Conversations []conversation.Summary  `json:"conversations"`
	Pagination    appointments.Pagination `json:"pagination"`
}

type conversationDetail struct {
	*conversation.Conversation
	Appointments []appointments.Appointment `json:"appointments"`
}

// List handles GET /api/conversations?limit=&skip=&step=.
func (h *ConversationsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter conversation.ListFilter
	for _, pair := range []struct {
		key string
		dst *int
	}{{"limit", &filter.Limit}, {"skip", &filter.Skip}} {
		raw := strings.TrimSpace(q.Get(pair.key))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.Error(w, http.StatusBadRequest, "invalid "+pair.key)
			return
		}
		*pair.dst = n
	}
	for _, raw := range q["step"] {
		for _, part := range strings.Split(raw, ",") {
			step := booking.Step(strings.TrimSpace(part))
			if step == "" {
				continue
			}
			if !step.Valid() {
				response.Error(w, http.StatusBadRequest, "invalid step")
				return
			}
			filter.Steps = append(filter.Steps, step)
		}
	}

	filter = filter.Normalized()

	items, err := h.convs.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list conversations", "error", err)
		response.Error(w, http.StatusInternalServerError, "failed to list conversations")
		return
	}
	response.JSON(w, http.StatusOK, conversationList{
		Conversations: items,
		Pagination:    appointments.Pagination{Limit: filter.Limit, Skip: filter.Skip, Count: len(items)},
	})
}

// Get handles GET /api/conversations/{sessionId}.
func (h *ConversationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")
	conv, err := h.convs.Get(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, conversation.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "Conversation not found")
			return
		}
		h.logger.Error("failed to load conversation", "error", err, "session_id", sessionID)
		response.Error(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}

	appts, err := h.appts.ListBySession(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("failed to load session appointments", "error", err, "session_id", sessionID)
		response.Error(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}
	if appts == nil {
		appts = []appointments.Appointment{}
	}
	response.JSON(w, http.StatusOK, conversationDetail{Conversation: conv, Appointments: appts})
}
