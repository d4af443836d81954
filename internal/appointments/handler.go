package appointments

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/vetchat/internal/http/response"
	"github.com/wolfman30/vetchat/pkg/logging"
)

// Handler serves the admin appointment routes.
type Handler struct {
	repo   Repository
	events EventPublisher
	loc    *time.Location
	now    func() time.Time
	logger *logging.Logger
}

// NewHandler creates an appointment handler. loc is the clinic timezone used
// for the today count.
func NewHandler(repo Repository, events EventPublisher, loc *time.Location, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{repo: repo, events: events, loc: loc, now: time.Now, logger: logger}
}

// Pagination echoes the paging window of a listing.
type Pagination struct {
	Limit int `json:"limit"`
	Skip  int `json:"skip"`
	Count int `json:"count"`
}

// ListResponse is the body of GET /api/appointments.
type ListResponse struct {
	Appointments []Appointment `json:"appointments"`
	Stats        Stats         `json:"stats"`
	Pagination   Pagination    `json:"pagination"`
}

// List handles GET /api/appointments.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r, h.loc)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	filter = filter.Normalized()

	items, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list appointments", "error", err)
		response.Error(w, http.StatusInternalServerError, "failed to list appointments")
		return
	}
	stats, err := h.repo.Stats(r.Context(), h.now().In(h.loc))
	if err != nil {
		h.logger.Error("failed to load appointment stats", "error", err)
		response.Error(w, http.StatusInternalServerError, "failed to load appointment stats")
		return
	}

	response.JSON(w, http.StatusOK, ListResponse{
		Appointments: items,
		Stats:        *stats,
		Pagination:   Pagination{Limit: filter.Limit, Skip: filter.Skip, Count: len(items)},
	})
}

// Stats handles GET /api/appointments/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.Stats(r.Context(), h.now().In(h.loc))
	if err != nil {
		h.logger.Error("failed to load appointment stats", "error", err)
		response.Error(w, http.StatusInternalServerError, "failed to load appointment stats")
		return
	}
	response.JSON(w, http.StatusOK, stats)
}

// Get handles GET /api/appointments/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	appt, err := h.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.Error(w, http.StatusNotFound, "Appointment not found")
			return
		}
		h.logger.Error("failed to load appointment", "error", err, "appointment_id", id)
		response.Error(w, http.StatusInternalServerError, "failed to load appointment")
		return
	}
	response.JSON(w, http.StatusOK, appt)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles PATCH /api/appointments/{id} and
// PATCH /api/appointments/{id}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateStatusRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	status, err := ParseStatus(req.Status)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid status")
		return
	}

	before, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.writeLookupError(w, err, id)
		return
	}
	updated, err := h.repo.UpdateStatus(r.Context(), id, status)
	if err != nil {
		h.writeLookupError(w, err, id)
		return
	}

	h.logger.Info("appointment status updated", "appointment_id", id, "from", before.Status, "to", updated.Status)
	if h.events != nil && before.Status != updated.Status {
		evt := StatusChangedEvent{
			AppointmentID: updated.ID,
			SessionID:     updated.SessionID,
			From:          before.Status,
			To:            updated.Status,
			ChangedAt:     updated.UpdatedAt,
		}
		if err := h.events.Publish(r.Context(), EventStatusChanged, evt); err != nil {
			h.logger.Warn("failed to publish status change", "error", err, "appointment_id", id)
		}
	}
	response.JSON(w, http.StatusOK, updated)
}

func (h *Handler) writeLookupError(w http.ResponseWriter, err error, id string) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.Error(w, http.StatusNotFound, "Appointment not found")
	case errors.Is(err, ErrInvalidStatus):
		response.Error(w, http.StatusBadRequest, "Invalid status")
	default:
		h.logger.Error("failed to update appointment", "error", err, "appointment_id", id)
		response.Error(w, http.StatusInternalServerError, "failed to update appointment")
	}
}

func parseListFilter(r *http.Request, loc *time.Location) (ListFilter, error) {
	q := r.URL.Query()
	var filter ListFilter

	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status, err := ParseStatus(raw)
		if err != nil {
			return filter, errors.New("invalid status filter")
		}
		filter.Status = status
	}
	if raw := strings.TrimSpace(q.Get("fromDate")); raw != "" {
		from, err := parseFromDate(raw, loc)
		if err != nil {
			return filter, errors.New("invalid fromDate")
		}
		filter.From = &from
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return filter, errors.New("invalid limit")
		}
		filter.Limit = n
	}
	if raw := q.Get("skip"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return filter, errors.New("invalid skip")
		}
		filter.Skip = n
	}
	return filter, nil
}

func parseFromDate(raw string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", raw, loc)
}
