package appointments

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository stores appointments in process memory.
type MemoryRepository struct {
	mu     sync.RWMutex
	byID   map[string]*Appointment
	byRef  map[string]string
	now    func() time.Time
	nextID func() string
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:   make(map[string]*Appointment),
		byRef:  make(map[string]string),
		now:    time.Now,
		nextID: uuid.NewString,
	}
}

func (r *MemoryRepository) Create(ctx context.Context, req CreateRequest) (*Appointment, error) {
	req = req.trimmed()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byRef[req.BookingRef]; ok {
		existing := *r.byID[id]
		return &existing, nil
	}
	now := r.now().UTC()
	appt := &Appointment{
		ID:                r.nextID(),
		SessionID:         req.SessionID,
		BookingRef:        req.BookingRef,
		OwnerName:         req.OwnerName,
		PetName:           req.PetName,
		Phone:             req.Phone,
		PreferredDateTime: req.PreferredDateTime,
		Status:            StatusPending,
		Notes:             req.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	r.byID[appt.ID] = appt
	r.byRef[appt.BookingRef] = appt.ID
	out := *appt
	return &out, nil
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	appt, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("appointments: get %s: %w", id, ErrNotFound)
	}
	out := *appt
	return &out, nil
}

func (r *MemoryRepository) List(ctx context.Context, filter ListFilter) ([]Appointment, error) {
	filter = filter.Normalized()
	r.mu.RLock()
	matched := make([]Appointment, 0, len(r.byID))
	for _, appt := range r.byID {
		if filter.matches(*appt) {
			matched = append(matched, *appt)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].PreferredDateTime.Equal(matched[j].PreferredDateTime) {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].PreferredDateTime.Before(matched[j].PreferredDateTime)
	})
	if filter.Skip >= len(matched) {
		return []Appointment{}, nil
	}
	matched = matched[filter.Skip:]
	if len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (r *MemoryRepository) ListBySession(ctx context.Context, sessionID string) ([]Appointment, error) {
	r.mu.RLock()
	out := []Appointment{}
	for _, appt := range r.byID {
		if appt.SessionID == sessionID {
			out = append(out, *appt)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepository) UpdateStatus(ctx context.Context, id string, status Status) (*Appointment, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	appt, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("appointments: update status %s: %w", id, ErrNotFound)
	}
	appt.Status = status
	appt.UpdatedAt = r.now().UTC()
	out := *appt
	return &out, nil
}

func (r *MemoryRepository) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	start, end := DayBounds(now)
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := &Stats{Total: len(r.byID)}
	for _, appt := range r.byID {
		switch appt.Status {
		case StatusPending:
			stats.Pending++
		case StatusConfirmed:
			stats.Confirmed++
		}
		if !appt.PreferredDateTime.Before(start) && appt.PreferredDateTime.Before(end) {
			stats.TodayCount++
		}
	}
	return stats, nil
}
