// Package appointments persists the appointment records produced by
// confirmed bookings and serves the admin API over them.
package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/vetchat/internal/booking"
)

var (
	// ErrNotFound is returned when no appointment matches an id.
	ErrNotFound = errors.New("appointments: not found")
	// ErrInvalidStatus is returned for a status outside the four known values.
	ErrInvalidStatus = errors.New("appointments: invalid status")
	// ErrInvalidRequest is returned when a create request misses required fields.
	ErrInvalidRequest = errors.New("appointments: invalid request")
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// ParseStatus validates raw as a status. Matching is case-insensitive.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return s, nil
}

// Appointment is a booked visit request.
type Appointment struct {
	ID                string    `json:"id" bson:"_id"`
	SessionID         string    `json:"sessionId" bson:"sessionId"`
	BookingRef        string    `json:"bookingRef" bson:"bookingRef"`
	OwnerName         string    `json:"ownerName" bson:"ownerName"`
	PetName           string    `json:"petName" bson:"petName"`
	Phone             string    `json:"phone" bson:"phone"`
	PreferredDateTime time.Time `json:"preferredDateTime" bson:"preferredDateTime"`
	Status            Status    `json:"status" bson:"status"`
	Notes             string    `json:"notes" bson:"notes"`
	CreatedAt         time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt" bson:"updatedAt"`
}

// CreateRequest carries the fields of a new appointment.
type CreateRequest struct {
	SessionID         string
	BookingRef        string
	OwnerName         string
	PetName           string
	Phone             string
	PreferredDateTime time.Time
	Notes             string
}

// FromDraft converts a confirmed booking into a create request.
func FromDraft(d booking.Draft) CreateRequest {
	return CreateRequest{
		SessionID:         d.SessionID,
		BookingRef:        d.BookingRef,
		OwnerName:         d.OwnerName,
		PetName:           d.PetName,
		Phone:             d.Phone,
		PreferredDateTime: d.PreferredDateTime,
	}
}

// Validate checks the required fields.
func (r CreateRequest) Validate() error {
	var missing []string
	for name, value := range map[string]string{
		"sessionId":  r.SessionID,
		"bookingRef": r.BookingRef,
		"ownerName":  r.OwnerName,
		"petName":    r.PetName,
		"phone":      r.Phone,
	} {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if r.PreferredDateTime.IsZero() {
		missing = append(missing, "preferredDateTime")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidRequest, strings.Join(missing, ", "))
	}
	return nil
}

func (r CreateRequest) trimmed() CreateRequest {
	r.OwnerName = strings.TrimSpace(r.OwnerName)
	r.PetName = strings.TrimSpace(r.PetName)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Notes = strings.TrimSpace(r.Notes)
	return r
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// ListFilter narrows an appointment listing. From bounds PreferredDateTime.
type ListFilter struct {
	Status Status
	From   *time.Time
	Limit  int
	Skip   int
}

// Normalized applies the default and maximum page size.
func (f ListFilter) Normalized() ListFilter {
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Skip < 0 {
		f.Skip = 0
	}
	return f
}

func (f ListFilter) matches(a Appointment) bool {
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.From != nil && a.PreferredDateTime.Before(*f.From) {
		return false
	}
	return true
}

// Stats aggregates appointment counts for the dashboard.
type Stats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Confirmed  int `json:"confirmed"`
	TodayCount int `json:"todayCount"`
}

// DayBounds returns the calendar day containing now, in now's location.
func DayBounds(now time.Time) (time.Time, time.Time) {
	y, m, d := now.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 0, 1)
}

// Repository persists appointments.
type Repository interface {
	// Create inserts a pending appointment. A second call with the same
	// BookingRef returns the existing record.
	Create(ctx context.Context, req CreateRequest) (*Appointment, error)
	Get(ctx context.Context, id string) (*Appointment, error)
	// List returns matches ordered by preferred time, earliest first.
	List(ctx context.Context, filter ListFilter) ([]Appointment, error)
	// ListBySession returns a session's appointments, newest first.
	ListBySession(ctx context.Context, sessionID string) ([]Appointment, error)
	UpdateStatus(ctx context.Context, id string, status Status) (*Appointment, error)
	// Stats counts appointments. TodayCount covers the calendar day of now.
	Stats(ctx context.Context, now time.Time) (*Stats, error)
}
