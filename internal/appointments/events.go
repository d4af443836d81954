package appointments

import (
	"context"
	"time"
)

const (
	// EventCreated is published once per persisted booking.
	EventCreated = "appointment.created.v1"
	// EventStatusChanged is published after an admin changes an appointment status.
	EventStatusChanged = "appointment.status_changed.v1"
)

// EventPublisher emits domain events. A nil publisher disables events.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

// CreatedEvent is the payload of EventCreated.
type CreatedEvent struct {
	AppointmentID     string    `json:"appointmentId"`
	SessionID         string    `json:"sessionId"`
	BookingRef        string    `json:"bookingRef"`
	OwnerName         string    `json:"ownerName"`
	PetName           string    `json:"petName"`
	Phone             string    `json:"phone"`
	PreferredDateTime time.Time `json:"preferredDateTime"`
	CreatedAt         time.Time `json:"createdAt"`
}

// NewCreatedEvent builds the created event for a.
func NewCreatedEvent(a Appointment) CreatedEvent {
	return CreatedEvent{
		AppointmentID:     a.ID,
		SessionID:         a.SessionID,
		BookingRef:        a.BookingRef,
		OwnerName:         a.OwnerName,
		PetName:           a.PetName,
		Phone:             a.Phone,
		PreferredDateTime: a.PreferredDateTime,
		CreatedAt:         a.CreatedAt,
	}
}

// StatusChangedEvent is the payload of EventStatusChanged.
type StatusChangedEvent struct {
	AppointmentID string    `json:"appointmentId"`
	SessionID     string    `json:"sessionId"`
	From          Status    `json:"from"`
	To            Status    `json:"to"`
	ChangedAt     time.Time `json:"changedAt"`
}
