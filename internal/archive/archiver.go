// Package archive keeps a PII-scrubbed copy of every finished booking
// dialogue in S3 for later review.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfman30/vetchat/internal/appointments"
	"github.com/wolfman30/vetchat/internal/conversation"
	"github.com/wolfman30/vetchat/pkg/logging"
)

// Outcomes recorded for a finished booking dialogue.
const (
	OutcomeBooked    = "booked"
	OutcomeCancelled = "cancelled"
)

// Archiver turns conversations into transcript records.
type Archiver struct {
	store  *Store
	logger *logging.Logger
	now    func() time.Time
}

// NewArchiver returns nil when store is not enabled.
func NewArchiver(store *Store, logger *logging.Logger) *Archiver {
	if !store.Enabled() {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Archiver{store: store, logger: logger, now: time.Now}
}

// ArchiveTranscript stores conv with the given outcome. appts are the
// appointments booked in the session.
func (a *Archiver) ArchiveTranscript(ctx context.Context, conv conversation.Conversation, outcome string, appts []appointments.Appointment) error {
	if a == nil {
		return nil
	}
	if conv.SessionID == "" {
		return fmt.Errorf("archive: session id required")
	}
	record := BuildRecord(conv, outcome, appts, a.now().UTC())
	return a.store.Put(ctx, record)
}

// BuildRecord scrubs conv into a transcript record archived at at.
func BuildRecord(conv conversation.Conversation, outcome string, appts []appointments.Appointment, at time.Time) *TranscriptRecord {
	record := &TranscriptRecord{
		Version:      recordVersion,
		SessionID:    conv.SessionID,
		Source:       conv.Context.Source,
		PetName:      conv.Context.PetName,
		Outcome:      outcome,
		StartedAt:    conv.CreatedAt,
		ArchivedAt:   at,
		MessageCount: len(conv.Messages),
		Messages:     make([]Message, 0, len(conv.Messages)),
	}
	if !conv.CreatedAt.IsZero() && at.After(conv.CreatedAt) {
		record.DurationSeconds = int(at.Sub(conv.CreatedAt).Seconds())
	}
	for _, m := range conv.Messages {
		record.Messages = append(record.Messages, Message{
			Role:      string(m.Role),
			Content:   ScrubPII(m.Content),
			Timestamp: m.Timestamp,
		})
	}
	for _, appt := range appts {
		record.AppointmentIDs = append(record.AppointmentIDs, appt.ID)
		if record.PetName == "" {
			record.PetName = appt.PetName
		}
		if record.PhoneHash == "" {
			record.PhoneHash = HashPhone(appt.Phone)
		}
	}
	return record
}
