package notify

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/wolfman30/vetchat/internal/appointments"
	"github.com/wolfman30/vetchat/pkg/logging"
)

const whenLayout = "Monday, January 2, 2006 at 3:04 PM MST"

// Service tells clinic staff about new bookings.
type Service struct {
	email      EmailSender
	recipients []string
	loc        *time.Location
	logger     *logging.Logger
}

// NewService creates a notification service. With no sender or no
// recipients every notification is skipped.
func NewService(email EmailSender, recipients []string, loc *time.Location, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	clean := make([]string, 0, len(recipients))
	for _, r := range recipients {
		if r = strings.TrimSpace(r); r != "" {
			clean = append(clean, r)
		}
	}
	return &Service{email: email, recipients: clean, loc: loc, logger: logger}
}

// AppointmentBooked emails every recipient a summary of appt. A failure for
// one recipient does not stop the others.
func (s *Service) AppointmentBooked(ctx context.Context, appt appointments.Appointment) error {
	if s == nil || s.email == nil || len(s.recipients) == 0 {
		return nil
	}

	msg := EmailMessage{
		Subject:  fmt.Sprintf("📅 New appointment request - %s (%s)", appt.PetName, appt.OwnerName),
		Text:     FormatAppointmentSummary(appt, s.loc),
		HTML:     FormatAppointmentSummaryHTML(appt, s.loc),
		Category: "appointment-booked",
		Tags: map[string]string{
			"appointment_id": appt.ID,
			"booking_ref":    appt.BookingRef,
		},
	}

	var failed int
	for _, recipient := range s.recipients {
		msg.To = recipient
		if err := s.email.Send(ctx, msg); err != nil {
			s.logger.Error("notify: failed to send booking email", "error", err, "to", recipient, "appointment_id", appt.ID)
			failed++
			continue
		}
		s.logger.Info("notify: booking email sent", "to", recipient, "appointment_id", appt.ID)
	}
	if failed > 0 {
		return fmt.Errorf("notify: %d notification(s) failed", failed)
	}
	return nil
}

// FormatAppointmentSummary renders the plain-text body.
func FormatAppointmentSummary(appt appointments.Appointment, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("A new appointment was requested through the chat assistant.\n\n")
	b.WriteString(fmt.Sprintf("Owner: %s\n", valueOrNA(appt.OwnerName)))
	b.WriteString(fmt.Sprintf("Pet: %s\n", valueOrNA(appt.PetName)))
	b.WriteString(fmt.Sprintf("Phone: %s\n", valueOrNA(appt.Phone)))
	b.WriteString(fmt.Sprintf("Preferred time: %s\n", appt.PreferredDateTime.In(loc).Format(whenLayout)))
	b.WriteString(fmt.Sprintf("Status: %s\n", appt.Status))
	if appt.Notes != "" {
		b.WriteString(fmt.Sprintf("Notes: %s\n", appt.Notes))
	}
	b.WriteString(fmt.Sprintf("Reference: %s\n", appt.BookingRef))
	b.WriteString("\nPlease call the owner to confirm the visit.")
	return b.String()
}

// FormatAppointmentSummaryHTML renders the HTML body. Every value is escaped.
func FormatAppointmentSummaryHTML(appt appointments.Appointment, loc *time.Location) string {
	row := func(label, value string) string {
		return fmt.Sprintf(`<tr><td style="padding:6px 12px;font-weight:bold;">%s</td><td style="padding:6px 12px;">%s</td></tr>`,
			label, html.EscapeString(value))
	}
	rows := []string{
		row("Owner", valueOrNA(appt.OwnerName)),
		row("Pet", valueOrNA(appt.PetName)),
		row("Phone", valueOrNA(appt.Phone)),
		row("Preferred time", appt.PreferredDateTime.In(loc).Format(whenLayout)),
		row("Status", string(appt.Status)),
	}
	if appt.Notes != "" {
		rows = append(rows, row("Notes", appt.Notes))
	}
	rows = append(rows, row("Reference", appt.BookingRef))

	return fmt.Sprintf(`<div style="font-family:sans-serif;max-width:600px;">
<h2 style="color:#0ea5e9;">📅 New appointment request</h2>
<table style="border-collapse:collapse;margin:16px 0;">
%s
</table>
<p>Please call the owner to confirm the visit.</p>
</div>`, strings.Join(rows, "\n"))
}

func valueOrNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
