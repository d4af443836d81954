// Package notify emails clinic staff when the chat assistant books an
// appointment.
package notify

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"strings"

	"github.com/wolfman30/vetchat/pkg/logging"
)

const defaultFromName = "VetChat"

// EmailSender delivers one email. SendGrid, SES and the stub are interchangeable.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is a single-recipient email.
type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
	// Category groups messages in the provider's reporting.
	Category string
	// Tags travel with the message so bounces can be traced to a booking.
	Tags map[string]string
}

func (m EmailMessage) validate() error {
	if strings.TrimSpace(m.To) == "" {
		return fmt.Errorf("notify: recipient required")
	}
	if m.Text == "" && m.HTML == "" {
		return fmt.Errorf("notify: message body required")
	}
	return nil
}

// sortedTags returns tag keys in a stable order.
func (m EmailMessage) sortedTags() []string {
	keys := make([]string, 0, len(m.Tags))
	for k := range m.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// sender holds the From identity shared by every provider.
type sender struct {
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

func newSender(fromEmail, fromName string, logger *logging.Logger) sender {
	if logger == nil {
		logger = logging.Default()
	}
	if strings.TrimSpace(fromName) == "" {
		fromName = defaultFromName
	}
	return sender{fromEmail: strings.TrimSpace(fromEmail), fromName: fromName, logger: logger}
}

// fromAddress renders an RFC 5322 From header, quoting the name as needed.
func (s sender) fromAddress() string {
	return (&mail.Address{Name: s.fromName, Address: s.fromEmail}).String()
}

// StubEmailSender logs instead of sending. Used when no provider is configured.
type StubEmailSender struct {
	logger *logging.Logger
}

func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

func (s *StubEmailSender) Send(_ context.Context, msg EmailMessage) error {
	if err := msg.validate(); err != nil {
		return err
	}
	s.logger.Info("email disabled, not sending", "to", msg.To, "subject", msg.Subject, "category", msg.Category)
	return nil
}

var (
	_ EmailSender = (*SESSender)(nil)
	_ EmailSender = (*SendGridSender)(nil)
	_ EmailSender = (*StubEmailSender)(nil)
)
