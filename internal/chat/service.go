// Package chat runs the conversational funnel: it records each message,
// routes it to the booking dialogue or the assistant, and persists the
// appointment a confirmed booking produces.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/vetchat/internal/appointments"
	"github.com/wolfman30/vetchat/internal/assistant"
	"github.com/wolfman30/vetchat/internal/booking"
	"github.com/wolfman30/vetchat/internal/conversation"
	"github.com/wolfman30/vetchat/internal/observability/metrics"
	"github.com/wolfman30/vetchat/pkg/logging"
)

var (
	// ErrEmptyMessage is returned for a blank inbound message.
	ErrEmptyMessage = errors.New("chat: message is required")
	// ErrPersistence wraps storage failures while handling a message.
	ErrPersistence = errors.New("chat: persistence failure")
)

const (
	defaultWelcome = "Hello! I'm your veterinary assistant. I can help you with questions about pet care, vaccinations, nutrition, and common health concerns. I can also help you book an appointment with our veterinary team. How can I assist you today?"

	routeAssistant    = "assistant"
	routeBooking      = "booking"
	routeBookingStart = "booking_start"
)

// Generator produces assistant replies.
type Generator interface {
	Generate(ctx context.Context, history []assistant.ChatMessage, gctx assistant.GenerationContext) string
	Status() assistant.Status
}

// Notifier is told about every newly booked appointment.
type Notifier interface {
	AppointmentBooked(ctx context.Context, appt appointments.Appointment) error
}

// Archiver keeps a copy of each finished booking dialogue.
type Archiver interface {
	ArchiveTranscript(ctx context.Context, conv conversation.Conversation, outcome string, appts []appointments.Appointment) error
}

// Reply is the result of handling one message.
type Reply struct {
	Response      string `json:"response"`
	SessionID     string `json:"sessionId"`
	IsBookingFlow bool   `json:"isBookingFlow"`
}

// Session is the result of starting a session.
type Session struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// Deps wires a Service. Conversations, Appointments, Machine and Generator are
// required.
type Deps struct {
	Conversations conversation.Store
	Appointments  appointments.Repository
	Machine       *booking.Machine
	Generator     Generator
	Locker        conversation.SessionLocker
	Notifier      Notifier
	Archiver      Archiver
	Events        appointments.EventPublisher
	Metrics       *metrics.ChatMetrics
	Logger        *logging.Logger
	// IdleTTL resets a booking left untouched for longer. Zero disables.
	IdleTTL time.Duration
}

// Service handles chat messages.
type Service struct {
	convs    conversation.Store
	appts    appointments.Repository
	machine  *booking.Machine
	gen      Generator
	locker   conversation.SessionLocker
	notifier Notifier
	archiver Archiver
	events   appointments.EventPublisher
	metrics  *metrics.ChatMetrics
	logger   *logging.Logger
	idleTTL  time.Duration
	now      func() time.Time
	newID    func() string
}

// NewService builds a chat service.
func NewService(d Deps) *Service {
	if d.Conversations == nil || d.Appointments == nil {
		panic("chat: conversation and appointment stores are required")
	}
	if d.Machine == nil {
		d.Machine = booking.New()
	}
	if d.Generator == nil {
		panic("chat: generator is required")
	}
	if d.Locker == nil {
		d.Locker = conversation.NewLocalLocker()
	}
	if d.Logger == nil {
		d.Logger = logging.Default()
	}
	return &Service{
		convs:    d.Conversations,
		appts:    d.Appointments,
		machine:  d.Machine,
		gen:      d.Generator,
		locker:   d.Locker,
		notifier: d.Notifier,
		archiver: d.Archiver,
		events:   d.Events,
		metrics:  d.Metrics,
		logger:   d.Logger,
		idleTTL:  d.IdleTTL,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
}

// HandleMessage processes one user message. An empty sessionID starts a new
// session; a non-empty one must already exist.
func (s *Service) HandleMessage(ctx context.Context, sessionID, message string, cctx conversation.Context) (*Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		sessionID = s.newID()
	} else if _, err := s.convs.Get(ctx, sessionID); err != nil {
		if errors.Is(err, conversation.ErrNotFound) {
			return nil, fmt.Errorf("chat: session %s: %w", sessionID, err)
		}
		return nil, fmt.Errorf("%w: load session: %w", ErrPersistence, err)
	}

	unlock, err := s.locker.Lock(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("chat: lock session: %w", err)
	}
	defer unlock()

	conv, err := s.convs.GetOrCreate(ctx, sessionID, cctx)
	if err != nil {
		return nil, fmt.Errorf("%w: get conversation: %w", ErrPersistence, err)
	}
	if err := s.convs.AppendMessage(ctx, sessionID, conversation.RoleUser, message); err != nil {
		return nil, fmt.Errorf("%w: append user message: %w", ErrPersistence, err)
	}

	state, err := s.currentBooking(ctx, conv)
	if err != nil {
		return nil, err
	}

	var t turn
	if state.Active {
		t, err = s.advanceBooking(ctx, sessionID, state, message)
	} else {
		t, err = s.respond(ctx, conv, message)
	}
	if err != nil {
		return nil, err
	}

	if err := s.convs.AppendMessage(ctx, sessionID, conversation.RoleAssistant, t.response); err != nil {
		return nil, fmt.Errorf("%w: append reply: %w", ErrPersistence, err)
	}
	if t.finished != "" {
		s.archive(ctx, sessionID, t.finished)
	}

	return &Reply{Response: t.response, SessionID: sessionID, IsBookingFlow: t.bookingFlow}, nil
}

// turn is what routing one message produced.
type turn struct {
	response    string
	bookingFlow bool
	// finished holds the booking result when this message ended the dialogue.
	finished string
}

// currentBooking returns the stored booking state after resetting one that
// is abandoned or broken.
func (s *Service) currentBooking(ctx context.Context, conv *conversation.Conversation) (booking.State, error) {
	state := conv.Booking.Normalize()
	reset := func(reason string) (booking.State, error) {
		idle := booking.Idle()
		idle.UpdatedAt = s.now()
		if err := s.convs.UpdateBookingState(ctx, conv.SessionID, idle); err != nil {
			return booking.State{}, fmt.Errorf("%w: reset booking: %w", ErrPersistence, err)
		}
		s.metrics.ObserveBookingDone(reason)
		return idle, nil
	}

	if err := state.Validate(); err != nil {
		s.logger.Warn("discarding invalid booking state", "session_id", conv.SessionID, "error", err)
		return reset("invalid")
	}
	if state.Active && s.idleTTL > 0 && !state.UpdatedAt.IsZero() && s.now().Sub(state.UpdatedAt) > s.idleTTL {
		s.logger.Info("booking abandoned", "session_id", conv.SessionID, "step", state.Step, "idle_for", s.now().Sub(state.UpdatedAt).String())
		return reset("abandoned")
	}
	return state, nil
}

func (s *Service) advanceBooking(ctx context.Context, sessionID string, state booking.State, message string) (turn, error) {
	s.metrics.ObserveMessage(routeBooking)

	res, err := s.machine.Advance(state, message, sessionID)
	if err != nil {
		return turn{}, fmt.Errorf("chat: advance booking: %w", err)
	}
	s.metrics.ObserveBookingStep(string(state.Step), res.Complete || res.Next.Step != state.Step)

	var appt *appointments.Appointment
	if res.Appointment != nil {
		// The appointment is stored before the booking is cleared. If this
		// fails the user can confirm again; BookingRef prevents duplicates.
		appt, err = s.appts.Create(ctx, appointments.FromDraft(*res.Appointment))
		if err != nil {
			s.logger.Error("failed to save appointment", "session_id", sessionID, "booking_ref", res.Appointment.BookingRef, "error", err)
			return turn{}, fmt.Errorf("%w: create appointment: %w", ErrPersistence, err)
		}
	}

	if err := s.convs.UpdateBookingState(ctx, sessionID, res.Next); err != nil {
		return turn{}, fmt.Errorf("%w: update booking: %w", ErrPersistence, err)
	}

	t := turn{response: res.Response, bookingFlow: !res.Complete}
	if res.Complete {
		result := "cancelled"
		if appt != nil {
			result = "booked"
			s.announce(ctx, *appt)
		}
		s.metrics.ObserveBookingDone(result)
		s.logger.Info("booking finished", "session_id", sessionID, "result", result)
		t.finished = result
	}
	return t, nil
}

// announce notifies staff and emits the created event. Failures are logged
// only: the booking is already stored.
func (s *Service) announce(ctx context.Context, appt appointments.Appointment) {
	if s.notifier != nil {
		if err := s.notifier.AppointmentBooked(ctx, appt); err != nil {
			s.logger.Warn("booking notification failed", "appointment_id", appt.ID, "error", err)
		}
	}
	if s.events != nil {
		if err := s.events.Publish(ctx, appointments.EventCreated, appointments.NewCreatedEvent(appt)); err != nil {
			s.logger.Warn("failed to publish appointment created", "appointment_id", appt.ID, "error", err)
		}
	}
}

// archive hands the finished transcript to the archiver. Failures are logged.
func (s *Service) archive(ctx context.Context, sessionID, outcome string) {
	if s.archiver == nil {
		return
	}
	conv, err := s.convs.Get(ctx, sessionID)
	if err != nil {
		s.logger.Warn("failed to load transcript for archive", "session_id", sessionID, "error", err)
		return
	}
	appts, err := s.appts.ListBySession(ctx, sessionID)
	if err != nil {
		s.logger.Warn("failed to load appointments for archive", "session_id", sessionID, "error", err)
	}
	if err := s.archiver.ArchiveTranscript(ctx, *conv, outcome, appts); err != nil {
		s.logger.Warn("failed to archive transcript", "session_id", sessionID, "error", err)
	}
}

func (s *Service) respond(ctx context.Context, conv *conversation.Conversation, message string) (turn, error) {
	history := make([]assistant.ChatMessage, 0, len(conv.Messages)+1)
	for _, m := range conv.Messages {
		history = append(history, assistant.ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	history = append(history, assistant.ChatMessage{Role: assistant.ChatRoleUser, Content: message})

	text := s.gen.Generate(ctx, history, assistant.GenerationContext{
		UserName: conv.Context.UserName,
		PetName:  conv.Context.PetName,
	})
	if !assistant.HasBookingIntent(text) {
		s.metrics.ObserveMessage(routeAssistant)
		return turn{response: text}, nil
	}

	s.metrics.ObserveMessage(routeBookingStart)
	res := s.machine.Start(conv.Context.Booking())
	if err := s.convs.UpdateBookingState(ctx, conv.SessionID, res.Next); err != nil {
		return turn{}, fmt.Errorf("%w: start booking: %w", ErrPersistence, err)
	}
	s.logger.Info("booking started", "session_id", conv.SessionID, "step", res.Next.Step)
	return turn{response: res.Response, bookingFlow: true}, nil
}

// InitSession creates a session and stores the welcome message as its first
// assistant turn.
func (s *Service) InitSession(ctx context.Context, cctx conversation.Context) (*Session, error) {
	sessionID := s.newID()
	conv, err := s.convs.GetOrCreate(ctx, sessionID, cctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create session: %w", ErrPersistence, err)
	}

	welcome := WelcomeMessage(conv.Context)
	if err := s.convs.AppendMessage(ctx, sessionID, conversation.RoleAssistant, welcome); err != nil {
		return nil, fmt.Errorf("%w: store welcome: %w", ErrPersistence, err)
	}
	s.logger.Info("chat session created", "session_id", sessionID, "source", conv.Context.Source)
	return &Session{SessionID: sessionID, Message: welcome}, nil
}

// WelcomeMessage greets the user, naming the pet when it is known.
func WelcomeMessage(c conversation.Context) string {
	c = c.Trimmed()
	if c.PetName == "" {
		return defaultWelcome
	}
	greeting := "Hello"
	if c.UserName != "" {
		greeting += " " + c.UserName
	}
	return fmt.Sprintf("%s! I'm your veterinary assistant. I can help you with questions about %s's health, vaccinations, nutrition, and common health concerns. I can also help you book an appointment. How can I assist you today?", greeting, c.PetName)
}

// Status reports the assistant wiring.
func (s *Service) Status() assistant.Status {
	return s.gen.Status()
}
