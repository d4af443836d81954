// Package conversation stores chat sessions: their message history,
// caller-supplied context and the embedded booking dialogue state.
package conversation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/wolfman30/vetchat/internal/booking"
)

// ErrNotFound is returned when no conversation exists for a session id.
var ErrNotFound = errors.New("conversation: not found")

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Message is one entry of a conversation's append-only history.
type Message struct {
	Role      Role      `json:"role" bson:"role"`
	Content   string    `json:"content" bson:"content"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// Context holds caller hints about who is chatting.
type Context struct {
	UserID   string `json:"userId,omitempty" bson:"userId,omitempty"`
	UserName string `json:"userName,omitempty" bson:"userName,omitempty"`
	PetName  string `json:"petName,omitempty" bson:"petName,omitempty"`
	Source   string `json:"source,omitempty" bson:"source,omitempty"`
}

// Trimmed returns c with surrounding whitespace removed from every field.
func (c Context) Trimmed() Context {
	return Context{
		UserID:   strings.TrimSpace(c.UserID),
		UserName: strings.TrimSpace(c.UserName),
		PetName:  strings.TrimSpace(c.PetName),
		Source:   strings.TrimSpace(c.Source),
	}
}

// IsEmpty reports whether no field is set.
func (c Context) IsEmpty() bool {
	return c == Context{}
}

// Merge overlays the non-empty fields of update onto c. Fields update leaves
// empty keep their stored value.
func (c Context) Merge(update Context) Context {
	update = update.Trimmed()
	if update.UserID != "" {
		c.UserID = update.UserID
	}
	if update.UserName != "" {
		c.UserName = update.UserName
	}
	if update.PetName != "" {
		c.PetName = update.PetName
	}
	if update.Source != "" {
		c.Source = update.Source
	}
	return c
}

// Booking converts the chat context into booking pre-fill hints.
func (c Context) Booking() booking.Context {
	return booking.Context{UserName: c.UserName, PetName: c.PetName}
}

// Conversation is the session-keyed chat record.
type Conversation struct {
	SessionID string        `json:"sessionId" bson:"sessionId"`
	Messages  []Message     `json:"messages" bson:"messages"`
	Context   Context       `json:"context" bson:"context"`
	Booking   booking.State `json:"bookingState" bson:"bookingState"`
	CreatedAt time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt" bson:"updatedAt"`
}

// Summary is the admin listing view of a conversation.
type Summary struct {
	SessionID    string        `json:"sessionId"`
	Context      Context       `json:"context"`
	Booking      booking.State `json:"bookingState"`
	MessageCount int           `json:"messageCount"`
	LastMessage  *Message      `json:"lastMessage,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// Summarize builds the listing view of conv.
func Summarize(conv Conversation) Summary {
	s := Summary{
		SessionID:    conv.SessionID,
		Context:      conv.Context,
		Booking:      conv.Booking.Normalize(),
		MessageCount: len(conv.Messages),
		CreatedAt:    conv.CreatedAt,
		UpdatedAt:    conv.UpdatedAt,
	}
	if n := len(conv.Messages); n > 0 {
		last := conv.Messages[n-1]
		s.LastMessage = &last
	}
	return s
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// ListFilter narrows an admin listing. Empty Steps means every step.
type ListFilter struct {
	Limit int
	Skip  int
	Steps []booking.Step
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

func (f ListFilter) matches(step booking.Step) bool {
	if len(f.Steps) == 0 {
		return true
	}
	for _, s := range f.Steps {
		if s == step {
			return true
		}
	}
	return false
}

func (f ListFilter) stepStrings() []string {
	if len(f.Steps) == 0 {
		return nil
	}
	out := make([]string, 0, len(f.Steps))
	for _, s := range f.Steps {
		out = append(out, string(s))
	}
	return out
}

// Store persists conversations.
type Store interface {
	// GetOrCreate returns the conversation for sessionID, creating it when
	// absent. Non-empty fields of c are merged into the stored context.
	GetOrCreate(ctx context.Context, sessionID string, c Context) (*Conversation, error)
	Get(ctx context.Context, sessionID string) (*Conversation, error)
	AppendMessage(ctx context.Context, sessionID string, role Role, content string) error
	// UpdateBookingState replaces the stored booking state as a whole.
	UpdateBookingState(ctx context.Context, sessionID string, state booking.State) error
	// List returns conversations newest first.
	List(ctx context.Context, filter ListFilter) ([]Summary, error)
}
