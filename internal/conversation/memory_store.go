package conversation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wolfman30/vetchat/internal/booking"
)

// MemoryStore keeps conversations in process memory. Used in development and
// tests.
type MemoryStore struct {
	mu    sync.RWMutex
	convs map[string]*Conversation
	now   func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{convs: make(map[string]*Conversation), now: time.Now}
}

func (s *MemoryStore) GetOrCreate(ctx context.Context, sessionID string, c Context) (*Conversation, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("conversation: session id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	conv, ok := s.convs[sessionID]
	if !ok {
		conv = &Conversation{
			SessionID: sessionID,
			Messages:  []Message{},
			Context:   c.Trimmed(),
			Booking:   booking.Idle(),
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.convs[sessionID] = conv
	} else if !c.Trimmed().IsEmpty() {
		conv.Context = conv.Context.Merge(c)
		conv.UpdatedAt = now
	}
	return cloneConversation(conv), nil
}

func (s *MemoryStore) Get(ctx context.Context, sessionID string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.convs[sessionID]
	if !ok {
		return nil, fmt.Errorf("conversation: get %s: %w", sessionID, ErrNotFound)
	}
	return cloneConversation(conv), nil
}

func (s *MemoryStore) AppendMessage(ctx context.Context, sessionID string, role Role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.convs[sessionID]
	if !ok {
		return fmt.Errorf("conversation: append message %s: %w", sessionID, ErrNotFound)
	}
	now := s.now()
	conv.Messages = append(conv.Messages, Message{Role: role, Content: content, Timestamp: now})
	conv.UpdatedAt = now
	return nil
}

func (s *MemoryStore) UpdateBookingState(ctx context.Context, sessionID string, state booking.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.convs[sessionID]
	if !ok {
		return fmt.Errorf("conversation: update booking state %s: %w", sessionID, ErrNotFound)
	}
	conv.Booking = state
	conv.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) List(ctx context.Context, filter ListFilter) ([]Summary, error) {
	filter = filter.Normalized()
	s.mu.RLock()
	matched := make([]Summary, 0, len(s.convs))
	for _, conv := range s.convs {
		if filter.matches(conv.Booking.Normalize().Step) {
			matched = append(matched, Summarize(*conv))
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})
	if filter.Skip >= len(matched) {
		return []Summary{}, nil
	}
	matched = matched[filter.Skip:]
	if len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func cloneConversation(conv *Conversation) *Conversation {
	out := *conv
	out.Messages = append([]Message(nil), conv.Messages...)
	if out.Messages == nil {
		out.Messages = []Message{}
	}
	return &out
}
