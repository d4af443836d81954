package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/vetchat/internal/booking"
)

// PostgresStore persists conversations in the conversations and
// conversation_messages tables.
type PostgresStore struct {
	db     *sql.DB
	tracer trace.Tracer
	now    func() time.Time
}

// NewPostgresStore creates a store backed by db.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	if db == nil {
		panic("conversation: sql db required")
	}
	return &PostgresStore{
		db:     db,
		tracer: otel.Tracer("vetchat.internal.conversation.postgres"),
		now:    time.Now,
	}
}

const upsertConversationSQL = `
	INSERT INTO conversations (session_id, user_id, user_name, pet_name, source, booking_state, booking_step, created_at, updated_at)
	VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, 'idle', $7, $7)
	ON CONFLICT (session_id) DO UPDATE SET
		user_id = COALESCE(EXCLUDED.user_id, conversations.user_id),
		user_name = COALESCE(EXCLUDED.user_name, conversations.user_name),
		pet_name = COALESCE(EXCLUDED.pet_name, conversations.pet_name),
		source = COALESCE(EXCLUDED.source, conversations.source),
		updated_at = EXCLUDED.updated_at
`

func (s *PostgresStore) GetOrCreate(ctx context.Context, sessionID string, c Context) (*Conversation, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.get_or_create")
	defer span.End()

	if sessionID == "" {
		return nil, fmt.Errorf("conversation: session id required")
	}
	idle, err := json.Marshal(booking.Idle())
	if err != nil {
		return nil, fmt.Errorf("conversation: marshal booking state: %w", err)
	}
	c = c.Trimmed()
	if _, err := s.db.ExecContext(ctx, upsertConversationSQL,
		sessionID, c.UserID, c.UserName, c.PetName, c.Source, idle, s.now().UTC(),
	); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: upsert %s: %w", sessionID, err)
	}
	return s.get(ctx, sessionID)
}

func (s *PostgresStore) Get(ctx context.Context, sessionID string) (*Conversation, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.get")
	defer span.End()

	conv, err := s.get(ctx, sessionID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		span.RecordError(err)
	}
	return conv, err
}

const selectConversationSQL = `
	SELECT session_id, user_id, user_name, pet_name, source, booking_state, created_at, updated_at
	FROM conversations
	WHERE session_id = $1
`

const selectMessagesSQL = `
	SELECT role, content, created_at
	FROM conversation_messages
	WHERE session_id = $1
	ORDER BY id
`

func (s *PostgresStore) get(ctx context.Context, sessionID string) (*Conversation, error) {
	row := s.db.QueryRowContext(ctx, selectConversationSQL, sessionID)
	conv, err := scanConversation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("conversation: get %s: %w", sessionID, ErrNotFound)
		}
		return nil, fmt.Errorf("conversation: get %s: %w", sessionID, err)
	}

	rows, err := s.db.QueryContext(ctx, selectMessagesSQL, sessionID)
	if err != nil {
		return nil, fmt.Errorf("conversation: load messages %s: %w", sessionID, err)
	}
	defer rows.Close()

	conv.Messages = []Message{}
	for rows.Next() {
		var msg Message
		var role string
		if err := rows.Scan(&role, &msg.Content, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("conversation: scan message: %w", err)
		}
		msg.Role = Role(role)
		conv.Messages = append(conv.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conversation: iterate messages: %w", err)
	}
	return conv, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*Conversation, error) {
	var (
		conv                              Conversation
		userID, userName, petName, source sql.NullString
		stateJSON                         []byte
	)
	if err := row.Scan(&conv.SessionID, &userID, &userName, &petName, &source, &stateJSON, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
		return nil, err
	}
	conv.Context = Context{UserID: userID.String, UserName: userName.String, PetName: petName.String, Source: source.String}
	state, err := decodeState(stateJSON)
	if err != nil {
		return nil, err
	}
	conv.Booking = state
	return &conv, nil
}

func decodeState(raw []byte) (booking.State, error) {
	var state booking.State
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &state); err != nil {
			return booking.State{}, fmt.Errorf("conversation: decode booking state: %w", err)
		}
	}
	return state.Normalize(), nil
}

func (s *PostgresStore) AppendMessage(ctx context.Context, sessionID string, role Role, content string) error {
	ctx, span := s.tracer.Start(ctx, "conversation.append_message")
	defer span.End()

	now := s.now().UTC()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `UPDATE conversations SET updated_at = $2 WHERE session_id = $1`, sessionID, now)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: touch %s: %w", sessionID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("conversation: append message %s: %w", sessionID, ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO conversation_messages (session_id, role, content, created_at) VALUES ($1, $2, $3, $4)`,
		sessionID, string(role), content, now,
	); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: insert message: %w", err)
	}
	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: commit message: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateBookingState(ctx context.Context, sessionID string, state booking.State) error {
	ctx, span := s.tracer.Start(ctx, "conversation.update_booking_state")
	defer span.End()

	state = state.Normalize()
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("conversation: marshal booking state: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET booking_state = $2, booking_step = $3, updated_at = $4 WHERE session_id = $1`,
		sessionID, data, string(state.Step), s.now().UTC(),
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: update booking state %s: %w", sessionID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("conversation: update booking state %s: %w", sessionID, ErrNotFound)
	}
	return nil
}

const listConversationsSQL = `
	SELECT c.session_id, c.user_id, c.user_name, c.pet_name, c.source, c.booking_state, c.created_at, c.updated_at,
		(SELECT COUNT(*) FROM conversation_messages m WHERE m.session_id = c.session_id) AS message_count
	FROM conversations c
	WHERE ($1::text[] IS NULL OR c.booking_step = ANY($1))
	ORDER BY c.updated_at DESC
	LIMIT $2 OFFSET $3
`

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]Summary, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.list")
	defer span.End()

	filter = filter.Normalized()
	rows, err := s.db.QueryContext(ctx, listConversationsSQL, pq.Array(filter.stepStrings()), filter.Limit, filter.Skip)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: list: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var (
			sum                               Summary
			userID, userName, petName, source sql.NullString
			stateJSON                         []byte
		)
		if err := rows.Scan(&sum.SessionID, &userID, &userName, &petName, &source, &stateJSON, &sum.CreatedAt, &sum.UpdatedAt, &sum.MessageCount); err != nil {
			return nil, fmt.Errorf("conversation: scan summary: %w", err)
		}
		sum.Context = Context{UserID: userID.String, UserName: userName.String, PetName: petName.String, Source: source.String}
		if sum.Booking, err = decodeState(stateJSON); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conversation: iterate summaries: %w", err)
	}
	return out, nil
}
