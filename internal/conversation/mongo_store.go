package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/vetchat/internal/booking"
)

// CollectionName is the Mongo collection holding conversations.
const CollectionName = "conversations"

// MongoStore keeps each conversation as one document with embedded messages.
type MongoStore struct {
	coll   *mongo.Collection
	tracer trace.Tracer
	now    func() time.Time
}

// NewMongoStore creates a store on the conversations collection of db.
func NewMongoStore(db *mongo.Database) *MongoStore {
	if db == nil {
		panic("conversation: mongo database required")
	}
	return newMongoStoreWithCollection(db.Collection(CollectionName))
}

func newMongoStoreWithCollection(coll *mongo.Collection) *MongoStore {
	return &MongoStore{
		coll:   coll,
		tracer: otel.Tracer("vetchat.internal.conversation.mongo"),
		now:    time.Now,
	}
}

// EnsureIndexes creates the unique session index and the listing index.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "sessionId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "updatedAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("conversation: ensure indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) GetOrCreate(ctx context.Context, sessionID string, c Context) (*Conversation, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.get_or_create")
	defer span.End()

	if sessionID == "" {
		return nil, fmt.Errorf("conversation: session id required")
	}
	now := s.now().UTC()
	c = c.Trimmed()

	set := bson.M{"updatedAt": now}
	for key, value := range map[string]string{
		"context.userId":   c.UserID,
		"context.userName": c.UserName,
		"context.petName":  c.PetName,
		"context.source":   c.Source,
	} {
		if value != "" {
			set[key] = value
		}
	}
	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"sessionId":    sessionID,
			"messages":     bson.A{},
			"bookingState": booking.Idle(),
			"createdAt":    now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var conv Conversation
	if err := s.coll.FindOneAndUpdate(ctx, bson.M{"sessionId": sessionID}, update, opts).Decode(&conv); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: upsert %s: %w", sessionID, err)
	}
	return normalizeConversation(&conv), nil
}

func (s *MongoStore) Get(ctx context.Context, sessionID string) (*Conversation, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.get")
	defer span.End()

	var conv Conversation
	if err := s.coll.FindOne(ctx, bson.M{"sessionId": sessionID}).Decode(&conv); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("conversation: get %s: %w", sessionID, ErrNotFound)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: get %s: %w", sessionID, err)
	}
	return normalizeConversation(&conv), nil
}

func (s *MongoStore) AppendMessage(ctx context.Context, sessionID string, role Role, content string) error {
	ctx, span := s.tracer.Start(ctx, "conversation.append_message")
	defer span.End()

	now := s.now().UTC()
	update := bson.M{
		"$push": bson.M{"messages": Message{Role: role, Content: content, Timestamp: now}},
		"$set":  bson.M{"updatedAt": now},
	}
	return s.updateOne(ctx, span, sessionID, update, "append message")
}

func (s *MongoStore) UpdateBookingState(ctx context.Context, sessionID string, state booking.State) error {
	ctx, span := s.tracer.Start(ctx, "conversation.update_booking_state")
	defer span.End()

	update := bson.M{"$set": bson.M{"bookingState": state.Normalize(), "updatedAt": s.now().UTC()}}
	return s.updateOne(ctx, span, sessionID, update, "update booking state")
}

func (s *MongoStore) updateOne(ctx context.Context, span trace.Span, sessionID string, update bson.M, op string) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"sessionId": sessionID}, update)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: %s %s: %w", op, sessionID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("conversation: %s %s: %w", op, sessionID, ErrNotFound)
	}
	return nil
}

func (s *MongoStore) List(ctx context.Context, filter ListFilter) ([]Summary, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.list")
	defer span.End()

	filter = filter.Normalized()
	query := bson.M{}
	if steps := filter.stepStrings(); len(steps) > 0 {
		query["bookingState.currentStep"] = bson.M{"$in": steps}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "updatedAt", Value: -1}}).
		SetSkip(int64(filter.Skip)).
		SetLimit(int64(filter.Limit))

	cursor, err := s.coll.Find(ctx, query, opts)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: list: %w", err)
	}
	defer cursor.Close(ctx)

	out := []Summary{}
	for cursor.Next(ctx) {
		var conv Conversation
		if err := cursor.Decode(&conv); err != nil {
			return nil, fmt.Errorf("conversation: decode conversation: %w", err)
		}
		out = append(out, Summarize(*normalizeConversation(&conv)))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("conversation: cursor: %w", err)
	}
	return out, nil
}

func normalizeConversation(conv *Conversation) *Conversation {
	if conv.Messages == nil {
		conv.Messages = []Message{}
	}
	conv.Booking = conv.Booking.Normalize()
	return conv
}
