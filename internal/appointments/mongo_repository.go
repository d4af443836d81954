package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// CollectionName is the Mongo collection holding appointments.
const CollectionName = "appointments"

// MongoRepository stores appointments as Mongo documents keyed by id.
type MongoRepository struct {
	coll   *mongo.Collection
	tracer trace.Tracer
	now    func() time.Time
	nextID func() string
}

// NewMongoRepository creates a repository on the appointments collection of db.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	if db == nil {
		panic("appointments: mongo database required")
	}
	return newMongoRepositoryWithCollection(db.Collection(CollectionName))
}

func newMongoRepositoryWithCollection(coll *mongo.Collection) *MongoRepository {
	return &MongoRepository{
		coll:   coll,
		tracer: otel.Tracer("vetchat.internal.appointments.mongo"),
		now:    time.Now,
		nextID: uuid.NewString,
	}
}

// EnsureIndexes creates the booking reference, session and schedule indexes.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "bookingRef", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "sessionId", Value: 1}}},
		{Keys: bson.D{{Key: "preferredDateTime", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("appointments: ensure indexes: %w", err)
	}
	return nil
}

func (r *MongoRepository) Create(ctx context.Context, req CreateRequest) (*Appointment, error) {
	ctx, span := r.tracer.Start(ctx, "appointments.create")
	defer span.End()

	req = req.trimmed()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := r.now().UTC()
	appt := Appointment{
		ID:                r.nextID(),
		SessionID:         req.SessionID,
		BookingRef:        req.BookingRef,
		OwnerName:         req.OwnerName,
		PetName:           req.PetName,
		Phone:             req.Phone,
		PreferredDateTime: req.PreferredDateTime.UTC(),
		Status:            StatusPending,
		Notes:             req.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	// Upsert on bookingRef so a retried confirmation returns the first record.
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var stored Appointment
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"bookingRef": appt.BookingRef},
		bson.M{"$setOnInsert": appt},
		opts,
	).Decode(&stored)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("appointments: insert: %w", err)
	}
	return &stored, nil
}

func (r *MongoRepository) Get(ctx context.Context, id string) (*Appointment, error) {
	ctx, span := r.tracer.Start(ctx, "appointments.get", trace.WithAttributes(attribute.String("appointment.id", id)))
	defer span.End()

	var appt Appointment
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&appt); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("appointments: get %s: %w", id, ErrNotFound)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("appointments: get %s: %w", id, err)
	}
	return &appt, nil
}

func (r *MongoRepository) List(ctx context.Context, filter ListFilter) ([]Appointment, error) {
	ctx, span := r.tracer.Start(ctx, "appointments.list")
	defer span.End()

	filter = filter.Normalized()
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.From != nil {
		query["preferredDateTime"] = bson.M{"$gte": filter.From.UTC()}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "preferredDateTime", Value: 1}, {Key: "createdAt", Value: 1}}).
		SetSkip(int64(filter.Skip)).
		SetLimit(int64(filter.Limit))
	out, err := r.find(ctx, query, opts)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("appointments: list: %w", err)
	}
	return out, nil
}

func (r *MongoRepository) ListBySession(ctx context.Context, sessionID string) ([]Appointment, error) {
	ctx, span := r.tracer.Start(ctx, "appointments.list_by_session", trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	out, err := r.find(ctx, bson.M{"sessionId": sessionID}, opts)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("appointments: list by session %s: %w", sessionID, err)
	}
	return out, nil
}

func (r *MongoRepository) find(ctx context.Context, query bson.M, opts *options.FindOptions) ([]Appointment, error) {
	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []Appointment{}
	for cursor.Next(ctx) {
		var appt Appointment
		if err := cursor.Decode(&appt); err != nil {
			return nil, fmt.Errorf("decode appointment: %w", err)
		}
		out = append(out, appt)
	}
	return out, cursor.Err()
}

func (r *MongoRepository) UpdateStatus(ctx context.Context, id string, status Status) (*Appointment, error) {
	ctx, span := r.tracer.Start(ctx, "appointments.update_status", trace.WithAttributes(attribute.String("appointment.id", id)))
	defer span.End()

	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var appt Appointment
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status, "updatedAt": r.now().UTC()}},
		opts,
	).Decode(&appt)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("appointments: update status %s: %w", id, ErrNotFound)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("appointments: update status %s: %w", id, err)
	}
	return &appt, nil
}

type countQuery struct {
	dest   *int
	filter bson.M
}

func (r *MongoRepository) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	ctx, span := r.tracer.Start(ctx, "appointments.stats")
	defer span.End()

	start, end := DayBounds(now)
	var stats Stats
	for _, c := range []countQuery{
		{&stats.Total, bson.M{}},
		{&stats.Pending, bson.M{"status": StatusPending}},
		{&stats.Confirmed, bson.M{"status": StatusConfirmed}},
		{&stats.TodayCount, bson.M{"preferredDateTime": bson.M{"$gte": start.UTC(), "$lt": end.UTC()}}},
	} {
		n, err := r.coll.CountDocuments(ctx, c.filter)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("appointments: stats: %w", err)
		}
		*c.dest = int(n)
	}
	return &stats, nil
}
