package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/wolfman30/vetchat/internal/booking"
)

func conversationDoc(sessionID string, now time.Time) bson.D {
	return bson.D{
		{Key: "sessionId", Value: sessionID},
		{Key: "messages", Value: bson.A{
			bson.D{{Key: "role", Value: "user"}, {Key: "content", Value: "hello"}, {Key: "timestamp", Value: now}},
		}},
		{Key: "context", Value: bson.D{{Key: "userName", Value: "Amy"}}},
		{Key: "bookingState", Value: bson.D{
			{Key: "isActive", Value: true},
			{Key: "currentStep", Value: "collecting_pet"},
			{Key: "collectedData", Value: bson.D{{Key: "ownerName", Value: "Amy"}}},
		}},
		{Key: "createdAt", Value: now},
		{Key: "updatedAt", Value: now},
	}
}

func TestMongoStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	mt.Run("get or create returns upserted document", func(mt *mtest.T) {
		store := newMongoStoreWithCollection(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: conversationDoc("s1", now)}))

		conv, err := store.GetOrCreate(context.Background(), "s1", Context{UserName: "Amy"})
		require.NoError(mt, err)
		assert.Equal(mt, "s1", conv.SessionID)
		assert.Equal(mt, "Amy", conv.Context.UserName)
		assert.Equal(mt, booking.StepCollectingPet, conv.Booking.Step)
		require.Len(mt, conv.Messages, 1)
		assert.Equal(mt, RoleUser, conv.Messages[0].Role)
	})

	mt.Run("get missing session", func(mt *mtest.T) {
		store := newMongoStoreWithCollection(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "vetchat.conversations", mtest.FirstBatch))

		_, err := store.Get(context.Background(), "missing")
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("append message", func(mt *mtest.T) {
		store := newMongoStoreWithCollection(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		require.NoError(mt, store.AppendMessage(context.Background(), "s1", RoleUser, "hi"))
	})

	mt.Run("update booking state on unknown session", func(mt *mtest.T) {
		store := newMongoStoreWithCollection(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))

		err := store.UpdateBookingState(context.Background(), "missing", booking.Idle())
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("list summaries", func(mt *mtest.T) {
		store := newMongoStoreWithCollection(mt.Coll)
		first := mtest.CreateCursorResponse(1, "vetchat.conversations", mtest.FirstBatch, conversationDoc("s2", now), conversationDoc("s1", now))
		last := mtest.CreateCursorResponse(0, "vetchat.conversations", mtest.NextBatch)
		mt.AddMockResponses(first, last)

		out, err := store.List(context.Background(), ListFilter{Steps: []booking.Step{booking.StepCollectingPet}})
		require.NoError(mt, err)
		require.Len(mt, out, 2)
		assert.Equal(mt, "s2", out[0].SessionID)
		assert.Equal(mt, 1, out[0].MessageCount)
		require.NotNil(mt, out[0].LastMessage)
		assert.Equal(mt, "hello", out[0].LastMessage.Content)
	})
}
