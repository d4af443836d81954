package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSQS struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQS) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

type samplePayload struct {
	AppointmentID string `json:"appointmentId"`
}

func TestNewEnvelope(t *testing.T) {
	id := uuid.New()
	ts := time.Date(2030, 1, 15, 14, 0, 0, 0, time.UTC)

	env, err := NewEnvelope("appointment.created.v1", samplePayload{AppointmentID: "a-1"}, WithEventID(id), WithTimestamp(ts))
	require.NoError(t, err)
	assert.Equal(t, id, env.EventID)
	assert.Equal(t, "appointment", env.Aggregate)
	assert.Equal(t, ts.UnixMicro(), env.TimestampMicros)
	assert.JSONEq(t, `{"appointmentId":"a-1"}`, string(env.Payload))

	_, err = NewEnvelope(" ", samplePayload{})
	assert.ErrorIs(t, err, errMissingType)
	_, err = NewEnvelope("appointment.created.v1", nil)
	assert.ErrorIs(t, err, errNilPayload)
}

func TestSQSPublisherSendsEnvelope(t *testing.T) {
	api := &fakeSQS{}
	pub := newSQSPublisher(api, "https://sqs.local/queue/appointments", nil)

	require.NoError(t, pub.Publish(context.Background(), "appointment.status_changed.v1", samplePayload{AppointmentID: "a-2"}))
	require.NotNil(t, api.input)
	assert.Equal(t, "https://sqs.local/queue/appointments", aws.ToString(api.input.QueueUrl))
	assert.Equal(t, "appointment.status_changed.v1", aws.ToString(api.input.MessageAttributes["event_type"].StringValue))

	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(api.input.MessageBody)), &env))
	assert.Equal(t, "appointment.status_changed.v1", env.EventType)
	assert.NotEqual(t, uuid.Nil, env.EventID)
}

func TestSQSPublisherWrapsSendError(t *testing.T) {
	boom := errors.New("queue gone")
	pub := newSQSPublisher(&fakeSQS{err: boom}, "q", nil)
	err := pub.Publish(context.Background(), "appointment.created.v1", samplePayload{})
	assert.ErrorIs(t, err, boom)
}

func TestLogPublisher(t *testing.T) {
	pub := NewLogPublisher(nil)
	assert.NoError(t, pub.Publish(context.Background(), "appointment.created.v1", samplePayload{}))
	assert.Error(t, pub.Publish(context.Background(), "", samplePayload{}))
}
