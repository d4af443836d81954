package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bookingMessage() EmailMessage {
	return EmailMessage{
		To:       "vet@example.com",
		ToName:   "Front Desk",
		Subject:  "New booking",
		Text:     "plain",
		HTML:     "<p>html</p>",
		Category: "appointment-booked",
		Tags:     map[string]string{"booking_ref": "ref-1", "appointment_id": "appt 1"},
	}
}

func TestEmailMessageValidate(t *testing.T) {
	assert.Error(t, EmailMessage{Text: "x"}.validate())
	assert.Error(t, EmailMessage{To: "vet@example.com"}.validate())
	assert.NoError(t, EmailMessage{To: "vet@example.com", HTML: "<p>x</p>"}.validate())
}

func TestStubEmailSender_Send(t *testing.T) {
	stub := NewStubEmailSender(nil)
	assert.NoError(t, stub.Send(context.Background(), bookingMessage()))
	assert.Error(t, stub.Send(context.Background(), EmailMessage{}))
}

type fakeSendGrid struct {
	sent   *mail.SGMailV3
	status int
	err    error
}

func (f *fakeSendGrid) SendWithContext(_ context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	f.sent = email
	if f.err != nil {
		return nil, f.err
	}
	return &rest.Response{StatusCode: f.status, Body: "{}"}, nil
}

func TestNewSendGridSender_NilWithoutAPIKey(t *testing.T) {
	assert.Nil(t, NewSendGridSender(SendGridConfig{FromEmail: "clinic@example.com"}, nil))
}

func TestNewSendGridSender_DefaultFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{APIKey: "test-key", FromEmail: "clinic@example.com"}, nil)
	require.NotNil(t, sender)
	assert.Equal(t, defaultFromName, sender.fromName)
}

func TestSendGridSender_Send(t *testing.T) {
	api := &fakeSendGrid{status: 202}
	sender := newSendGridSender(api, SendGridConfig{FromEmail: "clinic@example.com", FromName: "Happy Paws"}, nil)

	require.NoError(t, sender.Send(context.Background(), bookingMessage()))
	require.NotNil(t, api.sent)
	assert.Equal(t, "clinic@example.com", api.sent.From.Address)
	assert.Equal(t, "Happy Paws", api.sent.From.Name)
	require.Len(t, api.sent.Personalizations, 1)
	assert.Equal(t, "vet@example.com", api.sent.Personalizations[0].To[0].Address)
	assert.Equal(t, "ref-1", api.sent.Personalizations[0].CustomArgs["booking_ref"])
	require.Len(t, api.sent.Content, 2)
	assert.Equal(t, "text/plain", api.sent.Content[0].Type)
	assert.Equal(t, "text/html", api.sent.Content[1].Type)
	assert.Equal(t, []string{"appointment-booked"}, api.sent.Categories)
}

func TestSendGridSender_Errors(t *testing.T) {
	rejected := newSendGridSender(&fakeSendGrid{status: 400}, SendGridConfig{FromEmail: "clinic@example.com"}, nil)
	err := rejected.Send(context.Background(), bookingMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")

	boom := errors.New("dial tcp: timeout")
	failing := newSendGridSender(&fakeSendGrid{err: boom}, SendGridConfig{FromEmail: "clinic@example.com"}, nil)
	assert.ErrorIs(t, failing.Send(context.Background(), bookingMessage()), boom)

	var unconfigured *SendGridSender
	assert.Error(t, unconfigured.Send(context.Background(), bookingMessage()))
}

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, params *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESSender_Send(t *testing.T) {
	api := &fakeSES{}
	sender := newSESSender(api, SESConfig{FromEmail: "clinic@example.com", ConfigurationSet: "bookings"}, nil)

	require.NoError(t, sender.Send(context.Background(), bookingMessage()))
	require.NotNil(t, api.input)
	assert.Equal(t, `"VetChat" <clinic@example.com>`, aws.ToString(api.input.FromEmailAddress))
	assert.Equal(t, []string{"vet@example.com"}, api.input.Destination.ToAddresses)
	assert.Equal(t, "plain", aws.ToString(api.input.Content.Simple.Body.Text.Data))
	assert.Equal(t, "<p>html</p>", aws.ToString(api.input.Content.Simple.Body.Html.Data))
	assert.Equal(t, "bookings", aws.ToString(api.input.ConfigurationSetName))

	tags := map[string]string{}
	for _, tag := range api.input.EmailTags {
		tags[aws.ToString(tag.Name)] = aws.ToString(tag.Value)
	}
	assert.Equal(t, map[string]string{
		"category":       "appointment-booked",
		"appointment_id": "appt_1",
		"booking_ref":    "ref-1",
	}, tags)
}

func TestSESSender_SendError(t *testing.T) {
	boom := errors.New("rejected")
	sender := newSESSender(&fakeSES{err: boom}, SESConfig{FromEmail: "clinic@example.com"}, nil)
	assert.ErrorIs(t, sender.Send(context.Background(), bookingMessage()), boom)
}

func TestNewSESSender_NilClient(t *testing.T) {
	assert.Nil(t, NewSESSender(nil, SESConfig{}, nil))
}
