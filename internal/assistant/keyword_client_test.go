package assistant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywordReply(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{name: "book", message: "Can I BOOK a checkup?", want: BookingIntentMarker},
		{name: "appointment", message: "I need an appointment", want: BookingIntentMarker},
		{name: "schedule", message: "schedule a visit", want: BookingIntentMarker},
		{name: "vaccine", message: "Which vaccines does my puppy need?", want: vaccineResponse},
		{name: "diet", message: "best diet for an old cat", want: dietResponse},
		{name: "eat", message: "my dog won't eat", want: dietResponse},
		{name: "booking wins over food", message: "book a visit about food", want: BookingIntentMarker},
		{name: "default", message: "hello there", want: defaultResponse},
		{name: "empty", message: "", want: defaultResponse},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, KeywordReply(tc.message))
		})
	}
}

func TestKeywordClientUsesLastUserMessage(t *testing.T) {
	resp, err := NewKeywordClient().Complete(context.Background(), LLMRequest{
		Messages: []ChatMessage{
			{Role: ChatRoleUser, Content: "tell me about vaccines"},
			{Role: ChatRoleAssistant, Content: "sure, happy to book that"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, vaccineResponse, resp.Text)
	assert.Equal(t, ProviderKeyword, resp.Provider)
}
