package assistant

import (
	"context"
	"strings"
)

const (
	vaccineResponse = "Vaccinations are crucial for your pet's health! Core vaccines for dogs typically include rabies, distemper, parvovirus, and adenovirus. For cats, core vaccines include rabies, feline panleukopenia, calicivirus, and herpesvirus. I recommend consulting with your veterinarian for a personalized vaccination schedule based on your pet's age, lifestyle, and health status."
	dietResponse    = "A balanced diet is essential for your pet's wellbeing! The best diet depends on your pet's species, age, size, and any health conditions. Generally, look for high-quality pet food with real meat as the first ingredient. Avoid foods with excessive fillers or artificial additives. Fresh water should always be available. Would you like more specific dietary advice for your pet?"
	defaultResponse = "I'm here to help with any veterinary or pet-related questions you might have! Feel free to ask about pet care, nutrition, vaccinations, common health concerns, or if you'd like to book an appointment with our veterinary team."
)

// KeywordClient answers from a fixed table of canned replies keyed on the
// last user message. It never fails.
type KeywordClient struct{}

func NewKeywordClient() *KeywordClient {
	return &KeywordClient{}
}

func (KeywordClient) Complete(_ context.Context, req LLMRequest) (LLMResponse, error) {
	return LLMResponse{
		Text:     KeywordReply(lastUserMessage(req.Messages)),
		Provider: ProviderKeyword,
	}, nil
}

// KeywordReply picks the canned reply for message.
func KeywordReply(message string) string {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "book"),
		strings.Contains(lower, "appointment"),
		strings.Contains(lower, "schedule"):
		return BookingIntentMarker
	case strings.Contains(lower, "vaccine"), strings.Contains(lower, "vaccination"):
		return vaccineResponse
	case strings.Contains(lower, "food"),
		strings.Contains(lower, "diet"),
		strings.Contains(lower, "eat"):
		return dietResponse
	default:
		return defaultResponse
	}
}

func lastUserMessage(messages []ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == ChatRoleUser {
			return messages[i].Content
		}
	}
	return ""
}
