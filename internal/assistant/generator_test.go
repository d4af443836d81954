package assistant

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/vetchat/internal/observability/metrics"
	"github.com/wolfman30/vetchat/pkg/logging"
)

type stubLLMClient struct {
	responses []LLMResponse
	err       error
	requests  []LLMRequest
}

func (s *stubLLMClient) Complete(_ context.Context, req LLMRequest) (LLMResponse, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return LLMResponse{}, s.err
	}
	if len(s.responses) == 0 {
		return LLMResponse{}, nil
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func TestGeneratorReturnsModelText(t *testing.T) {
	client := &stubLLMClient{responses: []LLMResponse{{Text: "Brush Fido weekly.", Provider: ProviderGemini}}}
	g := NewGenerator(client, GeneratorConfig{Provider: ProviderGemini, HasAPIKey: true}, nil, logging.Default())

	got := g.Generate(context.Background(), []ChatMessage{
		{Role: ChatRoleUser, Content: "How often should I groom my dog?"},
	}, GenerationContext{UserName: "Jane", PetName: "Fido"})

	assert.Equal(t, "Brush Fido weekly.", got)
	require.Len(t, client.requests, 1)
	req := client.requests[0]
	require.Len(t, req.System, 2)
	assert.Equal(t, systemPrompt, req.System[0])
	assert.Equal(t, "Context: User's name: Jane. Pet's name: Fido.", req.System[1])
}

func TestGeneratorFallsBackToKeywordsOnError(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewChatMetrics(reg)
	client := &stubLLMClient{err: errors.New("quota exceeded")}
	g := NewGenerator(client, GeneratorConfig{Provider: ProviderGemini}, m, logging.Default())

	got := g.Generate(context.Background(), []ChatMessage{
		{Role: ChatRoleUser, Content: "I want to book a visit"},
	}, GenerationContext{})

	assert.Equal(t, BookingIntentMarker, got)
	assert.True(t, HasBookingIntent(got))

	families, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() != "vetchat_llm_generations_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			labels := map[string]string{}
			for _, l := range metric.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["provider"] == ProviderGemini && labels["status"] == "error" {
				found = true
				assert.Equal(t, float64(1), metric.GetCounter().GetValue())
			}
		}
	}
	assert.True(t, found, "expected an error sample for gemini")
}

func TestGeneratorTreatsEmptyTextAsFailure(t *testing.T) {
	client := &stubLLMClient{responses: []LLMResponse{{Text: "   "}}}
	g := NewGenerator(client, GeneratorConfig{Provider: ProviderBedrock}, nil, nil)

	got := g.Generate(context.Background(), []ChatMessage{{Role: ChatRoleUser, Content: "what should my cat eat?"}}, GenerationContext{})
	assert.Equal(t, dietResponse, got)
}

func TestGeneratorWithoutClientUsesKeywords(t *testing.T) {
	g := NewGenerator(nil, GeneratorConfig{Provider: ProviderGemini}, nil, nil)

	got := g.Generate(context.Background(), []ChatMessage{{Role: ChatRoleUser, Content: "Hello"}}, GenerationContext{})
	assert.Equal(t, defaultResponse, got)

	status := g.Status()
	assert.True(t, status.Initialized)
	assert.True(t, status.UsingMock)
	assert.False(t, status.HasModel)
	assert.Equal(t, ProviderKeyword, status.Provider)
}

func TestGeneratorStatusWithClient(t *testing.T) {
	g := NewGenerator(&stubLLMClient{}, GeneratorConfig{Provider: ProviderGemini, HasAPIKey: true}, nil, nil)
	assert.Equal(t, Status{
		Initialized: true,
		HasModel:    true,
		HasAPIKey:   true,
		Provider:    ProviderGemini,
	}, g.Status())
}

func TestWindowHistory(t *testing.T) {
	history := []ChatMessage{
		{Role: ChatRoleAssistant, Content: "Welcome!"},
		{Role: ChatRoleUser, Content: "one"},
		{Role: ChatRoleAssistant, Content: "two"},
		{Role: ChatRoleSystem, Content: "ignored"},
		{Role: ChatRoleUser, Content: "three"},
		{Role: ChatRoleAssistant, Content: "four"},
		{Role: ChatRoleUser, Content: "five"},
	}

	got := windowHistory(history, 4)
	require.Len(t, got, 3)
	assert.Equal(t, "three", got[0].Content)
	assert.Equal(t, "five", got[2].Content)

	got = windowHistory(history, 10)
	require.Len(t, got, 5)
	assert.Equal(t, ChatRoleUser, got[0].Role)
	assert.Equal(t, "one", got[0].Content)
}

func TestGenerationContextPrompt(t *testing.T) {
	assert.Equal(t, "", GenerationContext{}.prompt())
	assert.Equal(t, "Pet's name: Rex.", GenerationContext{PetName: " Rex "}.prompt())
}
