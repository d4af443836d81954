package assistant

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/wolfman30/vetchat/internal/observability/metrics"
	"github.com/wolfman30/vetchat/pkg/logging"
)

const (
	ProviderGemini  = "gemini"
	ProviderBedrock = "bedrock"
	ProviderKeyword = "keyword"
)

// BookingIntentMarker is emitted by the model when the user wants to book a visit.
const BookingIntentMarker = "[BOOKING_INTENT]"

const (
	defaultHistoryWindow = 10
	defaultTimeout       = 20 * time.Second
	defaultMaxTokens     = 1024
	defaultTemperature   = 0.7
)

const systemPrompt = `You are a friendly and knowledgeable veterinary assistant chatbot. Your role is to:

1. Answer questions ONLY about veterinary and pet-related topics, including:
   - Pet care and grooming
   - Vaccinations and preventive care
   - Diet and nutrition for pets
   - Common pet illnesses and symptoms
   - General pet health advice
   - Pet behavior questions

2. IMPORTANT RESTRICTIONS:
   - If asked about non-veterinary topics (politics, coding, math, general knowledge, etc.), politely decline and explain you can only help with pet and veterinary questions.
   - Never provide specific medical diagnoses - always recommend consulting a veterinarian for serious concerns.
   - Never prescribe medications or dosages.

3. When responding:
   - Be warm, friendly, and empathetic
   - Use simple language that pet owners can understand
   - If the user has provided their pet's name, use it in your responses
   - Keep responses concise but helpful (2-4 paragraphs max)

4. For appointment booking:
   - If the user wants to book an appointment, schedule a vet visit, or make a reservation, respond EXACTLY with: "[BOOKING_INTENT]"
   - This signals the system to start the booking flow

Remember: You are a helpful assistant, not a replacement for professional veterinary care.`

var errEmptyGeneration = errors.New("assistant: empty generation")

// HasBookingIntent reports whether generated text asks for the booking flow.
func HasBookingIntent(text string) bool {
	return strings.Contains(text, BookingIntentMarker)
}

// GenerationContext carries what is known about the person chatting.
type GenerationContext struct {
	UserName string
	PetName  string
}

func (c GenerationContext) prompt() string {
	var b strings.Builder
	if name := strings.TrimSpace(c.UserName); name != "" {
		b.WriteString("User's name: " + name + ". ")
	}
	if pet := strings.TrimSpace(c.PetName); pet != "" {
		b.WriteString("Pet's name: " + pet + ". ")
	}
	return strings.TrimSpace(b.String())
}

// Status describes how the generator is wired.
type Status struct {
	Initialized bool   `json:"initialized"`
	UsingMock   bool   `json:"usingMock"`
	HasModel    bool   `json:"hasModel"`
	HasAPIKey   bool   `json:"hasApiKey"`
	Provider    string `json:"provider"`
}

// GeneratorConfig tunes a Generator.
type GeneratorConfig struct {
	// Provider names the primary client for status reporting.
	Provider      string
	Model         string
	HasAPIKey     bool
	HistoryWindow int
	Timeout       time.Duration
}

// Generator produces the assistant's reply for a conversation. When the
// configured client fails, or none is configured, it answers from the keyword
// table so callers always get text back.
type Generator struct {
	client   LLMClient
	fallback *KeywordClient
	cfg      GeneratorConfig
	metrics  *metrics.ChatMetrics
	logger   *logging.Logger
}

// NewGenerator builds a generator. client may be nil, in which case only
// canned replies are produced.
func NewGenerator(client LLMClient, cfg GeneratorConfig, m *metrics.ChatMetrics, logger *logging.Logger) *Generator {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = defaultHistoryWindow
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if client == nil {
		cfg.Provider = ProviderKeyword
	}
	return &Generator{
		client:   client,
		fallback: NewKeywordClient(),
		cfg:      cfg,
		metrics:  m,
		logger:   logger,
	}
}

// Generate returns the reply to the last user message in history.
func (g *Generator) Generate(ctx context.Context, history []ChatMessage, gctx GenerationContext) string {
	req := g.buildRequest(history, gctx)
	if g.client == nil {
		resp, _ := g.fallback.Complete(ctx, req)
		g.metrics.ObserveGeneration(ProviderKeyword, true, 0)
		return resp.Text
	}

	callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	started := time.Now()
	resp, err := g.client.Complete(callCtx, req)
	elapsed := time.Since(started).Seconds()

	provider := resp.Provider
	if provider == "" {
		provider = g.cfg.Provider
	}
	if err == nil && strings.TrimSpace(resp.Text) == "" {
		err = errEmptyGeneration
	}
	if err != nil {
		g.metrics.ObserveGeneration(g.cfg.Provider, false, elapsed)
		g.logger.Warn("llm generation failed, using canned reply",
			"provider", g.cfg.Provider,
			"error", err,
		)
		fb, _ := g.fallback.Complete(ctx, req)
		return fb.Text
	}

	g.metrics.ObserveGeneration(provider, true, elapsed)
	g.logger.Debug("llm generation succeeded",
		"provider", provider,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
	)
	return resp.Text
}

func (g *Generator) buildRequest(history []ChatMessage, gctx GenerationContext) LLMRequest {
	system := []string{systemPrompt}
	if c := gctx.prompt(); c != "" {
		system = append(system, "Context: "+c)
	}
	return LLMRequest{
		Model:       g.cfg.Model,
		System:      system,
		Messages:    windowHistory(history, g.cfg.HistoryWindow),
		MaxTokens:   defaultMaxTokens,
		Temperature: defaultTemperature,
	}
}

// windowHistory keeps the last n non-system messages and drops leading
// assistant turns so the window opens with the user.
func windowHistory(history []ChatMessage, n int) []ChatMessage {
	msgs := make([]ChatMessage, 0, len(history))
	for _, m := range history {
		if m.Role == ChatRoleSystem || strings.TrimSpace(m.Content) == "" {
			continue
		}
		msgs = append(msgs, m)
	}
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	for len(msgs) > 0 && msgs[0].Role == ChatRoleAssistant {
		msgs = msgs[1:]
	}
	return msgs
}

// Status reports the wiring in the shape the chat status endpoint exposes.
func (g *Generator) Status() Status {
	return Status{
		Initialized: true,
		UsingMock:   g.client == nil,
		HasModel:    g.client != nil,
		HasAPIKey:   g.cfg.HasAPIKey,
		Provider:    g.cfg.Provider,
	}
}
