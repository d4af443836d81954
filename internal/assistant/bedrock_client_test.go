package assistant

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConverseAPI struct {
	input *bedrockruntime.ConverseInput
	out   *bedrockruntime.ConverseOutput
	err   error
}

func (f *fakeConverseAPI) Converse(_ context.Context, params *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.input = params
	return f.out, f.err
}

func textOutput(text string) *bedrockruntime.ConverseOutput {
	return &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{Value: brtypes.Message{
			Role:    brtypes.ConversationRoleAssistant,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: text}},
		}},
		StopReason: brtypes.StopReasonEndTurn,
		Usage: &brtypes.TokenUsage{
			InputTokens:  aws.Int32(12),
			OutputTokens: aws.Int32(5),
			TotalTokens:  aws.Int32(17),
		},
	}
}

func TestBedrockCompleteBuildsConverseInput(t *testing.T) {
	api := &fakeConverseAPI{out: textOutput(" Keep Fido hydrated. ")}
	client := NewBedrockLLMClient(api, "anthropic.claude-3-haiku")

	resp, err := client.Complete(context.Background(), LLMRequest{
		System: []string{"be kind"},
		Messages: []ChatMessage{
			{Role: ChatRoleAssistant, Content: "Welcome!"},
			{Role: ChatRoleUser, Content: "It is hot out"},
		},
		MaxTokens:   100,
		Temperature: 0.5,
	})
	require.NoError(t, err)
	assert.Equal(t, "Keep Fido hydrated.", resp.Text)
	assert.Equal(t, ProviderBedrock, resp.Provider)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Equal(t, int32(17), resp.Usage.TotalTokens)

	require.NotNil(t, api.input)
	assert.Equal(t, "anthropic.claude-3-haiku", aws.ToString(api.input.ModelId))
	require.Len(t, api.input.Messages, 1, "leading assistant turn is dropped")
	assert.Equal(t, brtypes.ConversationRoleUser, api.input.Messages[0].Role)
	require.Len(t, api.input.System, 1)
	require.NotNil(t, api.input.InferenceConfig)
	assert.Equal(t, int32(100), aws.ToInt32(api.input.InferenceConfig.MaxTokens))
}

func TestBedrockCompleteErrors(t *testing.T) {
	t.Run("no model", func(t *testing.T) {
		client := NewBedrockLLMClient(&fakeConverseAPI{}, "")
		_, err := client.Complete(context.Background(), LLMRequest{Messages: []ChatMessage{{Role: ChatRoleUser, Content: "hi"}}})
		require.Error(t, err)
	})
	t.Run("no user message", func(t *testing.T) {
		client := NewBedrockLLMClient(&fakeConverseAPI{}, "m")
		_, err := client.Complete(context.Background(), LLMRequest{Messages: []ChatMessage{{Role: ChatRoleAssistant, Content: "hi"}}})
		require.Error(t, err)
	})
	t.Run("api failure", func(t *testing.T) {
		boom := errors.New("throttled")
		client := NewBedrockLLMClient(&fakeConverseAPI{err: boom}, "m")
		_, err := client.Complete(context.Background(), LLMRequest{Messages: []ChatMessage{{Role: ChatRoleUser, Content: "hi"}}})
		assert.ErrorIs(t, err, boom)
	})
	t.Run("empty text", func(t *testing.T) {
		client := NewBedrockLLMClient(&fakeConverseAPI{out: textOutput("  ")}, "m")
		_, err := client.Complete(context.Background(), LLMRequest{Messages: []ChatMessage{{Role: ChatRoleUser, Content: "hi"}}})
		require.Error(t, err)
	})
}
