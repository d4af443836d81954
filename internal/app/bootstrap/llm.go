package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/wolfman30/vetchat/internal/assistant"
	appconfig "github.com/wolfman30/vetchat/internal/config"
	"github.com/wolfman30/vetchat/internal/observability/metrics"
	"github.com/wolfman30/vetchat/pkg/logging"
)

// BuildGenerator wires the reply generator. Gemini is primary when a usable
// key is set, Bedrock is the fallback (or sole provider) when a model id is
// configured, and the keyword table answers when neither is available. The
// returned func releases provider clients.
func BuildGenerator(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, m *metrics.ChatMetrics, logger *logging.Logger) (*assistant.Generator, func() error, error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	closeFn := func() error { return nil }

	genCfg := assistant.GeneratorConfig{
		HasAPIKey:     assistant.UsableAPIKey(cfg.GeminiAPIKey),
		HistoryWindow: cfg.LLMHistoryWindow,
		Timeout:       cfg.LLMTimeout,
	}

	var primary assistant.LLMClient
	if genCfg.HasAPIKey {
		gemini, err := assistant.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: gemini client: %w", err)
		}
		primary = gemini
		closeFn = gemini.Close
		genCfg.Provider = assistant.ProviderGemini
		genCfg.Model = cfg.GeminiModelID
	} else {
		logger.Warn("no usable Gemini API key; replies come from the keyword table unless Bedrock is configured")
	}

	var fallback assistant.LLMClient
	if model := strings.TrimSpace(cfg.BedrockModelID); model != "" {
		fallback = assistant.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg), model)
		logger.Info("bedrock generation enabled", "model", model)
	}

	var client assistant.LLMClient
	switch {
	case primary != nil && fallback != nil:
		client = assistant.NewFallbackLLMClient(primary, fallback, logger)
	case primary != nil:
		client = primary
	case fallback != nil:
		client = fallback
		genCfg.Provider = assistant.ProviderBedrock
		genCfg.Model = cfg.BedrockModelID
	}

	gen := assistant.NewGenerator(client, genCfg, m, logger)
	logger.Info("reply generator ready", "provider", gen.Status().Provider)
	return gen, closeFn, nil
}
