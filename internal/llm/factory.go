package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nbenliogludev/go-browser-agent-monitor/internal/config"
)

// NewClient builds the transport named by cfg.Provider, wrapped in a rate
// limiter when requests_per_minute is set.
func NewClient(ctx context.Context, cfg config.LLMModelConfig, logger *zap.Logger) (Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model configuration: %w", err)
	}

	var (
		client Client
		err    error
	)
	switch strings.ToLower(cfg.Provider) {
	case config.ProviderOpenAI:
		client, err = NewOpenAIClient(cfg, logger)
	case config.ProviderGemini:
		client, err = NewGeminiClient(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Model client ready",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
		zap.Int("requests_per_minute", cfg.RequestsPerMinute),
	)
	return NewRateLimitedClient(client, cfg.RequestsPerMinute), nil
}
