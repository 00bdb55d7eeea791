package factory

import (
	"context"
	"fmt"

	"github.com/mikey/llm-dm-relay/internal/adapters/bedrock"
	"github.com/mikey/llm-dm-relay/internal/adapters/gemini"
	"github.com/mikey/llm-dm-relay/internal/adapters/openai"
	"github.com/mikey/llm-dm-relay/internal/config"
	"github.com/mikey/llm-dm-relay/internal/core"
	"github.com/mikey/llm-dm-relay/internal/utils"
	"go.uber.org/zap"
)

// LLMFactory creates intent classifiers
type LLMFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *LLMFactory {
	return &LLMFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateClassifier creates an intent classifier for the configured provider.
// The provider "none" yields a classifier that labels everything None.
func (f *LLMFactory) CreateClassifier(ctx context.Context) (core.IntentClassifier, error) {
	return f.CreateClassifierFor(ctx, f.cfg.GetLLM().Provider)
}

// CreateClassifierFor creates an intent classifier for the named provider
func (f *LLMFactory) CreateClassifierFor(ctx context.Context, provider string) (core.IntentClassifier, error) {
	f.logger.Info("Creating intent classifier", zap.String("provider", provider))

	var (
		classifier core.IntentClassifier
		err        error
	)
	switch provider {
	case "", "none":
		return core.NoopClassifier{}, nil
	case "bedrock":
		var c *bedrock.BedrockClient
		if c, err = bedrock.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClassifier(ctx); err == nil {
			classifier = c
		}
	case "gemini":
		var c *gemini.GeminiClient
		if c, err = gemini.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClassifier(ctx); err == nil {
			classifier = c
		}
	case "openai":
		var c *openai.OpenAIClient
		if c, err = openai.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClassifier(); err == nil {
			classifier = c
		}
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s classifier: %w", provider, err)
	}
	return classifier, nil
}
