package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/mikey/llm-dm-relay/internal/core"
	"github.com/mikey/llm-dm-relay/internal/utils"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIClient is a core.IntentClassifier backed by the OpenAI chat completions API
type OpenAIClient struct {
	client        *openai.Client
	modelName     string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(
	client *openai.Client,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *OpenAIClient {
	return &OpenAIClient{
		client:        client,
		modelName:     modelName,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Classify asks the model for the intent label of text
func (c *OpenAIClient) Classify(ctx context.Context, text string) (*core.ClassificationResult, error) {
	prompt := utils.BuildIntentPrompt(c.textProcessor.ProcessText(text, c.maxBodySize))

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: utils.IntentSystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}

	var intent utils.IntentResponse
	if err := utils.ExtractJSON(resp.Choices[0].Message.Content, &intent); err != nil {
		return nil, err
	}

	c.logger.Debug("OpenAI classification",
		zap.String("label", intent.Label),
		zap.String("response_id", resp.ID))

	return &core.ClassificationResult{
		Label:        core.Label(intent.Label),
		ModelUsed:    c.modelName,
		ClassifiedAt: time.Now(),
		ProcessingID: resp.ID,
	}, nil
}
