package extractor

import (
	"context"
	"fmt"

	"github.com/formflow-dev/formflow/pkg/form"
	"github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIClient is the slice of the OpenAI client used here, split out for
// testability.
type OpenAIClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIExtractor implements Extractor on the OpenAI chat completion API.
type OpenAIExtractor struct {
	client OpenAIClient
	model  string
}

// NewOpenAIExtractor creates an extractor with a default OpenAI client.
func NewOpenAIExtractor(apiKey, model string) *OpenAIExtractor {
	return NewOpenAIExtractorWithClient(openai.NewClient(apiKey), model)
}

// NewOpenAIExtractorWithClient creates an extractor with a custom client
// (useful for testing).
func NewOpenAIExtractorWithClient(client OpenAIClient, model string) *OpenAIExtractor {
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIExtractor{client: client, model: model}
}

// Name returns the extractor name.
func (e *OpenAIExtractor) Name() string {
	return "openai"
}

// Extract performs whole-form extraction.
func (e *OpenAIExtractor) Extract(ctx context.Context, message string, fields form.Registry, searchContext string) (string, error) {
	system, user := buildFormPrompt(message, fields, searchContext)
	return e.complete(ctx, system, user)
}

// ExtractField performs single-field interrogation.
func (e *OpenAIExtractor) ExtractField(ctx context.Context, field form.MissingField, message, validationMessage string) (string, error) {
	system, user := buildFieldPrompt(field, message, validationMessage)
	return e.complete(ctx, system, user)
}

func (e *OpenAIExtractor) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat completion: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
