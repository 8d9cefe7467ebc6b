package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/formflow-dev/formflow/pkg/form"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiExtractor implements Extractor on the Gemini API using the Google
// Gen AI SDK.
type GeminiExtractor struct {
	client *genai.Client
	model  string
}

// NewGeminiExtractor creates a Gemini-backed extractor.
func NewGeminiExtractor(ctx context.Context, apiKey, model string) (*GeminiExtractor, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiExtractor{client: client, model: model}, nil
}

// Name returns the extractor name.
func (e *GeminiExtractor) Name() string {
	return "gemini"
}

// Extract performs whole-form extraction.
func (e *GeminiExtractor) Extract(ctx context.Context, message string, fields form.Registry, searchContext string) (string, error) {
	system, user := buildFormPrompt(message, fields, searchContext)
	return e.generate(ctx, system, user)
}

// ExtractField performs single-field interrogation.
func (e *GeminiExtractor) ExtractField(ctx context.Context, field form.MissingField, message, validationMessage string) (string, error) {
	system, user := buildFieldPrompt(field, message, validationMessage)
	return e.generate(ctx, system, user)
}

func (e *GeminiExtractor) generate(ctx context.Context, system, user string) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(float32(0)),
		ResponseMIMEType:  "application/json",
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	}

	resp, err := e.client.Models.GenerateContent(ctx, e.model, genai.Text(user), config)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			b.WriteString(part.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("gemini generate content: empty response")
	}
	return b.String(), nil
}
