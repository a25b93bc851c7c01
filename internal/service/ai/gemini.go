package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// contentGenerator is the slice of *genai.Models the adapter needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiModel sends prompts to the Gemini API.
type GeminiModel struct {
	models      contentGenerator
	model       string
	temperature float32
}

// NewGeminiModel creates a Gemini API client for the given model.
func NewGeminiModel(ctx context.Context, apiKey, modelName string, temperature float32) (*GeminiModel, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return newGeminiModel(client.Models, modelName, temperature), nil
}

func newGeminiModel(models contentGenerator, modelName string, temperature float32) *GeminiModel {
	return &GeminiModel{
		models:      models,
		model:       modelName,
		temperature: temperature,
	}
}

func (m *GeminiModel) Name() string {
	return "gemini/" + m.model
}

// Generate sends a single text prompt and joins the first candidate's parts.
func (m *GeminiModel) Generate(ctx context.Context, prompt string) (Completion, error) {
	temperature := m.temperature
	res, err := m.models.GenerateContent(ctx, m.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: &temperature,
	})
	if err != nil {
		return Completion{}, err
	}

	return completionFromGemini(res)
}

func completionFromGemini(res *genai.GenerateContentResponse) (Completion, error) {
	// Blocked prompts come back with no candidates.
	if res == nil || len(res.Candidates) == 0 || res.Candidates[0].Content == nil || len(res.Candidates[0].Content.Parts) == 0 {
		return Completion{}, &GenerationError{Kind: FailureMalformed, Err: ErrEmptyResponse}
	}

	var text strings.Builder
	for _, part := range res.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		text.WriteString(part.Text)
	}

	completion := Completion{Text: text.String()}
	if meta := res.UsageMetadata; meta != nil {
		completion.Usage = Usage{
			PromptTokens:     int(meta.PromptTokenCount),
			CompletionTokens: int(meta.CandidatesTokenCount),
			TotalTokens:      int(meta.TotalTokenCount),
		}
	}
	return completion, nil
}
