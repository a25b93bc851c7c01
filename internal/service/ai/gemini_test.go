package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeContentGenerator struct {
	res      *genai.GenerateContentResponse
	err      error
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

func (f *fakeContentGenerator) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	f.config = config
	return f.res, f.err
}

func geminiResponse(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts}}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     310,
			CandidatesTokenCount: 12,
			TotalTokenCount:      322,
		},
	}
}

func TestGeminiModelGenerate(t *testing.T) {
	fake := &fakeContentGenerator{res: geminiResponse(&genai.Part{Text: "omg "}, &genai.Part{Text: "CONGRATS"})}
	m := newGeminiModel(fake, "gemini-2.0-flash-001", 0.7)

	completion, err := m.Generate(context.Background(), "prompt text")
	require.NoError(t, err)

	assert.Equal(t, "omg CONGRATS", completion.Text)
	assert.Equal(t, Usage{PromptTokens: 310, CompletionTokens: 12, TotalTokens: 322}, completion.Usage)
	assert.Equal(t, "gemini-2.0-flash-001", fake.model)
	require.Len(t, fake.contents, 1)
	require.Len(t, fake.contents[0].Parts, 1)
	assert.Equal(t, "prompt text", fake.contents[0].Parts[0].Text)
	require.NotNil(t, fake.config.Temperature)
	assert.InDelta(t, 0.7, *fake.config.Temperature, 1e-6)
	assert.Equal(t, "gemini/gemini-2.0-flash-001", m.Name())
}

func TestGeminiModelSkipsThoughtParts(t *testing.T) {
	fake := &fakeContentGenerator{res: geminiResponse(&genai.Part{Text: "thinking...", Thought: true}, &genai.Part{Text: "hey"})}
	completion, err := newGeminiModel(fake, "m", 0.7).Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "hey", completion.Text)
}

func TestGeminiModelEmptyCandidatesIsMalformed(t *testing.T) {
	fake := &fakeContentGenerator{res: &genai.GenerateContentResponse{}}
	_, err := newGeminiModel(fake, "m", 0.7).Generate(context.Background(), "p")

	require.Error(t, err)
	assert.Equal(t, FailureMalformed, classify(err).Kind)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGeminiModelPassesErrorsThrough(t *testing.T) {
	fake := &fakeContentGenerator{err: errors.New("RESOURCE_EXHAUSTED")}
	_, err := newGeminiModel(fake, "m", 0.7).Generate(context.Background(), "p")

	require.Error(t, err)
	assert.Equal(t, FailureProvider, classify(err).Kind)
}
