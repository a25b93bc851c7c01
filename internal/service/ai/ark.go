package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// ArkModel runs prompts through an eino chain backed by an Ark chat model.
type ArkModel struct {
	name        string
	temperature float32
	chain       compose.Runnable[map[string]any, *schema.Message]
}

// NewArkModel compiles a single-message chain around chatModel.
func NewArkModel(ctx context.Context, chatModel model.ChatModel, name string, temperature float32) (*ArkModel, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.UserMessage("{prompt}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile reply chain: %w", err)
	}

	return &ArkModel{
		name:        name,
		temperature: temperature,
		chain:       runnable,
	}, nil
}

func (m *ArkModel) Name() string {
	return "ark/" + m.name
}

// Generate invokes the chain once with the configured temperature.
func (m *ArkModel) Generate(ctx context.Context, promptText string) (Completion, error) {
	response, err := m.chain.Invoke(ctx,
		map[string]any{"prompt": promptText},
		compose.WithChatModelOption(model.WithTemperature(m.temperature)),
	)
	if err != nil {
		return Completion{}, fmt.Errorf("failed to run reply chain: %w", err)
	}
	if response == nil {
		return Completion{}, &GenerationError{Kind: FailureMalformed, Err: ErrEmptyResponse}
	}

	return Completion{
		Text:  response.Content,
		Usage: usageFromMeta(response.ResponseMeta),
	}, nil
}

func usageFromMeta(meta *schema.ResponseMeta) Usage {
	if meta == nil || meta.Usage == nil {
		return Usage{}
	}
	return Usage{
		PromptTokens:     meta.Usage.PromptTokens,
		CompletionTokens: meta.Usage.CompletionTokens,
		TotalTokens:      meta.Usage.TotalTokens,
	}
}
