package ai

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/zhouzirui/textmate/backend/internal/model/chat"
)

const (
	DefaultFallbackReply  = "Sorry, I can't respond right now. Network issues 😕"
	DefaultRequestTimeout = 30 * time.Second

	replyUsageLabel = "Response Generated"
)

// Completion is what a TextModel hands back on success.
type Completion struct {
	Text  string
	Usage Usage
}

// TextModel sends one prompt to a hosted model and returns its text.
type TextModel interface {
	Name() string
	Generate(ctx context.Context, prompt string) (Completion, error)
}

// Outcome is the typed result of a generation call: either Text and Usage,
// or Err with the failure kind.
type Outcome struct {
	Text  string
	Usage Usage
	Err   *GenerationError
}

// OK reports whether the model produced text.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// ServiceConfig tunes the reply pipeline.
type ServiceConfig struct {
	Prompts       PromptBuilder
	FallbackReply string
	Timeout       time.Duration
}

// Service turns persona + history into a ready-to-display reply.
type Service struct {
	model    TextModel
	sink     UsageSink
	prompts  PromptBuilder
	fallback string
	timeout  time.Duration
}

// NewService creates the reply pipeline. A nil model yields a service that
// always answers with the fallback reply.
func NewService(model TextModel, sink UsageSink, cfg ServiceConfig) *Service {
	if sink == nil {
		sink = nopSink{}
	}
	if cfg.Prompts.Window < 1 {
		cfg.Prompts = NewPromptBuilder()
	}
	if cfg.FallbackReply == "" {
		cfg.FallbackReply = DefaultFallbackReply
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRequestTimeout
	}

	return &Service{
		model:    model,
		sink:     sink,
		prompts:  cfg.Prompts,
		fallback: cfg.FallbackReply,
		timeout:  cfg.Timeout,
	}
}

// FallbackReply is the text returned whenever generation fails.
func (s *Service) FallbackReply() string {
	return s.fallback
}

// ModelName identifies the configured model, or "none".
func (s *Service) ModelName() string {
	if s.model == nil {
		return "none"
	}
	return s.model.Name()
}

// GenerateReply always returns displayable text: the model's reply verbatim,
// or the fallback reply when the call failed for any reason.
func (s *Service) GenerateReply(ctx context.Context, message string, history []chat.Message, personaName, personaDescription string) string {
	outcome := s.Reply(ctx, message, history, personaName, personaDescription)
	if !outcome.OK() {
		return s.fallback
	}
	return outcome.Text
}

// Reply runs the pipeline and returns the typed outcome.
func (s *Service) Reply(ctx context.Context, message string, history []chat.Message, personaName, personaDescription string) Outcome {
	prompt := s.prompts.Build(message, history, personaName, personaDescription)

	outcome := s.Generate(ctx, prompt)
	if !outcome.OK() {
		log.Printf("[ai] reply generation failed model=%s persona=%q kind=%s: %v",
			s.ModelName(), personaName, outcome.Err.Kind, outcome.Err.Err)
		return outcome
	}

	log.Printf("[ai] generated reply model=%s persona=%q history=%d length=%d",
		s.ModelName(), personaName, len(history), len(outcome.Text))
	return outcome
}

// Generate sends an assembled prompt to the model once, bounded by the
// configured timeout. Usage is recorded only on success.
func (s *Service) Generate(ctx context.Context, prompt string) Outcome {
	if s.model == nil {
		return Outcome{Err: &GenerationError{Kind: FailureProvider, Err: ErrNoModel}}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	completion, err := s.invoke(callCtx, prompt)
	if err != nil {
		return Outcome{Err: classify(err)}
	}
	if strings.TrimSpace(completion.Text) == "" {
		return Outcome{Err: &GenerationError{Kind: FailureMalformed, Err: ErrEmptyResponse}}
	}

	s.sink.RecordUsage(ctx, replyUsageLabel, completion.Usage)
	return Outcome{Text: completion.Text, Usage: completion.Usage}
}

func (s *Service) invoke(ctx context.Context, prompt string) (completion Completion, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &GenerationError{Kind: FailureProvider, Err: fmt.Errorf("model panicked: %v", r)}
		}
	}()
	return s.model.Generate(ctx, prompt)
}
