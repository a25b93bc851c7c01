package ai

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/textmate/backend/internal/model/chat"
)

type fakeModel struct {
	mu         sync.Mutex
	completion Completion
	err        error
	panicWith  any
	block      bool
	prompts    []string
}

func (f *fakeModel) Name() string { return "fake" }

func (f *fakeModel) Generate(ctx context.Context, prompt string) (Completion, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	if f.panicWith != nil {
		panic(f.panicWith)
	}
	if f.block {
		<-ctx.Done()
		return Completion{}, ctx.Err()
	}
	return f.completion, f.err
}

type usageRecord struct {
	label string
	usage Usage
}

type recordingSink struct {
	mu      sync.Mutex
	records []usageRecord
}

func (s *recordingSink) RecordUsage(_ context.Context, label string, usage Usage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, usageRecord{label: label, usage: usage})
}

type timeoutErr struct{}

func (timeoutErr) Error() string { return "i/o timeout" }

func (timeoutErr) Timeout() bool { return true }

func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestGenerateReplyReturnsTextVerbatim(t *testing.T) {
	model := &fakeModel{completion: Completion{
		Text:  "  haha YES that's huge!! \n",
		Usage: Usage{PromptTokens: 412, CompletionTokens: 9, TotalTokens: 421},
	}}
	sink := &recordingSink{}
	svc := NewService(model, sink, ServiceConfig{})

	reply := svc.GenerateReply(context.Background(), "so relieved!", nil, "Alex", "")

	assert.Equal(t, "  haha YES that's huge!! \n", reply)
	require.Len(t, sink.records, 1)
	assert.Equal(t, "Response Generated", sink.records[0].label)
	assert.Equal(t, Usage{PromptTokens: 412, CompletionTokens: 9, TotalTokens: 421}, sink.records[0].usage)
}

func TestGenerateReplySendsAssembledPrompt(t *testing.T) {
	model := &fakeModel{completion: Completion{Text: "ok"}}
	svc := NewService(model, nil, ServiceConfig{})
	history := []chat.Message{{Role: chat.RoleAssistant, Content: "hey!"}}

	svc.GenerateReply(context.Background(), "so relieved!", history, "Alex", "chill")

	require.Len(t, model.prompts, 1)
	assert.Equal(t, BuildPrompt("so relieved!", history, "Alex", "chill"), model.prompts[0])
}

func TestGenerateReplyFallsBackOnFailure(t *testing.T) {
	cases := map[string]*fakeModel{
		"provider":  {err: errors.New("403 quota exceeded")},
		"transport": {err: timeoutErr{}},
		"empty":     {completion: Completion{Text: "   "}},
		"panic":     {panicWith: "boom"},
	}

	for name, model := range cases {
		t.Run(name, func(t *testing.T) {
			sink := &recordingSink{}
			svc := NewService(model, sink, ServiceConfig{})

			reply := svc.GenerateReply(context.Background(), "hi", nil, "Alex", "")

			assert.Equal(t, DefaultFallbackReply, reply)
			assert.Empty(t, sink.records, "usage must not be recorded on failure")
		})
	}
}

func TestGenerateReplyWithoutModel(t *testing.T) {
	svc := NewService(nil, nil, ServiceConfig{FallbackReply: "brb"})

	assert.Equal(t, "brb", svc.GenerateReply(context.Background(), "hi", nil, "", ""))
	assert.Equal(t, "none", svc.ModelName())
}

func TestReplyClassifiesFailures(t *testing.T) {
	cases := []struct {
		name  string
		model *fakeModel
		want  FailureKind
	}{
		{"net error", &fakeModel{err: timeoutErr{}}, FailureTransport},
		{"provider error", &fakeModel{err: errors.New("invalid api key")}, FailureProvider},
		{"empty text", &fakeModel{completion: Completion{Text: ""}}, FailureMalformed},
		{"tagged", &fakeModel{err: &GenerationError{Kind: FailureMalformed, Err: errors.New("bad json")}}, FailureMalformed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			outcome := NewService(tc.model, nil, ServiceConfig{}).Reply(context.Background(), "hi", nil, "Alex", "")
			require.False(t, outcome.OK())
			assert.Equal(t, tc.want, outcome.Err.Kind)
		})
	}
}

func TestGenerateAppliesTimeout(t *testing.T) {
	model := &fakeModel{block: true}
	svc := NewService(model, nil, ServiceConfig{Timeout: 20 * time.Millisecond})

	start := time.Now()
	outcome := svc.Generate(context.Background(), "prompt")

	require.False(t, outcome.OK())
	assert.Equal(t, FailureTransport, outcome.Err.Kind)
	assert.ErrorIs(t, outcome.Err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestGenerateReplyConcurrentCalls(t *testing.T) {
	model := &fakeModel{completion: Completion{Text: "sure", Usage: Usage{TotalTokens: 3}}}
	ledger := NewUsageLedger()
	svc := NewService(model, ledger, ServiceConfig{})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, "sure", svc.GenerateReply(context.Background(), "hi", nil, "Alex", ""))
		}()
	}
	wg.Wait()

	totals := ledger.Snapshot()
	assert.EqualValues(t, 16, totals.Calls)
	assert.EqualValues(t, 48, totals.TotalTokens)
}

func TestCustomPromptBuilderIsUsed(t *testing.T) {
	model := &fakeModel{completion: Completion{Text: "ok"}}
	svc := NewService(model, nil, ServiceConfig{
		Prompts: PromptBuilder{Window: 1, DefaultName: "Robin", DefaultDescription: "dry"},
	})

	svc.GenerateReply(context.Background(), "hi", []chat.Message{
		{Role: chat.RoleUser, Content: "old"},
		{Role: chat.RoleAssistant, Content: "new"},
	}, "", "")

	require.Len(t, model.prompts, 1)
	assert.NotContains(t, model.prompts[0], "User: old")
	assert.Contains(t, model.prompts[0], "Robin: new")
	assert.True(t, strings.HasSuffix(model.prompts[0], "Robin:"))
}
