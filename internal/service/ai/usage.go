package ai

import (
	"context"
	"log"
	"sync"
)

// Usage is the provider-reported token accounting for one call.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// UsageSink receives token usage after every successful generation.
type UsageSink interface {
	RecordUsage(ctx context.Context, label string, usage Usage)
}

// UsageSinkFunc adapts a function to UsageSink.
type UsageSinkFunc func(ctx context.Context, label string, usage Usage)

func (f UsageSinkFunc) RecordUsage(ctx context.Context, label string, usage Usage) {
	f(ctx, label, usage)
}

// MultiSink fans a record out to every sink in order.
type MultiSink []UsageSink

func (m MultiSink) RecordUsage(ctx context.Context, label string, usage Usage) {
	for _, sink := range m {
		if sink != nil {
			sink.RecordUsage(ctx, label, usage)
		}
	}
}

// LogUsageSink writes usage lines through a standard logger.
type LogUsageSink struct {
	logger *log.Logger
}

// NewLogUsageSink falls back to the default logger when logger is nil.
func NewLogUsageSink(logger *log.Logger) *LogUsageSink {
	if logger == nil {
		logger = log.Default()
	}
	return &LogUsageSink{logger: logger}
}

func (s *LogUsageSink) RecordUsage(_ context.Context, label string, usage Usage) {
	title := "Token Usage:"
	if label != "" {
		title = label + " Token Usage:"
	}
	s.logger.Printf("[usage] %s input_tokens=%d output_tokens=%d total_tokens=%d",
		title, usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens)
}

// UsageTotals is a point-in-time view of a UsageLedger.
type UsageTotals struct {
	Calls            int64 `json:"calls"`
	PromptTokens     int64 `json:"promptTokens"`
	CompletionTokens int64 `json:"completionTokens"`
	TotalTokens      int64 `json:"totalTokens"`
}

// UsageLedger keeps running totals across concurrent calls.
type UsageLedger struct {
	mu     sync.Mutex
	totals UsageTotals
}

// NewUsageLedger returns an empty ledger.
func NewUsageLedger() *UsageLedger {
	return &UsageLedger{}
}

func (l *UsageLedger) RecordUsage(_ context.Context, _ string, usage Usage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.totals.Calls++
	l.totals.PromptTokens += int64(usage.PromptTokens)
	l.totals.CompletionTokens += int64(usage.CompletionTokens)
	l.totals.TotalTokens += int64(usage.TotalTokens)
}

// Snapshot returns the current totals.
func (l *UsageLedger) Snapshot() UsageTotals {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totals
}

type nopSink struct{}

func (nopSink) RecordUsage(context.Context, string, Usage) {}
