package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
)

// FailureKind tells operators why a generation call did not produce text.
type FailureKind string

const (
	FailureTransport FailureKind = "transport"
	FailureProvider  FailureKind = "provider"
	FailureMalformed FailureKind = "malformed"
)

var (
	ErrEmptyResponse = errors.New("model returned an empty response")
	ErrNoModel       = errors.New("no text model configured")
)

// GenerationError is the typed failure carried by an Outcome.
type GenerationError struct {
	Kind FailureKind
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s failure: %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// classify maps an adapter error onto a FailureKind. Kinds already attached
// by an adapter win.
func classify(err error) *GenerationError {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr
	}

	var netErr net.Error
	var syntaxErr *json.SyntaxError
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return &GenerationError{Kind: FailureTransport, Err: err}
	case errors.As(err, &netErr):
		return &GenerationError{Kind: FailureTransport, Err: err}
	case errors.Is(err, ErrEmptyResponse), errors.As(err, &syntaxErr):
		return &GenerationError{Kind: FailureMalformed, Err: err}
	default:
		return &GenerationError{Kind: FailureProvider, Err: err}
	}
}
