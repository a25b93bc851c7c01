package typing

import (
	"context"
	"time"
	"unicode/utf8"
)

const (
	DefaultPerChar = 30 * time.Millisecond
	DefaultMin     = time.Second
	DefaultMax     = 4 * time.Second
)

// Pacer decides how long the "is typing..." indicator stays up before a
// reply is shown.
type Pacer struct {
	PerChar time.Duration
	Min     time.Duration
	Max     time.Duration
}

// NewPacer returns the default 30ms-per-character pacing clamped to [1s, 4s].
func NewPacer() Pacer {
	return Pacer{PerChar: DefaultPerChar, Min: DefaultMin, Max: DefaultMax}
}

// Delay is proportional to the reply length and clamped to [Min, Max].
func (p Pacer) Delay(reply string) time.Duration {
	d := time.Duration(utf8.RuneCountInString(reply)) * p.PerChar
	if d < p.Min {
		d = p.Min
	}
	if d > p.Max {
		d = p.Max
	}
	return d
}

// Wait blocks for d or until ctx is done.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
