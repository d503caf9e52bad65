package napkin

import (
	"context"
	"time"
)

// Attempt describes one try of a logical request.
type Attempt struct {
	CallID string
	Method string
	URL    string
	Body   []byte
	Index  int
}

// Observer receives callbacks around logical calls and their attempts.
// Implementations must be safe for concurrent use.
type Observer interface {
	// CallStarted may return a derived context (for example one carrying a
	// trace span) that is used for the rest of the call.
	CallStarted(ctx context.Context, method, url string) context.Context
	AttemptStarted(ctx context.Context, a Attempt)
	// AttemptFinished reports the HTTP status (0 when no response arrived)
	// and the attempt fault, if any.
	AttemptFinished(ctx context.Context, a Attempt, status int, err error, elapsed time.Duration)
	CallFinished(ctx context.Context, method, url string, attempts int, err error, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) CallStarted(ctx context.Context, _, _ string) context.Context {
	return ctx
}

func (nopObserver) AttemptStarted(context.Context, Attempt) {}

func (nopObserver) AttemptFinished(context.Context, Attempt, int, error, time.Duration) {}

func (nopObserver) CallFinished(context.Context, string, string, int, error, time.Duration) {}
