// Package ai defines the model-invocation boundary the evaluator and the
// worker both call through: a question in, an answer out, with retry and
// rate-limit policy left to the concrete implementation.
package ai

import (
	"context"
	"errors"

	"github.com/Eve-Ai-Labs/eve/internal/types"
)

// ErrInternal is returned for any non-transport failure the underlying
// model client can't classify more specifically.
var ErrInternal = errors.New("ai: internal error")

// QuestionOptions tunes a single model invocation.
type QuestionOptions struct {
	Seed        int32
	Temperature float32
}

// Question is one prompt dispatched to the model, carrying the full
// conversation history.
type Question struct {
	Message string
	History []types.History
	Options QuestionOptions
}

// Length is a cheap proxy for prompt size, used by callers that want to
// reject oversized requests before paying for a model round trip.
func (q Question) Length() int {
	n := len(q.Message)
	for _, h := range q.History {
		n += len(h.Content)
	}
	return n
}

// Answer is the model's reply plus however many tokens it reports having
// consumed, used as the basis for worker billing.
type Answer struct {
	Message string
	Tokens  uint64
}

// Ai is implemented by every model backend: the local HTTP-based client
// used in production and the in-memory mock used in tests.
type Ai interface {
	Ask(ctx context.Context, q Question) (Answer, error)
}
