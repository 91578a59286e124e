// Package llmtest provides a scripted llm.Provider for tests.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/spektr-org/askdata/llm"
)

// Reply is one scripted answer: text, or an error.
type Reply struct {
	Text string
	Err  error
}

// Text scripts a successful reply.
func Text(s string) Reply { return Reply{Text: s} }

// Fail scripts a failed call. Plain errors are wrapped in an
// *llm.ServiceError so they look like real provider failures.
func Fail(err error) Reply {
	if _, ok := err.(*llm.ServiceError); !ok {
		err = &llm.ServiceError{Provider: "stub", Kind: llm.KindUnavailable, Err: err}
	}
	return Reply{Err: err}
}

// Stub answers calls with its scripted replies, in order, and records
// every request it receives.
type Stub struct {
	mu      sync.Mutex
	replies []Reply
	calls   []llm.Request
}

// New creates a stub with the given replies.
func New(replies ...Reply) *Stub {
	return &Stub{replies: replies}
}

// Complete implements llm.Provider.
func (s *Stub) Complete(ctx context.Context, req llm.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, req)
	if err := ctx.Err(); err != nil {
		return "", &llm.ServiceError{Provider: "stub", Kind: llm.KindCanceled, Err: err}
	}
	if len(s.replies) == 0 {
		return "", fmt.Errorf("llmtest: unexpected call #%d", len(s.calls))
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r.Text, r.Err
}

// Calls returns the requests received so far.
func (s *Stub) Calls() []llm.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]llm.Request(nil), s.calls...)
}
