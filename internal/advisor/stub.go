package advisor

import (
	"context"
	"sync"
)

// StubCompleter is a deterministic in-process collaborator for tests and
// offline use. It records every prompt it receives.
type StubCompleter struct {
	mu       sync.Mutex
	response string
	err      error
	prompts  []string
}

// NewStubCompleter returns a stub that always answers with response.
func NewStubCompleter(response string) *StubCompleter {
	return &StubCompleter{response: response}
}

// Fail makes every subsequent call return err.
func (s *StubCompleter) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Complete implements Completer.
func (s *StubCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

// Prompts returns a copy of the prompts received so far.
func (s *StubCompleter) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.prompts))
	copy(out, s.prompts)
	return out
}
