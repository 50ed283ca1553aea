// Package advisor implements the context-aware conversational advisor. It
// grounds free-text answers in the current run's artifacts and degrades to
// a fixed fallback when the text-completion collaborator fails.
package advisor

import "context"

// Completer is the external text-completion collaborator contract.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config holds provider settings for the completion collaborator.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}
