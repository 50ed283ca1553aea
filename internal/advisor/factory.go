package advisor

import (
	"fmt"
	"strings"

	"github.com/agentictax/taxpilot/internal/common"
)

// NewCompleter creates a completion collaborator based on the provided
// configuration.
func NewCompleter(cfg Config) (Completer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "anthropic", "":
		return newAnthropicCompleter(cfg)
	case "stub":
		return NewStubCompleter("I can help with that once your documents are processed."), nil
	default:
		return nil, fmt.Errorf("%w: unsupported completion provider %q", common.ErrInvalidConfig, cfg.Provider)
	}
}
