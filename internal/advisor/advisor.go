package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/agentictax/taxpilot/internal/common"
	"github.com/agentictax/taxpilot/internal/model"
)

// FallbackResponse is returned whenever the collaborator fails. The
// advisor never propagates a raw collaborator error to its caller.
const FallbackResponse = "I apologize, but I'm currently unable to process that request. Please try again later or consult the FAQ."

// systemInstruction frames the collaborator as the platform's tax advisor.
const systemInstruction = `You are the advisor for taxpilot, an automated tax filing platform.
Your goal is to help users with tax-related questions, explain deductions, and identify audit risks.
You are professional, empathetic, and precise.

Key guidelines:
1. If a user asks about a specific deduction, explain IRS guidelines simply.
2. If the user's query or identified risks suggest high complexity or significant financial impact, explicitly suggest consulting a certified CPA after giving your best explanation.
3. Be concise. Keep answers under 150 words unless asked for details.
4. If the user asks to file, tell them the filing pipeline handles the final submission once they approve the review.

Always remind users you are an automated assistant and they should verify with a professional for legal certainty.`

// summaryIntents is the fixed phrase set that triggers artifact injection.
// Matching is case-insensitive substring.
var summaryIntents = []string{
	"explain my entire return",
	"walk me through my return",
	"summarize my return",
}

// Advisor answers free-text questions, optionally grounded in the current
// run's artifacts. It is stateless: the caller resends the full
// conversation history on every call.
type Advisor struct {
	completer Completer
}

// New creates an advisor backed by the given collaborator.
func New(completer Completer) *Advisor {
	return &Advisor{completer: completer}
}

// Ask answers message in the context of history and the run snapshot. Any
// collaborator failure is recovered locally to the fixed fallback string.
func (a *Advisor) Ask(ctx context.Context, history []model.ChatMessage, message string, snap model.Snapshot) string {
	prompt := a.buildPrompt(history, a.prepareMessage(message, snap))

	answer, err := a.completer.Complete(ctx, prompt)
	if err != nil {
		slog.Warn("Advisor falling back", "error", fmt.Errorf("%w: %v", common.ErrAdvisorUnavailable, err))
		return FallbackResponse
	}
	if answer == "" {
		return FallbackResponse
	}
	return answer
}

// prepareMessage rewrites a comprehensive-summary question to carry a
// machine-readable snapshot of the run's deductions and risk findings.
// All other messages pass through unchanged.
func (a *Advisor) prepareMessage(message string, snap model.Snapshot) string {
	if !MatchesSummaryIntent(message) {
		return message
	}

	deductions, err := json.Marshal(snap.Deductions)
	if err != nil {
		return message
	}
	risks, err := json.Marshal(snap.RiskFindings)
	if err != nil {
		return message
	}

	return fmt.Sprintf(`[SYSTEM NOTE: The user is asking for a comprehensive summary. Here is the active tax context from the pipeline:
Deductions Found: %s
Risks Identified: %s

Provide a structured, friendly summary of their return status, highlighting the key deductions found and any risks they should be aware of. Use the data provided above.]

%s`, deductions, risks, message)
}

// MatchesSummaryIntent reports whether message asks for a comprehensive
// return summary.
func MatchesSummaryIntent(message string) bool {
	lower := strings.ToLower(message)
	for _, intent := range summaryIntents {
		if strings.Contains(lower, intent) {
			return true
		}
	}
	return false
}

// buildPrompt flattens the system instruction, conversation history, and
// new user message into one completion prompt.
func (a *Advisor) buildPrompt(history []model.ChatMessage, message string) string {
	var b strings.Builder
	b.WriteString(systemInstruction)
	b.WriteString("\n\nConversation history:\n")
	for _, m := range history {
		fmt.Fprintf(&b, "%s: %s\n", strings.ToUpper(string(m.Role)), m.Content)
	}
	fmt.Fprintf(&b, "\nUSER: %s", message)
	return b.String()
}
