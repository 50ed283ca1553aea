package advisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/agentictax/taxpilot/internal/common"
	"github.com/agentictax/taxpilot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot() model.Snapshot {
	return model.Snapshot{
		RunID: "run-1",
		Phase: model.PhaseReview,
		Deductions: []model.Deduction{
			{ID: "d1", Category: "Home Office", Amount: 1200, Confidence: 0.92},
			{ID: "d2", Category: "Software Subs", Amount: 450, Confidence: 0.98},
		},
		RiskFindings: []model.RiskFinding{
			{ID: "r1", Category: "Home Office Deduction", Severity: model.SeverityMedium},
		},
	}
}

func TestMatchesSummaryIntent(t *testing.T) {
	tests := []struct {
		message string
		want    bool
	}{
		{"Walk me through my return", true},
		{"please EXPLAIN MY ENTIRE RETURN", true},
		{"could you summarize my return for me?", true},
		{"what is a 1099-NEC?", false},
		{"can I deduct my home office?", false},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesSummaryIntent(tt.message))
		})
	}
}

func TestAskInjectsArtifactsForSummaryIntent(t *testing.T) {
	stub := NewStubCompleter("Here is your summary.")
	a := New(stub)

	// Scenario D: the prompt carries serialized artifacts; the user's
	// message text itself is unchanged.
	answer := a.Ask(context.Background(), nil, "walk me through my return", testSnapshot())
	assert.Equal(t, "Here is your summary.", answer)

	prompts := stub.Prompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "Home Office")
	assert.Contains(t, prompts[0], "Software Subs")
	assert.Contains(t, prompts[0], "Home Office Deduction")
	assert.Contains(t, prompts[0], "SYSTEM NOTE")
	assert.Contains(t, prompts[0], "walk me through my return")
}

func TestAskPassesOrdinaryMessagesThrough(t *testing.T) {
	stub := NewStubCompleter("A 1099-NEC reports nonemployee compensation.")
	a := New(stub)

	a.Ask(context.Background(), nil, "what is a 1099-NEC?", testSnapshot())

	prompts := stub.Prompts()
	require.Len(t, prompts, 1)
	assert.NotContains(t, prompts[0], "SYSTEM NOTE")
	assert.Contains(t, prompts[0], "USER: what is a 1099-NEC?")
}

func TestAskResendsFullHistory(t *testing.T) {
	stub := NewStubCompleter("ok")
	a := New(stub)

	history := []model.ChatMessage{
		{Role: model.RoleUser, Content: "hello"},
		{Role: model.RoleAssistant, Content: "hi, how can I help?"},
	}
	a.Ask(context.Background(), history, "next question", testSnapshot())

	prompts := stub.Prompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "USER: hello")
	assert.Contains(t, prompts[0], "ASSISTANT: hi, how can I help?")
}

func TestAskIsDeterministicAgainstStub(t *testing.T) {
	stub := NewStubCompleter("stable answer")
	a := New(stub)

	history := []model.ChatMessage{{Role: model.RoleUser, Content: "hello"}}
	first := a.Ask(context.Background(), history, "walk me through my return", testSnapshot())
	second := a.Ask(context.Background(), history, "walk me through my return", testSnapshot())

	assert.Equal(t, first, second)
	prompts := stub.Prompts()
	require.Len(t, prompts, 2)
	assert.Equal(t, prompts[0], prompts[1])
}

func TestAskRecoversCollaboratorFailure(t *testing.T) {
	stub := NewStubCompleter("unused")
	stub.Fail(errors.New("model overloaded"))
	a := New(stub)

	// Scenario E: failure converts to the fixed fallback, never an error.
	answer := a.Ask(context.Background(), nil, "help", testSnapshot())
	assert.Equal(t, FallbackResponse, answer)
}

func TestAskHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	<-ctx.Done()

	a := New(NewStubCompleter("unused"))
	answer := a.Ask(ctx, nil, "help", testSnapshot())
	assert.Equal(t, FallbackResponse, answer)
}

func TestNewCompleterFactory(t *testing.T) {
	_, err := NewCompleter(Config{Provider: "anthropic"})
	assert.ErrorIs(t, err, common.ErrMissingConfig)

	c, err := NewCompleter(Config{Provider: "anthropic", APIKey: "sk-test"})
	require.NoError(t, err)
	assert.NotNil(t, c)

	_, err = NewCompleter(Config{Provider: "nonesuch"})
	assert.ErrorIs(t, err, common.ErrInvalidConfig)

	stub, err := NewCompleter(Config{Provider: "stub"})
	require.NoError(t, err)
	assert.NotNil(t, stub)
}
