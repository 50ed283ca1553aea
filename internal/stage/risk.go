package stage

import (
	"context"
	"fmt"
	"time"

	"github.com/agentictax/taxpilot/internal/model"
	"github.com/google/uuid"
)

// RiskAnalysis produces audit-risk findings from the run's deductions and
// any validation discrepancies. Medium and high findings trigger the
// professional-review offer downstream.
type RiskAnalysis struct {
	Latency time.Duration
}

// Name implements Stage.
func (s *RiskAnalysis) Name() string { return NameRisk }

// Run implements Stage.
func (s *RiskAnalysis) Run(ctx context.Context, sc *Context) error {
	sc.Log.Append(s.Name(), "Running audit risk algorithms...")
	if err := sc.Sleeper.Sleep(ctx, s.Latency); err != nil {
		return err
	}

	snap := sc.Store.Snapshot(model.PhaseProcessing)
	var findings []model.RiskFinding

	for _, d := range snap.Deductions {
		if d.Category != "Home Office" {
			continue
		}
		findings = append(findings, model.RiskFinding{
			ID:          uuid.NewString(),
			Category:    "Home Office Deduction",
			Severity:    model.SeverityMedium,
			Description: "The deduction is a statistically significant share of total income.",
			Mitigation:  "Address history matches the claim period, lowering the risk profile.",
		})
	}

	findings = append(findings, model.RiskFinding{
		ID:          uuid.NewString(),
		Category:    "Consistency Check",
		Severity:    model.SeverityLow,
		Description: "Reported income matches the source document exactly.",
		Mitigation:  "Perfect match. No under-reporting flags detected.",
	})

	for _, tag := range sc.Discrepancies {
		findings = append(findings, model.RiskFinding{
			ID:          uuid.NewString(),
			Category:    "Validation Discrepancy",
			Severity:    model.SeverityMedium,
			Description: tag,
			Mitigation:  "Verify the mismatched identifier against your records before filing.",
		})
	}

	sc.Store.AddRiskFindings(findings)

	escalate := false
	for _, f := range findings {
		if f.Severity.RequiresEscalation() {
			escalate = true
		}
	}
	if escalate {
		sc.Log.Append(s.Name(), "Elevated findings present; professional review is available.")
	}
	sc.Log.Append(s.Name(), fmt.Sprintf("Risk assessment complete. %d items analyzed.", len(findings)))
	return nil
}
