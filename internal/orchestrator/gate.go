package orchestrator

import (
	"fmt"
	"time"

	"github.com/agentictax/taxpilot/internal/common"
	"github.com/agentictax/taxpilot/internal/model"
	"github.com/google/uuid"
)

// reviewIntakeDelay simulates the external professional-review intake
// turnaround.
const reviewIntakeDelay = 150 * time.Millisecond

// RequestReview records a professional-review request and asynchronously
// resolves to a case reference from the external intake. It never changes
// the run's phase: requesting review and approving the filing are
// deliberately independent controls.
func (o *Orchestrator) RequestReview() (<-chan string, error) {
	o.mu.Lock()
	if o.run.Phase.Terminal() {
		o.mu.Unlock()
		return nil, common.ErrRunTerminal
	}
	o.run.PendingReview = true
	o.mu.Unlock()

	o.log.Append("", "Professional review requested; handing off to a CPA partner.")

	done := make(chan string, 1)
	go func() {
		time.Sleep(reviewIntakeDelay)
		ref := "CASE-" + uuid.NewString()[:8]

		o.mu.Lock()
		o.run.ReviewCaseRef = ref
		o.mu.Unlock()

		o.log.Append("", fmt.Sprintf("Review intake confirmed. Case reference: %s", ref))
		done <- ref
	}()
	return done, nil
}

// PendingReview reports whether a professional review has been requested.
func (o *Orchestrator) PendingReview() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.run.PendingReview
}

// ReviewOffer describes whether and why the escalation gate should be
// presented to the user.
type ReviewOffer struct {
	Offered  bool
	Findings []model.RiskFinding
}

// ReviewOfferState returns the escalation-gate presentation state: offered
// whenever any committed finding is medium severity or above.
func (o *Orchestrator) ReviewOfferState() ReviewOffer {
	snap := o.Snapshot()
	offer := ReviewOffer{}
	for _, f := range snap.RiskFindings {
		if f.Severity.RequiresEscalation() {
			offer.Offered = true
			offer.Findings = append(offer.Findings, f)
		}
	}
	return offer
}
