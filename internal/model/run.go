package model

import "time"

// Run captures the orchestrator-visible state of one tax-filing session.
// The artifact store and event log it owns live alongside it in the
// orchestrator; Run itself carries only the state-machine fields.
type Run struct {
	CreatedAt          time.Time
	ID                 string
	Phase              Phase
	FailedStage        string // name of the stage that signalled a fatal error
	ConfirmationRef    string // transmission confirmation, set on Complete
	ArchiveRef         string // durable-store reference from the archival stage
	ReviewCaseRef      string // professional-review intake reference
	FilingProgress     int    // 0-100, only meaningful during Filing
	PendingReview      bool   // professional review has been requested
	ManualIntervention bool   // post-transmit failure, unsafe to blindly retry
}

// Snapshot is a deep-copied, read-only view of a run's artifacts handed to
// consumers outside the pipeline goroutine (advisor, export, HTTP).
type Snapshot struct {
	RunID        string
	Phase        Phase
	Documents    []Document
	Deductions   []Deduction
	RiskFindings []RiskFinding
}

// TotalDeductions sums the snapshot's deduction amounts.
func (s Snapshot) TotalDeductions() float64 {
	var total float64
	for _, d := range s.Deductions {
		total += d.Amount
	}
	return total
}

// EscalationOffered reports whether any finding is severe enough to offer
// the professional-review path.
func (s Snapshot) EscalationOffered() bool {
	for _, r := range s.RiskFindings {
		if r.Severity.RequiresEscalation() {
			return true
		}
	}
	return false
}
