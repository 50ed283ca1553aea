// Package model defines the core domain models used throughout the application.
package model

// Phase represents the macro-state of a filing run.
type Phase string

// Phase constants, in pipeline order.
const (
	PhaseIntake     Phase = "INTAKE"
	PhaseProcessing Phase = "PROCESSING"
	PhaseReview     Phase = "REVIEW"
	PhaseFiling     Phase = "FILING"
	PhaseComplete   Phase = "COMPLETE"
	PhaseFailed     Phase = "FAILED"
)

// Terminal reports whether no further transitions are possible from p.
func (p Phase) Terminal() bool {
	return p == PhaseComplete || p == PhaseFailed
}

// CanTransitionTo reports whether the state machine permits moving from p
// to next. Failed is reachable from any non-terminal phase; all other edges
// follow the fixed pipeline order.
func (p Phase) CanTransitionTo(next Phase) bool {
	if p.Terminal() {
		return false
	}
	if next == PhaseFailed {
		return true
	}
	switch p {
	case PhaseIntake:
		return next == PhaseProcessing
	case PhaseProcessing:
		return next == PhaseReview
	case PhaseReview:
		return next == PhaseFiling
	case PhaseFiling:
		return next == PhaseComplete
	default:
		return false
	}
}
