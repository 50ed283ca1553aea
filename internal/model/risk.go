package model

// Severity classifies how serious an audit-risk finding is.
type Severity string

// Severity constants, ordered low < medium < high.
const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

var severityRank = map[Severity]int{
	SeverityLow:    0,
	SeverityMedium: 1,
	SeverityHigh:   2,
}

// AtLeast reports whether s is at or above the given severity.
func (s Severity) AtLeast(other Severity) bool {
	return severityRank[s] >= severityRank[other]
}

// RequiresEscalation reports whether a finding of this severity should
// offer the professional-review path to the user.
func (s Severity) RequiresEscalation() bool {
	return s.AtLeast(SeverityMedium)
}

// RiskFinding represents one identified audit-risk concern. Findings are
// created only by the risk analysis stage and are immutable afterwards.
type RiskFinding struct {
	ID          string
	Category    string
	Severity    Severity
	Description string
	Mitigation  string
}
