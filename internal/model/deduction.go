package model

import "fmt"

// AttentionThreshold is the confidence at or below which a deduction is
// flagged for extra user attention.
const AttentionThreshold = 0.9

// Deduction represents one claimed tax deduction. Deductions are created
// only by the deduction discovery stage and are immutable afterwards.
type Deduction struct {
	ID          string
	Category    string
	Description string
	Explanation string // natural-language "why you qualify" content
	SourceRef   string // document ID or external-source tag, may be empty
	Amount      float64
	Confidence  float64
}

// Validate checks the deduction's numeric invariants.
func (d Deduction) Validate() error {
	if d.Amount < 0 {
		return fmt.Errorf("deduction %s: amount must be non-negative, got %.2f", d.Category, d.Amount)
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("deduction %s: confidence must be in [0,1], got %.2f", d.Category, d.Confidence)
	}
	return nil
}

// NeedsAttention reports whether the deduction should be surfaced to the
// user for manual confirmation before filing.
func (d Deduction) NeedsAttention() bool {
	return d.Confidence <= AttentionThreshold
}
