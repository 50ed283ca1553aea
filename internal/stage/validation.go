package stage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agentictax/taxpilot/internal/common"
	"github.com/agentictax/taxpilot/internal/model"
)

// Validation cross-checks extracted identifiers. A clean check marks the
// document verified; a mismatch is non-fatal but tagged so risk analysis
// can weigh it.
type Validation struct {
	Checker IdentityChecker
	Latency time.Duration
}

// Name implements Stage.
func (s *Validation) Name() string { return NameValidate }

// Run implements Stage.
func (s *Validation) Run(ctx context.Context, sc *Context) error {
	sc.Log.Append(s.Name(), "Checking TIN match...")
	if err := sc.Sleeper.Sleep(ctx, s.Latency); err != nil {
		return err
	}

	checker := s.Checker
	if checker == nil {
		checker = acceptAllChecker{}
	}

	if err := checker.Check(ctx, sc.Facts); err != nil {
		var mismatch *common.ValidationMismatch
		if !errors.As(err, &mismatch) {
			return common.NewStageError(s.Name(), err)
		}
		// Non-fatal; logged and handed to risk analysis.
		sc.Discrepancies = append(sc.Discrepancies, mismatch.Error())
		sc.Log.Append(s.Name(), fmt.Sprintf("Discrepancy found: %s", mismatch.Error()))
		return nil
	}

	docID := sc.Facts["doc_id"]
	if docID != "" {
		if err := sc.Store.UpdateDocumentStatus(docID, model.DocStatusVerified, 0.97); err != nil {
			return common.NewStageError(s.Name(), err)
		}
	}
	sc.Log.Append(s.Name(), "No discrepancies found.")
	return nil
}

type acceptAllChecker struct{}

func (acceptAllChecker) Check(context.Context, map[string]string) error { return nil }
