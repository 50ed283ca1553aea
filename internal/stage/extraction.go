package stage

import (
	"context"
	"fmt"
	"time"

	"github.com/agentictax/taxpilot/internal/common"
	"github.com/agentictax/taxpilot/internal/model"
)

// Extraction derives payer and amount facts from the intake document. The
// facts feed validation and discovery as context data; the document list
// itself is only advanced to processing.
type Extraction struct {
	Latency time.Duration
}

// Name implements Stage.
func (s *Extraction) Name() string { return NameExtract }

// Run implements Stage.
func (s *Extraction) Run(ctx context.Context, sc *Context) error {
	docs := sc.Store.Documents()
	if len(docs) == 0 {
		return common.NewStageError(s.Name(), fmt.Errorf("no document to extract from"))
	}
	doc := docs[len(docs)-1]

	sc.Log.Append(s.Name(), "OCR scanning document...")
	if err := sc.Sleeper.Sleep(ctx, s.Latency); err != nil {
		return err
	}

	if err := sc.Store.UpdateDocumentStatus(doc.ID, model.DocStatusProcessing, 0); err != nil {
		return common.NewStageError(s.Name(), err)
	}

	// Stand-in values for the external OCR capability's output.
	sc.Fact("payer", "Acme Corp")
	sc.Fact("income", "12500")
	sc.Fact("payer_tin", "82-1404761")
	sc.Fact("doc_id", doc.ID)

	sc.Log.Append(s.Name(), fmt.Sprintf("Extracted Payer: %s, Income: $%s", sc.Facts["payer"], sc.Facts["income"]))
	sc.Log.Append(s.Name(), "Cross-referencing with linked bank statements...")
	return nil
}
