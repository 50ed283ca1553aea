package stage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/agentictax/taxpilot/internal/common"
	"github.com/agentictax/taxpilot/internal/model"
	"github.com/google/uuid"
)

// Intake classifies the submitted document and appends it to the store.
type Intake struct {
	Classifier Classifier
	Latency    time.Duration
}

// Name implements Stage.
func (s *Intake) Name() string { return NameIntake }

// Run implements Stage.
func (s *Intake) Run(ctx context.Context, sc *Context) error {
	sc.Log.Append(s.Name(), fmt.Sprintf("Detecting file type for %s...", sc.Filename))

	if err := sc.Sleeper.Sleep(ctx, s.Latency); err != nil {
		return err
	}

	docType, confidence, err := s.Classifier.ClassifyDocument(ctx, sc.Filename)
	if err != nil {
		return common.NewStageError(s.Name(), err)
	}

	doc := model.Document{
		ID:         uuid.NewString(),
		Name:       sc.Filename,
		Type:       docType,
		Status:     model.DocStatusUploaded,
		Confidence: confidence,
		UploadedAt: time.Now(),
	}
	sc.Store.AddDocument(doc)
	sc.Fact("doc_type", docType)

	sc.Log.Append(s.Name(), fmt.Sprintf("Classified as %s (Confidence: %.0f%%)", docType, confidence*100))
	return nil
}

// HeuristicClassifier is the default stand-in for the external
// classification capability: it keys off the filename alone.
type HeuristicClassifier struct{}

// ClassifyDocument implements Classifier.
func (HeuristicClassifier) ClassifyDocument(_ context.Context, filename string) (string, float64, error) {
	base := strings.ToLower(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	switch {
	case strings.Contains(base, "w2") || strings.Contains(base, "w-2"):
		return "W-2", 0.99, nil
	case strings.Contains(base, "1099-int"):
		return "1099-INT", 0.97, nil
	case strings.Contains(base, "1099"):
		return "1099-NEC", 0.99, nil
	case strings.Contains(base, "receipt") || strings.Contains(base, "invoice"):
		return "Receipt", 0.85, nil
	default:
		return "1099-NEC", 0.80, nil
	}
}
