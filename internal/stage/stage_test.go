package stage

import (
	"context"
	"errors"
	"testing"

	"github.com/agentictax/taxpilot/internal/artifacts"
	"github.com/agentictax/taxpilot/internal/common"
	"github.com/agentictax/taxpilot/internal/eventlog"
	"github.com/agentictax/taxpilot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(filename string) *Context {
	return &Context{
		Store:    artifacts.NewStore("run-test"),
		Log:      eventlog.New(),
		Sleeper:  InstantSleeper{},
		Filename: filename,
	}
}

func TestHeuristicClassifier(t *testing.T) {
	tests := []struct {
		filename string
		wantType string
	}{
		{"w2.pdf", "W-2"},
		{"my-1099-int.pdf", "1099-INT"},
		{"acme_1099.pdf", "1099-NEC"},
		{"receipt-march.jpg", "Receipt"},
		{"mystery.pdf", "1099-NEC"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			docType, confidence, err := HeuristicClassifier{}.ClassifyDocument(context.Background(), tt.filename)
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, docType)
			assert.Greater(t, confidence, 0.0)
			assert.LessOrEqual(t, confidence, 1.0)
		})
	}
}

func TestIntakeAppendsClassifiedDocument(t *testing.T) {
	sc := newTestContext("w2.pdf")
	s := &Intake{Classifier: HeuristicClassifier{}}

	require.NoError(t, s.Run(context.Background(), sc))

	docs := sc.Store.Documents()
	require.Len(t, docs, 1)
	assert.Equal(t, "w2.pdf", docs[0].Name)
	assert.Equal(t, "W-2", docs[0].Type)
	assert.Equal(t, model.DocStatusUploaded, docs[0].Status)
	assert.NotEmpty(t, docs[0].ID)
	assert.Equal(t, "W-2", sc.Facts["doc_type"])
}

func TestExtractionRequiresDocument(t *testing.T) {
	sc := newTestContext("w2.pdf")
	s := &Extraction{}

	err := s.Run(context.Background(), sc)
	var se *common.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, NameExtract, se.Stage)
}

func TestValidationVerifiesDocument(t *testing.T) {
	sc := newTestContext("w2.pdf")
	require.NoError(t, (&Intake{Classifier: HeuristicClassifier{}}).Run(context.Background(), sc))
	require.NoError(t, (&Extraction{}).Run(context.Background(), sc))
	require.NoError(t, (&Validation{}).Run(context.Background(), sc))

	docs := sc.Store.Documents()
	require.Len(t, docs, 1)
	assert.Equal(t, model.DocStatusVerified, docs[0].Status)
	assert.Empty(t, sc.Discrepancies)
}

type mismatchChecker struct{}

func (mismatchChecker) Check(context.Context, map[string]string) error {
	return &common.ValidationMismatch{Field: "payer_tin", Expected: "82-1404761", Actual: "82-0000000"}
}

func TestValidationMismatchIsNonFatal(t *testing.T) {
	sc := newTestContext("w2.pdf")
	require.NoError(t, (&Intake{Classifier: HeuristicClassifier{}}).Run(context.Background(), sc))
	require.NoError(t, (&Extraction{}).Run(context.Background(), sc))

	err := (&Validation{Checker: mismatchChecker{}}).Run(context.Background(), sc)
	require.NoError(t, err)
	require.Len(t, sc.Discrepancies, 1)
	assert.Contains(t, sc.Discrepancies[0], "payer_tin")

	// The document is not verified on a mismatch.
	assert.Equal(t, model.DocStatusProcessing, sc.Store.Documents()[0].Status)
}

func TestDiscoveryProducesBoundedDeductions(t *testing.T) {
	sc := newTestContext("freelance_1099.pdf")
	require.NoError(t, (&Intake{Classifier: HeuristicClassifier{}}).Run(context.Background(), sc))
	require.NoError(t, (&Extraction{}).Run(context.Background(), sc))

	s := &DeductionDiscovery{Accounts: StaticFeed{}}
	require.NoError(t, s.Run(context.Background(), sc))

	snap := sc.Store.Snapshot(model.PhaseProcessing)
	require.NotEmpty(t, snap.Deductions)
	for _, d := range snap.Deductions {
		assert.GreaterOrEqual(t, d.Confidence, 0.0)
		assert.LessOrEqual(t, d.Confidence, 1.0)
		assert.GreaterOrEqual(t, d.Amount, 0.0)
	}
}

func TestRiskAnalysisEscalatesDiscrepancies(t *testing.T) {
	sc := newTestContext("w2.pdf")
	require.NoError(t, sc.Store.AddDeductions([]model.Deduction{
		{ID: "d1", Category: "Home Office", Amount: 1200, Confidence: 0.92},
	}))
	sc.Discrepancies = []string{"validation mismatch on payer_tin"}

	require.NoError(t, (&RiskAnalysis{}).Run(context.Background(), sc))

	snap := sc.Store.Snapshot(model.PhaseProcessing)
	var discrepancyFindings int
	for _, f := range snap.RiskFindings {
		if f.Category == "Validation Discrepancy" {
			discrepancyFindings++
			assert.Equal(t, model.SeverityMedium, f.Severity)
		}
	}
	assert.Equal(t, 1, discrepancyFindings)
	assert.True(t, snap.EscalationOffered())
}

func TestFilingReportsFullProgress(t *testing.T) {
	sc := newTestContext("w2.pdf")
	var progress []int
	sc.Progress = func(p int) { progress = append(progress, p) }

	s := &Filing{}
	require.NoError(t, s.Run(context.Background(), sc))

	require.NotEmpty(t, progress)
	assert.Equal(t, 100, progress[len(progress)-1])
	assert.NotEmpty(t, s.Confirmation)
}

type failingTransmitter struct{}

func (failingTransmitter) Transmit(context.Context, []byte) (string, error) {
	return "", errors.New("gateway 502")
}

func TestFilingTransmitFailureIsFlagged(t *testing.T) {
	sc := newTestContext("w2.pdf")
	s := &Filing{Transmitter: failingTransmitter{}}

	err := s.Run(context.Background(), sc)
	require.Error(t, err)
	assert.True(t, common.IsTransmissionError(err))
	assert.Empty(t, s.Confirmation)
}

func TestFilingCancellableBeforeTransmit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sc := newTestContext("w2.pdf")
	s := &Filing{Transmitter: failingTransmitter{}}

	err := s.Run(ctx, sc)
	require.ErrorIs(t, err, context.Canceled)
	// Cancellation pre-transmit must never surface as a transmission failure.
	assert.False(t, common.IsTransmissionError(err))
}

type memoryArchiver struct{ refs []string }

func (a *memoryArchiver) ArchiveRun(_ context.Context, runID string, _ model.Snapshot) (string, error) {
	ref := "ARC-" + runID
	a.refs = append(a.refs, ref)
	return ref, nil
}

func TestArchivalStoresSnapshot(t *testing.T) {
	sc := newTestContext("w2.pdf")
	archiver := &memoryArchiver{}
	s := &Archival{Archiver: archiver}

	require.NoError(t, s.Run(context.Background(), sc))
	assert.Equal(t, "ARC-run-test", s.Reference)
	assert.Len(t, archiver.refs, 1)
}

func TestArchivalRequiresStore(t *testing.T) {
	sc := newTestContext("w2.pdf")
	err := (&Archival{}).Run(context.Background(), sc)

	var se *common.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, NameArchival, se.Stage)
}
