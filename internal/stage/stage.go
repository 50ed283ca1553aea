// Package stage implements the pipeline's units of work. Each stage
// transforms the run's artifacts and emits log entries; the orchestrator
// decides phase transitions, never the stages themselves.
package stage

import (
	"context"
	"time"

	"github.com/agentictax/taxpilot/internal/artifacts"
	"github.com/agentictax/taxpilot/internal/eventlog"
	"github.com/agentictax/taxpilot/internal/model"
)

// Stage names, used for log attribution and restart targeting.
const (
	NameIntake    = "Intake"
	NameExtract   = "Extraction"
	NameValidate  = "Validation"
	NameDiscovery = "DeductionDiscovery"
	NameRisk      = "RiskAnalysis"
	NameFiling    = "Filing"
	NameArchival  = "Archival"
)

// Stage is one unit of pipeline work.
type Stage interface {
	Name() string
	Run(ctx context.Context, sc *Context) error
}

// Context carries the shared run state a stage operates on. It is owned by
// the pipeline goroutine; stages never retain it past Run.
type Context struct {
	Store    *artifacts.Store
	Log      *eventlog.Log
	Sleeper  Sleeper
	Filename string

	// Facts holds extraction output consumed by later stages.
	Facts map[string]string

	// Discrepancies holds validation mismatch tags for risk analysis.
	Discrepancies []string

	// Progress reports filing progress 0-100; nil outside the filing phase.
	Progress func(percent int)
}

// Fact records an extracted key/value pair, initializing the map lazily.
func (sc *Context) Fact(key, value string) {
	if sc.Facts == nil {
		sc.Facts = map[string]string{}
	}
	sc.Facts[key] = value
}

// Sleeper abstracts simulated work latency so tests run instantly.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// RealSleeper waits on the wall clock, honoring cancellation.
type RealSleeper struct{}

// Sleep waits for d or until ctx is done.
func (RealSleeper) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// InstantSleeper returns immediately; the deterministic stand-in for tests.
type InstantSleeper struct{}

// Sleep only checks for cancellation.
func (InstantSleeper) Sleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// Classifier is the external document-classification capability. The real
// OCR/ML implementation lives outside this system.
type Classifier interface {
	ClassifyDocument(ctx context.Context, filename string) (docType string, confidence float64, err error)
}

// IdentityChecker cross-checks extracted identifiers against records. A
// mismatch is reported as *common.ValidationMismatch; nil means clean.
type IdentityChecker interface {
	Check(ctx context.Context, facts map[string]string) error
}

// LinkedExpense is one recurring expense surfaced by a linked account.
type LinkedExpense struct {
	Merchant    string
	Category    string
	Description string
	Annual      float64
}

// LinkedAccountFeed supplies externally-linked financial data to deduction
// discovery.
type LinkedAccountFeed interface {
	RecurringExpenses(ctx context.Context) ([]LinkedExpense, error)
}

// Transmitter submits a packaged filing and returns a confirmation
// reference. Once Transmit is entered the submission may have left the
// building; callers must not retry blindly.
type Transmitter interface {
	Transmit(ctx context.Context, payload []byte) (confirmationRef string, err error)
}

// Archiver persists a run's artifacts to a durable store and returns an
// archive reference.
type Archiver interface {
	ArchiveRun(ctx context.Context, runID string, snap model.Snapshot) (archiveRef string, err error)
}
