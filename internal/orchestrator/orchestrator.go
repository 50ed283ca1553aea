// Package orchestrator owns the run state machine: it sequences pipeline
// stages, applies their effects to the artifact store and event log, and
// gates filing on explicit user approval.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/agentictax/taxpilot/internal/artifacts"
	"github.com/agentictax/taxpilot/internal/common"
	"github.com/agentictax/taxpilot/internal/eventlog"
	"github.com/agentictax/taxpilot/internal/model"
	"github.com/agentictax/taxpilot/internal/stage"
	"github.com/google/uuid"
)

// Config holds the orchestrator's injectable collaborators. Zero values
// fall back to the built-in stand-ins.
type Config struct {
	Classifier  stage.Classifier
	Checker     stage.IdentityChecker
	Accounts    stage.LinkedAccountFeed
	Transmitter stage.Transmitter
	Archiver    stage.Archiver
	Sleeper     stage.Sleeper

	// StageLatency paces each stage's simulated work; zero disables it.
	StageLatency time.Duration
}

// Orchestrator drives one run through the pipeline. Stages execute
// strictly sequentially on the calling goroutine; state queries are safe
// from any goroutine at any time.
type Orchestrator struct {
	runID    string
	store    *artifacts.Store
	log      *eventlog.Log
	filing   *stage.Filing
	archival *stage.Archival

	processing []stage.Stage

	mu     sync.Mutex
	run    model.Run
	sc     *stage.Context
	busy   bool
	cancel context.CancelFunc
}

// New creates an orchestrator with a fresh run in the Intake phase.
func New(cfg Config) *Orchestrator {
	if cfg.Classifier == nil {
		cfg.Classifier = stage.HeuristicClassifier{}
	}
	if cfg.Accounts == nil {
		cfg.Accounts = stage.StaticFeed{}
	}
	if cfg.Sleeper == nil {
		cfg.Sleeper = stage.RealSleeper{}
	}

	runID := uuid.NewString()
	store := artifacts.NewStore(runID)
	log := eventlog.New()

	o := &Orchestrator{
		runID: runID,
		store: store,
		log:   log,
		run: model.Run{
			ID:        runID,
			Phase:     model.PhaseIntake,
			CreatedAt: time.Now(),
		},
		processing: []stage.Stage{
			&stage.Intake{Classifier: cfg.Classifier, Latency: cfg.StageLatency},
			&stage.Extraction{Latency: cfg.StageLatency},
			&stage.Validation{Checker: cfg.Checker, Latency: cfg.StageLatency},
			&stage.DeductionDiscovery{Accounts: cfg.Accounts, Latency: cfg.StageLatency},
			&stage.RiskAnalysis{Latency: cfg.StageLatency},
		},
		filing:   &stage.Filing{Transmitter: cfg.Transmitter, StepLatency: cfg.StageLatency},
		archival: &stage.Archival{Archiver: cfg.Archiver, Latency: cfg.StageLatency},
		sc: &stage.Context{
			Store:   store,
			Log:     log,
			Sleeper: cfg.Sleeper,
		},
	}
	log.Append("", "Run created.")
	return o
}

// Run returns a copy of the current run state.
func (o *Orchestrator) Run() model.Run {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.run
}

// Phase returns the run's current phase.
func (o *Orchestrator) Phase() model.Phase {
	return o.Run().Phase
}

// Progress returns filing progress, 0-100.
func (o *Orchestrator) Progress() int {
	return o.Run().FilingProgress
}

// Snapshot returns a read-only deep copy of the run's artifacts.
func (o *Orchestrator) Snapshot() model.Snapshot {
	return o.store.Snapshot(o.Phase())
}

// EventLog exposes the run's activity log for audit and feed consumers.
func (o *Orchestrator) EventLog() *eventlog.Log {
	return o.log
}

// EscalationOffered reports whether any committed finding warrants the
// professional-review call to action.
func (o *Orchestrator) EscalationOffered() bool {
	return o.Snapshot().EscalationOffered()
}

// SubmitDocument pushes one document through the processing stage sequence
// and halts at Review. It blocks until Review, failure, or cancellation;
// run state stays queryable throughout.
func (o *Orchestrator) SubmitDocument(ctx context.Context, filename string) error {
	if filename == "" {
		return common.NewUserError("a document is required", nil)
	}

	ctx, err := o.beginSequence(ctx, model.PhaseIntake, model.PhaseProcessing)
	if err != nil {
		return err
	}
	defer o.endSequence()

	o.mu.Lock()
	o.sc.Filename = filename
	o.mu.Unlock()

	if err := o.runStages(ctx, o.processing, 0); err != nil {
		return err
	}
	return o.transition(model.PhaseReview)
}

// Approve moves an approved run through filing and archival to Complete.
// It is the only path out of Review; nothing advances past Review
// automatically.
func (o *Orchestrator) Approve(ctx context.Context) error {
	ctx, err := o.beginSequence(ctx, model.PhaseReview, model.PhaseFiling)
	if err != nil {
		return err
	}
	defer o.endSequence()

	return o.runFilingSequence(ctx, 0)
}

// Restart re-runs the failing stage and the remainder of its sequence.
// There is no automatic retry; this is the explicit user-triggered path
// out of Failed. Runs flagged for manual intervention are refused, as are
// cancelled runs: a cancellation records no failing stage, so there is
// nothing to resume and restarting would bypass the Review gate.
func (o *Orchestrator) Restart(ctx context.Context) error {
	o.mu.Lock()
	if o.run.Phase != model.PhaseFailed {
		o.mu.Unlock()
		return fmt.Errorf("%w: restart requires a failed run", common.ErrInvalidTransition)
	}
	if o.run.ManualIntervention {
		o.mu.Unlock()
		return common.NewUserError("this filing may have been partially transmitted; contact support to reconcile before retrying", nil)
	}
	if o.run.FailedStage == "" {
		o.mu.Unlock()
		return fmt.Errorf("%w: a cancelled run has no failing stage to resume", common.ErrInvalidTransition)
	}
	if o.busy {
		o.mu.Unlock()
		return common.ErrPipelineBusy
	}
	failed := o.run.FailedStage
	o.busy = true
	ctx, o.cancel = context.WithCancel(ctx)

	if idx := o.processingIndex(failed); idx >= 0 {
		o.run.Phase = model.PhaseProcessing
		o.run.FailedStage = ""
		o.mu.Unlock()
		defer o.endSequence()

		o.log.Append("", fmt.Sprintf("Restarting from %s stage.", failed))
		if err := o.runStages(ctx, o.processing, idx); err != nil {
			return err
		}
		return o.transition(model.PhaseReview)
	}

	o.run.Phase = model.PhaseFiling
	o.run.FailedStage = ""
	o.mu.Unlock()
	defer o.endSequence()

	o.log.Append("", fmt.Sprintf("Restarting from %s stage.", failed))
	startAt := 0
	if failed == stage.NameArchival {
		startAt = 1
	}
	return o.runFilingSequence(ctx, startAt)
}

// Cancel abandons the run. A no-op once the run is Complete; a cancelled
// filing never transmits.
func (o *Orchestrator) Cancel() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.run.Phase == model.PhaseComplete {
		return common.ErrRunTerminal
	}
	if o.cancel != nil {
		o.cancel()
	}
	if o.run.Phase != model.PhaseFailed {
		o.run.Phase = model.PhaseFailed
		o.log.Append("", "Run cancelled by user.")
	}
	return nil
}

// LoadDemoScenario synthesizes a processed run without executing stages:
// one verified document, three deductions, one medium risk finding, and
// the run parked at Review.
func (o *Orchestrator) LoadDemoScenario() error {
	o.mu.Lock()
	if o.run.Phase != model.PhaseIntake {
		o.mu.Unlock()
		return fmt.Errorf("%w: demo scenario requires a fresh run", common.ErrInvalidTransition)
	}
	o.run.Phase = model.PhaseProcessing
	o.mu.Unlock()

	o.log.Append("", "Loading demo scenario.")

	docID := uuid.NewString()
	o.store.AddDocument(model.Document{
		ID:         docID,
		Name:       "freelance_1099.pdf",
		Type:       "1099-NEC",
		Status:     model.DocStatusVerified,
		Confidence: 0.99,
		UploadedAt: time.Now(),
	})
	o.log.Append(stage.NameIntake, "Classified as 1099-NEC (Confidence: 99%)")

	if err := o.store.AddDeductions([]model.Deduction{
		{
			ID:          uuid.NewString(),
			Category:    "Home Office",
			Amount:      1450,
			Description: "Simplified method based on dedicated workspace square footage.",
			Explanation: "Your 1099-NEC income and matching address history qualify you for the simplified home office deduction.",
			SourceRef:   docID,
			Confidence:  0.92,
		},
		{
			ID:          uuid.NewString(),
			Category:    "Health Insurance Premiums",
			Amount:      2899,
			Description: "Self-employed health insurance premiums.",
			Explanation: "Premiums paid while self-employed are deductible against 1099-NEC income.",
			SourceRef:   "linked-account",
			Confidence:  0.95,
		},
		{
			ID:          uuid.NewString(),
			Category:    "Retirement Contributions",
			Amount:      3200,
			Description: "SEP-IRA contribution for the tax year.",
			Explanation: "Contributions recorded in your linked brokerage account reduce taxable self-employment income.",
			SourceRef:   "linked-account",
			Confidence:  0.97,
		},
	}); err != nil {
		return err
	}
	o.log.Append(stage.NameDiscovery, "Found $7,549 in new deductions.")

	o.store.AddRiskFindings([]model.RiskFinding{
		{
			ID:          uuid.NewString(),
			Category:    "Home Office Deduction",
			Severity:    model.SeverityMedium,
			Description: "The deduction is a statistically significant share of total income.",
			Mitigation:  "Address history matches the claim period, lowering the risk profile.",
		},
	})
	o.log.Append(stage.NameRisk, "Risk assessment complete. 1 item analyzed.")
	o.log.Append(stage.NameRisk, "Elevated findings present; professional review is available.")

	return o.transition(model.PhaseReview)
}

// beginSequence validates the entry transition, marks the pipeline busy,
// and derives the cancellable sequence context.
func (o *Orchestrator) beginSequence(ctx context.Context, from, to model.Phase) (context.Context, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.busy {
		return nil, common.ErrPipelineBusy
	}
	if o.run.Phase != from {
		return nil, fmt.Errorf("%w: %s -> %s (current phase %s)", common.ErrInvalidTransition, from, to, o.run.Phase)
	}
	o.run.Phase = to
	o.busy = true
	ctx, o.cancel = context.WithCancel(ctx)
	o.log.Append("", fmt.Sprintf("Phase advanced to %s.", to))
	return ctx, nil
}

func (o *Orchestrator) endSequence() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.busy = false
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
}

// runStages executes stages[startAt:] in order. Stage N's effects are
// fully committed before stage N+1 starts.
func (o *Orchestrator) runStages(ctx context.Context, stages []stage.Stage, startAt int) error {
	for _, s := range stages[startAt:] {
		if err := ctx.Err(); err != nil {
			o.fail(s.Name(), err)
			return err
		}
		slog.Info("Running stage", "stage", s.Name(), "run_id", o.runID)
		if err := s.Run(ctx, o.sc); err != nil {
			o.fail(s.Name(), err)
			return err
		}
	}
	return nil
}

func (o *Orchestrator) runFilingSequence(ctx context.Context, startAt int) error {
	o.mu.Lock()
	o.sc.Progress = func(p int) {
		o.mu.Lock()
		o.run.FilingProgress = p
		o.mu.Unlock()
	}
	o.mu.Unlock()

	filingStages := []stage.Stage{o.filing, o.archival}
	if err := o.runStages(ctx, filingStages, startAt); err != nil {
		return err
	}

	o.mu.Lock()
	o.run.ConfirmationRef = o.filing.Confirmation
	o.run.ArchiveRef = o.archival.Reference
	o.mu.Unlock()

	common.LogInfo("Filing sequence complete", common.Fields{
		"run_id":       o.runID,
		"confirmation": o.filing.Confirmation,
		"archive_ref":  o.archival.Reference,
	})
	return o.transition(model.PhaseComplete)
}

// fail moves the run to Failed and records which stage broke, flagging
// post-transmit failures for manual reconciliation.
func (o *Orchestrator) fail(stageName string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.run.Phase.Terminal() {
		return
	}
	o.run.Phase = model.PhaseFailed
	o.run.FailedStage = stageName
	if common.IsTransmissionError(err) {
		o.run.ManualIntervention = true
	}
	o.log.Append(stageName, fmt.Sprintf("Fatal error: %v", err))
	common.LogError(err, "Stage failed", common.Fields{"stage": stageName, "run_id": o.runID})
}

func (o *Orchestrator) transition(next model.Phase) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.run.Phase.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", common.ErrInvalidTransition, o.run.Phase, next)
	}
	o.run.Phase = next
	o.log.Append("", fmt.Sprintf("Phase advanced to %s.", next))
	return nil
}

func (o *Orchestrator) processingIndex(name string) int {
	for i, s := range o.processing {
		if s.Name() == name {
			return i
		}
	}
	return -1
}
