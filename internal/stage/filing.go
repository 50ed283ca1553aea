package stage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/agentictax/taxpilot/internal/common"
	"github.com/agentictax/taxpilot/internal/model"
	"github.com/google/uuid"
)

// Filing validates, packages, signs, transmits, and confirms the return.
// Every step before Transmit honors cancellation; Transmit, once entered,
// runs to its own completion or failure.
type Filing struct {
	Transmitter Transmitter
	StepLatency time.Duration

	// Confirmation is set on success and read back by the orchestrator.
	Confirmation string
}

// Name implements Stage.
func (s *Filing) Name() string { return NameFiling }

// Run implements Stage.
func (s *Filing) Run(ctx context.Context, sc *Context) error {
	report := func(p int) {
		if sc.Progress != nil {
			sc.Progress(p)
		}
	}
	step := func(percent int, msg string) error {
		sc.Log.Append(s.Name(), msg)
		if err := sc.Sleeper.Sleep(ctx, s.StepLatency); err != nil {
			return err
		}
		report(percent)
		return nil
	}

	snap := sc.Store.Snapshot(model.PhaseFiling)

	if err := step(15, "Validating return data..."); err != nil {
		return err
	}
	for _, d := range snap.Deductions {
		if err := d.Validate(); err != nil {
			return common.NewStageError(s.Name(), err)
		}
	}

	if err := step(35, "Packaging submission..."); err != nil {
		return err
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return common.NewStageError(s.Name(), err)
	}

	if err := step(55, "Applying digital signature..."); err != nil {
		return err
	}

	// Point of no return: transmit is not cancellable or retractable.
	sc.Log.Append(s.Name(), "Transmitting return...")
	transmitter := s.Transmitter
	if transmitter == nil {
		transmitter = stubTransmitter{}
	}
	ref, err := transmitter.Transmit(context.WithoutCancel(ctx), payload)
	if err != nil {
		return &common.TransmissionError{Err: err}
	}
	report(85)

	sc.Log.Append(s.Name(), "Awaiting confirmation...")
	if ref == "" {
		return &common.TransmissionError{Err: fmt.Errorf("empty confirmation reference")}
	}
	s.Confirmation = ref
	report(100)
	sc.Log.Append(s.Name(), fmt.Sprintf("Return accepted. Confirmation: %s", ref))
	return nil
}

// stubTransmitter stands in for the external filing gateway.
type stubTransmitter struct{}

func (stubTransmitter) Transmit(context.Context, []byte) (string, error) {
	return "IRS-ACK-" + uuid.NewString()[:8], nil
}
