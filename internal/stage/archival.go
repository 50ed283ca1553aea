package stage

import (
	"context"
	"fmt"
	"time"

	"github.com/agentictax/taxpilot/internal/common"
	"github.com/agentictax/taxpilot/internal/model"
)

// Archival persists the run's artifacts to a durable store. It must finish
// before the run can be marked complete.
type Archival struct {
	Archiver Archiver
	Latency  time.Duration

	// Reference is set on success and read back by the orchestrator.
	Reference string
}

// Name implements Stage.
func (s *Archival) Name() string { return NameArchival }

// Run implements Stage.
func (s *Archival) Run(ctx context.Context, sc *Context) error {
	sc.Log.Append(s.Name(), "Archiving documents and findings...")
	if err := sc.Sleeper.Sleep(ctx, s.Latency); err != nil {
		return err
	}

	if s.Archiver == nil {
		return common.NewStageError(s.Name(), fmt.Errorf("no archive store configured"))
	}

	snap := sc.Store.Snapshot(model.PhaseFiling)
	ref, err := s.Archiver.ArchiveRun(ctx, snap.RunID, snap)
	if err != nil {
		return common.NewStageError(s.Name(), err)
	}

	s.Reference = ref
	sc.Log.Append(s.Name(), fmt.Sprintf("Archive complete. Reference: %s", ref))
	return nil
}
