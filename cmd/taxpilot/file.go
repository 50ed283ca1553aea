package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/agentictax/taxpilot/internal/archive"
	"github.com/agentictax/taxpilot/internal/cli"
	"github.com/agentictax/taxpilot/internal/config"
	"github.com/agentictax/taxpilot/internal/model"
	"github.com/agentictax/taxpilot/internal/orchestrator"
	"github.com/spf13/cobra"
)

func fileCmd() *cobra.Command {
	var approve bool

	cmd := &cobra.Command{
		Use:   "file <document>",
		Short: "Run a tax document through the filing pipeline",
		Long: `Submits one document to the pipeline. The run halts at Review so you can
inspect the discovered deductions and risk findings; pass --approve to
approve and transmit the return in the same invocation.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, store, err := buildOrchestrator()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ctx := cmd.Context()
			watchDone := watchActivity(orch)

			if err := orch.SubmitDocument(ctx, filepath.Base(args[0])); err != nil {
				watchDone()
				return err
			}
			watchDone()

			printReviewSummary(orch.Snapshot(), orch.ReviewOfferState())

			if !approve {
				fmt.Println(cli.SubtleStyle.Render("Re-run 'taxpilot file " + args[0] + " --approve' to approve and file this return."))
				return nil
			}
			return approveAndFile(ctx, orch)
		},
	}

	cmd.Flags().BoolVar(&approve, "approve", false, "approve the review and transmit the return")
	return cmd
}

// buildOrchestrator wires the orchestrator with the configured archive
// store and stage pacing.
func buildOrchestrator() (*orchestrator.Orchestrator, *archive.Store, error) {
	store, err := archive.NewStore(config.ArchiveDBPath())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open archive store: %w", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("failed to migrate archive store: %w", err)
	}

	orch := orchestrator.New(orchestrator.Config{
		Archiver:     store,
		StageLatency: config.StageLatency(),
	})
	return orch, store, nil
}

// watchActivity streams event log entries to the terminal until the
// returned stop function is called.
func watchActivity(orch *orchestrator.Orchestrator) func() {
	ch, cancel := orch.EventLog().Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range ch {
			fmt.Printf("%s %s\n", cli.StageStyle.Render(e.Stage+":"), e.Message)
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func printReviewSummary(snap model.Snapshot, offer orchestrator.ReviewOffer) {
	fmt.Println()
	fmt.Println(cli.TitleStyle.Render("Deductions Review"))
	for _, d := range snap.Deductions {
		marker := cli.SuccessIcon
		if d.NeedsAttention() {
			marker = cli.WarningIcon
		}
		fmt.Printf("  %s %-28s $%9.2f  (%.0f%% confidence)\n", marker, d.Category, d.Amount, d.Confidence*100)
	}
	fmt.Printf("  Total: $%.2f\n", snap.TotalDeductions())

	fmt.Println()
	fmt.Println(cli.TitleStyle.Render("Audit Risk Analysis"))
	for _, r := range snap.RiskFindings {
		fmt.Printf("  [%s] %s: %s\n", cli.SeverityBadge(r.Severity), r.Category, r.Description)
	}

	if offer.Offered {
		fmt.Println()
		fmt.Println(cli.FormatWarning("Elevated findings present. A professional review is available via the API or dashboard."))
	}
}

// approveAndFile drives Review -> Filing -> Complete with a progress bar
// tracking the filing steps.
func approveAndFile(ctx context.Context, orch *orchestrator.Orchestrator) error {
	bar := cli.NewFilingProgressBar()

	errCh := make(chan error, 1)
	go func() { errCh <- orch.Approve(ctx) }()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case err := <-errCh:
			_ = bar.Finish()
			if err != nil {
				return err
			}
			run := orch.Run()
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Return filed. Confirmation: %s (archive %s)", run.ConfirmationRef, run.ArchiveRef)))
			return nil
		case <-ticker.C:
			_ = bar.Set(orch.Progress())
		}
	}
}
