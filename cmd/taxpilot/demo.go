package main

import (
	"fmt"

	"github.com/agentictax/taxpilot/internal/cli"
	"github.com/spf13/cobra"
)

func demoCmd() *cobra.Command {
	var approve bool

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Load a canned demo run parked at Review",
		Long: `Synthesizes a fully processed run (one verified 1099-NEC, three
deductions, one medium risk finding) without executing the pipeline, then
prints the review summary.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			orch, store, err := buildOrchestrator()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := orch.LoadDemoScenario(); err != nil {
				return err
			}

			fmt.Printf("Phase: %s\n", cli.PhaseBadge(orch.Phase()))
			printReviewSummary(orch.Snapshot(), orch.ReviewOfferState())

			if !approve {
				return nil
			}
			return approveAndFile(cmd.Context(), orch)
		},
	}

	cmd.Flags().BoolVar(&approve, "approve", false, "approve the review and transmit the return")
	return cmd
}
