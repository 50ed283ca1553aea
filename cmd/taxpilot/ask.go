package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentictax/taxpilot/internal/advisor"
	"github.com/agentictax/taxpilot/internal/cli"
	"github.com/agentictax/taxpilot/internal/config"
	"github.com/agentictax/taxpilot/internal/model"
	"github.com/spf13/cobra"
)

func askCmd() *cobra.Command {
	var useDemo bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the tax advisor a question",
		Long: `Sends one question to the advisor. With --demo the question is grounded
in the demo run's deductions and risk findings, so summary-style questions
("walk me through my return") answer from that data.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")

			completer, err := advisor.NewCompleter(config.LoadAdvisorConfig())
			if err != nil {
				return fmt.Errorf("failed to configure advisor: %w", err)
			}
			adv := advisor.New(completer)

			snap := model.Snapshot{}
			if useDemo {
				orch, store, buildErr := buildOrchestrator()
				if buildErr != nil {
					return buildErr
				}
				defer func() { _ = store.Close() }()
				if demoErr := orch.LoadDemoScenario(); demoErr != nil {
					return demoErr
				}
				snap = orch.Snapshot()
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), config.AdvisorTimeout())
			defer cancel()

			answer := adv.Ask(ctx, nil, question, snap)
			fmt.Println(cli.BoxStyle.Render(answer))
			return nil
		},
	}

	cmd.Flags().BoolVar(&useDemo, "demo", false, "ground the answer in the demo run's artifacts")
	return cmd
}
