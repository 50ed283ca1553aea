package main

import (
	"context"
	"fmt"
	"os"

	"github.com/agentictax/taxpilot/internal/archive"
	"github.com/agentictax/taxpilot/internal/cli"
	"github.com/agentictax/taxpilot/internal/config"
	"github.com/agentictax/taxpilot/internal/export"
	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export <archive-ref>",
		Short: "Export an archived run's deductions as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := archive.NewStore(config.ArchiveDBPath())
			if err != nil {
				return fmt.Errorf("failed to open archive store: %w", err)
			}
			defer func() { _ = store.Close() }()
			if err := store.Migrate(context.Background()); err != nil {
				return fmt.Errorf("failed to migrate archive store: %w", err)
			}

			snap, err := store.GetArchivedRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			w := os.Stdout
			if out != "" {
				f, createErr := os.Create(out) // #nosec G304 -- user-chosen export path
				if createErr != nil {
					return fmt.Errorf("failed to create output file: %w", createErr)
				}
				defer func() { _ = f.Close() }()
				w = f
			}

			if err := export.WriteDeductionsCSV(w, snap.Deductions); err != nil {
				return err
			}
			if out != "" {
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("Exported %d deductions to %s", len(snap.Deductions), out)))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: stdout)")
	return cmd
}
