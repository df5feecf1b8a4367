package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"datagate/internal/reconcile"
)

// newCheckCmd validates a document without touching any storage.
func newCheckCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a desired-state document",
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := reconcile.LoadFile(file)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d datasets, %d filters\n",
				len(doc.Datasets), len(doc.Filters))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "desired-state document (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// newPlanCmd shows what apply would change. Always a dry run.
func newPlanCmd(opts *globalOptions) *cobra.Command {
	var (
		file    string
		filters []string
		pins    []string
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Preview the changes a document would make",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReconcile(cmd, opts, file, filters, pins, true)
		},
	}
	documentFlags(cmd.Flags(), &file, &filters, &pins)
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// newApplyCmd reconciles the catalogue to the document.
func newApplyCmd(opts *globalOptions) *cobra.Command {
	var (
		file    string
		filters []string
		pins    []string
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Reconcile the catalogue to a document",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReconcile(cmd, opts, file, filters, pins, dryRun)
		},
	}
	documentFlags(cmd.Flags(), &file, &filters, &pins)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "plan without committing")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
