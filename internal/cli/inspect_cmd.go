package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"datagate/internal/catalogue"
)

// newDatasetsCmd lists catalogue entries straight from the metastore.
func newDatasetsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "datasets",
		Short: "List catalogue entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, closeStore, err := openCatalogue(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeStore()

			entries := store.Snapshot().List()
			if opts.jsonOutput() {
				return printJSON(cmd.OutOrStdout(), entries)
			}
			for _, entry := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n",
					entry.DatasetID, entry.Namespace, entry.AccessLevel, entry.Status)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d datasets\n", len(entries))
			return nil
		},
	}
	return cmd
}

// newAuditCmd prints recent audit rows, newest first.
func newAuditCmd(opts *globalOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recent query audit records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			writeDB, readDB, closeDBs, err := openPair(opts)
			if err != nil {
				return err
			}
			defer closeDBs()

			repo := catalogue.NewAuditRepo(writeDB, readDB)
			recs, err := repo.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if opts.jsonOutput() {
				if recs == nil {
					recs = []*catalogue.AuditRecord{}
				}
				return printJSON(cmd.OutOrStdout(), recs)
			}
			for _, rec := range recs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\t%s\trows=%d\n",
					rec.CreatedAt.Format("2006-01-02 15:04:05"),
					rec.RequestID, rec.Subject, rec.Outcome, rec.ErrorKind, rec.RowCount)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum records to show")
	return cmd
}
