// Package cli implements the datagate command line, a local control tool for
// the catalogue: plan and apply desired-state documents, inspect datasets and
// review the audit log.
package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"datagate/internal/catalogue"
	internaldb "datagate/internal/db"
	"datagate/internal/engine"
	"datagate/internal/reconcile"
)

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// globalOptions are shared by every subcommand that touches storage.
type globalOptions struct {
	metaDB    string
	warehouse string
	output    string
}

func (o *globalOptions) jsonOutput() bool { return o.output == "json" }

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "datagate",
		Short:         "Governed dataset gateway control tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.metaDB, "meta-db", "datagate_meta.sqlite", "path to the SQLite metastore")
	rootCmd.PersistentFlags().StringVar(&opts.warehouse, "warehouse", "", "path to the DuckDB database (empty for in-memory)")
	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "text", "output format: text or json")

	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newPlanCmd(opts))
	rootCmd.AddCommand(newApplyCmd(opts))
	rootCmd.AddCommand(newDatasetsCmd(opts))
	rootCmd.AddCommand(newAuditCmd(opts))
	return rootCmd
}

// documentFlags adds the flags every reconcile-style command shares.
func documentFlags(fs *pflag.FlagSet, file *string, filters, pins *[]string) {
	fs.StringVarP(file, "file", "f", "", "desired-state document (required)")
	fs.StringArrayVar(filters, "filter", nil, "dataset id glob, prefix - to exclude (repeatable)")
	fs.StringArrayVar(pins, "pin", nil, "dataset id the cleanup sweep must keep (repeatable)")
}

// openPair opens the metastore pools and runs migrations. The returned
// closer shuts both pools.
func openPair(opts *globalOptions) (writeDB, readDB *sql.DB, closer func(), err error) {
	writeDB, readDB, err = internaldb.OpenPair(opts.metaDB, 2)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open metastore: %w", err)
	}
	closer = func() {
		writeDB.Close()
		readDB.Close()
	}
	if err := internaldb.RunMigrations(writeDB); err != nil {
		closer()
		return nil, nil, nil, fmt.Errorf("migrate metastore: %w", err)
	}
	return writeDB, readDB, closer, nil
}

// openCatalogue opens the metastore and loads the catalogue store.
func openCatalogue(ctx context.Context, opts *globalOptions) (*catalogue.Store, func(), error) {
	writeDB, readDB, closer, err := openPair(opts)
	if err != nil {
		return nil, nil, err
	}
	store, err := catalogue.NewStore(ctx, writeDB, readDB)
	if err != nil {
		closer()
		return nil, nil, fmt.Errorf("load catalogue: %w", err)
	}
	return store, closer, nil
}

// openBackend opens the DuckDB warehouse for schema reflection.
func openBackend(opts *globalOptions) (*engine.Backend, func(), error) {
	warehouse, err := sql.Open("duckdb", opts.warehouse)
	if err != nil {
		return nil, nil, fmt.Errorf("open warehouse: %w", err)
	}
	return engine.New(warehouse), func() { warehouse.Close() }, nil
}

func runReconcile(cmd *cobra.Command, opts *globalOptions, file string, filters, pins []string, dryRun bool) error {
	doc, err := reconcile.LoadFile(file)
	if err != nil {
		return err
	}
	parsed, err := reconcile.ParseFilters(filters)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, closeStore, err := openCatalogue(ctx, opts)
	if err != nil {
		return err
	}
	defer closeStore()
	backend, closeBackend, err := openBackend(opts)
	if err != nil {
		return err
	}
	defer closeBackend()

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
	reconciler := reconcile.New(store, backend, logger, 0)

	plan, err := reconciler.Run(ctx, doc, reconcile.Options{
		DryRun:  dryRun,
		Filters: parsed,
		Pins:    pins,
	})
	if err != nil {
		return err
	}
	return printPlan(cmd.OutOrStdout(), plan, opts.jsonOutput())
}

func printPlan(w io.Writer, plan *reconcile.Plan, asJSON bool) error {
	if asJSON {
		return printJSON(w, map[string]interface{}{
			"dry_run": plan.DryRun,
			"summary": plan.Summary(),
			"creates": plan.CreatedIDs(),
			"updates": plan.UpdatedIDs(),
			"deletes": plan.ToDelete,
			"invalid": plan.Invalid,
		})
	}

	for _, id := range plan.CreatedIDs() {
		fmt.Fprintf(w, "+ create %s\n", id)
	}
	for _, id := range plan.UpdatedIDs() {
		fmt.Fprintf(w, "~ update %s\n", id)
	}
	for _, id := range plan.ToDelete {
		fmt.Fprintf(w, "- delete %s\n", id)
	}
	for _, inv := range plan.Invalid {
		fmt.Fprintf(w, "! invalid %s: %s\n", inv.DatasetID, inv.Reason)
	}
	summary := plan.Summary()
	verb := "applied"
	if plan.DryRun {
		verb = "planned"
	}
	fmt.Fprintf(w, "%s: %d to create, %d to update, %d to delete, %d invalid\n",
		verb, summary.Creates, summary.Updates, summary.Deletes, summary.Invalid)
	return nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
