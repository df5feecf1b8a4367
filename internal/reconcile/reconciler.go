package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"datagate/internal/catalogue"
	"datagate/internal/domain"
)

// Reconciler diffs desired state against the catalogue and physical storage
// and commits the resulting plan. Runs are serialized: at most one diff and
// commit is in flight at a time, so plans never race a moving snapshot.
type Reconciler struct {
	store    *catalogue.Store
	backend  domain.StorageBackend
	logger   *slog.Logger
	parallel int

	mu sync.Mutex
}

// New creates a Reconciler. parallel bounds concurrent schema reflections;
// 0 defaults to 4.
func New(store *catalogue.Store, backend domain.StorageBackend, logger *slog.Logger, parallel int) *Reconciler {
	if parallel <= 0 {
		parallel = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{store: store, backend: backend, logger: logger, parallel: parallel}
}

// Options adjusts a single reconciliation run.
type Options struct {
	DryRun  bool
	Filters Filters  // applied after any filters embedded in the document
	Pins    []string // dataset ids the cleanup sweep must never delete
}

// Run executes one reconciliation pass and returns the plan. With DryRun the
// catalogue is left untouched. Reflection failures for individual datasets
// land in Plan.Invalid and never abort the run.
func (r *Reconciler) Run(ctx context.Context, doc *Document, opts Options) (*Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	docFilters, err := ParseFilters(doc.Filters)
	if err != nil {
		return nil, err
	}
	filters := append(docFilters, opts.Filters...)

	// 1. Select desired datasets through the filters.
	var selected []*domain.DatasetEntry
	for i := range doc.Datasets {
		spec := &doc.Datasets[i]
		if filters.Selected(spec.DatasetID) {
			selected = append(selected, spec.Entry(doc.Defaults))
		}
	}

	plan := &Plan{DryRun: opts.DryRun}

	// 2. Reflect every selected physical reference; failures mark the
	// dataset invalid in the plan.
	schemas := r.reflectAll(ctx, selected, func(e *domain.DatasetEntry) string { return e.PhysicalRef })
	desired := make(map[string]*domain.DatasetEntry, len(selected))
	for i, entry := range selected {
		if schemas[i].err != nil {
			plan.Invalid = append(plan.Invalid, InvalidEntry{
				DatasetID: entry.DatasetID,
				Reason:    fmt.Sprintf("reflection failed: %v", schemas[i].err),
			})
			continue
		}
		entry.SchemaSnapshot = schemas[i].schema
		desired[strings.ToLower(entry.DatasetID)] = entry
	}

	// 3. Diff against the current snapshot.
	snap := r.store.Snapshot()
	for _, entry := range desired {
		current, ok := snap.Get(entry.DatasetID)
		switch {
		case !ok:
			plan.ToCreate = append(plan.ToCreate, entry)
		case !current.MetadataEqual(entry) ||
			!current.SchemaSnapshot.Equal(entry.SchemaSnapshot) ||
			current.Status != domain.StatusActive:
			plan.ToUpdate = append(plan.ToUpdate, entry)
		}
	}

	deleting := make(map[string]bool)
	for _, current := range snap.List() {
		key := strings.ToLower(current.DatasetID)
		if _, ok := desired[key]; ok {
			continue
		}
		if invalidInPlan(plan, current.DatasetID) {
			// Declared but unreflectable: leave the existing entry alone.
			continue
		}
		if filters.Selected(current.DatasetID) {
			plan.ToDelete = append(plan.ToDelete, current.DatasetID)
			deleting[key] = true
		}
	}

	// 4. Cleanup sweep: reflect every currently active entry; dead physical
	// references are deleted regardless of the desired document, unless
	// pinned.
	pinned := make(map[string]bool, len(opts.Pins))
	for _, pin := range opts.Pins {
		pinned[strings.ToLower(pin)] = true
	}

	var sweep []*domain.DatasetEntry
	for _, current := range snap.List() {
		key := strings.ToLower(current.DatasetID)
		if current.Status != domain.StatusActive || deleting[key] || pinned[key] {
			continue
		}
		if _, ok := desired[key]; ok {
			continue // just reflected successfully above
		}
		sweep = append(sweep, current)
	}
	sweepResults := r.reflectAll(ctx, sweep, func(e *domain.DatasetEntry) string { return e.PhysicalRef })
	for i, current := range sweep {
		reflectErr := sweepResults[i].err
		if reflectErr == nil {
			continue
		}
		// Only a confirmed missing object is swept. Any other reflection
		// failure (backend unreachable, cancelled context) keeps the entry.
		var nferr *domain.NotFoundError
		if !errors.As(reflectErr, &nferr) {
			r.logger.Warn("cleanup sweep: reflection failed, keeping entry",
				"dataset_id", current.DatasetID, "error", reflectErr)
			continue
		}
		r.logger.Warn("cleanup sweep: physical reference no longer resolves",
			"dataset_id", current.DatasetID)
		plan.ToDelete = append(plan.ToDelete, current.DatasetID)
	}

	plan.sort()

	summary := plan.Summary()
	r.logger.Info("reconciliation plan computed",
		"creates", summary.Creates,
		"updates", summary.Updates,
		"deletes", summary.Deletes,
		"invalid", summary.Invalid,
		"dry_run", opts.DryRun)

	// 5. Commit unless dry-run. Creates and updates land before deletes so a
	// rename (drop-and-recreate of the same id) ends up present.
	if opts.DryRun || plan.Empty() {
		return plan, nil
	}
	err = r.store.Apply(ctx, &catalogue.Changes{
		Create: plan.ToCreate,
		Update: plan.ToUpdate,
		Delete: plan.ToDelete,
	})
	if err != nil {
		return nil, fmt.Errorf("commit reconciliation plan: %w", err)
	}
	return plan, nil
}

type reflectResult struct {
	schema domain.Schema
	err    error
}

// reflectAll runs schema reflection for every entry with bounded parallelism.
// Individual failures are captured per entry, never propagated.
func (r *Reconciler) reflectAll(ctx context.Context, entries []*domain.DatasetEntry, ref func(*domain.DatasetEntry) string) []reflectResult {
	results := make([]reflectResult, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallel)
	for i, entry := range entries {
		g.Go(func() error {
			schema, err := r.backend.Reflect(gctx, ref(entry))
			results[i] = reflectResult{schema: schema, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func invalidInPlan(plan *Plan, datasetID string) bool {
	for _, inv := range plan.Invalid {
		if strings.EqualFold(inv.DatasetID, datasetID) {
			return true
		}
	}
	return false
}
