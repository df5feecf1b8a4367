package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datagate/internal/catalogue"
	"datagate/internal/db"
	"datagate/internal/domain"
)

// fakeBackend reflects from an in-memory table map. A missing table yields a
// *domain.NotFoundError, matching the storage backend contract; setting
// failErr makes every reflection fail as if the warehouse were unreachable.
// Execute is never used by the reconciler.
type fakeBackend struct {
	mu      sync.Mutex
	schemas map[string]domain.Schema
	failErr error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{schemas: make(map[string]domain.Schema)}
}

func (f *fakeBackend) addTable(ref string, schema domain.Schema) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.schemas[ref] = schema
}

func (f *fakeBackend) dropTable(ref string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.schemas, ref)
}

func (f *fakeBackend) failReflect(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failErr = err
}

func (f *fakeBackend) Reflect(_ context.Context, physicalRef string) (domain.Schema, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return nil, f.failErr
	}
	if schema, ok := f.schemas[physicalRef]; ok {
		return schema, nil
	}
	return nil, &domain.NotFoundError{
		Kind:    domain.KindReflectionFailure,
		Message: fmt.Sprintf("physical object %q not found", physicalRef),
	}
}

func (f *fakeBackend) Execute(context.Context, string, time.Duration, int, int) (*domain.QueryResult, error) {
	return nil, errors.New("not supported")
}

func newTestReconciler(t *testing.T) (*Reconciler, *catalogue.Store, *fakeBackend) {
	t.Helper()
	writeDB, readDB := db.OpenTestPair(t)
	store, err := catalogue.NewStore(context.Background(), writeDB, readDB)
	require.NoError(t, err)

	backend := newFakeBackend()
	return New(store, backend, nil, 2), store, backend
}

func salesDocument() *Document {
	return &Document{
		Defaults: Defaults{Namespace: "gold", AccessLevel: domain.AccessInternal},
		Datasets: []DatasetSpec{
			{DatasetID: "datasets.gold.sales", PhysicalRef: "sales_fact", Title: "Daily sales"},
		},
	}
}

var salesSchema = domain.Schema{
	{Name: "id", Type: "int"},
	{Name: "amount", Type: "numeric"},
}

func TestRun_CreatesEntryWithReflectedSchema(t *testing.T) {
	rec, store, backend := newTestReconciler(t)
	backend.addTable("sales_fact", salesSchema)

	plan, err := rec.Run(context.Background(), salesDocument(), Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"datasets.gold.sales"}, plan.CreatedIDs())
	assert.Empty(t, plan.ToUpdate)
	assert.Empty(t, plan.ToDelete)

	entry, ok := store.Snapshot().Get("datasets.gold.sales")
	require.True(t, ok)
	assert.Equal(t, domain.StatusActive, entry.Status)
	assert.True(t, entry.SchemaSnapshot.Equal(salesSchema))
}

func TestRun_SecondRunIsEmpty(t *testing.T) {
	rec, _, backend := newTestReconciler(t)
	backend.addTable("sales_fact", salesSchema)

	_, err := rec.Run(context.Background(), salesDocument(), Options{})
	require.NoError(t, err)

	second, err := rec.Run(context.Background(), salesDocument(), Options{})
	require.NoError(t, err)
	assert.True(t, second.Empty(), "second run against unchanged state must plan nothing")
}

func TestRun_UpdatesOnMetadataChange(t *testing.T) {
	rec, store, backend := newTestReconciler(t)
	backend.addTable("sales_fact", salesSchema)

	_, err := rec.Run(context.Background(), salesDocument(), Options{})
	require.NoError(t, err)

	doc := salesDocument()
	doc.Datasets[0].Title = "Renamed"
	plan, err := rec.Run(context.Background(), doc, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"datasets.gold.sales"}, plan.UpdatedIDs())
	entry, _ := store.Snapshot().Get("datasets.gold.sales")
	assert.Equal(t, "Renamed", entry.Title)
}

func TestRun_CasingDriftConverges(t *testing.T) {
	rec, store, backend := newTestReconciler(t)
	backend.addTable("sales_fact", salesSchema)

	_, err := rec.Run(context.Background(), salesDocument(), Options{})
	require.NoError(t, err)

	// The same dataset reappears with different casing and a new title. One
	// run applies the update; the next plans nothing.
	doc := salesDocument()
	doc.Datasets[0].DatasetID = "Datasets.Gold.Sales"
	doc.Datasets[0].Title = "Daily sales v2"
	plan, err := rec.Run(context.Background(), doc, Options{})
	require.NoError(t, err)
	assert.Empty(t, plan.CreatedIDs())
	assert.Equal(t, []string{"Datasets.Gold.Sales"}, plan.UpdatedIDs())

	entry, ok := store.Snapshot().Get("datasets.gold.sales")
	require.True(t, ok)
	assert.Equal(t, "Daily sales v2", entry.Title)

	third, err := rec.Run(context.Background(), doc, Options{})
	require.NoError(t, err)
	assert.True(t, third.Empty(), "a converged catalogue must re-plan nothing")
}

func TestRun_UpdatesOnSchemaDrift(t *testing.T) {
	rec, store, backend := newTestReconciler(t)
	backend.addTable("sales_fact", salesSchema)

	_, err := rec.Run(context.Background(), salesDocument(), Options{})
	require.NoError(t, err)

	wider := append(domain.Schema{}, salesSchema...)
	wider = append(wider, domain.Column{Name: "region", Type: "text"})
	backend.addTable("sales_fact", wider)

	plan, err := rec.Run(context.Background(), salesDocument(), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"datasets.gold.sales"}, plan.UpdatedIDs())

	entry, _ := store.Snapshot().Get("datasets.gold.sales")
	assert.Len(t, entry.SchemaSnapshot, 3)
}

func TestRun_DeletesRemovedDataset(t *testing.T) {
	rec, store, backend := newTestReconciler(t)
	backend.addTable("sales_fact", salesSchema)
	backend.addTable("returns_fact", salesSchema)

	doc := salesDocument()
	doc.Datasets = append(doc.Datasets, DatasetSpec{
		DatasetID: "datasets.gold.returns", PhysicalRef: "returns_fact",
	})
	_, err := rec.Run(context.Background(), doc, Options{})
	require.NoError(t, err)

	plan, err := rec.Run(context.Background(), salesDocument(), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"datasets.gold.returns"}, plan.ToDelete)

	_, ok := store.Snapshot().Get("datasets.gold.returns")
	assert.False(t, ok)
}

func TestRun_FilterExcludedEntriesAreNotDeleted(t *testing.T) {
	rec, store, backend := newTestReconciler(t)
	backend.addTable("sales_fact", salesSchema)
	backend.addTable("events_raw", salesSchema)

	doc := salesDocument()
	doc.Datasets = append(doc.Datasets, DatasetSpec{
		DatasetID: "datasets.raw.events", PhysicalRef: "events_raw", Namespace: "raw",
	})
	_, err := rec.Run(context.Background(), doc, Options{})
	require.NoError(t, err)

	// Reconcile only the gold namespace: raw entries are out of scope, not
	// deletions.
	filters, err := ParseFilters([]string{"+datasets.gold.*"})
	require.NoError(t, err)
	plan, err := rec.Run(context.Background(), salesDocument(), Options{Filters: filters})
	require.NoError(t, err)

	assert.Empty(t, plan.ToDelete)
	_, ok := store.Snapshot().Get("datasets.raw.events")
	assert.True(t, ok)
}

func TestRun_ReflectionFailureIsIsolated(t *testing.T) {
	rec, store, backend := newTestReconciler(t)
	backend.addTable("sales_fact", salesSchema)

	doc := salesDocument()
	doc.Datasets = append(doc.Datasets, DatasetSpec{
		DatasetID: "datasets.gold.ghost", PhysicalRef: "missing_table",
	})
	plan, err := rec.Run(context.Background(), doc, Options{})
	require.NoError(t, err)

	require.Len(t, plan.Invalid, 1)
	assert.Equal(t, "datasets.gold.ghost", plan.Invalid[0].DatasetID)
	assert.Contains(t, plan.Invalid[0].Reason, "reflection failed")

	// The valid dataset still landed.
	_, ok := store.Snapshot().Get("datasets.gold.sales")
	assert.True(t, ok)
	_, ok = store.Snapshot().Get("datasets.gold.ghost")
	assert.False(t, ok)
}

func TestRun_CleanupSweepDeletesDeadReference(t *testing.T) {
	rec, store, backend := newTestReconciler(t)
	backend.addTable("sales_fact", salesSchema)

	_, err := rec.Run(context.Background(), salesDocument(), Options{})
	require.NoError(t, err)

	// Table dropped externally; next run's document does not mention the
	// dataset at all, and the sweep still removes it.
	backend.dropTable("sales_fact")
	empty := &Document{Filters: []string{"+datasets.other.*"}}
	plan, err := rec.Run(context.Background(), empty, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"datasets.gold.sales"}, plan.ToDelete)
	_, ok := store.Snapshot().Get("datasets.gold.sales")
	assert.False(t, ok)
}

func TestRun_CleanupSweepKeepsEntryWhenBackendUnreachable(t *testing.T) {
	rec, store, backend := newTestReconciler(t)
	backend.addTable("sales_fact", salesSchema)

	_, err := rec.Run(context.Background(), salesDocument(), Options{})
	require.NoError(t, err)

	// The table still exists; the warehouse is just down. A transient outage
	// must not drain the catalogue.
	backend.failReflect(errors.New("dial warehouse: connection refused"))
	empty := &Document{Filters: []string{"+datasets.other.*"}}
	plan, err := rec.Run(context.Background(), empty, Options{})
	require.NoError(t, err)

	assert.Empty(t, plan.ToDelete)
	_, ok := store.Snapshot().Get("datasets.gold.sales")
	assert.True(t, ok)
}

func TestRun_CleanupSweepKeepsEntryOnCancelledContext(t *testing.T) {
	rec, store, backend := newTestReconciler(t)
	backend.addTable("sales_fact", salesSchema)

	_, err := rec.Run(context.Background(), salesDocument(), Options{})
	require.NoError(t, err)

	backend.failReflect(context.Canceled)
	empty := &Document{Filters: []string{"+datasets.other.*"}}
	plan, err := rec.Run(context.Background(), empty, Options{})
	require.NoError(t, err)

	assert.Empty(t, plan.ToDelete)
	_, ok := store.Snapshot().Get("datasets.gold.sales")
	assert.True(t, ok)
}

func TestRun_PinShieldsCleanupSweep(t *testing.T) {
	rec, store, backend := newTestReconciler(t)
	backend.addTable("sales_fact", salesSchema)

	_, err := rec.Run(context.Background(), salesDocument(), Options{})
	require.NoError(t, err)

	backend.dropTable("sales_fact")
	empty := &Document{Filters: []string{"+datasets.other.*"}}
	plan, err := rec.Run(context.Background(), empty, Options{
		Pins: []string{"datasets.gold.sales"},
	})
	require.NoError(t, err)

	assert.Empty(t, plan.ToDelete)
	_, ok := store.Snapshot().Get("datasets.gold.sales")
	assert.True(t, ok)
}

func TestRun_DryRunLeavesStoreUntouched(t *testing.T) {
	rec, store, backend := newTestReconciler(t)
	backend.addTable("sales_fact", salesSchema)

	plan, err := rec.Run(context.Background(), salesDocument(), Options{DryRun: true})
	require.NoError(t, err)

	assert.True(t, plan.DryRun)
	assert.Len(t, plan.ToCreate, 1)
	assert.Equal(t, 0, store.Snapshot().Len())
}

func TestRun_RenameEndsUpPresent(t *testing.T) {
	rec, store, backend := newTestReconciler(t)
	backend.addTable("sales_fact", salesSchema)
	backend.addTable("sales_fact_v2", salesSchema)

	_, err := rec.Run(context.Background(), salesDocument(), Options{})
	require.NoError(t, err)

	// Same dataset id, new physical reference: planned as an update, and the
	// entry is present afterwards.
	doc := salesDocument()
	doc.Datasets[0].PhysicalRef = "sales_fact_v2"
	plan, err := rec.Run(context.Background(), doc, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"datasets.gold.sales"}, plan.UpdatedIDs())
	entry, ok := store.Snapshot().Get("datasets.gold.sales")
	require.True(t, ok)
	assert.Equal(t, "sales_fact_v2", entry.PhysicalRef)
}
