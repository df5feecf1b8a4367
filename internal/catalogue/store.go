package catalogue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"datagate/internal/domain"
)

// Store persists dataset entries and publishes an immutable snapshot for the
// query path. Writes go through the single-connection write pool; reads on
// the hot path never touch the database at all.
type Store struct {
	writeDB  *sql.DB
	readDB   *sql.DB
	snapshot atomic.Pointer[Snapshot]
}

// NewStore creates a Store and loads the initial snapshot from the metastore.
func NewStore(ctx context.Context, writeDB, readDB *sql.DB) (*Store, error) {
	s := &Store{writeDB: writeDB, readDB: readDB}
	if err := s.Reload(ctx); err != nil {
		return nil, fmt.Errorf("load catalogue: %w", err)
	}
	return s, nil
}

// Snapshot returns the current published snapshot.
func (s *Store) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

// Reload rebuilds the snapshot from the metastore and publishes it.
func (s *Store) Reload(ctx context.Context) error {
	entries, err := s.loadAll(ctx)
	if err != nil {
		return err
	}
	s.snapshot.Store(NewSnapshot(entries))
	return nil
}

const datasetColumns = `dataset_id, namespace, access_level, title, description, tags,
	classification, owner, retention, physical_ref, schema_snapshot, status,
	created_at, updated_at`

func (s *Store) loadAll(ctx context.Context) ([]*domain.DatasetEntry, error) {
	rows, err := s.readDB.QueryContext(ctx,
		`SELECT `+datasetColumns+` FROM datasets ORDER BY dataset_id`)
	if err != nil {
		return nil, fmt.Errorf("query datasets: %w", err)
	}
	defer rows.Close()

	var entries []*domain.DatasetEntry
	for rows.Next() {
		entry, err := scanDataset(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Changes is one transactional batch of catalogue mutations. The reconciler
// builds it from a plan; everything commits or nothing does, and the new
// snapshot is published only after the commit succeeds.
type Changes struct {
	Create []*domain.DatasetEntry
	Update []*domain.DatasetEntry
	Delete []string // dataset ids
}

// Empty reports whether the batch contains no mutations.
func (c *Changes) Empty() bool {
	return len(c.Create) == 0 && len(c.Update) == 0 && len(c.Delete) == 0
}

// Apply commits the batch in one transaction and publishes the new snapshot.
// Creates and updates are applied before deletes.
func (s *Store) Apply(ctx context.Context, changes *Changes) error {
	if changes.Empty() {
		return nil
	}

	tx, err := s.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin catalogue tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, entry := range changes.Create {
		if err := insertDataset(ctx, tx, entry, now); err != nil {
			return err
		}
	}
	for _, entry := range changes.Update {
		if err := updateDataset(ctx, tx, entry, now); err != nil {
			return err
		}
	}
	for _, id := range changes.Delete {
		if _, err := tx.ExecContext(ctx, `DELETE FROM datasets WHERE dataset_id = ? COLLATE NOCASE`, id); err != nil {
			return fmt.Errorf("delete dataset %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit catalogue tx: %w", err)
	}
	return s.Reload(ctx)
}

// Upsert creates or replaces a single entry and publishes the new snapshot.
func (s *Store) Upsert(ctx context.Context, entry *domain.DatasetEntry) error {
	if _, ok := s.Snapshot().Get(entry.DatasetID); ok {
		return s.Apply(ctx, &Changes{Update: []*domain.DatasetEntry{entry}})
	}
	return s.Apply(ctx, &Changes{Create: []*domain.DatasetEntry{entry}})
}

// Delete removes a single entry and publishes the new snapshot.
func (s *Store) Delete(ctx context.Context, datasetID string) error {
	return s.Apply(ctx, &Changes{Delete: []string{datasetID}})
}

func insertDataset(ctx context.Context, tx *sql.Tx, entry *domain.DatasetEntry, now time.Time) error {
	tags, schema, err := encodeDataset(entry)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO datasets (`+datasetColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.DatasetID, entry.Namespace, entry.AccessLevel, entry.Title, entry.Description, tags,
		entry.Classification, entry.Owner, entry.Retention, entry.PhysicalRef, schema, entry.Status,
		now, now)
	if err != nil {
		return fmt.Errorf("insert dataset %s: %w", entry.DatasetID, err)
	}
	return nil
}

func updateDataset(ctx context.Context, tx *sql.Tx, entry *domain.DatasetEntry, now time.Time) error {
	tags, schema, err := encodeDataset(entry)
	if err != nil {
		return err
	}
	// Dataset ids match case-insensitively everywhere else, so the row lookup
	// has to collate the same way or a casing drift in the desired state
	// would silently update nothing.
	res, err := tx.ExecContext(ctx, `
		UPDATE datasets SET namespace = ?, access_level = ?, title = ?, description = ?, tags = ?,
			classification = ?, owner = ?, retention = ?, physical_ref = ?,
			schema_snapshot = ?, status = ?, updated_at = ?
		WHERE dataset_id = ? COLLATE NOCASE`,
		entry.Namespace, entry.AccessLevel, entry.Title, entry.Description, tags,
		entry.Classification, entry.Owner, entry.Retention, entry.PhysicalRef,
		schema, entry.Status, now, entry.DatasetID)
	if err != nil {
		return fmt.Errorf("update dataset %s: %w", entry.DatasetID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update dataset %s: %w", entry.DatasetID, err)
	}
	if n == 0 {
		return fmt.Errorf("update dataset %s: no stored row matched", entry.DatasetID)
	}
	return nil
}

func encodeDataset(entry *domain.DatasetEntry) (tags, schema []byte, err error) {
	if entry.Tags == nil {
		tags = []byte("{}")
	} else if tags, err = json.Marshal(entry.Tags); err != nil {
		return nil, nil, fmt.Errorf("marshal tags for %s: %w", entry.DatasetID, err)
	}
	if entry.SchemaSnapshot == nil {
		schema = []byte("[]")
	} else if schema, err = json.Marshal(entry.SchemaSnapshot); err != nil {
		return nil, nil, fmt.Errorf("marshal schema for %s: %w", entry.DatasetID, err)
	}
	return tags, schema, nil
}

func scanDataset(rows *sql.Rows) (*domain.DatasetEntry, error) {
	var entry domain.DatasetEntry
	var tags, schema []byte
	err := rows.Scan(
		&entry.DatasetID, &entry.Namespace, &entry.AccessLevel, &entry.Title, &entry.Description, &tags,
		&entry.Classification, &entry.Owner, &entry.Retention, &entry.PhysicalRef, &schema, &entry.Status,
		&entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan dataset: %w", err)
	}
	if err := json.Unmarshal(tags, &entry.Tags); err != nil {
		return nil, fmt.Errorf("decode tags for %s: %w", entry.DatasetID, err)
	}
	if err := json.Unmarshal(schema, &entry.SchemaSnapshot); err != nil {
		return nil, fmt.Errorf("decode schema for %s: %w", entry.DatasetID, err)
	}
	return &entry, nil
}
