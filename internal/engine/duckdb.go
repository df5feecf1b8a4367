// Package engine executes resolved read-only statements against DuckDB and
// reflects physical object schemas for the reconciler.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"datagate/internal/domain"
)

// Compile-time check.
var _ domain.StorageBackend = (*Backend)(nil)

// Backend is the DuckDB storage backend. It issues exactly two kinds of
// statement: information_schema reflection reads and wrapped SELECTs. No DDL
// or DML ever passes through it.
type Backend struct {
	db *sql.DB
}

// New creates a Backend over an open DuckDB connection pool.
func New(db *sql.DB) *Backend {
	return &Backend{db: db}
}

// Reflect returns the ordered column schema of the physical object, looked up
// via information_schema. physicalRef is either "table" or "schema.table".
func (b *Backend) Reflect(ctx context.Context, physicalRef string) (domain.Schema, error) {
	schemaName, tableName := splitRef(physicalRef)

	query := `SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_name = ?`
	args := []interface{}{tableName}
	if schemaName != "" {
		query += ` AND table_schema = ?`
		args = append(args, schemaName)
	}
	query += ` ORDER BY ordinal_position`

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("reflect %s: %w", physicalRef, err)
	}
	defer rows.Close()

	var schema domain.Schema
	for rows.Next() {
		var col domain.Column
		if err := rows.Scan(&col.Name, &col.Type); err != nil {
			return nil, fmt.Errorf("reflect %s: %w", physicalRef, err)
		}
		col.Type = strings.ToLower(col.Type)
		schema = append(schema, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reflect %s: %w", physicalRef, err)
	}
	if len(schema) == 0 {
		return nil, &domain.NotFoundError{
			Kind:    domain.KindReflectionFailure,
			Message: fmt.Sprintf("physical object %q not found", physicalRef),
		}
	}
	return schema, nil
}

// Execute runs the statement wrapped in a bounding subquery so the backend,
// not just the response shaping, enforces limit and offset. The rows returned
// never exceed limit even if the inner statement would produce more.
func (b *Backend) Execute(ctx context.Context, sqlText string, timeout time.Duration, limit, offset int) (*domain.QueryResult, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	wrapped := fmt.Sprintf("SELECT * FROM (%s) AS q LIMIT ? OFFSET ?", sqlText)
	rows, err := b.db.QueryContext(ctx, wrapped, limit, offset)
	if err != nil {
		return nil, execErr(ctx, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, execErr(ctx, err)
	}

	items := make([]domain.Row, 0, min(limit, 64))
	values := make([]interface{}, len(columns))
	ptrs := make([]interface{}, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, execErr(ctx, err)
		}
		row := make(domain.Row, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, execErr(ctx, err)
	}

	return &domain.QueryResult{
		Columns: columns,
		Items:   items,
		Limit:   limit,
		Offset:  offset,
		Count:   len(items),
	}, nil
}

// execErr distinguishes a deadline hit from a backend failure. The raw error
// is preserved for logging but never shown to clients.
func execErr(ctx context.Context, err error) error {
	timeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
	return &domain.ExecutionError{Timeout: timeout, Err: err}
}

// splitRef splits "schema.table" into its parts; a bare name has no schema.
func splitRef(physicalRef string) (schemaName, tableName string) {
	if i := strings.LastIndex(physicalRef, "."); i >= 0 {
		return physicalRef[:i], physicalRef[i+1:]
	}
	return "", physicalRef
}

// normalizeValue converts driver byte slices to strings so results marshal
// as text rather than base64.
func normalizeValue(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
