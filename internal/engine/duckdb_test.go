package engine

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datagate/internal/domain"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE SCHEMA gold`)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE gold.sales (id INTEGER, region VARCHAR, amount DOUBLE)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO gold.sales VALUES
		(1, 'emea', 100.5), (2, 'emea', 20.0), (3, 'apac', 7.25),
		(4, 'amer', 300.0), (5, 'apac', 42.0)`)
	require.NoError(t, err)

	return New(db)
}

func TestReflectOrderedSchema(t *testing.T) {
	backend := newTestBackend(t)

	schema, err := backend.Reflect(context.Background(), "gold.sales")
	require.NoError(t, err)
	require.Len(t, schema, 3)
	assert.Equal(t, "id", schema[0].Name)
	assert.Equal(t, "region", schema[1].Name)
	assert.Equal(t, "amount", schema[2].Name)
	assert.Equal(t, "integer", schema[0].Type)
}

func TestReflectMissingObject(t *testing.T) {
	backend := newTestBackend(t)

	_, err := backend.Reflect(context.Background(), "gold.nope")
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Contains(t, nf.Message, "gold.nope")
}

func TestExecuteAppliesLimitAndOffset(t *testing.T) {
	backend := newTestBackend(t)

	res, err := backend.Execute(context.Background(),
		`SELECT id, region FROM gold.sales ORDER BY id`, time.Second, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "region"}, res.Columns)
	require.Equal(t, 2, res.Count)
	assert.EqualValues(t, 2, res.Items[0]["id"])
	assert.EqualValues(t, 3, res.Items[1]["id"])
	assert.Equal(t, 2, res.Limit)
	assert.Equal(t, 1, res.Offset)
}

func TestExecuteNeverExceedsLimit(t *testing.T) {
	backend := newTestBackend(t)

	res, err := backend.Execute(context.Background(),
		`SELECT * FROM gold.sales`, time.Second, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Count)
	assert.Len(t, res.Items, 3)
}

func TestExecuteBackendFailure(t *testing.T) {
	backend := newTestBackend(t)

	_, err := backend.Execute(context.Background(),
		`SELECT * FROM gold.missing`, time.Second, 10, 0)
	var execErr *domain.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.False(t, execErr.Timeout)
}

func TestExecuteTimeout(t *testing.T) {
	backend := newTestBackend(t)

	// A deadline already in the past forces the context path.
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := backend.Execute(ctx, `SELECT * FROM gold.sales`, 0, 10, 0)
	var execErr *domain.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.True(t, execErr.Timeout)
}
