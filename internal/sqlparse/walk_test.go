package sqlparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, sql string) *SelectStmt {
	t.Helper()
	stmt, err := Parse(sql)
	require.NoError(t, err)
	sel, ok := stmt.(*SelectStmt)
	require.True(t, ok, "expected SELECT, got %T", stmt)
	return sel
}

// === CollectTables ===

func TestCollectTables_Simple(t *testing.T) {
	sel := mustParse(t, "SELECT * FROM datasets.sales")
	assert.Equal(t, []string{"datasets.sales"}, CollectTables(sel))
}

func TestCollectTables_JoinsAndSubqueries(t *testing.T) {
	sel := mustParse(t, `SELECT * FROM a
		JOIN b ON a.id = b.id
		WHERE a.id IN (SELECT id FROM c)`)
	assert.Equal(t, []string{"a", "b", "c"}, CollectTables(sel))
}

func TestCollectTables_Dedup(t *testing.T) {
	sel := mustParse(t, "SELECT * FROM t JOIN t AS other ON t.id = other.id")
	assert.Equal(t, []string{"t"}, CollectTables(sel))
}

func TestCollectTables_SkipsCTENames(t *testing.T) {
	sel := mustParse(t, "WITH recent AS (SELECT * FROM sales) SELECT * FROM recent")
	assert.Equal(t, []string{"sales"}, CollectTables(sel))
}

func TestCollectTables_SetOperations(t *testing.T) {
	sel := mustParse(t, "SELECT id FROM a UNION SELECT id FROM b")
	assert.Equal(t, []string{"a", "b"}, CollectTables(sel))
}

// === CollectFunctions ===

func TestCollectFunctions(t *testing.T) {
	sel := mustParse(t, "SELECT COALESCE(a, 0), lower(b), coalesce(c, 1) FROM t")
	assert.Equal(t, []string{"coalesce", "lower"}, CollectFunctions(sel))
}

func TestCollectFunctions_Nested(t *testing.T) {
	sel := mustParse(t, "SELECT round(abs(x), 2) FROM t WHERE length(name) > 3")
	assert.Equal(t, []string{"round", "abs", "length"}, CollectFunctions(sel))
}

// === Joins ===

func TestJoins_OnEquality(t *testing.T) {
	sel := mustParse(t, "SELECT * FROM a JOIN b ON a.id = b.id")
	sum := Joins(sel)
	assert.Equal(t, 1, sum.Total)
	assert.Equal(t, 0, sum.Unconstrained)
}

func TestJoins_Using(t *testing.T) {
	sel := mustParse(t, "SELECT * FROM a JOIN b USING (id)")
	sum := Joins(sel)
	assert.Equal(t, 0, sum.Unconstrained)
}

func TestJoins_OnWithoutEquality(t *testing.T) {
	sel := mustParse(t, "SELECT * FROM a JOIN b ON a.x > b.y")
	sum := Joins(sel)
	assert.Equal(t, 1, sum.Unconstrained)
}

func TestJoins_CrossJoin(t *testing.T) {
	sel := mustParse(t, "SELECT * FROM a CROSS JOIN b")
	sum := Joins(sel)
	assert.Equal(t, 1, sum.Unconstrained)
}

func TestJoins_CommaWithWhereEquality(t *testing.T) {
	sel := mustParse(t, "SELECT * FROM a, b WHERE a.id = b.id")
	sum := Joins(sel)
	assert.Equal(t, 1, sum.Total)
	assert.Equal(t, 0, sum.Unconstrained)
}

func TestJoins_CommaWithoutPredicate(t *testing.T) {
	sel := mustParse(t, "SELECT * FROM a, b")
	assert.Equal(t, 1, Joins(sel).Unconstrained)
}

func TestJoins_LiteralEqualityDoesNotCount(t *testing.T) {
	sel := mustParse(t, "SELECT * FROM a, b WHERE a.id = 1")
	assert.Equal(t, 1, Joins(sel).Unconstrained)
}

func TestJoins_InsideSubquery(t *testing.T) {
	sel := mustParse(t, "SELECT * FROM (SELECT * FROM a CROSS JOIN b) AS sub")
	assert.Equal(t, 1, Joins(sel).Unconstrained)
}

// === RewriteTables ===

func TestRewriteTables_Simple(t *testing.T) {
	sel := mustParse(t, "SELECT * FROM datasets.sales")
	RewriteTables(sel, map[string]string{"datasets.sales": "warehouse.gold.sales_v3"})

	table := sel.Body.Left.From.Source.(*TableName)
	assert.Equal(t, []string{"warehouse", "gold", "sales_v3"}, table.Parts)
	assert.Equal(t, "sales", table.Alias)
}

func TestRewriteTables_KeepsExplicitAlias(t *testing.T) {
	sel := mustParse(t, "SELECT s.id FROM datasets.sales AS s")
	RewriteTables(sel, map[string]string{"datasets.sales": "warehouse.sales"})

	table := sel.Body.Left.From.Source.(*TableName)
	assert.Equal(t, "s", table.Alias)
}

func TestRewriteTables_CaseInsensitiveLookup(t *testing.T) {
	sel := mustParse(t, "SELECT * FROM Datasets.Sales")
	RewriteTables(sel, map[string]string{"datasets.sales": "warehouse.sales"})

	table := sel.Body.Left.From.Source.(*TableName)
	assert.Equal(t, []string{"warehouse", "sales"}, table.Parts)
}

func TestRewriteTables_UnmappedUntouched(t *testing.T) {
	sel := mustParse(t, "SELECT * FROM other")
	RewriteTables(sel, map[string]string{"datasets.sales": "warehouse.sales"})

	table := sel.Body.Left.From.Source.(*TableName)
	assert.Equal(t, []string{"other"}, table.Parts)
}

// === ConstrainTables ===

func TestConstrainTables_AddsWhere(t *testing.T) {
	sel := mustParse(t, "SELECT * FROM datasets.meters")
	ConstrainTables(sel, map[string]RowConstraint{
		"datasets.meters": {Column: "owner_sub", Value: "alice"},
	})
	assert.Equal(t, `SELECT * FROM "datasets"."meters" WHERE "meters"."owner_sub" = 'alice'`, Format(sel))
}

func TestConstrainTables_ExtendsExistingWhere(t *testing.T) {
	sel := mustParse(t, "SELECT * FROM datasets.meters WHERE v > 1 OR v < 0")
	ConstrainTables(sel, map[string]RowConstraint{
		"datasets.meters": {Column: "owner_sub", Value: "alice"},
	})
	assert.Contains(t, Format(sel), `WHERE ("v" > 1 OR "v" < 0) AND "meters"."owner_sub" = 'alice'`)
}

func TestConstrainTables_UsesExplicitAlias(t *testing.T) {
	sel := mustParse(t, "SELECT m.id FROM datasets.meters AS m")
	ConstrainTables(sel, map[string]RowConstraint{
		"datasets.meters": {Column: "owner_sub", Value: "alice"},
	})
	assert.Contains(t, Format(sel), `"m"."owner_sub" = 'alice'`)
}

func TestConstrainTables_ConstrainsEachJoinSide(t *testing.T) {
	sel := mustParse(t, "SELECT * FROM datasets.meters AS a JOIN datasets.meters AS b ON a.id = b.id")
	ConstrainTables(sel, map[string]RowConstraint{
		"datasets.meters": {Column: "owner_sub", Value: "alice"},
	})
	got := Format(sel)
	assert.Contains(t, got, `"a"."owner_sub" = 'alice'`)
	assert.Contains(t, got, `"b"."owner_sub" = 'alice'`)
}

func TestConstrainTables_ReachesSubqueryCore(t *testing.T) {
	sel := mustParse(t, "SELECT * FROM sites WHERE id IN (SELECT site_id FROM datasets.meters)")
	ConstrainTables(sel, map[string]RowConstraint{
		"datasets.meters": {Column: "owner_sub", Value: "alice"},
	})
	assert.Contains(t, Format(sel), `FROM "datasets"."meters" WHERE "meters"."owner_sub" = 'alice'`)
}

func TestConstrainTables_SkipsCTENames(t *testing.T) {
	sel := mustParse(t, "WITH meters AS (SELECT 1) SELECT * FROM meters")
	ConstrainTables(sel, map[string]RowConstraint{
		"meters": {Column: "owner_sub", Value: "alice"},
	})
	assert.NotContains(t, Format(sel), "owner_sub")
}
