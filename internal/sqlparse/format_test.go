package sqlparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat_QuotesIdentifiers(t *testing.T) {
	sel := mustParse(t, "SELECT id FROM sales")
	assert.Equal(t, `SELECT "id" FROM "sales"`, Format(sel))
}

func TestFormat_Star(t *testing.T) {
	sel := mustParse(t, "SELECT * FROM t")
	assert.Equal(t, `SELECT * FROM "t"`, Format(sel))
}

func TestFormat_RewrittenTable(t *testing.T) {
	sel := mustParse(t, "SELECT * FROM datasets.sales WHERE amount > 100")
	RewriteTables(sel, map[string]string{"datasets.sales": "warehouse.gold.sales_v3"})

	got := Format(sel)
	assert.Equal(t, `SELECT * FROM "warehouse"."gold"."sales_v3" AS "sales" WHERE "amount" > 100`, got)
}

func TestFormat_FullClause(t *testing.T) {
	sel := mustParse(t, `SELECT region, sum(amount) AS total FROM sales
		WHERE year = 2025 GROUP BY region HAVING sum(amount) > 10
		ORDER BY total DESC LIMIT 5 OFFSET 2`)

	got := Format(sel)
	assert.Equal(t, `SELECT "region", sum("amount") AS "total" FROM "sales" WHERE "year" = 2025 GROUP BY "region" HAVING sum("amount") > 10 ORDER BY "total" DESC LIMIT 5 OFFSET 2`, got)
}

func TestFormat_JoinOn(t *testing.T) {
	sel := mustParse(t, "SELECT * FROM a LEFT JOIN b ON a.id = b.id")
	got := Format(sel)
	assert.Equal(t, `SELECT * FROM "a" LEFT JOIN "b" ON "a"."id" = "b"."id"`, got)
}

func TestFormat_StringLiteralEscaping(t *testing.T) {
	sel := mustParse(t, "SELECT * FROM t WHERE name = 'o''brien'")
	got := Format(sel)
	assert.Equal(t, `SELECT * FROM "t" WHERE "name" = 'o''brien'`, got)
}

func TestFormat_CTE(t *testing.T) {
	sel := mustParse(t, "WITH r AS (SELECT id FROM sales) SELECT * FROM r")
	got := Format(sel)
	assert.Equal(t, `WITH "r" AS (SELECT "id" FROM "sales") SELECT * FROM "r"`, got)
}

func TestFormat_SetOperation(t *testing.T) {
	sel := mustParse(t, "SELECT id FROM a UNION ALL SELECT id FROM b")
	got := Format(sel)
	assert.Equal(t, `SELECT "id" FROM "a" UNION ALL SELECT "id" FROM "b"`, got)
}

func TestFormat_InAndBetween(t *testing.T) {
	sel := mustParse(t, "SELECT * FROM t WHERE region IN ('eu', 'us') AND x BETWEEN 1 AND 5")
	got := Format(sel)
	assert.Equal(t, `SELECT * FROM "t" WHERE "region" IN ('eu', 'us') AND "x" BETWEEN 1 AND 5`, got)
}

func TestFormat_CaseAndCast(t *testing.T) {
	sel := mustParse(t, "SELECT CASE WHEN x IS NULL THEN 0 ELSE x END, CAST(y AS varchar) FROM t")
	got := Format(sel)
	assert.Equal(t, `SELECT CASE WHEN "x" IS NULL THEN 0 ELSE "x" END, CAST("y" AS varchar) FROM "t"`, got)
}

func TestFormat_Roundtrip(t *testing.T) {
	// Formatted output must itself parse to the same formatted output.
	inputs := []string{
		"SELECT * FROM a JOIN b USING (id)",
		"SELECT count(*) FROM t GROUP BY region",
		"SELECT * FROM t WHERE NOT (a = 1) OR b NOT LIKE 'x%'",
		"SELECT -x, 'lit', NULL, TRUE FROM t",
	}
	for _, sql := range inputs {
		first := Format(mustParse(t, sql))
		second := Format(mustParse(t, first))
		assert.Equal(t, first, second, "input: %s", sql)
	}
}
