package sqlparse

import (
	"fmt"
	"strings"
)

// Format renders a SELECT statement back to SQL text. Identifiers are always
// double-quoted so that rewritten physical names survive keywords and dots,
// and the output is deterministic for a given AST.
func Format(stmt *SelectStmt) string {
	var b strings.Builder
	formatSelectStmt(&b, stmt)
	return b.String()
}

// FormatExpr renders a single expression to SQL text.
func FormatExpr(expr Expr) string {
	var b strings.Builder
	formatExpr(&b, expr)
	return b.String()
}

func formatSelectStmt(b *strings.Builder, stmt *SelectStmt) {
	if stmt.With != nil {
		b.WriteString("WITH ")
		if stmt.With.Recursive {
			b.WriteString("RECURSIVE ")
		}
		for i, cte := range stmt.With.CTEs {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(quoteIdent(cte.Name))
			b.WriteString(" AS (")
			formatSelectStmt(b, cte.Select)
			b.WriteString(")")
		}
		b.WriteString(" ")
	}
	formatSelectBody(b, stmt.Body)
}

func formatSelectBody(b *strings.Builder, body *SelectBody) {
	formatSelectCore(b, body.Left)
	if body.Op != SetOpNone && body.Right != nil {
		b.WriteString(" ")
		b.WriteString(string(body.Op))
		b.WriteString(" ")
		formatSelectBody(b, body.Right)
	}
}

func formatSelectCore(b *strings.Builder, core *SelectCore) {
	b.WriteString("SELECT ")
	if core.Distinct {
		b.WriteString("DISTINCT ")
	}
	for i, item := range core.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		formatSelectItem(b, item)
	}
	if core.From != nil {
		b.WriteString(" FROM ")
		formatTableRef(b, core.From.Source)
		for _, join := range core.From.Joins {
			formatJoin(b, join)
		}
	}
	if core.Where != nil {
		b.WriteString(" WHERE ")
		formatExpr(b, core.Where)
	}
	if len(core.GroupBy) > 0 {
		b.WriteString(" GROUP BY ")
		for i, expr := range core.GroupBy {
			if i > 0 {
				b.WriteString(", ")
			}
			formatExpr(b, expr)
		}
	}
	if core.Having != nil {
		b.WriteString(" HAVING ")
		formatExpr(b, core.Having)
	}
	if len(core.OrderBy) > 0 {
		b.WriteString(" ORDER BY ")
		for i, item := range core.OrderBy {
			if i > 0 {
				b.WriteString(", ")
			}
			formatExpr(b, item.Expr)
			if item.Desc {
				b.WriteString(" DESC")
			}
		}
	}
	if core.Limit != nil {
		b.WriteString(" LIMIT ")
		formatExpr(b, core.Limit)
	}
	if core.Offset != nil {
		b.WriteString(" OFFSET ")
		formatExpr(b, core.Offset)
	}
}

func formatSelectItem(b *strings.Builder, item SelectItem) {
	switch {
	case item.Star:
		b.WriteString("*")
	case item.TableStar != "":
		b.WriteString(quoteIdent(item.TableStar))
		b.WriteString(".*")
	default:
		formatExpr(b, item.Expr)
		if item.Alias != "" {
			b.WriteString(" AS ")
			b.WriteString(quoteIdent(item.Alias))
		}
	}
}

func formatTableRef(b *strings.Builder, ref TableRef) {
	switch r := ref.(type) {
	case *TableName:
		for i, part := range r.Parts {
			if i > 0 {
				b.WriteString(".")
			}
			b.WriteString(quoteIdent(part))
		}
		if r.Alias != "" {
			b.WriteString(" AS ")
			b.WriteString(quoteIdent(r.Alias))
		}
	case *SubqueryRef:
		b.WriteString("(")
		formatSelectStmt(b, r.Select)
		b.WriteString(")")
		if r.Alias != "" {
			b.WriteString(" AS ")
			b.WriteString(quoteIdent(r.Alias))
		}
	}
}

func formatJoin(b *strings.Builder, join *Join) {
	switch join.Type {
	case JoinComma:
		b.WriteString(", ")
	case JoinCross:
		b.WriteString(" CROSS JOIN ")
	case JoinInner:
		b.WriteString(" INNER JOIN ")
	default:
		b.WriteString(" ")
		b.WriteString(string(join.Type))
		b.WriteString(" JOIN ")
	}
	formatTableRef(b, join.Right)
	if join.Condition != nil {
		b.WriteString(" ON ")
		formatExpr(b, join.Condition)
	} else if len(join.Using) > 0 {
		b.WriteString(" USING (")
		for i, col := range join.Using {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(quoteIdent(col))
		}
		b.WriteString(")")
	}
}

func formatExpr(b *strings.Builder, expr Expr) {
	switch e := expr.(type) {
	case *ColumnRef:
		if e.Table != "" {
			for _, part := range strings.Split(e.Table, ".") {
				b.WriteString(quoteIdent(part))
				b.WriteString(".")
			}
		}
		b.WriteString(quoteIdent(e.Column))
	case *Literal:
		formatLiteral(b, e)
	case *BinaryExpr:
		formatExpr(b, e.Left)
		b.WriteString(" ")
		if e.Not {
			b.WriteString("NOT ")
		}
		b.WriteString(e.Op.String())
		b.WriteString(" ")
		formatExpr(b, e.Right)
	case *UnaryExpr:
		if e.Op == TOKEN_NOT {
			b.WriteString("NOT ")
		} else {
			b.WriteString(e.Op.String())
		}
		formatExpr(b, e.Expr)
	case *FuncCall:
		b.WriteString(e.Name)
		b.WriteString("(")
		if e.Star {
			b.WriteString("*")
		} else {
			if e.Distinct {
				b.WriteString("DISTINCT ")
			}
			for i, arg := range e.Args {
				if i > 0 {
					b.WriteString(", ")
				}
				formatExpr(b, arg)
			}
		}
		b.WriteString(")")
	case *InExpr:
		formatExpr(b, e.Expr)
		if e.Not {
			b.WriteString(" NOT")
		}
		b.WriteString(" IN (")
		if e.Subquery != nil {
			formatSelectStmt(b, e.Subquery)
		} else {
			for i, item := range e.List {
				if i > 0 {
					b.WriteString(", ")
				}
				formatExpr(b, item)
			}
		}
		b.WriteString(")")
	case *BetweenExpr:
		formatExpr(b, e.Expr)
		if e.Not {
			b.WriteString(" NOT")
		}
		b.WriteString(" BETWEEN ")
		formatExpr(b, e.Low)
		b.WriteString(" AND ")
		formatExpr(b, e.High)
	case *IsNullExpr:
		formatExpr(b, e.Expr)
		if e.Not {
			b.WriteString(" IS NOT NULL")
		} else {
			b.WriteString(" IS NULL")
		}
	case *ExistsExpr:
		if e.Not {
			b.WriteString("NOT ")
		}
		b.WriteString("EXISTS (")
		formatSelectStmt(b, e.Subquery)
		b.WriteString(")")
	case *SubqueryExpr:
		b.WriteString("(")
		formatSelectStmt(b, e.Select)
		b.WriteString(")")
	case *ParenExpr:
		b.WriteString("(")
		formatExpr(b, e.Expr)
		b.WriteString(")")
	case *CaseExpr:
		b.WriteString("CASE")
		if e.Operand != nil {
			b.WriteString(" ")
			formatExpr(b, e.Operand)
		}
		for _, when := range e.Whens {
			b.WriteString(" WHEN ")
			formatExpr(b, when.When)
			b.WriteString(" THEN ")
			formatExpr(b, when.Then)
		}
		if e.Else != nil {
			b.WriteString(" ELSE ")
			formatExpr(b, e.Else)
		}
		b.WriteString(" END")
	case *CastExpr:
		b.WriteString("CAST(")
		formatExpr(b, e.Expr)
		b.WriteString(" AS ")
		b.WriteString(e.Type)
		b.WriteString(")")
	default:
		b.WriteString(fmt.Sprintf("/* unknown expr %T */", expr))
	}
}

func formatLiteral(b *strings.Builder, lit *Literal) {
	switch lit.Type {
	case LiteralString:
		b.WriteString("'")
		b.WriteString(strings.ReplaceAll(lit.Value, "'", "''"))
		b.WriteString("'")
	case LiteralBool:
		b.WriteString(strings.ToUpper(lit.Value))
	case LiteralNull:
		b.WriteString("NULL")
	default:
		b.WriteString(lit.Value)
	}
}

// quoteIdent double-quotes an identifier, escaping embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
