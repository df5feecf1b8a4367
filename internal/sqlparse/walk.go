package sqlparse

import "strings"

// Walk traverses the AST in depth-first order, calling fn for every node.
// If fn returns false the node's children are skipped.
func Walk(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	switch n := node.(type) {
	case *SelectStmt:
		if n.With != nil {
			for _, cte := range n.With.CTEs {
				Walk(cte.Select, fn)
			}
		}
		walkBody(n.Body, fn)
	case *TableName, *OtherStmt, *ColumnRef, *Literal:
	case *SubqueryRef:
		Walk(n.Select, fn)
	case *BinaryExpr:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *UnaryExpr:
		Walk(n.Expr, fn)
	case *FuncCall:
		for _, arg := range n.Args {
			Walk(arg, fn)
		}
	case *InExpr:
		Walk(n.Expr, fn)
		for _, item := range n.List {
			Walk(item, fn)
		}
		if n.Subquery != nil {
			Walk(n.Subquery, fn)
		}
	case *BetweenExpr:
		Walk(n.Expr, fn)
		Walk(n.Low, fn)
		Walk(n.High, fn)
	case *IsNullExpr:
		Walk(n.Expr, fn)
	case *ExistsExpr:
		Walk(n.Subquery, fn)
	case *SubqueryExpr:
		Walk(n.Select, fn)
	case *ParenExpr:
		Walk(n.Expr, fn)
	case *CaseExpr:
		Walk(n.Operand, fn)
		for _, when := range n.Whens {
			Walk(when.When, fn)
			Walk(when.Then, fn)
		}
		Walk(n.Else, fn)
	case *CastExpr:
		Walk(n.Expr, fn)
	}
}

func walkBody(body *SelectBody, fn func(Node) bool) {
	for body != nil {
		walkCore(body.Left, fn)
		body = body.Right
	}
}

func walkCore(core *SelectCore, fn func(Node) bool) {
	if core == nil {
		return
	}
	for _, item := range core.Columns {
		Walk(item.Expr, fn)
	}
	if core.From != nil {
		walkTableRef(core.From.Source, fn)
		for _, join := range core.From.Joins {
			walkTableRef(join.Right, fn)
			Walk(join.Condition, fn)
		}
	}
	Walk(core.Where, fn)
	for _, expr := range core.GroupBy {
		Walk(expr, fn)
	}
	Walk(core.Having, fn)
	for _, item := range core.OrderBy {
		Walk(item.Expr, fn)
	}
	Walk(core.Limit, fn)
	Walk(core.Offset, fn)
}

func walkTableRef(ref TableRef, fn func(Node) bool) {
	if ref == nil || !fn(ref) {
		return
	}
	if sub, ok := ref.(*SubqueryRef); ok {
		Walk(sub.Select, fn)
	}
}

// CollectTables returns the dotted names of every table referenced by the
// statement, in order of first appearance, deduplicated. Names defined by a
// CTE in the statement are not reported; they resolve locally.
func CollectTables(stmt *SelectStmt) []string {
	cteNames := map[string]bool{}
	Walk(stmt, func(n Node) bool {
		if s, ok := n.(*SelectStmt); ok && s.With != nil {
			for _, cte := range s.With.CTEs {
				cteNames[strings.ToLower(cte.Name)] = true
			}
		}
		return true
	})

	var tables []string
	seen := map[string]bool{}
	Walk(stmt, func(n Node) bool {
		if t, ok := n.(*TableName); ok {
			name := t.Name()
			key := strings.ToLower(name)
			if !cteNames[key] && !seen[key] {
				seen[key] = true
				tables = append(tables, name)
			}
		}
		return true
	})
	return tables
}

// CollectFunctions returns the lowercased names of every function called in
// the statement, in order of first appearance, deduplicated.
func CollectFunctions(stmt *SelectStmt) []string {
	var funcs []string
	seen := map[string]bool{}
	Walk(stmt, func(n Node) bool {
		if f, ok := n.(*FuncCall); ok && !seen[f.Name] {
			seen[f.Name] = true
			funcs = append(funcs, f.Name)
		}
		return true
	})
	return funcs
}

// JoinSummary reports join counts for governance checks.
type JoinSummary struct {
	Total         int // all joins, including comma joins
	Unconstrained int // joins with no equality predicate between columns
}

// Joins inspects every SELECT core in the statement. A join counts as
// constrained when its ON clause contains a column-to-column equality, when
// it has a USING list, or, for comma and CROSS joins, when the enclosing
// WHERE clause equates columns.
func Joins(stmt *SelectStmt) JoinSummary {
	var sum JoinSummary
	joinsInStmt(stmt, &sum)
	return sum
}

func joinsInStmt(stmt *SelectStmt, sum *JoinSummary) {
	if stmt == nil {
		return
	}
	if stmt.With != nil {
		for _, cte := range stmt.With.CTEs {
			joinsInStmt(cte.Select, sum)
		}
	}
	for body := stmt.Body; body != nil; body = body.Right {
		joinsInCore(body.Left, sum)
	}
}

func joinsInCore(core *SelectCore, sum *JoinSummary) {
	if core == nil {
		return
	}
	if core.From != nil {
		joinsInTableRef(core.From.Source, sum)
		for _, join := range core.From.Joins {
			sum.Total++
			constrained := len(join.Using) > 0 || hasColumnEquality(join.Condition)
			if !constrained && (join.Type == JoinComma || join.Type == JoinCross) {
				constrained = hasColumnEquality(core.Where)
			}
			if !constrained {
				sum.Unconstrained++
			}
			joinsInTableRef(join.Right, sum)
		}
	}
	// nested SELECTs in expression position
	for _, exprs := range [][]Expr{{core.Where, core.Having, core.Limit, core.Offset}, core.GroupBy} {
		for _, expr := range exprs {
			joinsInExpr(expr, sum)
		}
	}
	for _, item := range core.Columns {
		joinsInExpr(item.Expr, sum)
	}
	for _, item := range core.OrderBy {
		joinsInExpr(item.Expr, sum)
	}
}

func joinsInTableRef(ref TableRef, sum *JoinSummary) {
	if sub, ok := ref.(*SubqueryRef); ok {
		joinsInStmt(sub.Select, sum)
	}
}

func joinsInExpr(expr Expr, sum *JoinSummary) {
	Walk(expr, func(n Node) bool {
		switch s := n.(type) {
		case *SubqueryExpr:
			joinsInStmt(s.Select, sum)
			return false
		case *ExistsExpr:
			joinsInStmt(s.Subquery, sum)
			return false
		case *InExpr:
			if s.Subquery != nil {
				joinsInStmt(s.Subquery, sum)
			}
		}
		return true
	})
}

// hasColumnEquality reports whether the expression contains an equality
// comparison between two column references.
func hasColumnEquality(expr Expr) bool {
	found := false
	Walk(expr, func(n Node) bool {
		if found {
			return false
		}
		if bin, ok := n.(*BinaryExpr); ok && bin.Op == TOKEN_EQ {
			if isColumnOperand(bin.Left) && isColumnOperand(bin.Right) {
				found = true
				return false
			}
		}
		return true
	})
	return found
}

func isColumnOperand(expr Expr) bool {
	for {
		switch e := expr.(type) {
		case *ColumnRef:
			return true
		case *ParenExpr:
			expr = e.Expr
		default:
			return false
		}
	}
}

// RewriteTables substitutes physical names for logical table names in place.
// The mapping keys are lowercased dotted logical names; values are dotted
// physical names, split back into parts. A reference with no alias keeps its
// original trailing part as an alias so column qualifiers stay valid.
func RewriteTables(stmt *SelectStmt, mapping map[string]string) {
	Walk(stmt, func(n Node) bool {
		t, ok := n.(*TableName)
		if !ok {
			return true
		}
		physical, ok := mapping[strings.ToLower(t.Name())]
		if !ok {
			return true
		}
		if t.Alias == "" {
			t.Alias = t.Parts[len(t.Parts)-1]
		}
		t.Parts = strings.Split(physical, ".")
		return true
	})
}

// RowConstraint is an equality predicate forced onto every reference to a
// table: Column = 'Value'.
type RowConstraint struct {
	Column string
	Value  string
}

// ConstrainTables injects row constraints into the statement in place. Keys
// are lowercased dotted logical names. Each matching table reference gets the
// predicate ANDed into the WHERE clause of its own SELECT core, qualified by
// the reference's alias so it holds through joins and subqueries. Names bound
// by a CTE resolve locally and are never constrained.
func ConstrainTables(stmt *SelectStmt, constraints map[string]RowConstraint) {
	if len(constraints) == 0 {
		return
	}
	cteNames := map[string]bool{}
	Walk(stmt, func(n Node) bool {
		if s, ok := n.(*SelectStmt); ok && s.With != nil {
			for _, cte := range s.With.CTEs {
				cteNames[strings.ToLower(cte.Name)] = true
			}
		}
		return true
	})
	constrainStmt(stmt, constraints, cteNames)
}

func constrainStmt(stmt *SelectStmt, constraints map[string]RowConstraint, cteNames map[string]bool) {
	if stmt == nil {
		return
	}
	if stmt.With != nil {
		for _, cte := range stmt.With.CTEs {
			constrainStmt(cte.Select, constraints, cteNames)
		}
	}
	for body := stmt.Body; body != nil; body = body.Right {
		constrainCore(body.Left, constraints, cteNames)
	}
}

func constrainCore(core *SelectCore, constraints map[string]RowConstraint, cteNames map[string]bool) {
	if core == nil {
		return
	}
	for _, item := range core.Columns {
		constrainExpr(item.Expr, constraints, cteNames)
	}
	for _, expr := range []Expr{core.Where, core.Having, core.Limit, core.Offset} {
		constrainExpr(expr, constraints, cteNames)
	}
	for _, expr := range core.GroupBy {
		constrainExpr(expr, constraints, cteNames)
	}
	for _, item := range core.OrderBy {
		constrainExpr(item.Expr, constraints, cteNames)
	}
	if core.From == nil {
		return
	}
	constrainTableRef(core, core.From.Source, constraints, cteNames)
	for _, join := range core.From.Joins {
		constrainExpr(join.Condition, constraints, cteNames)
		constrainTableRef(core, join.Right, constraints, cteNames)
	}
}

func constrainTableRef(core *SelectCore, ref TableRef, constraints map[string]RowConstraint, cteNames map[string]bool) {
	switch r := ref.(type) {
	case *TableName:
		key := strings.ToLower(r.Name())
		if cteNames[key] {
			return
		}
		rc, ok := constraints[key]
		if !ok {
			return
		}
		qualifier := r.Alias
		if qualifier == "" {
			qualifier = r.Parts[len(r.Parts)-1]
		}
		pred := &BinaryExpr{
			Left:  &ColumnRef{Table: qualifier, Column: rc.Column},
			Op:    TOKEN_EQ,
			Right: &Literal{Type: LiteralString, Value: rc.Value},
		}
		if core.Where == nil {
			core.Where = pred
		} else {
			core.Where = &BinaryExpr{
				Left:  &ParenExpr{Expr: core.Where},
				Op:    TOKEN_AND,
				Right: pred,
			}
		}
	case *SubqueryRef:
		constrainStmt(r.Select, constraints, cteNames)
	}
}

// constrainExpr descends into subqueries in expression position so their
// cores get constrained too.
func constrainExpr(expr Expr, constraints map[string]RowConstraint, cteNames map[string]bool) {
	Walk(expr, func(n Node) bool {
		switch s := n.(type) {
		case *SubqueryExpr:
			constrainStmt(s.Select, constraints, cteNames)
			return false
		case *ExistsExpr:
			constrainStmt(s.Subquery, constraints, cteNames)
			return false
		case *InExpr:
			if s.Subquery != nil {
				constrainStmt(s.Subquery, constraints, cteNames)
			}
		}
		return true
	})
}
