// Package validate enforces the accepted SQL subset for the query gateway.
//
// Validation is a pure function of the statement text, the pagination hints,
// and the configured limits: identical input always produces the identical
// accept/reject outcome. Rules apply in a fixed order and fail closed at the
// first violation.
package validate

import (
	"errors"
	"strings"

	"datagate/internal/domain"
	"datagate/internal/sqlparse"
)

// Limits configures the validator's pagination and join bounds.
type Limits struct {
	DefaultLimit int // substituted when the client sends no limit
	MaxLimit     int // limits above this are clamped, never rejected
	MaxOffset    int // offsets above this are rejected
	MaxJoins     int // joins above this are rejected
}

// DefaultLimits returns the standard gateway bounds.
func DefaultLimits() Limits {
	return Limits{
		DefaultLimit: 100,
		MaxLimit:     10000,
		MaxOffset:    100000,
		MaxJoins:     3,
	}
}

// defaultFunctions is the fixed allowlist of side-effect-free functions.
// Nothing here can touch the filesystem, the network, or catalog metadata.
var defaultFunctions = []string{
	"coalesce", "greatest", "least",
	"lower", "upper", "length", "trim",
	"abs", "round", "floor", "ceil",
	"count", "sum", "avg", "min", "max",
}

// JoinPolicy answers whether a referenced dataset explicitly permits joins
// with no equality predicate. Unknown datasets must answer false.
type JoinPolicy interface {
	AllowsUnconstrainedJoin(datasetID string) bool
}

// JoinPolicyFunc adapts a function to the JoinPolicy interface.
type JoinPolicyFunc func(datasetID string) bool

// AllowsUnconstrainedJoin calls f.
func (f JoinPolicyFunc) AllowsUnconstrainedJoin(datasetID string) bool { return f(datasetID) }

// DenyUnconstrainedJoins is the fail-closed default policy.
var DenyUnconstrainedJoins = JoinPolicyFunc(func(string) bool { return false })

// Validator checks raw SQL against the accepted subset.
type Validator struct {
	limits    Limits
	functions map[string]bool
}

// New creates a Validator with the given limits and the default function
// allowlist plus any extra operator-configured function names.
func New(limits Limits, extraFunctions ...string) *Validator {
	fns := make(map[string]bool, len(defaultFunctions)+len(extraFunctions))
	for _, name := range defaultFunctions {
		fns[name] = true
	}
	for _, name := range extraFunctions {
		fns[strings.ToLower(name)] = true
	}
	return &Validator{limits: limits, functions: fns}
}

// Statement is the validated form of one accepted SELECT. It is built per
// request and never reused across requests.
type Statement struct {
	SQL       string   // original text as submitted
	Tables    []string // referenced table identifiers, as written, deduplicated
	Functions []string // invoked function names, lowercased
	Columns   []string // projected column names or aliases; "*" for stars
	Limit     int      // effective limit after defaulting and clamping
	Offset    int      // effective offset

	ast *sqlparse.SelectStmt
}

// RewriteSQL substitutes physical references for logical table names, injects
// any caller row constraints, and renders the result. Mapping and constraint
// keys are lowercased logical names. The rewrite works on a fresh parse of
// the original text, so the statement itself is never mutated and repeated
// calls produce the same output.
func (s *Statement) RewriteSQL(mapping map[string]string, constraints map[string]sqlparse.RowConstraint) string {
	sel := s.ast
	if parsed, err := sqlparse.Parse(s.SQL); err == nil {
		if fresh, ok := parsed.(*sqlparse.SelectStmt); ok {
			sel = fresh
		}
	}
	sqlparse.ConstrainTables(sel, constraints)
	sqlparse.RewriteTables(sel, mapping)
	return sqlparse.Format(sel)
}

// Validate applies the subset rules in order and returns the validated
// statement, or a *domain.ValidationError naming the first violation.
// limit <= 0 means the client sent no limit; offset < 0 is treated as zero.
func (v *Validator) Validate(sql string, limit, offset int, joins JoinPolicy) (*Statement, error) {
	parsed, err := sqlparse.Parse(sql)
	if err != nil {
		if errors.Is(err, sqlparse.ErrMultiStatement) {
			return nil, domain.ErrValidation(domain.KindMultiStatement, "only one statement is allowed per request")
		}
		// A parse failure with DDL or DML keywords anywhere in the input is a
		// forbidden statement kind, not malformed SQL.
		if kind, ok := sqlparse.EmbeddedStatementKind(sql); ok {
			return nil, domain.ErrValidation(domain.KindForbiddenStatement,
				"statement kind %s is not allowed; only SELECT is accepted", kind)
		}
		return nil, domain.ErrValidation(domain.KindInvalidSQL, "SQL could not be parsed: %v", err)
	}

	sel, ok := parsed.(*sqlparse.SelectStmt)
	if !ok {
		other := parsed.(*sqlparse.OtherStmt)
		return nil, domain.ErrValidation(domain.KindForbiddenStatement,
			"statement kind %s is not allowed; only SELECT is accepted", other.Kind)
	}

	for _, fn := range sqlparse.CollectFunctions(sel) {
		if !v.functions[fn] {
			return nil, domain.ErrValidation(domain.KindForbiddenFunction,
				"function %q is not in the allowlist", fn)
		}
	}

	tables := sqlparse.CollectTables(sel)
	if err := v.checkJoins(sel, tables, joins); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = v.limits.DefaultLimit
	}
	if limit > v.limits.MaxLimit {
		limit = v.limits.MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	if offset > v.limits.MaxOffset {
		return nil, domain.ErrValidation(domain.KindExcessiveOffset,
			"offset %d exceeds the maximum of %d; use keyset pagination for deep scans", offset, v.limits.MaxOffset)
	}

	return &Statement{
		SQL:       sql,
		Tables:    tables,
		Functions: sqlparse.CollectFunctions(sel),
		Columns:   projectedColumns(sel),
		Limit:     limit,
		Offset:    offset,
		ast:       sel,
	}, nil
}

// checkJoins enforces the join count bound and the equality-predicate rule.
// Every referenced dataset must waive the rule for a violation to pass.
func (v *Validator) checkJoins(sel *sqlparse.SelectStmt, tables []string, joins JoinPolicy) error {
	if joins == nil {
		joins = DenyUnconstrainedJoins
	}
	sum := sqlparse.Joins(sel)
	if sum.Total <= v.limits.MaxJoins && sum.Unconstrained == 0 {
		return nil
	}

	waived := len(tables) > 0
	for _, table := range tables {
		if !joins.AllowsUnconstrainedJoin(table) {
			waived = false
			break
		}
	}
	if waived {
		return nil
	}

	if sum.Total > v.limits.MaxJoins {
		return domain.ErrValidation(domain.KindForbiddenJoin,
			"query joins %d tables, more than the maximum of %d", sum.Total, v.limits.MaxJoins)
	}
	return domain.ErrValidation(domain.KindForbiddenJoin,
		"join without an equality predicate between its tables")
}

// projectedColumns lists what the SELECT projects, using aliases when given.
func projectedColumns(sel *sqlparse.SelectStmt) []string {
	var cols []string
	for _, item := range sel.Body.Left.Columns {
		switch {
		case item.Star:
			cols = append(cols, "*")
		case item.TableStar != "":
			cols = append(cols, item.TableStar+".*")
		case item.Alias != "":
			cols = append(cols, item.Alias)
		default:
			if ref, ok := item.Expr.(*sqlparse.ColumnRef); ok {
				cols = append(cols, ref.Column)
			} else {
				cols = append(cols, sqlparse.FormatExpr(item.Expr))
			}
		}
	}
	return cols
}
