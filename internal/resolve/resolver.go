// Package resolve maps logical dataset identifiers in a validated statement
// to physical storage references using the current catalogue snapshot.
//
// This is the only place a client-visible name becomes a physical reference.
// Lookup is exact-match on dataset id; resolution either succeeds for every
// referenced table or fails for the whole statement.
package resolve

import (
	"strings"

	"datagate/internal/catalogue"
	"datagate/internal/domain"
	"datagate/internal/sqlparse"
	"datagate/internal/validate"
)

// Resolved is a fully rewritten statement plus the exact set of catalogue
// entries consulted. Authorization evaluates this set and nothing else, so no
// table can slip in or out between resolution and the policy decision.
type Resolved struct {
	SQL     string                 // physical SQL ready for the storage backend
	Tables  []string               // logical ids as the client wrote them
	Entries []*domain.DatasetEntry // ordered, deduplicated, one per table
	Limit   int
	Offset  int
}

// Resolve rewrites every table reference in the statement to its physical
// reference. Any identifier without an active catalogue entry fails the whole
// statement with an unresolved_dataset error naming that identifier; no
// partially rewritten statement is ever observable.
//
// Datasets tagged with a user filter column additionally get an equality
// predicate on the caller's subject injected into the rewritten SQL, so such
// datasets only ever return the caller's own rows. Administrators bypass the
// filter; everyone else, including anonymous callers, is constrained.
func Resolve(stmt *validate.Statement, snap *catalogue.Snapshot, identity *domain.Identity) (*Resolved, error) {
	mapping := make(map[string]string, len(stmt.Tables))
	entries := make([]*domain.DatasetEntry, 0, len(stmt.Tables))

	subject := ""
	filtered := true
	if identity != nil {
		subject = identity.Subject
		filtered = !identity.BypassesUserFilter()
	}

	var constraints map[string]sqlparse.RowConstraint
	for _, table := range stmt.Tables {
		entry, ok := snap.Get(table)
		if !ok || entry.Status != domain.StatusActive {
			return nil, domain.ErrUnresolved(table)
		}
		mapping[strings.ToLower(table)] = entry.PhysicalRef
		entries = append(entries, entry)

		if col := entry.UserFilterColumn(); col != "" && filtered {
			if constraints == nil {
				constraints = make(map[string]sqlparse.RowConstraint)
			}
			constraints[strings.ToLower(table)] = sqlparse.RowConstraint{Column: col, Value: subject}
		}
	}

	return &Resolved{
		SQL:     stmt.RewriteSQL(mapping, constraints),
		Tables:  stmt.Tables,
		Entries: entries,
		Limit:   stmt.Limit,
		Offset:  stmt.Offset,
	}, nil
}
