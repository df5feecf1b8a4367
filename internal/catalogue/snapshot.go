// Package catalogue persists dataset entries in the SQLite metastore and
// serves them to the query path through an immutable in-memory snapshot.
package catalogue

import (
	"sort"
	"strings"

	"datagate/internal/domain"
)

// Snapshot is an immutable view of the catalogue. Readers obtain one from
// Store.Snapshot and use it for the whole request; it never changes under
// them. A new snapshot is built and published atomically on every commit.
type Snapshot struct {
	entries map[string]*domain.DatasetEntry // keyed by lowercased dataset_id
	ids     []string                        // sorted original ids
}

// NewSnapshot builds a snapshot from the given entries.
func NewSnapshot(entries []*domain.DatasetEntry) *Snapshot {
	snap := &Snapshot{entries: make(map[string]*domain.DatasetEntry, len(entries))}
	for _, entry := range entries {
		snap.entries[strings.ToLower(entry.DatasetID)] = entry
		snap.ids = append(snap.ids, entry.DatasetID)
	}
	sort.Strings(snap.ids)
	return snap
}

// Get looks up an entry by exact dataset id, case-insensitively.
// No prefix or substring matching: an id either matches or it does not.
func (s *Snapshot) Get(datasetID string) (*domain.DatasetEntry, bool) {
	entry, ok := s.entries[strings.ToLower(datasetID)]
	return entry, ok
}

// List returns all entries ordered by dataset id.
func (s *Snapshot) List() []*domain.DatasetEntry {
	out := make([]*domain.DatasetEntry, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, s.entries[strings.ToLower(id)])
	}
	return out
}

// Len returns the number of entries.
func (s *Snapshot) Len() int { return len(s.entries) }

// AllowsUnconstrainedJoin reports whether the dataset's tags waive the
// equality-predicate join rule. Unknown or inactive datasets never do.
func (s *Snapshot) AllowsUnconstrainedJoin(datasetID string) bool {
	entry, ok := s.Get(datasetID)
	return ok && entry.Status == domain.StatusActive && entry.AllowsUnconstrainedJoin()
}
