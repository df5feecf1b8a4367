package reconcile

import (
	"sort"

	"datagate/internal/domain"
)

// InvalidEntry is a desired dataset whose physical reference failed
// reflection. It is neither created nor updated in this run; the failure is
// isolated to this entry and never aborts the rest of the plan.
type InvalidEntry struct {
	DatasetID string `json:"dataset_id"`
	Reason    string `json:"reason"`
}

// Plan is the full outcome of one reconciliation pass. With DryRun set it is
// purely informational; otherwise it reflects what was committed.
type Plan struct {
	ToCreate []*domain.DatasetEntry
	ToUpdate []*domain.DatasetEntry
	ToDelete []string
	Invalid  []InvalidEntry
	DryRun   bool
}

// Summary holds counts per operation for logging and CLI output.
type Summary struct {
	Creates int `json:"creates"`
	Updates int `json:"updates"`
	Deletes int `json:"deletes"`
	Invalid int `json:"invalid"`
}

// Summary returns operation counts.
func (p *Plan) Summary() Summary {
	return Summary{
		Creates: len(p.ToCreate),
		Updates: len(p.ToUpdate),
		Deletes: len(p.ToDelete),
		Invalid: len(p.Invalid),
	}
}

// Empty reports whether the plan would change nothing. Invalid entries do
// not count as changes; they are warnings attached to the plan.
func (p *Plan) Empty() bool {
	return len(p.ToCreate) == 0 && len(p.ToUpdate) == 0 && len(p.ToDelete) == 0
}

// CreatedIDs lists the dataset ids planned for creation, sorted.
func (p *Plan) CreatedIDs() []string { return entryIDs(p.ToCreate) }

// UpdatedIDs lists the dataset ids planned for update, sorted.
func (p *Plan) UpdatedIDs() []string { return entryIDs(p.ToUpdate) }

func entryIDs(entries []*domain.DatasetEntry) []string {
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.DatasetID)
	}
	sort.Strings(ids)
	return ids
}

// sortPlan orders every section by dataset id so plans are deterministic.
func (p *Plan) sort() {
	sort.Slice(p.ToCreate, func(i, j int) bool { return p.ToCreate[i].DatasetID < p.ToCreate[j].DatasetID })
	sort.Slice(p.ToUpdate, func(i, j int) bool { return p.ToUpdate[i].DatasetID < p.ToUpdate[j].DatasetID })
	sort.Strings(p.ToDelete)
	sort.Slice(p.Invalid, func(i, j int) bool { return p.Invalid[i].DatasetID < p.Invalid[j].DatasetID })
}
