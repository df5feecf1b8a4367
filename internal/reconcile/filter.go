package reconcile

import (
	"fmt"
	"path"
	"strings"
)

// Filter is one +pattern (include) or -pattern (exclude) glob over dataset
// ids. Patterns use path.Match syntax; dots in dataset ids are ordinary
// characters, so "datasets.gold.*" covers everything under that prefix.
type Filter struct {
	Exclude bool
	Pattern string
}

// Filters is an ordered filter list. Excludes always win: a dataset matched
// by any exclude pattern is out, no matter what include patterns say or in
// what order they appear.
type Filters []Filter

// ParseFilters parses "+pattern"/"-pattern" strings. A pattern with no sign
// counts as an include.
func ParseFilters(patterns []string) (Filters, error) {
	filters := make(Filters, 0, len(patterns))
	for _, raw := range patterns {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil, fmt.Errorf("empty filter pattern")
		}

		f := Filter{Pattern: raw}
		switch raw[0] {
		case '-':
			f.Exclude = true
			f.Pattern = raw[1:]
		case '+':
			f.Pattern = raw[1:]
		}
		if f.Pattern == "" {
			return nil, fmt.Errorf("filter %q has no pattern", raw)
		}
		if _, err := path.Match(f.Pattern, ""); err != nil {
			return nil, fmt.Errorf("filter %q: %w", raw, err)
		}
		filters = append(filters, f)
	}
	return filters, nil
}

// Selected reports whether the dataset id passes the filter list. With no
// include patterns at all, everything not excluded is selected; with at
// least one include pattern, only matching ids are.
func (fs Filters) Selected(datasetID string) bool {
	id := strings.ToLower(datasetID)
	hasInclude := false
	included := false

	for _, f := range fs {
		match, _ := path.Match(strings.ToLower(f.Pattern), id)
		if f.Exclude {
			if match {
				return false
			}
			continue
		}
		hasInclude = true
		if match {
			included = true
		}
	}
	return !hasInclude || included
}
