package domain

import "time"

// Access levels declare the exposure tier of a dataset and drive the
// authorization requirements enforced by the policy oracle.
const (
	AccessOpen       = "open"
	AccessInternal   = "internal"
	AccessRestricted = "restricted"
)

// Entry statuses.
const (
	StatusActive  = "active"
	StatusInvalid = "invalid"
	StatusStale   = "stale"
)

// Column is one reflected column of a physical table or view.
type Column struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// Schema is the ordered reflected column list of a physical object.
type Schema []Column

// Equal reports whether two schemas have the same columns in the same order.
func (s Schema) Equal(other Schema) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// DatasetEntry is one governed dataset: a logical, namespace-qualified name
// mapped to exactly one physical reference, plus the access metadata the
// policy oracle decides on. The access attributes are identity facts set at
// import time and passed verbatim into authorization, never derived from
// client input.
type DatasetEntry struct {
	DatasetID   string            `json:"dataset_id"`
	Namespace   string            `json:"namespace"`
	AccessLevel string            `json:"access_level"`
	Title       string            `json:"title,omitempty"`
	Description string            `json:"description,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`

	Classification string `json:"classification,omitempty"`
	Owner          string `json:"owner,omitempty"`
	Retention      string `json:"retention,omitempty"`

	// PhysicalRef is the storage-backend locator (e.g. schema.table).
	// It is opaque to clients and is never accepted from client input.
	PhysicalRef string `json:"-"`

	SchemaSnapshot Schema `json:"schema,omitempty"`
	Status         string `json:"status"`

	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// AllowsUnconstrainedJoin reports whether the dataset carries the policy tag
// permitting joins without an equality predicate.
func (e *DatasetEntry) AllowsUnconstrainedJoin() bool {
	return e.Tags["allow_cartesian"] == "true"
}

// UserFilterColumn returns the column that scopes query results to the
// calling subject, or "" when the dataset has no user filter tag.
func (e *DatasetEntry) UserFilterColumn() string {
	return e.Tags["user_filter_column"]
}

// MetadataEqual reports whether two entries carry the same governance metadata
// and physical reference. Schema and timestamps are compared separately.
func (e *DatasetEntry) MetadataEqual(other *DatasetEntry) bool {
	if e.Namespace != other.Namespace ||
		e.AccessLevel != other.AccessLevel ||
		e.Title != other.Title ||
		e.Description != other.Description ||
		e.Classification != other.Classification ||
		e.Owner != other.Owner ||
		e.Retention != other.Retention ||
		e.PhysicalRef != other.PhysicalRef {
		return false
	}
	if len(e.Tags) != len(other.Tags) {
		return false
	}
	for k, v := range e.Tags {
		if other.Tags[k] != v {
			return false
		}
	}
	return true
}
