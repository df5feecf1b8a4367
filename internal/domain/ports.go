package domain

import (
	"context"
	"time"
)

// StorageBackend is the narrow contract with physical storage. Only these two
// operations are ever issued; the gateway performs no DDL or DML.
type StorageBackend interface {
	// Reflect returns the ordered schema of the physical object, or a
	// NotFoundError when the object does not exist.
	Reflect(ctx context.Context, physicalRef string) (Schema, error)

	// Execute runs a read-only statement under the given timeout and bounds.
	// Implementations must never return more rows than limit.
	Execute(ctx context.Context, sql string, timeout time.Duration, limit, offset int) (*QueryResult, error)
}

// Decision is the policy oracle's answer plus its human-readable reason.
type Decision struct {
	Allow  bool   `json:"allow"`
	Reason string `json:"reason"`
}

// PolicyOracle issues allow/deny decisions. The gateway is the enforcement
// point only; any oracle failure is treated as deny by the caller.
type PolicyOracle interface {
	Decide(ctx context.Context, req *DecisionRequest) (Decision, error)
}

// DecisionRequest is the versioned document submitted to the policy oracle.
// The oracle's accepted shape is external and evolvable, so the schema version
// tags which adapter built the document.
type DecisionRequest struct {
	SchemaVersion string          `json:"schema_version"`
	Action        string          `json:"action"`
	Dataset       DecisionDataset `json:"dataset"`
	Identity      Identity        `json:"identity"`
	Request       DecisionQuery   `json:"request"`
}

// DecisionDataset carries the dataset attributes the policy decides on.
type DecisionDataset struct {
	DatasetID   string            `json:"dataset_id"`
	Namespace   string            `json:"namespace"`
	AccessLevel string            `json:"access_level"`
	Tags        map[string]string `json:"tags,omitempty"`
}

// DecisionQuery describes the statement being authorized.
type DecisionQuery struct {
	SQLTables []string `json:"sql_tables"`
	Limit     int      `json:"limit"`
	Offset    int      `json:"offset"`
}
