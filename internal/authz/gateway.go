// Package authz is the enforcement point between resolution and execution.
// It builds normalized decision requests, consults the policy oracle, and
// denies on anything other than an explicit allow.
package authz

import (
	"context"
	"log/slog"

	"datagate/internal/domain"
)

// DecisionSchemaVersion tags the decision-request shape this gateway builds,
// so the oracle side can evolve its input contract deliberately.
const DecisionSchemaVersion = "v1"

// Gateway submits decision requests to the policy oracle and enforces the
// outcome. It never invents an allow path: open-access shortcuts live in the
// oracle's policy, not here, so enforcement stays uniform.
type Gateway struct {
	oracle domain.PolicyOracle
	logger *slog.Logger
}

// New creates a Gateway over the given oracle.
func New(oracle domain.PolicyOracle, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{oracle: oracle, logger: logger}
}

// Query describes the statement being authorized, passed to the oracle.
type Query struct {
	Tables []string
	Limit  int
	Offset int
}

// Authorize checks the identity against every consulted dataset entry. All
// entries must be allowed; the first deny fails the whole request. Any oracle
// error or timeout is a deny, never an allow.
func (g *Gateway) Authorize(ctx context.Context, identity *domain.Identity, action string, entries []*domain.DatasetEntry, query Query) error {
	for _, entry := range entries {
		req := g.buildRequest(identity, action, entry, query)

		decision, err := g.oracle.Decide(ctx, req)
		if err != nil {
			g.logger.Warn("policy oracle unavailable, denying",
				"dataset_id", entry.DatasetID,
				"subject", identity.Subject,
				"error", err)
			return &domain.AccessDeniedError{Reason: "policy decision unavailable"}
		}
		if !decision.Allow {
			return &domain.AccessDeniedError{Reason: decision.Reason}
		}
	}
	return nil
}

// buildRequest assembles the versioned decision document. Dataset attributes
// come from the catalogue entry only; nothing here derives from client input.
func (g *Gateway) buildRequest(identity *domain.Identity, action string, entry *domain.DatasetEntry, query Query) *domain.DecisionRequest {
	return &domain.DecisionRequest{
		SchemaVersion: DecisionSchemaVersion,
		Action:        action,
		Dataset: domain.DecisionDataset{
			DatasetID:   entry.DatasetID,
			Namespace:   entry.Namespace,
			AccessLevel: entry.AccessLevel,
			Tags:        entry.Tags,
		},
		Identity: *identity,
		Request: domain.DecisionQuery{
			SQLTables: query.Tables,
			Limit:     query.Limit,
			Offset:    query.Offset,
		},
	}
}
