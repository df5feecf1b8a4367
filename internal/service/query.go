// Package service runs the query pipeline. Every statement passes through the
// same four stages in order: validation, resolution, authorization, execution.
// A failure at any stage stops the pipeline; later stages never observe the
// statement.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"datagate/internal/authz"
	"datagate/internal/catalogue"
	"datagate/internal/domain"
	"datagate/internal/resolve"
	"datagate/internal/validate"
)

// DefaultQueryTimeout bounds backend execution when no override is configured.
const DefaultQueryTimeout = 30 * time.Second

// QueryRequest is a client query. Limit zero means the configured default;
// limits above the maximum are clamped, not rejected.
type QueryRequest struct {
	SQL    string `json:"sql"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// QueryService owns the pipeline and records one audit row per request,
// success or failure. Audit rows carry logical dataset ids and error kinds,
// never raw SQL.
type QueryService struct {
	validator *validate.Validator
	store     *catalogue.Store
	gateway   *authz.Gateway
	backend   domain.StorageBackend
	audit     *catalogue.AuditRepo
	logger    *slog.Logger
	timeout   time.Duration
}

func NewQueryService(
	validator *validate.Validator,
	store *catalogue.Store,
	gateway *authz.Gateway,
	backend domain.StorageBackend,
	audit *catalogue.AuditRepo,
	logger *slog.Logger,
	timeout time.Duration,
) *QueryService {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return &QueryService{
		validator: validator,
		store:     store,
		gateway:   gateway,
		backend:   backend,
		audit:     audit,
		logger:    logger,
		timeout:   timeout,
	}
}

// Query runs one statement through the full pipeline. The catalogue snapshot
// is taken once up front so validation, resolution and authorization all see
// the same catalogue state.
func (s *QueryService) Query(ctx context.Context, identity *domain.Identity, requestID string, req QueryRequest) (*domain.QueryResult, error) {
	start := time.Now()
	snap := s.store.Snapshot()

	var datasets []string
	result, err := func() (*domain.QueryResult, error) {
		stmt, err := s.validator.Validate(req.SQL, req.Limit, req.Offset, snap)
		if err != nil {
			return nil, err
		}
		datasets = stmt.Tables

		resolved, err := resolve.Resolve(stmt, snap, identity)
		if err != nil {
			return nil, err
		}

		query := authz.Query{Tables: resolved.Tables, Limit: resolved.Limit, Offset: resolved.Offset}
		if err := s.gateway.Authorize(ctx, identity, domain.ActionQuery, resolved.Entries, query); err != nil {
			return nil, err
		}

		return s.backend.Execute(ctx, resolved.SQL, s.timeout, resolved.Limit, resolved.Offset)
	}()

	rowCount := 0
	if result != nil {
		rowCount = result.Count
	}
	s.record(ctx, requestID, identity, datasets, rowCount, time.Since(start), err)
	return result, err
}

// QueryDataset is the per-dataset convenience path. It runs the equivalent of
// SELECT * FROM <id> through the exact same pipeline, so the dataset still has
// to resolve and the identity still has to be authorized.
func (s *QueryService) QueryDataset(ctx context.Context, identity *domain.Identity, requestID, datasetID string, limit, offset int) (*domain.QueryResult, error) {
	req := QueryRequest{
		SQL:    fmt.Sprintf("SELECT * FROM %s", quoteDatasetID(datasetID)),
		Limit:  limit,
		Offset: offset,
	}
	return s.Query(ctx, identity, requestID, req)
}

func (s *QueryService) record(ctx context.Context, requestID string, identity *domain.Identity, datasets []string, rowCount int, duration time.Duration, queryErr error) {
	if s.audit == nil {
		return
	}
	err := s.audit.RecordOutcome(ctx, requestID, identity, domain.ActionQuery, datasets, rowCount, duration, queryErr)
	if err != nil {
		s.logger.Warn("audit record failed", "request_id", requestID, "error", err)
	}
}

// quoteDatasetID quotes each dotted part so ids survive the statement parser
// verbatim.
func quoteDatasetID(id string) string {
	parts := strings.Split(id, ".")
	for i, p := range parts {
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}
