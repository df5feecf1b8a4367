package catalogue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"datagate/internal/domain"
)

// AuditRecord is one query-path outcome. It carries the stable error kind and
// dataset ids only; raw SQL and backend error text stay out of the audit
// trail so literals never leak into it.
type AuditRecord struct {
	RequestID   string        `json:"request_id"`
	Subject     string        `json:"subject"`
	SubjectType string        `json:"subject_type"`
	Action      string        `json:"action"`
	Datasets    []string      `json:"datasets"`
	Outcome     string        `json:"outcome"` // "ok" or "error"
	ErrorKind   string        `json:"error_kind,omitempty"`
	Reason      string        `json:"reason,omitempty"`
	RowCount    int           `json:"row_count"`
	Duration    time.Duration `json:"-"`
	CreatedAt   time.Time     `json:"created_at,omitzero"`
}

// AuditRepo appends query outcomes to the metastore.
type AuditRepo struct {
	writeDB *sql.DB
	readDB  *sql.DB
}

// NewAuditRepo creates an AuditRepo over the metastore pools.
func NewAuditRepo(writeDB, readDB *sql.DB) *AuditRepo {
	return &AuditRepo{writeDB: writeDB, readDB: readDB}
}

// Record appends one audit record.
func (r *AuditRepo) Record(ctx context.Context, rec *AuditRecord) error {
	datasets, err := json.Marshal(append([]string{}, rec.Datasets...))
	if err != nil {
		return fmt.Errorf("marshal audit datasets: %w", err)
	}
	_, err = r.writeDB.ExecContext(ctx, `
		INSERT INTO query_audit (request_id, subject, subject_type, action, datasets,
			outcome, error_kind, reason, row_count, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID, rec.Subject, rec.SubjectType, rec.Action, datasets,
		rec.Outcome, rec.ErrorKind, rec.Reason, rec.RowCount, rec.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// Recent returns the newest records, newest first.
func (r *AuditRepo) Recent(ctx context.Context, limit int) ([]*AuditRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.readDB.QueryContext(ctx, `
		SELECT request_id, subject, subject_type, action, datasets,
			outcome, error_kind, reason, row_count, duration_ms, created_at
		FROM query_audit ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	var records []*AuditRecord
	for rows.Next() {
		var rec AuditRecord
		var datasets []byte
		var durationMS int64
		if err := rows.Scan(&rec.RequestID, &rec.Subject, &rec.SubjectType, &rec.Action, &datasets,
			&rec.Outcome, &rec.ErrorKind, &rec.Reason, &rec.RowCount, &durationMS, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		if err := json.Unmarshal(datasets, &rec.Datasets); err != nil {
			return nil, fmt.Errorf("decode audit datasets: %w", err)
		}
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// RecordOutcome builds and appends a record from a query-path result.
func (r *AuditRepo) RecordOutcome(ctx context.Context, requestID string, identity *domain.Identity, action string, datasets []string, rowCount int, duration time.Duration, queryErr error) error {
	rec := &AuditRecord{
		RequestID:   requestID,
		Subject:     identity.Subject,
		SubjectType: identity.Type,
		Action:      action,
		Datasets:    datasets,
		Outcome:     "ok",
		RowCount:    rowCount,
		Duration:    duration,
	}
	if queryErr != nil {
		rec.Outcome = "error"
		rec.ErrorKind, rec.Reason = domain.Classify(queryErr)
	}
	return r.Record(ctx, rec)
}
