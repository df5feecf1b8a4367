package api

import (
	"io"
	"net/http"

	"datagate/internal/middleware"
	"datagate/internal/reconcile"
)

// Document bodies are small YAML files; a 1 MB cap is generous.
const maxDocumentSize = 1 << 20

type planResponse struct {
	DryRun  bool                     `json:"dry_run"`
	Summary reconcile.Summary        `json:"summary"`
	Creates []string                 `json:"creates"`
	Updates []string                 `json:"updates"`
	Deletes []string                 `json:"deletes"`
	Invalid []reconcile.InvalidEntry `json:"invalid,omitempty"`
}

// Reconcile handles POST /v1/admin/catalogue. The body is a desired-state
// YAML document; ?dry_run=true plans without committing, and repeated
// ?filter= and ?pin= params narrow the run the same way the CLI flags do.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.RequestIDFromContext(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentSize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code: http.StatusBadRequest, Message: "unreadable request body", RequestID: requestID,
		})
		return
	}
	doc, err := reconcile.Parse(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:      http.StatusBadRequest,
			Message:   err.Error(),
			RequestID: requestID,
		})
		return
	}

	params := r.URL.Query()
	filters, err := reconcile.ParseFilters(params["filter"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:      http.StatusBadRequest,
			Message:   err.Error(),
			RequestID: requestID,
		})
		return
	}
	opts := reconcile.Options{
		DryRun:  params.Get("dry_run") == "true",
		Filters: filters,
		Pins:    params["pin"],
	}

	plan, err := h.reconciler.Run(r.Context(), doc, opts)
	if err != nil {
		writeError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, planResponse{
		DryRun:  plan.DryRun,
		Summary: plan.Summary(),
		Creates: plan.CreatedIDs(),
		Updates: plan.UpdatedIDs(),
		Deletes: plan.ToDelete,
		Invalid: plan.Invalid,
	})
}

type auditList struct {
	Records []*auditRecord `json:"records"`
	Count   int            `json:"count"`
}

type auditRecord struct {
	RequestID string   `json:"request_id"`
	Subject   string   `json:"subject"`
	Action    string   `json:"action"`
	Datasets  []string `json:"datasets"`
	Outcome   string   `json:"outcome"`
	ErrorKind string   `json:"error_kind,omitempty"`
	Reason    string   `json:"reason,omitempty"`
	RowCount  int      `json:"row_count"`
	CreatedAt string   `json:"created_at"`
}

// RecentAudit handles GET /v1/admin/audit.
func (h *Handler) RecentAudit(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.RequestIDFromContext(r.Context())

	recs, err := h.audit.Recent(r.Context(), queryInt(r, "limit", 0))
	if err != nil {
		writeError(w, requestID, err)
		return
	}
	out := make([]*auditRecord, 0, len(recs))
	for _, rec := range recs {
		out = append(out, &auditRecord{
			RequestID: rec.RequestID,
			Subject:   rec.Subject,
			Action:    rec.Action,
			Datasets:  rec.Datasets,
			Outcome:   rec.Outcome,
			ErrorKind: rec.ErrorKind,
			Reason:    rec.Reason,
			RowCount:  rec.RowCount,
			CreatedAt: rec.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	writeJSON(w, http.StatusOK, auditList{Records: out, Count: len(out)})
}
