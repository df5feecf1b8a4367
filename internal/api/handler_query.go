package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"datagate/internal/domain"
	"datagate/internal/middleware"
	"datagate/internal/service"
)

// ExecuteQuery handles POST /v1/query.
func (h *Handler) ExecuteQuery(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.RequestIDFromContext(r.Context())

	var req service.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code: http.StatusBadRequest, Message: "malformed request body", RequestID: requestID,
		})
		return
	}
	if req.SQL == "" {
		writeError(w, requestID, domain.ErrValidation(domain.KindInvalidSQL, "sql is required"))
		return
	}

	identity := middleware.IdentityFromContext(r.Context())
	result, err := h.query.Query(r.Context(), identity, requestID, req)
	if err != nil {
		writeError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type datasetQueryResult struct {
	DatasetID string `json:"dataset_id"`
	*domain.QueryResult
}

// QueryDataset handles POST /v1/datasets/{datasetID}/query. The body is
// optional; without one (or without a sql field) it selects everything from
// the dataset. A supplied statement still runs the full pipeline, so it can
// only widen the shape of the result, not the datasets it may touch.
func (h *Handler) QueryDataset(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.RequestIDFromContext(r.Context())
	datasetID := chi.URLParam(r, "datasetID")
	identity := middleware.IdentityFromContext(r.Context())

	req := service.QueryRequest{
		Limit:  queryInt(r, "limit", 0),
		Offset: queryInt(r, "offset", 0),
	}
	if r.Body != nil {
		// An empty body is fine; malformed JSON is not.
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Code: http.StatusBadRequest, Message: "malformed request body", RequestID: requestID,
			})
			return
		}
	}

	var result *domain.QueryResult
	var err error
	if req.SQL != "" {
		result, err = h.query.Query(r.Context(), identity, requestID, req)
	} else {
		result, err = h.query.QueryDataset(r.Context(), identity, requestID, datasetID, req.Limit, req.Offset)
	}
	if err != nil {
		writeError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, datasetQueryResult{DatasetID: datasetID, QueryResult: result})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
