package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"datagate/internal/domain"
	"datagate/internal/middleware"
)

type datasetList struct {
	Datasets []*domain.DatasetEntry `json:"datasets"`
	Count    int                    `json:"count"`
}

// ListDatasets handles GET /v1/datasets. The list is already filtered to what
// the caller may read.
func (h *Handler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.RequestIDFromContext(r.Context())
	identity := middleware.IdentityFromContext(r.Context())

	entries, err := h.datasets.List(r.Context(), identity)
	if err != nil {
		writeError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, datasetList{Datasets: entries, Count: len(entries)})
}

// GetDataset handles GET /v1/datasets/{datasetID}.
func (h *Handler) GetDataset(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.RequestIDFromContext(r.Context())
	identity := middleware.IdentityFromContext(r.Context())
	datasetID := chi.URLParam(r, "datasetID")

	entry, err := h.datasets.Get(r.Context(), identity, datasetID)
	if err != nil {
		writeError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
