// Package api provides the HTTP handlers and router for the query gateway
// REST API.
package api

import (
	"log/slog"

	"datagate/internal/catalogue"
	"datagate/internal/reconcile"
	"datagate/internal/service"
)

// Handler holds every service the API surface needs.
type Handler struct {
	query      *service.QueryService
	datasets   *service.DatasetService
	audit      *catalogue.AuditRepo
	reconciler *reconcile.Reconciler
	logger     *slog.Logger
}

func NewHandler(
	query *service.QueryService,
	datasets *service.DatasetService,
	audit *catalogue.AuditRepo,
	reconciler *reconcile.Reconciler,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		query:      query,
		datasets:   datasets,
		audit:      audit,
		reconciler: reconciler,
		logger:     logger,
	}
}
