package service

import (
	"context"

	"datagate/internal/authz"
	"datagate/internal/catalogue"
	"datagate/internal/domain"
)

// DatasetService serves catalogue metadata. Listing is filtered per identity
// so a caller only sees the datasets the policy would let them read.
type DatasetService struct {
	store   *catalogue.Store
	gateway *authz.Gateway
}

func NewDatasetService(store *catalogue.Store, gateway *authz.Gateway) *DatasetService {
	return &DatasetService{store: store, gateway: gateway}
}

// List returns the active datasets the identity may read, in id order.
func (s *DatasetService) List(ctx context.Context, identity *domain.Identity) ([]*domain.DatasetEntry, error) {
	snap := s.store.Snapshot()
	entries := make([]*domain.DatasetEntry, 0, snap.Len())
	for _, entry := range snap.List() {
		if entry.Status != domain.StatusActive {
			continue
		}
		err := s.gateway.Authorize(ctx, identity, domain.ActionRead, []*domain.DatasetEntry{entry}, authz.Query{})
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Get returns one dataset's metadata. A dataset the identity may not read is
// reported as denied, not hidden, because its id was named explicitly.
func (s *DatasetService) Get(ctx context.Context, identity *domain.Identity, datasetID string) (*domain.DatasetEntry, error) {
	snap := s.store.Snapshot()
	entry, ok := snap.Get(datasetID)
	if !ok || entry.Status != domain.StatusActive {
		return nil, domain.ErrUnresolved(datasetID)
	}
	err := s.gateway.Authorize(ctx, identity, domain.ActionRead, []*domain.DatasetEntry{entry}, authz.Query{})
	if err != nil {
		return nil, err
	}
	return entry, nil
}
