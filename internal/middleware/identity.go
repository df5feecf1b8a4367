// Package middleware provides the HTTP middleware stack: request ids,
// token authentication and per-client rate limiting.
package middleware

import (
	"context"

	"datagate/internal/domain"
)

type identityKey struct{}

// WithIdentity stores the normalized identity in the context.
func WithIdentity(ctx context.Context, id *domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the caller identity, or the anonymous identity
// when authentication never ran.
func IdentityFromContext(ctx context.Context) *domain.Identity {
	if id, ok := ctx.Value(identityKey{}).(*domain.Identity); ok && id != nil {
		return id
	}
	anon := domain.Anonymous()
	return &anon
}
