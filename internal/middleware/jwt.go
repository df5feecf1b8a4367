package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"

	"datagate/internal/domain"
)

// TokenValidator verifies a bearer token and maps its claims onto a
// normalized identity. Nothing downstream of the middleware ever sees a raw
// token.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (*domain.Identity, error)
}

// OIDCValidator verifies tokens against an OIDC provider's JWKS.
type OIDCValidator struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCValidator discovers the issuer's configuration and builds a verifier
// bound to the expected audience.
func NewOIDCValidator(ctx context.Context, issuerURL, audience string) (*OIDCValidator, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc provider discovery: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: audience})
	return &OIDCValidator{verifier: verifier}, nil
}

func (v *OIDCValidator) Validate(ctx context.Context, token string) (*domain.Identity, error) {
	idToken, err := v.verifier.Verify(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}
	var raw map[string]interface{}
	if err := idToken.Claims(&raw); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	id := identityFromClaims(raw)
	if id.Subject == "" {
		id.Subject = idToken.Subject
	}
	if id.Subject == "" {
		return nil, fmt.Errorf("token carries no subject")
	}
	return id, nil
}

// HS256Validator verifies tokens signed with a shared secret. Intended for
// local development and tests.
type HS256Validator struct {
	secret []byte
}

func NewHS256Validator(secret string) (*HS256Validator, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	return &HS256Validator{secret: []byte(secret)}, nil
}

func (v *HS256Validator) Validate(_ context.Context, token string) (*domain.Identity, error) {
	tok, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}
	raw, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("parse claims: unsupported claim type %T", tok.Claims)
	}
	id := identityFromClaims(map[string]interface{}(raw))
	if id.Subject == "" {
		return nil, fmt.Errorf("token carries no subject")
	}
	return id, nil
}

// identityFromClaims maps standard and common custom claims onto an identity.
// Subject type defaults to user; a "service" token type claim marks machine
// callers.
func identityFromClaims(raw map[string]interface{}) *domain.Identity {
	id := &domain.Identity{Type: domain.SubjectUser}
	if sub, ok := raw["sub"].(string); ok {
		id.Subject = sub
	}
	if typ, ok := raw["token_type"].(string); ok && typ == domain.SubjectService {
		id.Type = domain.SubjectService
	}
	id.Groups = stringClaim(raw["groups"])
	id.Roles = stringClaim(raw["roles"])

	// OAuth "scope" is a space-separated string; some issuers emit a list.
	if scope, ok := raw["scope"].(string); ok {
		id.Scopes = strings.Fields(scope)
	} else {
		id.Scopes = stringClaim(raw["scopes"])
	}
	return id
}

func stringClaim(v interface{}) []string {
	switch vals := v.(type) {
	case []interface{}:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return vals
	case string:
		if vals == "" {
			return nil
		}
		return []string{vals}
	default:
		return nil
	}
}
