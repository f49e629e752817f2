package service

import (
	"context"
	"strings"

	"github.com/okian/techradar/internal/domain/model"
)

// IdentityResolver maps a bearer token to a user id.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (string, error)
}

// BearerIdentity treats the token itself as the user id.
type BearerIdentity struct{}

// Resolve implements IdentityResolver.
func (BearerIdentity) Resolve(_ context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", model.WrapKind("identity.resolve", model.ErrInvalidInput, errEmptyToken)
	}
	return token, nil
}

// ResolveIdentity resolves token with the configured resolver.
func (s *Service) ResolveIdentity(ctx context.Context, token string) (string, error) {
	return s.identity.Resolve(ctx, token)
}
