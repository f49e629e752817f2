package api

import (
	"context"
	"net/http"
	"strings"
)

// IdentityResolver turns a bearer token into a user id.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, token string) (string, error)
}

// bearer extracts the token of an "Authorization: Bearer" header.
func bearer(r *http.Request) (string, bool) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}

// identity resolves the caller. Without a header it returns "" and no error.
func identity(r *http.Request, ids IdentityResolver) (string, error) {
	token, ok := bearer(r)
	if !ok {
		return "", nil
	}
	return ids.ResolveIdentity(r.Context(), token)
}

// requireIdentity is identity for routes that need a caller.
func requireIdentity(r *http.Request, ids IdentityResolver) (string, error) {
	id, err := identity(r, ids)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", ErrUnauthorized
	}
	return id, nil
}
