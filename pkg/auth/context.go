package auth

import (
	"context"
	"errors"
)

type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal attaches a verified Principal to the context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// GetPrincipal retrieves the Principal the auth middleware attached.
func GetPrincipal(ctx context.Context) (*Principal, error) {
	p, ok := ctx.Value(principalKey).(*Principal)
	if !ok || p == nil {
		return nil, errors.New("auth: no principal in context")
	}
	return p, nil
}

// GetProjectID is a helper to read the project id off the context's
// Principal.
func GetProjectID(ctx context.Context) (string, error) {
	p, err := GetPrincipal(ctx)
	if err != nil {
		return "", err
	}
	return p.ProjectID, nil
}

// MustGetProjectID panics if the project id is missing; use only where
// middleware guarantees a Principal is present.
func MustGetProjectID(ctx context.Context) string {
	pid, err := GetProjectID(ctx)
	if err != nil {
		panic(err)
	}
	return pid
}
