// Package identity plumbs the already-verified caller identity through
// request contexts. Credential verification happens upstream at the identity
// gateway; this service only trusts the forwarded subject.
package identity

import "context"

// Principal describes the authenticated actor for a request.
type Principal struct {
	UserID string
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok && p.UserID != ""
}
