package shared

import "context"

// Identity describes the authenticated caller as resolved from a bearer token.
type Identity struct {
	AccountID       int64
	Code            string
	Email           string
	Name            string
	Role            string
	CompanyCode     string
	ApplicationCode string
	TokenID         string
	RawToken        string
}

type identityContextKey struct{}

// ContextWithIdentity stores the caller identity in context.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the caller identity from context, if any.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityContextKey{}).(*Identity)
	return id
}
