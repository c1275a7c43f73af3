package auth

import "context"

type contextKey string

const identityKey contextKey = "identity"

// NewContextWithIdentity returns ctx carrying id.
func NewContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the identity stored by RequireToken.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// SessionIDFromContext returns the session id, or "guest" when none is set.
func SessionIDFromContext(ctx context.Context) string {
	id, ok := IdentityFromContext(ctx)
	if !ok || id.SessionID == "" {
		return GuestOwner
	}
	return id.SessionID
}
