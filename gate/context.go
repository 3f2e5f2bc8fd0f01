package gate

import "context"

type contextKey int

const identityKey contextKey = iota

// IdentityFromContext returns the authenticated username attached by
// the gate middleware, if any.
func IdentityFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(identityKey).(string)
	return id, ok
}

func withIdentity(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, identityKey, username)
}
