package auth

import "context"

// ContextWithPrincipal adds a principal to the context. Handlers in other
// packages use it in tests to skip the token round-trip.
func ContextWithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}
