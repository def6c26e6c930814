package auth

import "context"

// ContextWithPrincipal returns a copy of ctx carrying principal. Handlers and
// tests in other packages use it to act as an authenticated caller.
func ContextWithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}
