package auth

import "context"

type contextKey struct{}

// Principal is the identity a request authenticated as.
type Principal struct {
	Username string
	RemoteIP string
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(Principal)
	return p, ok
}

// Username returns the authenticated username, or "" when the request was
// not authenticated.
func Username(ctx context.Context) string {
	p, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return p.Username
}
