// Package reqctx carries the authenticated caller through context.Context so
// outbound calls never reach for ambient auth state.
package reqctx

import "context"

type Principal struct {
	UserID string
	Role   string
	// Token is the caller's bearer token, forwarded to the SkillSwap backend.
	Token string
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

func UserID(ctx context.Context) string {
	p, _ := PrincipalFrom(ctx)
	return p.UserID
}
