package middleware

import "context"

type principalKey struct{}

// Principal is the authenticated caller of an /api/v1 route.
type Principal struct {
	MerchantID string
	Role       string
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.MerchantID != ""
}

// MerchantID is shorthand for handlers that only need the merchant.
func MerchantID(ctx context.Context) string {
	p, _ := PrincipalFrom(ctx)
	return p.MerchantID
}
