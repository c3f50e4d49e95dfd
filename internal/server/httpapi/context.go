package httpapi

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/auth"
)

type ctxKey string

const claimsKey ctxKey = "claims"

func withClaims(ctx context.Context, claims *auth.UserClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the identity attached by the access token middleware.
func ClaimsFromContext(ctx context.Context) (*auth.UserClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.UserClaims)
	return claims, ok && claims != nil
}
