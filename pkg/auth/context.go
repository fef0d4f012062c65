package auth

import "context"

type contextKey string

const (
	claimsKey  contextKey = "auth_claims"
	requestKey contextKey = "request_meta"
)

// RequestMeta carries per-request attribution for audit trails.
type RequestMeta struct {
	IPAddress string
	UserAgent string
	RequestID string
}

// ContextWithClaims attaches validated token claims to ctx.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the claims attached by the auth middleware.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok
}

// ContextWithRequestMeta attaches request attribution to ctx.
func ContextWithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestKey, meta)
}

// RequestMetaFromContext returns request attribution, zero-valued when the
// request passed through no instrumented middleware.
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(requestKey).(RequestMeta)
	return meta
}
