package goRelay

import "context"

type authContextKey struct{}
type clientIPContextKey struct{}
type userAgentContextKey struct{}

// WithAuthContext attaches the caller's [AuthContext] to ctx. The relay
// serializes it with the request when publishing to the broker and the
// connection manager reattaches it before invoking the protocol engine.
//
//	Docs: docs/auth.md
func WithAuthContext(ctx context.Context, auth AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, auth)
}

// AuthContextFromContext returns the [AuthContext] previously attached with
// [WithAuthContext]. Protocol engines use it to read the verified identity
// of the caller whose message they are serving.
func AuthContextFromContext(ctx context.Context) (AuthContext, bool) {
	if ctx == nil {
		return AuthContext{}, false
	}

	auth, ok := ctx.Value(authContextKey{}).(AuthContext)
	return auth, ok
}

// WithClientIP attaches the caller's IP address to ctx. Used to enrich
// telemetry events emitted for the request.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithUserAgent attaches the HTTP User-Agent string to ctx for telemetry
// enrichment.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return context.WithValue(ctx, userAgentContextKey{}, userAgent)
}

func authFromContext(ctx context.Context) *AuthContext {
	if ctx == nil {
		return nil
	}

	auth, ok := ctx.Value(authContextKey{}).(AuthContext)
	if !ok {
		return nil
	}
	return &auth
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func userAgentFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	userAgent, _ := ctx.Value(userAgentContextKey{}).(string)
	return userAgent
}
