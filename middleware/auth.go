package middleware

import (
	"fmt"
	"net/http"
	"strings"

	goRelay "github.com/MrEthical07/goRelay"
)

// Options tunes the [Auth] guard.
//
//	Docs: docs/middleware.md
type Options struct {
	// Optional lets unauthenticated requests through without an
	// AuthContext instead of rejecting them with 401.
	Optional bool

	// ResourceMetadataURL is advertised in the WWW-Authenticate header on
	// 401 responses so clients can discover the authorization server.
	ResourceMetadataURL string
}

func Auth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return AuthWithOptions(verifier, Options{})
}

// AuthWithOptions returns middleware that authenticates the request's bearer
// token through the verifier and injects the resulting [goRelay.AuthContext]
// into the request context. The relay forwards that context with every
// message it publishes, so session-side engines observe the same identity
// the edge verified.
func AuthWithOptions(verifier TokenVerifier, opts Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				unauthorized(w, opts, "verifier not configured")
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				if opts.Optional {
					next.ServeHTTP(w, r)
					return
				}
				unauthorized(w, opts, "missing bearer token")
				return
			}

			auth, err := verifier.Verify(r.Context(), token)
			if err != nil {
				unauthorized(w, opts, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(goRelay.WithAuthContext(r.Context(), auth)))
		})
	}
}

// RequireScopes returns middleware that rejects requests whose verified
// AuthContext is missing any of the listed scopes. It must run after [Auth];
// a request with no AuthContext at all is rejected with 401.
func RequireScopes(scopes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth, ok := goRelay.AuthContextFromContext(r.Context())
			if !ok {
				unauthorized(w, Options{}, "missing bearer token")
				return
			}

			for _, scope := range scopes {
				if !auth.HasScope(scope) {
					w.Header().Set("WWW-Authenticate", fmt.Sprintf("Bearer error=%q, scope=%q", "insufficient_scope", strings.Join(scopes, " ")))
					http.Error(w, "forbidden", http.StatusForbidden)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientInfo returns middleware that records the caller's IP address and
// User-Agent on the request context. The relay copies both into the
// telemetry events it emits for the request.
func ClientInfo() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := goRelay.WithClientIP(r.Context(), clientIP(r))
			ctx = goRelay.WithUserAgent(ctx, r.UserAgent())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, opts Options, description string) {
	challenge := fmt.Sprintf("Bearer error=%q, error_description=%q", "invalid_token", description)
	if opts.ResourceMetadataURL != "" {
		challenge += fmt.Sprintf(", resource_metadata=%q", opts.ResourceMetadataURL)
	}
	w.Header().Set("WWW-Authenticate", challenge)
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

// clientIP prefers the first hop recorded in X-Forwarded-For and falls back
// to the connection's remote address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}

	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return host
}
