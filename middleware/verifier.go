package middleware

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	goRelay "github.com/MrEthical07/goRelay"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is an exported constant or variable used by the relay middleware.
var ErrInvalidToken = errors.New("invalid token")

// TokenVerifier turns a raw bearer token into a verified [goRelay.AuthContext].
// Implementations must be safe for concurrent use.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (goRelay.AuthContext, error)
}

// SigningMethod defines a public type used by goRelay APIs.
//
// SigningMethod instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SigningMethod string

const (
	// MethodEd25519 is an exported constant or variable used by the relay middleware.
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 is an exported constant or variable used by the relay middleware.
	MethodHS256 SigningMethod = "hs256"
)

// VerifierConfig defines a public type used by goRelay APIs.
//
// VerifierConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type VerifierConfig struct {
	SigningMethod SigningMethod
	// Key is the HMAC secret for hs256 or the ed25519 public key
	// (raw 32 bytes or PEM) for ed25519.
	Key      []byte
	Issuer   string
	Audience string
	Leeway   time.Duration
}

// TokenClaims defines a public type used by goRelay APIs.
//
// TokenClaims instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TokenClaims struct {
	ClientID string   `json:"client_id,omitempty"`
	Scope    string   `json:"scope,omitempty"`
	Scopes   []string `json:"scopes,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier defines a public type used by goRelay APIs.
//
// JWTVerifier instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type JWTVerifier struct {
	config VerifierConfig
}

// NewJWTVerifier describes the newjwtverifier operation and its observable behavior.
//
// NewJWTVerifier may return an error when input validation, dependency calls, or security checks fail.
// NewJWTVerifier does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewJWTVerifier(cfg VerifierConfig) (*JWTVerifier, error) {
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.Key) == 0 {
			return nil, errors.New("hs256 requires a secret key")
		}
	case MethodEd25519:
		if _, err := parseEdPublicKey(cfg.Key); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return &JWTVerifier{config: cfg}, nil
}

// Verify describes the verify operation and its observable behavior.
//
// Verify may return an error when input validation, dependency calls, or security checks fail.
// Verify does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (v *JWTVerifier) Verify(ctx context.Context, token string) (goRelay.AuthContext, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{v.getMethod().Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(v.config.Leeway))
	}
	if v.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(v.config.Issuer))
	}
	if v.config.Audience != "" {
		options = append(options, jwt.WithAudience(v.config.Audience))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(token, &TokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		return v.getVerifyKey()
	})
	if err != nil {
		return goRelay.AuthContext{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*TokenClaims)
	if !ok || !parsed.Valid {
		return goRelay.AuthContext{}, ErrInvalidToken
	}

	auth := goRelay.AuthContext{
		Token:    token,
		ClientID: claims.ClientID,
		Scopes:   claims.scopeList(),
	}
	if auth.ClientID == "" {
		auth.ClientID = claims.Subject
	}
	if claims.ExpiresAt != nil {
		auth.ExpiresAt = claims.ExpiresAt.Unix()
	}

	return auth, nil
}

func (v *JWTVerifier) getMethod() jwt.SigningMethod {
	switch v.config.SigningMethod {
	case MethodHS256:
		return jwt.SigningMethodHS256
	default:
		return jwt.SigningMethodEdDSA
	}
}

func (v *JWTVerifier) getVerifyKey() (interface{}, error) {
	switch v.config.SigningMethod {
	case MethodHS256:
		return v.config.Key, nil
	default:
		return parseEdPublicKey(v.config.Key)
	}
}

// scopeList reads the "scopes" array claim, falling back to the
// space-separated "scope" claim; issuers disagree on which one they emit.
func (c *TokenClaims) scopeList() []string {
	if len(c.Scopes) > 0 {
		return append([]string(nil), c.Scopes...)
	}
	if c.Scope == "" {
		return nil
	}
	return strings.Fields(c.Scope)
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}

// StaticVerifier maps fixed tokens to identities. Intended for tests and
// local development only.
type StaticVerifier map[string]goRelay.AuthContext

// Verify describes the verify operation and its observable behavior.
//
// Verify may return an error when input validation, dependency calls, or security checks fail.
// Verify does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s StaticVerifier) Verify(ctx context.Context, token string) (goRelay.AuthContext, error) {
	auth, ok := s[token]
	if !ok {
		return goRelay.AuthContext{}, ErrInvalidToken
	}
	auth.Token = token
	return auth, nil
}
