package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// ErrNotConfigured is returned when no auth base URL is configured.
var ErrNotConfigured = errors.New("auth base URL is not set")

// Validator checks player JWTs against an issuer's key set.
type Validator struct {
	issuer  string
	keyfunc jwt.Keyfunc
	methods []string
}

// NewValidator fetches the JWKS at baseURL + "/.well-known/jwks.json" and keeps
// it refreshed until ctx is cancelled. The expected issuer is the base URL's
// scheme and host.
func NewValidator(ctx context.Context, baseURL string) (*Validator, error) {
	if baseURL == "" {
		return nil, ErrNotConfigured
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{strings.TrimSuffix(baseURL, "/") + "/.well-known/jwks.json"})
	if err != nil {
		return nil, fmt.Errorf("load jwks: %w", err)
	}
	return &Validator{
		issuer:  u.Scheme + "://" + u.Host,
		keyfunc: jwks.Keyfunc,
		methods: []string{"EdDSA", "RS256", "ES256"},
	}, nil
}

// NewStaticValidator validates tokens with a fixed keyfunc.
func NewStaticValidator(issuer string, kf jwt.Keyfunc, methods ...string) *Validator {
	return &Validator{issuer: issuer, keyfunc: kf, methods: methods}
}

// Validate parses tokenString and returns its claims.
func (v *Validator) Validate(tokenString string) (jwt.MapClaims, error) {
	if v == nil {
		return nil, ErrNotConfigured
	}
	opts := []jwt.ParserOption{jwt.WithIssuer(v.issuer)}
	if len(v.methods) > 0 {
		opts = append(opts, jwt.WithValidMethods(v.methods))
	}
	token, err := jwt.Parse(tokenString, v.keyfunc, opts...)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// UserID validates tokenString and returns its user id.
func (v *Validator) UserID(tokenString string) (string, error) {
	claims, err := v.Validate(tokenString)
	if err != nil {
		return "", err
	}
	id := UserIDFromClaims(claims)
	if id == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return id, nil
}

// BearerToken extracts the token from an "Authorization: Bearer ..." header value.
func BearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// UserIDFromClaims returns the user id from claims ("sub" or "id").
func UserIDFromClaims(claims jwt.MapClaims) string {
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		return sub
	}
	if id, ok := claims["id"].(string); ok && id != "" {
		return id
	}
	return ""
}
