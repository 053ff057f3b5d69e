// ABOUTME: Bearer token verification: static API token and HS256 JWT access tokens
// ABOUTME: Both verifiers fail closed when their secret is not configured

package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors
var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token expired")
	ErrMissingClaim  = errors.New("missing required claim")
	ErrNotConfigured = errors.New("verifier not configured")
)

// OwnerPrincipal is the only principal in a single-user deployment.
const OwnerPrincipal = "owner"

// Authentication methods recorded on AuthContext.
const (
	MethodAPIToken = "api_token"
	MethodOAuth    = "oauth"
)

// TokenVerifier defines the interface for token verification
type TokenVerifier interface {
	Verify(tokenString string) (*AuthContext, error)
}

// CompareToken reports whether presented equals expected. Surrounding
// whitespace in expected is ignored. Empty values never match and the byte
// comparison always covers the full length.
func CompareToken(presented, expected string) bool {
	expected = strings.TrimSpace(expected)
	if presented == "" || expected == "" {
		return false
	}
	if len(presented) != len(expected) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) == 1
}

// APITokenVerifier accepts a single static token.
type APITokenVerifier struct {
	token string
}

// NewAPITokenVerifier creates a verifier for the given shared token.
func NewAPITokenVerifier(token string) *APITokenVerifier {
	return &APITokenVerifier{token: strings.TrimSpace(token)}
}

// Verify accepts the configured token as the owner.
func (v *APITokenVerifier) Verify(tokenString string) (*AuthContext, error) {
	if v.token == "" {
		return nil, ErrNotConfigured
	}
	if !CompareToken(tokenString, v.token) {
		return nil, ErrInvalidToken
	}
	return &AuthContext{PrincipalID: OwnerPrincipal, Method: MethodAPIToken}, nil
}

// AccessClaims are the claims carried by an OAuth access token.
type AccessClaims struct {
	Scope    string `json:"scope,omitempty"`
	ClientID string `json:"client_id,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier implements TokenVerifier using HS256 signed JWTs
type JWTVerifier struct {
	secret []byte
	issuer string
}

// NewJWTVerifier creates a new JWT verifier with the given secret. When
// issuer is non-empty it is stamped on generated tokens and required on
// verified ones.
func NewJWTVerifier(secret []byte, issuer string) *JWTVerifier {
	return &JWTVerifier{secret: secret, issuer: issuer}
}

// Verify validates the token and extracts the principal from the "sub" claim
func (v *JWTVerifier) Verify(tokenString string) (*AuthContext, error) {
	if len(v.secret) == 0 {
		return nil, ErrNotConfigured
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims AccessClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}

	return &AuthContext{
		PrincipalID: claims.Subject,
		ClientID:    claims.ClientID,
		Scopes:      strings.Fields(claims.Scope),
		Method:      MethodOAuth,
	}, nil
}

// Generate signs an access token for principalID with the given scope and
// client, valid for expiresIn.
func (v *JWTVerifier) Generate(principalID string, scopes []string, clientID string, expiresIn time.Duration) (string, error) {
	if len(v.secret) == 0 {
		return "", ErrNotConfigured
	}
	now := time.Now()
	claims := AccessClaims{
		Scope:    strings.Join(scopes, " "),
		ClientID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principalID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// ChainVerifier tries each verifier in order and returns the first success.
type ChainVerifier []TokenVerifier

// Verify returns the first successful result. When every verifier fails the
// most specific error wins: an expired token beats a generic rejection.
func (c ChainVerifier) Verify(tokenString string) (*AuthContext, error) {
	err := ErrNotConfigured
	for _, v := range c {
		authCtx, verr := v.Verify(tokenString)
		if verr == nil {
			return authCtx, nil
		}
		switch {
		case errors.Is(verr, ErrExpiredToken):
			err = verr
		case errors.Is(verr, ErrNotConfigured):
		case !errors.Is(err, ErrExpiredToken):
			err = verr
		}
	}
	return nil, err
}
