// ABOUTME: Authentication context for tracking identity through request handlers
// ABOUTME: Provides WithAuth/FromContext for propagating auth info via context

package auth

import (
	"context"
	"slices"
)

// AuthContext holds the authenticated identity information extracted from a request.
// This is populated by BearerMiddleware and can be retrieved from context in handlers.
type AuthContext struct {
	PrincipalID string   // always OwnerPrincipal in a single-user deployment
	ClientID    string   // OAuth client that obtained the token; empty for API tokens
	Scopes      []string // granted scopes; empty for API tokens
	Method      string   // MethodAPIToken | MethodOAuth
}

// HasScope reports whether the context grants scope. API tokens carry full
// access.
func (a *AuthContext) HasScope(scope string) bool {
	if a.Method == MethodAPIToken {
		return true
	}
	return slices.Contains(a.Scopes, scope)
}

// authContextKey is the key type for storing AuthContext in context.Context.
type authContextKey struct{}

// WithAuth returns a new context with the AuthContext attached.
func WithAuth(ctx context.Context, auth *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, auth)
}

// FromContext retrieves the AuthContext from the context, returning nil if not present.
func FromContext(ctx context.Context) *AuthContext {
	val := ctx.Value(authContextKey{})
	if val == nil {
		return nil
	}
	auth, ok := val.(*AuthContext)
	if !ok {
		return nil
	}
	return auth
}

// MustFromContext retrieves the AuthContext from the context, panicking if not present.
func MustFromContext(ctx context.Context) *AuthContext {
	auth := FromContext(ctx)
	if auth == nil {
		panic("auth: AuthContext not found in context")
	}
	return auth
}
