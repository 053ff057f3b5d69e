// ABOUTME: HTTP middleware for bearer-token authentication on MCP and API endpoints
// ABOUTME: Extracts the token from the Authorization header and adds the principal to context

package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// extractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", "invalid authorization header format"
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

// writeUnauthorized sends a 401 with a JSON body and a WWW-Authenticate
// challenge. resourceMetadataURL is advertised when non-empty.
func writeUnauthorized(w http.ResponseWriter, resourceMetadataURL, errorCode string) {
	challenge := "Bearer"
	if resourceMetadataURL != "" {
		challenge += ` resource_metadata="` + resourceMetadataURL + `"`
	}
	if errorCode != "" {
		challenge += `, error="` + errorCode + `"`
	}
	w.Header().Set("WWW-Authenticate", challenge)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
}

// BearerMiddleware creates an HTTP middleware that validates bearer tokens
// with verifier and adds AuthContext to the request context.
func BearerMiddleware(verifier TokenVerifier, resourceMetadataURL string, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "auth")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, errMsg := extractBearerToken(r.Header.Get("Authorization"))
			if errMsg != "" {
				logger.Debug("rejected request", "path", r.URL.Path, "reason", errMsg)
				writeUnauthorized(w, resourceMetadataURL, "")
				return
			}

			authCtx, err := verifier.Verify(token)
			if err != nil {
				code := "invalid_token"
				if errors.Is(err, ErrNotConfigured) {
					code = ""
				}
				logger.Debug("rejected token", "path", r.URL.Path, "error", err)
				writeUnauthorized(w, resourceMetadataURL, code)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAuth(r.Context(), authCtx)))
		})
	}
}

// RequireScope creates an HTTP middleware that requires the given scope.
// Must be used after BearerMiddleware.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := FromContext(r.Context())
			if authCtx == nil {
				http.Error(w, `{"error":"not authenticated"}`, http.StatusUnauthorized)
				return
			}
			if !authCtx.HasScope(scope) {
				w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope", scope="`+scope+`"`)
				http.Error(w, `{"error":"insufficient scope"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
