// ABOUTME: Tests for HTTP bearer authentication middleware
// ABOUTME: Covers token extraction, verification, challenge headers and scope gate

package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMetadataURL = "https://wishlist.example.com/.well-known/oauth-protected-resource"

func echoPrincipal() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCtx := FromContext(r.Context())
		_, _ = w.Write([]byte(authCtx.PrincipalID + "/" + authCtx.Method))
	})
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		header  string
		token   string
		wantErr bool
	}{
		{"", "", true},
		{"Basic abc", "", true},
		{"Bearer", "", true},
		{"Bearer ", "", true},
		{"Bearer abc", "abc", false},
		{"bearer abc", "abc", false},
	}
	for _, tt := range tests {
		token, errMsg := extractBearerToken(tt.header)
		assert.Equal(t, tt.token, token, tt.header)
		assert.Equal(t, tt.wantErr, errMsg != "", tt.header)
	}
}

func TestBearerMiddleware_APIToken(t *testing.T) {
	handler := BearerMiddleware(NewAPITokenVerifier("secret-token"), testMetadataURL, nil)(echoPrincipal())

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "owner/api_token", rec.Body.String())
}

func TestBearerMiddleware_JWT(t *testing.T) {
	jwtV := NewJWTVerifier([]byte("jwt-secret"), "")
	token, err := jwtV.Generate(OwnerPrincipal, []string{"wishlist"}, "c", time.Hour)
	require.NoError(t, err)

	handler := BearerMiddleware(ChainVerifier{NewAPITokenVerifier(""), jwtV}, testMetadataURL, nil)(echoPrincipal())

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "owner/oauth", rec.Body.String())
}

func TestBearerMiddleware_Rejects(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		verifier  TokenVerifier
		challenge string
	}{
		{"missing header", "", NewAPITokenVerifier("secret-token"), `Bearer resource_metadata="` + testMetadataURL + `"`},
		{"wrong scheme", "Basic c2VjcmV0", NewAPITokenVerifier("secret-token"), `Bearer resource_metadata="` + testMetadataURL + `"`},
		{"wrong token", "Bearer secret-tokem", NewAPITokenVerifier("secret-token"), `Bearer resource_metadata="` + testMetadataURL + `", error="invalid_token"`},
		{"unconfigured", "Bearer anything", NewAPITokenVerifier(""), `Bearer resource_metadata="` + testMetadataURL + `"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
			handler := BearerMiddleware(tt.verifier, testMetadataURL, nil)(next)

			req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.False(t, called)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tt.challenge, rec.Header().Get("WWW-Authenticate"))
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "unauthorized", body["error"])
		})
	}
}

func TestBearerMiddleware_NoMetadataURL(t *testing.T) {
	handler := BearerMiddleware(NewAPITokenVerifier("x"), "", nil)(echoPrincipal())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/items", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
}

func TestRequireScope(t *testing.T) {
	jwtV := NewJWTVerifier([]byte("jwt-secret"), "")
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	handler := BearerMiddleware(jwtV, "", nil)(RequireScope("wishlist")(ok))

	run := func(scopes []string) int {
		token, err := jwtV.Generate(OwnerPrincipal, scopes, "c", time.Hour)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, run([]string{"wishlist"}))
	assert.Equal(t, http.StatusForbidden, run([]string{"other"}))

	rec := httptest.NewRecorder()
	RequireScope("wishlist")(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
