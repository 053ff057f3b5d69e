// ABOUTME: Tests for the token, registration and discovery endpoints
// ABOUTME: Covers PKCE, single-use codes, refresh rotation and client authentication

package oauth

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/wishlist/internal/auth"
	"github.com/2389/wishlist/internal/store"
)

func s256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func issueCode(t *testing.T, p *Provider, info *RequestInfo) string {
	t.Helper()
	redirect, err := p.CompleteAuthorization(context.Background(), CompleteRequest{
		Request: info,
		UserID:  auth.OwnerPrincipal,
		Scope:   info.ScopeOrDefault([]string{DefaultScope}),
	})
	require.NoError(t, err)
	u, err := url.Parse(redirect)
	require.NoError(t, err)
	return u.Query().Get("code")
}

func postToken(t *testing.T, p *Provider, form url.Values, basic ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if len(basic) == 2 {
		req.SetBasicAuth(basic[0], basic[1])
	}
	rec := httptest.NewRecorder()
	p.HandleToken(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	return rec, body
}

func TestCompleteAuthorization_PreservesQuery(t *testing.T) {
	p, ms := newTestProvider(t)
	info := validInfo()
	info.RedirectURI = "https://claude.ai/cb?existing=1"

	redirect, err := p.CompleteAuthorization(context.Background(), CompleteRequest{Request: info, UserID: auth.OwnerPrincipal, Scope: []string{"wishlist"}})
	require.NoError(t, err)

	u, err := url.Parse(redirect)
	require.NoError(t, err)
	assert.Equal(t, "1", u.Query().Get("existing"))
	assert.Equal(t, "state-123", u.Query().Get("state"))
	code := u.Query().Get("code")
	assert.Len(t, code, 43)

	grant, err := ms.ConsumeAuthCode(context.Background(), hashToken(code))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(DefaultCodeTTL), grant.ExpiresAt, 5*time.Second)
}

func TestLookupClient(t *testing.T) {
	p, ms := newTestProvider(t)
	ctx := context.Background()

	c, err := p.LookupClient(ctx, testClientID)
	require.NoError(t, err)
	require.NotNil(t, c)

	c, err = p.LookupClient(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = p.LookupClient(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, c)

	ms.Err = assert.AnError
	_, err = p.LookupClient(ctx, testClientID)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestToken_AuthorizationCodeWithPKCE(t *testing.T) {
	p, _ := newTestProvider(t)
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	info := validInfo()
	info.CodeChallenge = s256(verifier)
	info.CodeChallengeMethod = ChallengeS256
	code := issueCode(t, p, info)

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {testRedirect},
		"client_id":     {testClientID},
		"code_verifier": {verifier},
	}
	rec, body := postToken(t, p, form)
	require.Equal(t, http.StatusOK, rec.Code, body)
	assert.Equal(t, "Bearer", body["token_type"])
	assert.EqualValues(t, 3600, body["expires_in"])
	assert.Equal(t, "wishlist", body["scope"])
	assert.NotEmpty(t, body["refresh_token"])

	authCtx, err := p.signer.Verify(body["access_token"].(string))
	require.NoError(t, err)
	assert.Equal(t, auth.OwnerPrincipal, authCtx.PrincipalID)
	assert.Equal(t, testClientID, authCtx.ClientID)
	assert.Equal(t, []string{"wishlist"}, authCtx.Scopes)

	// Codes are single use.
	rec, body = postToken(t, p, form)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_grant", body["error"])
}

func TestToken_AuthorizationCodeErrors(t *testing.T) {
	verifier := "a-verifier-that-is-long-enough-to-be-valid-0123456789"

	tests := []struct {
		name   string
		plain  bool
		mutate func(url.Values)
		status int
		code   string
	}{
		{"missing code", false, func(f url.Values) { f.Del("code") }, http.StatusBadRequest, "invalid_request"},
		{"unknown code", false, func(f url.Values) { f.Set("code", "nope") }, http.StatusBadRequest, "invalid_grant"},
		{"redirect mismatch", false, func(f url.Values) { f.Set("redirect_uri", "http://localhost:6274/callback") }, http.StatusBadRequest, "invalid_grant"},
		{"missing verifier", false, func(f url.Values) { f.Del("code_verifier") }, http.StatusBadRequest, "invalid_request"},
		{"wrong verifier", false, func(f url.Values) { f.Set("code_verifier", verifier+"x") }, http.StatusBadRequest, "invalid_grant"},
		{"plain challenge mismatch", true, func(f url.Values) { f.Set("code_verifier", "other") }, http.StatusBadRequest, "invalid_grant"},
		{"missing client", false, func(f url.Values) { f.Del("client_id") }, http.StatusBadRequest, "invalid_request"},
		{"unknown client", false, func(f url.Values) { f.Set("client_id", "ghost") }, http.StatusUnauthorized, "invalid_client"},
		{"missing grant type", false, func(f url.Values) { f.Del("grant_type") }, http.StatusBadRequest, "invalid_request"},
		{"unsupported grant type", false, func(f url.Values) { f.Set("grant_type", "password") }, http.StatusBadRequest, "unsupported_grant_type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestProvider(t)
			info := validInfo()
			if tt.plain {
				info.CodeChallenge = verifier
				info.CodeChallengeMethod = ChallengePlain
			} else {
				info.CodeChallenge = s256(verifier)
				info.CodeChallengeMethod = ChallengeS256
			}
			form := url.Values{
				"grant_type":    {"authorization_code"},
				"code":          {issueCode(t, p, info)},
				"redirect_uri":  {testRedirect},
				"client_id":     {testClientID},
				"code_verifier": {verifier},
			}
			tt.mutate(form)

			rec, body := postToken(t, p, form)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, body["error"])
		})
	}
}

func TestToken_UnknownChallengeMethodNeverVerifies(t *testing.T) {
	p, _ := newTestProvider(t)
	info := validInfo()
	info.CodeChallenge = "verifier-equals-challenge"
	info.CodeChallengeMethod = "md5-bogus"

	rec, body := postToken(t, p, url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {issueCode(t, p, info)},
		"redirect_uri":  {testRedirect},
		"client_id":     {testClientID},
		"code_verifier": {"verifier-equals-challenge"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_grant", body["error"])
}

func TestVerifyPKCE(t *testing.T) {
	assert.True(t, verifyPKCE("abc", ChallengePlain, "abc"))
	assert.True(t, verifyPKCE(s256("abc"), ChallengeS256, "abc"))
	assert.False(t, verifyPKCE("abc", ChallengeS256, "abc"))
	assert.False(t, verifyPKCE("abc", "md5-bogus", "abc"))
	assert.False(t, verifyPKCE("abc", "", "abc"))
}

func TestToken_CodeIssuedToOtherClient(t *testing.T) {
	p, ms := newTestProvider(t)
	require.NoError(t, ms.CreateClient(context.Background(), &store.OAuthClient{ID: "client-2", RedirectURIs: []string{testRedirect}}))
	code := issueCode(t, p, validInfo())

	rec, body := postToken(t, p, url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {testRedirect},
		"client_id":    {"client-2"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_grant", body["error"])
}

func TestToken_ExpiredCode(t *testing.T) {
	p, _ := newTestProvider(t)
	p.now = func() time.Time { return time.Now().Add(-time.Hour) }
	code := issueCode(t, p, validInfo())
	p.now = time.Now

	rec, body := postToken(t, p, url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {testRedirect},
		"client_id":    {testClientID},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_grant", body["error"])
}

func TestToken_RefreshRotation(t *testing.T) {
	p, _ := newTestProvider(t)
	code := issueCode(t, p, validInfo())

	_, first := postToken(t, p, url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {testRedirect},
		"client_id":    {testClientID},
	})
	refresh := first["refresh_token"].(string)

	refreshForm := url.Values{"grant_type": {"refresh_token"}, "refresh_token": {refresh}, "client_id": {testClientID}}
	rec, second := postToken(t, p, refreshForm)
	require.Equal(t, http.StatusOK, rec.Code, second)
	assert.NotEqual(t, refresh, second["refresh_token"])
	assert.Equal(t, "wishlist", second["scope"])

	// The rotated token is revoked.
	rec, body := postToken(t, p, refreshForm)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_grant", body["error"])
}

func TestToken_RefreshScopeNarrowing(t *testing.T) {
	p, _ := newTestProvider(t)
	info := validInfo()
	info.Scope = []string{"wishlist", "extra"}
	_, first := postToken(t, p, url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {issueCode(t, p, info)},
		"redirect_uri": {testRedirect},
		"client_id":    {testClientID},
	})

	rec, body := postToken(t, p, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {first["refresh_token"].(string)},
		"client_id":     {testClientID},
		"scope":         {"admin"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_scope", body["error"])

	_, again := postToken(t, p, url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {issueCode(t, p, info)},
		"redirect_uri": {testRedirect},
		"client_id":    {testClientID},
	})
	rec, body = postToken(t, p, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {again["refresh_token"].(string)},
		"client_id":     {testClientID},
		"scope":         {"wishlist"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "wishlist", body["scope"])
}

func TestToken_StoreFailure(t *testing.T) {
	p, ms := newTestProvider(t)
	code := issueCode(t, p, validInfo())
	ms.Err = assert.AnError

	rec, body := postToken(t, p, url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {testRedirect},
		"client_id":    {testClientID},
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "server_error", body["error"])
}

func register(t *testing.T, p *Provider, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	p.HandleRegister(rec, httptest.NewRequest(http.MethodPost, "/register", bytes.NewBufferString(body)))
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func TestRegister_PublicClient(t *testing.T) {
	p, ms := newTestProvider(t)

	rec, out := register(t, p, `{"client_name":"Claude","redirect_uris":["https://claude.ai/api/mcp/auth_callback"],"token_endpoint_auth_method":"none"}`)
	require.Equal(t, http.StatusCreated, rec.Code, out)
	assert.Equal(t, "none", out["token_endpoint_auth_method"])
	assert.NotContains(t, out, "client_secret")
	assert.Equal(t, []any{"authorization_code", "refresh_token"}, out["grant_types"])

	c, err := ms.GetClient(context.Background(), out["client_id"].(string))
	require.NoError(t, err)
	assert.True(t, c.Public())
	assert.Equal(t, "Claude", c.Name)
	assert.Equal(t, []string{"https://claude.ai/api/mcp/auth_callback"}, c.RedirectURIs)
}

func TestRegister_ConfidentialClient(t *testing.T) {
	p, ms := newTestProvider(t)

	rec, out := register(t, p, `{"client_name":"CLI","redirect_uris":["http://localhost:8976/cb"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, out)
	assert.Equal(t, AuthMethodBasic, out["token_endpoint_auth_method"])
	secret, _ := out["client_secret"].(string)
	require.NotEmpty(t, secret)
	clientID := out["client_id"].(string)

	c, err := ms.GetClient(context.Background(), clientID)
	require.NoError(t, err)
	assert.False(t, c.Public())
	assert.NotContains(t, c.SecretHash, secret)

	info := &RequestInfo{ResponseType: "code", ClientID: clientID, RedirectURI: "http://localhost:8976/cb"}
	form := url.Values{"grant_type": {"authorization_code"}, "code": {issueCode(t, p, info)}, "redirect_uri": {info.RedirectURI}}

	rec, body := postToken(t, p, form, clientID, "wrong-secret")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_client", body["error"])

	form.Set("code", issueCode(t, p, info))
	rec, body = postToken(t, p, form, clientID, secret)
	require.Equal(t, http.StatusOK, rec.Code, body)

	form.Set("code", issueCode(t, p, info))
	form.Set("client_id", clientID)
	form.Set("client_secret", secret)
	rec, body = postToken(t, p, form)
	require.Equal(t, http.StatusOK, rec.Code, body)

	form.Set("code", issueCode(t, p, info))
	form.Del("client_secret")
	rec, body = postToken(t, p, form)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_client", body["error"])
}

func TestRegister_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"not json", `nope`, "invalid_client_metadata"},
		{"no redirects", `{"client_name":"x"}`, "invalid_redirect_uri"},
		{"relative redirect", `{"redirect_uris":["/cb"]}`, "invalid_redirect_uri"},
		{"bad scheme", `{"redirect_uris":["ftp://claude.ai/cb"]}`, "invalid_redirect_uri"},
		{"fragment", `{"redirect_uris":["https://claude.ai/cb#x"]}`, "invalid_redirect_uri"},
		{"auth method", `{"redirect_uris":["https://claude.ai/cb"],"token_endpoint_auth_method":"private_key_jwt"}`, "invalid_client_metadata"},
		{"grant type", `{"redirect_uris":["https://claude.ai/cb"],"grant_types":["implicit"]}`, "invalid_client_metadata"},
		{"response type", `{"redirect_uris":["https://claude.ai/cb"],"response_types":["token"]}`, "invalid_client_metadata"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestProvider(t)
			rec, out := register(t, p, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.code, out["error"])
		})
	}
}

func TestMetadata(t *testing.T) {
	p, _ := newTestProvider(t)

	rec := httptest.NewRecorder()
	p.HandleAuthServerMetadata(rec, httptest.NewRequest(http.MethodGet, "/.well-known/oauth-authorization-server", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var as map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &as))
	assert.Equal(t, "https://wishlist.example.com", as["issuer"])
	assert.Equal(t, "https://wishlist.example.com/authorize", as["authorization_endpoint"])
	assert.Equal(t, "https://wishlist.example.com/token", as["token_endpoint"])
	assert.Equal(t, "https://wishlist.example.com/register", as["registration_endpoint"])
	assert.Equal(t, []any{"code"}, as["response_types_supported"])
	assert.Equal(t, []any{"wishlist"}, as["scopes_supported"])
	assert.Contains(t, as["code_challenge_methods_supported"], "S256")

	rec = httptest.NewRecorder()
	p.HandleResourceMetadata(rec, httptest.NewRequest(http.MethodGet, "/.well-known/oauth-protected-resource", nil))
	var pr map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pr))
	assert.Equal(t, "https://wishlist.example.com/mcp", pr["resource"])
	assert.Equal(t, []any{"https://wishlist.example.com"}, pr["authorization_servers"])

	assert.Equal(t, "https://wishlist.example.com/.well-known/oauth-protected-resource", p.ResourceMetadataURL())
}

func TestMetadata_DerivedBaseURL(t *testing.T) {
	ms := store.NewMockStore()
	p := NewProvider(ms, ms, auth.NewJWTVerifier([]byte("s"), ""), Options{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/.well-known/oauth-authorization-server", nil)
	req.Host = "wishlist.tailnet.ts.net"
	req.Header.Set("X-Forwarded-Proto", "https")
	rec := httptest.NewRecorder()
	p.HandleAuthServerMetadata(rec, req)

	var as map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &as))
	assert.Equal(t, "https://wishlist.tailnet.ts.net", as["issuer"])
}
