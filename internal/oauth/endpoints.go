// ABOUTME: HTTP handlers for the token, registration and discovery endpoints
// ABOUTME: Errors follow RFC 6749 / RFC 7591 JSON shapes with no-store caching

package oauth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/2389/wishlist/internal/store"
)

const maxFormBytes = 64 << 10

// Token endpoint authentication methods.
const (
	AuthMethodNone  = "none"
	AuthMethodBasic = "client_secret_basic"
	AuthMethodPost  = "client_secret_post"
)

const (
	grantAuthCode = "authorization_code"
	grantRefresh  = "refresh_token"
)

// Error codes from RFC 6749 section 5.2 and RFC 7591 section 3.2.2.
const (
	errInvalidReq    = "invalid_request"
	errInvalidClient = "invalid_client"
	errInvalidGrant  = "invalid_grant"
	errInvalidScope  = "invalid_scope"
	errUnsupported   = "unsupported_grant_type"
	errServer        = "server_error"
	errClientMeta    = "invalid_client_metadata"
	errRedirectMeta  = "invalid_redirect_uri"
)

// protocolError is an OAuth error response.
type protocolError struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
	status      int
}

func (e *protocolError) Error() string {
	return e.Code + ": " + e.Description
}

func newError(status int, code, desc string) *protocolError {
	return &protocolError{Code: code, Description: desc, status: status}
}

func writeNoStoreJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProtocolError(w http.ResponseWriter, err *protocolError) {
	if err.status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Basic realm="token"`)
	}
	writeNoStoreJSON(w, err.status, err)
}

// HandleToken serves POST /token.
func (p *Provider) HandleToken(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		writeProtocolError(w, newError(http.StatusBadRequest, errInvalidReq, "malformed form body"))
		return
	}

	client, perr := p.authenticateClient(r)
	if perr != nil {
		writeProtocolError(w, perr)
		return
	}

	var (
		resp *TokenResponse
		err  error
	)
	switch grant := r.PostForm.Get("grant_type"); grant {
	case grantAuthCode:
		resp, err = p.exchangeCode(r, client)
	case grantRefresh:
		resp, err = p.refresh(r, client)
	case "":
		err = newError(http.StatusBadRequest, errInvalidReq, "grant_type is required")
	default:
		err = newError(http.StatusBadRequest, errUnsupported, "unsupported grant_type "+grant)
	}

	if err != nil {
		var pe *protocolError
		if !errors.As(err, &pe) {
			p.logger.Error("token request failed", "client_id", client.ID, "error", err)
			pe = newError(http.StatusInternalServerError, errServer, "")
		}
		writeProtocolError(w, pe)
		return
	}
	writeNoStoreJSON(w, http.StatusOK, resp)
}

// authenticateClient identifies the calling client from HTTP Basic
// credentials or form fields. Confidential clients must present their secret.
func (p *Provider) authenticateClient(r *http.Request) (*store.OAuthClient, *protocolError) {
	id, secret, basic := r.BasicAuth()
	if basic {
		// RFC 6749 section 2.3.1 form-encodes Basic credentials.
		if v, err := url.QueryUnescape(id); err == nil {
			id = v
		}
		if v, err := url.QueryUnescape(secret); err == nil {
			secret = v
		}
	} else {
		id = r.PostForm.Get("client_id")
		secret = r.PostForm.Get("client_secret")
	}
	if id == "" {
		return nil, newError(http.StatusBadRequest, errInvalidReq, "client_id is required")
	}

	client, err := p.LookupClient(r.Context(), id)
	if err != nil {
		p.logger.Error("client lookup failed", "client_id", id, "error", err)
		return nil, newError(http.StatusInternalServerError, errServer, "")
	}
	if client == nil {
		return nil, newError(http.StatusUnauthorized, errInvalidClient, "unknown client")
	}
	if client.Public() {
		return client, nil
	}
	if secret == "" || bcrypt.CompareHashAndPassword([]byte(client.SecretHash), []byte(secret)) != nil {
		return nil, newError(http.StatusUnauthorized, errInvalidClient, "client authentication failed")
	}
	return client, nil
}

func (p *Provider) exchangeCode(r *http.Request, client *store.OAuthClient) (*TokenResponse, error) {
	code := r.PostForm.Get("code")
	if code == "" {
		return nil, newError(http.StatusBadRequest, errInvalidReq, "code is required")
	}

	grant, err := p.grants.ConsumeAuthCode(r.Context(), hashToken(code))
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrExpired) {
		return nil, newError(http.StatusBadRequest, errInvalidGrant, "authorization code is invalid or expired")
	}
	if err != nil {
		return nil, err
	}

	if grant.ClientID != client.ID {
		return nil, newError(http.StatusBadRequest, errInvalidGrant, "code was issued to another client")
	}
	if r.PostForm.Get("redirect_uri") != grant.RedirectURI {
		return nil, newError(http.StatusBadRequest, errInvalidGrant, "redirect_uri does not match")
	}
	if grant.CodeChallenge != "" {
		verifier := r.PostForm.Get("code_verifier")
		if verifier == "" {
			return nil, newError(http.StatusBadRequest, errInvalidReq, "code_verifier is required")
		}
		if !verifyPKCE(grant.CodeChallenge, grant.CodeChallengeMethod, verifier) {
			return nil, newError(http.StatusBadRequest, errInvalidGrant, "code_verifier does not match")
		}
	}

	return p.issueTokens(r.Context(), client.ID, grant.UserID, grant.Scope)
}

func (p *Provider) refresh(r *http.Request, client *store.OAuthClient) (*TokenResponse, error) {
	token := r.PostForm.Get("refresh_token")
	if token == "" {
		return nil, newError(http.StatusBadRequest, errInvalidReq, "refresh_token is required")
	}

	grant, err := p.grants.ConsumeRefreshToken(r.Context(), hashToken(token))
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrExpired) {
		return nil, newError(http.StatusBadRequest, errInvalidGrant, "refresh token is invalid or expired")
	}
	if err != nil {
		return nil, err
	}
	if grant.ClientID != client.ID {
		return nil, newError(http.StatusBadRequest, errInvalidGrant, "refresh token was issued to another client")
	}

	scope := grant.Scope
	if requested := strings.Fields(r.PostForm.Get("scope")); len(requested) > 0 {
		for _, s := range requested {
			if !slices.Contains(grant.Scope, s) {
				return nil, newError(http.StatusBadRequest, errInvalidScope, "scope exceeds the original grant")
			}
		}
		scope = requested
	}
	return p.issueTokens(r.Context(), client.ID, grant.UserID, scope)
}

func verifyPKCE(challenge, method, verifier string) bool {
	var computed string
	switch method {
	case ChallengePlain:
		computed = verifier
	case ChallengeS256:
		sum := sha256.Sum256([]byte(verifier))
		computed = base64.RawURLEncoding.EncodeToString(sum[:])
	default:
		return false
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) == 1
}

// RegistrationRequest is the RFC 7591 client metadata accepted by /register.
type RegistrationRequest struct {
	ClientName              string   `json:"client_name"`
	RedirectURIs            []string `json:"redirect_uris"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
	GrantTypes              []string `json:"grant_types,omitempty"`
	ResponseTypes           []string `json:"response_types,omitempty"`
}

// RegistrationResponse is returned once on successful registration.
type RegistrationResponse struct {
	ClientID                string   `json:"client_id"`
	ClientSecret            string   `json:"client_secret,omitempty"`
	ClientIDIssuedAt        int64    `json:"client_id_issued_at"`
	ClientSecretExpiresAt   *int64   `json:"client_secret_expires_at,omitempty"`
	ClientName              string   `json:"client_name,omitempty"`
	RedirectURIs            []string `json:"redirect_uris"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
	GrantTypes              []string `json:"grant_types"`
	ResponseTypes           []string `json:"response_types"`
}

// HandleRegister serves POST /register (dynamic client registration).
func (p *Provider) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegistrationRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFormBytes))
	if err := dec.Decode(&req); err != nil {
		writeProtocolError(w, newError(http.StatusBadRequest, errClientMeta, "body must be a JSON object"))
		return
	}

	if perr := validateRegistration(&req); perr != nil {
		writeProtocolError(w, perr)
		return
	}

	client := &store.OAuthClient{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(req.ClientName),
		RedirectURIs: req.RedirectURIs,
		CreatedAt:    p.now().UTC(),
	}
	var secret string
	if req.TokenEndpointAuthMethod != AuthMethodNone {
		var err error
		if secret, err = randomToken(); err != nil {
			p.logger.Error("generate client secret", "error", err)
			writeProtocolError(w, newError(http.StatusInternalServerError, errServer, ""))
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
		if err != nil {
			p.logger.Error("hash client secret", "error", err)
			writeProtocolError(w, newError(http.StatusInternalServerError, errServer, ""))
			return
		}
		client.SecretHash = string(hash)
	}

	if err := p.clients.CreateClient(r.Context(), client); err != nil {
		p.logger.Error("create client", "error", err)
		writeProtocolError(w, newError(http.StatusInternalServerError, errServer, ""))
		return
	}
	p.logger.Info("client registered", "client_id", client.ID, "name", client.Name, "public", client.Public())

	resp := RegistrationResponse{
		ClientID:                client.ID,
		ClientSecret:            secret,
		ClientIDIssuedAt:        client.CreatedAt.Unix(),
		ClientName:              client.Name,
		RedirectURIs:            client.RedirectURIs,
		TokenEndpointAuthMethod: req.TokenEndpointAuthMethod,
		GrantTypes:              []string{grantAuthCode, grantRefresh},
		ResponseTypes:           []string{ResponseTypeCode},
	}
	if secret != "" {
		never := int64(0)
		resp.ClientSecretExpiresAt = &never
	}
	writeNoStoreJSON(w, http.StatusCreated, resp)
}

func validateRegistration(req *RegistrationRequest) *protocolError {
	if len(req.RedirectURIs) == 0 {
		return newError(http.StatusBadRequest, errRedirectMeta, "redirect_uris is required")
	}
	for _, raw := range req.RedirectURIs {
		u, err := url.Parse(raw)
		if err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") || u.Fragment != "" {
			return newError(http.StatusBadRequest, errRedirectMeta, "invalid redirect uri: "+raw)
		}
	}
	switch req.TokenEndpointAuthMethod {
	case "":
		req.TokenEndpointAuthMethod = AuthMethodBasic
	case AuthMethodNone, AuthMethodBasic, AuthMethodPost:
	default:
		return newError(http.StatusBadRequest, errClientMeta, "unsupported token_endpoint_auth_method")
	}
	for _, g := range req.GrantTypes {
		if g != grantAuthCode && g != grantRefresh {
			return newError(http.StatusBadRequest, errClientMeta, "unsupported grant type "+g)
		}
	}
	for _, rt := range req.ResponseTypes {
		if rt != ResponseTypeCode {
			return newError(http.StatusBadRequest, errClientMeta, "unsupported response type "+rt)
		}
	}
	return nil
}

// HandleAuthServerMetadata serves GET /.well-known/oauth-authorization-server.
func (p *Provider) HandleAuthServerMetadata(w http.ResponseWriter, r *http.Request) {
	base := p.baseURL(r)
	writeMetadata(w, map[string]any{
		"issuer":                                base,
		"authorization_endpoint":                base + "/authorize",
		"token_endpoint":                        base + "/token",
		"registration_endpoint":                 base + "/register",
		"response_types_supported":              []string{ResponseTypeCode},
		"response_modes_supported":              []string{"query"},
		"grant_types_supported":                 []string{grantAuthCode, grantRefresh},
		"token_endpoint_auth_methods_supported": []string{AuthMethodBasic, AuthMethodPost, AuthMethodNone},
		"code_challenge_methods_supported":      []string{ChallengePlain, ChallengeS256},
		"scopes_supported":                      p.opts.Scopes,
	})
}

// HandleResourceMetadata serves GET /.well-known/oauth-protected-resource.
func (p *Provider) HandleResourceMetadata(w http.ResponseWriter, r *http.Request) {
	base := p.baseURL(r)
	writeMetadata(w, map[string]any{
		"resource":                 base + "/mcp",
		"authorization_servers":    []string{base},
		"scopes_supported":         p.opts.Scopes,
		"bearer_methods_supported": []string{"header"},
	})
}

func writeMetadata(w http.ResponseWriter, doc map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_ = json.NewEncoder(w).Encode(doc)
}

// baseURL returns the configured origin, or one derived from the request
// when none is configured.
func (p *Provider) baseURL(r *http.Request) string {
	if p.opts.BaseURL != "" {
		return p.opts.BaseURL
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
