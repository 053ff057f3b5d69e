// ABOUTME: OAuth provider: client lookup, authorization codes and token issuance
// ABOUTME: Codes and refresh tokens are random, single use and stored only as hashes

package oauth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/2389/wishlist/internal/auth"
	"github.com/2389/wishlist/internal/store"
)

// Default grant lifetimes.
const (
	DefaultAccessTokenTTL  = time.Hour
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
	DefaultCodeTTL         = 10 * time.Minute
)

// DefaultScope is granted when a request names no scope.
const DefaultScope = "wishlist"

// Options configures a Provider.
type Options struct {
	// BaseURL is the public origin of the server, e.g. https://wishlist.example.com.
	BaseURL         string
	Scopes          []string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	CodeTTL         time.Duration
}

func (o Options) withDefaults() Options {
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if len(o.Scopes) == 0 {
		o.Scopes = []string{DefaultScope}
	}
	if o.AccessTokenTTL <= 0 {
		o.AccessTokenTTL = DefaultAccessTokenTTL
	}
	if o.RefreshTokenTTL <= 0 {
		o.RefreshTokenTTL = DefaultRefreshTokenTTL
	}
	if o.CodeTTL <= 0 {
		o.CodeTTL = DefaultCodeTTL
	}
	return o
}

// Provider issues authorization codes and tokens for registered clients.
type Provider struct {
	clients store.ClientStore
	grants  store.GrantStore
	signer  *auth.JWTVerifier
	opts    Options
	logger  *slog.Logger
	now     func() time.Time
}

// NewProvider creates a provider. signer mints access tokens and must share
// its secret with the verifier guarding /mcp.
func NewProvider(clients store.ClientStore, grants store.GrantStore, signer *auth.JWTVerifier, opts Options, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		clients: clients,
		grants:  grants,
		signer:  signer,
		opts:    opts.withDefaults(),
		logger:  logger.With("component", "oauth"),
		now:     time.Now,
	}
}

// Scopes returns the scopes this provider advertises.
func (p *Provider) Scopes() []string {
	return p.opts.Scopes
}

// ResourceMetadataURL is the protected-resource discovery document URL
// advertised in 401 challenges.
func (p *Provider) ResourceMetadataURL() string {
	return p.opts.BaseURL + "/.well-known/oauth-protected-resource"
}

// LookupClient returns the registered client, or nil when id is unknown.
func (p *Provider) LookupClient(ctx context.Context, id string) (*store.OAuthClient, error) {
	if id == "" {
		return nil, nil
	}
	client, err := p.clients.GetClient(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup client: %w", err)
	}
	return client, nil
}

// CompleteRequest is an approved authorization request.
type CompleteRequest struct {
	Request *RequestInfo
	UserID  string
	Scope   []string
}

// CompleteAuthorization stores a single-use authorization code for an
// approved request and returns the redirect URL carrying it.
func (p *Provider) CompleteAuthorization(ctx context.Context, req CompleteRequest) (string, error) {
	target, err := url.Parse(req.Request.RedirectURI)
	if err != nil {
		return "", fmt.Errorf("parse redirect uri: %w", err)
	}

	code, err := randomToken()
	if err != nil {
		return "", err
	}
	err = p.grants.SaveAuthCode(ctx, &store.AuthCode{
		CodeHash:            hashToken(code),
		ClientID:            req.Request.ClientID,
		RedirectURI:         req.Request.RedirectURI,
		UserID:              req.UserID,
		Scope:               req.Scope,
		CodeChallenge:       req.Request.CodeChallenge,
		CodeChallengeMethod: req.Request.CodeChallengeMethod,
		ExpiresAt:           p.now().Add(p.opts.CodeTTL),
	})
	if err != nil {
		return "", fmt.Errorf("save auth code: %w", err)
	}

	q := target.Query()
	q.Set("code", code)
	if req.Request.State != "" {
		q.Set("state", req.Request.State)
	}
	target.RawQuery = q.Encode()

	p.logger.Info("authorization granted", "client_id", req.Request.ClientID, "scope", strings.Join(req.Scope, " "))
	return target.String(), nil
}

// TokenResponse is the token endpoint success body.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// issueTokens mints an access token and a fresh refresh token.
func (p *Provider) issueTokens(ctx context.Context, clientID, userID string, scope []string) (*TokenResponse, error) {
	access, err := p.signer.Generate(userID, scope, clientID, p.opts.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := randomToken()
	if err != nil {
		return nil, err
	}
	err = p.grants.SaveRefreshToken(ctx, &store.RefreshToken{
		TokenHash: hashToken(refresh),
		ClientID:  clientID,
		UserID:    userID,
		Scope:     scope,
		ExpiresAt: p.now().Add(p.opts.RefreshTokenTTL),
	})
	if err != nil {
		return nil, fmt.Errorf("save refresh token: %w", err)
	}
	return &TokenResponse{
		AccessToken:  access,
		TokenType:    "Bearer",
		ExpiresIn:    int64(p.opts.AccessTokenTTL / time.Second),
		RefreshToken: refresh,
		Scope:        strings.Join(scope, " "),
	}, nil
}

// randomToken returns 32 random bytes encoded as unpadded base64url.
func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
