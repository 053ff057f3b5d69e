// ABOUTME: Consent page handler for /authorize (GET renders, POST decides)
// ABOUTME: Re-validates the returned request blob before honouring approve or deny

package oauth

import (
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/2389/wishlist/internal/auth"
	"github.com/2389/wishlist/internal/store"
)

const consentCSP = "default-src 'none'; style-src 'unsafe-inline'; form-action 'self'; frame-ancestors 'none'; base-uri 'none'"

// msgInvalidTarget is shared by every redirect and client check so a caller
// cannot tell which one failed.
const msgInvalidTarget = "Invalid redirect URI or client"

// Default limits for failed approval passwords.
const (
	DefaultFailureBurst    = 5
	DefaultFailureInterval = time.Minute
)

// AuthorizerOptions configures the consent page.
type AuthorizerOptions struct {
	// Password must be entered to approve a request.
	Password string
	// AllowPasswordless permits approval when Password is empty. Without it
	// an empty Password disables approval entirely.
	AllowPasswordless bool
	// AllowedHosts overrides DefaultAllowedHosts.
	AllowedHosts []string
	// FailureBurst failed passwords per remote address are tolerated before
	// that address is refused; one more is allowed every FailureInterval.
	FailureBurst    int
	FailureInterval time.Duration
}

// Authorizer serves the consent page at /authorize.
type Authorizer struct {
	provider          *Provider
	policy            *RedirectPolicy
	password          string
	allowPasswordless bool
	failures          *failureLimiter
	tmpl              *template.Template
	logger            *slog.Logger
}

// NewAuthorizer creates the consent handler for provider.
func NewAuthorizer(provider *Provider, opts AuthorizerOptions, logger *slog.Logger) *Authorizer {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.FailureBurst <= 0 {
		opts.FailureBurst = DefaultFailureBurst
	}
	if opts.FailureInterval <= 0 {
		opts.FailureInterval = DefaultFailureInterval
	}
	return &Authorizer{
		provider:          provider,
		policy:            NewRedirectPolicy(opts.AllowedHosts),
		password:          strings.TrimSpace(opts.Password),
		allowPasswordless: opts.AllowPasswordless,
		failures:          newFailureLimiter(opts.FailureInterval, opts.FailureBurst),
		tmpl:              template.Must(template.ParseFS(templateFS, "templates/consent.html")),
		logger:            logger.With("component", "consent"),
	}
}

// ServeHTTP dispatches GET and POST on /authorize.
func (a *Authorizer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.handleGet(w, r)
	case http.MethodPost:
		a.handlePost(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (a *Authorizer) handleGet(w http.ResponseWriter, r *http.Request) {
	info, err := ParseAuthRequest(r)
	if err != nil {
		http.Error(w, "Invalid authorization request: "+err.Error(), http.StatusBadRequest)
		return
	}

	client, err := a.provider.LookupClient(r.Context(), info.ClientID)
	if err != nil {
		a.logger.Error("client lookup failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if client == nil || !a.policy.Allowed(info.RedirectURI) || !client.HasRedirectURI(info.RedirectURI) {
		http.Error(w, msgInvalidTarget, http.StatusBadRequest)
		return
	}
	if err := info.CheckScope(a.provider.Scopes()); err != nil {
		http.Error(w, "Invalid authorization request: "+err.Error(), http.StatusBadRequest)
		return
	}

	a.render(w, http.StatusOK, client, info, "")
}

func (a *Authorizer) handlePost(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form body", http.StatusBadRequest)
		return
	}

	blob := r.PostForm.Get("oauthReqInfo")
	if blob == "" {
		http.Error(w, "Missing OAuth request info", http.StatusBadRequest)
		return
	}
	info, err := DecodeRequestInfo(blob)
	if err != nil {
		http.Error(w, "Invalid OAuth request info", http.StatusBadRequest)
		return
	}

	// Every field of the blob came back from the browser. Validate the
	// redirect target before either branch may send the browser to it.
	if !a.policy.Allowed(info.RedirectURI) {
		a.logger.Warn("redirect not allowed", "client_id", info.ClientID, "redirect_uri", info.RedirectURI)
		http.Error(w, msgInvalidTarget, http.StatusBadRequest)
		return
	}
	if info.ResponseType != ResponseTypeCode {
		http.Error(w, "Invalid response type", http.StatusBadRequest)
		return
	}
	client, err := a.provider.LookupClient(r.Context(), info.ClientID)
	if err != nil {
		a.logger.Error("client lookup failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if client == nil || !client.HasRedirectURI(info.RedirectURI) {
		a.logger.Warn("client or redirect rejected", "client_id", info.ClientID, "redirect_uri", info.RedirectURI)
		http.Error(w, msgInvalidTarget, http.StatusBadRequest)
		return
	}
	if err := info.Validate(); err != nil {
		a.logger.Warn("request blob rejected", "client_id", info.ClientID, "error", err)
		http.Error(w, "Invalid OAuth request info", http.StatusBadRequest)
		return
	}
	if err := info.CheckScope(a.provider.Scopes()); err != nil {
		http.Error(w, "Invalid scope", http.StatusBadRequest)
		return
	}

	if r.PostForm.Get("action") != "approve" {
		a.deny(w, r, info)
		return
	}

	if !a.checkPassword(w, r, client, info) {
		return
	}

	redirectTo, err := a.provider.CompleteAuthorization(r.Context(), CompleteRequest{
		Request: info,
		UserID:  auth.OwnerPrincipal,
		Scope:   info.ScopeOrDefault([]string{DefaultScope}),
	})
	if err != nil {
		a.logger.Error("complete authorization failed", "client_id", client.ID, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, redirectTo, http.StatusFound)
}

// checkPassword enforces the approval password. It writes the response and
// returns false when approval must not proceed.
func (a *Authorizer) checkPassword(w http.ResponseWriter, r *http.Request, client *store.OAuthClient, info *RequestInfo) bool {
	if a.password == "" {
		if a.allowPasswordless {
			return true
		}
		a.logger.Warn("approval refused: no approval password configured")
		http.Error(w, "Approval is not configured", http.StatusForbidden)
		return false
	}

	addr := remoteHost(r)
	if a.failures.blocked(addr) {
		a.logger.Warn("approval refused: too many failed attempts", "remote", addr, "client_id", client.ID)
		w.Header().Set("Retry-After", "60")
		http.Error(w, "Too many failed attempts", http.StatusTooManyRequests)
		return false
	}
	if !auth.CompareToken(r.PostForm.Get("password"), a.password) {
		a.failures.record(addr)
		a.logger.Warn("approval password mismatch", "remote", addr, "client_id", client.ID)
		a.render(w, http.StatusUnauthorized, client, info, "Incorrect password")
		return false
	}
	return true
}

func (a *Authorizer) deny(w http.ResponseWriter, r *http.Request, info *RequestInfo) {
	target, err := url.Parse(info.RedirectURI)
	if err != nil {
		http.Error(w, msgInvalidTarget, http.StatusBadRequest)
		return
	}
	q := target.Query()
	q.Set("error", "access_denied")
	if info.State != "" {
		q.Set("state", info.State)
	}
	target.RawQuery = q.Encode()
	a.logger.Info("authorization denied", "client_id", info.ClientID)
	http.Redirect(w, r, target.String(), http.StatusFound)
}

type consentData struct {
	ClientName       string
	RedirectURI      string
	Scope            string
	Blob             string
	PasswordRequired bool
	Error            string
}

func (a *Authorizer) render(w http.ResponseWriter, status int, client *store.OAuthClient, info *RequestInfo, errorMsg string) {
	blob, err := EncodeRequestInfo(info)
	if err != nil {
		a.logger.Error("encode request info", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	name := client.Name
	if name == "" {
		name = info.ClientID
	}
	data := consentData{
		ClientName:       name,
		RedirectURI:      info.RedirectURI,
		Scope:            strings.Join(info.ScopeOrDefault([]string{DefaultScope}), ", "),
		Blob:             blob,
		PasswordRequired: a.password != "",
		Error:            errorMsg,
	}

	setPageHeaders(w)
	w.WriteHeader(status)
	if err := a.tmpl.Execute(w, data); err != nil {
		a.logger.Error("failed to render consent page", "error", err)
	}
}

// setPageHeaders applies the headers every consent response carries.
func setPageHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Content-Security-Policy", consentCSP)
	h.Set("X-Frame-Options", "DENY")
	h.Set("Cache-Control", "no-store")
	h.Set("Referrer-Policy", "no-referrer")
}
