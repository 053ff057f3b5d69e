// ABOUTME: Pending authorization request and its consent-form blob encoding
// ABOUTME: Parses /authorize query parameters into a RequestInfo

package oauth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
)

// PKCE challenge methods.
const (
	ChallengePlain = "plain"
	ChallengeS256  = "S256"
)

// ResponseTypeCode is the only supported response type. The implicit flow is
// not offered.
const ResponseTypeCode = "code"

// RequestInfo is a pending authorization request as carried between the
// consent page and its form submission.
type RequestInfo struct {
	ResponseType        string   `json:"responseType"`
	ClientID            string   `json:"clientId"`
	RedirectURI         string   `json:"redirectUri"`
	Scope               []string `json:"scope"`
	State               string   `json:"state"`
	CodeChallenge       string   `json:"codeChallenge,omitempty"`
	CodeChallengeMethod string   `json:"codeChallengeMethod,omitempty"`
}

var errInvalidBlob = errors.New("invalid request blob")

// EncodeRequestInfo serializes info for the hidden consent-form field:
// JSON, percent-encoded, then standard base64.
func EncodeRequestInfo(info *RequestInfo) (string, error) {
	raw, err := json.Marshal(info)
	if err != nil {
		return "", fmt.Errorf("marshal request info: %w", err)
	}
	return base64.StdEncoding.EncodeToString([]byte(url.PathEscape(string(raw)))), nil
}

// DecodeRequestInfo reverses EncodeRequestInfo. The result is untrusted
// client input and must be validated before use.
func DecodeRequestInfo(blob string) (*RequestInfo, error) {
	escaped, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidBlob, err)
	}
	raw, err := url.PathUnescape(string(escaped))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidBlob, err)
	}
	var info RequestInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidBlob, err)
	}
	return &info, nil
}

// ScopeOrDefault returns the requested scope, or fallback when none was
// requested.
func (ri *RequestInfo) ScopeOrDefault(fallback []string) []string {
	if len(ri.Scope) == 0 {
		return fallback
	}
	return ri.Scope
}

// Validate checks the fields of a request that do not depend on client
// registration. It runs on the query at GET and again on the blob at POST.
func (ri *RequestInfo) Validate() error {
	switch {
	case ri.ResponseType == "":
		return errors.New("response_type is required")
	case ri.ResponseType != ResponseTypeCode:
		return fmt.Errorf("unsupported response_type %q", ri.ResponseType)
	case ri.ClientID == "":
		return errors.New("client_id is required")
	case ri.RedirectURI == "":
		return errors.New("redirect_uri is required")
	}

	u, err := url.Parse(ri.RedirectURI)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return errors.New("redirect_uri must be an absolute URI")
	}
	if u.Fragment != "" {
		return errors.New("redirect_uri must not contain a fragment")
	}

	if ri.CodeChallenge == "" {
		if ri.CodeChallengeMethod != "" {
			return errors.New("code_challenge_method without code_challenge")
		}
		return nil
	}
	switch ri.CodeChallengeMethod {
	case ChallengePlain, ChallengeS256:
		return nil
	default:
		return fmt.Errorf("unsupported code_challenge_method %q", ri.CodeChallengeMethod)
	}
}

// CheckScope returns an error naming the first requested scope that is not
// in supported.
func (ri *RequestInfo) CheckScope(supported []string) error {
	for _, s := range ri.Scope {
		if !slices.Contains(supported, s) {
			return fmt.Errorf("%s: scope %q is not supported", errInvalidScope, s)
		}
	}
	return nil
}

// ParseAuthRequest reads an authorization request from the query string of r.
func ParseAuthRequest(r *http.Request) (*RequestInfo, error) {
	q := r.URL.Query()
	info := &RequestInfo{
		ResponseType:        q.Get("response_type"),
		ClientID:            q.Get("client_id"),
		RedirectURI:         q.Get("redirect_uri"),
		Scope:               strings.Fields(q.Get("scope")),
		State:               q.Get("state"),
		CodeChallenge:       q.Get("code_challenge"),
		CodeChallengeMethod: q.Get("code_challenge_method"),
	}
	switch {
	case info.CodeChallenge == "":
		info.CodeChallengeMethod = ""
	case info.CodeChallengeMethod == "":
		info.CodeChallengeMethod = ChallengePlain
	}
	if err := info.Validate(); err != nil {
		return nil, err
	}
	return info, nil
}
