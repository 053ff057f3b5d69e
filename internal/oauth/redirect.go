// ABOUTME: Redirect URI allow-list enforced before any consent decision is honoured
// ABOUTME: Only listed hosts pass; non-loopback hosts must use https

package oauth

import (
	"net/url"
	"slices"
	"strings"
)

// DefaultAllowedHosts are the redirect hosts accepted when none are configured.
var DefaultAllowedHosts = []string{"claude.ai", "claude.com", "localhost", "127.0.0.1"}

// RedirectPolicy decides which redirect destinations the consent flow may
// send a browser to.
type RedirectPolicy struct {
	hosts []string
}

// NewRedirectPolicy builds a policy from hosts, falling back to
// DefaultAllowedHosts when hosts is empty.
func NewRedirectPolicy(hosts []string) *RedirectPolicy {
	if len(hosts) == 0 {
		hosts = DefaultAllowedHosts
	}
	normalized := make([]string, 0, len(hosts))
	for _, h := range hosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			normalized = append(normalized, h)
		}
	}
	return &RedirectPolicy{hosts: normalized}
}

// Allowed reports whether uri is an http(s) URI on an allow-listed host.
// Loopback hosts may use plain http; every other host requires https.
func (p *RedirectPolicy) Allowed(uri string) bool {
	u, err := url.Parse(uri)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" || !slices.Contains(p.hosts, host) {
		return false
	}
	switch u.Scheme {
	case "https":
		return true
	case "http":
		return isLoopback(host)
	default:
		return false
	}
}

func isLoopback(host string) bool {
	return host == "localhost" || host == "127.0.0.1"
}
