// ABOUTME: Store interfaces and data types for wishlist persistence
// ABOUTME: Defines item, OAuth client and grant storage contracts shared by SQLite, Redis and mock backends

package store

import (
	"context"
	"errors"
	"time"

	"github.com/2389/wishlist/internal/wishlist"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrExpired is returned when a grant exists but is past its expiry.
// The grant is consumed either way.
var ErrExpired = errors.New("expired")

// OAuthClient is a registered OAuth client application.
type OAuthClient struct {
	ID           string
	Name         string
	SecretHash   string // bcrypt hash; empty for public clients
	RedirectURIs []string
	CreatedAt    time.Time
}

// Public reports whether the client authenticates without a secret.
func (c *OAuthClient) Public() bool {
	return c.SecretHash == ""
}

// HasRedirectURI reports whether uri exactly matches a registered URI.
func (c *OAuthClient) HasRedirectURI(uri string) bool {
	for _, u := range c.RedirectURIs {
		if u == uri {
			return true
		}
	}
	return false
}

// AuthCode is a pending authorization code. Only a hash of the code is stored.
type AuthCode struct {
	CodeHash            string
	ClientID            string
	RedirectURI         string
	UserID              string
	Scope               []string
	CodeChallenge       string
	CodeChallengeMethod string
	ExpiresAt           time.Time
}

// RefreshToken is an issued refresh token. Only a hash of the token is stored.
type RefreshToken struct {
	TokenHash string
	ClientID  string
	UserID    string
	Scope     []string
	ExpiresAt time.Time
}

// ItemStore persists wishlist items.
type ItemStore interface {
	ListItems(ctx context.Context, filter wishlist.ListFilter) ([]*wishlist.Item, error)
	GetItem(ctx context.Context, id string) (*wishlist.Item, error)
	CreateItem(ctx context.Context, in wishlist.CreateInput) (*wishlist.Item, error)
	UpdateItem(ctx context.Context, id string, in wishlist.UpdateInput) (*wishlist.Item, error)
	DeleteItem(ctx context.Context, id string) error
	Summarize(ctx context.Context) (*wishlist.Summary, error)
}

// ClientStore persists OAuth client registrations.
type ClientStore interface {
	CreateClient(ctx context.Context, client *OAuthClient) error
	GetClient(ctx context.Context, id string) (*OAuthClient, error)
}

// GrantStore holds short-lived authorization codes and refresh tokens.
// Consume methods are single use: a grant is removed by the call that
// returns it, so concurrent consumers see it at most once.
type GrantStore interface {
	SaveAuthCode(ctx context.Context, code *AuthCode) error
	ConsumeAuthCode(ctx context.Context, codeHash string) (*AuthCode, error)
	SaveRefreshToken(ctx context.Context, token *RefreshToken) error
	ConsumeRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error)
}

// Store is the full persistence surface used by the gateway.
type Store interface {
	ItemStore
	ClientStore
	GrantStore

	// Ping checks that the backing database is reachable
	Ping(ctx context.Context) error

	// Close releases any resources held by the store
	Close() error
}

func checkExpiry(exp time.Time, now time.Time) error {
	if !now.Before(exp) {
		return ErrExpired
	}
	return nil
}
