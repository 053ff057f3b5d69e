// ABOUTME: SQLite implementation of ClientStore and GrantStore for the OAuth provider
// ABOUTME: Codes and refresh tokens are consumed with DELETE ... RETURNING so each is used once

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// CreateClient registers an OAuth client.
func (s *SQLiteStore) CreateClient(ctx context.Context, client *OAuthClient) error {
	if client.CreatedAt.IsZero() {
		client.CreatedAt = s.now()
	}
	uris, err := json.Marshal(client.RedirectURIs)
	if err != nil {
		return fmt.Errorf("encoding redirect uris: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO oauth_clients (id, name, secret_hash, redirect_uris, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, client.ID, client.Name, client.SecretHash, string(uris), formatTime(client.CreatedAt))
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}
	return nil
}

// GetClient retrieves a client by ID.
func (s *SQLiteStore) GetClient(ctx context.Context, id string) (*OAuthClient, error) {
	var c OAuthClient
	var uris, createdAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, secret_hash, redirect_uris, created_at
		FROM oauth_clients WHERE id = ?
	`, id).Scan(&c.ID, &c.Name, &c.SecretHash, &uris, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting client: %w", err)
	}

	if err := json.Unmarshal([]byte(uris), &c.RedirectURIs); err != nil {
		return nil, fmt.Errorf("decoding redirect uris for %s: %w", id, err)
	}
	c.CreatedAt, _ = parseTime(createdAt)
	return &c, nil
}

// SaveAuthCode stores a pending authorization code.
func (s *SQLiteStore) SaveAuthCode(ctx context.Context, code *AuthCode) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO oauth_codes (code_hash, client_id, redirect_uri, user_id, scope, code_challenge, code_challenge_method, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, code.CodeHash, code.ClientID, code.RedirectURI, code.UserID, strings.Join(code.Scope, " "),
		code.CodeChallenge, code.CodeChallengeMethod, formatTime(code.ExpiresAt))
	if err != nil {
		return fmt.Errorf("saving auth code: %w", err)
	}
	return nil
}

// ConsumeAuthCode removes and returns a code. Expired codes are removed and
// reported as ErrExpired.
func (s *SQLiteStore) ConsumeAuthCode(ctx context.Context, codeHash string) (*AuthCode, error) {
	var c AuthCode
	var scope, expiresAt string

	err := s.db.QueryRowContext(ctx, `
		DELETE FROM oauth_codes WHERE code_hash = ?
		RETURNING code_hash, client_id, redirect_uri, user_id, scope, code_challenge, code_challenge_method, expires_at
	`, codeHash).Scan(&c.CodeHash, &c.ClientID, &c.RedirectURI, &c.UserID, &scope,
		&c.CodeChallenge, &c.CodeChallengeMethod, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("consuming auth code: %w", err)
	}

	c.Scope = strings.Fields(scope)
	if c.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, fmt.Errorf("parsing code expiry: %w", err)
	}
	if err := checkExpiry(c.ExpiresAt, s.now()); err != nil {
		return nil, err
	}
	return &c, nil
}

// SaveRefreshToken stores an issued refresh token.
func (s *SQLiteStore) SaveRefreshToken(ctx context.Context, token *RefreshToken) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO oauth_refresh_tokens (token_hash, client_id, user_id, scope, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`, token.TokenHash, token.ClientID, token.UserID, strings.Join(token.Scope, " "), formatTime(token.ExpiresAt))
	if err != nil {
		return fmt.Errorf("saving refresh token: %w", err)
	}
	return nil
}

// ConsumeRefreshToken removes and returns a refresh token.
func (s *SQLiteStore) ConsumeRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error) {
	var t RefreshToken
	var scope, expiresAt string

	err := s.db.QueryRowContext(ctx, `
		DELETE FROM oauth_refresh_tokens WHERE token_hash = ?
		RETURNING token_hash, client_id, user_id, scope, expires_at
	`, tokenHash).Scan(&t.TokenHash, &t.ClientID, &t.UserID, &scope, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("consuming refresh token: %w", err)
	}

	t.Scope = strings.Fields(scope)
	if t.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, fmt.Errorf("parsing refresh expiry: %w", err)
	}
	if err := checkExpiry(t.ExpiresAt, s.now()); err != nil {
		return nil, err
	}
	return &t, nil
}
