// Package store provides persistent storage for the wishlist gateway using SQLite.
//
// # Architecture
//
// The store package uses an interface-driven architecture with small
// specialized interfaces composed into Store:
//
//   - ItemStore: wishlist item CRUD plus Summarize
//   - ClientStore: OAuth client registrations
//   - GrantStore: single-use authorization codes and rotating refresh tokens
//
// SQLiteStore implements all of them in a single struct. RedisGrantStore is
// an alternative GrantStore that relies on native key expiry; the gateway
// uses it when a Redis URL is configured. MockStore is an in-memory Store for
// transport tests.
//
// # Schema
//
//   - wishlist_items: one row per item, enumerated columns guarded by CHECK
//   - oauth_clients: registered clients, redirect URIs as a JSON array
//   - oauth_codes: pending authorization codes keyed by SHA-256 hash
//   - oauth_refresh_tokens: refresh tokens keyed by SHA-256 hash
//
// Timestamps are TEXT in wishlist.TimeLayout (UTC, millisecond precision) so
// lexical order matches chronological order.
//
// # Error Handling
//
// ErrNotFound is returned when an item, client or grant does not exist.
// ErrExpired is returned when a grant is found but past its expiry; the
// grant is still consumed. Every other error is wrapped with context.
//
// # Thread Safety
//
// SQLiteStore serializes access through a single database connection.
// UpdateItem reads, writes and re-reads inside one transaction, and
// DeleteItem is a single conditional DELETE, so a concurrent delete makes an
// update report ErrNotFound rather than resurrecting the row.
//
// # Usage
//
//	s, err := store.NewSQLiteStore("/var/lib/wishlist/wishlist.db")
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	item, err := s.CreateItem(ctx, in)
package store
