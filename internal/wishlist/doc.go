// Package wishlist defines the wishlist item entity and its validation rules.
//
// # Overview
//
// An Item is a single thing the owner wants. Every enumerated attribute
// (timeframe, category, priority, status, desire type) is a closed string type
// whose valid values are listed here and mirrored by CHECK constraints in the
// store schema.
//
// # Validation
//
// Input arrives as raw JSON from two transports (REST bodies and MCP tool
// arguments) and is parsed by the same functions so both surfaces accept
// exactly the same values:
//
//	in, err := wishlist.ParseCreate(body) // full: required fields must be present
//	up, err := wishlist.ParseUpdate(body) // partial: only supplied fields are checked
//
// A failure is a *ValidationError listing every violated constraint, not just
// the first one. The package performs no I/O.
//
// # Summary
//
// Summarize folds a slice of items into totals and per-dimension breakdowns.
// Breakdown maps only contain values that were actually observed.
package wishlist
