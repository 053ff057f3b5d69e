// Package api provides the REST interface to the wishlist.
//
// Routes, mounted under /api/items:
//
//	GET    /          list items, filtered by query parameters
//	GET    /summary   counts and budget totals
//	GET    /{id}      one item
//	POST   /          create an item (201)
//	PUT    /{id}      partial update
//	DELETE /{id}      remove an item
//
// Responses wrap their payload in a named key ({"items": [...]},
// {"item": {...}}, {"summary": {...}}). Errors are {"error": "<message>"};
// validation failures add a "fields" list.
package api
