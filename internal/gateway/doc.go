// Package gateway assembles the wishlist server.
//
// # Overview
//
// The Gateway owns the SQLite store, the optional Redis grant store, the
// HTTP server and, when enabled, a tsnet node that puts the server on a
// tailnet. New opens the stores from configuration and builds a chi router;
// Run serves until its context is canceled and then shuts down gracefully.
//
// # Routes
//
//	GET  /health                 liveness, {"status":"ok"}
//	GET  /health/ready           pings SQLite (and Redis when configured)
//	     /api/items/...          REST, CORS per cors.allowed_origins,
//	                             bearer-protected when api.require_auth is set
//	POST /mcp                    MCP JSON-RPC, bearer-protected
//	GET  /                       browser page
//	GET  /metrics                Prometheus, when metrics.enabled
//
// When auth.jwt_secret is set the OAuth authorization server is mounted as
// well:
//
//	GET|POST /authorize          consent page
//	POST     /token              code exchange and refresh
//	POST     /register           dynamic client registration
//	GET      /.well-known/oauth-authorization-server
//	GET      /.well-known/oauth-protected-resource[/mcp]
//
// Bearer tokens on /mcp are either the static API token or an access token
// minted by /token. Both pass through the same middleware.
package gateway
