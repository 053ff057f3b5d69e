// Package config handles configuration loading for the wishlist gateway.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from WISHLIST_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/wishlist/config.yaml
//  3. ~/.config/wishlist/config.yaml
//
// A missing file is not an error; defaults and environment variables are
// used instead.
//
// # Environment Variables
//
// Values can reference environment variables with ${VAR_NAME}:
//
//	auth:
//	  approve_password: "${WISHLIST_APPROVE_PASSWORD}"
//
// The following variables override the file directly:
//
//	WISHLIST_HTTP_ADDR         server.http_addr
//	WISHLIST_BASE_URL          server.base_url
//	WISHLIST_DB_PATH           database.path
//	WISHLIST_API_TOKEN         auth.api_token
//	WISHLIST_APPROVE_PASSWORD  auth.approve_password
//	WISHLIST_JWT_SECRET        auth.jwt_secret
//	WISHLIST_REDIS_URL         oauth.redis_url
//	WISHLIST_TS_AUTHKEY        tailscale.auth_key
//	WISHLIST_LOG_LEVEL         logging.level
//
// # Durations
//
// Duration values use Go's time.ParseDuration syntax and must be positive:
//
//	oauth:
//	  access_token_ttl: "1h"
//	  refresh_token_ttl: "720h"
//	  code_ttl: "10m"
//	  failure_interval: "1m"
//
// # Sections
//
//	server:
//	  http_addr: "127.0.0.1:8787"
//	  base_url: "https://wishlist.example.com"
//	  shutdown_timeout: "5s"
//
//	database:
//	  path: "~/.local/share/wishlist/wishlist.db"
//
//	auth:
//	  api_token: "..."           # bearer token for /mcp and /api
//	  approve_password: "..."    # consent page password
//	  allow_passwordless: false
//	  jwt_secret: "..."          # enables OAuth; at least 32 characters
//
//	oauth:
//	  allowed_redirect_hosts: ["claude.ai", "claude.com", "localhost", "127.0.0.1"]
//	  redis_url: ""              # optional grant store
//	  failure_burst: 5
//
//	api:
//	  require_auth: false
//
//	cors:
//	  allowed_origins: ["http://localhost:5173"]
//
//	tailscale:
//	  enabled: false
//	  hostname: "wishlist"
//	  state_dir: ""
//	  ephemeral: false
//
//	logging:
//	  level: "info"              # debug, info, warn, error
//	  format: "text"             # text or json
//
//	metrics:
//	  enabled: false
//	  path: "/metrics"
package config
