// ABOUTME: HTTP route table for the gateway built on chi
// ABOUTME: Mounts health, REST, MCP, OAuth, metrics and the browser page with their middleware

package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/2389/wishlist/internal/api"
	"github.com/2389/wishlist/internal/auth"
	"github.com/2389/wishlist/internal/mcp"
	"github.com/2389/wishlist/internal/oauth"
	"github.com/2389/wishlist/internal/web"
)

// routes builds the root handler.
func (g *Gateway) routes(logger *slog.Logger) (http.Handler, error) {
	cfg := g.config

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger.With("component", "http")))
	r.Use(middleware.Recoverer)
	if g.metrics != nil {
		r.Use(g.metrics.middleware)
		r.Method(http.MethodGet, cfg.Metrics.Path, g.metrics.handler())
	}

	// Health endpoints - no auth required
	r.Get("/health", g.handleHealth)
	r.Get("/health/ready", g.handleReady)

	jwtVerifier := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret), cfg.Server.BaseURL)
	verifier := auth.ChainVerifier{auth.NewAPITokenVerifier(cfg.Auth.APIToken), jwtVerifier}

	var metadataURL string
	if cfg.OAuthEnabled() {
		provider := oauth.NewProvider(g.store, g.grants, jwtVerifier, oauth.Options{
			BaseURL:         cfg.Server.BaseURL,
			Scopes:          cfg.OAuth.Scopes,
			AccessTokenTTL:  cfg.OAuth.AccessTokenTTL,
			RefreshTokenTTL: cfg.OAuth.RefreshTokenTTL,
			CodeTTL:         cfg.OAuth.CodeTTL,
		}, logger)
		if cfg.Server.BaseURL != "" {
			metadataURL = provider.ResourceMetadataURL()
		} else {
			g.logger.Warn("server.base_url not set; 401 challenges will not advertise resource metadata")
		}
		g.mountOAuth(r, provider, logger)
	} else {
		g.logger.Info("OAuth disabled (auth.jwt_secret not set); /mcp accepts the API token only")
	}

	bearer := auth.BearerMiddleware(verifier, metadataURL, logger)

	// REST API
	apiHandler := api.NewHandler(g.store, logger)
	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
			MaxAge:         86400,
		}))
		if cfg.API.RequireAuth {
			r.Use(bearer, auth.RequireScope(oauth.DefaultScope))
		}
		r.Mount("/items", apiHandler.Routes())
	})

	// MCP endpoint
	mcpServer, err := mcp.NewServer(mcp.Config{
		Items:   g.store,
		Logger:  logger,
		Version: g.version,
	})
	if err != nil {
		return nil, fmt.Errorf("creating MCP server: %w", err)
	}
	mcpHandler := mcp.PreflightHandler(bearer(auth.RequireScope(oauth.DefaultScope)(mcpServer)))
	r.Handle("/mcp", mcpHandler)
	r.Handle("/mcp/", mcpHandler)

	// Browser page
	r.Method(http.MethodGet, "/", web.NewHandler(g.store, logger))

	return r, nil
}

// mountOAuth registers the authorization server endpoints.
func (g *Gateway) mountOAuth(r chi.Router, provider *oauth.Provider, logger *slog.Logger) {
	cfg := g.config
	authorizer := oauth.NewAuthorizer(provider, oauth.AuthorizerOptions{
		Password:          cfg.Auth.ApprovePassword,
		AllowPasswordless: cfg.Auth.AllowPasswordless,
		AllowedHosts:      cfg.OAuth.AllowedRedirectHosts,
		FailureBurst:      cfg.OAuth.FailureBurst,
		FailureInterval:   cfg.OAuth.FailureInterval,
	}, logger)
	r.Handle("/authorize", authorizer)

	// Discovery, token and registration are called from browser-based MCP
	// clients, so they answer any origin.
	r.Group(func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization", "mcp-protocol-version"},
			MaxAge:         86400,
		}))
		r.Post("/token", provider.HandleToken)
		r.Post("/register", provider.HandleRegister)
		r.Get("/.well-known/oauth-authorization-server", provider.HandleAuthServerMetadata)
		r.Get("/.well-known/oauth-protected-resource", provider.HandleResourceMetadata)
		r.Get("/.well-known/oauth-protected-resource/mcp", provider.HandleResourceMetadata)
	})
	g.logger.Info("OAuth endpoints enabled", "base_url", cfg.Server.BaseURL)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleHealth reports liveness without touching dependencies.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady pings the store and the grant store.
func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := g.store.Ping(ctx); err != nil {
		g.logger.Warn("readiness check failed", "dependency", "sqlite", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": "database unreachable"})
		return
	}
	if g.redis != nil {
		if err := g.redis.Ping(ctx); err != nil {
			g.logger.Warn("readiness check failed", "dependency", "redis", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": "grant store unreachable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
