// ABOUTME: MCP-compatible HTTP server exposing wishlist operations as tools.
// ABOUTME: Implements Streamable HTTP transport (JSON responses) with session management.

package mcp

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/2389/wishlist/internal/auth"
	"github.com/2389/wishlist/internal/store"
)

// Supported MCP protocol versions
var supportedProtocolVersions = map[string]bool{
	"2024-11-05": true,
	"2025-03-26": true,
	"2025-06-18": true,
	"2025-11-25": true,
}

// latestProtocolVersion is the version we advertise when the client asks for
// one we do not know.
const latestProtocolVersion = "2025-06-18"

// MaxRequestBodySize is the maximum allowed size for request bodies (1MB).
const MaxRequestBodySize = 1 << 20

// CORS headers for browser-based MCP clients.
const (
	corsAllowMethods  = "POST, DELETE, OPTIONS"
	corsAllowHeaders  = "Content-Type, Accept, Authorization, mcp-session-id, mcp-protocol-version"
	corsExposeHeaders = "mcp-session-id"
	corsMaxAge        = "86400"
)

// JSON-RPC 2.0 types

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC 2.0 error object.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Standard JSON-RPC error codes
const (
	JSONRPCParseError     = -32700
	JSONRPCInvalidRequest = -32600
	JSONRPCMethodNotFound = -32601
	JSONRPCInvalidParams  = -32602
	JSONRPCInternalError  = -32603
)

// callToolParams are the params for tools/call.
type callToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// initializeParams is the subset of initialize params we read.
type initializeParams struct {
	ProtocolVersion string `json:"protocolVersion"`
}

// DefaultSessionTTL is how long an unused session is kept.
const DefaultSessionTTL = 24 * time.Hour

// mcpSession tracks an active MCP client session.
type mcpSession struct {
	id              string
	protocolVersion string
	owner           string // principal and client that initialized the session
	createdAt       time.Time
	lastUsed        time.Time
}

// sessionStore manages active MCP sessions (in-memory). Sessions idle for
// longer than ttl are treated as gone and swept on the next create.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*mcpSession
	ttl      time.Duration
	now      func() time.Time
}

func newSessionStore(ttl time.Duration) *sessionStore {
	return &sessionStore{
		sessions: make(map[string]*mcpSession),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *sessionStore) create(protocolVersion, owner string) *mcpSession {
	now := s.now()
	sess := &mcpSession{
		id:              uuid.New().String(),
		protocolVersion: protocolVersion,
		owner:           owner,
		createdAt:       now,
		lastUsed:        now,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep(now)
	s.sessions[sess.id] = sess
	return sess
}

// touch returns the live session for id and marks it used.
func (s *sessionStore) touch(id string) (*mcpSession, bool) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if s.expired(sess, now) {
		delete(s.sessions, id)
		return nil, false
	}
	sess.lastUsed = now
	return sess, true
}

func (s *sessionStore) delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, existed := s.sessions[id]
	delete(s.sessions, id)
	return existed
}

func (s *sessionStore) expired(sess *mcpSession, now time.Time) bool {
	return now.Sub(sess.lastUsed) > s.ttl
}

// sweep drops expired sessions. Callers hold mu.
func (s *sessionStore) sweep(now time.Time) {
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, id)
		}
	}
}

// Config holds configuration for the MCP server.
type Config struct {
	Items   store.ItemStore
	Logger  *slog.Logger
	Name    string // reported in serverInfo; defaults to "wishlist"
	Version string
	// SessionTTL is the idle lifetime of a session; defaults to DefaultSessionTTL.
	SessionTTL time.Duration
}

// Server implements MCP-compatible HTTP endpoints for AI agents. Callers must
// place bearer authentication in front of it.
type Server struct {
	items    store.ItemStore
	tools    []tool
	byName   map[string]*tool
	logger   *slog.Logger
	info     mcp.Implementation
	sessions *sessionStore
}

// NewServer creates a new MCP server with the given configuration.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Items == nil {
		return nil, errors.New("item store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Name == "" {
		cfg.Name = "wishlist"
	}
	if cfg.Version == "" {
		cfg.Version = "1.0.0"
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}

	s := &Server{
		items:    cfg.Items,
		logger:   logger.With("component", "mcp"),
		info:     mcp.Implementation{Name: cfg.Name, Version: cfg.Version},
		sessions: newSessionStore(cfg.SessionTTL),
	}
	s.tools = s.wishlistTools()
	s.byName = make(map[string]*tool, len(s.tools))
	for i := range s.tools {
		s.byName[s.tools[i].def.Name] = &s.tools[i]
	}
	return s, nil
}

// ServeHTTP is the single MCP endpoint. POST carries JSON-RPC, DELETE ends a
// session and OPTIONS answers CORS preflight.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	switch r.Method {
	case http.MethodPost:
		s.handlePost(w, r)
	case http.MethodDelete:
		s.handleDelete(w, r)
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
	default:
		w.Header().Set("Allow", "POST, DELETE")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

// handleDelete terminates a session. Only the principal and client that
// initialized it may end it.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get("Mcp-Session-Id")
	if sessionID == "" {
		http.Error(w, "Bad Request: missing Mcp-Session-Id", http.StatusBadRequest)
		return
	}

	sess, ok := s.sessions.touch(sessionID)
	if !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	if sess.owner != sessionOwner(r) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	s.sessions.delete(sessionID)
	s.logger.Info("MCP session terminated",
		"session_id", sessionID,
		"age", time.Since(sess.createdAt).Round(time.Second),
	)
	w.WriteHeader(http.StatusNoContent)
}

// PreflightHandler answers CORS preflight without authentication and passes
// every other request to next. CORS headers are set on every response so
// browser clients can read 401 challenges.
func PreflightHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func setCORSHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", corsAllowMethods)
	h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
	h.Set("Access-Control-Expose-Headers", corsExposeHeaders)
	h.Set("Access-Control-Max-Age", corsMaxAge)
}

// handlePost processes JSON-RPC messages sent via HTTP POST.
func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get("Mcp-Session-Id")
	protoVersion := r.Header.Get("Mcp-Protocol-Version")

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize+1))
	if err != nil {
		s.sendJSONRPCError(w, nil, JSONRPCParseError, "failed to read request body", nil)
		return
	}
	if int64(len(body)) > MaxRequestBodySize {
		s.sendJSONRPCError(w, nil, JSONRPCInvalidRequest, "request body too large", nil)
		return
	}

	var req JSONRPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.sendJSONRPCError(w, nil, JSONRPCParseError, "invalid JSON", nil)
		return
	}

	if req.JSONRPC != "2.0" {
		s.sendJSONRPCError(w, req.ID, JSONRPCInvalidRequest, "invalid JSON-RPC version", nil)
		return
	}

	isInitialize := req.Method == "initialize"
	isNotification := len(req.ID) == 0 || string(req.ID) == "null"

	if !isInitialize && protoVersion != "" && !supportedProtocolVersions[protoVersion] {
		http.Error(w, "Bad Request: unsupported MCP-Protocol-Version", http.StatusBadRequest)
		return
	}

	// A session header must name a live session owned by the caller. Requests
	// without one are served statelessly.
	if !isInitialize && sessionID != "" {
		sess, ok := s.sessions.touch(sessionID)
		if !ok || sess.owner != sessionOwner(r) {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
	}

	s.logger.Debug("MCP request",
		"method", req.Method,
		"is_notification", isNotification,
		"session_id", sessionID,
	)

	if isNotification {
		if !strings.HasPrefix(req.Method, "notifications/") {
			s.logger.Warn("received notification for non-notification method", "method", req.Method)
		}
		w.WriteHeader(http.StatusAccepted)
		return
	}

	switch req.Method {
	case "initialize":
		s.handleInitialize(w, r, req)
	case "ping":
		s.sendJSONRPCResult(w, req.ID, struct{}{})
	case "tools/list":
		s.handleToolsList(w, req)
	case "tools/call":
		s.handleToolsCall(w, r, req)
	default:
		s.sendJSONRPCError(w, req.ID, JSONRPCMethodNotFound, "method not found", nil)
	}
}

// handleInitialize handles the MCP initialize handshake and creates a session.
func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request, req JSONRPCRequest) {
	var params initializeParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			s.sendJSONRPCError(w, req.ID, JSONRPCInvalidParams, "invalid params", nil)
			return
		}
	}
	version := latestProtocolVersion
	if supportedProtocolVersions[params.ProtocolVersion] {
		version = params.ProtocolVersion
	}

	sess := s.sessions.create(version, sessionOwner(r))
	s.logger.Info("MCP session created",
		"session_id", sess.id,
		"protocol_version", sess.protocolVersion,
	)

	w.Header().Set("Mcp-Session-Id", sess.id)

	result := map[string]any{
		"protocolVersion": version,
		"capabilities": map[string]any{
			"tools": map[string]any{},
		},
		"serverInfo": s.info,
	}
	s.sendJSONRPCResult(w, req.ID, result)
}

// handleToolsList handles tools/list requests.
func (s *Server) handleToolsList(w http.ResponseWriter, req JSONRPCRequest) {
	defs := make([]mcp.Tool, len(s.tools))
	for i, t := range s.tools {
		defs[i] = t.def
	}
	s.logger.Debug("tools/list", "count", len(defs))
	s.sendJSONRPCResult(w, req.ID, mcp.ListToolsResult{Tools: defs})
}

// handleToolsCall handles tools/call requests.
func (s *Server) handleToolsCall(w http.ResponseWriter, r *http.Request, req JSONRPCRequest) {
	var params callToolParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			s.sendJSONRPCError(w, req.ID, JSONRPCInvalidParams, "invalid params", nil)
			return
		}
	}

	if params.Name == "" {
		s.sendJSONRPCError(w, req.ID, JSONRPCInvalidParams, "tool name is required", nil)
		return
	}

	t, ok := s.byName[params.Name]
	if !ok {
		s.sendJSONRPCError(w, req.ID, JSONRPCInvalidParams, "tool not found", nil)
		return
	}

	args := params.Arguments
	if len(args) == 0 || string(args) == "null" {
		args = json.RawMessage("{}")
	}

	start := time.Now()
	result := t.call(r.Context(), args)

	s.logger.Debug("tools/call complete",
		"tool_name", params.Name,
		"is_error", result.IsError,
		"duration", time.Since(start),
	)

	s.sendJSONRPCResult(w, req.ID, result)
}

// sessionOwner identifies the authenticated caller for session binding.
func sessionOwner(r *http.Request) string {
	authCtx := auth.FromContext(r.Context())
	if authCtx == nil {
		return ""
	}
	return authCtx.PrincipalID + "|" + authCtx.ClientID
}

// sendJSONRPCResult sends a successful JSON-RPC response.
func (s *Server) sendJSONRPCResult(w http.ResponseWriter, id json.RawMessage, result any) {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("failed to encode JSON-RPC response", "error", err)
	}
}

// sendJSONRPCError sends a JSON-RPC error response.
func (s *Server) sendJSONRPCError(w http.ResponseWriter, id json.RawMessage, code int, message string, data any) {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("failed to encode JSON-RPC error response", "error", err)
	}
}
