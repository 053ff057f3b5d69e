// Package auth provides bearer-token authentication for the wishlist gateway.
//
// # Authentication Methods
//
// Two kinds of bearer token are accepted, both resolving to the single
// principal "owner":
//
//   - API token: a static shared secret from auth.api_token. Compared with
//     CompareToken, which checks length first and then compares every byte
//     in constant time.
//
//   - JWT access token: issued by the OAuth token endpoint, signed with HS256
//     using auth.jwt_secret. Carries the granted scope and client_id.
//
// ChainVerifier tries each configured verifier in order. A verifier whose
// secret is not configured rejects every token.
//
// # HTTP Middleware
//
//	BearerMiddleware(verifier, resourceMetadataURL, logger)
//
// Rejected requests get 401 with a JSON body and a WWW-Authenticate header
// pointing at the protected-resource metadata document, so OAuth clients can
// discover the authorization server.
//
// # Context Propagation
//
// Authenticated requests carry an AuthContext:
//
//	authCtx := auth.FromContext(ctx)
//	if authCtx.HasScope("wishlist") { ... }
package auth
