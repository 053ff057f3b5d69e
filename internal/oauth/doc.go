// Package oauth implements the authorization-code grant used by MCP clients.
//
// The package has two halves. Provider owns the protocol surface: parsing
// authorization requests, dynamic client registration, the token endpoint
// and the discovery documents. Authorizer owns the consent page shown at
// /authorize, where the owner approves or denies a pending request.
//
// No server-side session exists between the consent GET and POST. The
// pending request travels in the form as an encoded blob and every field is
// re-validated when the form comes back.
package oauth
