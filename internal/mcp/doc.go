// Package mcp implements the Model Context Protocol server for the wishlist.
//
// # Protocol
//
// The server speaks JSON-RPC 2.0 over the Streamable HTTP transport, answering
// every request with a single JSON body:
//
//   - POST /mcp - initialize, ping, tools/list, tools/call and notifications
//   - DELETE /mcp - terminate the session named by Mcp-Session-Id
//   - OPTIONS /mcp - CORS preflight
//
// initialize returns an Mcp-Session-Id header. Later requests may echo it; an
// unknown, expired or foreign session id is answered with 404 so the client
// re-initializes. Requests without a session id are served statelessly.
// Sessions unused for Config.SessionTTL expire; only the caller that created
// a session may delete it.
//
// # Authentication
//
// The server does not authenticate on its own. The gateway wraps it in
// auth.BearerMiddleware, which accepts either the static API token or an
// OAuth access token:
//
//	Authorization: Bearer <token>
//
// # Tools
//
//   - list_wishlist_items: filter and sort items
//   - get_wishlist_item: fetch one item by id
//   - add_wishlist_item: create an item
//   - update_wishlist_item: change the supplied fields of an item
//   - delete_wishlist_item: remove an item
//   - summarize_wishlist: counts and budget totals
//
// Tool arguments are validated by the wishlist package, the same code the
// REST API uses. Results are pretty-printed JSON in a text content block.
// Failures set isError and carry {"error": "<message>"}:
//
//	{
//	  "jsonrpc": "2.0",
//	  "id": 2,
//	  "result": {
//	    "content": [{"type": "text", "text": "{\"error\":\"Item with id 'x' not found\"}"}],
//	    "isError": true
//	  }
//	}
package mcp
