// Package web serves the read-only browser view of the wishlist at "/".
//
// The page accepts the same filter and sort query parameters as the REST
// list endpoint, shows a budget summary for the listed items and renders
// memos from Markdown. Raw HTML inside memos is never passed through.
package web
