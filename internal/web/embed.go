// ABOUTME: Embeds the wishlist page template into the binary
// ABOUTME: Provides templateFS for loading templates at startup

package web

import "embed"

//go:embed templates/*.html
var templateFS embed.FS
