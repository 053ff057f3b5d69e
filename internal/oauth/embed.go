// ABOUTME: Embeds the consent page template into the binary using go:embed
// ABOUTME: Provides templateFS for loading templates at runtime

package oauth

import "embed"

//go:embed templates/*.html
var templateFS embed.FS
