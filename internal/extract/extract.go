// Package extract captures the HLS manifest a page requests while it loads
// in a real browser and resolves it into formats.
package extract

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"regexp"

	"hlsgrab/internal/media"
)

// Extractor resolves a page URL into an extraction result.
type Extractor interface {
	Extract(ctx context.Context, pageURL string) (*media.Info, error)
}

// manifestPattern matches ".m3u8" at the end of the URL or right before
// its query string.
var manifestPattern = regexp.MustCompile(`\.m3u8(?:$|\?)`)

// IsManifestURL reports whether a response URL looks like an HLS manifest.
func IsManifestURL(u string) bool {
	return manifestPattern.MatchString(u)
}

// VideoID derives the 8-character hex identifier for a page URL. It is not
// collision-free.
func VideoID(pageURL string) string {
	sum := md5.Sum([]byte(pageURL))
	return hex.EncodeToString(sum[:])[:8]
}
