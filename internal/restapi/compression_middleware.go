package restapi

import (
	"net/http"

	"github.com/klauspost/compress/gzhttp"
	"subwaychallenge.org/pathfinder/internal/appconf"
)

// gzipLevel trades a little ratio for speed on the JSON payloads served here.
const gzipLevel = 6

// CompressionConfig controls response compression for the API routes.
type CompressionConfig struct {
	// MinSize is the smallest body that is gzipped. Negative disables compression.
	MinSize int
	Level   int
}

// compressionConfigFor derives the compression settings from the server config.
func compressionConfigFor(cfg appconf.Config) CompressionConfig {
	minSize := cfg.GzipMinSize
	if minSize == 0 {
		minSize = appconf.DefaultGzipMinSize
	}
	return CompressionConfig{MinSize: minSize, Level: gzipLevel}
}

// NewCompressionMiddleware builds the gzip wrapper once. Journeys and stop
// lists are the large responses; shapes and errors usually stay under MinSize.
func NewCompressionMiddleware(config CompressionConfig) func(http.Handler) http.Handler {
	if config.MinSize < 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	wrapper, err := gzhttp.NewWrapper(
		gzhttp.MinSize(config.MinSize),
		gzhttp.CompressionLevel(config.Level),
	)
	if err != nil {
		return func(next http.Handler) http.Handler { return gzhttp.GzipHandler(next) }
	}
	return func(next http.Handler) http.Handler { return wrapper(next) }
}
