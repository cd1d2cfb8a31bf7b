package constants

import "time"

// Handler pagination constants
const (
	// DefaultHandlerPageSize is the page size for paginated handler endpoints
	DefaultHandlerPageSize = 20

	// MaxHandlerPageSize caps the page_size query parameter
	MaxHandlerPageSize = 200
)

// File upload constants
const (
	// MaxUploadSize is the maximum size of a multipart upload (10 MB)
	MaxUploadSize = 10 << 20

	// MultipartImageField is the form field carrying the photo
	MultipartImageField = "image"
)

// Rate limiting constants
const (
	// SearchRatePerSecond is the sustained per-client rate for search endpoints
	SearchRatePerSecond = 5

	// SearchRateBurst is the burst allowance for search endpoints
	SearchRateBurst = 10
)

// Stats constants
const (
	// StatsCacheTTL is how long registry statistics are served from cache
	StatsCacheTTL = 30 * time.Second
)
