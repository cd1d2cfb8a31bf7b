// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Descriptor constants
const (
	// DescriptorDim is the length of every face descriptor vector
	DescriptorDim = 128

	// DescriptorSamples is the number of pixels sampled by the pixel extractor
	DescriptorSamples = DescriptorDim / 4

	// MaxImageSize is the maximum dimension (width or height) for image processing
	MaxImageSize = 1920

	// DescriptorCacheTTL is the default lifetime of a cached extraction result
	DescriptorCacheTTL = 10 * time.Minute

	// DescriptorCacheCleanup is the interval for purging expired cache entries
	DescriptorCacheCleanup = 15 * time.Minute
)

// Matching constants
const (
	// DefaultMatchThreshold is the minimum similarity score (exclusive) a stored
	// record must exceed to be returned from a face search
	DefaultMatchThreshold = 0.3

	// DefaultMatchLimit is the default maximum number of face search results
	DefaultMatchLimit = 50
)

// Processing constants
const (
	// WorkerPoolSize is the default number of parallel workers for descriptor recomputation
	WorkerPoolSize = 8

	// DetectorTimeout bounds a single call to the remote face detector
	DetectorTimeout = 30 * time.Second
)

// Person record constants
const (
	// MaxPersonAge is the largest accepted age in years
	MaxPersonAge = 150

	// DateLayout is the calendar date format used for lost/seen/document dates
	DateLayout = "2006-01-02"
)
