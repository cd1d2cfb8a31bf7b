// Package descriptor turns photos into fixed-length face descriptor vectors
// and scores pairs of descriptors by cosine similarity.
//
// Only the detector source carries a real face embedding. Every other source
// is a deterministic synthetic vector derived from pixels, image dimensions,
// a face bounding box or a person's identity, and vectors produced by
// different sources are not meaningfully comparable.
package descriptor

import (
	"errors"

	"github.com/kozaktomas/missing-persons/internal/constants"
)

// Dim is the length of every descriptor.
const Dim = constants.DescriptorDim

// Source identifies the extraction path that produced a descriptor.
type Source string

const (
	SourceDetector Source = "detector"
	SourceBox      Source = "box"
	SourcePixels   Source = "pixels"
	SourceFallback Source = "fallback"
	SourceIdentity Source = "identity"
	SourceManual   Source = "manual"
)

var (
	// ErrUndecodableImage is returned when neither the pixels nor the header
	// of an image can be read.
	ErrUndecodableImage = errors.New("image could not be decoded")
	// ErrDimensionMismatch is returned when a descriptor is not Dim long.
	ErrDimensionMismatch = errors.New("descriptor must have 128 elements")
	// ErrEmptyImage is returned for zero-length input.
	ErrEmptyImage = errors.New("image data is empty")
)

// Result is the outcome of an extraction.
type Result struct {
	Descriptor []float32 `json:"descriptor"`
	Source     Source    `json:"source"`
	Width      int       `json:"width,omitempty"`
	Height     int       `json:"height,omitempty"`
	// DetScore is the detector confidence, set only for detector and box sources.
	DetScore float64 `json:"det_score,omitempty"`
}

// Validate checks that d is a usable descriptor.
func Validate(d []float32) error {
	if len(d) != Dim {
		return ErrDimensionMismatch
	}
	return nil
}
