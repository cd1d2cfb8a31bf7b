package descriptor

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/kozaktomas/missing-persons/internal/constants"
)

// FaceDetector finds faces in an encoded image.
type FaceDetector interface {
	DetectFaces(ctx context.Context, imageData []byte) (*FaceResponse, error)
}

// Extractor computes descriptors from encoded images.
//
// Extraction tries, in order: the remote face detector (when configured),
// pixel sampling of the decoded image, and a dimension hash when only the
// image header can be read.
type Extractor struct {
	detector FaceDetector
	maxSize  int
	now      func() time.Time
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithDetector enables the remote face detector.
func WithDetector(d FaceDetector) Option {
	return func(e *Extractor) { e.detector = d }
}

// WithClock replaces the clock used by the dimension fallback.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) { e.now = now }
}

// WithMaxImageSize bounds the side length images are scaled to before
// sampling. Zero disables scaling.
func WithMaxImageSize(size int) Option {
	return func(e *Extractor) { e.maxSize = size }
}

// NewExtractor creates an extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		maxSize: constants.MaxImageSize,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HasDetector reports whether a remote detector is configured.
func (e *Extractor) HasDetector() bool {
	return e.detector != nil
}

// Extract computes the descriptor of imageData.
func (e *Extractor) Extract(ctx context.Context, imageData []byte) (*Result, error) {
	if len(imageData) == 0 {
		return nil, ErrEmptyImage
	}

	if e.detector != nil {
		if res := e.detect(ctx, imageData); res != nil {
			return res, nil
		}
	}

	img, err := decodeImage(imageData)
	if err == nil {
		pixels := toNRGBA(img, e.maxSize)
		return &Result{
			Descriptor: FromRGBA(pixels.Pix),
			Source:     SourcePixels,
			Width:      img.Bounds().Dx(),
			Height:     img.Bounds().Dy(),
		}, nil
	}

	width, height, cfgErr := decodeDimensions(imageData)
	if cfgErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrUndecodableImage, err)
	}
	log.Printf("descriptor: pixel decoding failed, using dimension fallback: %v", err)

	return &Result{
		Descriptor: FromDimensions(width, height, e.now()),
		Source:     SourceFallback,
		Width:      width,
		Height:     height,
	}, nil
}

// detect returns nil when the detector fails or finds no usable face.
func (e *Extractor) detect(ctx context.Context, imageData []byte) *Result {
	resp, err := e.detector.DetectFaces(ctx, imageData)
	if err != nil {
		log.Printf("descriptor: face detector failed: %v", err)
		return nil
	}

	face := bestFace(resp.Faces)
	if face == nil {
		return nil
	}

	if len(face.Embedding) == Dim {
		return &Result{
			Descriptor: face.Embedding,
			Source:     SourceDetector,
			DetScore:   face.DetScore,
		}
	}

	if box, ok := BoxFromCorners(face.BBox); ok {
		return &Result{
			Descriptor: FromBox(box),
			Source:     SourceBox,
			DetScore:   face.DetScore,
		}
	}
	return nil
}
