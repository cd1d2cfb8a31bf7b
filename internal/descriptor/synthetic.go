package descriptor

import (
	"math"
	"time"
	"unicode/utf8"
)

const quarter = Dim / 4

// FromDimensions derives a descriptor from image dimensions and the current
// time. It is used when the pixels of an image cannot be decoded but its
// header can. The result changes with the millisecond clock, so two calls
// for the same image are not guaranteed to agree.
func FromDimensions(width, height int, now time.Time) []float32 {
	hash := int64(width)*1000 + int64(height) + now.UnixMilli()%1000
	seed := float64(hash % 100)

	d := make([]float32, Dim)
	for i := range Dim {
		d[i] = float32(math.Sin(float64(i+1)*seed/50) * 0.5)
	}
	return d
}

// Box is a face bounding box in pixels.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// BoxFromCorners converts a [x1, y1, x2, y2] detector box.
func BoxFromCorners(bbox []float64) (Box, bool) {
	if len(bbox) != 4 || bbox[2] <= bbox[0] || bbox[3] <= bbox[1] {
		return Box{}, false
	}
	return Box{X: bbox[0], Y: bbox[1], Width: bbox[2] - bbox[0], Height: bbox[3] - bbox[1]}, true
}

// FromBox derives a descriptor from the geometry of a detected face box.
func FromBox(b Box) []float32 {
	cx := b.X + b.Width/2
	cy := b.Y + b.Height/2
	aspect := 0.0
	if b.Height != 0 {
		aspect = b.Width / b.Height
	}

	d := make([]float32, Dim)
	for i := range quarter {
		fi := float64(i)
		d[i] = float32(math.Sin(fi*cx/1000) * 0.5)
		d[i+quarter] = float32(math.Cos(fi*cy/1000) * 0.5)
		d[i+2*quarter] = float32(math.Sin(fi*b.Width/100) * 0.5)
		d[i+3*quarter] = float32(math.Cos(fi*aspect*10) * 0.5)
	}
	return d
}

// FromIdentity derives a stable descriptor from a person's id, age and name.
// Records registered without a photo can be scored with it.
func FromIdentity(id string, age int, name string) []float32 {
	idSum := 0
	for _, r := range id {
		idSum += int(r)
	}
	nameLen := utf8.RuneCountInString(name)

	d := make([]float32, Dim)
	for i := range quarter {
		d[i] = float32(math.Sin(float64(i+idSum)/10) * 0.5)
		d[i+quarter] = float32(math.Cos(float64(i+age)/5) * 0.5)
		d[i+2*quarter] = float32(math.Sin(float64(i+nameLen)/8) * 0.5)
		d[i+3*quarter] = float32(math.Cos(float64(i)/10) * 0.5)
	}
	return d
}
