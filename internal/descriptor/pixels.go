package descriptor

import "image"

// FromImage samples the pixels of img into a descriptor.
func FromImage(img image.Image) []float32 {
	return FromRGBA(toNRGBA(img, 0).Pix)
}

// FromRGBA derives a descriptor from a flat row-major RGBA byte slice.
//
// Thirty-two pixels are sampled at a fixed stride of floor(pixels/32)
// (at least one). For sample i the red, green and blue channels land in
// slots i, i+32 and i+64, each mapped from [0, 255] to [-0.5, 0.5], and slot
// i+96 holds the mapped channel average. Samples past the end of the
// buffer stay zero.
func FromRGBA(pix []byte) []float32 {
	d := make([]float32, Dim)

	totalPixels := len(pix) / 4
	samplingRate := max(1, totalPixels/quarter)

	for i := range quarter {
		idx := i * samplingRate * 4
		if idx+2 >= len(pix) {
			break
		}
		r, g, b := float64(pix[idx]), float64(pix[idx+1]), float64(pix[idx+2])
		d[i] = float32(r/255 - 0.5)
		d[i+quarter] = float32(g/255 - 0.5)
		d[i+2*quarter] = float32(b/255 - 0.5)
		d[i+3*quarter] = float32((r+g+b)/(3*255) - 0.5)
	}
	return d
}
