package draw

import "math"

// pixelEpsilon absorbs float error in stamp_size / pixel_scale so that,
// for example, 24 / 0.2 yields 120 pixels rather than 119.
const pixelEpsilon = 1e-9

// StampPixels returns the side length in pixels of a stampSize arcsecond
// stamp at pixelScale arcseconds per pixel, truncated toward zero.
func StampPixels(stampSize, pixelScale float64) int {
	return int(math.Floor(stampSize/pixelScale + pixelEpsilon))
}

// CenterOffset returns the pixel coordinate of the stamp center,
// (stampSize/pixelScale - 1) / 2.
func CenterOffset(stampSize, pixelScale float64) float64 {
	return (stampSize/pixelScale - 1) / 2
}

// PixelCenter converts a sky offset from the blend center (arcseconds) to a
// pixel coordinate: offset/pixelScale + CenterOffset.
func PixelCenter(offset, stampSize, pixelScale float64) float64 {
	return offset/pixelScale + CenterOffset(stampSize, pixelScale)
}
