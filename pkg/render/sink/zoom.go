package sink

import "math"

// Zoom limits shared by interactive viewers and raster exports.
const (
	ZoomMin  = 0.1
	ZoomMax  = 4.0
	ZoomStep = 1.03 // factor applied per wheel notch
)

// ClampZoom limits z to [ZoomMin, ZoomMax]. NaN and non-positive values
// become 1.
func ClampZoom(z float64) float64 {
	if math.IsNaN(z) || z <= 0 {
		return 1
	}
	return math.Min(math.Max(z, ZoomMin), ZoomMax)
}

// ZoomBy applies n wheel notches to z: positive n zooms in, negative out.
func ZoomBy(z float64, n int) float64 {
	return ClampZoom(z * math.Pow(ZoomStep, float64(n)))
}
