package sampler

// Center is the normalized screen center; gaze offsets are measured from it.
const Center float32 = 0.5

// Offset returns the sample coordinate for a phosphene at (x, y): shifted by
// gaze - center when camLock is set, unchanged otherwise.
func Offset(x, y, gazeX, gazeY float32, camLock bool) (float32, float32) {
	if !camLock {
		return x, y
	}
	return x + (gazeX - Center), y + (gazeY - Center)
}

// InBounds reports whether (u, v) lies in the unit square.
func InBounds(u, v float32) bool {
	return u >= 0 && u <= 1 && v >= 0 && v <= 1
}

// Sample returns the stimulus for a phosphene at (x, y). Coordinates that
// land outside [0,1]² yield 0: no wraparound and no edge clamping.
// A nil image yields 0.
func Sample(x, y float32, img Image, gazeX, gazeY float32, camLock bool) float32 {
	if img == nil {
		return 0
	}
	u, v := Offset(x, y, gazeX, gazeY, camLock)
	if !InBounds(u, v) {
		return 0
	}
	return img.Bilinear(u, v)
}
