package encoder

// RotationFilter maps a clockwise rotation angle to an ffmpeg video filter.
// Unknown angles yield no filter; rejecting them is the caller's job.
func RotationFilter(angle int) (string, bool) {
	switch angle {
	case 90:
		return "transpose=1", true
	case 180:
		return "transpose=1,transpose=1", true
	case 270:
		return "transpose=2", true
	default:
		return "", false
	}
}

// ValidRotation reports whether angle is one of 0, 90, 180, or 270.
func ValidRotation(angle int) bool {
	switch angle {
	case 0, 90, 180, 270:
		return true
	}
	return false
}
