package encoder

import (
	"regexp"
	"strconv"
)

var framePattern = regexp.MustCompile(`frame=\s*(\d+)`)

// progressKeyValue matches the key=value records emitted by -progress, which
// carry no diagnostic value once parsed.
var progressKeyValue = regexp.MustCompile(`^[a-z_]+=\S*$`)

// ParseFrame extracts the encoded frame count from one line of ffmpeg output.
func ParseFrame(line string) (uint, bool) {
	match := framePattern.FindStringSubmatch(line)
	if match == nil {
		return 0, false
	}
	value, err := strconv.ParseUint(match[1], 10, strconv.IntSize)
	if err != nil {
		return 0, false
	}
	return uint(value), true
}
