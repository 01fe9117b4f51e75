package frames

import "strings"

// NaturalLess orders strings with embedded digit runs compared by value,
// so "frame2" sorts before "frame10".
func NaturalLess(a, b string) bool {
	return compareNatural(a, b) < 0
}

func compareNatural(a, b string) int {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if isDigit(a[i]) && isDigit(b[j]) {
			ai := i
			for i < len(a) && isDigit(a[i]) {
				i++
			}
			bj := j
			for j < len(b) && isDigit(b[j]) {
				j++
			}
			if c := compareDigits(a[ai:i], b[bj:j]); c != 0 {
				return c
			}
			continue
		}
		ai := i
		for i < len(a) && !isDigit(a[i]) {
			i++
		}
		bj := j
		for j < len(b) && !isDigit(b[j]) {
			j++
		}
		if c := strings.Compare(a[ai:i], b[bj:j]); c != 0 {
			return c
		}
	}
	switch {
	case i < len(a):
		return 1
	case j < len(b):
		return -1
	}
	// Equal by value ("frame01" vs "frame1"); fall back to bytes for a stable order.
	return strings.Compare(a, b)
}

// compareDigits compares two digit runs numerically without parsing, so runs
// longer than a uint64 still order correctly.
func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
