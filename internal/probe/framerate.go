package probe

import (
	"strconv"
	"strings"
)

// ParseFrameRate parses an ffprobe rational ("30000/1001") or decimal
// ("29.97") frame rate. Empty, "0/0", zero or malformed values yield nil.
func ParseFrameRate(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var fr float64
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err1 := strconv.ParseFloat(strings.TrimSpace(num), 64)
		d, err2 := strconv.ParseFloat(strings.TrimSpace(den), 64)
		if err1 != nil || err2 != nil || d == 0 {
			return nil
		}
		fr = n / d
	} else {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		fr = f
	}
	if fr <= 0 {
		return nil
	}
	return &fr
}
