// Package display formats sizes, rates and durations for log lines and
// renders the end-of-batch results table.
package display

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// FormatBytes returns a human-readable IEC size ("512 B", "1.5 KiB", "700 MiB").
func FormatBytes(bytes int64) string {
	if bytes < 0 {
		return "-" + humanize.IBytes(uint64(-bytes))
	}
	return humanize.IBytes(uint64(bytes))
}

// FormatBytesWithSign prefixes with + or - for delta display (e.g. "- 1.2 GiB").
func FormatBytesWithSign(bytes int64) string {
	switch {
	case bytes > 0:
		return "+ " + FormatBytes(bytes)
	case bytes < 0:
		return "- " + FormatBytes(-bytes)
	default:
		return FormatBytes(0)
	}
}

// FormatBitrateLabel renders bits per second as "600 kbps" or "4.6 Mbps".
func FormatBitrateLabel(bps int64) string {
	kbps := bps / 1000
	if kbps < 1000 {
		return fmt.Sprintf("%d kbps", kbps)
	}
	return fmt.Sprintf("%.1f Mbps", float64(kbps)/1000)
}

// FormatDuration renders seconds as m:ss or h:mm:ss, rounding to the
// nearest second.
func FormatDuration(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	s := int64(math.Round(seconds))
	h, m, sec := s/3600, (s/60)%60, s%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%d:%02d", m, sec)
}
