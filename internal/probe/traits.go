package probe

import "strings"

// IsHDR reports PQ/HLG transfer or bt2020 primaries on the primary video
// stream. Renders go out as 8-bit SDR, so callers warn about these sources.
func (p *ProbeResult) IsHDR() bool {
	if p.PrimaryVideo == nil {
		return false
	}
	switch p.PrimaryVideo.ColorTransfer {
	case "smpte2084", "arib-std-b67":
		return true
	}
	return p.PrimaryVideo.ColorPrimaries == "bt2020"
}

// IsInterlaced returns true if the primary video stream's field_order
// indicates interlaced content (tt, bb, tb, bt).
func (p *ProbeResult) IsInterlaced() bool {
	if p.PrimaryVideo == nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(p.PrimaryVideo.FieldOrder)) {
	case "tt", "bb", "tb", "bt":
		return true
	}
	return false
}
