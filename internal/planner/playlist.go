package planner

// fallbackUnit replaces a non-positive unit duration so playlist growth
// always terminates.
const fallbackUnit = 5.0

// Playlist is the ordered list of segments concatenated into one artifact.
// Total is the sum of all entry durations.
type Playlist struct {
	Entries []Segment
	Total   float64
}

// Append adds seg at the end.
func (p *Playlist) Append(seg Segment) {
	p.Entries = append(p.Entries, seg)
	p.Total += seg.Duration
}

// Len returns the number of entries.
func (p Playlist) Len() int { return len(p.Entries) }

// Kinds returns the entry kinds in order, for logs and tests.
func (p Playlist) Kinds() []SegmentKind {
	out := make([]SegmentKind, len(p.Entries))
	for i, e := range p.Entries {
		out[i] = e.Kind
	}
	return out
}

// BuildAmbientPlaylist starts with the cover and then alternates forward and
// reverse, one segment at a time, until the loop body (everything after the
// cover) strictly exceeds target + unitDur. The cover's and units' durations
// come from the arguments so a probe-derived length can stand in for the
// rendered one. The same inputs always produce the same playlist.
func BuildAmbientPlaylist(cover, forward, reverse Segment, coverDur, unitDur, target float64) Playlist {
	if unitDur <= 0 {
		unitDur = fallbackUnit
	}
	cover.Duration = coverDur
	forward.Duration = unitDur
	reverse.Duration = unitDur

	var pl Playlist
	pl.Append(cover)
	limit := target + unitDur
	body := 0.0
	for i := 0; body <= limit; i++ {
		if i%2 == 0 {
			pl.Append(forward)
		} else {
			pl.Append(reverse)
		}
		body += unitDur
	}
	return pl
}

// BuildSequencePlaylist keeps segments in the given order.
func BuildSequencePlaylist(segments ...Segment) Playlist {
	var pl Playlist
	for _, s := range segments {
		pl.Append(s)
	}
	return pl
}
