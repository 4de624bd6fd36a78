package planner

import (
	"fmt"
	"path/filepath"

	"github.com/backmassage/loopforge/internal/config"
	"github.com/backmassage/loopforge/internal/probe"
)

// Dimensions is an output frame size in pixels.
type Dimensions struct {
	Width  int
	Height int
}

func (d Dimensions) String() string { return fmt.Sprintf("%dx%d", d.Width, d.Height) }

// SegmentKind identifies how a segment is produced.
type SegmentKind string

const (
	KindCover     SegmentKind = "cover"     // Still image held for a fixed time over silence.
	KindForward   SegmentKind = "forward"   // Source frames in order.
	KindReverse   SegmentKind = "reverse"   // Source frames and audio reversed.
	KindComposite SegmentKind = "composite" // Primary and background stacked vertically.
	KindLoop      SegmentKind = "loop"      // Source looped to a duration with a speed factor.
	KindStill     SegmentKind = "still"     // Arbitrary image held over silence (mux tails).
)

// Segment is an intermediate clip on disk. Normalized segments share codec,
// frame size, frame rate and audio layout, so they concatenate by stream copy.
type Segment struct {
	Kind       SegmentKind
	Path       string
	Duration   float64
	Normalized bool
}

// Fit describes how a frame is fitted into its box.
type Fit struct {
	Mode        config.FillMode
	ZoomPercent int // Applies to FillCrop only.
}

// PadFit scales down and letterboxes.
var PadFit = Fit{Mode: config.FillPad, ZoomPercent: 100}

// SegmentRequest describes one segment to render. Which fields matter
// depends on Kind:
//
//   - cover, still: Image, Duration
//   - forward, reverse: Source
//   - loop: Source, Duration, Speed
//   - composite: Source (primary), Background, BackgroundLoops, Duration,
//     Audio, PrimaryOnTop, BackgroundFit
//
// Dims is the full output frame; composite panels are half its height.
type SegmentRequest struct {
	Kind            SegmentKind
	Image           string
	Source          *probe.SourceMedia
	Background      *probe.SourceMedia
	BackgroundLoops int
	Dims            Dimensions
	Duration        float64
	Speed           float64
	Audio           AudioSelection
	PrimaryOnTop    bool
	BackgroundFit   Fit
	Budget          *Budget // Nil falls back to constant quality (CRF).
	Output          string
}

// Label names the request for logs: the kind and the input's base name.
func (r SegmentRequest) Label() string {
	switch {
	case r.Source != nil:
		return string(r.Kind) + " " + baseName(r.Source.Path)
	case r.Image != "":
		return string(r.Kind) + " " + baseName(r.Image)
	default:
		return string(r.Kind)
	}
}

// NominalDuration is the length the rendered segment will have.
func (r SegmentRequest) NominalDuration() float64 {
	switch r.Kind {
	case KindForward, KindReverse:
		if r.Source == nil {
			return 0
		}
		return r.Source.DurationSeconds
	case KindComposite:
		if r.Duration <= 0 && r.Source != nil {
			return r.Source.DurationSeconds
		}
	}
	return r.Duration
}

// Planned returns the segment this request will produce, for dry runs.
func (r SegmentRequest) Planned() Segment {
	return Segment{Kind: r.Kind, Path: r.Output, Duration: r.NominalDuration(), Normalized: true}
}

func baseName(path string) string { return filepath.Base(path) }
