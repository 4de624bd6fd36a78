package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/backmassage/loopforge/internal/display"
	"github.com/backmassage/loopforge/internal/planner"
)

// ClipReport is one probed clip in the analysis table.
type ClipReport struct {
	Path     string
	Dims     planner.Dimensions
	Duration float64
	FPS      string
	Audio    string
	Segments int    // Ambient playlist length for this clip.
	Flags    string // "hdr", "interlaced", "short", "long".
	Err      error
}

// Analyze probes every clip in dir and prints what an ambient run would do
// with each: output frame, playlist length and source traits. Clips whose
// duration sits far outside the folder's interquartile range are flagged,
// since very short clips produce very long playlists.
func (r *Runner) Analyze(ctx context.Context, dir string) ([]ClipReport, error) {
	files, err := discoverRequired("clip folder", dir, VideoExtensions)
	if err != nil {
		return nil, err
	}
	r.Log.Info("Analyzing %d clip(s) in %s", len(files), dir)

	target := r.Cfg.Ambient.TargetSeconds()
	reports := make([]ClipReport, 0, len(files))
	var durations []float64
	for _, path := range files {
		if ctx.Err() != nil {
			r.Log.Warn("Interrupted")
			break
		}
		rep := ClipReport{Path: path}
		src, err := r.Prober.Probe(ctx, path)
		if err != nil {
			rep.Err = err
			reports = append(reports, rep)
			continue
		}
		rep.Dims = planner.OutputDims(r.Cfg.Ambient.Width, r.Cfg.Ambient.Height, src)
		rep.Duration = src.DurationSeconds
		rep.FPS = "?"
		if src.FrameRate != nil {
			rep.FPS = fmt.Sprintf("%.2f", *src.FrameRate)
		}
		rep.Audio = "none"
		if src.HasAudio {
			rep.Audio = src.AudioCodec
		}
		unit := planner.Segment{Duration: src.DurationSeconds}
		pl := planner.BuildAmbientPlaylist(planner.Segment{Duration: r.Cfg.Ambient.CoverSeconds}, unit, unit,
			r.Cfg.Ambient.CoverSeconds, src.DurationSeconds, target)
		rep.Segments = pl.Len()
		var flags []string
		if src.HDR {
			flags = append(flags, "hdr")
		}
		if src.Interlaced {
			flags = append(flags, "interlaced")
		}
		rep.Flags = strings.Join(flags, ",")
		durations = append(durations, src.DurationSeconds)
		reports = append(reports, rep)
	}

	bounds := computeStats(durations)
	for i := range reports {
		if reports[i].Err != nil {
			continue
		}
		if class := bounds.classify(reports[i].Duration); class != "" {
			reports[i].Flags = joinFlag(reports[i].Flags, class)
		}
	}

	if r.Out != nil {
		fmt.Fprintln(r.Out, renderClipTable(reports))
	}
	failed := 0
	for _, rep := range reports {
		if rep.Err != nil {
			failed++
		}
	}
	r.Log.Info("Analyzed %d clip(s), %d could not be probed", len(reports), failed)
	return reports, nil
}

func renderClipTable(reports []ClipReport) string {
	rows := make([][]string, 0, len(reports))
	for _, rep := range reports {
		if rep.Err != nil {
			rows = append(rows, []string{filepath.Base(rep.Path), "", "", "", "", "", rep.Err.Error()})
			continue
		}
		rows = append(rows, []string{
			filepath.Base(rep.Path),
			rep.Dims.String(),
			display.FormatDuration(rep.Duration),
			rep.FPS,
			rep.Audio,
			fmt.Sprint(rep.Segments),
			rep.Flags,
		})
	}
	return display.RenderTable(
		[]string{"Clip", "Output", "Length", "FPS", "Audio", "Segments", "Flags"},
		rows,
		[]display.Align{display.AlignLeft, display.AlignLeft, display.AlignRight, display.AlignRight, display.AlignLeft, display.AlignRight, display.AlignLeft},
	)
}

func joinFlag(flags, f string) string {
	if flags == "" {
		return f
	}
	return flags + "," + f
}

// iqrBounds holds the interquartile thresholds used to flag clip lengths.
type iqrBounds struct {
	lo, hi float64 // Q1 - 1.5*IQR, Q3 + 1.5*IQR
	valid  bool
}

func computeStats(vals []float64) iqrBounds {
	if len(vals) < 4 {
		return iqrBounds{}
	}
	sorted := slices.Clone(vals)
	slices.Sort(sorted)
	q1 := percentile(sorted, 25)
	q3 := percentile(sorted, 75)
	iqr := q3 - q1
	return iqrBounds{lo: q1 - 1.5*iqr, hi: q3 + 1.5*iqr, valid: iqr > 0}
}

// classify returns "short", "long" or "" for a clip duration.
func (b iqrBounds) classify(v float64) string {
	switch {
	case !b.valid:
		return ""
	case v < b.lo:
		return "short"
	case v > b.hi:
		return "long"
	default:
		return ""
	}
}

// percentile computes the p-th percentile using linear interpolation.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := (p / 100) * float64(len(sorted)-1)
	lo := int(rank)
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
