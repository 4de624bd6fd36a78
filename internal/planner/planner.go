package planner

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/backmassage/loopforge/internal/config"
	"github.com/backmassage/loopforge/internal/probe"
)

// AmbientPlan is everything needed to render one ambient artifact: a cover
// lead-in and forward/reverse units of the source, looped to Target.
type AmbientPlan struct {
	Source  *probe.SourceMedia
	Budget  Budget
	Target  float64
	Cover   SegmentRequest
	Forward SegmentRequest
	Reverse SegmentRequest
}

// PlanAmbient budgets the artifact over its exact target length and lays out
// the three segment renders inside workDir.
func PlanAmbient(cfg config.Config, src *probe.SourceMedia, workDir string) (AmbientPlan, error) {
	audioBps, err := ParseBitrate(cfg.Encode.AudioBitrate)
	if err != nil {
		return AmbientPlan{}, err
	}
	target := cfg.Ambient.TargetSeconds()
	b := ComputeBudget(target, audioBps, cfg.Encode.SizeCapBytes(), cfg.Encode.SizeSafety,
		int64(cfg.Encode.MinVideoKbps)*1000)
	dims := OutputDims(cfg.Ambient.Width, cfg.Ambient.Height, src)

	return AmbientPlan{
		Source: src,
		Budget: b,
		Target: target,
		Cover: SegmentRequest{
			Kind:     KindCover,
			Image:    cfg.Ambient.CoverImage,
			Dims:     dims,
			Duration: cfg.Ambient.CoverSeconds,
			Budget:   &b,
			Output:   filepath.Join(workDir, "cover.mp4"),
		},
		Forward: SegmentRequest{
			Kind:   KindForward,
			Source: src,
			Dims:   dims,
			Budget: &b,
			Output: filepath.Join(workDir, "forward.mp4"),
		},
		Reverse: SegmentRequest{
			Kind:   KindReverse,
			Source: src,
			Dims:   dims,
			Budget: &b,
			Output: filepath.Join(workDir, "reverse.mp4"),
		},
	}, nil
}

// Playlist assembles the ambient order from rendered segments.
func (p AmbientPlan) Playlist(cover, forward, reverse Segment) Playlist {
	return BuildAmbientPlaylist(cover, forward, reverse, p.Cover.Duration, p.Source.DurationSeconds, p.Target)
}

// fallbackDims is used when neither the config nor the source gives a frame size.
var fallbackDims = Dimensions{Width: 1280, Height: 720}

// OutputDims returns the configured frame size, or the source's rounded up
// to even numbers when the config leaves it at 0x0.
func OutputDims(width, height int, src *probe.SourceMedia) Dimensions {
	if width > 0 && height > 0 {
		return Dimensions{Width: width, Height: height}
	}
	if src == nil || src.Width <= 0 || src.Height <= 0 {
		return fallbackDims
	}
	return Dimensions{Width: even(src.Width), Height: even(src.Height)}
}

// StackPlan is one composite render: primary and background stacked, audio
// mixed per policy, budgeted over the primary's duration.
type StackPlan struct {
	Budget    Budget
	Duration  float64
	Composite SegmentRequest
}

// BackgroundLoops is how many back-to-back copies of the background cover
// the primary: ⌊primary/background⌋+1 when shorter, otherwise one.
func BackgroundLoops(primary, background float64) int {
	if background <= 0 || background >= primary {
		return 1
	}
	return int(math.Floor(primary/background)) + 1
}

// PlanStack builds the composite request for primary over background.
func PlanStack(cfg config.Config, primary, background *probe.SourceMedia, audio AudioSelection, workDir string) (StackPlan, error) {
	audioBps, err := ParseBitrate(cfg.Encode.AudioBitrate)
	if err != nil {
		return StackPlan{}, err
	}
	dur := primary.DurationSeconds
	b := ComputeBudget(dur, audioBps, cfg.Encode.SizeCapBytes(), cfg.Encode.SizeSafety,
		int64(cfg.Encode.MinVideoKbps)*1000)
	return StackPlan{
		Budget:   b,
		Duration: dur,
		Composite: SegmentRequest{
			Kind:            KindComposite,
			Source:          primary,
			Background:      background,
			BackgroundLoops: BackgroundLoops(dur, background.DurationSeconds),
			Dims:            Dimensions{Width: cfg.Stack.Width, Height: cfg.Stack.Height},
			Duration:        dur,
			Audio:           audio,
			PrimaryOnTop:    cfg.Stack.PrimaryOnTop,
			BackgroundFit:   Fit{Mode: cfg.Stack.Fill, ZoomPercent: cfg.Stack.ZoomPercent},
			Budget:          &b,
			Output:          filepath.Join(workDir, "composite.mp4"),
		},
	}, nil
}

// MuxPlan loops a video under an audio file, optionally followed by still
// image segments, cut to the audio's duration.
type MuxPlan struct {
	AudioPath     string
	AudioDuration float64
	Video         *probe.SourceMedia
	Matched       bool // Video was chosen by base name rather than as fallback.
	Loop          SegmentRequest
	Stills        []SegmentRequest
	StillsDropped bool // Stills would leave less than a second of footage.
}

// minLoopSeconds is the shortest looped main segment worth rendering ahead of stills.
const minLoopSeconds = 1.0

// PlanMux lays out the looped main segment and still tails. Mux renders use
// constant quality: the output length is the audio's, with no size cap.
func PlanMux(cfg config.Config, audioPath string, audioDuration float64, video *probe.SourceMedia, matched bool, stills []string, workDir string) MuxPlan {
	dims := OutputDims(cfg.Mux.Width, cfg.Mux.Height, video)
	p := MuxPlan{
		AudioPath:     audioPath,
		AudioDuration: audioDuration,
		Video:         video,
		Matched:       matched,
	}

	loopDur := audioDuration - float64(len(stills))*cfg.Mux.StillSeconds
	if len(stills) > 0 && loopDur < minLoopSeconds {
		p.StillsDropped = true
		stills = nil
		loopDur = audioDuration
	}
	for i, img := range stills {
		p.Stills = append(p.Stills, SegmentRequest{
			Kind:     KindStill,
			Image:    img,
			Dims:     dims,
			Duration: cfg.Mux.StillSeconds,
			Output:   filepath.Join(workDir, fmt.Sprintf("still_%03d.mp4", i)),
		})
	}
	p.Loop = SegmentRequest{
		Kind:     KindLoop,
		Source:   video,
		Dims:     dims,
		Duration: loopDur,
		Speed:    cfg.Mux.Speed,
		Output:   filepath.Join(workDir, "main.mp4"),
	}
	return p
}
