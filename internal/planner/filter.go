package planner

import (
	"fmt"
	"strings"

	"github.com/backmassage/loopforge/internal/config"
)

// deinterlaceFilter runs before scaling on interlaced sources.
const deinterlaceFilter = "yadif=mode=send_frame:parity=auto:deint=interlaced"

// AudioChannelLayout and AudioSampleFormat are the canonical audio shape of
// every normalized segment.
const (
	AudioChannelLayout = "stereo"
	AudioSampleFormat  = "fltp"
)

// VideoChain returns the normalization filter chain: fit into d, square
// pixels, constant fps, 8-bit 4:2:0. Segments built with the same d and fps
// concatenate without re-encoding.
func VideoChain(d Dimensions, fps int, fit Fit, interlaced bool) string {
	var filters []string
	if interlaced {
		filters = append(filters, deinterlaceFilter)
	}
	filters = append(filters, fitFilters(d, fit)...)
	filters = append(filters,
		"setsar=1",
		fmt.Sprintf("fps=%d", fps),
		"format=yuv420p",
	)
	return strings.Join(filters, ",")
}

func fitFilters(d Dimensions, fit Fit) []string {
	if fit.Mode == config.FillCrop {
		zoom := fit.ZoomPercent
		if zoom < 100 {
			zoom = 100
		}
		zw := even(d.Width * zoom / 100)
		zh := even(d.Height * zoom / 100)
		return []string{
			fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase", zw, zh),
			fmt.Sprintf("crop=%d:%d", d.Width, d.Height),
		}
	}
	return []string{
		fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", d.Width, d.Height),
		fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2", d.Width, d.Height),
	}
}

// AudioChain resamples to sampleRate and converts to the canonical layout.
func AudioChain(sampleRate int) string {
	return fmt.Sprintf("aresample=%d,aformat=sample_fmts=%s:channel_layouts=%s",
		sampleRate, AudioSampleFormat, AudioChannelLayout)
}

// SilenceSource is the lavfi source for a silent bed in the canonical layout.
func SilenceSource(sampleRate int) string {
	return fmt.Sprintf("anullsrc=r=%d:cl=%s", sampleRate, AudioChannelLayout)
}

// AudioMixFilter builds the filter_complex fragment for sel. inputs holds
// one stream specifier per track (e.g. "0:a", "2:a"), in track order. The
// fragment ends in the label out. Multiple tracks are mixed with the first
// as the duration reference; a single track is only level-adjusted.
func AudioMixFilter(sel AudioSelection, inputs []string, sampleRate int, out string) (string, error) {
	if len(sel.Tracks) == 0 {
		return "", fmt.Errorf("audio mix needs at least one track")
	}
	if len(inputs) != len(sel.Tracks) {
		return "", fmt.Errorf("audio mix has %d tracks but %d inputs", len(sel.Tracks), len(inputs))
	}
	chain := AudioChain(sampleRate)
	if len(sel.Tracks) == 1 {
		return fmt.Sprintf("[%s]volume=%.3f,%s[%s]", inputs[0], sel.Tracks[0].Multiplier, chain, out), nil
	}
	parts := make([]string, 0, len(sel.Tracks)+1)
	var labels strings.Builder
	for i, t := range sel.Tracks {
		label := fmt.Sprintf("mix%d", i)
		parts = append(parts, fmt.Sprintf("[%s]volume=%.3f,%s[%s]", inputs[i], t.Multiplier, chain, label))
		labels.WriteString("[" + label + "]")
	}
	parts = append(parts, fmt.Sprintf("%samix=inputs=%d:duration=first:dropout_transition=0:normalize=0[%s]",
		labels.String(), len(sel.Tracks), out))
	return strings.Join(parts, ";"), nil
}

func even(n int) int {
	if n%2 != 0 {
		return n + 1
	}
	return n
}
