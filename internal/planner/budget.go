package planner

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Budget is the video rate control triple handed to the encoder. All values
// are bits per second.
type Budget struct {
	VideoBitrate int64
	MaxRate      int64
	BufferSize   int64
	Floored      bool // The computed rate fell below the floor and was raised.
}

// ComputeBudget derives a video bitrate that keeps an output of
// totalSeconds under sizeCapBytes×safety once audioBps is accounted for.
// A non-positive duration is treated as one second. When the result would
// drop below floorBps the floor wins and the size guarantee no longer holds.
func ComputeBudget(totalSeconds float64, audioBps, sizeCapBytes int64, safety float64, floorBps int64) Budget {
	if totalSeconds <= 0 {
		totalSeconds = 1
	}
	bits := float64(sizeCapBytes) * safety * 8
	video := int64(math.Floor(bits/totalSeconds)) - audioBps
	b := Budget{}
	if video < floorBps {
		video = floorBps
		b.Floored = true
	}
	b.VideoBitrate = video
	b.MaxRate = video
	b.BufferSize = 2 * video
	return b
}

// Args renders the budget as ffmpeg rate control flags in kbps.
func (b Budget) Args() []string {
	return []string{
		"-b:v", kbps(b.VideoBitrate),
		"-maxrate", kbps(b.MaxRate),
		"-bufsize", kbps(b.BufferSize),
	}
}

// EstimatedBytes predicts the output size for a duration at this budget.
func (b Budget) EstimatedBytes(seconds float64, audioBps int64) int64 {
	if seconds <= 0 {
		return 0
	}
	return int64(float64(b.VideoBitrate+audioBps) * seconds / 8)
}

func kbps(bps int64) string {
	return strconv.FormatInt(bps/1000, 10) + "k"
}

// ParseBitrate converts "192k", "1.5M" or "128000" to bits per second.
func ParseBitrate(s string) (int64, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	mult := 1.0
	switch {
	case strings.HasSuffix(v, "k"):
		mult, v = 1000, strings.TrimSuffix(v, "k")
	case strings.HasSuffix(v, "m"):
		mult, v = 1_000_000, strings.TrimSuffix(v, "m")
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("invalid bitrate %q", s)
	}
	return int64(math.Round(f * mult)), nil
}
