// Package probe inspects media with a single ffprobe JSON call per file and
// converts the result into the typed SourceMedia used by later stages.
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Prober runs ffprobe under a per-attempt timeout. An attempt that times
// out is retried up to Retries more times; other failures are final.
type Prober struct {
	Binary  string        // Default: "ffprobe".
	Timeout time.Duration // Zero disables the timeout.
	Retries int
}

// Probe inspects path and returns its SourceMedia. Files without a video
// stream fail with a *ProbeError wrapping ErrNoVideo.
func (p *Prober) Probe(ctx context.Context, path string) (*SourceMedia, error) {
	res, err := p.Inspect(ctx, path)
	if err != nil {
		return nil, err
	}
	return res.Source(path)
}

// Inspect returns the raw typed probe result without requiring a video
// stream. Audio-only inputs go through here.
func (p *Prober) Inspect(ctx context.Context, path string) (*ProbeResult, error) {
	var lastErr error
	for attempt := 0; attempt <= p.Retries; attempt++ {
		out, err := p.run(ctx, path)
		if err == nil {
			res, perr := ParseJSON(out)
			if perr != nil {
				return nil, &ProbeError{Path: path, Err: perr}
			}
			return res, nil
		}
		lastErr = err
		if !errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			break
		}
	}
	return nil, &ProbeError{Path: path, Err: lastErr}
}

func (p *Prober) run(ctx context.Context, path string) ([]byte, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	bin := p.Binary
	if bin == "" {
		bin = "ffprobe"
	}
	cmd := exec.CommandContext(ctx, bin,
		"-v", "error",
		"-print_format", "json",
		"-show_format", "-show_streams",
		path,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("ffprobe: %w", ctx.Err())
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("ffprobe: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("ffprobe: %w", err)
	}
	return out, nil
}

// ParseJSON converts raw ffprobe JSON output into a ProbeResult.
// Exported for testing without a real ffprobe binary.
func ParseJSON(data []byte) (*ProbeResult, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse ffprobe JSON: %w", err)
	}
	return buildResult(&raw), nil
}

// --- ffprobe JSON wire types ---

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
}

type ffprobeStream struct {
	Index          int            `json:"index"`
	CodecName      string         `json:"codec_name"`
	CodecType      string         `json:"codec_type"`
	PixFmt         string         `json:"pix_fmt"`
	Width          int            `json:"width"`
	Height         int            `json:"height"`
	Duration       string         `json:"duration"`
	BitRate        string         `json:"bit_rate"`
	FieldOrder     string         `json:"field_order"`
	ColorTransfer  string         `json:"color_transfer"`
	ColorPrimaries string         `json:"color_primaries"`
	AvgFrameRate   string         `json:"avg_frame_rate"`
	RFrameRate     string         `json:"r_frame_rate"`
	Channels       int            `json:"channels"`
	ChannelLayout  string         `json:"channel_layout"`
	SampleRate     string         `json:"sample_rate"`
	Disposition    map[string]int `json:"disposition"`
}

// --- Conversion from wire types to domain types ---

func buildResult(raw *ffprobeOutput) *ProbeResult {
	pr := &ProbeResult{
		Format: FormatInfo{
			Filename:   raw.Format.Filename,
			FormatName: raw.Format.FormatName,
			Duration:   parseFloat(raw.Format.Duration),
			Size:       parseInt64(raw.Format.Size),
			BitRate:    parseInt64(raw.Format.BitRate),
		},
	}
	for i := range raw.Streams {
		s := &raw.Streams[i]
		switch s.CodecType {
		case "video":
			vs := convertVideo(s)
			if !vs.IsAttachedPic && pr.PrimaryVideo == nil {
				pr.PrimaryVideo = &vs
			}
		case "audio":
			pr.AudioStreams = append(pr.AudioStreams, convertAudio(s))
		}
	}
	return pr
}

func convertVideo(s *ffprobeStream) VideoStream {
	return VideoStream{
		Index:          s.Index,
		Codec:          s.CodecName,
		PixFmt:         s.PixFmt,
		Width:          s.Width,
		Height:         s.Height,
		Duration:       parseFloat(s.Duration),
		AvgFrameRate:   s.AvgFrameRate,
		RFrameRate:     s.RFrameRate,
		FieldOrder:     s.FieldOrder,
		ColorTransfer:  s.ColorTransfer,
		ColorPrimaries: s.ColorPrimaries,
		IsAttachedPic:  s.Disposition["attached_pic"] == 1,
	}
}

func convertAudio(s *ffprobeStream) AudioStream {
	return AudioStream{
		Index:         s.Index,
		Codec:         s.CodecName,
		Channels:      s.Channels,
		ChannelLayout: s.ChannelLayout,
		SampleRate:    parseInt(s.SampleRate),
		BitRate:       parseInt64(s.BitRate),
		Duration:      parseFloat(s.Duration),
	}
}

// --- Numeric parsing helpers (ffprobe returns numbers as strings) ---

func parseInt64(s string) int64 {
	n, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return n
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func parseInt(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}
