// Package ffmpeg builds ffmpeg argument lists from planner requests and runs
// them with a per-attempt timeout, a single retry for transient failures,
// and progress reporting.
package ffmpeg

import (
	"fmt"
	"strconv"

	"github.com/backmassage/loopforge/internal/config"
	"github.com/backmassage/loopforge/internal/planner"
)

// EncodeSettings are the encoder parameters shared by every render of a run.
type EncodeSettings struct {
	VideoCodec   string
	Preset       string
	CRF          int // Used when a request carries no budget.
	Threads      int // 0 leaves the choice to ffmpeg.
	FPS          int
	AudioBitrate string
	SampleRate   int
	Verbose      bool
}

// SettingsFromConfig copies the [encode] section.
func SettingsFromConfig(e config.Encode, verbose bool) EncodeSettings {
	return EncodeSettings{
		VideoCodec:   e.VideoCodec,
		Preset:       e.Preset,
		CRF:          e.CRF,
		Threads:      e.Threads,
		FPS:          e.FPS,
		AudioBitrate: e.AudioBitrate,
		SampleRate:   e.SampleRate,
		Verbose:      verbose,
	}
}

// preamble is the shared argument skeleton. Progress goes to stdout as
// key=value blocks; stderr carries only diagnostics.
func preamble(s EncodeSettings) []string {
	args := []string{"-hide_banner", "-nostdin", "-y"}
	if s.Verbose {
		args = append(args, "-loglevel", "info")
	} else {
		args = append(args, "-loglevel", "error")
	}
	return append(args, "-progress", "pipe:1", "-nostats")
}

// videoEncodeArgs selects codec, rate control and GOP. A budget wins over CRF.
func videoEncodeArgs(s EncodeSettings, b *planner.Budget) []string {
	args := []string{"-c:v", s.VideoCodec}
	if s.Preset != "" {
		args = append(args, "-preset", s.Preset)
	}
	if b != nil {
		args = append(args, b.Args()...)
	} else {
		args = append(args, "-crf", strconv.Itoa(s.CRF))
	}
	args = append(args,
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(s.FPS),
		"-g", strconv.Itoa(2*s.FPS),
	)
	if s.Threads > 0 {
		args = append(args, "-threads", strconv.Itoa(s.Threads))
	}
	return args
}

func audioEncodeArgs(s EncodeSettings) []string {
	return []string{
		"-c:a", "aac",
		"-b:a", s.AudioBitrate,
		"-ar", strconv.Itoa(s.SampleRate),
		"-ac", "2",
	}
}

func containerArgs() []string {
	return []string{"-movflags", "+faststart"}
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func silenceInput(s EncodeSettings, dur float64) []string {
	return []string{"-f", "lavfi", "-t", seconds(dur), "-i", planner.SilenceSource(s.SampleRate)}
}

// SegmentArgs builds the full argument list for one normalized segment.
func SegmentArgs(s EncodeSettings, req planner.SegmentRequest) ([]string, error) {
	if req.Output == "" {
		return nil, fmt.Errorf("%s segment has no output path", req.Kind)
	}
	var (
		inputs []string
		graph  string
		maps   []string
		dur    float64
	)
	switch req.Kind {
	case planner.KindCover, planner.KindStill:
		if req.Image == "" {
			return nil, fmt.Errorf("%s segment has no image", req.Kind)
		}
		if req.Duration <= 0 {
			return nil, fmt.Errorf("%s segment needs a positive duration", req.Kind)
		}
		dur = req.Duration
		inputs = append(inputs, "-loop", "1", "-framerate", strconv.Itoa(s.FPS), "-t", seconds(dur), "-i", req.Image)
		inputs = append(inputs, silenceInput(s, dur)...)
		graph = "[0:v]" + planner.VideoChain(req.Dims, s.FPS, planner.PadFit, false) + "[v]"
		maps = []string{"-map", "[v]", "-map", "1:a"}

	case planner.KindForward, planner.KindReverse:
		if req.Source == nil {
			return nil, fmt.Errorf("%s segment has no source", req.Kind)
		}
		src := req.Source
		dur = src.DurationSeconds
		inputs = append(inputs, "-i", src.Path)
		vchain := planner.VideoChain(req.Dims, s.FPS, planner.PadFit, src.Interlaced)
		if req.Kind == planner.KindReverse {
			vchain += ",reverse"
		}
		graph = "[0:v]" + vchain + "[v]"
		if src.HasAudio {
			achain := planner.AudioChain(s.SampleRate)
			if req.Kind == planner.KindReverse {
				achain = "areverse," + achain
			}
			graph += ";[0:a]" + achain + "[a]"
			maps = []string{"-map", "[v]", "-map", "[a]"}
		} else {
			inputs = append(inputs, silenceInput(s, dur)...)
			maps = []string{"-map", "[v]", "-map", "1:a"}
		}

	case planner.KindLoop:
		if req.Source == nil {
			return nil, fmt.Errorf("loop segment has no source")
		}
		if req.Duration <= 0 {
			return nil, fmt.Errorf("loop segment needs a positive duration")
		}
		dur = req.Duration
		inputs = append(inputs, "-stream_loop", "-1", "-i", req.Source.Path)
		inputs = append(inputs, silenceInput(s, dur)...)
		vchain := planner.VideoChain(req.Dims, s.FPS, planner.PadFit, req.Source.Interlaced)
		if sp := req.Speed; sp > 0 && (sp < 0.999 || sp > 1.001) {
			vchain = fmt.Sprintf("setpts=PTS/%g,", sp) + vchain
		}
		graph = "[0:v]" + vchain + "[v]"
		maps = []string{"-map", "[v]", "-map", "1:a"}

	case planner.KindComposite:
		return compositeArgs(s, req)

	default:
		return nil, fmt.Errorf("unknown segment kind %q", req.Kind)
	}

	args := preamble(s)
	args = append(args, inputs...)
	args = append(args, "-filter_complex", graph)
	args = append(args, maps...)
	args = append(args, videoEncodeArgs(s, req.Budget)...)
	args = append(args, audioEncodeArgs(s)...)
	args = append(args, "-t", seconds(dur))
	args = append(args, containerArgs()...)
	return append(args, req.Output), nil
}

// compositeArgs stacks the primary and the background into two half-height
// panels. The background is looped BackgroundLoops times and trimmed to the
// primary's duration; audio follows the request's selection.
func compositeArgs(s EncodeSettings, req planner.SegmentRequest) ([]string, error) {
	if req.Source == nil || req.Background == nil {
		return nil, fmt.Errorf("composite segment needs a primary and a background")
	}
	dur := req.Duration
	if dur <= 0 {
		dur = req.Source.DurationSeconds
	}
	panel := planner.Dimensions{Width: req.Dims.Width, Height: req.Dims.Height / 2}

	inputs := []string{"-i", req.Source.Path}
	if req.BackgroundLoops > 1 {
		inputs = append(inputs, "-stream_loop", strconv.Itoa(req.BackgroundLoops-1))
	}
	inputs = append(inputs, "-i", req.Background.Path)
	next := 2

	top := fmt.Sprintf("[0:v]%s[pri]", planner.VideoChain(panel, s.FPS, planner.PadFit, req.Source.Interlaced))
	bottom := fmt.Sprintf("[1:v]trim=duration=%s,setpts=PTS-STARTPTS,%s[bg]",
		seconds(dur), planner.VideoChain(panel, s.FPS, req.BackgroundFit, req.Background.Interlaced))
	stack := "[pri][bg]vstack=inputs=2[v]"
	if !req.PrimaryOnTop {
		stack = "[bg][pri]vstack=inputs=2[v]"
	}
	graph := top + ";" + bottom + ";" + stack
	maps := []string{"-map", "[v]"}

	if req.Audio.Silent() {
		inputs = append(inputs, silenceInput(s, dur)...)
		maps = append(maps, "-map", fmt.Sprintf("%d:a", next))
	} else {
		labels := make([]string, 0, len(req.Audio.Tracks))
		for _, t := range req.Audio.Tracks {
			if t.Source == planner.TrackOriginal {
				labels = append(labels, "0:a")
				continue
			}
			inputs = append(inputs, "-stream_loop", "-1", "-i", t.Path)
			labels = append(labels, fmt.Sprintf("%d:a", next))
			next++
		}
		mix, err := planner.AudioMixFilter(req.Audio, labels, s.SampleRate, "a")
		if err != nil {
			return nil, err
		}
		graph += ";" + mix
		maps = append(maps, "-map", "[a]")
	}

	args := preamble(s)
	args = append(args, inputs...)
	args = append(args, "-filter_complex", graph)
	args = append(args, maps...)
	args = append(args, videoEncodeArgs(s, req.Budget)...)
	args = append(args, audioEncodeArgs(s)...)
	args = append(args, "-t", seconds(dur))
	args = append(args, containerArgs()...)
	return append(args, req.Output), nil
}

// ConcatArgs joins the entries of a concat list into output, trimmed to
// exact seconds. Stream copy when every segment was normalized; otherwise
// the joined stream is re-encoded, under budget when one is given.
func ConcatArgs(s EncodeSettings, listPath, output string, exact float64, streamCopy bool, b *planner.Budget) []string {
	args := preamble(s)
	args = append(args, "-f", "concat", "-safe", "0", "-i", listPath)
	if streamCopy {
		args = append(args, "-c", "copy")
	} else {
		args = append(args, "-vf", fmt.Sprintf("fps=%d,format=yuv420p", s.FPS))
		args = append(args, videoEncodeArgs(s, b)...)
		args = append(args, "-af", planner.AudioChain(s.SampleRate))
		args = append(args, audioEncodeArgs(s)...)
	}
	if exact > 0 {
		args = append(args, "-t", seconds(exact))
	}
	args = append(args, containerArgs()...)
	return append(args, output)
}

// MuxAudioArgs lays audioPath under the video of videoPath, copying video
// and cutting both to duration.
func MuxAudioArgs(s EncodeSettings, videoPath, audioPath, output string, duration float64) []string {
	args := preamble(s)
	args = append(args, "-i", videoPath, "-i", audioPath)
	args = append(args, "-map", "0:v:0", "-map", "1:a:0", "-c:v", "copy")
	args = append(args, audioEncodeArgs(s)...)
	args = append(args, "-t", seconds(duration))
	args = append(args, containerArgs()...)
	return append(args, output)
}

// audioCodecs maps extract formats to encoders. Lossless formats ignore bitrate.
var audioCodecs = map[config.AudioFormat]struct {
	codec string
	lossy bool
}{
	config.FormatMP3:  {"libmp3lame", true},
	config.FormatAAC:  {"aac", true},
	config.FormatOGG:  {"libvorbis", true},
	config.FormatWAV:  {"pcm_s16le", false},
	config.FormatFLAC: {"flac", false},
}

// ExtractArgs writes the first audio stream of input to output in format.
func ExtractArgs(s EncodeSettings, input, output string, format config.AudioFormat, bitrate string) ([]string, error) {
	c, ok := audioCodecs[format]
	if !ok {
		return nil, fmt.Errorf("unsupported audio format %q", format)
	}
	args := preamble(s)
	args = append(args, "-i", input, "-vn", "-map", "0:a:0", "-c:a", c.codec)
	if c.lossy && bitrate != "" {
		args = append(args, "-b:a", bitrate)
	}
	return append(args, output), nil
}
