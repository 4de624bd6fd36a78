package probe

// DefaultDuration is used when neither the container nor the first video
// stream reports a usable duration.
const DefaultDuration = 5.0

// FormatInfo holds container-level metadata from ffprobe's format section.
type FormatInfo struct {
	Filename   string
	FormatName string
	Duration   float64
	Size       int64
	BitRate    int64
}

// VideoStream holds the parsed properties of a single video stream.
type VideoStream struct {
	Index          int
	Codec          string
	PixFmt         string
	Width          int
	Height         int
	Duration       float64
	AvgFrameRate   string
	RFrameRate     string
	FieldOrder     string
	ColorTransfer  string
	ColorPrimaries string
	IsAttachedPic  bool
}

// AudioStream holds the parsed properties of a single audio stream.
type AudioStream struct {
	Index         int
	Codec         string
	Channels      int
	ChannelLayout string
	SampleRate    int
	BitRate       int64
	Duration      float64
}

// ProbeResult is the fully parsed output of a single ffprobe JSON call.
// PrimaryVideo is the first non-attached-pic video stream (nil if none).
type ProbeResult struct {
	Format       FormatInfo
	PrimaryVideo *VideoStream
	AudioStreams []AudioStream
}

// Duration returns the length of an audio-only or mixed input: the
// container duration, then the primary video stream, then the first audio
// stream, then [DefaultDuration].
func (p *ProbeResult) Duration() float64 {
	if d := p.knownDuration(); d > 0 {
		return d
	}
	if len(p.AudioStreams) > 0 && p.AudioStreams[0].Duration > 0 {
		return p.AudioStreams[0].Duration
	}
	return DefaultDuration
}

// VideoDuration is the length used for video sources. Audio streams are
// not consulted: the container, then the primary video stream, then
// [DefaultDuration].
func (p *ProbeResult) VideoDuration() float64 {
	if d := p.knownDuration(); d > 0 {
		return d
	}
	return DefaultDuration
}

func (p *ProbeResult) knownDuration() float64 {
	if p.Format.Duration > 0 {
		return p.Format.Duration
	}
	if p.PrimaryVideo != nil && p.PrimaryVideo.Duration > 0 {
		return p.PrimaryVideo.Duration
	}
	return 0
}

// HasAudio reports whether at least one audio stream exists.
func (p *ProbeResult) HasAudio() bool { return len(p.AudioStreams) > 0 }

// FrameRate returns the primary video frame rate, preferring avg_frame_rate
// over r_frame_rate. Nil when neither parses.
func (p *ProbeResult) FrameRate() *float64 {
	if p.PrimaryVideo == nil {
		return nil
	}
	if fr := ParseFrameRate(p.PrimaryVideo.AvgFrameRate); fr != nil {
		return fr
	}
	return ParseFrameRate(p.PrimaryVideo.RFrameRate)
}

// SourceMedia is the immutable description of a video input used by every
// later stage. Audio fields are zero when HasAudio is false.
type SourceMedia struct {
	Path            string
	Width           int
	Height          int
	DurationSeconds float64
	FrameRate       *float64
	HasAudio        bool
	AudioCodec      string
	AudioSampleRate int
	AudioChannels   int
	Interlaced      bool
	HDR             bool
}

// Source converts a probe result into SourceMedia. It fails when the file
// has no video stream.
func (p *ProbeResult) Source(path string) (*SourceMedia, error) {
	if p.PrimaryVideo == nil {
		return nil, &ProbeError{Path: path, Err: ErrNoVideo}
	}
	sm := &SourceMedia{
		Path:            path,
		Width:           p.PrimaryVideo.Width,
		Height:          p.PrimaryVideo.Height,
		DurationSeconds: p.VideoDuration(),
		FrameRate:       p.FrameRate(),
		Interlaced:      p.IsInterlaced(),
		HDR:             p.IsHDR(),
	}
	if p.HasAudio() {
		a := p.AudioStreams[0]
		sm.HasAudio = true
		sm.AudioCodec = a.Codec
		sm.AudioSampleRate = a.SampleRate
		sm.AudioChannels = a.Channels
	}
	return sm, nil
}
