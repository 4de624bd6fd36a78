package probe

import (
	"errors"
	"fmt"
)

// Wrapped by ProbeError when a file lacks a stream its job needs.
var (
	ErrNoVideo = errors.New("no video stream")
	ErrNoAudio = errors.New("no audio stream")
)

// ProbeError reports a source that could not be inspected: ffprobe failed,
// its output did not parse, or a required stream is missing.
type ProbeError struct {
	Path string
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Path, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }
