package render

import (
	"fmt"

	"github.com/backmassage/loopforge/internal/planner"
)

// RenderError is a failed segment render. Source is the input the segment
// was built from (clip, image or primary).
type RenderError struct {
	Kind   planner.SegmentKind
	Source string
	Err    error
}

func (e *RenderError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("render %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("render %s %s: %v", e.Kind, e.Source, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// MuxError is a failed concatenation or final mux.
type MuxError struct {
	Output string
	Err    error
}

func (e *MuxError) Error() string {
	return fmt.Sprintf("mux %s: %v", e.Output, e.Err)
}

func (e *MuxError) Unwrap() error { return e.Err }
