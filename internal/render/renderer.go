// Package render turns planner requests into files on disk: normalized
// segments, concatenated outputs and audio muxes.
package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/backmassage/loopforge/internal/ffmpeg"
	"github.com/backmassage/loopforge/internal/logging"
	"github.com/backmassage/loopforge/internal/planner"
)

// Renderer produces normalized segments. All segments rendered with the
// same Settings share codec, frame size, frame rate and audio layout.
type Renderer struct {
	Runner   ffmpeg.Runner
	Settings ffmpeg.EncodeSettings
	Log      *logging.Logger
}

// Render encodes one segment and returns it. Any failure, including an
// encoder exit without an output file, is a *RenderError.
func (r *Renderer) Render(ctx context.Context, req planner.SegmentRequest) (planner.Segment, error) {
	fail := func(err error) (planner.Segment, error) {
		return planner.Segment{}, &RenderError{Kind: req.Kind, Source: requestSource(req), Err: err}
	}

	args, err := ffmpeg.SegmentArgs(r.Settings, req)
	if err != nil {
		return fail(err)
	}
	if r.Log != nil {
		r.Log.Render("%s -> %s", req.Label(), filepath.Base(req.Output))
	}
	if err := r.Runner.Run(ctx, args, nil); err != nil {
		return fail(err)
	}
	if err := checkOutput(req.Output); err != nil {
		return fail(err)
	}
	return req.Planned(), nil
}

func requestSource(req planner.SegmentRequest) string {
	switch {
	case req.Source != nil:
		return req.Source.Path
	default:
		return req.Image
	}
}

var errEmptyOutput = errors.New("encoder produced no output")

func checkOutput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return errEmptyOutput
		}
		return err
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w (%s is empty)", errEmptyOutput, filepath.Base(path))
	}
	return nil
}
