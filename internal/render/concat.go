package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"

	"github.com/backmassage/loopforge/internal/ffmpeg"
	"github.com/backmassage/loopforge/internal/logging"
	"github.com/backmassage/loopforge/internal/planner"
)

// Artifact is a finished output file.
type Artifact struct {
	Path       string
	Duration   float64
	Size       int64
	StreamCopy bool
}

// Concatenator joins playlists into single outputs. ListDir receives the
// concat list and should be the item's workspace.
type Concatenator struct {
	Runner   ffmpeg.Runner
	Settings ffmpeg.EncodeSettings
	Budget   *planner.Budget // Used only when a re-encode is needed.
	ListDir  string
	Log      *logging.Logger

	// ProgressOut, when set, receives a progress bar for each join.
	ProgressOut io.Writer
}

// Concatenate writes pl to outputPath. Segments are stream-copied when all
// of them are normalized, otherwise re-encoded. A positive exact cuts the
// output to that many seconds.
func (c *Concatenator) Concatenate(ctx context.Context, pl planner.Playlist, outputPath string, exact float64) (Artifact, error) {
	fail := func(err error) (Artifact, error) {
		return Artifact{}, &MuxError{Output: outputPath, Err: err}
	}
	if pl.Len() == 0 {
		return fail(errors.New("empty playlist"))
	}
	copyOK := true
	for _, seg := range pl.Entries {
		if _, err := os.Stat(seg.Path); err != nil {
			return fail(fmt.Errorf("segment %s: %w", filepath.Base(seg.Path), err))
		}
		copyOK = copyOK && seg.Normalized
	}

	listPath := filepath.Join(c.ListDir, "concat.txt")
	if err := ffmpeg.WriteConcatList(listPath, pl); err != nil {
		return fail(fmt.Errorf("write concat list: %w", err))
	}
	args := ffmpeg.ConcatArgs(c.Settings, listPath, outputPath, exact, copyOK, c.Budget)

	length := pl.Total
	if exact > 0 {
		length = exact
	}
	if c.Log != nil {
		mode := "stream copy"
		if !copyOK {
			mode = "re-encode"
		}
		c.Log.Render("joining %d segments (%s) -> %s", pl.Len(), mode, filepath.Base(outputPath))
	}

	progress, done := c.progress(filepath.Base(outputPath), length)
	err := c.Runner.Run(ctx, args, progress)
	done()
	if err != nil {
		DiscardPartial(outputPath)
		return fail(err)
	}
	info, err := os.Stat(outputPath)
	if err != nil {
		return fail(err)
	}
	return Artifact{Path: outputPath, Duration: length, Size: info.Size(), StreamCopy: copyOK}, nil
}

// MuxAudio lays audioPath under videoPath's picture, cut to duration.
func (c *Concatenator) MuxAudio(ctx context.Context, videoPath, audioPath, outputPath string, duration float64) (Artifact, error) {
	args := ffmpeg.MuxAudioArgs(c.Settings, videoPath, audioPath, outputPath, duration)
	if c.Log != nil {
		c.Log.Render("muxing %s under %s", filepath.Base(audioPath), filepath.Base(videoPath))
	}
	progress, done := c.progress(filepath.Base(outputPath), duration)
	err := c.Runner.Run(ctx, args, progress)
	done()
	if err != nil {
		DiscardPartial(outputPath)
		return Artifact{}, &MuxError{Output: outputPath, Err: err}
	}
	info, err := os.Stat(outputPath)
	if err != nil {
		return Artifact{}, &MuxError{Output: outputPath, Err: err}
	}
	return Artifact{Path: outputPath, Duration: duration, Size: info.Size()}, nil
}

// DiscardPartial removes whatever a failed or killed ffmpeg run left at
// path, so the output directory only ever holds finished files.
func DiscardPartial(path string) {
	_ = os.Remove(path)
}

// progress returns a callback driving a bar over length seconds and a
// function that finishes it. Both are no-ops without ProgressOut.
func (c *Concatenator) progress(label string, length float64) (ffmpeg.ProgressFunc, func()) {
	if c.ProgressOut == nil || length <= 0 {
		return nil, func() {}
	}
	bar := progressbar.NewOptions(int(length),
		progressbar.OptionSetWriter(c.ProgressOut),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "▐",
			BarEnd:        "▌",
		}),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
	)
	update := func(seconds float64) {
		n := int(seconds)
		if n > int(length) {
			n = int(length)
		}
		_ = bar.Set(n)
	}
	return update, func() { _ = bar.Finish() }
}
