package pipeline

import (
	"context"
	"fmt"

	"github.com/backmassage/loopforge/internal/ffmpeg"
	"github.com/backmassage/loopforge/internal/logging"
	"github.com/backmassage/loopforge/internal/naming"
	"github.com/backmassage/loopforge/internal/probe"
	"github.com/backmassage/loopforge/internal/render"
)

// RunExtract writes the first audio track of each input to the configured
// format. With no explicit files the [extract] input folder is scanned.
func (r *Runner) RunExtract(ctx context.Context, files []string) (RunStats, error) {
	e := r.Cfg.Extract
	inputs := files
	if len(inputs) == 0 {
		var err error
		inputs, err = discoverRequired("video folder", e.InputDir, VideoExtensions)
		if err != nil {
			return RunStats{Job: "extract-audio"}, err
		}
	}
	release, err := r.begin(0)
	if err != nil {
		return RunStats{Job: "extract-audio"}, err
	}
	defer release()

	r.Log.Info("Extract: %d file(s) to %s", len(inputs), e.Format)
	stats := r.batch(ctx, "extract-audio", inputs, r.extractItem)
	r.logSummary(&stats)
	return stats, nil
}

func (r *Runner) extractItem(ctx context.Context, log *logging.Logger, input string) (ItemResult, error) {
	info, err := r.Prober.Inspect(ctx, input)
	if err != nil {
		return ItemResult{}, err
	}
	if !info.HasAudio() {
		return ItemResult{}, &probe.ProbeError{Path: input, Err: probe.ErrNoAudio}
	}
	e := r.Cfg.Extract
	out := r.claimOutput(log, input, naming.ExtractPath(r.Cfg.Paths.OutputDir, input, string(e.Format)))
	duration := info.Duration()

	args, err := ffmpeg.ExtractArgs(r.Settings, input, out, e.Format, e.Bitrate)
	if err != nil {
		return ItemResult{}, err
	}
	if r.Cfg.Batch.DryRun {
		return ItemResult{Output: out, Status: StatusPlanned, Duration: duration}, nil
	}
	log.Render("Extracting audio -> %s", out)
	if err := r.FFmpeg.Run(ctx, args, nil); err != nil {
		render.DiscardPartial(out)
		return ItemResult{}, &render.MuxError{Output: out, Err: fmt.Errorf("extract audio: %w", err)}
	}
	size, err := fileSize(out)
	if err != nil {
		return ItemResult{}, &render.MuxError{Output: out, Err: err}
	}
	return ItemResult{Output: out, Duration: duration, Size: size}, nil
}
