package pipeline

import (
	"context"
	"errors"
	"os"

	"github.com/backmassage/loopforge/internal/logging"
	"github.com/backmassage/loopforge/internal/planner"
)

// RunAmbient turns every clip in the raw folder into a long ping-pong loop
// with a cover lead-in, trimmed to the target length under the size cap.
func (r *Runner) RunAmbient(ctx context.Context) (RunStats, error) {
	a := r.Cfg.Ambient
	inputs, err := discoverRequired("raw clip folder", a.RawDir, VideoExtensions)
	if err != nil {
		return RunStats{Job: "ambient"}, err
	}
	if err := requireFile("cover image", a.CoverImage); err != nil {
		return RunStats{Job: "ambient"}, err
	}
	release, err := r.begin(r.Cfg.Encode.SizeCapBytes())
	if err != nil {
		return RunStats{Job: "ambient"}, err
	}
	defer release()

	r.Log.Info("Ambient: %d clip(s), %.0f min each, cover %.1fs",
		len(inputs), a.TotalMinutes, a.CoverSeconds)
	stats := r.batch(ctx, "ambient", inputs, r.ambientItem)
	r.logSummary(&stats)
	return stats, nil
}

func (r *Runner) ambientItem(ctx context.Context, log *logging.Logger, input string) (ItemResult, error) {
	src, err := r.Prober.Probe(ctx, input)
	if err != nil {
		return ItemResult{}, err
	}
	noteSource(log, src)
	out := r.outputPath(log, input, r.Cfg.Ambient.OutputPrefix)

	if r.Cfg.Batch.DryRun {
		plan, err := planner.PlanAmbient(r.Cfg, src, r.workRoot())
		if err != nil {
			return ItemResult{}, err
		}
		r.logBudget(log, plan.Budget, plan.Target)
		pl := plan.Playlist(plan.Cover.Planned(), plan.Forward.Planned(), plan.Reverse.Planned())
		log.Info("Playlist: %d segments, %.1fs before trim to %.1fs", pl.Len(), pl.Total, plan.Target)
		return ItemResult{Output: out, Status: StatusPlanned, Duration: plan.Target,
			Size: r.estimate(log, plan.Budget, plan.Target)}, nil
	}

	ws, err := NewWorkspace(r.workRoot(), input, log)
	if err != nil {
		return ItemResult{}, err
	}
	defer ws.Close()

	plan, err := planner.PlanAmbient(r.Cfg, src, ws.Dir)
	if err != nil {
		return ItemResult{}, err
	}
	r.logBudget(log, plan.Budget, plan.Target)

	segs, err := r.renderAll(ctx, log, plan.Cover, plan.Forward, plan.Reverse)
	if err != nil {
		return ItemResult{}, err
	}
	pl := plan.Playlist(segs[0], segs[1], segs[2])
	log.Debug("Playlist: %d segments, %.1fs before trim", pl.Len(), pl.Total)

	art, err := r.concatenator(log, &plan.Budget, ws).Concatenate(ctx, pl, out, plan.Target)
	if err != nil {
		return ItemResult{}, err
	}
	if r.Cfg.Ambient.DeleteSources {
		removeFile(log, input)
	}
	return ItemResult{Output: art.Path, Duration: art.Duration, Size: art.Size}, nil
}

// requireFile returns a *ResourceError unless path is an existing regular file.
func requireFile(resource, path string) error {
	if path == "" {
		return &ResourceError{Resource: resource, Err: errors.New("not configured")}
	}
	info, err := os.Stat(path)
	if err != nil {
		return &ResourceError{Resource: resource, Path: path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return &ResourceError{Resource: resource, Path: path, Err: errors.New("not a regular file")}
	}
	return nil
}
