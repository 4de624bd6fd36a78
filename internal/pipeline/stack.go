package pipeline

import (
	"context"
	"math/rand/v2"
	"path/filepath"

	"github.com/backmassage/loopforge/internal/logging"
	"github.com/backmassage/loopforge/internal/planner"
)

// RunStack stacks every primary clip with a background clip into a
// vertical composite, mixing audio per the [audio] policy.
func (r *Runner) RunStack(ctx context.Context) (RunStats, error) {
	s := r.Cfg.Stack
	primaries, err := discoverRequired("primary clip folder", s.PrimaryDir, VideoExtensions)
	if err != nil {
		return RunStats{Job: "stack"}, err
	}
	backgrounds, err := discoverRequired("background clip folder", s.BackgroundDir, VideoExtensions)
	if err != nil {
		return RunStats{Job: "stack"}, err
	}
	release, err := r.begin(r.Cfg.Encode.SizeCapBytes())
	if err != nil {
		return RunStats{Job: "stack"}, err
	}
	defer release()

	r.Log.Info("Stack: %d primary clip(s), %d background(s), %dx%d, audio %s",
		len(primaries), len(backgrounds), s.Width, s.Height, r.Cfg.Audio.Mode)
	stats := r.batch(ctx, "stack", primaries, func(ctx context.Context, log *logging.Logger, input string) (ItemResult, error) {
		return r.stackItem(ctx, log, input, backgrounds)
	})
	r.logSummary(&stats)
	return stats, nil
}

// pickBackground returns a random background, or the first one when
// random selection is off.
func (r *Runner) pickBackground(backgrounds []string) string {
	if r.Cfg.Stack.RandomBackground && len(backgrounds) > 1 {
		return backgrounds[r.intN(len(backgrounds))]
	}
	return backgrounds[0]
}

func (r *Runner) selectAudio(originalAvailable bool) (planner.AudioSelection, error) {
	pool := planner.PoolFromConfig(r.Cfg.Audio)
	var (
		sel planner.AudioSelection
		err error
	)
	r.withRand(func(rng *rand.Rand) {
		pool.Rand = rng
		sel, err = planner.SelectAudio(originalAvailable, planner.PolicyFromConfig(r.Cfg.Audio),
			pool, planner.VolumeFromConfig(r.Cfg.Audio))
	})
	return sel, err
}

func (r *Runner) stackItem(ctx context.Context, log *logging.Logger, input string, backgrounds []string) (ItemResult, error) {
	primary, err := r.Prober.Probe(ctx, input)
	if err != nil {
		return ItemResult{}, err
	}
	noteSource(log, primary)
	bgPath := r.pickBackground(backgrounds)
	background, err := r.Prober.Probe(ctx, bgPath)
	if err != nil {
		return ItemResult{}, err
	}
	sel, err := r.selectAudio(primary.HasAudio)
	if err != nil {
		return ItemResult{}, err
	}
	log.Info("Background %s, audio: %s", filepath.Base(bgPath), sel)
	if primary.HasAudio && !sel.UsesOriginal() {
		log.Info("Primary audio not used under %s mode", r.Cfg.Audio.Mode)
	}
	out := r.outputPath(log, input, r.Cfg.Stack.OutputPrefix)

	if r.Cfg.Batch.DryRun {
		plan, err := planner.PlanStack(r.Cfg, primary, background, sel, r.workRoot())
		if err != nil {
			return ItemResult{}, err
		}
		r.logBudget(log, plan.Budget, plan.Duration)
		log.Info("Background loops: %d", plan.Composite.BackgroundLoops)
		return ItemResult{Output: out, Status: StatusPlanned, Duration: plan.Duration,
			Size: r.estimate(log, plan.Budget, plan.Duration)}, nil
	}

	ws, err := NewWorkspace(r.workRoot(), input, log)
	if err != nil {
		return ItemResult{}, err
	}
	defer ws.Close()

	plan, err := planner.PlanStack(r.Cfg, primary, background, sel, ws.Dir)
	if err != nil {
		return ItemResult{}, err
	}
	r.logBudget(log, plan.Budget, plan.Duration)

	segs, err := r.renderAll(ctx, log, plan.Composite)
	if err != nil {
		return ItemResult{}, err
	}
	pl := planner.BuildSequencePlaylist(segs...)
	art, err := r.concatenator(log, &plan.Budget, ws).Concatenate(ctx, pl, out, plan.Duration)
	if err != nil {
		return ItemResult{}, err
	}
	if r.Cfg.Stack.DeleteSources {
		removeFile(log, input)
	}
	return ItemResult{Output: art.Path, Duration: art.Duration, Size: art.Size}, nil
}
