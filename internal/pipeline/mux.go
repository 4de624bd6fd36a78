package pipeline

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/backmassage/loopforge/internal/logging"
	"github.com/backmassage/loopforge/internal/naming"
	"github.com/backmassage/loopforge/internal/planner"
	"github.com/backmassage/loopforge/internal/probe"
)

// MatchVideo returns the video whose base name equals the audio's
// (case-insensitive), or the first video as a fallback.
func MatchVideo(audioPath string, videos []string) (string, bool) {
	stem := naming.Stem(audioPath)
	for _, v := range videos {
		if strings.EqualFold(naming.Stem(v), stem) {
			return v, true
		}
	}
	if len(videos) == 0 {
		return "", false
	}
	return videos[0], false
}

// RunMux lays every audio file over a looped, slowed video followed by the
// still images, cut to the audio's length.
func (r *Runner) RunMux(ctx context.Context) (RunStats, error) {
	m := r.Cfg.Mux
	audios, err := discoverRequired("audio folder", m.AudioDir, AudioExtensions)
	if err != nil {
		return RunStats{Job: "mux"}, err
	}
	videos, err := discoverRequired("video folder", m.VideoDir, VideoExtensions)
	if err != nil {
		return RunStats{Job: "mux"}, err
	}
	stills, err := discoverOptional(m.StillsDir, ImageExtensions)
	if err != nil {
		return RunStats{Job: "mux"}, &ResourceError{Resource: "stills folder", Path: m.StillsDir, Err: err}
	}
	release, err := r.begin(0)
	if err != nil {
		return RunStats{Job: "mux"}, err
	}
	defer release()

	r.Log.Info("Mux: %d audio file(s), %d video(s), %d still(s), speed %.2f",
		len(audios), len(videos), len(stills), m.Speed)

	var (
		mu      sync.Mutex
		matched = make(map[string]bool)
	)
	stats := r.batch(ctx, "mux", audios, func(ctx context.Context, log *logging.Logger, input string) (ItemResult, error) {
		res, video, isMatch, err := r.muxItem(ctx, log, input, videos, stills)
		if err == nil && isMatch {
			mu.Lock()
			matched[video] = true
			mu.Unlock()
		}
		return res, err
	})

	if !r.Cfg.Batch.DryRun && stats.Done > 0 {
		r.cleanupMux(&stats, matched, stills)
	}
	r.logSummary(&stats)
	return stats, nil
}

// cleanupMux applies the deletion flags once the whole batch has run.
// Fallback videos are shared by many outputs and are never deleted.
func (r *Runner) cleanupMux(stats *RunStats, matched map[string]bool, stills []string) {
	m := r.Cfg.Mux
	if m.DeleteAudio {
		for _, res := range stats.Results {
			if res.Status == StatusDone {
				removeFile(r.Log, res.Input)
			}
		}
	}
	if m.DeleteVideo {
		for v := range matched {
			removeFile(r.Log, v)
		}
	}
	if m.DeleteStills {
		for _, s := range stills {
			removeFile(r.Log, s)
		}
	}
}

func (r *Runner) muxItem(ctx context.Context, log *logging.Logger, audioPath string, videos, stills []string) (ItemResult, string, bool, error) {
	info, err := r.Prober.Inspect(ctx, audioPath)
	if err != nil {
		return ItemResult{}, "", false, err
	}
	if !info.HasAudio() {
		return ItemResult{}, "", false, &probe.ProbeError{Path: audioPath, Err: probe.ErrNoAudio}
	}
	duration := info.Duration()

	videoPath, isMatch := MatchVideo(audioPath, videos)
	video, err := r.Prober.Probe(ctx, videoPath)
	if err != nil {
		return ItemResult{}, "", false, err
	}
	out := r.outputPath(log, audioPath, "")

	if r.Cfg.Batch.DryRun {
		plan := planner.PlanMux(r.Cfg, audioPath, duration, video, isMatch, stills, r.workRoot())
		r.logMuxPlan(log, plan)
		return ItemResult{Output: out, Status: StatusPlanned, Duration: duration}, videoPath, isMatch, nil
	}

	ws, err := NewWorkspace(r.workRoot(), audioPath, log)
	if err != nil {
		return ItemResult{}, "", false, err
	}
	defer ws.Close()

	plan := planner.PlanMux(r.Cfg, audioPath, duration, video, isMatch, stills, ws.Dir)
	r.logMuxPlan(log, plan)

	reqs := append([]planner.SegmentRequest{plan.Loop}, plan.Stills...)
	segs, err := r.renderAll(ctx, log, reqs...)
	if err != nil {
		return ItemResult{}, "", false, err
	}
	conc := r.concatenator(log, nil, ws)
	picture, err := conc.Concatenate(ctx, planner.BuildSequencePlaylist(segs...), ws.Path("picture.mp4"), duration)
	if err != nil {
		return ItemResult{}, "", false, err
	}
	art, err := conc.MuxAudio(ctx, picture.Path, plan.AudioPath, out, plan.AudioDuration)
	if err != nil {
		return ItemResult{}, "", false, err
	}
	return ItemResult{Output: art.Path, Duration: art.Duration, Size: art.Size}, videoPath, isMatch, nil
}

func (r *Runner) logMuxPlan(log *logging.Logger, plan planner.MuxPlan) {
	tag := ""
	if plan.Matched {
		tag = " [matched]"
	}
	log.Info("Audio %s %.2fs + video %s%s",
		filepath.Base(plan.AudioPath), plan.AudioDuration, filepath.Base(plan.Video.Path), tag)
	if plan.StillsDropped {
		log.Warn("Audio too short for the still images, skipping them")
	}
	log.Info("Loop %.2fs at speed %.2f + %d still(s) of %.1fs",
		plan.Loop.Duration, plan.Loop.Speed, len(plan.Stills), r.Cfg.Mux.StillSeconds)
}
