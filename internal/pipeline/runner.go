package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/backmassage/loopforge/internal/check"
	"github.com/backmassage/loopforge/internal/config"
	"github.com/backmassage/loopforge/internal/display"
	"github.com/backmassage/loopforge/internal/ffmpeg"
	"github.com/backmassage/loopforge/internal/logging"
	"github.com/backmassage/loopforge/internal/naming"
	"github.com/backmassage/loopforge/internal/planner"
	"github.com/backmassage/loopforge/internal/probe"
	"github.com/backmassage/loopforge/internal/render"
	"github.com/backmassage/loopforge/internal/term"
)

// Prober is the media inspection the jobs need. *probe.Prober satisfies it.
type Prober interface {
	Probe(ctx context.Context, path string) (*probe.SourceMedia, error)
	Inspect(ctx context.Context, path string) (*probe.ProbeResult, error)
}

// maxSegmentRenders bounds the concurrent encodes inside one item.
const maxSegmentRenders = 3

// Runner executes batch jobs against one immutable configuration.
type Runner struct {
	Cfg      config.Config
	Log      *logging.Logger
	Prober   Prober
	FFmpeg   ffmpeg.Runner
	Settings ffmpeg.EncodeSettings

	// Out receives the results table. Default: os.Stdout.
	Out io.Writer
	// ProgressOut, when set, receives join progress bars.
	ProgressOut io.Writer
	// Rand drives random background and track picks. Nil uses the global source.
	Rand *rand.Rand

	randMu   sync.Mutex
	resolver *naming.CollisionResolver
}

// New wires a Runner with the real ffprobe and ffmpeg executors.
func New(cfg config.Config, log *logging.Logger) *Runner {
	timeout := time.Duration(cfg.Encode.TimeoutMinutes) * time.Minute
	r := &Runner{
		Cfg: cfg,
		Log: log,
		Prober: &probe.Prober{
			Timeout: timeout,
			Retries: cfg.Encode.Retries,
		},
		FFmpeg: &ffmpeg.Executor{
			Timeout: timeout,
			Retries: cfg.Encode.Retries,
			Log:     log,
			Verbose: log.Verbose(),
		},
		Settings: ffmpeg.SettingsFromConfig(cfg.Encode, log.Verbose()),
		Out:      os.Stdout,
	}
	// Bars from parallel items would interleave.
	if cfg.Batch.Workers <= 1 && term.IsTerminal(os.Stderr) {
		r.ProgressOut = os.Stderr
	}
	return r
}

type itemFunc func(ctx context.Context, log *logging.Logger, input string) (ItemResult, error)

// batch runs fn over inputs with at most [batch] workers in flight. Each
// item runs detached from ctx so an interrupt lets started encodes finish;
// once ctx is done no further item is started.
func (r *Runner) batch(ctx context.Context, job string, inputs []string, fn itemFunc) RunStats {
	stats := RunStats{Job: job, Total: len(inputs)}
	results := make([]ItemResult, len(inputs))

	var (
		g       errgroup.Group
		skipped atomic.Int32
	)
	g.SetLimit(max(r.Cfg.Batch.Workers, 1))
	for i, input := range inputs {
		g.Go(func() error {
			// Checked once a worker slot is free so an interrupt during
			// the previous item is seen before this one starts.
			if ctx.Err() != nil {
				skipped.Add(1)
				results[i] = ItemResult{Input: input, Status: StatusSkipped}
				return nil
			}
			base := filepath.Base(input)
			log := r.Log.With(base)
			log.Info("[%d/%d] %s", i+1, len(inputs), base)
			start := time.Now()

			res, err := fn(context.WithoutCancel(ctx), log, input)
			res.Input = input
			switch {
			case err != nil:
				res.Status, res.Err = StatusFailed, err
				log.Error("%v", err)
			case res.Status == StatusPlanned:
				log.Success("[DRY] Would write %s", filepath.Base(res.Output))
			default:
				res.Status = StatusDone
				log.Success("Wrote %s (%s, %s) in %s", filepath.Base(res.Output),
					display.FormatDuration(res.Duration), display.FormatBytes(res.Size),
					time.Since(start).Round(time.Second))
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	if n := skipped.Load(); n > 0 {
		r.Log.Warn("Interrupted: %d item(s) not started", n)
	}
	for _, res := range results {
		stats.add(res)
	}
	return stats
}

// begin prepares the output and work directories, checks the output
// directory can take need more bytes, and locks it for the run.
func (r *Runner) begin(need int64) (func(), error) {
	r.resolver = naming.NewCollisionResolver()
	out := r.Cfg.Paths.OutputDir
	if err := os.MkdirAll(out, 0o755); err != nil {
		return nil, &ResourceError{Resource: "output directory", Path: out, Err: err}
	}
	if r.Cfg.Batch.DryRun {
		need = 0
	}
	if err := check.CheckOutputDir(out, need); err != nil {
		return nil, &ResourceError{Resource: "output directory", Path: out, Err: err}
	}
	if work := r.Cfg.Paths.WorkDir; work != "" && work != out {
		if err := os.MkdirAll(work, 0o755); err != nil {
			return nil, &ResourceError{Resource: "work directory", Path: work, Err: err}
		}
	}
	return lockOutputDir(out)
}

func (r *Runner) workRoot() string {
	if r.Cfg.Paths.WorkDir != "" {
		return r.Cfg.Paths.WorkDir
	}
	return r.Cfg.Paths.OutputDir
}

func (r *Runner) outputPath(log *logging.Logger, input, prefix string) string {
	return r.claimOutput(log, input, naming.OutputPath(r.Cfg.Paths.OutputDir, prefix, input))
}

// claimOutput reserves want for input, falling back to a dup variant when
// another input of the run already holds it.
func (r *Runner) claimOutput(log *logging.Logger, input, want string) string {
	got := r.resolver.Resolve(input, want)
	if got != want {
		owner, _ := r.resolver.Owner(want)
		log.Warn("%s is taken by %s, writing %s", filepath.Base(want), filepath.Base(owner), filepath.Base(got))
	}
	return got
}

// renderAll renders reqs concurrently. The first failure cancels the rest.
func (r *Runner) renderAll(ctx context.Context, log *logging.Logger, reqs ...planner.SegmentRequest) ([]planner.Segment, error) {
	rd := &render.Renderer{Runner: r.FFmpeg, Settings: r.Settings, Log: log}
	segs := make([]planner.Segment, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxSegmentRenders)
	for i, req := range reqs {
		g.Go(func() error {
			seg, err := rd.Render(gctx, req)
			if err != nil {
				return err
			}
			segs[i] = seg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return segs, nil
}

func (r *Runner) concatenator(log *logging.Logger, b *planner.Budget, ws *Workspace) *render.Concatenator {
	return &render.Concatenator{
		Runner:      r.FFmpeg,
		Settings:    r.Settings,
		Budget:      b,
		ListDir:     ws.Dir,
		Log:         log,
		ProgressOut: r.ProgressOut,
	}
}

// withRand serializes access to the shared random source.
func (r *Runner) withRand(fn func(*rand.Rand)) {
	r.randMu.Lock()
	defer r.randMu.Unlock()
	fn(r.Rand)
}

func (r *Runner) intN(n int) int {
	var i int
	r.withRand(func(rng *rand.Rand) {
		if rng != nil {
			i = rng.IntN(n)
		} else {
			i = rand.IntN(n)
		}
	})
	return i
}

// --- Logging helpers ---

func noteSource(log *logging.Logger, src *probe.SourceMedia) {
	fps := "unknown fps"
	if src.FrameRate != nil {
		fps = fmt.Sprintf("%.2f fps", *src.FrameRate)
	}
	audio := "no audio"
	if src.HasAudio {
		audio = fmt.Sprintf("%s %d Hz", src.AudioCodec, src.AudioSampleRate)
	}
	log.Debug("Source: %dx%d, %s, %s, %s", src.Width, src.Height,
		display.FormatDuration(src.DurationSeconds), fps, audio)
	if src.HDR {
		log.Warn("HDR source, rendering as SDR without tone mapping")
	}
	if src.Interlaced {
		log.Info("Interlaced source, deinterlacing")
	}
}

func (r *Runner) logBudget(log *logging.Logger, b planner.Budget, seconds float64) {
	log.Info("Budget: video %s (maxrate %s, bufsize %s) over %s",
		display.FormatBitrateLabel(b.VideoBitrate), display.FormatBitrateLabel(b.MaxRate),
		display.FormatBitrateLabel(b.BufferSize), display.FormatDuration(seconds))
	if b.Floored {
		log.Warn("Bitrate floor active: output may exceed the %s cap",
			display.FormatBytes(r.Cfg.Encode.SizeCapBytes()))
	}
}

// estimate predicts the output size for a dry run and logs its margin
// against the size cap.
func (r *Runner) estimate(log *logging.Logger, b planner.Budget, seconds float64) int64 {
	audioBps, _ := planner.ParseBitrate(r.Cfg.Encode.AudioBitrate)
	est := b.EstimatedBytes(seconds, audioBps)
	log.Info("Estimated size %s (%s vs cap)", display.FormatBytes(est),
		display.FormatBytesWithSign(r.Cfg.Encode.SizeCapBytes()-est))
	return est
}

// removeFile deletes a consumed input. Failures only warn.
func removeFile(log *logging.Logger, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("Could not delete %s: %v", path, err)
		return
	}
	log.Info("Deleted %s", filepath.Base(path))
}

func (r *Runner) logSummary(stats *RunStats) {
	r.Log.Info("==============================")
	if r.Cfg.Batch.DryRun {
		r.Log.Info("%s (dry run): %d planned, %d failed, %d not started",
			stats.Job, stats.Planned, stats.Failed, stats.Skipped)
	} else {
		r.Log.Info("%s: %d done, %d failed, %d not started",
			stats.Job, stats.Done, stats.Failed, stats.Skipped)
	}
	if table := display.RenderResults(stats.Rows()); table != "" && r.Out != nil {
		fmt.Fprintln(r.Out, table)
	}
	if stats.Done > 0 {
		r.Log.Info("Total written: %s", display.FormatBytes(stats.TotalOutputBytes))
	}
	if stats.OK() {
		r.Log.Success("All items succeeded")
	} else {
		r.Log.Error("%d item(s) failed", stats.Failed)
	}
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
