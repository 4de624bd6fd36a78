package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/backmassage/loopforge/internal/config"
	"github.com/backmassage/loopforge/internal/ffmpeg"
	"github.com/backmassage/loopforge/internal/logging"
	"github.com/backmassage/loopforge/internal/probe"
)

// fakeProber serves canned probe results keyed by base name.
type fakeProber struct {
	media map[string]*probe.SourceMedia
	audio map[string]*probe.ProbeResult
}

func (f *fakeProber) Probe(_ context.Context, path string) (*probe.SourceMedia, error) {
	if m, ok := f.media[filepath.Base(path)]; ok {
		c := *m
		c.Path = path
		return &c, nil
	}
	return nil, &probe.ProbeError{Path: path, Err: probe.ErrNoVideo}
}

func (f *fakeProber) Inspect(_ context.Context, path string) (*probe.ProbeResult, error) {
	if r, ok := f.audio[filepath.Base(path)]; ok {
		return r, nil
	}
	return nil, &probe.ProbeError{Path: path, Err: errors.New("invalid data")}
}

// fakeFFmpeg records every invocation, writes the output file and keeps a
// copy of each concat list it is given.
type fakeFFmpeg struct {
	mu    sync.Mutex
	calls [][]string
	lists []string
	// failOn makes any call with this argument write its output and then
	// fail, like an encoder killed mid-write.
	failOn string
}

func (f *fakeFFmpeg) Run(_ context.Context, args []string, _ ffmpeg.ProgressFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, args)
	if i := slices.Index(args, "concat"); i >= 0 {
		list := args[slices.Index(args, "-i")+1]
		data, err := os.ReadFile(list)
		if err != nil {
			return err
		}
		f.lists = append(f.lists, string(data))
	}
	out := args[len(args)-1]
	if err := os.WriteFile(out, []byte("media"), 0o644); err != nil {
		return err
	}
	if f.failOn != "" && slices.Contains(args, f.failOn) {
		return errors.New("exit status 1")
	}
	return nil
}

func (f *fakeFFmpeg) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func clip(w, h int, dur float64, audio bool) *probe.SourceMedia {
	return &probe.SourceMedia{Width: w, Height: h, DurationSeconds: dur, HasAudio: audio, AudioCodec: "aac", AudioSampleRate: 48000}
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(t.TempDir(), "out")
	cfg.Paths.WorkDir = filepath.Join(t.TempDir(), "work")
	cfg.Encode.SizeCapGiB = 0.01
	cfg.Audio.Dir = ""
	return cfg
}

func newTestRunner(cfg config.Config, p *fakeProber, ff *fakeFFmpeg) *Runner {
	return &Runner{
		Cfg:      cfg,
		Log:      logging.Discard(),
		Prober:   p,
		FFmpeg:   ff,
		Settings: ffmpeg.SettingsFromConfig(cfg.Encode, false),
		Out:      io.Discard,
	}
}

func workspaces(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		t.Fatal(err)
	}
	var out []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "tmp_") {
			out = append(out, e.Name())
		}
	}
	return out
}

func TestRunAmbient(t *testing.T) {
	cfg := testConfig(t)
	raw := t.TempDir()
	touch(t, raw, "rain.mov")
	touch(t, raw, "broken.mov")
	cfg.Ambient.RawDir = raw
	cfg.Ambient.CoverImage = touch(t, t.TempDir(), "cover.png")
	cfg.Ambient.TotalMinutes = 0.5
	cfg.Ambient.CoverSeconds = 2
	cfg.Ambient.DeleteSources = true

	ff := &fakeFFmpeg{}
	p := &fakeProber{media: map[string]*probe.SourceMedia{"rain.mov": clip(1920, 1080, 10, true)}}
	stats, err := newTestRunner(cfg, p, ff).RunAmbient(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 2 || stats.Done != 1 || stats.Failed != 1 || stats.OK() {
		t.Errorf("stats = %+v", stats)
	}

	var failed ItemResult
	for _, r := range stats.Results {
		if r.Status == StatusFailed {
			failed = r
		}
	}
	var pe *probe.ProbeError
	if !errors.As(failed.Err, &pe) {
		t.Errorf("failed item should carry a *ProbeError, got %v", failed.Err)
	}

	out := filepath.Join(cfg.Paths.OutputDir, "asmr_rain.mp4")
	if _, err := os.Stat(out); err != nil {
		t.Errorf("output missing: %v", err)
	}
	if ff.count() != 4 {
		t.Errorf("ffmpeg ran %d times, want 3 segments + 1 join", ff.count())
	}
	if len(ff.lists) != 1 || strings.Count(ff.lists[0], "file '") != 6 {
		t.Errorf("concat list should hold cover + 5 units:\n%v", ff.lists)
	}
	join := ff.calls[len(ff.calls)-1]
	if i := slices.Index(join, "-t"); i < 0 || join[i+1] != "30.000" {
		t.Errorf("join not trimmed to target: %v", join)
	}
	if w := workspaces(t, cfg.Paths.WorkDir); len(w) != 0 {
		t.Errorf("workspaces left behind: %v", w)
	}
	if _, err := os.Stat(filepath.Join(raw, "rain.mov")); !errors.Is(err, os.ErrNotExist) {
		t.Error("consumed source should be deleted")
	}
	if _, err := os.Stat(filepath.Join(raw, "broken.mov")); err != nil {
		t.Error("failed source must be kept")
	}
}

func TestRunAmbient_ResourceErrors(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ambient.RawDir = filepath.Join(t.TempDir(), "missing")
	r := newTestRunner(cfg, &fakeProber{}, &fakeFFmpeg{})
	_, err := r.RunAmbient(context.Background())
	var re *ResourceError
	if !errors.As(err, &re) {
		t.Fatalf("missing raw folder: expected *ResourceError, got %v", err)
	}

	raw := t.TempDir()
	touch(t, raw, "rain.mov")
	cfg.Ambient.RawDir = raw
	cfg.Ambient.CoverImage = filepath.Join(raw, "nope.png")
	r = newTestRunner(cfg, &fakeProber{}, &fakeFFmpeg{})
	_, err = r.RunAmbient(context.Background())
	if !errors.As(err, &re) || re.Resource != "cover image" {
		t.Fatalf("missing cover: expected cover image *ResourceError, got %v", err)
	}
}

func TestRunAmbient_DryRun(t *testing.T) {
	cfg := testConfig(t)
	raw := t.TempDir()
	touch(t, raw, "rain.mov")
	cfg.Ambient.RawDir = raw
	cfg.Ambient.CoverImage = touch(t, t.TempDir(), "cover.png")
	cfg.Ambient.TotalMinutes = 0.5
	cfg.Batch.DryRun = true

	ff := &fakeFFmpeg{}
	p := &fakeProber{media: map[string]*probe.SourceMedia{"rain.mov": clip(1280, 720, 10, true)}}
	stats, err := newTestRunner(cfg, p, ff).RunAmbient(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Planned != 1 || ff.count() != 0 {
		t.Errorf("planned=%d ffmpeg calls=%d", stats.Planned, ff.count())
	}
	res := stats.Results[0]
	if res.Size <= 0 || res.Size > cfg.Encode.SizeCapBytes() {
		t.Errorf("estimated size %d should be positive and under the cap", res.Size)
	}
}

func TestRunStack(t *testing.T) {
	cfg := testConfig(t)
	primary, bg, music := t.TempDir(), t.TempDir(), t.TempDir()
	touch(t, primary, "clip.mp4")
	touch(t, bg, "subway.mp4")
	track := touch(t, music, "primary.mp3")
	touch(t, music, "another.mp3")
	cfg.Stack.PrimaryDir = primary
	cfg.Stack.BackgroundDir = bg
	cfg.Stack.DeleteSources = false
	cfg.Audio.Mode = config.AudioMix
	cfg.Audio.Dir = music
	cfg.Audio.Random = false

	ff := &fakeFFmpeg{}
	p := &fakeProber{media: map[string]*probe.SourceMedia{
		"clip.mp4":   clip(1920, 1080, 5, true),
		"subway.mp4": clip(1280, 720, 2, false),
	}}
	stats, err := newTestRunner(cfg, p, ff).RunStack(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Done != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	composite := ff.calls[0]
	if i := slices.Index(composite, "-stream_loop"); i < 0 || composite[i+1] != "2" {
		t.Errorf("2 s background under 5 s primary should loop 3 times: %v", composite)
	}
	if !slices.Contains(composite, track) {
		t.Errorf("designated primary track not used: %v", composite)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, "combined_clip.mp4")); err != nil {
		t.Errorf("output missing: %v", err)
	}
}

func TestRunMux(t *testing.T) {
	cfg := testConfig(t)
	audioDir, videoDir, stillsDir := t.TempDir(), t.TempDir(), t.TempDir()
	touch(t, audioDir, "talk.mp3")
	touch(t, audioDir, "other.mp3")
	touch(t, videoDir, "talk.mp4")
	touch(t, videoDir, "aaa.mp4")
	touch(t, stillsDir, "end.png")
	cfg.Mux.AudioDir = audioDir
	cfg.Mux.VideoDir = videoDir
	cfg.Mux.StillsDir = stillsDir
	cfg.Mux.DeleteAudio = true
	cfg.Mux.DeleteVideo = true

	withAudio := &probe.ProbeResult{Format: probe.FormatInfo{Duration: 20}, AudioStreams: []probe.AudioStream{{Codec: "mp3"}}}
	ff := &fakeFFmpeg{}
	p := &fakeProber{
		media: map[string]*probe.SourceMedia{
			"talk.mp4": clip(1280, 720, 8, true),
			"aaa.mp4":  clip(1280, 720, 8, true),
		},
		audio: map[string]*probe.ProbeResult{"talk.mp3": withAudio, "other.mp3": withAudio},
	}
	stats, err := newTestRunner(cfg, p, ff).RunMux(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Done != 2 {
		t.Fatalf("stats = %+v", stats)
	}
	if ff.count() != 8 {
		t.Errorf("ffmpeg ran %d times, want (loop + still + join + mux) x 2", ff.count())
	}
	for _, name := range []string{"talk.mp4", "other.mp4"} {
		if _, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, name)); err != nil {
			t.Errorf("output %s missing: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(videoDir, "talk.mp4")); !errors.Is(err, os.ErrNotExist) {
		t.Error("matched video should be deleted")
	}
	if _, err := os.Stat(filepath.Join(videoDir, "aaa.mp4")); err != nil {
		t.Error("fallback video must be kept")
	}
	if left, _ := Discover(audioDir, AudioExtensions); len(left) != 0 {
		t.Errorf("consumed audio not deleted: %v", left)
	}
	if _, err := os.Stat(filepath.Join(stillsDir, "end.png")); err != nil {
		t.Error("stills kept unless delete_stills is set")
	}
}

func TestRunExtract(t *testing.T) {
	cfg := testConfig(t)
	in := t.TempDir()
	good := touch(t, in, "lecture.mkv")
	silent := touch(t, in, "silent.mp4")
	cfg.Extract.Format = config.FormatFLAC

	ff := &fakeFFmpeg{}
	p := &fakeProber{audio: map[string]*probe.ProbeResult{
		"lecture.mkv": {Format: probe.FormatInfo{Duration: 60}, AudioStreams: []probe.AudioStream{{Codec: "aac"}}},
		"silent.mp4":  {Format: probe.FormatInfo{Duration: 60}},
	}}
	stats, err := newTestRunner(cfg, p, ff).RunExtract(context.Background(), []string{good, silent})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Done != 1 || stats.Failed != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if !errors.Is(stats.Results[1].Err, probe.ErrNoAudio) {
		t.Errorf("silent input error = %v", stats.Results[1].Err)
	}
	if got := stats.Results[0].Output; got != filepath.Join(cfg.Paths.OutputDir, "lecture_audio.flac") {
		t.Errorf("output = %q", got)
	}
}

func TestRunExtract_CollidingStems(t *testing.T) {
	cfg := testConfig(t)
	cfg.Batch.Workers = 1
	in := t.TempDir()
	mkv := touch(t, in, "lecture.mkv")
	mp4 := touch(t, in, "lecture.mp4")

	var buf strings.Builder
	r := newTestRunner(cfg, &fakeProber{audio: map[string]*probe.ProbeResult{
		"lecture.mkv": {Format: probe.FormatInfo{Duration: 60}, AudioStreams: []probe.AudioStream{{Codec: "aac"}}},
		"lecture.mp4": {Format: probe.FormatInfo{Duration: 60}, AudioStreams: []probe.AudioStream{{Codec: "aac"}}},
	}}, &fakeFFmpeg{})
	r.Log = logging.New(&buf, &buf, false)

	stats, err := r.RunExtract(context.Background(), []string{mkv, mp4})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Done != 2 {
		t.Fatalf("stats = %+v", stats)
	}
	want := []string{
		filepath.Join(cfg.Paths.OutputDir, "lecture_audio.mp3"),
		filepath.Join(cfg.Paths.OutputDir, "lecture_audio - dup1.mp3"),
	}
	for i, res := range stats.Results {
		if res.Output != want[i] {
			t.Errorf("output %d = %q, want %q", i, res.Output, want[i])
		}
	}
	if !strings.Contains(buf.String(), "lecture_audio.mp3 is taken by lecture.mkv") {
		t.Errorf("no collision warning in log:\n%s", buf.String())
	}
}

func TestBatch_FailuresDoNotStopOthers(t *testing.T) {
	cfg := testConfig(t)
	cfg.Batch.Workers = 3
	r := newTestRunner(cfg, &fakeProber{}, &fakeFFmpeg{})

	inputs := []string{"a", "b", "c", "d", "e"}
	var running, peak atomic.Int32
	stats := r.batch(context.Background(), "test", inputs, func(ctx context.Context, log *logging.Logger, input string) (ItemResult, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		running.Add(-1)
		if input == "c" {
			return ItemResult{}, fmt.Errorf("boom")
		}
		return ItemResult{Output: input + ".mp4"}, nil
	})
	if stats.Done != 4 || stats.Failed != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if peak.Load() > 3 {
		t.Errorf("peak concurrency %d exceeds workers", peak.Load())
	}
	for i, res := range stats.Results {
		if res.Input != inputs[i] {
			t.Errorf("result %d is for %q, want input order", i, res.Input)
		}
	}
}

func TestBatch_CancelStopsLaunching(t *testing.T) {
	cfg := testConfig(t)
	r := newTestRunner(cfg, &fakeProber{}, &fakeFFmpeg{})
	ctx, cancel := context.WithCancel(context.Background())

	var started []string
	stats := r.batch(ctx, "test", []string{"a", "b", "c"}, func(itemCtx context.Context, log *logging.Logger, input string) (ItemResult, error) {
		started = append(started, input)
		cancel()
		if itemCtx.Err() != nil {
			return ItemResult{}, errors.New("in-flight item saw the cancellation")
		}
		return ItemResult{Output: input}, nil
	})
	if len(started) != 1 {
		t.Errorf("started %v, want only the first item", started)
	}
	if stats.Done != 1 || stats.Skipped != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestAnalyze(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ambient.TotalMinutes = 0.5
	cfg.Ambient.CoverSeconds = 2
	dir := t.TempDir()
	media := map[string]*probe.SourceMedia{}
	for i, d := range []float64{10, 11, 12, 13, 14, 0.5} {
		name := fmt.Sprintf("clip%d.mp4", i)
		touch(t, dir, name)
		media[name] = clip(1920, 1080, d, i%2 == 0)
	}
	touch(t, dir, "bad.mp4")

	r := newTestRunner(cfg, &fakeProber{media: media}, &fakeFFmpeg{})
	reports, err := r.Analyze(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != 7 {
		t.Fatalf("got %d reports, want 7", len(reports))
	}
	byName := map[string]ClipReport{}
	for _, rep := range reports {
		byName[filepath.Base(rep.Path)] = rep
	}
	if byName["bad.mp4"].Err == nil {
		t.Error("unprobeable clip should carry its error")
	}
	if got := byName["clip0.mp4"]; got.Segments != 6 || got.Audio != "aac" || got.Flags != "" {
		t.Errorf("clip0 = %+v, want 6 segments with aac audio and no flags", got)
	}
	if got := byName["clip1.mp4"].Audio; got != "none" {
		t.Errorf("clip1 audio = %q, want none", got)
	}
	if got := byName["clip5.mp4"].Flags; got != "short" {
		t.Errorf("clip5 flags = %q, want short", got)
	}

	table := renderClipTable(reports)
	var row string
	for _, line := range strings.Split(table, "\n") {
		if strings.Contains(line, "clip5.mp4") {
			row = line
		}
	}
	if !strings.Contains(table, "Flags") || !strings.HasSuffix(strings.TrimRight(row, " │"), "short") {
		t.Errorf("flags column missing from table:\n%s", table)
	}
}

func TestFailedWritesLeaveNoOutput(t *testing.T) {
	t.Run("ambient join", func(t *testing.T) {
		cfg := testConfig(t)
		raw := t.TempDir()
		touch(t, raw, "clip.mov")
		cfg.Ambient.RawDir = raw
		cfg.Ambient.CoverImage = touch(t, t.TempDir(), "cover.png")
		cfg.Ambient.TotalMinutes = 0.5

		ff := &fakeFFmpeg{failOn: "concat"}
		p := &fakeProber{media: map[string]*probe.SourceMedia{"clip.mov": clip(1280, 720, 10, true)}}
		stats, err := newTestRunner(cfg, p, ff).RunAmbient(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if stats.Failed != 1 {
			t.Fatalf("stats = %+v", stats)
		}
		if _, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, "asmr_clip.mp4")); !errors.Is(err, os.ErrNotExist) {
			t.Error("failed join left a partial artifact in the output directory")
		}
	})
	t.Run("extract", func(t *testing.T) {
		cfg := testConfig(t)
		in := touch(t, t.TempDir(), "lecture.mkv")
		ff := &fakeFFmpeg{failOn: "-vn"}
		p := &fakeProber{audio: map[string]*probe.ProbeResult{
			"lecture.mkv": {Format: probe.FormatInfo{Duration: 60}, AudioStreams: []probe.AudioStream{{Codec: "aac"}}},
		}}
		stats, err := newTestRunner(cfg, p, ff).RunExtract(context.Background(), []string{in})
		if err != nil {
			t.Fatal(err)
		}
		if stats.Failed != 1 {
			t.Fatalf("stats = %+v", stats)
		}
		if _, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, "lecture_audio.mp3")); !errors.Is(err, os.ErrNotExist) {
			t.Error("failed extract left a partial file in the output directory")
		}
	})
}
