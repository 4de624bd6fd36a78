// Package check runs system diagnostics (the check subcommand) and the
// pre-batch dependency and output directory validation.
package check

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/backmassage/loopforge/internal/config"
	"github.com/backmassage/loopforge/internal/display"
)

// Sentinel errors returned by CheckDeps and CheckOutputDir.
var (
	ErrFfmpegNotFound  = errors.New("ffmpeg not found on PATH")
	ErrFfprobeNotFound = errors.New("ffprobe not found on PATH")
	ErrEncoderFailed   = errors.New("video encoder test failed")
	ErrAACFailed       = errors.New("AAC encoder test failed")
	ErrNotWritable     = errors.New("output directory is not writable")
	ErrLowSpace        = errors.New("not enough free space for the size cap")
)

// Logger is the logging surface RunCheck needs.
type Logger interface {
	Info(string, ...any)
	Success(string, ...any)
	Warn(string, ...any)
	Error(string, ...any)
}

// Result is the outcome of a single diagnostic.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

const testTimeout = 30 * time.Second

// RunCheck logs every diagnostic and returns the results. It never stops
// early; a failing check is reported and the next one runs.
func RunCheck(ctx context.Context, cfg config.Config, log Logger) []Result {
	log.Info("=== System Check ===")
	results := []Result{
		toolVersion(ctx, "ffmpeg"),
		toolVersion(ctx, "ffprobe"),
		testEncode(ctx, cfg.Encode.VideoCodec, videoTestArgs(cfg.Encode.VideoCodec)),
		testEncode(ctx, "aac", audioTestArgs("aac")),
		testEncode(ctx, "libmp3lame", audioTestArgs("libmp3lame")),
		testEncode(ctx, "libvorbis", audioTestArgs("libvorbis")),
		outputDirResult(cfg.Paths.OutputDir, cfg.Encode.SizeCapBytes()),
	}
	for _, r := range results {
		if r.Passed {
			log.Success("%s: %s", r.Name, r.Detail)
		} else {
			log.Error("%s: %s", r.Name, r.Detail)
		}
	}
	return results
}

// CheckDeps is the pre-batch validation: ffmpeg and ffprobe on PATH and the
// configured video encoder plus AAC usable.
func CheckDeps(ctx context.Context, cfg config.Config) error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return ErrFfmpegNotFound
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return ErrFfprobeNotFound
	}
	if !runSilent(ctx, "ffmpeg", videoTestArgs(cfg.Encode.VideoCodec)...) {
		return fmt.Errorf("%w (%s)", ErrEncoderFailed, cfg.Encode.VideoCodec)
	}
	if !runSilent(ctx, "ffmpeg", audioTestArgs("aac")...) {
		return ErrAACFailed
	}
	return nil
}

// CheckOutputDir verifies dir is writable and that its filesystem has at
// least need bytes free. A zero need skips the space check.
func CheckOutputDir(dir string, need int64) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	if err := unix.Access(dir, unix.W_OK|unix.X_OK); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNotWritable, dir, err)
	}
	if need <= 0 {
		return nil
	}
	free, err := FreeBytes(dir)
	if err != nil {
		return err
	}
	if free < need {
		return fmt.Errorf("%w: %s free in %s, need %s", ErrLowSpace,
			display.FormatBytes(free), dir, display.FormatBytes(need))
	}
	return nil
}

// FreeBytes returns the space available to unprivileged users on the
// filesystem holding path.
func FreeBytes(path string) (int64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	return int64(st.Bavail) * int64(st.Bsize), nil
}

func outputDirResult(dir string, need int64) Result {
	name := "output directory"
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if err := CheckOutputDir(dir, need); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	free, _ := FreeBytes(dir)
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (writable, %s free)", dir, display.FormatBytes(free))}
}

func toolVersion(ctx context.Context, tool string) Result {
	if _, err := exec.LookPath(tool); err != nil {
		return Result{Name: tool, Detail: "not found"}
	}
	ctx, cancel := context.WithTimeout(ctx, testTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, tool, "-version").Output()
	if err != nil {
		return Result{Name: tool, Detail: fmt.Sprintf("found but -version failed: %v", err)}
	}
	first, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	return Result{Name: tool, Passed: true, Detail: first}
}

func testEncode(ctx context.Context, encoder string, args []string) Result {
	name := encoder + " encode"
	if runSilent(ctx, "ffmpeg", args...) {
		return Result{Name: name, Passed: true, Detail: "works"}
	}
	return Result{Name: name, Detail: "test encode failed"}
}

// videoTestArgs encodes a tenth of a second of lavfi color, which also
// proves the lavfi input used for silent beds is available.
func videoTestArgs(codec string) []string {
	return []string{
		"-hide_banner", "-nostdin", "-loglevel", "error",
		"-f", "lavfi", "-i", "color=black:s=256x256:d=0.1",
		"-c:v", codec, "-pix_fmt", "yuv420p",
		"-f", "null", "-",
	}
}

func audioTestArgs(codec string) []string {
	return []string{
		"-hide_banner", "-nostdin", "-loglevel", "error",
		"-f", "lavfi", "-i", "anullsrc=r=44100:cl=stereo",
		"-t", "0.1",
		"-c:a", codec,
		"-f", "null", "-",
	}
}

// runSilent runs a command and reports whether it exited with status 0.
func runSilent(ctx context.Context, name string, args ...string) bool {
	ctx, cancel := context.WithTimeout(ctx, testTimeout)
	defer cancel()
	return exec.CommandContext(ctx, name, args...).Run() == nil
}
