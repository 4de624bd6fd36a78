package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/backmassage/loopforge/internal/logging"
)

// ProgressFunc receives the encoded output position in seconds.
type ProgressFunc func(seconds float64)

// Runner runs one ffmpeg argument list to completion. Tests substitute a
// fake; production uses *Executor.
type Runner interface {
	Run(ctx context.Context, args []string, progress ProgressFunc) error
}

// Executor runs ffmpeg with a per-attempt timeout and a bounded number of
// retries for transient failures.
type Executor struct {
	Binary  string        // Default: "ffmpeg".
	Timeout time.Duration // Zero disables the timeout.
	Retries int
	Log     *logging.Logger // Nil discards retry notices.
	Verbose bool            // Tee ffmpeg stderr to os.Stderr.
}

var _ Runner = (*Executor)(nil)

// Run executes args, retrying timeouts and transient failures. The parent
// context's cancellation is final and never retried.
func (e *Executor) Run(ctx context.Context, args []string, progress ProgressFunc) error {
	rs := NewRetryState(e.Retries)
	for {
		err := e.attempt(ctx, args, progress)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg: %w", ctx.Err())
		}
		action := rs.Advance(err)
		if action == RetryNone {
			return err
		}
		if e.Log != nil {
			e.Log.Warn("ffmpeg %s, retrying (attempt %d/%d)", action, rs.Attempt+1, rs.MaxAttempts)
		}
	}
}

func (e *Executor) attempt(ctx context.Context, args []string, progress ProgressFunc) error {
	actx := ctx
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}
	bin := e.Binary
	if bin == "" {
		bin = "ffmpeg"
	}
	cmd := exec.CommandContext(actx, bin, args...)
	cmd.WaitDelay = 5 * time.Second

	var stderr bytes.Buffer
	if e.Verbose {
		cmd.Stderr = io.MultiWriter(&stderr, os.Stderr)
	} else {
		cmd.Stderr = &stderr
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return &ExitError{Err: err}
	}
	ParseProgress(stdout, progress)
	err = cmd.Wait()
	if err == nil {
		return nil
	}
	if errors.Is(actx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return &ExitError{Stderr: stderr.String(), Err: fmt.Errorf("%w after %s", ErrTimeout, e.Timeout)}
	}
	return &ExitError{Stderr: stderr.String(), Err: err}
}

// ParseProgress reads ffmpeg's -progress key=value stream until EOF and
// reports each out_time_us sample. fn may be nil, in which case the stream
// is only drained.
func ParseProgress(r io.Reader, fn ProgressFunc) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if fn == nil {
			continue
		}
		key, val, ok := strings.Cut(strings.TrimSpace(sc.Text()), "=")
		if !ok {
			continue
		}
		// out_time_ms is also microseconds; ffmpeg has always misnamed it.
		if key != "out_time_us" && key != "out_time_ms" {
			continue
		}
		us, err := strconv.ParseInt(val, 10, 64)
		if err != nil || us < 0 {
			continue
		}
		fn(float64(us) / 1e6)
	}
	// Drain anything left after a scanner error so ffmpeg never blocks on a full pipe.
	_, _ = io.Copy(io.Discard, r)
}

func isTimeout(err error) bool { return errors.Is(err, ErrTimeout) }
