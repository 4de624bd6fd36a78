package ffmpeg

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrTimeout marks an attempt that ran past the executor's per-attempt
// timeout and was killed.
var ErrTimeout = errors.New("ffmpeg timed out")

// ExitError is a failed ffmpeg invocation together with the tail of its
// stderr, which is what the retry classifier looks at.
type ExitError struct {
	Stderr string
	Err    error
}

func (e *ExitError) Error() string {
	if msg := lastLines(e.Stderr, 3); msg != "" {
		return fmt.Sprintf("%v: %s", e.Err, msg)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// Pre-compiled patterns for stderr lines that indicate a failure worth one
// more attempt. Anything else (bad filter graph, missing input, unknown
// encoder) fails the same way on every run.
var (
	reResourceIssue = regexp.MustCompile(
		`(?i)Resource temporarily unavailable|Cannot allocate memory|` +
			`Too many open files|No space left on device`)

	reIOIssue = regexp.MustCompile(
		`(?i)Input/output error|Connection reset by peer|` +
			`Broken pipe|End of file while parsing`)
)

// MatchResourceIssue reports whether stderr shows a transient resource shortage.
func MatchResourceIssue(stderr string) bool {
	return reResourceIssue.MatchString(stderr)
}

// MatchIOIssue reports whether stderr shows a transient I/O failure.
func MatchIOIssue(stderr string) bool {
	return reIOIssue.MatchString(stderr)
}

// IsTransient reports whether err is worth retrying: a timeout, or an exit
// whose stderr matches one of the transient patterns.
func IsTransient(err error) bool {
	if errors.Is(err, ErrTimeout) {
		return true
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return MatchResourceIssue(ee.Stderr) || MatchIOIssue(ee.Stderr)
	}
	return false
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, " | "))
}
