package ffmpeg

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"timeout", &ExitError{Err: fmt.Errorf("%w after 2h", ErrTimeout)}, true},
		{"eagain", &ExitError{Stderr: "av_read_frame: Resource temporarily unavailable", Err: errors.New("exit status 1")}, true},
		{"io", &ExitError{Stderr: "pipe:: Input/output error", Err: errors.New("exit status 1")}, true},
		{"bad filter", &ExitError{Stderr: "No such filter: 'bogus'", Err: errors.New("exit status 1")}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRetryState_Advance(t *testing.T) {
	timeout := &ExitError{Err: ErrTimeout}
	transient := &ExitError{Stderr: "Cannot allocate memory", Err: errors.New("exit status 1")}

	rs := NewRetryState(1)
	if got := rs.Advance(timeout); got != RetryTimeout {
		t.Errorf("first failure = %v, want timeout", got)
	}
	if got := rs.Advance(timeout); got != RetryNone {
		t.Errorf("second failure = %v, want none", got)
	}

	rs = NewRetryState(2)
	if got := rs.Advance(transient); got != RetryTransient {
		t.Errorf("got %v, want transient", got)
	}
	if got := rs.Advance(errors.New("permanent")); got != RetryNone {
		t.Errorf("permanent failure = %v, want none", got)
	}

	rs = NewRetryState(-1)
	if got := rs.Advance(timeout); got != RetryNone {
		t.Errorf("no retries allowed, got %v", got)
	}
}

func TestExitError_Message(t *testing.T) {
	err := &ExitError{Stderr: "a\nb\nc\nd\n", Err: errors.New("exit status 1")}
	if got := err.Error(); got != "exit status 1: b | c | d" {
		t.Errorf("Error() = %q", got)
	}
	if (&ExitError{Err: errors.New("x")}).Error() != "x" {
		t.Error("empty stderr should not be appended")
	}
}
