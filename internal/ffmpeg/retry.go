package ffmpeg

// RetryAction identifies why another attempt is made (or that none is).
type RetryAction int

const (
	RetryNone      RetryAction = iota
	RetryTimeout               // The attempt was killed by the timeout.
	RetryTransient             // stderr matched a transient pattern.
)

func (a RetryAction) String() string {
	switch a {
	case RetryTimeout:
		return "timeout"
	case RetryTransient:
		return "transient failure"
	default:
		return "none"
	}
}

// RetryState counts attempts for a single invocation.
type RetryState struct {
	Attempt     int
	MaxAttempts int
}

// NewRetryState allows retries additional attempts after the first.
func NewRetryState(retries int) *RetryState {
	if retries < 0 {
		retries = 0
	}
	return &RetryState{MaxAttempts: retries + 1}
}

// Advance classifies the error of a failed attempt and returns the reason
// for retrying, or RetryNone when the error is final or attempts are spent.
func (s *RetryState) Advance(err error) RetryAction {
	s.Attempt++
	if s.Attempt >= s.MaxAttempts || err == nil {
		return RetryNone
	}
	if !IsTransient(err) {
		return RetryNone
	}
	if isTimeout(err) {
		return RetryTimeout
	}
	return RetryTransient
}
