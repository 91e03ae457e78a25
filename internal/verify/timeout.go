package verify

import (
	"fmt"
	"sync"
	"time"
)

// DefaultPollInterval is how often a timed mode re-evaluates its delegate.
const DefaultPollInterval = 10 * time.Millisecond

// Lazy is a mode that begins evaluating before the target call is known and
// re-polls the log as it grows. The gate re-snapshots the log for every
// evaluation attempt, so a lazy mode always sees the latest stable prefix.
type Lazy interface {
	Mode

	// Begin anchors the evaluation deadline. Called by the engine when the
	// verification is declared - before the target call arrives - so that
	// waiting starts at verify() time, not at interception time.
	Begin(now time.Time)

	// PollingVerify evaluates the delegate against fresh snapshots until it
	// succeeds or the deadline passes, returning the last failure.
	PollingVerify(fresh func() Data) error
}

// Timeout wraps a mode with a deadline, re-evaluating it against the current
// log state until it passes or time runs out. The polling cadence is a
// policy parameter, not a property of the gate, which stays synchronous.
type Timeout struct {
	delegate Mode
	duration time.Duration
	poll     time.Duration

	mu       sync.Mutex
	deadline time.Time
}

// NewTimeout wraps delegate with the given wait duration and the default
// poll interval.
func NewTimeout(duration time.Duration, delegate Mode) *Timeout {
	return NewTimeoutWithPoll(duration, DefaultPollInterval, delegate)
}

// NewTimeoutWithPoll wraps delegate with an explicit poll interval.
func NewTimeoutWithPoll(duration, poll time.Duration, delegate Mode) *Timeout {
	return &Timeout{
		delegate: delegate,
		duration: duration,
		poll:     poll,
	}
}

// Begin anchors the deadline at now + duration.
func (t *Timeout) Begin(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deadline = now.Add(t.duration)
}

// Verify evaluates the delegate once against the given snapshot.
func (t *Timeout) Verify(d Data) error {
	return t.delegate.Verify(d)
}

// PollingVerify re-evaluates the delegate against fresh snapshots until it
// succeeds or the deadline passes. If Begin was never called, the deadline
// anchors at the first evaluation.
func (t *Timeout) PollingVerify(fresh func() Data) error {
	t.mu.Lock()
	if t.deadline.IsZero() {
		t.deadline = time.Now().Add(t.duration)
	}
	deadline := t.deadline
	t.mu.Unlock()

	for {
		err := t.delegate.Verify(fresh())
		if err == nil {
			return nil
		}
		if !time.Now().Before(deadline) {
			return err
		}
		time.Sleep(t.poll)
	}
}

// Describe names the requirement for diagnostics context.
func (t *Timeout) Describe() string {
	return fmt.Sprintf("%s within %s", t.delegate.Describe(), t.duration)
}

// Evaluate is the verification gate: it runs a mode against log state,
// re-polling lazy modes with fresh snapshots and evaluating plain modes
// against a single snapshot.
func Evaluate(mode Mode, fresh func() Data) error {
	if lazy, ok := mode.(Lazy); ok {
		return lazy.PollingVerify(fresh)
	}
	return mode.Verify(fresh())
}

// MaybeBeginLazily anchors a lazy mode's deadline at now. Plain modes are
// returned unchanged; this is the only pre-evaluation the engine performs
// before the target call is known.
func MaybeBeginLazily(mode Mode, now time.Time) Mode {
	if lazy, ok := mode.(Lazy); ok {
		lazy.Begin(now)
	}
	return mode
}
