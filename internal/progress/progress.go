package progress

import (
	"sync"

	"github.com/roach88/sleight/internal/call"
	"github.com/roach88/sleight/internal/inorder"
	"github.com/roach88/sleight/internal/misuse"
	"github.com/roach88/sleight/internal/verify"
)

// State is the protocol state machine's current phase.
type State int

const (
	// StateIdle means no protocol operation is pending.
	StateIdle State = iota

	// StateStubbingStarted means a stub declaration began and the next
	// intercepted call will be captured as the stub candidate.
	StateStubbingStarted

	// StateStubbingInProgress means a candidate call has been captured and
	// is waiting for its answer to be bound.
	StateStubbingInProgress

	// StateVerifying means a verification mode has been declared and is
	// waiting for the one call it applies to.
	StateVerifying
)

// String implements fmt.Stringer for logs.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStubbingStarted:
		return "stubbing-started"
	case StateStubbingInProgress:
		return "stubbing-in-progress"
	case StateVerifying:
		return "verifying"
	default:
		return "unknown"
	}
}

// VerificationRequest is the pending "currently being verified" slot:
// the target mock and mode awaiting the next call to check.
type VerificationRequest struct {
	// Target is the mock handle the verification applies to.
	Target string

	// Mode is the count requirement, possibly already anchored for lazy
	// (timed) modes.
	Mode verify.Mode

	// Ordered is the in-order scope this verification consumes from,
	// or nil for a plain verification.
	Ordered *inorder.Context
}

// Progress is the per-context protocol state machine.
//
// Thread-safety: a context runs one operation at a time, but Progress is
// still mutex-guarded so interleaved misuse from another goroutine is
// detected rather than corrupting state.
type Progress struct {
	mu           sync.Mutex
	state        State
	pendingStub  *call.Invocation
	verification *VerificationRequest
}

// New creates a Progress in StateIdle.
func New() *Progress {
	return &Progress{}
}

// CurrentState returns the machine's current phase.
func (p *Progress) CurrentState() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// StubbingStarted begins a stub declaration.
//
// A pending unbound stub is discarded silently - the new declaration wins,
// matching the overwrite convention test authors expect when rewriting a
// stub setup line. A pending verification is a misuse: it must have been
// closed by its target call first.
func (p *Progress) StubbingStarted() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateVerifying {
		target := p.verification.Target
		p.resetLocked()
		return misuse.UnfinishedVerification(target)
	}

	// Last declaration wins over StateStubbingStarted/InProgress.
	p.pendingStub = nil
	p.state = StateStubbingStarted
	return nil
}

// CaptureStubbing records the candidate call for the open stub declaration.
// Only meaningful while StateStubbingStarted; the router guarantees that.
func (p *Progress) CaptureStubbing(inv *call.Invocation) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pendingStub = inv
	p.state = StateStubbingInProgress
}

// PullPendingStub consumes and returns the captured stub candidate,
// returning the machine to StateIdle.
//
// Valid only from StateStubbingInProgress. From any other state the stub
// declaration completed without a captured call, which fails with
// MISSING_INVOCATION after a force-reset.
func (p *Progress) PullPendingStub() (*call.Invocation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateStubbingInProgress || p.pendingStub == nil {
		p.resetLocked()
		return nil, misuse.MissingInvocation()
	}

	inv := p.pendingStub
	p.pendingStub = nil
	p.state = StateIdle
	return inv, nil
}

// VerificationStarted begins a verification, storing the request for the
// next intercepted call to consume. Starting over any open operation is a
// misuse and force-resets.
func (p *Progress) VerificationStarted(req *VerificationRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case StateVerifying:
		target := p.verification.Target
		p.resetLocked()
		return misuse.UnfinishedVerification(target)
	case StateStubbingStarted, StateStubbingInProgress:
		p.resetLocked()
		return misuse.UnfinishedStubbing()
	}

	p.verification = req
	p.state = StateVerifying
	return nil
}

// PullVerificationFor consumes the pending verification request if it targets
// the given mock, returning the machine to StateIdle. A verification pending
// for a different mock stays installed: a call on some other mock belongs in
// that mock's log and must not close the declared verification.
func (p *Progress) PullVerificationFor(mockID string) *VerificationRequest {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateVerifying || p.verification.Target != mockID {
		return nil
	}
	req := p.verification
	p.verification = nil
	p.state = StateIdle
	return req
}

// Validate proactively checks that the protocol is clean without changing
// state. It fails if the current state is not StateIdle.
func (p *Progress) Validate() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case StateVerifying:
		return misuse.UnfinishedVerification(p.verification.Target)
	case StateStubbingStarted, StateStubbingInProgress:
		return misuse.UnfinishedStubbing()
	default:
		return nil
	}
}

// ValidateAndReset checks that the protocol is clean; on misuse it
// force-resets to StateIdle before reporting, so subsequent calls are not
// cascade-corrupted. Used as the precondition for protocol-starting
// operations and for the explicit reset entry points.
func (p *Progress) ValidateAndReset() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case StateVerifying:
		target := p.verification.Target
		p.resetLocked()
		return misuse.UnfinishedVerification(target)
	case StateStubbingStarted, StateStubbingInProgress:
		p.resetLocked()
		return misuse.UnfinishedStubbing()
	default:
		return nil
	}
}

// Reset unconditionally returns to StateIdle, discarding any captured stub
// or pending verification without evaluating them.
func (p *Progress) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
}

func (p *Progress) resetLocked() {
	p.state = StateIdle
	p.pendingStub = nil
	p.verification = nil
}
