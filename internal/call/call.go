package call

import (
	"fmt"
	"reflect"
	"sync/atomic"
)

// Description is the raw method + arguments of one observed call.
// The engine treats it as opaque data: descriptions are compared for
// equality and hashed for identity, never interpreted.
type Description struct {
	// Method is the invoked method name as reported by the proxy layer.
	Method string

	// Args are the call arguments, opaque to the engine.
	Args []any
}

// Equal reports whether two descriptions denote the same call pattern.
// Arguments are compared with deep equality since the engine has no
// matcher layer of its own.
func (d Description) Equal(other Description) bool {
	if d.Method != other.Method {
		return false
	}
	if len(d.Args) != len(other.Args) {
		return false
	}
	return reflect.DeepEqual(d.Args, other.Args)
}

// String renders the description for logs and diagnostics context.
// The reporting layer owns user-facing prose; this is debugging output only.
func (d Description) String() string {
	return fmt.Sprintf("%s(%v)", d.Method, d.Args)
}

// StubBinding is the opaque answer reference attached to an invocation once
// a stub has been bound against it.
type StubBinding struct {
	// Answer is the canned response, opaque to the engine.
	Answer any
}

// Invocation is one recorded call against a mock.
//
// Lifecycle: appended to the owning mock's log exactly once, at interception
// time; never removed except by a whole-log clear on reset.
//
// The marks (verified, ignored, stub binding) are the only mutable parts.
// They use atomics so that verification queries reading a log snapshot
// observe consistent values without holding the log lock.
type Invocation struct {
	// MockID is the handle of the mock this call was observed on.
	MockID string

	// Seq is the global sequence number from Clock.Next().
	// Strictly increasing across ALL mocks, not per-mock.
	Seq int64

	// Desc is the raw call description.
	Desc Description

	verified atomic.Bool
	ignored  atomic.Bool
	binding  atomic.Pointer[StubBinding]
}

// NewInvocation creates an invocation record for an observed call.
func NewInvocation(mockID string, seq int64, desc Description) *Invocation {
	return &Invocation{
		MockID: mockID,
		Seq:    seq,
		Desc:   desc,
	}
}

// MarkVerified flags this invocation as accounted for by a verification.
func (i *Invocation) MarkVerified() {
	i.verified.Store(true)
}

// Verified reports whether a verification has accounted for this invocation.
func (i *Invocation) Verified() bool {
	return i.verified.Load()
}

// Ignore excludes this invocation from verification.
// Set by explicit ignore operations; never unset.
func (i *Invocation) Ignore() {
	i.ignored.Store(true)
}

// Ignored reports whether this invocation is excluded from verification.
func (i *Invocation) Ignored() bool {
	return i.ignored.Load()
}

// BindStub attaches the answer reference recorded for this invocation.
func (i *Invocation) BindStub(b *StubBinding) {
	i.binding.Store(b)
}

// Stub returns the attached stub binding, or nil if none was bound.
func (i *Invocation) Stub() *StubBinding {
	return i.binding.Load()
}

// String renders the invocation for logs and diagnostics context.
func (i *Invocation) String() string {
	return fmt.Sprintf("[%d] %s.%s", i.Seq, i.MockID, i.Desc)
}
