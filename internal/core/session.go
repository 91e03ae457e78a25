package core

import (
	"time"

	"github.com/roach88/sleight/internal/call"
	"github.com/roach88/sleight/internal/inorder"
	"github.com/roach88/sleight/internal/misuse"
	"github.com/roach88/sleight/internal/progress"
	"github.com/roach88/sleight/internal/registry"
	"github.com/roach88/sleight/internal/verify"
)

// Session is the per-test-context handle onto the engine.
//
// All protocol state (the pending-stub slot, the pending-verification slot,
// the state enum) is exclusively owned by this Session; callers obtain one
// per logical test context rather than relying on ambient global lookup.
type Session struct {
	core     *Core
	progress *progress.Progress
}

// Core returns the engine this session belongs to.
func (s *Session) Core() *Core {
	return s.core
}

// State returns the session's current protocol state.
func (s *Session) State() progress.State {
	return s.progress.CurrentState()
}

// Mock registers a new mock built from the given settings, returning its
// handle. The settings must come from registry.NewSettingsBuilder; anything
// else fails with UNSUPPORTED_SETTINGS_IMPLEMENTATION. The handler is the
// proxy layer's reference, opaque to the engine.
func (s *Session) Mock(settings registry.Settings, handler any) (registry.Handle, error) {
	entry, err := s.core.registry.Register(settings, handler)
	if err != nil {
		return "", err
	}
	s.core.logger.Info("mock created",
		"mock", entry.Handle,
		"name", entry.Settings().MockName(),
	)
	return entry.Handle, nil
}

// BeginStub declares that the next intercepted call defines a stub.
//
// A previous stub left unbound is discarded silently - the new declaration
// wins. A pending verification is a misuse (UNFINISHED_VERIFICATION) and
// force-resets the protocol.
func (s *Session) BeginStub() error {
	return s.progress.StubbingStarted()
}

// PullPendingStub consumes and returns the captured stub candidate.
// Fails with MISSING_INVOCATION if no call was intercepted since BeginStub.
func (s *Session) PullPendingStub() (*call.Invocation, error) {
	return s.progress.PullPendingStub()
}

// BindAnswer closes the open stub declaration by binding the canned answer
// to the captured call. Future matching calls on that mock return the
// answer; later bindings for the same call pattern win.
func (s *Session) BindAnswer(answer any) error {
	inv, err := s.progress.PullPendingStub()
	if err != nil {
		return err
	}

	binding := &call.StubBinding{Answer: answer}
	inv.BindStub(binding)

	if entry, ok := s.core.registry.Lookup(registry.Handle(inv.MockID)); ok {
		entry.AddStub(inv.Desc, binding)
	}

	s.core.logger.Debug("stub bound",
		"mock", inv.MockID,
		"method", inv.Desc.Method,
		"seq", inv.Seq,
	)
	return nil
}

// Verify declares a verification: the next intercepted call on the mock is
// checked against mode. Lazy (timed) modes are anchored now, before the
// target call is known.
func (s *Session) Verify(mock any, mode verify.Mode) error {
	entry, err := s.core.requireMock(mock)
	if err != nil {
		return err
	}

	actual := verify.MaybeBeginLazily(mode, time.Now())
	return s.progress.VerificationStarted(&progress.VerificationRequest{
		Target: string(entry.Handle),
		Mode:   actual,
	})
}

// VerifyInOrder declares an ordered verification against an in-order scope.
// The mock must be part of the scope.
func (s *Session) VerifyInOrder(octx *inorder.Context, mock any, mode verify.Mode) error {
	entry, err := s.core.requireMock(mock)
	if err != nil {
		return err
	}
	if !octx.Contains(string(entry.Handle)) {
		return misuse.MockNotInOrderScope(string(entry.Handle))
	}

	actual := verify.MaybeBeginLazily(mode, time.Now())
	return s.progress.VerificationStarted(&progress.VerificationRequest{
		Target:  string(entry.Handle),
		Mode:    actual,
		Ordered: octx,
	})
}

// RecordAndRoute is the proxy layer's entry point: every call observed on a
// mock arrives here. Depending on the session's state the call is consumed
// as a verification target, captured as the pending stub candidate, or
// recorded as a plain interaction (stubbed or default).
//
// Recording itself never fails; only the protocol operations layered on top
// of it can.
func (s *Session) RecordAndRoute(mock registry.Handle, desc call.Description) (Routing, error) {
	entry, err := s.core.requireMock(mock)
	if err != nil {
		return Routing{}, err
	}

	// A pending verification targeting this mock consumes the call instead
	// of recording it. A verification for a different mock stays pending and
	// the call is recorded normally.
	if req := s.progress.PullVerificationFor(string(entry.Handle)); req != nil {
		verr := s.evaluateVerification(req, desc)
		s.core.logger.Debug("verification evaluated",
			"mock", req.Target,
			"method", desc.Method,
			"mode", req.Mode.Describe(),
			"ok", verr == nil,
		)
		return Routing{Kind: RouteConsumedByVerification}, verr
	}

	inv := call.NewInvocation(string(mock), s.core.clock.Next(), desc)
	entry.Log().Append(inv)
	s.core.archiveRecord(inv, entry.Settings().MockName())

	if s.progress.CurrentState() == progress.StateStubbingStarted {
		s.progress.CaptureStubbing(inv)
		s.core.logger.Debug("call captured for stubbing",
			"mock", inv.MockID,
			"method", desc.Method,
			"seq", inv.Seq,
		)
		return Routing{Kind: RouteCapturedForStubbing}, nil
	}

	if binding := entry.AnswerFor(desc); binding != nil {
		inv.BindStub(binding)
		return Routing{Kind: RouteStubbed, Answer: binding.Answer}, nil
	}
	return Routing{Kind: RouteProceed, Answer: entry.Settings().DefaultAnswer()}, nil
}

// evaluateVerification runs a consumed verification request against the log.
func (s *Session) evaluateVerification(req *progress.VerificationRequest, desc call.Description) error {
	if req.Ordered != nil {
		return req.Ordered.Verify(req.Target, desc, req.Mode, s.core.mergedFor(req.Ordered))
	}

	want := desc
	return verify.Evaluate(req.Mode, s.core.snapshotFor(req.Target, &want))
}

// Reset unconditionally returns the protocol to idle and resets the given
// mocks: each mock's log is replaced with an empty one and its stub bindings
// are discarded, but the mock identity survives. An open protocol operation
// is reported as misuse first (and cleared as part of reporting).
func (s *Session) Reset(mocks ...any) error {
	if err := s.progress.ValidateAndReset(); err != nil {
		return err
	}

	for _, m := range mocks {
		entry, err := s.core.requireMock(m)
		if err != nil {
			return err
		}
		s.core.registry.Reset(entry.Handle)
		s.core.logger.Debug("mock reset", "mock", entry.Handle)
	}
	return nil
}

// ClearInvocations empties the given mocks' logs while keeping their stub
// bindings, for tests that need a clean slate of interactions but stubbed
// behavior intact.
func (s *Session) ClearInvocations(mocks ...any) error {
	if err := s.progress.ValidateAndReset(); err != nil {
		return err
	}

	for _, m := range mocks {
		entry, err := s.core.requireMock(m)
		if err != nil {
			return err
		}
		entry.Log().Clear()
	}
	return nil
}

// VerifyNoMoreInteractions checks that every invocation on each given mock
// is already accounted for by a prior verification or flagged ignored.
// Unaccounted invocations fail with UNVERIFIED_INTERACTIONS naming them.
func (s *Session) VerifyNoMoreInteractions(mocks ...any) error {
	if len(mocks) == 0 {
		return misuse.EmptyMockSet()
	}
	if err := s.progress.ValidateAndReset(); err != nil {
		return err
	}

	for _, m := range mocks {
		entry, err := s.core.requireMock(m)
		if err != nil {
			return err
		}
		data := verify.Data{
			MockID: string(entry.Handle),
			All:    entry.Log().Snapshot(),
		}
		if err := verify.NoMoreInteractions().Verify(data); err != nil {
			return err
		}
	}
	return nil
}

// InOrder creates an ordered verification scope over the given mocks.
// The scope's cursor is independent of any other scope, even over
// overlapping mock sets.
func (s *Session) InOrder(mocks ...any) (*inorder.Context, error) {
	if len(mocks) == 0 {
		return nil, misuse.EmptyMockSet()
	}
	if err := s.progress.ValidateAndReset(); err != nil {
		return nil, err
	}

	handles := make([]string, 0, len(mocks))
	for _, m := range mocks {
		entry, err := s.core.requireMock(m)
		if err != nil {
			return nil, err
		}
		handles = append(handles, string(entry.Handle))
	}
	return inorder.NewContext(handles), nil
}

// VerifyNoMoreInteractionsInOrder checks that the scope's merged,
// unconsumed remainder is empty apart from verified or ignored invocations.
func (s *Session) VerifyNoMoreInteractionsInOrder(octx *inorder.Context) error {
	if err := s.progress.ValidateAndReset(); err != nil {
		return err
	}
	return octx.VerifyNoMoreInteractions(s.core.mergedFor(octx))
}

// IgnoreStubs excludes every stub-bound invocation on the given mocks from
// verification, so "no more interactions" checks skip stubbed calls.
func (s *Session) IgnoreStubs(mocks ...any) error {
	for _, m := range mocks {
		entry, err := s.core.requireMock(m)
		if err != nil {
			return err
		}
		for _, inv := range entry.Log().Snapshot() {
			if inv.Stub() != nil {
				inv.Ignore()
			}
		}
	}
	return nil
}

// Validate proactively checks that the protocol is clean without changing
// state: it fails if a stub or verification is currently open.
func (s *Session) Validate() error {
	return s.progress.Validate()
}
