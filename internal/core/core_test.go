package core

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sleight/internal/call"
	"github.com/roach88/sleight/internal/misuse"
	"github.com/roach88/sleight/internal/progress"
	"github.com/roach88/sleight/internal/registry"
	"github.com/roach88/sleight/internal/testutil"
	"github.com/roach88/sleight/internal/verify"
)

func newTestCore(opts ...Option) *Core {
	base := []Option{
		WithHandleGenerator(testutil.NewFixedHandleGenerator("mock")),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	return New(append(base, opts...)...)
}

func newMock(t *testing.T, s *Session, name string) registry.Handle {
	t.Helper()
	h, err := s.Mock(registry.NewSettingsBuilder().Name(name).Build(), nil)
	require.NoError(t, err)
	return h
}

func ping() call.Description {
	return call.Description{Method: "ping"}
}

func find(id string) call.Description {
	return call.Description{Method: "find", Args: []any{id}}
}

func TestStubbingLifecycle(t *testing.T) {
	s := newTestCore().NewSession()
	h := newMock(t, s, "service")

	require.NoError(t, s.BeginStub())
	assert.Equal(t, progress.StateStubbingStarted, s.State())

	routing, err := s.RecordAndRoute(h, find("id-1"))
	require.NoError(t, err)
	assert.Equal(t, RouteCapturedForStubbing, routing.Kind)
	assert.Equal(t, progress.StateStubbingInProgress, s.State())

	require.NoError(t, s.BindAnswer("user-1"))
	assert.Equal(t, progress.StateIdle, s.State())

	// A matching call now returns the canned answer.
	routing, err = s.RecordAndRoute(h, find("id-1"))
	require.NoError(t, err)
	assert.Equal(t, RouteStubbed, routing.Kind)
	assert.Equal(t, "user-1", routing.Answer)

	// A non-matching call proceeds with the default answer (nil here).
	routing, err = s.RecordAndRoute(h, find("id-2"))
	require.NoError(t, err)
	assert.Equal(t, RouteProceed, routing.Kind)
	assert.Nil(t, routing.Answer)
}

func TestStubbing_DefaultAnswer(t *testing.T) {
	s := newTestCore().NewSession()
	h, err := s.Mock(registry.NewSettingsBuilder().Name("svc").DefaultAnswer("fallback").Build(), nil)
	require.NoError(t, err)

	routing, err := s.RecordAndRoute(h, ping())
	require.NoError(t, err)
	assert.Equal(t, RouteProceed, routing.Kind)
	assert.Equal(t, "fallback", routing.Answer)
}

func TestStubbing_LastBindingWins(t *testing.T) {
	s := newTestCore().NewSession()
	h := newMock(t, s, "service")

	require.NoError(t, s.BeginStub())
	_, err := s.RecordAndRoute(h, find("id-1"))
	require.NoError(t, err)
	require.NoError(t, s.BindAnswer("first"))

	require.NoError(t, s.BeginStub())
	_, err = s.RecordAndRoute(h, find("id-1"))
	require.NoError(t, err)
	require.NoError(t, s.BindAnswer("second"))

	routing, err := s.RecordAndRoute(h, find("id-1"))
	require.NoError(t, err)
	assert.Equal(t, RouteStubbed, routing.Kind)
	assert.Equal(t, "second", routing.Answer)
}

func TestBindAnswer_NoCallCaptured(t *testing.T) {
	s := newTestCore().NewSession()
	newMock(t, s, "service")

	require.NoError(t, s.BeginStub())
	err := s.BindAnswer("answer")
	require.Error(t, err)
	assert.True(t, misuse.HasCode(err, misuse.CodeMissingInvocation))

	// The failure force-reset the protocol.
	assert.Equal(t, progress.StateIdle, s.State())
	assert.NoError(t, s.Validate())
}

func TestBeginStub_DuringVerification(t *testing.T) {
	s := newTestCore().NewSession()
	h := newMock(t, s, "service")

	require.NoError(t, s.Verify(h, verify.Times(1)))

	err := s.BeginStub()
	require.Error(t, err)
	assert.True(t, misuse.HasCode(err, misuse.CodeUnfinishedVerification))
	assert.Equal(t, progress.StateIdle, s.State())
}

func TestVerify_ExactFlow(t *testing.T) {
	s := newTestCore().NewSession()
	h := newMock(t, s, "service")

	_, err := s.RecordAndRoute(h, ping())
	require.NoError(t, err)

	require.NoError(t, s.Verify(h, verify.Times(1)))
	assert.Equal(t, progress.StateVerifying, s.State())

	// The verification-target call is consumed, not recorded.
	routing, err := s.RecordAndRoute(h, ping())
	require.NoError(t, err)
	assert.Equal(t, RouteConsumedByVerification, routing.Kind)
	assert.Equal(t, progress.StateIdle, s.State())

	details := s.Core().MockingDetails(h)
	assert.Len(t, details.Invocations, 1, "target call must not appear in the log")

	// The one recorded call is now accounted for.
	assert.NoError(t, s.VerifyNoMoreInteractions(h))
}

func TestVerify_CountMismatch(t *testing.T) {
	s := newTestCore().NewSession()
	h := newMock(t, s, "service")

	_, err := s.RecordAndRoute(h, ping())
	require.NoError(t, err)

	require.NoError(t, s.Verify(h, verify.Times(2)))
	routing, err := s.RecordAndRoute(h, ping())
	require.Error(t, err)
	assert.True(t, verify.IsFailure(err))
	assert.Equal(t, RouteConsumedByVerification, routing.Kind)

	// The failed check did not mark anything; the call is still unaccounted.
	err = s.VerifyNoMoreInteractions(h)
	require.Error(t, err)
	assert.True(t, misuse.HasCode(err, misuse.CodeUnverifiedInteractions))
}

func TestVerify_Never(t *testing.T) {
	s := newTestCore().NewSession()
	h := newMock(t, s, "service")

	require.NoError(t, s.Verify(h, verify.Never()))
	_, err := s.RecordAndRoute(h, ping())
	assert.NoError(t, err, "never-called pattern verifies clean")
}

func TestVerify_NullTarget(t *testing.T) {
	s := newTestCore().NewSession()

	err := s.Verify(nil, verify.Times(1))
	require.Error(t, err)
	assert.True(t, misuse.HasCode(err, misuse.CodeNullMockTarget))

	err = s.Verify(registry.Handle(""), verify.Times(1))
	require.Error(t, err)
	assert.True(t, misuse.HasCode(err, misuse.CodeNullMockTarget), "zero handle is a null target")
}

func TestVerify_NotAMock(t *testing.T) {
	s := newTestCore().NewSession()

	err := s.Verify(42, verify.Times(1))
	require.Error(t, err)
	assert.True(t, misuse.HasCode(err, misuse.CodeNotAMock))

	err = s.Verify("unregistered-handle", verify.Times(1))
	require.Error(t, err)
	assert.True(t, misuse.HasCode(err, misuse.CodeNotAMock))
}

func TestVerify_DoubleBegin(t *testing.T) {
	s := newTestCore().NewSession()
	h := newMock(t, s, "service")

	require.NoError(t, s.Verify(h, verify.Times(1)))

	err := s.Verify(h, verify.Times(1))
	require.Error(t, err)
	assert.True(t, misuse.HasCode(err, misuse.CodeUnfinishedVerification))

	// Clean state afterwards: a fresh verification round-trips.
	assert.Equal(t, progress.StateIdle, s.State())
	_, err = s.RecordAndRoute(h, ping())
	require.NoError(t, err)
	require.NoError(t, s.Verify(h, verify.Times(1)))
	_, err = s.RecordAndRoute(h, ping())
	assert.NoError(t, err)
}

func TestIsMock_Totality(t *testing.T) {
	c := newTestCore()
	s := c.NewSession()
	h := newMock(t, s, "service")

	assert.True(t, c.IsMock(h))
	assert.True(t, c.IsMock(string(h)))
	assert.False(t, c.IsMock(nil))
	assert.False(t, c.IsMock(42))
	assert.False(t, c.IsMock("unregistered"))
	assert.False(t, c.IsMock(struct{ X int }{1}))
}

func TestInOrder_Validation(t *testing.T) {
	s := newTestCore().NewSession()
	h := newMock(t, s, "service")

	_, err := s.InOrder()
	require.Error(t, err)
	assert.True(t, misuse.HasCode(err, misuse.CodeEmptyMockSet))

	_, err = s.InOrder(h, nil)
	require.Error(t, err)
	assert.True(t, misuse.HasCode(err, misuse.CodeNullMockTarget))

	_, err = s.InOrder(h, 42)
	require.Error(t, err)
	assert.True(t, misuse.HasCode(err, misuse.CodeNotAMock))
}

func TestInOrder_Scenario(t *testing.T) {
	s := newTestCore().NewSession()
	a := newMock(t, s, "a")
	b := newMock(t, s, "b")

	// a.x, b.y, a.z recorded in that order.
	_, err := s.RecordAndRoute(a, call.Description{Method: "x"})
	require.NoError(t, err)
	_, err = s.RecordAndRoute(b, call.Description{Method: "y"})
	require.NoError(t, err)
	_, err = s.RecordAndRoute(a, call.Description{Method: "z"})
	require.NoError(t, err)

	octx, err := s.InOrder(a, b)
	require.NoError(t, err)

	require.NoError(t, s.VerifyInOrder(octx, a, verify.Times(1)))
	_, err = s.RecordAndRoute(a, call.Description{Method: "x"})
	require.NoError(t, err)

	require.NoError(t, s.VerifyInOrder(octx, b, verify.Times(1)))
	_, err = s.RecordAndRoute(b, call.Description{Method: "y"})
	require.NoError(t, err)

	require.NoError(t, s.VerifyInOrder(octx, a, verify.Times(1)))
	_, err = s.RecordAndRoute(a, call.Description{Method: "z"})
	require.NoError(t, err)

	assert.NoError(t, s.VerifyNoMoreInteractionsInOrder(octx))
}

func TestInOrder_OutOfOrderFails(t *testing.T) {
	s := newTestCore().NewSession()
	a := newMock(t, s, "a")
	b := newMock(t, s, "b")

	_, err := s.RecordAndRoute(a, call.Description{Method: "x"})
	require.NoError(t, err)
	_, err = s.RecordAndRoute(b, call.Description{Method: "y"})
	require.NoError(t, err)

	octx, err := s.InOrder(a, b)
	require.NoError(t, err)

	// Consuming b.y first moves the cursor past a.x.
	require.NoError(t, s.VerifyInOrder(octx, b, verify.Times(1)))
	_, err = s.RecordAndRoute(b, call.Description{Method: "y"})
	require.NoError(t, err)

	require.NoError(t, s.VerifyInOrder(octx, a, verify.Times(1)))
	_, err = s.RecordAndRoute(a, call.Description{Method: "x"})
	require.Error(t, err)
	assert.True(t, misuse.HasCode(err, misuse.CodeInOrderFailure))
}

func TestVerifyInOrder_MockNotInScope(t *testing.T) {
	s := newTestCore().NewSession()
	a := newMock(t, s, "a")
	b := newMock(t, s, "b")

	octx, err := s.InOrder(a)
	require.NoError(t, err)

	err = s.VerifyInOrder(octx, b, verify.Times(1))
	require.Error(t, err)
	assert.True(t, misuse.HasCode(err, misuse.CodeNotAMock),
		"wrong mock passed is an argument misuse, not an ordering failure")

	var me *misuse.Error
	require.ErrorAs(t, err, &me)
	assert.Equal(t, string(b), me.MockID)
}

func TestVerify_OtherMockCallNotConsumed(t *testing.T) {
	s := newTestCore().NewSession()
	first := newMock(t, s, "first")
	second := newMock(t, s, "second")

	_, err := s.RecordAndRoute(first, ping())
	require.NoError(t, err)

	require.NoError(t, s.Verify(first, verify.Times(1)))

	// A call on another mock is a plain interaction: it lands in that
	// mock's own log and leaves the declared verification pending.
	routing, err := s.RecordAndRoute(second, ping())
	require.NoError(t, err)
	assert.Equal(t, RouteProceed, routing.Kind)
	assert.Equal(t, progress.StateVerifying, s.State())

	details := s.Core().MockingDetails(second)
	require.Len(t, details.Invocations, 1)
	assert.Equal(t, "ping", details.Invocations[0].Desc.Method)

	// The target mock's next call closes the verification.
	routing, err = s.RecordAndRoute(first, ping())
	require.NoError(t, err)
	assert.Equal(t, RouteConsumedByVerification, routing.Kind)
	assert.Equal(t, progress.StateIdle, s.State())

	require.NoError(t, s.VerifyNoMoreInteractions(first))
}

func TestVerifyNoMoreInteractions_EmptySet(t *testing.T) {
	s := newTestCore().NewSession()

	err := s.VerifyNoMoreInteractions()
	require.Error(t, err)
	assert.True(t, misuse.HasCode(err, misuse.CodeEmptyMockSet))
}

func TestVerifyNoMoreInteractions_NamesLeftover(t *testing.T) {
	s := newTestCore().NewSession()
	h := newMock(t, s, "service")

	_, err := s.RecordAndRoute(h, find("id-1"))
	require.NoError(t, err)
	_, err = s.RecordAndRoute(h, ping())
	require.NoError(t, err)

	require.NoError(t, s.Verify(h, verify.Times(1)))
	_, err = s.RecordAndRoute(h, ping())
	require.NoError(t, err)

	err = s.VerifyNoMoreInteractions(h)
	require.Error(t, err)

	var me *misuse.Error
	require.ErrorAs(t, err, &me)
	require.Len(t, me.Invocations, 1, "exactly the unaccounted call is named")
	assert.True(t, me.Invocations[0].Desc.Equal(find("id-1")))
}

func TestReset(t *testing.T) {
	c := newTestCore()
	s := c.NewSession()
	h := newMock(t, s, "service")

	require.NoError(t, s.BeginStub())
	_, err := s.RecordAndRoute(h, find("id-1"))
	require.NoError(t, err)
	require.NoError(t, s.BindAnswer("user-1"))
	_, err = s.RecordAndRoute(h, ping())
	require.NoError(t, err)

	require.NoError(t, s.Reset(h))

	// History and stubs gone, identity intact.
	assert.True(t, c.IsMock(h))
	details := c.MockingDetails(h)
	assert.Empty(t, details.Invocations)
	assert.Equal(t, 0, details.StubCount)

	routing, err := s.RecordAndRoute(h, find("id-1"))
	require.NoError(t, err)
	assert.Equal(t, RouteProceed, routing.Kind, "stub binding did not survive reset")
}

func TestReset_Idempotent(t *testing.T) {
	s := newTestCore().NewSession()
	h := newMock(t, s, "service")

	require.NoError(t, s.Reset(h))
	require.NoError(t, s.Reset(h), "repeated reset of a fresh mock succeeds")
}

func TestReset_Validation(t *testing.T) {
	s := newTestCore().NewSession()

	err := s.Reset(nil)
	require.Error(t, err)
	assert.True(t, misuse.HasCode(err, misuse.CodeNullMockTarget))

	err = s.Reset(42)
	require.Error(t, err)
	assert.True(t, misuse.HasCode(err, misuse.CodeNotAMock))
}

func TestReset_ReportsOpenStub(t *testing.T) {
	s := newTestCore().NewSession()
	h := newMock(t, s, "service")

	require.NoError(t, s.BeginStub())

	err := s.Reset(h)
	require.Error(t, err)
	assert.True(t, misuse.HasCode(err, misuse.CodeUnfinishedStubbing))

	// The misuse was reported and cleared; reset now proceeds.
	assert.NoError(t, s.Reset(h))
}

func TestClearInvocations_KeepsStubs(t *testing.T) {
	c := newTestCore()
	s := c.NewSession()
	h := newMock(t, s, "service")

	require.NoError(t, s.BeginStub())
	_, err := s.RecordAndRoute(h, find("id-1"))
	require.NoError(t, err)
	require.NoError(t, s.BindAnswer("user-1"))

	require.NoError(t, s.ClearInvocations(h))

	details := c.MockingDetails(h)
	assert.Empty(t, details.Invocations)
	assert.Equal(t, 1, details.StubCount, "stub bindings survive a clear")

	routing, err := s.RecordAndRoute(h, find("id-1"))
	require.NoError(t, err)
	assert.Equal(t, RouteStubbed, routing.Kind)
	assert.Equal(t, "user-1", routing.Answer)
}

func TestIgnoreStubs(t *testing.T) {
	s := newTestCore().NewSession()
	h := newMock(t, s, "service")

	require.NoError(t, s.BeginStub())
	_, err := s.RecordAndRoute(h, find("id-1"))
	require.NoError(t, err)
	require.NoError(t, s.BindAnswer("user-1"))

	// The captured stub-setup call and the stubbed call both carry bindings.
	_, err = s.RecordAndRoute(h, find("id-1"))
	require.NoError(t, err)

	// An unstubbed call stays visible to verification.
	_, err = s.RecordAndRoute(h, ping())
	require.NoError(t, err)

	require.NoError(t, s.IgnoreStubs(h))

	err = s.VerifyNoMoreInteractions(h)
	require.Error(t, err)
	var me *misuse.Error
	require.ErrorAs(t, err, &me)
	require.Len(t, me.Invocations, 1, "only the unstubbed call is left over")
	assert.True(t, me.Invocations[0].Desc.Equal(ping()))
}

func TestSeq_StrictlyIncreasingAcrossMocks(t *testing.T) {
	c := newTestCore()
	s := c.NewSession()
	a := newMock(t, s, "a")
	b := newMock(t, s, "b")

	_, err := s.RecordAndRoute(a, ping())
	require.NoError(t, err)
	_, err = s.RecordAndRoute(b, ping())
	require.NoError(t, err)
	_, err = s.RecordAndRoute(a, ping())
	require.NoError(t, err)

	var seqs []int64
	for _, h := range []registry.Handle{a, b} {
		for _, inv := range c.MockingDetails(h).Invocations {
			seqs = append(seqs, inv.Seq)
		}
	}
	require.Len(t, seqs, 3)

	seen := make(map[int64]bool)
	for _, seq := range seqs {
		assert.False(t, seen[seq], "seq %d assigned twice", seq)
		seen[seq] = true
	}
	assert.Equal(t, int64(3), c.Clock().Current())
}

func TestMockingDetails(t *testing.T) {
	c := newTestCore()
	s := c.NewSession()
	h := newMock(t, s, "userService")

	_, err := s.RecordAndRoute(h, ping())
	require.NoError(t, err)

	details := c.MockingDetails(h)
	assert.True(t, details.IsMock)
	assert.Equal(t, h, details.Handle)
	assert.Equal(t, "userService", details.Name)
	assert.Len(t, details.Invocations, 1)

	// Total over arbitrary input.
	assert.False(t, c.MockingDetails(nil).IsMock)
	assert.False(t, c.MockingDetails(42).IsMock)
	assert.False(t, c.MockingDetails("unregistered").IsMock)
}

// badSettings satisfies registry.Settings but is not the builder's type.
type badSettings struct{}

func (badSettings) MockName() string   { return "bad" }
func (badSettings) DefaultAnswer() any { return nil }

func TestMock_UnsupportedSettings(t *testing.T) {
	s := newTestCore().NewSession()

	_, err := s.Mock(badSettings{}, nil)
	require.Error(t, err)
	assert.True(t, misuse.HasCode(err, misuse.CodeUnsupportedSettings))
}

func TestValidate_ReportsOpenOperations(t *testing.T) {
	s := newTestCore().NewSession()
	h := newMock(t, s, "service")

	assert.NoError(t, s.Validate())

	require.NoError(t, s.BeginStub())
	err := s.Validate()
	require.Error(t, err)
	assert.True(t, misuse.HasCode(err, misuse.CodeUnfinishedStubbing))

	// Validate is non-mutating: the stub declaration is still open and the
	// next call is captured for it.
	routing, err := s.RecordAndRoute(h, ping())
	require.NoError(t, err)
	assert.Equal(t, RouteCapturedForStubbing, routing.Kind)
}

func TestSessions_ShareRegistryNotProtocol(t *testing.T) {
	c := newTestCore()
	s1 := c.NewSession()
	s2 := c.NewSession()

	h := newMock(t, s1, "shared")

	// The mock is visible to both sessions.
	assert.True(t, c.IsMock(h))

	// An open stub in s1 does not leak into s2's protocol state.
	require.NoError(t, s1.BeginStub())
	assert.NoError(t, s2.Validate())

	routing, err := s2.RecordAndRoute(h, ping())
	require.NoError(t, err)
	assert.Equal(t, RouteProceed, routing.Kind, "s2 records plainly while s1 is mid-stub")
}
