package harness

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/sleight/internal/call"
	"github.com/roach88/sleight/internal/core"
	"github.com/roach88/sleight/internal/inorder"
	"github.com/roach88/sleight/internal/misuse"
	"github.com/roach88/sleight/internal/registry"
	"github.com/roach88/sleight/internal/testutil"
	"github.com/roach88/sleight/internal/verify"
)

// errorCodeVerificationFailure is the trace code for count-mismatch
// failures, which carry no misuse code of their own.
const errorCodeVerificationFailure = "VERIFICATION_FAILURE"

// runner executes one scenario against a fresh engine.
type runner struct {
	session *core.Session
	handles map[string]registry.Handle
	groups  map[string]*inorder.Context
	result  *Result
}

// Run executes a scenario and returns its result.
//
// Each scenario runs against a fresh Core with a fixed handle generator and
// a fresh clock, so repeated runs produce byte-identical traces. The error
// return covers scenario-level problems (unknown mock name, malformed
// step); protocol errors the scenario expects are part of the Result.
func Run(scenario *Scenario) (*Result, error) {
	// Discard engine logs: the harness reports through the Result.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	c := core.New(
		core.WithHandleGenerator(testutil.NewFixedHandleGenerator("mock")),
		core.WithLogger(logger),
	)

	r := &runner{
		session: c.NewSession(),
		handles: make(map[string]registry.Handle, len(scenario.Mocks)),
		groups:  make(map[string]*inorder.Context),
		result:  NewResult(),
	}

	for _, name := range scenario.Mocks {
		settings := registry.NewSettingsBuilder().Name(name).Build()
		h, err := r.session.Mock(settings, nil)
		if err != nil {
			return nil, fmt.Errorf("register mock %q: %w", name, err)
		}
		r.handles[name] = h
	}

	for i, step := range scenario.Steps {
		if err := r.runStep(i, step); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
		}
	}

	// Trace events carry scenario mock names, so assertions resolve directly.
	for _, a := range scenario.Assertions {
		if err := assertTrace(r.result.Trace, a, nil); err != nil {
			r.result.AddError("%v", err)
		}
	}

	return r.result, nil
}

// handleFor resolves a scenario mock name. The literal "null" injects a nil
// target so scenarios can exercise NULL_MOCK_TARGET; any unregistered name
// is passed through as a bogus handle to exercise NOT_A_MOCK.
func (r *runner) handleFor(name string) any {
	if name == "" || name == "null" {
		return nil
	}
	if h, ok := r.handles[name]; ok {
		return h
	}
	return registry.Handle("not-a-mock:" + name)
}

// targets resolves a step's mock list.
func (r *runner) targets(names []string) []any {
	out := make([]any, len(names))
	for i, n := range names {
		out[i] = r.handleFor(n)
	}
	return out
}

func (r *runner) runStep(index int, step Step) error {
	event := TraceEvent{
		Step:   index + 1,
		Op:     step.Op,
		Mock:   step.Mock,
		Method: step.Method,
		Args:   step.Args,
	}

	var err error
	switch step.Op {
	case OpBeginStub:
		err = r.session.BeginStub()

	case OpCall:
		h, ok := r.handleFor(step.Mock).(registry.Handle)
		if !ok {
			return fmt.Errorf("call step requires a mock name")
		}
		var routing core.Routing
		routing, err = r.session.RecordAndRoute(h, description(step))
		if err == nil || routing.Kind == core.RouteConsumedByVerification {
			event.Route = routing.Kind.String()
		}
		if err == nil && routing.Kind != core.RouteConsumedByVerification {
			event.Seq = r.session.Core().Clock().Current()
		}
		if step.ExpectRoute != "" && routing.Kind.String() != step.ExpectRoute {
			r.result.AddError("step %d: expected route %s, got %s",
				index+1, step.ExpectRoute, routing.Kind)
		}

	case OpBind:
		err = r.session.BindAnswer(step.Answer)

	case OpVerify:
		err = r.session.Verify(r.handleFor(step.Mock), buildMode(step.Mode))

	case OpInOrder:
		var octx *inorder.Context
		octx, err = r.session.InOrder(r.targets(step.Mocks)...)
		if err == nil {
			r.groups[step.Group] = octx
		}

	case OpVerifyInOrder:
		octx, ok := r.groups[step.Group]
		if !ok {
			return fmt.Errorf("unknown in-order group %q", step.Group)
		}
		err = r.session.VerifyInOrder(octx, r.handleFor(step.Mock), buildMode(step.Mode))

	case OpNoMore:
		err = r.session.VerifyNoMoreInteractions(r.targets(step.Mocks)...)

	case OpNoMoreInOrder:
		octx, ok := r.groups[step.Group]
		if !ok {
			return fmt.Errorf("unknown in-order group %q", step.Group)
		}
		err = r.session.VerifyNoMoreInteractionsInOrder(octx)

	case OpReset:
		err = r.session.Reset(r.targets(step.Mocks)...)

	case OpClear:
		err = r.session.ClearInvocations(r.targets(step.Mocks)...)

	case OpIgnoreStubs:
		err = r.session.IgnoreStubs(r.targets(step.Mocks)...)

	case OpValidate:
		err = r.session.Validate()

	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}

	event.Error = errorCode(err)
	r.result.Trace = append(r.result.Trace, event)

	if step.ExpectError == "" && err != nil {
		r.result.AddError("step %d (%s): unexpected error: %v", index+1, step.Op, err)
	}
	if step.ExpectError != "" && event.Error != step.ExpectError {
		r.result.AddError("step %d (%s): expected error %s, got %q",
			index+1, step.Op, step.ExpectError, event.Error)
	}
	return nil
}

// description builds the call description from a step.
func description(step Step) call.Description {
	return call.Description{
		Method: step.Method,
		Args:   step.Args,
	}
}

// buildMode converts a ModeSpec to a verification mode.
// Nil defaults to exactly once.
func buildMode(spec *ModeSpec) verify.Mode {
	if spec == nil {
		return verify.Times(1)
	}
	switch {
	case spec.Never:
		return verify.Never()
	case spec.Times != nil:
		return verify.Times(*spec.Times)
	case spec.AtLeast != nil:
		return verify.AtLeast(*spec.AtLeast)
	case spec.AtMost != nil:
		return verify.AtMost(*spec.AtMost)
	default:
		return verify.Times(1)
	}
}

// errorCode maps a protocol error to its trace code.
func errorCode(err error) string {
	if err == nil {
		return ""
	}
	if code := misuse.CodeOf(err); code != "" {
		return string(code)
	}
	if verify.IsFailure(err) {
		return errorCodeVerificationFailure
	}
	return err.Error()
}
