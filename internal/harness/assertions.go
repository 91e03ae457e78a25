package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when a trace assertion fails.
// Includes the full trace for debugging context.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "assertion failed: %s\n", e.Type)
	fmt.Fprintf(&b, "  expected: %s\n", e.Expected)
	fmt.Fprintf(&b, "  actual: %s\n", e.Actual)
	fmt.Fprintf(&b, "\nfull trace:\n")
	for _, event := range e.Trace {
		if event.Op == OpCall {
			fmt.Fprintf(&b, "  [%d] %s.%s %v (%s)\n",
				event.Step, event.Mock, event.Method, event.Args, event.Route)
		}
	}
	return b.String()
}

// assertTrace evaluates one assertion over the final trace.
// callRefs are "mockname.Method" strings; resolve maps handles back to
// scenario names when events carry handles.
func assertTrace(trace []TraceEvent, a Assertion, resolve func(string) string) error {
	switch a.Type {
	case AssertTraceContains:
		if countCalls(trace, a.Call, resolve) > 0 {
			return nil
		}
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("trace contains %s", a.Call),
			Actual:   "no matching call",
			Trace:    trace,
		}

	case AssertTraceCount:
		got := countCalls(trace, a.Call, resolve)
		if got == a.Count {
			return nil
		}
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s appears %d times", a.Call, a.Count),
			Actual:   fmt.Sprintf("%d times", got),
			Trace:    trace,
		}

	case AssertTraceOrder:
		next := 0
		for _, event := range trace {
			if next >= len(a.Calls) {
				break
			}
			if event.Op == OpCall && callRef(event, resolve) == a.Calls[next] {
				next++
			}
		}
		if next == len(a.Calls) {
			return nil
		}
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("calls in order %v", a.Calls),
			Actual:   fmt.Sprintf("order broken at %s", a.Calls[next]),
			Trace:    trace,
		}

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func callRef(event TraceEvent, resolve func(string) string) string {
	name := event.Mock
	if resolve != nil {
		name = resolve(event.Mock)
	}
	return name + "." + event.Method
}

func countCalls(trace []TraceEvent, ref string, resolve func(string) string) int {
	count := 0
	for _, event := range trace {
		if event.Op == OpCall && callRef(event, resolve) == ref {
			count++
		}
	}
	return count
}
