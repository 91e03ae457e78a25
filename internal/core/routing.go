package core

// RoutingKind says what the engine did with an intercepted call.
type RoutingKind int

const (
	// RouteProceed means the call was recorded as a plain interaction;
	// the proxy should apply the default answer (Answer, possibly nil).
	RouteProceed RoutingKind = iota

	// RouteStubbed means the call matched a bound stub; the proxy should
	// return Answer.
	RouteStubbed

	// RouteCapturedForStubbing means the call was captured as the pending
	// stub candidate; the proxy should return nothing meaningful.
	RouteCapturedForStubbing

	// RouteConsumedByVerification means the call was consumed as a
	// verification target and was not recorded; the proxy should return
	// nothing meaningful.
	RouteConsumedByVerification
)

// String implements fmt.Stringer for logs.
func (k RoutingKind) String() string {
	switch k {
	case RouteProceed:
		return "proceed"
	case RouteStubbed:
		return "stubbed"
	case RouteCapturedForStubbing:
		return "captured-for-stubbing"
	case RouteConsumedByVerification:
		return "consumed-by-verification"
	default:
		return "unknown"
	}
}

// Routing is the decision returned to the proxy layer for an intercepted
// call.
type Routing struct {
	Kind   RoutingKind
	Answer any
}
