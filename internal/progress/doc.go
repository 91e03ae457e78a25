// Package progress implements the per-context interaction-protocol state
// machine.
//
// The same physical call on a mock means different things depending on what
// the test just did: it is a plain recorded interaction, the capture half of
// a stub definition, or the target of a pending verification. Progress
// tracks which of those is currently being set up and arbitrates the next
// observed invocation against that pending state.
//
// States:
//
//	StateIdle               nothing pending
//	StateStubbingStarted    a stub-intent call is expected next
//	StateStubbingInProgress a candidate call was captured, awaiting its answer
//	StateVerifying          a mode was declared, awaiting its target call
//
// INVARIANTS:
//   - All state is exclusively owned by the context (test thread) holding
//     this Progress; there is no cross-context sharing.
//   - Detected misuse force-resets to StateIdle before propagating, so one
//     misuse cannot mis-attribute the next real invocation.
//   - A new stub declaration silently discards a pending unbound stub
//     (last declaration wins); every other overlap is a misuse.
package progress
