// Package harness provides conformance testing for the protocol engine.
//
// The harness loads YAML scenarios describing a sequence of protocol
// operations against a set of mocks, executes them against the real engine,
// and validates per-step expectations plus final trace assertions.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: stub_then_verify
//	description: "Stub a call, replay it, verify it happened once"
//	mocks:
//	  - cache
//	steps:
//	  - op: begin_stub
//	  - op: call
//	    mock: cache
//	    method: Get
//	    args: ["k1"]
//	  - op: bind
//	    answer: "v1"
//	  - op: call
//	    mock: cache
//	    method: Get
//	    args: ["k1"]
//	    expect_route: stubbed
//	  - op: verify
//	    mock: cache
//	    mode: { times: 1 }
//	  - op: call
//	    mock: cache
//	    method: Get
//	    args: ["k1"]
//	assertions:
//	  - type: trace_count
//	    call: cache.Get
//	    count: 2
//
// Steps either expect success (no expect_error) or name the exact misuse
// code they must produce, so scenarios double as protocol-misuse tests.
//
// # Deterministic Execution
//
// Scenarios run with a fixed mock handle generator and a fresh logical
// clock, so the same scenario produces a byte-identical trace across runs.
// That makes the traces suitable for golden file comparison via goldie.
//
// Scenario shape is validated against an embedded CUE schema before
// execution, catching typos and invalid op names with precise errors.
package harness
