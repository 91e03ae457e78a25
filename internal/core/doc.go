// Package core orchestrates the protocol engine: it is the single entry
// point the test-facing API calls.
//
// A Core owns the state shared between test contexts - the mock registry,
// the global logical clock, and the optional interaction archive. Each
// logical test context obtains its own Session, which owns the per-context
// protocol state machine. Parallel test contexts hold independent Sessions;
// their invocations interleave into one total order through the shared
// clock, and the registry's logs are the only cross-context state.
//
// Control flow: test code calls into a Session (BeginStub / Verify /
// InOrder / Reset / Validate); the next intercepted call on a mock arrives
// through RecordAndRoute, which consults whichever slot is open and routes
// the call accordingly - plain recorded interaction, stub capture, or
// verification target.
package core
