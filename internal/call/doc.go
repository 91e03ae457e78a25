// Package call defines the invocation data model for the protocol engine.
//
// An Invocation is one observed call against a mock: the owning mock handle,
// a globally monotonic sequence number, the raw call description, and two
// verification marks (verified, ignored). The engine treats the description's
// method and arguments as opaque data - it never inspects call internals,
// only compares descriptions for equality and hashes them for identity.
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// All invocations are stamped with a strictly increasing seq number from
// Clock.Next(). The clock is global across all mocks, NEVER per-mock, because
// ordered verification merges invocations from several mocks into one
// timeline and the merge is meaningful only under a single total order.
//
// Content-Addressed Identity:
// Archive records and stub bindings are identified by domain-separated
// SHA-256 over canonical JSON (sorted keys, NFC-normalized strings, no
// floats). Identical calls hash identically across runs.
package call
