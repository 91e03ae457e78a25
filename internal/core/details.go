package core

import (
	"github.com/roach88/sleight/internal/call"
	"github.com/roach88/sleight/internal/registry"
)

// Details is an inspection view of a candidate object, for debugging and
// for tools that want to introspect a mock without touching protocol state.
type Details struct {
	// IsMock reports whether the inspected object is a registered mock.
	IsMock bool

	// Handle is the mock's identity; zero when IsMock is false.
	Handle registry.Handle

	// Name is the display name from the construction settings.
	Name string

	// Invocations is a snapshot of the recorded interactions.
	Invocations []*call.Invocation

	// StubCount is the number of bound stubs.
	StubCount int
}

// MockingDetails inspects an arbitrary value. Total: non-mocks (including
// nil) yield a Details with IsMock false.
func (c *Core) MockingDetails(x any) Details {
	if x == nil {
		return Details{}
	}

	var h registry.Handle
	switch v := x.(type) {
	case registry.Handle:
		h = v
	case string:
		h = registry.Handle(v)
	default:
		return Details{}
	}

	entry, ok := c.registry.Lookup(h)
	if !ok {
		return Details{}
	}
	return Details{
		IsMock:      true,
		Handle:      entry.Handle,
		Name:        entry.Settings().MockName(),
		Invocations: entry.Log().Snapshot(),
		StubCount:   entry.StubCount(),
	}
}
