// Package registry is the authoritative answer to "is this object a mock
// created by this engine", and the lookup from mock handle to its invocation
// log, handler reference, and construction settings.
//
// A handle is either fully absent from the registry or fully valid - entries
// are installed atomically under the registry lock, never half-registered.
// Reset of a mock replaces its log and stub bindings but keeps the entry:
// the object remains a mock for its lifetime.
package registry

import (
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/sleight/internal/call"
	"github.com/roach88/sleight/internal/record"
)

// Handle is the opaque identity of a proxied object.
// The zero value is "no mock" and is never registered.
type Handle string

// HandleGenerator produces unique mock handles.
// Implemented by UUIDv7Generator (production) and a fixed generator in
// testutil for deterministic traces.
type HandleGenerator interface {
	Generate() Handle
}

// UUIDv7Generator generates time-sortable UUIDv7 handles.
//
// UUIDv7 embeds a timestamp in the most significant bits, so handles sort
// by mock creation time - helpful when scanning archive sessions.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 handle.
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() Handle {
	return Handle(uuid.Must(uuid.NewV7()).String())
}

// stubbedAnswer associates a call pattern with its canned answer.
type stubbedAnswer struct {
	desc    call.Description
	binding *call.StubBinding
}

// Entry is the registry's record for one mock.
type Entry struct {
	// Handle is the mock's identity.
	Handle Handle

	// Handler is the proxy layer's handler reference, opaque to the engine.
	Handler any

	mu       sync.Mutex
	settings *creationSettings
	log      *record.Log
	stubs    []stubbedAnswer
}

// Settings returns the immutable construction settings.
func (e *Entry) Settings() Settings {
	return e.settings
}

// Log returns the mock's current invocation log.
// Reset installs a fresh log, so callers must not cache the returned
// pointer across reset boundaries.
func (e *Entry) Log() *record.Log {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.log
}

// AddStub binds an answer to a call pattern.
// Later bindings for the same pattern win over earlier ones.
func (e *Entry) AddStub(desc call.Description, binding *call.StubBinding) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stubs = append(e.stubs, stubbedAnswer{desc: desc, binding: binding})
}

// AnswerFor returns the stub binding for a call pattern, newest first,
// or nil if no stub matches.
func (e *Entry) AnswerFor(desc call.Description) *call.StubBinding {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := len(e.stubs) - 1; i >= 0; i-- {
		if e.stubs[i].desc.Equal(desc) {
			return e.stubs[i].binding
		}
	}
	return nil
}

// StubCount returns the number of recorded stub bindings.
func (e *Entry) StubCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.stubs)
}

// reset replaces the invocation log with an empty one and discards all
// stub bindings. The entry itself survives.
func (e *Entry) reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.log = record.NewLog()
	e.stubs = nil
}

// Registry maps mock handles to their entries.
//
// Thread-safety: all methods are safe for concurrent use. The registry and
// the logs it owns are the only state shared between test contexts.
type Registry struct {
	mu      sync.RWMutex
	entries map[Handle]*Entry
	gen     HandleGenerator
}

// New creates an empty registry using the given handle generator.
func New(gen HandleGenerator) *Registry {
	if gen == nil {
		gen = UUIDv7Generator{}
	}
	return &Registry{
		entries: make(map[Handle]*Entry),
		gen:     gen,
	}
}

// Register creates a mock entry for validated settings and a handler
// reference, returning the new handle's entry.
//
// The settings must come from the sanctioned builder; anything else fails
// with UNSUPPORTED_SETTINGS_IMPLEMENTATION.
func (r *Registry) Register(s Settings, handler any) (*Entry, error) {
	impl, err := confirm(s)
	if err != nil {
		return nil, err
	}

	entry := &Entry{
		Handle:   r.gen.Generate(),
		Handler:  handler,
		settings: impl,
		log:      record.NewLog(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.Handle] = entry
	return entry, nil
}

// Lookup returns the entry for a handle.
func (r *Registry) Lookup(h Handle) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[h]
	return e, ok
}

// IsMock reports whether x is a mock created by this engine.
//
// Total for arbitrary input: nil, non-handle values, and unregistered
// handles all return false. Never panics.
func (r *Registry) IsMock(x any) bool {
	switch h := x.(type) {
	case Handle:
		_, ok := r.Lookup(h)
		return ok
	case string:
		_, ok := r.Lookup(Handle(h))
		return ok
	default:
		return false
	}
}

// Reset replaces a mock's invocation log with an empty one and discards its
// stub bindings. The registry entry survives - the object remains a mock.
// Resetting an unknown handle is a no-op returning false.
func (r *Registry) Reset(h Handle) bool {
	e, ok := r.Lookup(h)
	if !ok {
		return false
	}
	e.reset()
	return true
}

// Release removes a mock from the registry entirely.
// Used on test-context teardown; after release, IsMock returns false.
func (r *Registry) Release(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, h)
}

// Count returns the number of registered mocks.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Handles returns the registered handles in unspecified order.
func (r *Registry) Handles() []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Handle, 0, len(r.entries))
	for h := range r.entries {
		out = append(out, h)
	}
	return out
}
