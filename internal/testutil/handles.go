// Package testutil provides deterministic helpers for protocol tests.
//
// Production mock handles are UUIDv7 and differ every run; golden trace
// comparison requires byte-identical output across runs, so tests swap in
// the fixed generator here.
package testutil

import (
	"fmt"
	"sync"

	"github.com/roach88/sleight/internal/registry"
)

// FixedHandleGenerator produces predictable mock handles for deterministic
// test execution and golden trace comparison.
//
// Handles are "mock-0001", "mock-0002", ... in registration order.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedHandleGenerator struct {
	mu     sync.Mutex
	prefix string
	next   int
}

// NewFixedHandleGenerator creates a generator with the given prefix.
// An empty prefix defaults to "mock".
func NewFixedHandleGenerator(prefix string) *FixedHandleGenerator {
	if prefix == "" {
		prefix = "mock"
	}
	return &FixedHandleGenerator{prefix: prefix}
}

// Generate returns the next predictable handle.
func (g *FixedHandleGenerator) Generate() registry.Handle {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return registry.Handle(fmt.Sprintf("%s-%04d", g.prefix, g.next))
}

// Count returns how many handles have been generated.
func (g *FixedHandleGenerator) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.next
}
