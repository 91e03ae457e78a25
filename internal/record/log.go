// Package record implements the per-mock invocation log.
//
// The log is append-only ground truth: entries are added exactly once at
// interception time and never removed except by a whole-log clear on reset.
// Verification queries read snapshots so they always observe a stable prefix
// of the log, never a torn record, even while parallel test contexts append.
package record

import (
	"sync"

	"github.com/roach88/sleight/internal/call"
)

// Log is the ordered record of calls observed on one mock.
//
// Thread-safety: Append and Snapshot may be called from any goroutine.
// The invocations themselves carry their own atomic marks, so snapshot
// holders can mark entries verified without touching the log lock.
type Log struct {
	mu          sync.Mutex
	invocations []*call.Invocation
}

// NewLog creates an empty invocation log.
func NewLog() *Log {
	return &Log{}
}

// Append adds an invocation to the end of the log.
// Recording never fails - this is best-effort bookkeeping that protocol
// operations build on top of.
func (l *Log) Append(inv *call.Invocation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.invocations = append(l.invocations, inv)
}

// Snapshot returns a stable copy of the log's current contents in append
// order. Later appends do not affect a returned snapshot.
func (l *Log) Snapshot() []*call.Invocation {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*call.Invocation, len(l.invocations))
	copy(out, l.invocations)
	return out
}

// Len returns the current number of recorded invocations.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.invocations)
}

// Clear discards every recorded invocation.
// The only removal path: individual entries are never deleted.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.invocations = nil
}

// Unverified returns the invocations not yet accounted for: neither marked
// verified by a prior check nor excluded by an ignore operation.
func (l *Log) Unverified() []*call.Invocation {
	var out []*call.Invocation
	for _, inv := range l.Snapshot() {
		if !inv.Verified() && !inv.Ignored() {
			out = append(out, inv)
		}
	}
	return out
}
