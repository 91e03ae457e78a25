// Package inorder implements ordered verification across an explicit set
// of mocks.
//
// An in-order context is scoped to the mocks named when it was created. It
// holds a consumption cursor: the sequence number at or below which
// invocations are considered already matched by prior ordered checks. The
// cursor only ever advances - "in order" means strictly forward progress
// across successive checks on the same context. Independent contexts over
// overlapping mock sets do not share cursors.
package inorder

import (
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/sleight/internal/call"
	"github.com/roach88/sleight/internal/misuse"
	"github.com/roach88/sleight/internal/verify"
)

// Context is one ordered-verification scope.
//
// Thread-safety: a context belongs to the caller that created it, but its
// cursor is still mutex-guarded so misuse from interleaved test contexts
// cannot tear it.
type Context struct {
	mu      sync.Mutex
	mocks   []string
	members map[string]bool
	cursor  int64
}

// NewContext creates an ordered scope over the given mock handles.
// Argument validation (empty set, nulls, non-mocks) happens at the engine
// boundary before this is called.
func NewContext(mocks []string) *Context {
	members := make(map[string]bool, len(mocks))
	for _, m := range mocks {
		members[m] = true
	}
	return &Context{
		mocks:   mocks,
		members: members,
	}
}

// Mocks returns a copy of the handles this context spans, in declaration
// order. Callers cannot mutate the scope's membership through it.
func (c *Context) Mocks() []string {
	out := make([]string, len(c.mocks))
	copy(out, c.mocks)
	return out
}

// Contains reports whether the mock is part of this ordered scope.
func (c *Context) Contains(mockID string) bool {
	return c.members[mockID]
}

// Cursor returns the sequence number below or at which invocations are
// considered consumed.
func (c *Context) Cursor() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

// advance moves the cursor forward to seq. Never rewinds.
func (c *Context) advance(seq int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq > c.cursor {
		c.cursor = seq
	}
}

// Merged builds the sequence-sorted view of invocations across the context's
// mocks, excluding any flagged ignored. Sequence numbers are globally unique,
// so the merge is a total order and repeated queries over the same logs are
// stable.
func Merged(snapshots ...[]*call.Invocation) []*call.Invocation {
	var merged []*call.Invocation
	for _, snap := range snapshots {
		for _, inv := range snap {
			if inv.Ignored() {
				continue
			}
			merged = append(merged, inv)
		}
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Seq < merged[j].Seq
	})
	return merged
}

// remainder returns the unconsumed part of the merged view.
func (c *Context) remainder(merged []*call.Invocation) []*call.Invocation {
	cursor := c.Cursor()
	var out []*call.Invocation
	for _, inv := range merged {
		if inv.Seq > cursor {
			out = append(out, inv)
		}
	}
	return out
}

// Verify checks mode against the merged view, consuming forward only.
//
// The check finds the first contiguous run of unconsumed invocations
// matching want, evaluates the mode's count requirement against that run,
// and on success advances the cursor past the run's last element. An
// invocation the cursor has already passed can never be matched again, even
// if the mode would otherwise accept it.
func (c *Context) Verify(mockID string, want call.Description, mode verify.Mode, merged []*call.Invocation) error {
	rest := c.remainder(merged)

	run := firstMatchingRun(rest, mockID, want)

	data := verify.Data{
		MockID: mockID,
		Want:   &want,
		All:    run,
	}
	if err := mode.Verify(data); err != nil {
		return misuse.InOrderFailure(
			mockID,
			fmt.Sprintf("wanted %s in order for %s", mode.Describe(), want),
			run,
		)
	}

	if len(run) > 0 {
		c.advance(run[len(run)-1].Seq)
	}
	return nil
}

// VerifyNoMoreInteractions requires the unconsumed merged remainder to be
// empty apart from invocations already verified or ignored.
func (c *Context) VerifyNoMoreInteractions(merged []*call.Invocation) error {
	var leftover []*call.Invocation
	for _, inv := range c.remainder(merged) {
		if !inv.Verified() {
			leftover = append(leftover, inv)
		}
	}
	if len(leftover) > 0 {
		return misuse.UnverifiedInteractions("", leftover)
	}
	return nil
}

// firstMatchingRun returns the first maximal run of consecutive invocations
// in view that are on mockID and match want. Consecutive means adjacent in
// the merged view: an interleaved call on another mock ends the run.
func firstMatchingRun(view []*call.Invocation, mockID string, want call.Description) []*call.Invocation {
	start := -1
	for i, inv := range view {
		if inv.MockID == mockID && inv.Desc.Equal(want) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}

	end := start
	for end < len(view) {
		inv := view[end]
		if inv.MockID != mockID || !inv.Desc.Equal(want) {
			break
		}
		end++
	}
	return view[start:end]
}
