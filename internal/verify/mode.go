// Package verify implements verification modes and the verification gate.
//
// A verification mode is a predicate over an invocation count: exact count,
// minimum, maximum, never, or the composite "no more interactions". Modes
// evaluate against a stable snapshot of the target mock's log; on success
// they mark the matched invocations as accounted for, which is what the
// "no more interactions" check later consults.
//
// Count mismatches are verification failures (a wrong expectation about mock
// behavior); they are distinct from protocol misuse, which lives in the
// misuse package.
package verify

import (
	"fmt"

	"github.com/roach88/sleight/internal/call"
	"github.com/roach88/sleight/internal/misuse"
)

// Data is the input to one mode evaluation: a stable snapshot of the target
// mock's invocation log plus the call pattern being verified.
type Data struct {
	// MockID is the mock under verification.
	MockID string

	// Want is the call pattern to count. Nil for whole-mock modes
	// (no more interactions), which inspect the entire snapshot.
	Want *call.Description

	// All is the log snapshot in sequence order.
	All []*call.Invocation
}

// matching returns the snapshot entries matching Want, excluding invocations
// flagged ignored-for-verification.
func (d Data) matching() []*call.Invocation {
	if d.Want == nil {
		return nil
	}
	var out []*call.Invocation
	for _, inv := range d.All {
		if inv.Ignored() {
			continue
		}
		if inv.Desc.Equal(*d.Want) {
			out = append(out, inv)
		}
	}
	return out
}

// Mode is a predicate over how many times a call pattern occurred.
type Mode interface {
	// Verify evaluates the predicate against a log snapshot.
	// On success, implementations mark the matched invocations verified.
	Verify(d Data) error

	// Describe names the requirement for diagnostics context.
	Describe() string
}

// times requires an exact invocation count.
type times struct {
	wanted int
}

// Times returns a mode requiring the call pattern to have occurred exactly
// n times. Times(0) is the "never" requirement.
func Times(n int) Mode {
	return times{wanted: n}
}

// Never returns a mode requiring the call pattern to have never occurred.
func Never() Mode {
	return times{wanted: 0}
}

func (m times) Verify(d Data) error {
	matched := d.matching()
	if len(matched) != m.wanted {
		return &Failure{
			MockID:      d.MockID,
			Wanted:      d.Want,
			Required:    m.Describe(),
			Actual:      len(matched),
			Invocations: matched,
		}
	}
	markVerified(matched)
	return nil
}

func (m times) Describe() string {
	if m.wanted == 0 {
		return "never"
	}
	return fmt.Sprintf("exactly %d times", m.wanted)
}

// atLeast requires a minimum invocation count.
type atLeast struct {
	wanted int
}

// AtLeast returns a mode requiring the call pattern to have occurred at
// least n times.
func AtLeast(n int) Mode {
	return atLeast{wanted: n}
}

func (m atLeast) Verify(d Data) error {
	matched := d.matching()
	if len(matched) < m.wanted {
		return &Failure{
			MockID:      d.MockID,
			Wanted:      d.Want,
			Required:    m.Describe(),
			Actual:      len(matched),
			Invocations: matched,
		}
	}
	markVerified(matched)
	return nil
}

func (m atLeast) Describe() string {
	return fmt.Sprintf("at least %d times", m.wanted)
}

// atMost requires a maximum invocation count.
type atMost struct {
	wanted int
}

// AtMost returns a mode requiring the call pattern to have occurred at most
// n times.
func AtMost(n int) Mode {
	return atMost{wanted: n}
}

func (m atMost) Verify(d Data) error {
	matched := d.matching()
	if len(matched) > m.wanted {
		return &Failure{
			MockID:      d.MockID,
			Wanted:      d.Want,
			Required:    m.Describe(),
			Actual:      len(matched),
			Invocations: matched,
		}
	}
	markVerified(matched)
	return nil
}

func (m atMost) Describe() string {
	return fmt.Sprintf("at most %d times", m.wanted)
}

// noMoreInteractions requires every invocation in the log to already be
// accounted for by a prior verification or flagged ignored.
type noMoreInteractions struct{}

// NoMoreInteractions returns the composite whole-mock mode.
func NoMoreInteractions() Mode {
	return noMoreInteractions{}
}

func (noMoreInteractions) Verify(d Data) error {
	var leftover []*call.Invocation
	for _, inv := range d.All {
		if !inv.Verified() && !inv.Ignored() {
			leftover = append(leftover, inv)
		}
	}
	if len(leftover) > 0 {
		return misuse.UnverifiedInteractions(d.MockID, leftover)
	}
	return nil
}

func (noMoreInteractions) Describe() string {
	return "no more interactions"
}

func markVerified(invocations []*call.Invocation) {
	for _, inv := range invocations {
		inv.MarkVerified()
	}
}
