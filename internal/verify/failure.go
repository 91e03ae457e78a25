package verify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/sleight/internal/call"
)

// Failure is a verification failure: the log did not satisfy the mode's
// count requirement. Distinct from protocol misuse - the test's expectation
// about mock behavior was wrong, not its use of the API.
//
// Failure carries structured context for the reporting layer; the engine
// does not render user-facing prose.
type Failure struct {
	// MockID is the mock under verification.
	MockID string

	// Wanted is the call pattern that was counted. Nil for whole-mock modes.
	Wanted *call.Description

	// Required names the count requirement (e.g. "exactly 2 times").
	Required string

	// Actual is the observed count.
	Actual int

	// Invocations are the matched invocations, for diagnostics context.
	Invocations []*call.Invocation
}

// Error implements the error interface.
func (f *Failure) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "verification failure: wanted %s, got %d", f.Required, f.Actual)
	if f.Wanted != nil {
		fmt.Fprintf(&b, " for %s", *f.Wanted)
	}
	if f.MockID != "" {
		fmt.Fprintf(&b, " (mock=%s)", f.MockID)
	}
	return b.String()
}

// IsFailure reports whether err is (or wraps) a verification failure.
// Uses errors.As to handle wrapped errors.
func IsFailure(err error) bool {
	var f *Failure
	return errors.As(err, &f)
}
