// Package misuse defines the protocol-violation error taxonomy.
//
// A misuse is a protocol-violating sequence of mocking-API calls, distinct
// from a failed assertion about mock behavior. Every condition here is fatal
// to the current protocol operation and is surfaced immediately - a mocking
// DSL misuse almost always indicates a wrong test, not a transient condition.
//
// The engine never formats user-facing prose: each error carries a distinct
// code plus structured context (offending mock handle, the invocations
// involved) for the reporting layer to render.
package misuse

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/sleight/internal/call"
)

// Code identifies the misuse category.
type Code string

const (
	// CodeNotAMock indicates a non-null object that is not a registered mock
	// was passed where a mock was required.
	CodeNotAMock Code = "NOT_A_MOCK"

	// CodeNullMockTarget indicates null was passed where a mock was required.
	CodeNullMockTarget Code = "NULL_MOCK_TARGET"

	// CodeEmptyMockSet indicates an operation requiring one-or-more mocks
	// received none.
	CodeEmptyMockSet Code = "EMPTY_MOCK_SET"

	// CodeMissingInvocation indicates a stub declaration completed with no
	// captured call (the test forgot to actually call the mocked method).
	CodeMissingInvocation Code = "MISSING_INVOCATION"

	// CodeUnfinishedStubbing indicates a new protocol operation began while
	// a stub was left open.
	CodeUnfinishedStubbing Code = "UNFINISHED_STUBBING"

	// CodeUnfinishedVerification indicates a new protocol operation began
	// while a verification was left open.
	CodeUnfinishedVerification Code = "UNFINISHED_VERIFICATION"

	// CodeUnverifiedInteractions indicates a "no more interactions" check
	// found invocations not accounted for.
	CodeUnverifiedInteractions Code = "UNVERIFIED_INTERACTIONS"

	// CodeInOrderFailure indicates ordered verification could not find a
	// matching forward subsequence.
	CodeInOrderFailure Code = "VERIFICATION_IN_ORDER_FAILURE"

	// CodeUnsupportedSettings indicates construction settings not produced
	// by the sanctioned builder.
	CodeUnsupportedSettings Code = "UNSUPPORTED_SETTINGS_IMPLEMENTATION"
)

// Error is a detected protocol misuse.
//
// Error includes structured fields so the reporting layer can render a
// precise message without the engine formatting text itself.
type Error struct {
	// Code identifies the misuse category.
	Code Code

	// Message is a short machine-oriented description.
	Message string

	// MockID identifies the offending mock, when one is known.
	MockID string

	// TypeName describes the offending non-mock value, for NOT_A_MOCK and
	// UNSUPPORTED_SETTINGS_IMPLEMENTATION.
	TypeName string

	// Invocations are the invocations involved in the condition
	// (e.g. the unaccounted-for calls of UNVERIFIED_INTERACTIONS).
	Invocations []*call.Invocation
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if e.MockID != "" {
		fmt.Fprintf(&b, " (mock=%s)", e.MockID)
	}
	if e.TypeName != "" {
		fmt.Fprintf(&b, " (type=%s)", e.TypeName)
	}
	for _, inv := range e.Invocations {
		fmt.Fprintf(&b, "\n  %s", inv)
	}
	return b.String()
}

// HasCode reports whether err is (or wraps) a misuse error with the code.
func HasCode(err error, code Code) bool {
	var me *Error
	if errors.As(err, &me) {
		return me.Code == code
	}
	return false
}

// CodeOf returns the misuse code carried by err, or "" if err is not a
// misuse error.
func CodeOf(err error) Code {
	var me *Error
	if errors.As(err, &me) {
		return me.Code
	}
	return ""
}

// IsMisuse reports whether err is (or wraps) any misuse error.
func IsMisuse(err error) bool {
	var me *Error
	return errors.As(err, &me)
}

// NotAMock signals a non-mock object where a mock was required.
func NotAMock(typeName string) *Error {
	return &Error{
		Code:     CodeNotAMock,
		Message:  "argument is not a mock created by this engine",
		TypeName: typeName,
	}
}

// NullMockTarget signals a null argument where a mock was required.
func NullMockTarget() *Error {
	return &Error{
		Code:    CodeNullMockTarget,
		Message: "argument passed where a mock was required is null",
	}
}

// EmptyMockSet signals an operation that requires at least one mock.
func EmptyMockSet() *Error {
	return &Error{
		Code:    CodeEmptyMockSet,
		Message: "at least one mock is required",
	}
}

// MissingInvocation signals a stub declaration with no captured call.
func MissingInvocation() *Error {
	return &Error{
		Code:    CodeMissingInvocation,
		Message: "stub declaration completed but no method was called on a mock",
	}
}

// UnfinishedStubbing signals a protocol operation started over an open stub.
func UnfinishedStubbing() *Error {
	return &Error{
		Code:    CodeUnfinishedStubbing,
		Message: "previous stub declaration was never bound to an answer",
	}
}

// UnfinishedVerification signals a protocol operation started over an open
// verification.
func UnfinishedVerification(mockID string) *Error {
	return &Error{
		Code:    CodeUnfinishedVerification,
		Message: "previous verification never received its target call",
		MockID:  mockID,
	}
}

// UnverifiedInteractions signals invocations not accounted for by any
// verification or ignore operation.
func UnverifiedInteractions(mockID string, leftover []*call.Invocation) *Error {
	return &Error{
		Code:        CodeUnverifiedInteractions,
		Message:     "found interactions not accounted for by any verification",
		MockID:      mockID,
		Invocations: leftover,
	}
}

// MockNotInOrderScope signals a real mock passed to an ordered verification
// whose scope does not include it. This is an argument misuse, not a failed
// forward-subsequence search, so it carries the NOT_A_MOCK code.
func MockNotInOrderScope(mockID string) *Error {
	return &Error{
		Code:    CodeNotAMock,
		Message: "mock is not part of this ordered verification scope",
		MockID:  mockID,
	}
}

// InOrderFailure signals that ordered verification found no matching forward
// subsequence.
func InOrderFailure(mockID, detail string, involved []*call.Invocation) *Error {
	return &Error{
		Code:        CodeInOrderFailure,
		Message:     detail,
		MockID:      mockID,
		Invocations: involved,
	}
}

// UnsupportedSettings signals construction settings not produced by the
// sanctioned builder.
func UnsupportedSettings(typeName string) *Error {
	return &Error{
		Code:     CodeUnsupportedSettings,
		Message:  "mock settings must come from the settings builder",
		TypeName: typeName,
	}
}
