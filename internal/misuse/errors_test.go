package misuse

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/sleight/internal/call"
)

func TestConstructors_Codes(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		code Code
	}{
		{"not a mock", NotAMock("string"), CodeNotAMock},
		{"null target", NullMockTarget(), CodeNullMockTarget},
		{"empty set", EmptyMockSet(), CodeEmptyMockSet},
		{"missing invocation", MissingInvocation(), CodeMissingInvocation},
		{"unfinished stubbing", UnfinishedStubbing(), CodeUnfinishedStubbing},
		{"unfinished verification", UnfinishedVerification("mock-0001"), CodeUnfinishedVerification},
		{"unverified interactions", UnverifiedInteractions("mock-0001", nil), CodeUnverifiedInteractions},
		{"in order failure", InOrderFailure("mock-0001", "detail", nil), CodeInOrderFailure},
		{"mock not in order scope", MockNotInOrderScope("mock-0001"), CodeNotAMock},
		{"unsupported settings", UnsupportedSettings("mySettings"), CodeUnsupportedSettings},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.NotEmpty(t, tt.err.Message)
			assert.True(t, HasCode(tt.err, tt.code))
			assert.True(t, IsMisuse(tt.err))
		})
	}
}

func TestHasCode_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("running step 3: %w", UnfinishedStubbing())

	assert.True(t, HasCode(wrapped, CodeUnfinishedStubbing))
	assert.False(t, HasCode(wrapped, CodeNotAMock))
	assert.True(t, IsMisuse(wrapped))
	assert.Equal(t, CodeUnfinishedStubbing, CodeOf(wrapped))
}

func TestCodeOf_NonMisuse(t *testing.T) {
	assert.Equal(t, Code(""), CodeOf(errors.New("plain error")))
	assert.Equal(t, Code(""), CodeOf(nil))
	assert.False(t, IsMisuse(errors.New("plain error")))
}

func TestError_StructuredContext(t *testing.T) {
	leftover := []*call.Invocation{
		call.NewInvocation("mock-0001", 1, call.Description{Method: "find", Args: []any{"x"}}),
		call.NewInvocation("mock-0001", 2, call.Description{Method: "save"}),
	}
	err := UnverifiedInteractions("mock-0001", leftover)

	assert.Equal(t, "mock-0001", err.MockID)
	assert.Len(t, err.Invocations, 2)

	// The message names the offending invocations so the reporting layer
	// does not have to reconstruct them.
	s := err.Error()
	assert.Contains(t, s, "UNVERIFIED_INTERACTIONS")
	assert.Contains(t, s, "mock-0001")
	assert.Contains(t, s, "find")
	assert.Contains(t, s, "save")
}

func TestError_TypeName(t *testing.T) {
	err := NotAMock("*mypkg.Thing")
	assert.Contains(t, err.Error(), "*mypkg.Thing")
	assert.Equal(t, "*mypkg.Thing", err.TypeName)
}
