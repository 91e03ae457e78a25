package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test for the protocol engine.
type Scenario struct {
	// Name uniquely identifies this scenario; golden files are named after it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Mocks lists the mock names to register before the steps run.
	// Steps refer to mocks by these names.
	Mocks []string `yaml:"mocks"`

	// Steps is the protocol operation sequence.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one protocol operation.
//
// Which fields apply depends on Op:
//
//	begin_stub        -
//	call              mock, method, args, expect_route
//	bind              answer
//	verify            mock, mode
//	in_order          group, mocks
//	verify_in_order   group, mock, mode
//	no_more           mocks
//	no_more_in_order  group
//	reset             mocks
//	clear             mocks
//	ignore_stubs      mocks
//	validate          -
type Step struct {
	Op     string    `yaml:"op"`
	Mock   string    `yaml:"mock,omitempty"`
	Mocks  []string  `yaml:"mocks,omitempty"`
	Method string    `yaml:"method,omitempty"`
	Args   []any     `yaml:"args,omitempty"`
	Answer any       `yaml:"answer,omitempty"`
	Mode   *ModeSpec `yaml:"mode,omitempty"`
	Group  string    `yaml:"group,omitempty"`

	// ExpectRoute names the routing decision a call step must produce
	// (proceed, stubbed, captured-for-stubbing, consumed-by-verification).
	ExpectRoute string `yaml:"expect_route,omitempty"`

	// ExpectError names the exact error code this step must produce:
	// a misuse code, or VERIFICATION_FAILURE for count mismatches.
	// Empty means the step must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// ModeSpec selects a verification mode. Exactly one field should be set;
// a nil ModeSpec on a verify step defaults to times: 1.
type ModeSpec struct {
	Times   *int `yaml:"times,omitempty"`
	AtLeast *int `yaml:"at_least,omitempty"`
	AtMost  *int `yaml:"at_most,omitempty"`
	Never   bool `yaml:"never,omitempty"`
}

// Assertion validates the final trace.
type Assertion struct {
	// Type is one of trace_contains, trace_order, trace_count.
	Type string `yaml:"type"`

	// Call is a "mockname.Method" reference (trace_contains, trace_count).
	Call string `yaml:"call,omitempty"`

	// Calls is the expected order of call references (trace_order).
	Calls []string `yaml:"calls,omitempty"`

	// Count is the expected number of occurrences (trace_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
)

// Step op constants.
const (
	OpBeginStub     = "begin_stub"
	OpCall          = "call"
	OpBind          = "bind"
	OpVerify        = "verify"
	OpInOrder       = "in_order"
	OpVerifyInOrder = "verify_in_order"
	OpNoMore        = "no_more"
	OpNoMoreInOrder = "no_more_in_order"
	OpReset         = "reset"
	OpClear         = "clear"
	OpIgnoreStubs   = "ignore_stubs"
	OpValidate      = "validate"
)

// LoadScenario reads, schema-validates, and parses a scenario YAML file.
// Returns an error for unknown fields (typos), schema violations, or
// missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario validates and parses scenario YAML bytes.
func ParseScenario(data []byte) (*Scenario, error) {
	// Shape validation against the CUE schema catches invalid op names
	// and assertion types with precise errors.
	if err := ValidateScenarioBytes(data); err != nil {
		return nil, err
	}

	// Strict decoding rejects unknown fields (e.g. "assertion:" vs "assertions:").
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}

	if scenario.Name == "" {
		return nil, fmt.Errorf("scenario name is required")
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", scenario.Name)
	}
	return &scenario, nil
}
