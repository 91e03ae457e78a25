package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/sleight/internal/call"
)

// TraceSnapshot captures the complete trace for a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
}

// ToCanonicalMap converts a TraceSnapshot to a map[string]any so it can go
// through call.MarshalCanonical, which only handles primitives and
// containers.
func (s *TraceSnapshot) ToCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"step": event.Step,
			"op":   event.Op,
		}
		if event.Mock != "" {
			eventMap["mock"] = event.Mock
		}
		if event.Method != "" {
			eventMap["method"] = event.Method
		}
		if event.Args != nil {
			eventMap["args"] = event.Args
		}
		if event.Route != "" {
			eventMap["route"] = event.Route
		}
		if event.Error != "" {
			eventMap["error"] = event.Error
		}
		if event.Seq != 0 {
			eventMap["seq"] = event.Seq
		}
		traceList[i] = eventMap
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
	}
}

// RunWithGolden executes a scenario and compares the trace against a golden
// file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Scenarios run against a fixed handle generator and a fresh clock, so the
// serialized trace is byte-identical across runs and safe to pin.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an already-obtained result's trace against a golden
// file, without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
	}

	traceJSON, err := call.MarshalCanonical(snapshot.ToCanonicalMap())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)
	return nil
}
