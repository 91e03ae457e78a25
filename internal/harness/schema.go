package harness

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// ValidateScenarioBytes checks raw scenario YAML against the embedded CUE
// schema. Uses the CUE SDK's Go API directly (not a CLI subprocess).
//
// The YAML is decoded generically first, then unified with the schema;
// any conflict (bad op name, wrong type, negative count) surfaces as a
// validation error listing every problem found.
func ValidateScenarioBytes(data []byte) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse scenario YAML: %w", err)
	}
	if raw == nil {
		return fmt.Errorf("scenario is empty")
	}

	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile scenario schema: %w", err)
	}

	value := ctx.Encode(raw)
	if err := value.Err(); err != nil {
		return fmt.Errorf("encode scenario for validation: %w", err)
	}

	unified := schema.Unify(value)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return fmt.Errorf("scenario schema violation: %s", cueErrorDetails(err))
	}
	return nil
}

// cueErrorDetails renders every error in a CUE error list, not just the
// first, so a scenario with several typos is fixed in one pass.
func cueErrorDetails(err error) string {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err.Error()
	}
	out := ""
	for i, e := range errs {
		if i > 0 {
			out += "; "
		}
		out += e.Error()
	}
	return out
}
