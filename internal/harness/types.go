package harness

import "fmt"

// TraceEvent records what one scenario step did.
type TraceEvent struct {
	Step   int    `json:"step"`
	Op     string `json:"op"`
	Mock   string `json:"mock,omitempty"`
	Method string `json:"method,omitempty"`
	Args   []any  `json:"args,omitempty"`
	Route  string `json:"route,omitempty"`
	Error  string `json:"error,omitempty"`
	Seq    int64  `json:"seq,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step expectation and trace assertion held.
	Pass bool `json:"pass"`

	// Trace lists every executed step in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation and assertion failures. Empty when Pass.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result to accumulate into.
func NewResult() *Result {
	return &Result{
		Pass:  true,
		Trace: []TraceEvent{},
	}
}

// AddError records a failure and marks the result failed.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}
