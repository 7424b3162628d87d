package harness

import "github.com/hiepdl65/reportbuilder/internal/ir"

// TraceEvent records one applied step.
type TraceEvent struct {
	Seq int64  `json:"seq"`
	Op  string `json:"op"`

	// Readiness is the selection's readiness after the step.
	Readiness string `json:"readiness"`

	// Rows and Columns describe a successful run or preview.
	Rows    *int     `json:"rows,omitempty"`
	Columns []string `json:"columns,omitempty"`

	// Error is the message of a failed run or preview.
	Error string `json:"error,omitempty"`
}

// isRun reports whether the event came from a run or preview step.
func (e TraceEvent) isRun() bool {
	return e.Op == OpRun || e.Op == OpPreview
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all assertions hold.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Configuration is the selection's final configuration.
	Configuration ir.QueryConfiguration `json:"configuration"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// addEvent appends a trace event.
func (r *Result) addEvent(e TraceEvent) {
	r.Trace = append(r.Trace, e)
}

// lastRun returns the most recent run or preview event.
func (r *Result) lastRun() (TraceEvent, bool) {
	for i := len(r.Trace) - 1; i >= 0; i-- {
		if r.Trace[i].isRun() {
			return r.Trace[i], true
		}
	}
	return TraceEvent{}, false
}
