package harness

import "github.com/roach88/req1/internal/ir"

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq    int    `json:"seq"`
	Op     string `json:"op"`
	Target string `json:"target,omitempty"`

	// Outcome is "ok" or the error code the step failed with.
	Outcome string `json:"outcome"`

	Detail map[string]any `json:"detail,omitempty"`
}

// ObjectState is the final state of one object.
type ObjectState struct {
	Key         string      `json:"key"`
	Level       string      `json:"level"`
	Version     int64       `json:"version"`
	NeedsReview bool        `json:"needs_review"`
	Attributes  ir.IRObject `json:"attributes,omitempty"`
}

// LinkState is the final state of one link.
type LinkState struct {
	Key     string `json:"key"`
	Source  string `json:"source"`
	Target  string `json:"target"`
	Suspect bool   `json:"suspect"`
}

// State is the module content after the last step, objects in level
// order and links in creation order.
type State struct {
	Objects []ObjectState `json:"objects"`
	Links   []LinkState   `json:"links"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step met its expectation and every
	// assertion held.
	Pass bool `json:"pass"`

	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	State State `json:"state"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  State{Objects: []ObjectState{}, Links: []LinkState{}},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step record.
func (r *Result) AddTrace(op, target, outcome string, detail map[string]any) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:     len(r.Trace) + 1,
		Op:      op,
		Target:  target,
		Outcome: outcome,
		Detail:  detail,
	})
}
