package core

import "time"

// Status tracks a node through the per-run state machine
// Pending → Admitted|Denied → Running → Succeeded|Failed.
type Status string

const (
	// StatusPending marks a node that has not been admission-checked yet.
	StatusPending Status = "pending"
	// StatusAdmitted marks a node the interceptor chain allowed to run.
	StatusAdmitted Status = "admitted"
	// StatusDenied marks a node blocked by an interceptor (typically the
	// admission gate). Denial is a controlled outcome, not an error.
	StatusDenied Status = "denied"
	// StatusRunning marks a node currently executing.
	StatusRunning Status = "running"
	// StatusSucceeded marks a node that completed normally.
	StatusSucceeded Status = "succeeded"
	// StatusFailed marks a node whose execution erred or timed out. Failure
	// is recovered locally; composites decide whether to continue.
	StatusFailed Status = "failed"
)

// Terminal reports whether the status is an end state for a run.
func (s Status) Terminal() bool {
	switch s {
	case StatusDenied, StatusSucceeded, StatusFailed:
		return true
	}
	return false
}

// Result captures the terminal outcome of one node execution. For denied or
// failed nodes Output carries a textual explanation substituted for the
// normal output, so downstream synthesis steps can still produce a coherent,
// if degraded, final answer.
type Result struct {
	ID     string `json:"id"`
	Node   string `json:"node"`
	Status Status `json:"status"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
	// RetryAfter is set on denied results to surface the remaining cooldown.
	RetryAfter time.Duration `json:"retry_after,omitempty"`
	Started    time.Time     `json:"started"`
	Finished   time.Time     `json:"finished"`
	// Children holds per-child results for composite nodes, in declared
	// order for sequential/loop and declaration order (not completion order)
	// for parallel.
	Children []*Result `json:"children,omitempty"`
}

// NewResult creates a pending result for the named node with the start
// timestamp set.
func NewResult(node string) *Result {
	return &Result{ID: NewID(), Node: node, Status: StatusPending, Started: time.Now().UTC()}
}

// Finish stamps the finish time and sets the terminal status.
func (r *Result) Finish(status Status) *Result {
	r.Status = status
	r.Finished = time.Now().UTC()
	return r
}

// Succeeded reports whether the node completed normally.
func (r *Result) Succeeded() bool { return r.Status == StatusSucceeded }
