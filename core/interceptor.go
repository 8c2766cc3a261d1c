package core

// Interceptor hooks into node execution. The chain is invoked by the
// execution helper around every node in a run, in registration order.
//
// BeforeNode may short-circuit the node by returning a non-nil Result: the
// node is not executed and the returned result (typically a denial carrying
// a user-visible explanation) stands in for its output. Interceptors may
// also annotate the run by writing to rc.State. They must never mutate node
// topology.
//
// Implementations should be fast — they run synchronously on the execution
// path — and safe for concurrent use, since parallel phases invoke the same
// chain from multiple goroutines.
type Interceptor interface {
	// BeforeNode runs before the node executes. Returning a non-nil Result
	// skips execution; returning an error marks the node Failed.
	BeforeNode(rc *RunContext, n Node) (*Result, error)

	// AfterNode runs after the node reached a terminal state. Errors are
	// logged by the execution helper, never escalated: a post hook cannot
	// retroactively fail a node.
	AfterNode(rc *RunContext, n Node, res *Result) error
}

// InterceptorFuncs adapts plain functions to the Interceptor interface.
// Either field may be nil.
type InterceptorFuncs struct {
	Before func(rc *RunContext, n Node) (*Result, error)
	After  func(rc *RunContext, n Node, res *Result) error
}

// BeforeNode implements Interceptor.
func (f InterceptorFuncs) BeforeNode(rc *RunContext, n Node) (*Result, error) {
	if f.Before == nil {
		return nil, nil
	}
	return f.Before(rc, n)
}

// AfterNode implements Interceptor.
func (f InterceptorFuncs) AfterNode(rc *RunContext, n Node, res *Result) error {
	if f.After == nil {
		return nil
	}
	return f.After(rc, n, res)
}
