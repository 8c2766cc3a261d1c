package node

import (
	"github.com/hupe1980/taskmesh/core"
)

// DefaultStopKey is the state key a LoopNode inspects between children to
// decide whether to stop iterating.
const DefaultStopKey = "loop.stop"

// LoopNode repeats its child sequence until a bound is hit or a stop signal
// appears in the run state.
//
// Each iteration runs every child in declared order through the full
// execution path, so interceptors (and therefore the admission gate) are
// re-evaluated for every child on every iteration: a node admitted in
// iteration one can be denied in iteration two once its cooldown is armed.
//
// The loop stops when MaxIterations is reached or when the stop key holds a
// truthy value in the state. MaxIterations of zero means unbounded, which
// requires a stop key write (or context cancellation) to terminate.
type LoopNode struct {
	BaseNode
	children      []core.Node
	maxIterations int
	stopKey       string
}

// NewLoopNode creates an iterative coordinator over the given children.
func NewLoopNode(name string, maxIterations int, children ...core.Node) *LoopNode {
	return &LoopNode{
		BaseNode:      NewBaseNode(name, "Repeats child nodes until a bound or stop signal"),
		children:      children,
		maxIterations: maxIterations,
		stopKey:       DefaultStopKey,
	}
}

// SetStopKey overrides the state key consulted for the stop signal.
func (l *LoopNode) SetStopKey(key string) { l.stopKey = key }

// Children returns the child nodes in declared order.
func (l *LoopNode) Children() []core.Node { return l.children }

// Run executes the child sequence repeatedly.
func (l *LoopNode) Run(rc *core.RunContext) (*core.Result, error) {
	res := core.NewResult(l.Name())
	res.Status = core.StatusRunning

	for iteration := 0; l.maxIterations == 0 || iteration < l.maxIterations; iteration++ {
		if l.stopRequested(rc.State) {
			break
		}

		stopped := false
		for _, child := range l.children {
			if err := rc.Err(); err != nil {
				res.Error = err.Error()
				return res.Finish(core.StatusFailed), nil
			}

			childRes := Execute(rc, child)
			res.Children = append(res.Children, childRes)

			if childRes.Output != "" {
				res.Output = childRes.Output
			}

			if l.stopRequested(rc.State) {
				stopped = true
				break
			}
		}

		if stopped {
			break
		}
	}

	return res.Finish(core.StatusSucceeded), nil
}

// stopRequested reports whether the stop key holds a truthy value.
func (l *LoopNode) stopRequested(state *core.State) bool {
	v, ok := state.Get(l.stopKey)
	if !ok {
		return false
	}

	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true" || t == "stop"
	}

	return false
}
