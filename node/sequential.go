package node

import (
	"github.com/hupe1980/taskmesh/core"
)

// SequentialNode coordinates the execution of multiple child nodes in
// declared order, passing the accumulated run state between them. Each
// child's output becomes available to subsequent children under its output
// key.
//
// Denial and failure of a child are both non-fatal: the child's degraded
// output (cooldown explanation or failure marker) lands in the state and the
// sequence continues, so a downstream synthesis step can still produce a
// coherent answer from whatever succeeded. Only cancellation of the ambient
// context stops the sequence early.
//
// SequentialNode is ideal for:
//   - Multi-step pipelines (gather, then synthesize)
//   - Workflows requiring a specific execution order
//   - Tasks whose outputs build upon each other
type SequentialNode struct {
	BaseNode
	children []core.Node
}

// NewSequentialNode creates a sequential execution coordinator over the
// given children.
func NewSequentialNode(name string, children ...core.Node) *SequentialNode {
	return &SequentialNode{
		BaseNode: NewBaseNode(name, "Executes child nodes in order with shared state"),
		children: children,
	}
}

// Children returns the child nodes in declared order.
func (s *SequentialNode) Children() []core.Node { return s.children }

// Run executes all child nodes sequentially with shared run state. Each
// child runs exactly once; the composite's output is the last non-empty
// child output.
func (s *SequentialNode) Run(rc *core.RunContext) (*core.Result, error) {
	res := core.NewResult(s.Name())
	res.Status = core.StatusRunning

	for _, child := range s.children {
		if err := rc.Err(); err != nil {
			res.Error = err.Error()
			return res.Finish(core.StatusFailed), nil
		}

		childRes := Execute(rc, child)
		res.Children = append(res.Children, childRes)

		if childRes.Output != "" {
			res.Output = childRes.Output
		}
	}

	return res.Finish(core.StatusSucceeded), nil
}
