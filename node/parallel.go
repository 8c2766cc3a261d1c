package node

import (
	"github.com/hupe1980/taskmesh/core"
	"golang.org/x/sync/errgroup"
)

// ParallelNode executes its children concurrently over isolated views of the
// run state.
//
// At phase entry the live state is snapshotted once. Every child runs on a
// forked run context whose state is seeded from that snapshot, so siblings
// never observe each other's in-flight writes. After all children have
// joined, each branch's delta (only the keys it actually wrote) is merged
// back into the live state in declared order; when two branches wrote the
// same key the later-declared branch wins. That write-write collision is a
// documented hazard of fan-out, not something the composite arbitrates.
//
// A child's denial or failure does not abort the phase: its degraded output
// is merged like any other branch delta. Cancellation propagates to every
// branch through the group context.
type ParallelNode struct {
	BaseNode
	children []core.Node
}

// NewParallelNode creates a concurrent fan-out coordinator over the given
// children.
func NewParallelNode(name string, children ...core.Node) *ParallelNode {
	return &ParallelNode{
		BaseNode: NewBaseNode(name, "Executes child nodes concurrently with isolated state"),
		children: children,
	}
}

// Children returns the child nodes in declared order.
func (p *ParallelNode) Children() []core.Node { return p.children }

// Run executes all children concurrently and merges their state deltas after
// the join.
func (p *ParallelNode) Run(rc *core.RunContext) (*core.Result, error) {
	res := core.NewResult(p.Name())
	res.Status = core.StatusRunning

	snapshot := rc.State.Snapshot()

	branchStates := make([]*core.State, len(p.children))
	branchResults := make([]*core.Result, len(p.children))

	g, ctx := errgroup.WithContext(rc.Context)

	for i, child := range p.children {
		branchStates[i] = core.NewStateFrom(snapshot)
		branch := rc.Fork(ctx, branchStates[i])

		g.Go(func() error {
			branchResults[i] = Execute(branch, child)
			return nil
		})
	}

	// Execute never returns an error, so Wait only surfaces context
	// cancellation from the group.
	if err := g.Wait(); err != nil {
		res.Error = err.Error()
		return res.Finish(core.StatusFailed), nil
	}

	// Merge branch deltas into the live state in declared order.
	for i := range p.children {
		rc.State.Apply(branchStates[i].Delta())
		res.Children = append(res.Children, branchResults[i])
		if branchResults[i].Output != "" {
			res.Output = branchResults[i].Output
		}
	}

	return res.Finish(core.StatusSucceeded), nil
}
