package core

import "github.com/google/uuid"

// Node is the unit of work in a TaskMesh workflow graph. A node is either a
// local reasoning step, a remote proxy, or a composite that coordinates
// children. Topology is built once at assembly time and is immutable for the
// lifetime of the orchestrator; only the run State mutates during execution.
//
// Implementations must:
//   - Respect cancellation of the RunContext's ambient context
//   - Recover their own domain failures into a Failed Result rather than
//     letting them escape the run
//   - Be safe for concurrent runs (no per-run state on the node itself)
type Node interface {
	// Name returns the node's identity. Names must be unique among direct
	// siblings: they key admission-control records and default context
	// output keys.
	Name() string

	// Description returns a human-readable summary of the node's purpose.
	Description() string

	// Run executes the node against the supplied run context. A returned
	// error means the node itself could not produce a Result; composites and
	// the runner convert it into a Failed Result. Nodes that recover their
	// own failures (e.g. remote proxies) return a Failed Result and a nil
	// error instead.
	Run(rc *RunContext) (*Result, error)
}

// OutputKeyer is implemented by nodes that declare an explicit context key
// for their output. Nodes without one have their output stored under their
// name.
type OutputKeyer interface {
	OutputKey() string
}

// OutputKeyFor returns the context key a node's output is written under.
func OutputKeyFor(n Node) string {
	if ok, isOK := n.(OutputKeyer); isOK && ok.OutputKey() != "" {
		return ok.OutputKey()
	}
	return n.Name()
}

// NewID generates a unique identifier for runs and results.
func NewID() string { return uuid.NewString() }
