// Package core defines the foundational types of the TaskMesh workflow
// engine: the Node execution unit, the shared run State, the RunContext
// passed through a run, the Result state machine, and the Interceptor hook
// surface that admission control plugs into.
//
// Everything higher up (composites, tools, remote proxies, the runner) is
// expressed in terms of these contracts, so core has no dependencies on the
// rest of the module.
package core
