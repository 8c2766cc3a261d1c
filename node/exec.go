package node

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
)

// Execute runs a single node through the full execution path: BeforeNode
// interceptors (which may short-circuit with a denial), the per-node timeout,
// the node itself, and AfterNode interceptors. It never returns an error:
// failures are recovered into a Failed result whose textual explanation is
// written into the shared state under the node's output key, so downstream
// nodes see a degraded value instead of silence.
func Execute(rc *core.RunContext, n core.Node) *core.Result {
	start := time.Now()

	for _, ic := range rc.Interceptors {
		res, err := ic.BeforeNode(rc, n)
		if err != nil {
			return fail(rc, n, start, fmt.Errorf("before hook: %w", err))
		}
		if res != nil {
			// Short-circuit: the interceptor's result (typically a cooldown
			// denial) stands in for the node's output.
			if res.Output != "" {
				rc.State.Set(core.OutputKeyFor(n), res.Output)
			}
			runAfterHooks(rc, n, res)
			logging.LogNodeExecution(rc.Logger, n.Name(), string(res.Status), time.Since(start))

			return res
		}
	}

	runRC := rc
	if rc.NodeTimeout > 0 {
		ctx, cancel := context.WithTimeout(rc.Context, rc.NodeTimeout)
		defer cancel()
		runRC = rc.WithContext(ctx)
	}

	res, err := n.Run(runRC)
	if err != nil {
		return fail(rc, n, start, err)
	}
	if res == nil {
		res = core.NewResult(n.Name()).Finish(core.StatusSucceeded)
	}

	// Failed results with a recovered error (remote proxies) carry a
	// degraded marker as output; it lands in the state like any success.
	if res.Output != "" {
		rc.State.Set(core.OutputKeyFor(n), res.Output)
	}

	runAfterHooks(rc, n, res)
	logging.LogNodeExecution(rc.Logger, n.Name(), string(res.Status), time.Since(start))

	return res
}

// fail converts an execution error into a Failed result and records the
// degradation marker in the shared state.
func fail(rc *core.RunContext, n core.Node, start time.Time, err error) *core.Result {
	res := core.NewResult(n.Name())
	res.Started = start.UTC()
	res.Error = err.Error()
	res.Output = fmt.Sprintf("[%s unavailable: %s]", n.Name(), err.Error())
	res.Finish(core.StatusFailed)

	rc.State.Set(core.OutputKeyFor(n), res.Output)

	runAfterHooks(rc, n, res)
	rc.Logger.Error("node execution failed", "node", n.Name(), "error", err)

	return res
}

// runAfterHooks fires AfterNode on the chain in order. Hook errors are
// logged, never escalated: a post hook cannot retroactively fail a node.
func runAfterHooks(rc *core.RunContext, n core.Node, res *core.Result) {
	for _, ic := range rc.Interceptors {
		if err := ic.AfterNode(rc, n, res); err != nil {
			rc.Logger.Warn("after hook failed", "node", n.Name(), "error", err)
		}
	}
}
