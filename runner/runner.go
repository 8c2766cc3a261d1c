// Package runner drives whole workflow runs: it owns the root node, the
// interceptor chain, run/node timeouts, and a registry of live runs that can
// be cancelled individually.
package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/node"
)

// Options configures a Runner.
type Options struct {
	// Interceptors are applied around every node execution, in order. The
	// admission gate is registered here.
	Interceptors []core.Interceptor

	// NodeTimeout bounds each individual node execution. Zero means no
	// per-node bound.
	NodeTimeout time.Duration

	// RunTimeout bounds the whole run. Zero means no bound.
	RunTimeout time.Duration

	// Logger receives structured run events. Nil means no logging.
	Logger logging.Logger
}

// Runner executes workflows rooted at a single node.
type Runner struct {
	root core.Node
	opts Options

	mu         sync.Mutex
	activeRuns map[string]context.CancelFunc
}

// New creates a runner for the given root node.
func New(root core.Node, optFns ...func(o *Options)) *Runner {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Runner{
		root:       root,
		opts:       opts,
		activeRuns: map[string]context.CancelFunc{},
	}
}

// Root returns the workflow's root node.
func (r *Runner) Root() core.Node { return r.root }

// Run executes the workflow once. The seed map (may be nil) initializes the
// run state without counting as writes. It returns the root result and the
// final state; the error is non-nil only for pre-flight problems, never for
// node failures, which are captured in the result tree.
func (r *Runner) Run(ctx context.Context, input string, seed map[string]any) (*core.Result, *core.State, error) {
	if r.root == nil {
		return nil, nil, fmt.Errorf("runner has no root node")
	}

	runID := core.NewID()

	runCtx, cancel := r.register(ctx, runID)
	defer r.release(runID, cancel)

	state := core.NewStateFrom(seed)
	rc := core.NewRunContext(runCtx, runID, input, state, r.opts.Interceptors, r.opts.NodeTimeout, r.opts.Logger)

	r.opts.Logger.Info("run started", "run_id", runID, "root", r.root.Name())
	started := time.Now()

	res := node.Execute(rc, r.root)

	r.opts.Logger.Info("run finished",
		"run_id", runID,
		"status", string(res.Status),
		"duration_ms", time.Since(started).Milliseconds(),
	)

	return res, state, nil
}

// Cancel aborts a live run. It reports whether the run was found.
func (r *Runner) Cancel(runID string) bool {
	r.mu.Lock()
	cancel, ok := r.activeRuns[runID]
	r.mu.Unlock()

	if ok {
		cancel()
	}

	return ok
}

// ActiveRuns returns the IDs of currently executing runs.
func (r *Runner) ActiveRuns() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.activeRuns))
	for id := range r.activeRuns {
		ids = append(ids, id)
	}

	return ids
}

func (r *Runner) register(ctx context.Context, runID string) (context.Context, context.CancelFunc) {
	var cancel context.CancelFunc
	if r.opts.RunTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, r.opts.RunTimeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}

	r.mu.Lock()
	r.activeRuns[runID] = cancel
	r.mu.Unlock()

	return ctx, cancel
}

func (r *Runner) release(runID string, cancel context.CancelFunc) {
	cancel()

	r.mu.Lock()
	delete(r.activeRuns, runID)
	r.mu.Unlock()
}
