package core

import (
	"context"
	"time"

	"github.com/hupe1980/taskmesh/logging"
)

// RunContext carries the execution scope passed to every Node.Run in a run.
// It aggregates:
//   - The ambient cancellation Context
//   - The RunID and the initial request Input
//   - The shared run State (the one mutable object of a run)
//   - The ordered Interceptor chain applied around each node
//   - The per-node execution timeout
//   - The structured Logger
//
// A RunContext is created once per run by the runner; composites derive
// scoped copies via WithContext (timeouts) and Fork (parallel branches)
// instead of mutating the original.
type RunContext struct {
	Context      context.Context
	RunID        string
	Input        string
	State        *State
	Interceptors []Interceptor
	NodeTimeout  time.Duration
	Logger       logging.Logger
}

// NewRunContext constructs a RunContext. A nil logger defaults to the no-op
// logger so call sites never guard logging.
func NewRunContext(
	ctx context.Context,
	runID, input string,
	state *State,
	interceptors []Interceptor,
	nodeTimeout time.Duration,
	logger logging.Logger,
) *RunContext {
	if state == nil {
		state = NewState()
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &RunContext{
		Context:      ctx,
		RunID:        runID,
		Input:        input,
		State:        state,
		Interceptors: interceptors,
		NodeTimeout:  nodeTimeout,
		Logger:       logger,
	}
}

// Done returns a channel closed when the ambient context is cancelled.
func (rc *RunContext) Done() <-chan struct{} { return rc.Context.Done() }

// Err returns the cancellation error (if any) from the ambient context.
func (rc *RunContext) Err() error { return rc.Context.Err() }

// WithContext returns a copy of the run context bound to ctx. Used to scope
// a single node execution to a timeout without affecting siblings.
func (rc *RunContext) WithContext(ctx context.Context) *RunContext {
	c := *rc
	c.Context = ctx
	return &c
}

// Fork derives a branch context for parallel fan-out: same run identity and
// interceptors, but an isolated state (seeded by the caller from a phase
// snapshot) whose Delta is merged back by the composite after the join.
func (rc *RunContext) Fork(ctx context.Context, state *State) *RunContext {
	c := *rc
	c.Context = ctx
	c.State = state
	return &c
}
