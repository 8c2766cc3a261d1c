// Package admission implements the cooldown gate placed in front of
// rate-limited nodes. The gate consults a pluggable Store for the node's
// last usage and denies execution while the cooldown window is open,
// substituting a user-visible explanation for the node's output.
//
// The gate fails open: when the store is unreachable the node runs. A
// temporarily unlimited node is the deliberate trade against a healthy
// backend going dark because its bookkeeping did.
package admission

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
)

// Decision is the outcome of an admission check. RetryAfter is only set on
// denials and reports the remaining cooldown.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Gate enforces a per-node cooldown period. It implements core.Interceptor
// so it slots into the execution chain: BeforeNode denies nodes inside their
// window, everything else passes through untouched.
type Gate struct {
	store  Store
	period time.Duration
	now    func() time.Time
	logger logging.Logger
	// guarded limits the gate to an explicit node set; empty means all.
	guarded map[string]struct{}
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithClock injects the gate's clock for deterministic tests.
func WithClock(now func() time.Time) GateOption {
	return func(g *Gate) { g.now = now }
}

// WithLogger sets the gate's logger.
func WithLogger(logger logging.Logger) GateOption {
	return func(g *Gate) { g.logger = logger }
}

// WithGuardedNodes restricts the gate to the named nodes; others bypass the
// check entirely.
func WithGuardedNodes(names ...string) GateOption {
	return func(g *Gate) {
		g.guarded = make(map[string]struct{}, len(names))
		for _, n := range names {
			g.guarded[n] = struct{}{}
		}
	}
}

// NewGate creates a cooldown gate over the given store.
func NewGate(store Store, period time.Duration, opts ...GateOption) *Gate {
	g := &Gate{
		store:  store,
		period: period,
		now:    time.Now,
		logger: logging.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Check decides whether the named node may run now. An allowed check records
// the usage (best effort); store errors always admit.
func (g *Gate) Check(ctx context.Context, name string) Decision {
	if acq, ok := g.store.(Acquirer); ok {
		decision, err := acq.Acquire(ctx, name, g.period)
		if err != nil {
			g.logger.Warn("admission store unavailable, failing open", "node", name, "error", err)
			return Decision{Allowed: true}
		}

		logging.LogGateDecision(g.logger, name, decision.Allowed, decision.RetryAfter)

		return decision
	}

	last, found, err := g.store.LastUsed(ctx, name)
	if err != nil {
		g.logger.Warn("admission store unavailable, failing open", "node", name, "error", err)
		return Decision{Allowed: true}
	}

	if found {
		if elapsed := g.now().Sub(last); elapsed < g.period {
			decision := Decision{Allowed: false, RetryAfter: g.period - elapsed}
			logging.LogGateDecision(g.logger, name, false, decision.RetryAfter)

			return decision
		}
	}

	// Best-effort: a failed record must not turn an allow into a deny.
	if err := g.store.Record(ctx, name, g.now()); err != nil {
		g.logger.Warn("recording node usage failed", "node", name, "error", err)
	}

	logging.LogGateDecision(g.logger, name, true, 0)

	return Decision{Allowed: true}
}

// BeforeNode implements core.Interceptor. A denial short-circuits the node
// with the cooldown explanation as its output.
func (g *Gate) BeforeNode(rc *core.RunContext, n core.Node) (*core.Result, error) {
	if g.guarded != nil {
		if _, ok := g.guarded[n.Name()]; !ok {
			return nil, nil
		}
	}

	decision := g.Check(rc.Context, n.Name())
	if decision.Allowed {
		return nil, nil
	}

	res := core.NewResult(n.Name())
	res.RetryAfter = decision.RetryAfter
	res.Output = DenialMessage(n.Name(), decision.RetryAfter)

	return res.Finish(core.StatusDenied), nil
}

// AfterNode implements core.Interceptor. Usage is recorded at admission
// time, so nothing remains to do here.
func (g *Gate) AfterNode(_ *core.RunContext, _ core.Node, _ *core.Result) error {
	return nil
}

// DenialMessage renders the user-visible cooldown explanation substituted
// for a denied node's output.
func DenialMessage(name string, retryAfter time.Duration) string {
	secs := int(math.Ceil(retryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}

	return fmt.Sprintf(
		"The %s node is on cooldown and cannot be used right now. Please wait %d seconds before trying again.",
		name, secs,
	)
}
