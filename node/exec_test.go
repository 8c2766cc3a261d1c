package node

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/core"
)

// stubNode is a scriptable node for composite tests.
type stubNode struct {
	BaseNode
	run func(rc *core.RunContext) (*core.Result, error)
}

func newStubNode(name string, run func(rc *core.RunContext) (*core.Result, error)) *stubNode {
	return &stubNode{BaseNode: NewBaseNode(name, "stub"), run: run}
}

func (s *stubNode) Run(rc *core.RunContext) (*core.Result, error) { return s.run(rc) }

// succeedingNode returns a node that writes nothing itself and succeeds with
// the given output.
func succeedingNode(name, output string) *stubNode {
	return newStubNode(name, func(_ *core.RunContext) (*core.Result, error) {
		res := core.NewResult(name)
		res.Output = output
		return res.Finish(core.StatusSucceeded), nil
	})
}

func failingNode(name string) *stubNode {
	return newStubNode(name, func(_ *core.RunContext) (*core.Result, error) {
		return nil, errors.New("backend unavailable")
	})
}

func newTestRC(t *testing.T, interceptors ...core.Interceptor) *core.RunContext {
	t.Helper()

	return core.NewRunContext(t.Context(), core.NewID(), "test input", nil, interceptors, 0, nil)
}

func TestExecute_SuccessWritesOutputKey(t *testing.T) {
	rc := newTestRC(t)

	res := Execute(rc, succeedingNode("research", "findings"))

	require.True(t, res.Succeeded())
	assert.Equal(t, "findings", rc.State.GetString("research"))
}

func TestExecute_CustomOutputKey(t *testing.T) {
	rc := newTestRC(t)

	n := succeedingNode("research", "findings")
	n.SetOutputKey("notes")

	Execute(rc, n)

	assert.Equal(t, "findings", rc.State.GetString("notes"))
	_, ok := rc.State.Get("research")
	assert.False(t, ok)
}

func TestExecute_FailureDegradesIntoState(t *testing.T) {
	rc := newTestRC(t)

	res := Execute(rc, failingNode("research"))

	assert.Equal(t, core.StatusFailed, res.Status)
	assert.Contains(t, res.Error, "backend unavailable")

	// Downstream nodes see a degraded marker rather than an absent key.
	marker := rc.State.GetString("research")
	assert.Contains(t, marker, "research")
	assert.Contains(t, marker, "backend unavailable")
}

func TestExecute_BeforeHookShortCircuits(t *testing.T) {
	deny := core.InterceptorFuncs{
		Before: func(_ *core.RunContext, n core.Node) (*core.Result, error) {
			res := core.NewResult(n.Name())
			res.Output = "not now"
			return res.Finish(core.StatusDenied), nil
		},
	}

	executed := false
	n := newStubNode("guarded", func(_ *core.RunContext) (*core.Result, error) {
		executed = true
		return core.NewResult("guarded").Finish(core.StatusSucceeded), nil
	})

	rc := newTestRC(t, deny)
	res := Execute(rc, n)

	assert.False(t, executed)
	assert.Equal(t, core.StatusDenied, res.Status)
	assert.Equal(t, "not now", rc.State.GetString("guarded"))
}

func TestExecute_AfterHookRunsOnEveryOutcome(t *testing.T) {
	var seen []core.Status
	after := core.InterceptorFuncs{
		After: func(_ *core.RunContext, _ core.Node, res *core.Result) error {
			seen = append(seen, res.Status)
			return nil
		},
	}

	rc := newTestRC(t, after)
	Execute(rc, succeedingNode("a", "ok"))
	Execute(rc, failingNode("b"))

	assert.Equal(t, []core.Status{core.StatusSucceeded, core.StatusFailed}, seen)
}

func TestExecute_AfterHookErrorDoesNotFailNode(t *testing.T) {
	after := core.InterceptorFuncs{
		After: func(_ *core.RunContext, _ core.Node, _ *core.Result) error {
			return errors.New("hook broke")
		},
	}

	rc := newTestRC(t, after)
	res := Execute(rc, succeedingNode("a", "ok"))

	assert.True(t, res.Succeeded())
}
