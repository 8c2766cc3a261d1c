package node

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/core"
)

func TestParallelNode_BranchIsolation(t *testing.T) {
	// Both branches read "seed" and write their own key; neither observes
	// the other's write while running.
	var mu sync.Mutex
	observed := map[string]bool{}

	branch := func(name, sibling string) *stubNode {
		return newStubNode(name, func(rc *core.RunContext) (*core.Result, error) {
			rc.State.Set(name, "done")

			_, sawSibling := rc.State.Get(sibling)
			mu.Lock()
			observed[name] = sawSibling
			mu.Unlock()

			res := core.NewResult(name)
			res.Output = rc.State.GetString("seed") + ":" + name
			return res.Finish(core.StatusSucceeded), nil
		})
	}

	par := NewParallelNode("fanout", branch("left", "right"), branch("right", "left"))

	rc := newTestRC(t)
	rc.State.Set("seed", "s")

	res := Execute(rc, par)

	require.True(t, res.Succeeded())
	assert.False(t, observed["left"], "left must not see right's in-flight write")
	assert.False(t, observed["right"], "right must not see left's in-flight write")

	// After the join both branch outputs are merged into the live state.
	assert.Equal(t, "s:left", rc.State.GetString("left"))
	assert.Equal(t, "s:right", rc.State.GetString("right"))
}

func TestParallelNode_NoLostUpdates(t *testing.T) {
	children := make([]core.Node, 0, 8)
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		children = append(children, succeedingNode(name, "out-"+name))
	}

	par := NewParallelNode("fanout", children...)
	rc := newTestRC(t)

	res := Execute(rc, par)

	require.True(t, res.Succeeded())
	require.Len(t, res.Children, 8)
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		assert.Equal(t, "out-"+name, rc.State.GetString(name))
	}
}

func TestParallelNode_SameKeyLastDeclaredWins(t *testing.T) {
	writer := func(name, value string) *stubNode {
		return newStubNode(name, func(rc *core.RunContext) (*core.Result, error) {
			rc.State.Set("shared", value)
			return core.NewResult(name).Finish(core.StatusSucceeded), nil
		})
	}

	par := NewParallelNode("fanout", writer("first", "v1"), writer("second", "v2"))
	rc := newTestRC(t)

	Execute(rc, par)

	// Deltas merge in declared order, so the later-declared branch wins.
	assert.Equal(t, "v2", rc.State.GetString("shared"))
}

func TestParallelNode_ChildFailureDoesNotAbortPhase(t *testing.T) {
	par := NewParallelNode("fanout",
		succeedingNode("ok", "fine"),
		failingNode("broken"),
	)

	rc := newTestRC(t)
	res := Execute(rc, par)

	require.True(t, res.Succeeded())
	assert.Equal(t, "fine", rc.State.GetString("ok"))
	assert.Contains(t, rc.State.GetString("broken"), "unavailable")
}

func TestParallelNode_ResultsInDeclaredOrder(t *testing.T) {
	par := NewParallelNode("fanout",
		succeedingNode("one", "1"),
		succeedingNode("two", "2"),
		succeedingNode("three", "3"),
	)

	res := Execute(newTestRC(t), par)

	require.Len(t, res.Children, 3)
	assert.Equal(t, "one", res.Children[0].Node)
	assert.Equal(t, "two", res.Children[1].Node)
	assert.Equal(t, "three", res.Children[2].Node)
}
