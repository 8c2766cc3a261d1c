package tool

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/core"
)

func newTestContext(t *testing.T) *core.RunContext {
	t.Helper()

	return core.NewRunContext(t.Context(), "run-1", "input", nil, nil, 0, nil)
}

func TestInvoker_Invoke(t *testing.T) {
	echo := NewFunctionTool("echo", "echoes its message", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{"type": "string"},
		},
		"required": []any{"message"},
	}, func(_ *core.RunContext, args map[string]any) (any, error) {
		return args["message"], nil
	})

	failing := NewFunctionTool("failing", "always fails", nil,
		func(_ *core.RunContext, _ map[string]any) (any, error) {
			return nil, errors.New("boom")
		})

	panicking := NewFunctionTool("panicking", "always panics", nil,
		func(_ *core.RunContext, _ map[string]any) (any, error) {
			panic("unexpected")
		})

	inv := NewInvoker([]Tool{echo, failing, panicking}, nil)
	rc := newTestContext(t)

	t.Run("success", func(t *testing.T) {
		res := inv.Invoke(rc, Call{ID: "c1", Name: "echo", Arguments: map[string]any{"message": "hi"}})
		require.True(t, res.OK())
		assert.Equal(t, "hi", res.Output)
		assert.Equal(t, "c1", res.ID)
	})

	t.Run("unknown tool never errors, names the tool", func(t *testing.T) {
		res := inv.Invoke(rc, Call{Name: "nonexistent"})
		assert.False(t, res.OK())
		assert.Contains(t, res.Error, "nonexistent")
	})

	t.Run("invalid arguments", func(t *testing.T) {
		res := inv.Invoke(rc, Call{Name: "echo", Arguments: map[string]any{}})
		assert.False(t, res.OK())
		assert.Contains(t, res.Error, "message")
	})

	t.Run("tool error captured", func(t *testing.T) {
		res := inv.Invoke(rc, Call{Name: "failing"})
		assert.False(t, res.OK())
		assert.Contains(t, res.Error, "boom")
	})

	t.Run("panic recovered", func(t *testing.T) {
		res := inv.Invoke(rc, Call{Name: "panicking"})
		assert.False(t, res.OK())
		assert.Contains(t, res.Error, "panic")
	})
}

func TestInvoker_ListTools(t *testing.T) {
	a := NewFunctionTool("alpha", "first", nil, func(_ *core.RunContext, _ map[string]any) (any, error) { return nil, nil })
	b := NewFunctionTool("beta", "second", nil, func(_ *core.RunContext, _ map[string]any) (any, error) { return nil, nil })

	inv := NewInvoker([]Tool{a, b}, nil)

	descriptors := inv.ListTools()
	require.Len(t, descriptors, 2)
	assert.Equal(t, "alpha", descriptors[0].Name)
	assert.Equal(t, "beta", descriptors[1].Name)
	assert.Equal(t, "second", descriptors[1].Description)
}

func TestNewFunctionToolFromStruct(t *testing.T) {
	type args struct {
		City string `json:"city" description:"City name"`
	}

	weather := NewFunctionToolFromStruct("weather", "looks up weather", args{},
		func(_ *core.RunContext, a map[string]any) (any, error) {
			return "sunny in " + a["city"].(string), nil
		})

	props := weather.Parameters()["properties"].(map[string]any)
	assert.Contains(t, props, "city")

	out, err := weather.Call(newTestContext(t), map[string]any{"city": "Berlin"})
	require.NoError(t, err)
	assert.Equal(t, "sunny in Berlin", out)
}
