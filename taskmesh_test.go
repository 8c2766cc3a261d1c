package taskmesh

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/config"
	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/model"
	"github.com/hupe1980/taskmesh/node"
)

func TestTaskMesh_RunPipeline(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	m.AddResponse("research Go", "Go is a statically typed language")

	pipeline := node.NewSequentialNode("pipeline",
		node.NewLocalNode("research", "researches the topic", "", m),
	)

	mesh := New(pipeline)

	res, state, err := mesh.Run(t.Context(), "research Go", nil)
	require.NoError(t, err)

	assert.True(t, res.Succeeded())
	assert.Equal(t, "Go is a statically typed language", state.GetString("research"))
}

func TestTaskMesh_CooldownAcrossRuns(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	m.AddResponse("check", "done")

	mesh := New(
		node.NewLocalNode("stock", "looks up stock", "", m),
		func(o *Options) { o.CooldownPeriod = time.Minute },
	)

	res1, _, err := mesh.Run(t.Context(), "check", nil)
	require.NoError(t, err)
	assert.True(t, res1.Succeeded())

	res2, _, err := mesh.Run(t.Context(), "check", nil)
	require.NoError(t, err)
	assert.Equal(t, core.StatusDenied, res2.Status)
	assert.Contains(t, res2.Output, "on cooldown")
}

func TestTaskMesh_GuardedNodesScopeTheGate(t *testing.T) {
	m := model.NewMockModel("mock", "mock")

	mesh := New(
		node.NewSequentialNode("pipeline",
			node.NewLocalNode("stock", "guarded", "", m),
			node.NewLocalNode("weather", "unguarded", "", m),
		),
		func(o *Options) {
			o.CooldownPeriod = time.Minute
			o.GuardedNodes = []string{"stock"}
		},
	)

	// Second run: stock is denied, weather keeps answering.
	_, _, err := mesh.Run(t.Context(), "ask", nil)
	require.NoError(t, err)

	res, _, err := mesh.Run(t.Context(), "ask", nil)
	require.NoError(t, err)

	require.Len(t, res.Children, 2)
	assert.Equal(t, core.StatusDenied, res.Children[0].Status)
	assert.True(t, res.Children[1].Succeeded())
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Cooldown.Period = time.Minute

	m := model.NewMockModel("mock", "mock")
	mesh, err := FromConfig(cfg, node.NewLocalNode("echo", "echoes", "", m))
	require.NoError(t, err)

	res, _, err := mesh.Run(t.Context(), "hi", nil)
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
}

func TestFromConfig_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Cooldown.Store = "http" // requires a url

	_, err := FromConfig(cfg, nil)
	assert.Error(t, err)
}

func TestModelFromConfig(t *testing.T) {
	t.Run("mock", func(t *testing.T) {
		m, err := ModelFromConfig(config.ModelConfig{Provider: "mock", Name: "test"})
		require.NoError(t, err)
		assert.Equal(t, "mock", m.Info().Provider)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := ModelFromConfig(config.ModelConfig{Provider: "llama"})
		assert.Error(t, err)
	})
}
