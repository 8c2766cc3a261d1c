package node

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/model"
	"github.com/hupe1980/taskmesh/tool"
)

func TestLocalNode_PlainAnswer(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	m.AddResponse("what is go?", "a programming language")

	n := NewLocalNode("answerer", "answers questions", "Be brief.", m)

	rc := core.NewRunContext(t.Context(), core.NewID(), "what is go?", nil, nil, 0, nil)
	res := Execute(rc, n)

	require.True(t, res.Succeeded())
	assert.Equal(t, "a programming language", res.Output)
	assert.Equal(t, "a programming language", rc.State.GetString("answerer"))
}

// captureModel records the last request so tests can inspect the rendered
// instructions.
type captureModel struct {
	*model.MockModel
	lastReq model.Request
}

func (c *captureModel) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	c.lastReq = req
	return c.MockModel.Generate(ctx, req)
}

func TestLocalNode_InstructionPlaceholders(t *testing.T) {
	m := &captureModel{MockModel: model.NewMockModel("mock", "mock")}

	n := NewLocalNode("summarizer", "summarizes", "Summarize {topic} for {audience}.", m,
		WithOutputKey("summary"))

	rc := core.NewRunContext(t.Context(), core.NewID(), "go", nil, nil, 0, nil)
	rc.State.Set("topic", "generics")
	rc.State.Set("audience", "beginners")

	res := Execute(rc, n)
	require.True(t, res.Succeeded())
	assert.Equal(t, "Summarize generics for beginners.", m.lastReq.Instructions)
	assert.NotEmpty(t, rc.State.GetString("summary"))
}

func TestLocalNode_ToolRound(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	// Round one: the model requests a tool call.
	m.AddScripted(model.Response{
		Content: core.Content{
			Role: "assistant",
			Parts: []core.Part{core.FunctionCallPart{FunctionCall: core.FunctionCall{
				ID:        "call-1",
				Name:      "weather",
				Arguments: `{"city":"Berlin"}`,
			}}},
		},
		FinishReason: "tool_calls",
	})
	// Round two: the model answers using the tool result.
	m.AddScripted(model.Response{
		Content:      core.NewTextContent("assistant", "It is sunny in Berlin."),
		FinishReason: "stop",
	})

	var calledWith string
	weather := tool.NewFunctionTool("weather", "looks up weather", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"city": map[string]any{"type": "string"},
		},
		"required": []any{"city"},
	}, func(_ *core.RunContext, args map[string]any) (any, error) {
		calledWith, _ = args["city"].(string)
		return "sunny", nil
	})

	n := NewLocalNode("forecaster", "forecasts weather", "", m, WithTools(weather))

	rc := core.NewRunContext(t.Context(), core.NewID(), "weather in berlin?", nil, nil, 0, nil)
	res := Execute(rc, n)

	require.True(t, res.Succeeded())
	assert.Equal(t, "Berlin", calledWith)
	assert.Equal(t, "It is sunny in Berlin.", res.Output)
}

func TestLocalNode_UnknownToolDoesNotFailNode(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	m.AddScripted(model.Response{
		Content: core.Content{
			Role: "assistant",
			Parts: []core.Part{core.FunctionCallPart{FunctionCall: core.FunctionCall{
				ID:   "call-1",
				Name: "nonexistent",
			}}},
		},
		FinishReason: "tool_calls",
	})
	m.AddScripted(model.Response{
		Content:      core.NewTextContent("assistant", "I could not use that tool."),
		FinishReason: "stop",
	})

	n := NewLocalNode("resilient", "keeps going", "", m)

	rc := core.NewRunContext(t.Context(), core.NewID(), "try a tool", nil, nil, 0, nil)
	res := Execute(rc, n)

	// The unknown tool became conversation data; the node still succeeded.
	require.True(t, res.Succeeded())
	assert.Equal(t, "I could not use that tool.", res.Output)
}

func TestLocalNode_ToolRoundLimit(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	// The model keeps requesting tools beyond the bound.
	for range 3 {
		m.AddScripted(model.Response{
			Content: core.Content{
				Role: "assistant",
				Parts: []core.Part{core.FunctionCallPart{FunctionCall: core.FunctionCall{
					ID:   "call",
					Name: "echo",
				}}},
			},
			FinishReason: "tool_calls",
		})
	}

	echo := tool.NewFunctionTool("echo", "echoes", nil,
		func(_ *core.RunContext, _ map[string]any) (any, error) { return "ok", nil })

	n := NewLocalNode("looper", "loops", "", m, WithTools(echo), WithMaxToolRounds(2))

	rc := core.NewRunContext(t.Context(), core.NewID(), "go", nil, nil, 0, nil)
	res := Execute(rc, n)

	assert.Equal(t, core.StatusFailed, res.Status)
	assert.Contains(t, res.Error, "round limit")
}
