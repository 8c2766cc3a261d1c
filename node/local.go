package node

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/internal/util"
	"github.com/hupe1980/taskmesh/model"
	"github.com/hupe1980/taskmesh/tool"
)

// DefaultMaxToolRounds bounds the model/tool round trips of a LocalNode.
const DefaultMaxToolRounds = 8

// LocalNode is a model-backed reasoning step. It renders its instruction
// against the run state ({key} placeholders), sends the conversation to the
// model together with the declared tool set, routes requested tool calls
// through a tool.Invoker, and loops until the model produces a final text
// answer or the round bound is hit.
//
// Tool failures (unknown names included) are fed back to the model as
// function response data — they degrade the conversation, never the node.
type LocalNode struct {
	BaseNode
	model         model.Model
	instruction   string
	invoker       *tool.Invoker
	maxToolRounds int
}

// LocalOption configures a LocalNode.
type LocalOption func(*LocalNode)

// WithOutputKey stores the node's output under key instead of its name.
func WithOutputKey(key string) LocalOption {
	return func(n *LocalNode) { n.SetOutputKey(key) }
}

// WithTools declares the tools the model may call.
func WithTools(tools ...tool.Tool) LocalOption {
	return func(n *LocalNode) { n.invoker = tool.NewInvoker(tools, nil) }
}

// WithMaxToolRounds bounds the model/tool round trips.
func WithMaxToolRounds(rounds int) LocalOption {
	return func(n *LocalNode) { n.maxToolRounds = rounds }
}

// NewLocalNode creates a reasoning node backed by the given model.
func NewLocalNode(name, description, instruction string, m model.Model, opts ...LocalOption) *LocalNode {
	n := &LocalNode{
		BaseNode:      NewBaseNode(name, description),
		model:         m,
		instruction:   instruction,
		maxToolRounds: DefaultMaxToolRounds,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.invoker == nil {
		n.invoker = tool.NewInvoker(nil, nil)
	}

	return n
}

// Run drives the reasoning loop.
func (n *LocalNode) Run(rc *core.RunContext) (*core.Result, error) {
	res := core.NewResult(n.Name())
	res.Status = core.StatusRunning

	instructions, err := util.RenderTemplate(n.instruction, rc.State.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("render instruction: %w", err)
	}

	contents := []core.Content{core.NewTextContent("user", rc.Input)}

	for round := 0; round <= n.maxToolRounds; round++ {
		resp, err := n.generate(rc, instructions, contents)
		if err != nil {
			return nil, err
		}

		calls := resp.Content.FunctionCalls()
		if len(calls) == 0 {
			res.Output = resp.Content.Text()
			return res.Finish(core.StatusSucceeded), nil
		}

		if round == n.maxToolRounds {
			break
		}

		contents = append(contents, resp.Content)
		contents = append(contents, n.executeCalls(rc, calls))
	}

	return nil, fmt.Errorf("tool round limit (%d) exceeded", n.maxToolRounds)
}

// generate performs one non-streaming model call and returns the final response.
func (n *LocalNode) generate(rc *core.RunContext, instructions string, contents []core.Content) (model.Response, error) {
	req := model.Request{
		Instructions: instructions,
		Contents:     contents,
		Tools:        n.toolDefinitions(),
	}

	respCh, errCh := n.model.Generate(rc.Context, req)

	var final model.Response
	for resp := range respCh {
		if !resp.Partial {
			final = resp
		}
	}
	if err := <-errCh; err != nil {
		return model.Response{}, fmt.Errorf("model generation: %w", err)
	}

	return final, nil
}

// executeCalls routes the model's tool calls through the invoker and builds
// the tool-role content for the next round.
func (n *LocalNode) executeCalls(rc *core.RunContext, calls []core.FunctionCall) core.Content {
	parts := make([]core.Part, 0, len(calls))

	for _, fc := range calls {
		args := map[string]any{}
		if strings.TrimSpace(fc.Arguments) != "" {
			// Malformed argument JSON is reported to the model like any
			// other tool failure.
			if err := json.Unmarshal([]byte(fc.Arguments), &args); err != nil {
				parts = append(parts, core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{
					ID:    fc.ID,
					Name:  fc.Name,
					Error: fmt.Sprintf("invalid arguments: %s", err),
				}})

				continue
			}
		}

		out := n.invoker.Invoke(rc, tool.Call{ID: fc.ID, Name: fc.Name, Arguments: args})

		response := out.Output
		if !out.OK() {
			// Surface the failure as response data so providers that only
			// forward the response text still show it to the model.
			response = "ERROR: " + out.Error
		}

		parts = append(parts, core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{
			ID:       out.ID,
			Name:     out.Name,
			Response: response,
			Error:    out.Error,
		}})
	}

	return core.Content{Role: "tool", Parts: parts}
}

// toolDefinitions exposes the registered tools to the model.
func (n *LocalNode) toolDefinitions() []model.ToolDefinition {
	descriptors := n.invoker.ListTools()
	if len(descriptors) == 0 {
		return nil
	}

	defs := make([]model.ToolDefinition, len(descriptors))
	for i, d := range descriptors {
		defs[i] = model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		}
	}

	return defs
}
