package tool

import (
	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/internal/util"
)

// FunctionTool wraps a Go function as a Tool.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]any
	fn          func(rc *core.RunContext, args map[string]any) (any, error)
}

// NewFunctionTool creates a tool from a function and an explicit parameter
// schema. A nil schema means the tool accepts any object.
func NewFunctionTool(name, description string, parameters map[string]any, fn func(rc *core.RunContext, args map[string]any) (any, error)) *FunctionTool {
	if parameters == nil {
		parameters = map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		}
	}

	return &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}

// NewFunctionToolFromStruct creates a tool whose parameter schema is derived
// from the fields of the given argument struct.
func NewFunctionToolFromStruct(name, description string, argsType any, fn func(rc *core.RunContext, args map[string]any) (any, error)) *FunctionTool {
	return NewFunctionTool(name, description, util.CreateSchema(argsType), fn)
}

// Name returns the unique identifier of the tool.
func (t *FunctionTool) Name() string {
	return t.name
}

// Description returns a human-readable description of what the tool does.
func (t *FunctionTool) Description() string {
	return t.description
}

// Parameters returns the JSON schema describing the tool's arguments.
func (t *FunctionTool) Parameters() map[string]any {
	return t.parameters
}

// Call validates the arguments against the schema and executes the function.
func (t *FunctionTool) Call(rc *core.RunContext, args map[string]any) (any, error) {
	if err := util.ValidateParameters(args, t.parameters); err != nil {
		return nil, &Error{Code: ErrCodeInvalidArgs, Tool: t.name, Msg: err.Error()}
	}

	return t.fn(rc, args)
}
