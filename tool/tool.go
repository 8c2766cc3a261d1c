// Package tool provides the tool abstraction used by reasoning nodes.
// Tools expose a name, description and JSON-schema parameters so models can
// request calls, and an Invoker dispatches those calls without ever
// surfacing a Go error to the caller.
package tool

import "github.com/hupe1980/taskmesh/core"

// Tool defines the interface that all tools must implement.
type Tool interface {
	// Name returns the unique identifier of the tool.
	Name() string

	// Description returns a human-readable description of what the tool does.
	Description() string

	// Parameters returns the JSON schema describing the tool's arguments.
	Parameters() map[string]any

	// Call executes the tool with the given arguments.
	Call(rc *core.RunContext, args map[string]any) (any, error)
}

// ErrorCode categorizes tool invocation failures.
type ErrorCode string

const (
	ErrCodeUnknownTool     ErrorCode = "unknown_tool"
	ErrCodeInvalidArgs     ErrorCode = "invalid_arguments"
	ErrCodeExecutionFailed ErrorCode = "execution_failed"
)

// Error is a structured tool invocation failure.
type Error struct {
	Code ErrorCode `json:"code"`
	Tool string    `json:"tool"`
	Msg  string    `json:"message"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return "tool " + e.Tool + ": " + e.Msg
}

// Descriptor describes a registered tool for model consumption.
type Descriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Call is a request to invoke a named tool.
type Call struct {
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Result is the outcome of a tool invocation. Failed invocations carry the
// failure in Error; Output is only meaningful when Error is empty.
type Result struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name"`
	Output any    `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// OK reports whether the invocation succeeded.
func (r Result) OK() bool {
	return r.Error == ""
}
