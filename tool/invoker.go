package tool

import (
	"fmt"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
)

// Invoker holds a node's tool registry and dispatches calls. Invoke never
// returns a Go error: every failure, including an unknown tool name or a
// panicking tool, is reported as a Result with a populated Error field so a
// reasoning loop can feed it back to the model.
type Invoker struct {
	tools  map[string]Tool
	order  []string
	logger logging.Logger
}

// NewInvoker creates an invoker over the given tools. Later tools with
// duplicate names replace earlier ones.
func NewInvoker(tools []Tool, logger logging.Logger) *Invoker {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	inv := &Invoker{
		tools:  make(map[string]Tool, len(tools)),
		logger: logger,
	}

	for _, t := range tools {
		if _, exists := inv.tools[t.Name()]; !exists {
			inv.order = append(inv.order, t.Name())
		}
		inv.tools[t.Name()] = t
	}

	return inv
}

// ListTools returns descriptors for all registered tools in registration order.
func (inv *Invoker) ListTools() []Descriptor {
	descriptors := make([]Descriptor, 0, len(inv.order))
	for _, name := range inv.order {
		t := inv.tools[name]
		descriptors = append(descriptors, Descriptor{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}

	return descriptors
}

// Invoke dispatches a single tool call.
func (inv *Invoker) Invoke(rc *core.RunContext, call Call) Result {
	t, exists := inv.tools[call.Name]
	if !exists {
		inv.logger.Warn("unknown tool requested", "tool", call.Name)

		return Result{
			ID:    call.ID,
			Name:  call.Name,
			Error: fmt.Sprintf("unknown tool %q", call.Name),
		}
	}

	output, err := inv.safeCall(rc, t, call.Arguments)
	if err != nil {
		logging.LogToolCall(inv.logger, call.Name, 0, false, err)

		return Result{ID: call.ID, Name: call.Name, Error: err.Error()}
	}

	return Result{ID: call.ID, Name: call.Name, Output: output}
}

// safeCall executes a tool, converting panics into errors.
func (inv *Invoker) safeCall(rc *core.RunContext, t Tool, args map[string]any) (output any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &Error{
				Code: ErrCodeExecutionFailed,
				Tool: t.Name(),
				Msg:  fmt.Sprintf("panic during execution: %v", r),
			}
		}
	}()

	if args == nil {
		args = map[string]any{}
	}

	return t.Call(rc, args)
}
