package agent

import (
	"context"
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"

	"github.com/agentcore/coreagent/pkg/models"
)

// Registry is a name->handler map, in insertion order, with argument
// coercion and panic containment at dispatch time. It is effectively
// immutable after construction: Register is only called by the capability
// factory during setup, never by handlers or the agent loop.
type Registry struct {
	mu       sync.RWMutex
	order    []string
	handlers map[string]ToolHandler
}

// NewRegistry returns an empty registry ready for Register calls.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]ToolHandler)}
}

// Register inserts a handler. A later call with the same name overrides the
// earlier one in place, preserving its original position in the spec order.
func (r *Registry) Register(h ToolHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := h.Name()
	if _, exists := r.handlers[name]; !exists {
		r.order = append(r.order, name)
	}
	r.handlers[name] = h
}

// Get returns the handler registered under name, if any.
func (r *Registry) Get(name string) (ToolHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Specs returns the model-facing function specs in registration order.
func (r *Registry) Specs() []FunctionSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make([]FunctionSpec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, SpecOf(r.handlers[name]))
	}
	return specs
}

// RequiresApproval delegates to the handler; an unknown tool is treated as
// requiring approval, conservatively.
func (r *Registry) RequiresApproval(name string) bool {
	h, ok := r.Get(name)
	if !ok {
		return true
	}
	return h.RequiresApproval()
}

// Dispatch coerces arguments against the handler's declared schema, then
// invokes Handle. It never lets a panic or the absence of a tool escape as
// a Go error to the caller; both are folded into the returned ToolOutput.
func (r *Registry) Dispatch(ctx context.Context, inv models.ToolInvocation) (out models.ToolOutput) {
	h, ok := r.Get(inv.Name)
	if !ok {
		return models.ToolOutput{
			Success: false,
			Content: fmt.Sprintf("Unknown tool: %s", inv.Name),
		}
	}

	coerced := coerceArguments(inv.Arguments, h.Parameters())

	defer func() {
		if rec := recover(); rec != nil {
			out = models.ToolOutput{
				Success: false,
				Content: fmt.Sprintf("tool %q panicked: %v\narguments: %v\n%s", inv.Name, rec, coerced, debug.Stack()),
			}
		}
	}()

	result, err := h.Handle(ctx, models.ToolInvocation{CallID: inv.CallID, Name: inv.Name, Arguments: coerced})
	if err != nil {
		if ctx.Err() != nil {
			// Cancellation/deadline errors propagate to the caller via the
			// context itself; the caller checks ctx.Err() around Dispatch.
			return models.ToolOutput{Success: false, Content: err.Error()}
		}
		return models.ToolOutput{
			Success: false,
			Content: fmt.Sprintf("%T: %v (arguments: %v)", err, err, coerced),
		}
	}
	return result
}

// coerceArguments tolerates models that emit JSON strings for numeric or
// boolean fields: every argument whose key appears in the schema's
// "properties" is coerced to its declared type when mismatched. Failure to
// coerce leaves the original value untouched.
func coerceArguments(args map[string]any, schema map[string]any) map[string]any {
	if len(args) == 0 {
		return args
	}
	props, _ := schema["properties"].(map[string]any)
	if props == nil {
		return args
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
		propSchema, ok := props[k].(map[string]any)
		if !ok {
			continue
		}
		declared, _ := propSchema["type"].(string)
		switch declared {
		case "boolean":
			if b, ok := v.(bool); ok {
				out[k] = b
				continue
			}
			if s, ok := v.(string); ok {
				switch strings.ToLower(strings.TrimSpace(s)) {
				case "true", "1", "yes":
					out[k] = true
				default:
					out[k] = s != "" && s != "false" && s != "0"
				}
			}
		case "integer":
			if s, ok := v.(string); ok {
				if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
					out[k] = n
				}
			}
		case "number":
			if s, ok := v.(string); ok {
				if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
					out[k] = f
				}
			}
		}
	}
	return out
}
