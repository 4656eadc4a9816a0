package agent

import (
	"context"

	"github.com/agentcore/coreagent/pkg/models"
)

// ToolHandler is the uniform interface every tool exports to the registry.
// Handle must never panic across this boundary; the registry recovers and
// converts any panic into a failed ToolOutput.
type ToolHandler interface {
	Name() string
	Description() string

	// Parameters is the JSON-schema "parameters" object: keys, types, enum
	// constraints, and a "required" list.
	Parameters() map[string]any

	// RequiresApproval is the handler's own default; a CapabilityProfile may
	// override this at the approval-policy layer without changing it here.
	RequiresApproval() bool

	Handle(ctx context.Context, invocation models.ToolInvocation) (models.ToolOutput, error)
}

// FunctionSpec is the {type:"function", function:{...}} shape sent to the
// model for every registered tool.
type FunctionSpec struct {
	Type     string           `json:"type"`
	Function FunctionSpecBody `json:"function"`
}

type FunctionSpecBody struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// SpecOf builds the model-facing spec for a handler.
func SpecOf(h ToolHandler) FunctionSpec {
	return FunctionSpec{
		Type: "function",
		Function: FunctionSpecBody{
			Name:        h.Name(),
			Description: h.Description(),
			Parameters:  h.Parameters(),
		},
	}
}
