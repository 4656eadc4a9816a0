package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/agentcore/coreagent/pkg/models"
)

type fakeHandler struct {
	name       string
	params     map[string]any
	approval   bool
	result     models.ToolOutput
	err        error
	panicOnRun bool
	lastArgs   map[string]any
}

func (f *fakeHandler) Name() string               { return f.name }
func (f *fakeHandler) Description() string        { return "fake handler for tests" }
func (f *fakeHandler) Parameters() map[string]any  { return f.params }
func (f *fakeHandler) RequiresApproval() bool      { return f.approval }
func (f *fakeHandler) Handle(ctx context.Context, inv models.ToolInvocation) (models.ToolOutput, error) {
	f.lastArgs = inv.Arguments
	if f.panicOnRun {
		panic("boom")
	}
	return f.result, f.err
}

func TestRegistryDispatchUnknownTool(t *testing.T) {
	r := NewRegistry()
	out := r.Dispatch(context.Background(), models.ToolInvocation{Name: "nope"})
	if out.Success {
		t.Fatalf("expected failure for unknown tool, got %+v", out)
	}
}

func TestRegistryDispatchRecoversPanic(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeHandler{name: "boom", params: map[string]any{}, panicOnRun: true})

	out := r.Dispatch(context.Background(), models.ToolInvocation{Name: "boom"})
	if out.Success {
		t.Fatalf("expected panic to be converted into a failed ToolOutput, got %+v", out)
	}
}

func TestRegistryRequiresApprovalUnknownToolIsConservative(t *testing.T) {
	r := NewRegistry()
	if !r.RequiresApproval("missing") {
		t.Error("unknown tool should require approval by default")
	}
}

func TestRegistrySpecsPreserveRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeHandler{name: "b", params: map[string]any{}})
	r.Register(&fakeHandler{name: "a", params: map[string]any{}})
	r.Register(&fakeHandler{name: "b", params: map[string]any{}}) // re-register, stays in original slot

	specs := r.Specs()
	if len(specs) != 2 {
		t.Fatalf("got %d specs, want 2", len(specs))
	}
	if specs[0].Function.Name != "b" || specs[1].Function.Name != "a" {
		t.Errorf("specs out of order: %+v", specs)
	}
}

func TestCoerceArgumentsConvertsStringTypes(t *testing.T) {
	schema := map[string]any{
		"properties": map[string]any{
			"count":   map[string]any{"type": "integer"},
			"ratio":   map[string]any{"type": "number"},
			"enabled": map[string]any{"type": "boolean"},
			"name":    map[string]any{"type": "string"},
		},
	}
	args := map[string]any{
		"count":   "42",
		"ratio":   "3.5",
		"enabled": "true",
		"name":    "unchanged",
	}

	out := coerceArguments(args, schema)

	if out["count"] != int64(42) {
		t.Errorf("count = %v (%T), want int64(42)", out["count"], out["count"])
	}
	if out["ratio"] != 3.5 {
		t.Errorf("ratio = %v, want 3.5", out["ratio"])
	}
	if out["enabled"] != true {
		t.Errorf("enabled = %v, want true", out["enabled"])
	}
	if out["name"] != "unchanged" {
		t.Errorf("name = %v, want unchanged", out["name"])
	}
}

func TestRegistryDispatchReturnsHandlerError(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeHandler{name: "fails", params: map[string]any{}, err: errors.New("kaboom")})

	out := r.Dispatch(context.Background(), models.ToolInvocation{Name: "fails"})
	if out.Success {
		t.Fatalf("expected failure, got %+v", out)
	}
}
