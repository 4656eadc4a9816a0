package agent

import (
	"testing"

	"github.com/agentcore/coreagent/pkg/models"
)

func TestApprovalPolicyRequiresApprovalByToolMode(t *testing.T) {
	profile := &models.CapabilityProfile{
		Name:     "dangerous-mode",
		Approval: models.ApprovalDangerous,
	}
	policy := NewApprovalPolicy(profile)

	required, reason := policy.Decide("bash", map[string]any{"command": "ls"})
	if !required || reason == "" {
		t.Errorf("expected bash to require approval under dangerous mode, got required=%v reason=%q", required, reason)
	}

	required, _ = policy.Decide("read", map[string]any{"path": "a.txt"})
	if required {
		t.Error("expected read to not require approval under dangerous mode")
	}
}

func TestApprovalPolicyScansArgsForDangerousPatterns(t *testing.T) {
	profile := &models.CapabilityProfile{
		Name:              "readonly",
		Approval:          models.ApprovalNone,
		DangerousPatterns: []string{"rm -rf"},
	}
	policy := NewApprovalPolicy(profile)

	required, reason := policy.Decide("bash", map[string]any{"command": "rm -rf /tmp/scratch"})
	if !required || reason == "" {
		t.Errorf("expected dangerous substring to require approval, got required=%v reason=%q", required, reason)
	}

	required, _ = policy.Decide("bash", map[string]any{"command": "ls -la"})
	if required {
		t.Error("expected a harmless command to not require approval")
	}
}

func TestApprovalPolicyRegexPattern(t *testing.T) {
	profile := &models.CapabilityProfile{
		Name:              "readonly",
		Approval:          models.ApprovalNone,
		DangerousPatterns: []string{"regex:drop\\s+table"},
	}
	policy := NewApprovalPolicy(profile)

	required, _ := policy.Decide("sqlite", map[string]any{"query": "DROP TABLE users"})
	if !required {
		t.Error("expected the regex dangerous pattern to match case-insensitively")
	}

	required, _ = policy.Decide("sqlite", map[string]any{"query": "SELECT * FROM users"})
	if required {
		t.Error("expected a harmless query to not require approval")
	}
}

func TestApprovalPolicyApprovalNoneNeverRequiresForUngatedTool(t *testing.T) {
	profile := &models.CapabilityProfile{
		Name:     "eval",
		Approval: models.ApprovalNone,
	}
	policy := NewApprovalPolicy(profile)

	if required, _ := policy.Decide("write", map[string]any{"path": "x"}); required {
		t.Error("expected ApprovalNone with no dangerous patterns to never require approval")
	}
}
