package agent

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/agentcore/coreagent/pkg/models"
)

// ApprovalCallback decides whether a human approves a pending tool call. In
// batch mode it is the constant-true function; in eval it is nil (the
// profile's approval mode is "none" so it is never consulted).
type ApprovalCallback func(toolName string, args map[string]any) bool

// ApprovalPolicy decides, per invocation, whether a human must be asked.
// It consults the profile's tool-level flag first; only if that does not
// already require approval does it scan argument values against the
// profile's dangerous patterns.
type ApprovalPolicy struct {
	profile *models.CapabilityProfile

	mu        sync.Mutex
	regexpCache map[string]*regexp.Regexp
}

func NewApprovalPolicy(profile *models.CapabilityProfile) *ApprovalPolicy {
	return &ApprovalPolicy{profile: profile, regexpCache: make(map[string]*regexp.Regexp)}
}

// Decide returns whether approval is required and, if so, the reason.
func (p *ApprovalPolicy) Decide(toolName string, args map[string]any) (required bool, reason string) {
	if p.profile.RequiresToolApproval(toolName) {
		return true, fmt.Sprintf("tool %q requires approval under profile %q", toolName, p.profile.Name)
	}

	haystack := strings.ToLower(concatArgValues(args))
	for _, pattern := range p.profile.DangerousPatterns {
		if strings.HasPrefix(pattern, "regex:") {
			re := p.compile(pattern[len("regex:"):])
			if re == nil {
				// invalid regex falls back to literal substring match
				if strings.Contains(haystack, strings.ToLower(pattern[len("regex:"):])) {
					return true, fmt.Sprintf("argument text matches dangerous pattern %q", pattern)
				}
				continue
			}
			if re.MatchString(haystack) {
				return true, fmt.Sprintf("argument text matches dangerous pattern %q", pattern)
			}
			continue
		}
		if strings.Contains(haystack, strings.ToLower(pattern)) {
			return true, fmt.Sprintf("argument text matches dangerous pattern %q", pattern)
		}
	}
	return false, ""
}

func (p *ApprovalPolicy) compile(pattern string) *regexp.Regexp {
	p.mu.Lock()
	defer p.mu.Unlock()
	if re, ok := p.regexpCache[pattern]; ok {
		return re
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		p.regexpCache[pattern] = nil
		return nil
	}
	p.regexpCache[pattern] = re
	return re
}

func concatArgValues(args map[string]any) string {
	var b strings.Builder
	for _, v := range args {
		b.WriteString(stringifyArg(v))
		b.WriteString(" ")
	}
	return b.String()
}
