package profile

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/agentcore/coreagent/pkg/models"
)

// Resolve loads a CapabilityProfile for name: one of the three builtin
// presets (readonly, developer, eval) if no matching YAML file exists on
// disk under ProfilesDir, otherwise the YAML document at that path.
func Resolve(name string) (*models.CapabilityProfile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "readonly"
	}

	path := ProfileConfigPath(name)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.LoadProfilePreset(name), nil
		}
		return nil, fmt.Errorf("profile: reading %s: %w", path, err)
	}

	var p models.CapabilityProfile
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("profile: parsing %s: %w", path, err)
	}
	if p.Name == "" {
		p.Name = name
	}
	if len(p.DangerousPatterns) == 0 {
		p.DangerousPatterns = models.DefaultDangerousPatterns
	}
	return &p, nil
}
