package cliutil

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// frontmatterDelimiter marks the beginning and end of a prompt file's YAML
// variable-defaults block.
const frontmatterDelimiter = "---"

// PromptVariable declares one of a prompt's named inputs: whether it must
// be supplied (by --var/--vars-file) and, if not, what it falls back to.
// Mirrors the loader's variable contract: a declared variable resolves as
// user-supplied value, else Default, else (if Required) a hard error.
type PromptVariable struct {
	Name     string `yaml:"name"`
	Required bool   `yaml:"required"`
	Default  string `yaml:"default"`
}

// LoadPromptFile reads a markdown prompt file whose optional YAML
// frontmatter declares variable defaults - either as flat "key: value"
// entries, or under a "variables:" list of PromptVariable for variables
// that must be required. It renders the body as a text/template against
// vars (frontmatter defaults overridden by vars) and returns the rendered
// text.
func LoadPromptFile(path string, vars map[string]string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("cliutil: reading prompt file %s: %w", path, err)
	}

	declared, defaults, body, err := splitPromptFrontmatter(data)
	if err != nil {
		return "", fmt.Errorf("cliutil: parsing prompt file %s: %w", path, err)
	}

	merged := make(map[string]any, len(defaults)+len(vars))
	for k, v := range defaults {
		merged[k] = v
	}
	for _, pv := range declared {
		if _, has := merged[pv.Name]; !has && pv.Default != "" {
			merged[pv.Name] = pv.Default
		}
	}
	for k, v := range vars {
		merged[k] = v
	}
	for _, pv := range declared {
		if !pv.Required {
			continue
		}
		if _, has := merged[pv.Name]; !has {
			return "", fmt.Errorf("cliutil: prompt file %s: required variable %q was not provided", path, pv.Name)
		}
	}

	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(string(body))
	if err != nil {
		return "", fmt.Errorf("cliutil: prompt template syntax: %w", err)
	}
	var out bytes.Buffer
	if err := tmpl.Execute(&out, merged); err != nil {
		return "", fmt.Errorf("cliutil: prompt template variable: %w", err)
	}
	return strings.TrimSpace(out.String()), nil
}

// splitPromptFrontmatter separates an optional leading "---"-delimited YAML
// block from the markdown body. A file with no frontmatter is returned
// whole as the body with nil variable declarations and defaults.
func splitPromptFrontmatter(data []byte) ([]PromptVariable, map[string]string, []byte, error) {
	trimmed := bytes.TrimLeft(data, "\n")
	if !bytes.HasPrefix(trimmed, []byte(frontmatterDelimiter)) {
		return nil, nil, data, nil
	}

	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Scan() // consume the opening delimiter line, already matched above

	var fmLines []string
	closed := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == frontmatterDelimiter {
			closed = true
			break
		}
		fmLines = append(fmLines, line)
	}
	if !closed {
		return nil, nil, nil, fmt.Errorf("missing closing frontmatter delimiter")
	}

	var declared []PromptVariable
	defaults := map[string]string{}
	if len(fmLines) > 0 {
		var raw map[string]any
		if err := yaml.Unmarshal([]byte(strings.Join(fmLines, "\n")), &raw); err != nil {
			return nil, nil, nil, fmt.Errorf("parsing frontmatter: %w", err)
		}
		for key, val := range raw {
			if key == "variables" {
				list, ok := val.([]any)
				if !ok {
					return nil, nil, nil, fmt.Errorf("frontmatter %q must be a list", key)
				}
				for _, item := range list {
					entry, ok := item.(map[string]any)
					if !ok {
						continue
					}
					var pv PromptVariable
					if name, ok := entry["name"].(string); ok {
						pv.Name = name
					}
					if required, ok := entry["required"].(bool); ok {
						pv.Required = required
					}
					if def, ok := entry["default"].(string); ok {
						pv.Default = def
					}
					declared = append(declared, pv)
				}
				continue
			}
			if s, ok := val.(string); ok {
				defaults[key] = s
			}
		}
	}

	return declared, defaults, remainingLines(scanner), scanner.Err()
}

func remainingLines(scanner *bufio.Scanner) []byte {
	var b bytes.Buffer
	for scanner.Scan() {
		b.WriteString(scanner.Text())
		b.WriteString("\n")
	}
	return b.Bytes()
}

// LoadVarsFile reads a YAML file of string variable overrides, as passed
// via --vars-file.
func LoadVarsFile(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cliutil: reading vars file %s: %w", path, err)
	}
	var vars map[string]string
	if err := yaml.Unmarshal(raw, &vars); err != nil {
		return nil, fmt.Errorf("cliutil: parsing vars file %s: %w", path, err)
	}
	return vars, nil
}

// ParseVarFlags parses repeated "key=value" --var flags into a map.
func ParseVarFlags(items []string) (map[string]string, error) {
	out := make(map[string]string, len(items))
	for _, item := range items {
		parts := strings.SplitN(item, "=", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" {
			return nil, fmt.Errorf("invalid --var %q, expected key=value", item)
		}
		out[strings.TrimSpace(parts[0])] = parts[1]
	}
	return out, nil
}
