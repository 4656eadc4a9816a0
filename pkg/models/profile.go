package models

// ShellMode controls which shell tool variant the capability factory builds.
type ShellMode string

const (
	ShellRestricted   ShellMode = "restricted"
	ShellUnrestricted ShellMode = "unrestricted"
)

// FileWriteMode controls whether and how the write tool is registered.
type FileWriteMode string

const (
	FileWriteOff        FileWriteMode = "off"
	FileWriteCreateOnly FileWriteMode = "create_only"
	FileWriteFull       FileWriteMode = "full"
)

// DatabaseMode controls whether DB handlers enforce read-only SQL.
type DatabaseMode string

const (
	DatabaseReadOnly  DatabaseMode = "readonly"
	DatabaseMutations DatabaseMode = "mutations"
)

// ApprovalMode controls the default approval policy across all tools.
type ApprovalMode string

const (
	ApprovalAll       ApprovalMode = "all"
	ApprovalDangerous ApprovalMode = "dangerous"
	ApprovalGranular  ApprovalMode = "granular"
	ApprovalNone      ApprovalMode = "none"
)

// CapabilityProfile is a typed bundle of capability modes that configures
// which tools exist and which invocations need human approval.
type CapabilityProfile struct {
	Name                  string        `yaml:"name" json:"name"`
	Shell                 ShellMode     `yaml:"shell" json:"shell"`
	FileWrite             FileWriteMode `yaml:"file_write" json:"file_write"`
	Database              DatabaseMode  `yaml:"database" json:"database"`
	Approval              ApprovalMode  `yaml:"approval" json:"approval"`
	ApprovalRequiredTools []string      `yaml:"approval_required_tools,omitempty" json:"approval_required_tools,omitempty"`
	DangerousPatterns     []string      `yaml:"dangerous_patterns,omitempty" json:"dangerous_patterns,omitempty"`
	ShellTimeoutSeconds   int           `yaml:"shell_timeout_s,omitempty" json:"shell_timeout_s,omitempty"`
	ShellWorkingDir       string        `yaml:"shell_working_dir,omitempty" json:"shell_working_dir,omitempty"`
}

// dangerousToolsByDefault is the "dangerous" approval mode's fixed tool set.
var dangerousToolsByDefault = map[string]bool{
	"bash": true, "write": true, "edit": true,
	"oracle": true, "mysql": true, "sqlite": true, "vertica": true, "postgres": true,
}

// RequiresToolApproval resolves whether a given tool name requires approval
// under this profile's approval mode.
func (p *CapabilityProfile) RequiresToolApproval(name string) bool {
	switch p.Approval {
	case ApprovalNone:
		return false
	case ApprovalAll:
		return true
	case ApprovalDangerous:
		return dangerousToolsByDefault[name]
	case ApprovalGranular:
		for _, t := range p.ApprovalRequiredTools {
			if t == name {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// DefaultDangerousPatterns are the built-in substrings/regexes that the
// Approval Policy (C5) checks against tool argument text regardless of the
// profile's tool-level approval decision.
var DefaultDangerousPatterns = []string{
	"rm -rf",
	"rm -r",
	"DROP TABLE",
	"DROP DATABASE",
	"TRUNCATE",
	"DELETE FROM",
	"> /dev/",
	":(){ :|:& };:",
	"mkfs",
	"dd if=",
}

// ReadonlyProfile is the "readonly" preset.
func ReadonlyProfile() *CapabilityProfile {
	return &CapabilityProfile{
		Name:                "readonly",
		Shell:               ShellRestricted,
		FileWrite:           FileWriteOff,
		Database:            DatabaseReadOnly,
		Approval:            ApprovalDangerous,
		DangerousPatterns:   DefaultDangerousPatterns,
		ShellTimeoutSeconds: 120,
	}
}

// DeveloperProfile is the "developer" preset.
func DeveloperProfile() *CapabilityProfile {
	return &CapabilityProfile{
		Name:                "developer",
		Shell:               ShellUnrestricted,
		FileWrite:           FileWriteFull,
		Database:            DatabaseMutations,
		Approval:            ApprovalGranular,
		DangerousPatterns:   DefaultDangerousPatterns,
		ShellTimeoutSeconds: 300,
	}
}

// EvalProfile is the "eval" preset: everything runs unattended, no approval
// prompts, but shell stays restricted and DB stays read-only by default.
func EvalProfile() *CapabilityProfile {
	return &CapabilityProfile{
		Name:                "eval",
		Shell:               ShellRestricted,
		FileWrite:           FileWriteCreateOnly,
		Database:            DatabaseReadOnly,
		Approval:            ApprovalNone,
		DangerousPatterns:   DefaultDangerousPatterns,
		ShellTimeoutSeconds: 120,
	}
}

// LoadProfilePreset resolves one of the three named presets.
func LoadProfilePreset(name string) *CapabilityProfile {
	switch name {
	case "developer":
		return DeveloperProfile()
	case "eval":
		return EvalProfile()
	default:
		return ReadonlyProfile()
	}
}
