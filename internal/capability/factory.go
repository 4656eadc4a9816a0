// Package capability builds a tool Registry from a CapabilityProfile.
package capability

import (
	"os"

	"github.com/agentcore/coreagent/internal/agent"
	"github.com/agentcore/coreagent/internal/tools/db"
	"github.com/agentcore/coreagent/internal/tools/exec"
	"github.com/agentcore/coreagent/internal/tools/files"
	"github.com/agentcore/coreagent/pkg/models"
)

// BuildRegistry constructs a Registry populated according to profile: always
// registers the read-only file/search tools, then the shell, write, edit,
// and DB handlers gated by the profile's typed modes and, for DB handlers,
// the presence of the corresponding environment variable group.
func BuildRegistry(profile *models.CapabilityProfile, workDir string) *agent.Registry {
	reg := agent.NewRegistry()
	resolver := files.NewResolver(workDir)

	reg.Register(files.NewReadTool(resolver))
	reg.Register(files.NewGlobTool(resolver))
	reg.Register(files.NewGrepTool(resolver))
	reg.Register(files.NewListTool(resolver))

	shellApproval := profile.RequiresToolApproval("bash")
	reg.Register(exec.NewShellTool(exec.ShellConfig{
		Restricted:   profile.Shell == models.ShellRestricted,
		WorkingDir:   profile.ShellWorkingDir,
		TimeoutSecs:  profile.ShellTimeoutSeconds,
		RequireApprove: shellApproval,
	}))

	switch profile.FileWrite {
	case models.FileWriteOff:
		// not registered
	case models.FileWriteCreateOnly:
		reg.Register(files.NewWriteTool(resolver, files.WriteConfig{
			CreateOnly:       true,
			RequireApproval: profile.RequiresToolApproval("write"),
		}))
	case models.FileWriteFull:
		reg.Register(files.NewWriteTool(resolver, files.WriteConfig{
			CreateOnly:      false,
			RequireApproval: false,
		}))
		reg.Register(files.NewEditTool(resolver, profile.RequiresToolApproval("edit")))
	}

	readOnly := profile.Database == models.DatabaseReadOnly
	if dsn := os.Getenv("SQLITE_DB"); dsn != "" {
		reg.Register(db.NewSQLiteHandler(dsn, readOnly, profile.RequiresToolApproval("sqlite")))
	}
	if host := os.Getenv("MYSQL_HOST"); host != "" {
		reg.Register(db.NewMySQLHandler(db.MySQLDSNFromEnv(), readOnly, profile.RequiresToolApproval("mysql")))
	}
	if host := os.Getenv("POSTGRES_HOST"); host != "" {
		reg.Register(db.NewPostgresHandler(db.PostgresDSNFromEnv(), readOnly, profile.RequiresToolApproval("postgres")))
	}
	if dsn := os.Getenv("ORACLE_DSN"); dsn != "" {
		reg.Register(db.NewOracleHandler(dsn, readOnly, profile.RequiresToolApproval("oracle")))
	}
	if host := os.Getenv("VERTICA_HOST"); host != "" {
		reg.Register(db.NewVerticaHandler(db.VerticaDSNFromEnv(), readOnly, profile.RequiresToolApproval("vertica")))
	}

	return reg
}
