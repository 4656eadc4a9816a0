package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentcore/coreagent/pkg/models"
)

// runOptions collects every root-command flag into one value passed to
// runAgent, mirroring the flags enumerated for the CLI surface.
type runOptions struct {
	model         string
	baseURL       string
	system        string
	promptFile    string
	vars          []string
	varsFile      string
	output        string
	workingDir    string
	autoApprove   bool
	resume        string
	list          bool
	previewLines  int
	profileName   string
	shellMode     string
	fileWriteMode string
}

func buildRootCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "agentcli [prompt]",
		Short: "Run a tool-using LLM agent, one-shot or interactively",
		Long: `agentcli drives a streaming model<->tool<->model loop against an
OpenAI-compatible chat-completions endpoint.

With a positional prompt argument it runs one turn and exits. Without one
it starts an interactive REPL with /approve, /compact, /help, /clear and
exit/quit slash commands.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var oneShot string
			if len(args) == 1 {
				oneShot = args[0]
			}
			return runAgent(cmd, opts, oneShot)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.model, "model", "m", "", "Model name (default: $OPENAI_MODEL)")
	flags.StringVar(&opts.baseURL, "base-url", "", "Chat-completions base URL (default: $OPENAI_BASE_URL)")
	flags.StringVarP(&opts.system, "system", "s", "", "Raw system prompt text")
	flags.StringVarP(&opts.promptFile, "prompt", "p", "", "Markdown prompt file with YAML frontmatter variables")
	flags.StringArrayVar(&opts.vars, "var", nil, "Prompt template variable (key=value, repeatable)")
	flags.StringVar(&opts.varsFile, "vars-file", "", "YAML file of prompt template variables")
	flags.StringVarP(&opts.output, "output", "o", "", "Write the final assistant text to this file (refuses if it exists)")
	flags.StringVarP(&opts.workingDir, "working-dir", "w", "", "Working directory tools resolve paths under (default: cwd)")
	flags.BoolVarP(&opts.autoApprove, "auto-approve", "y", false, "Approve every tool call without prompting")
	flags.StringVarP(&opts.resume, "resume", "r", "", "Resume a persisted conversation by session ID, or \"latest\"")
	flags.BoolVarP(&opts.list, "list", "l", false, "List persisted conversations and exit")
	flags.IntVar(&opts.previewLines, "preview-lines", 20, "Tool output lines shown in the REPL before truncation")
	flags.StringVar(&opts.profileName, "profile", "readonly", "Capability profile: readonly, developer, eval, or a name under ~/.config/agentcore/profiles")
	flags.StringVar(&opts.shellMode, "shell-mode", "", "Override the profile's shell mode: restricted or unrestricted")
	flags.StringVar(&opts.fileWriteMode, "file-write-mode", "", "Override the profile's file write mode: off, create_only, or full")

	cmd.AddCommand(buildEvalCmd())
	cmd.AddCommand(buildSessionsCmd())
	return cmd
}

// buildSessionsCmd is a Go-idiomatic stand-in for the telemetry store's
// Streamlit dashboard: list/show/stats/cost read the same SQLite file
// RO_AGENT_TELEMETRY_DB points the agent loop's SQLExporter at.
func buildSessionsCmd() *cobra.Command {
	var dbPath string

	root := &cobra.Command{
		Use:   "sessions",
		Short: "Query recorded session telemetry (read-only)",
	}
	root.PersistentFlags().StringVar(&dbPath, "db", "", "Telemetry SQLite path (default: $RO_AGENT_TELEMETRY_DB or the profile default)")

	var teamID, projectID, status string
	var limit, offset int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsList(cmd, dbPath, models.SessionFilter{
				TeamID: teamID, ProjectID: projectID, Status: status, Limit: limit, Offset: offset,
			})
		},
	}
	listCmd.Flags().StringVar(&teamID, "team", "", "Filter by team ID")
	listCmd.Flags().StringVar(&projectID, "project", "", "Filter by project ID")
	listCmd.Flags().StringVar(&status, "status", "", "Filter by status (e.g. active, completed)")
	listCmd.Flags().IntVar(&limit, "limit", 50, "Maximum rows returned")
	listCmd.Flags().IntVar(&offset, "offset", 0, "Row offset for paging")

	showCmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show one session's turns and tool executions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsShow(cmd, dbPath, args[0])
		},
	}

	var statsDays int
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show tool usage statistics over a lookback window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsStats(cmd, dbPath, models.SessionFilter{TeamID: teamID, ProjectID: projectID, Days: statsDays})
		},
	}
	statsCmd.Flags().StringVar(&teamID, "team", "", "Filter by team ID")
	statsCmd.Flags().StringVar(&projectID, "project", "", "Filter by project ID")
	statsCmd.Flags().IntVar(&statsDays, "days", 30, "Lookback window in days")

	var costDays int
	costCmd := &cobra.Command{
		Use:   "cost",
		Short: "Show token/tool-call cost summary grouped by team and project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsCost(cmd, dbPath, models.SessionFilter{TeamID: teamID, ProjectID: projectID, Days: costDays})
		},
	}
	costCmd.Flags().StringVar(&teamID, "team", "", "Filter by team ID")
	costCmd.Flags().StringVar(&projectID, "project", "", "Filter by project ID")
	costCmd.Flags().IntVar(&costDays, "days", 30, "Lookback window in days")

	root.AddCommand(listCmd, showCmd, statsCmd, costCmd)
	return root
}

func buildEvalCmd() *cobra.Command {
	var (
		suitePath string
		runsPath  string
		overallPath string
		summaryPath string
		resume      bool
		flexTimeouts bool
		model     string
		baseURL   string
	)
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Run a benchmark task suite against the agent loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			if suitePath == "" {
				return fmt.Errorf("--suite is required")
			}
			return runEval(cmd, evalOptions{
				suitePath:    suitePath,
				runsPath:     runsPath,
				overallPath:  overallPath,
				summaryPath:  summaryPath,
				resume:       resume,
				flexTimeouts: flexTimeouts,
				model:        model,
				baseURL:      baseURL,
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&suitePath, "suite", "", "Path to the task suite YAML file")
	flags.StringVar(&runsPath, "runs", "runs.jsonl", "Incremental JSONL results path")
	flags.StringVar(&overallPath, "overall", "overall.json", "Aggregate results path")
	flags.StringVar(&summaryPath, "summary", "summary.txt", "Human-readable summary path")
	flags.BoolVar(&resume, "resume", false, "Skip tasks already present in --runs")
	flags.BoolVar(&flexTimeouts, "flex-timeouts", false, "Use the longer flex-tier turn timeout")
	flags.StringVarP(&model, "model", "m", "", "Model name (default: $OPENAI_MODEL)")
	flags.StringVar(&baseURL, "base-url", "", "Chat-completions base URL (default: $OPENAI_BASE_URL)")
	return cmd
}
