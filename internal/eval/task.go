// Package eval drives the same agent against benchmark tasks, each in its
// own ephemeral sandbox, with incremental JSONL result persistence and
// resume semantics.
package eval

import (
	"os"

	"gopkg.in/yaml.v3"
)

// TaskKind selects which sandbox/evaluator pairing a task uses.
type TaskKind string

const (
	KindSQLSelect   TaskKind = "sql_select"
	KindSQLMutation TaskKind = "sql_mutation"
	KindOS          TaskKind = "os"
)

// TaskSpec is one benchmark task, loaded from the suite's YAML file.
type TaskSpec struct {
	Index           int      `yaml:"index"`
	ID              string   `yaml:"id"`
	Kind            TaskKind `yaml:"kind"`
	Prompt          string   `yaml:"prompt"`
	MaxTurns        int      `yaml:"max_turns"`
	TableDDL        string   `yaml:"table_ddl,omitempty"`
	SeedSQL         []string `yaml:"seed_sql,omitempty"`
	ExpectedAnswer  string   `yaml:"expected_answer,omitempty"`
	AnswerMD5       string   `yaml:"answer_md5,omitempty"`
	HashColumns     []string `yaml:"hash_columns,omitempty"`
	HashTable       string   `yaml:"hash_table,omitempty"`
	Image           string   `yaml:"image,omitempty"`
	InitScript      string   `yaml:"init_script,omitempty"`
	InitFile        string   `yaml:"init_file,omitempty"`
	BackgroundCmd   string   `yaml:"background_cmd,omitempty"`
	Match           string   `yaml:"match,omitempty"`
	MatchRegex      bool     `yaml:"match_regex,omitempty"`
	CheckScripts    []string `yaml:"check_scripts,omitempty"`
}

// Suite is the full benchmark file: one list of tasks.
type Suite struct {
	Tasks []TaskSpec `yaml:"tasks"`
}

func LoadSuite(path string) (*Suite, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Suite
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// TaskResult is one JSON line of runs.jsonl.
type TaskResult struct {
	Index        int     `json:"index"`
	TaskID       string  `json:"task_id"`
	Success      bool    `json:"success"`
	SubmittedAnswer string `json:"submitted_answer,omitempty"`
	Error        string  `json:"error,omitempty"`
	DurationMS   int64   `json:"duration_ms"`
	Turns        int     `json:"turns"`
	TimedOut     bool    `json:"timed_out,omitempty"`
}
