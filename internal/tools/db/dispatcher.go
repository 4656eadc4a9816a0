// Package db implements the read-only-enforcing SQL dispatcher shared by
// every database dialect handler (sqlite, mysql, postgres, oracle,
// vertica): one handler type per dialect, differing only in DSN/driver and
// a small set of dialect-specific list_tables/describe query templates.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/agentcore/coreagent/internal/agent"
	"github.com/agentcore/coreagent/pkg/models"
)

const defaultRowLimit = 100
const maxCellChars = 50

var mutationKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "CREATE", "ALTER", "TRUNCATE",
	"MERGE", "GRANT", "REVOKE", "EXEC", "EXECUTE", "CALL",
}

var blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
var lineCommentRe = regexp.MustCompile(`--[^\n]*`)
var whitespaceRe = regexp.MustCompile(`\s+`)

func buildKeywordRe(kw string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(kw) + `\b`)
}

var keywordRes = func() map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp, len(mutationKeywords))
	for _, kw := range mutationKeywords {
		m[kw] = buildKeywordRe(kw)
	}
	return m
}()

// IsReadOnlySQL strips comments and scans for any mutation keyword as a
// whole word, case-insensitive. It returns the first keyword matched.
func IsReadOnlySQL(sql string) (ok bool, keyword string) {
	stripped := blockCommentRe.ReplaceAllString(sql, " ")
	stripped = lineCommentRe.ReplaceAllString(stripped, " ")
	collapsed := whitespaceRe.ReplaceAllString(stripped, " ")
	for _, kw := range mutationKeywords {
		if keywordRes[kw].MatchString(collapsed) {
			return false, kw
		}
	}
	return true, ""
}

// Dialect supplies the small set of dialect-specific behavior the shared
// dispatcher needs: its canonical tool name and its list_tables/describe
// query templates.
type Dialect interface {
	Name() string
	ListTablesQuery(pattern string) (query string, args []any)
	DescribeQuery(table string) (query string, args []any)
}

// Handler is the per-dialect tool: a single registered name exposing
// query/list_tables/describe operations, enforcing read-only SQL unless
// configured for mutations.
type Handler struct {
	db               *sql.DB
	dialect          Dialect
	readOnly         bool
	requireApproval  bool
	openErr          error
}

func NewHandler(database *sql.DB, dialect Dialect, readOnly, requireApproval bool, openErr error) *Handler {
	return &Handler{db: database, dialect: dialect, readOnly: readOnly, requireApproval: requireApproval, openErr: openErr}
}

var _ agent.ToolHandler = (*Handler)(nil)

func (h *Handler) Name() string           { return h.dialect.Name() }
func (h *Handler) Description() string    { return fmt.Sprintf("Run SQL against the %s database.", h.dialect.Name()) }
func (h *Handler) RequiresApproval() bool { return h.requireApproval }

func (h *Handler) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"operation":  map[string]any{"type": "string", "enum": []string{"query", "list_tables", "describe"}},
			"sql":        map[string]any{"type": "string"},
			"pattern":    map[string]any{"type": "string"},
			"table":      map[string]any{"type": "string"},
			"row_limit":  map[string]any{"type": "integer"},
		},
		"required": []string{"operation"},
	}
}

func (h *Handler) Handle(ctx context.Context, inv models.ToolInvocation) (models.ToolOutput, error) {
	if h.openErr != nil {
		return models.ToolOutput{Success: false, Content: h.openErr.Error()}, nil
	}
	op, _ := inv.Arguments["operation"].(string)
	rowLimit := intArg(inv.Arguments, "row_limit", defaultRowLimit)

	switch op {
	case "query":
		query, _ := inv.Arguments["sql"].(string)
		return h.runQuery(ctx, query, rowLimit), nil
	case "list_tables":
		pattern, _ := inv.Arguments["pattern"].(string)
		query, args := h.dialect.ListTablesQuery(pattern)
		return h.runRaw(ctx, query, args, rowLimit), nil
	case "describe":
		table, _ := inv.Arguments["table"].(string)
		query, args := h.dialect.DescribeQuery(table)
		return h.runRaw(ctx, query, args, rowLimit), nil
	default:
		return models.ToolOutput{Success: false, Content: fmt.Sprintf("unknown operation: %s", op)}, nil
	}
}

func (h *Handler) runQuery(ctx context.Context, query string, rowLimit int) models.ToolOutput {
	if !h.readOnly {
		return h.runRaw(ctx, query, nil, rowLimit)
	}
	if ok, kw := IsReadOnlySQL(query); !ok {
		return models.ToolOutput{Success: false, Content: fmt.Sprintf("Query blocked: Query contains mutation keyword: %s", kw)}
	}
	return h.runRaw(ctx, query, nil, rowLimit)
}

func (h *Handler) runRaw(ctx context.Context, query string, args []any, rowLimit int) models.ToolOutput {
	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return models.ToolOutput{Success: false, Content: err.Error()}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return models.ToolOutput{Success: false, Content: err.Error()}
	}

	var records [][]string
	total := 0
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return models.ToolOutput{Success: false, Content: err.Error()}
		}
		total++
		if total > rowLimit {
			continue
		}
		row := make([]string, len(cols))
		for i, v := range raw {
			row[i] = formatCell(v)
		}
		records = append(records, row)
	}

	content := renderTable(cols, records, total, rowLimit)
	return models.ToolOutput{Success: true, Content: content, Metadata: map[string]any{"row_count": total}}
}

func formatCell(v any) string {
	if v == nil {
		return "NULL"
	}
	var s string
	switch t := v.(type) {
	case []byte:
		s = string(t)
	default:
		s = fmt.Sprintf("%v", t)
	}
	if len(s) > maxCellChars {
		s = s[:maxCellChars]
	}
	return s
}

// renderTable produces an ASCII table: header, "-+-" separator, rows
// left-padded to the longest value seen in the first rowLimit rows, with a
// "(N more rows)" footer when truncated.
func renderTable(cols []string, records [][]string, total, rowLimit int) string {
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = len(c)
	}
	for _, row := range records {
		for i, v := range row {
			if len(v) > widths[i] {
				widths[i] = len(v)
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = padRight(c, widths[i])
		}
		b.WriteString(strings.Join(parts, " | "))
		b.WriteString("\n")
	}
	writeRow(cols)
	sepParts := make([]string, len(cols))
	for i, w := range widths {
		sepParts[i] = strings.Repeat("-", w)
	}
	b.WriteString(strings.Join(sepParts, "-+-"))
	b.WriteString("\n")
	for _, row := range records {
		writeRow(row)
	}
	if total > rowLimit {
		fmt.Fprintf(&b, "... (%d more rows)\n", total-rowLimit)
	}
	return strings.TrimRight(b.String(), "\n")
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func intArg(args map[string]any, key string, def int) int {
	v, ok := args[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return def
}
