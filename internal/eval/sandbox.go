package eval

import (
	"context"
	"crypto/md5"
	"database/sql"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/mattn/go-sqlite3"
)

// Sandbox is an ephemeral per-task execution environment. Close releases
// every resource it holds deterministically. Each concrete sandbox also
// exposes its own Tools() method (signatures differ per kind, since each
// carries its own submit-answer handle back to the harness); the harness
// calls each kind's constructor and Tools method directly.
type Sandbox interface {
	Close(ctx context.Context) error
}

// SQLiteSandbox creates a fresh on-disk SQLite database from a task's
// table spec for SELECT-only benchmarks.
type SQLiteSandbox struct {
	path string
	db   *sql.DB
}

func NewSQLiteSandbox(ctx context.Context, spec TaskSpec) (*SQLiteSandbox, error) {
	f, err := os.CreateTemp("", "eval-*.sqlite")
	if err != nil {
		return nil, err
	}
	path := f.Name()
	f.Close()

	database, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if spec.TableDDL != "" {
		if _, err := database.ExecContext(ctx, spec.TableDDL); err != nil {
			return nil, fmt.Errorf("eval: creating table: %w", err)
		}
	}
	for _, stmt := range spec.SeedSQL {
		if _, err := database.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("eval: seeding data: %w", err)
		}
	}
	return &SQLiteSandbox{path: path, db: database}, nil
}

func (s *SQLiteSandbox) DB() *sql.DB { return s.db }

func (s *SQLiteSandbox) Close(ctx context.Context) error {
	err := s.db.Close()
	_ = os.Remove(s.path)
	return err
}

// TableHash computes MD5(sorted per-row SUBSTR(MD5(CONCAT_WS(',', cols)),1,5))
// for the mutation-benchmark comparator.
func TableHash(ctx context.Context, database *sql.DB, table string, cols []string) (string, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), table)
	rows, err := database.QueryContext(ctx, query)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var rowHashes []string
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return "", err
		}
		parts := make([]string, len(vals))
		for i, v := range vals {
			parts[i] = fmt.Sprintf("%v", v)
		}
		concat := strings.Join(parts, ",")
		h := fmt.Sprintf("%x", md5.Sum([]byte(concat)))
		rowHashes = append(rowHashes, h[:5])
	}
	sort.Strings(rowHashes)
	final := fmt.Sprintf("%x", md5.Sum([]byte(strings.Join(rowHashes, ""))))
	return final, nil
}

// MySQLContainerSandbox starts (or reuses) a long-lived MySQL container and
// isolates each task in its own freshly created database, with SQL running
// via container-exec (no port exposure), per the docker-exec Open Question
// decision.
type MySQLContainerSandbox struct {
	container testcontainers.Container
	dbName    string
}

// mysqlContainerPool is shared across tasks in a run; each task gets a
// distinct database name to isolate writes within the one container.
var mysqlContainerPool testcontainers.Container

func AcquireMySQLContainer(ctx context.Context) (testcontainers.Container, error) {
	if mysqlContainerPool != nil {
		return mysqlContainerPool, nil
	}
	req := testcontainers.ContainerRequest{
		Image:        "mysql:8",
		Env:          map[string]string{"MYSQL_ROOT_PASSWORD": "eval"},
		WaitingFor:   wait.ForLog("ready for connections").WithOccurrence(2),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, err
	}
	mysqlContainerPool = c
	return c, nil
}

func NewMySQLContainerSandbox(ctx context.Context, spec TaskSpec, dbName string) (*MySQLContainerSandbox, error) {
	c, err := AcquireMySQLContainer(ctx)
	if err != nil {
		return nil, err
	}
	sandbox := &MySQLContainerSandbox{container: c, dbName: dbName}
	// The task database does not exist yet, so it is created with the
	// built-in mysql database selected instead.
	admin := &MySQLContainerSandbox{container: c, dbName: "mysql"}
	if err := admin.execSQL(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", dbName)); err != nil {
		return nil, err
	}
	if spec.TableDDL != "" {
		if err := sandbox.execSQL(ctx, spec.TableDDL); err != nil {
			return nil, err
		}
	}
	for _, stmt := range spec.SeedSQL {
		if err := sandbox.execSQL(ctx, stmt); err != nil {
			return nil, err
		}
	}
	return sandbox, nil
}

func (s *MySQLContainerSandbox) execSQL(ctx context.Context, sql string) error {
	_, err := s.execSQLOutput(ctx, sql)
	return err
}

// execSQLOutput runs sql via mysql -e and returns its stdout, trimmed.
func (s *MySQLContainerSandbox) execSQLOutput(ctx context.Context, sql string) (string, error) {
	cmd := []string{"mysql", "-uroot", "-peval", "-N", "-B", s.dbName, "-e", sql}
	code, reader, err := s.container.Exec(ctx, cmd)
	if err != nil {
		return "", err
	}
	var output string
	if reader != nil {
		buf := make([]byte, 1<<16)
		n, _ := reader.Read(buf)
		output = strings.TrimSpace(string(buf[:n]))
	}
	if code != 0 {
		return output, fmt.Errorf("eval: mysql exec exited %d", code)
	}
	return output, nil
}

func (s *MySQLContainerSandbox) Close(ctx context.Context) error {
	return s.execSQL(ctx, fmt.Sprintf("DROP DATABASE IF EXISTS `%s`", s.dbName))
}

// OSContainerSandbox runs an OS benchmark: a fresh container from the
// task's image, optionally running the task's InitScript and a background
// service. The task's InitFile is not used.
type OSContainerSandbox struct {
	container testcontainers.Container
}

func NewOSContainerSandbox(ctx context.Context, spec TaskSpec) (*OSContainerSandbox, error) {
	req := testcontainers.ContainerRequest{
		Image:      spec.Image,
		Cmd:        []string{"sleep", "infinity"},
		WaitingFor: wait.ForLog("").WithStartupTimeout(0),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, err
	}
	sandbox := &OSContainerSandbox{container: c}

	if spec.InitScript != "" {
		if _, _, err := c.Exec(ctx, []string{"sh", "-c", spec.InitScript}); err != nil {
			return nil, err
		}
	}
	if spec.BackgroundCmd != "" {
		go func() { _, _, _ = c.Exec(ctx, []string{"sh", "-c", spec.BackgroundCmd}) }()
	}
	return sandbox, nil
}

func (s *OSContainerSandbox) Exec(ctx context.Context, cmd []string) (int, string, error) {
	code, reader, err := s.container.Exec(ctx, cmd)
	if err != nil {
		return -1, "", err
	}
	buf := make([]byte, 64<<10)
	n, _ := reader.Read(buf)
	return code, string(buf[:n]), nil
}

func (s *OSContainerSandbox) Close(ctx context.Context) error {
	return s.container.Terminate(ctx)
}
