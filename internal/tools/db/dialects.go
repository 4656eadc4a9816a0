package db

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }
func (sqliteDialect) ListTablesQuery(pattern string) (string, []any) {
	if pattern == "" {
		pattern = "%"
	}
	return "SELECT name AS table_name, type FROM sqlite_master WHERE type IN ('table','view') AND name LIKE ?", []any{pattern}
}
func (sqliteDialect) DescribeQuery(table string) (string, []any) {
	return fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)), nil
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string { return "mysql" }
func (mysqlDialect) ListTablesQuery(pattern string) (string, []any) {
	if pattern == "" {
		pattern = "%"
	}
	return "SELECT table_schema, table_name, table_type FROM information_schema.tables WHERE table_name LIKE ?", []any{pattern}
}
func (mysqlDialect) DescribeQuery(table string) (string, []any) {
	return "SELECT column_name, column_type, is_nullable FROM information_schema.columns WHERE table_name = ?", []any{table}
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }
func (postgresDialect) ListTablesQuery(pattern string) (string, []any) {
	if pattern == "" {
		pattern = "%"
	}
	return "SELECT table_schema, table_name, table_type FROM information_schema.tables WHERE table_name LIKE $1", []any{pattern}
}
func (postgresDialect) DescribeQuery(table string) (string, []any) {
	return "SELECT column_name, data_type, is_nullable FROM information_schema.columns WHERE table_name = $1", []any{table}
}

// oracleDialect and verticaDialect describe the query shape the dispatcher
// would use; no Oracle or Vertica client driver is part of this build (see
// DESIGN.md), so their handlers are constructed with a permanent open
// error and never actually query.
type oracleDialect struct{}

func (oracleDialect) Name() string { return "oracle" }
func (oracleDialect) ListTablesQuery(pattern string) (string, []any) {
	return "SELECT owner, table_name FROM all_tables WHERE table_name LIKE :1", []any{pattern}
}
func (oracleDialect) DescribeQuery(table string) (string, []any) {
	return "SELECT column_name, data_type, nullable FROM all_tab_columns WHERE table_name = :1", []any{table}
}

type verticaDialect struct{}

func (verticaDialect) Name() string { return "vertica" }
func (verticaDialect) ListTablesQuery(pattern string) (string, []any) {
	return "SELECT table_schema, table_name FROM v_catalog.tables WHERE table_name ILIKE ?", []any{pattern}
}
func (verticaDialect) DescribeQuery(table string) (string, []any) {
	return "SELECT column_name, data_type, is_nullable FROM v_catalog.columns WHERE table_name = ?", []any{table}
}

func quoteIdent(s string) string { return "'" + s + "'" }

func NewSQLiteHandler(path string, readOnly, requireApproval bool) *Handler {
	database, err := sql.Open("sqlite3", path)
	return NewHandler(database, sqliteDialect{}, readOnly, requireApproval, err)
}

func NewMySQLHandler(dsn string, readOnly, requireApproval bool) *Handler {
	database, err := sql.Open("mysql", dsn)
	return NewHandler(database, mysqlDialect{}, readOnly, requireApproval, err)
}

func NewPostgresHandler(dsn string, readOnly, requireApproval bool) *Handler {
	database, err := sql.Open("postgres", dsn)
	return NewHandler(database, postgresDialect{}, readOnly, requireApproval, err)
}

func NewOracleHandler(dsn string, readOnly, requireApproval bool) *Handler {
	return NewHandler(nil, oracleDialect{}, readOnly, requireApproval,
		fmt.Errorf("oracle: no client driver registered in this build"))
}

func NewVerticaHandler(dsn string, readOnly, requireApproval bool) *Handler {
	return NewHandler(nil, verticaDialect{}, readOnly, requireApproval,
		fmt.Errorf("vertica: no client driver registered in this build"))
}

func MySQLDSNFromEnv() string {
	user := os.Getenv("MYSQL_USER")
	pass := os.Getenv("MYSQL_PASSWORD")
	host := os.Getenv("MYSQL_HOST")
	port := os.Getenv("MYSQL_PORT")
	if port == "" {
		port = "3306"
	}
	dbName := os.Getenv("MYSQL_DATABASE")
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s", user, pass, host, port, dbName)
}

func PostgresDSNFromEnv() string {
	host := os.Getenv("POSTGRES_HOST")
	port := os.Getenv("POSTGRES_PORT")
	if port == "" {
		port = "5432"
	}
	user := os.Getenv("POSTGRES_USER")
	pass := os.Getenv("POSTGRES_PASSWORD")
	dbName := os.Getenv("POSTGRES_DATABASE")
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable", host, port, user, pass, dbName)
}

func VerticaDSNFromEnv() string {
	return fmt.Sprintf("vertica://%s:%s@%s:%s/%s",
		os.Getenv("VERTICA_USER"), os.Getenv("VERTICA_PASSWORD"),
		os.Getenv("VERTICA_HOST"), os.Getenv("VERTICA_PORT"), os.Getenv("VERTICA_DATABASE"))
}
