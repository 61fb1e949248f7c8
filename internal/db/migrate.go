package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migration dialects, used as file name prefixes under migrations/.
const (
	DialectMySQL      = "mysql"
	DialectClickHouse = "clickhouse"
)

// Migrate applies every embedded migration of the dialect in file name order.
// Statements run one at a time since neither driver is configured for multi-statement exec.
// MySQL "duplicate key name" errors are ignored so re-running is safe.
func Migrate(ctx context.Context, dbx *sqlx.DB, dialect string) ([]string, error) {
	files, err := fs.Glob(migrationFS, "migrations/"+dialect+"_*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	var applied []string
	for _, f := range files {
		raw, err := migrationFS.ReadFile(f)
		if err != nil {
			return applied, fmt.Errorf("read %s: %w", f, err)
		}
		for _, stmt := range SplitStatements(string(raw)) {
			if _, err := dbx.ExecContext(ctx, stmt); err != nil {
				if isDuplicateIndex(err) {
					continue
				}
				return applied, fmt.Errorf("exec %s: %w", f, err)
			}
		}
		applied = append(applied, strings.TrimPrefix(f, "migrations/"))
	}
	return applied, nil
}

// SplitStatements splits a SQL script on ';' and drops blank statements and "--" comment lines.
// Semicolons inside string literals are not supported.
func SplitStatements(script string) []string {
	var b strings.Builder
	for _, line := range strings.Split(script, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	var out []string
	for _, s := range strings.Split(b.String(), ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func isDuplicateIndex(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1061
}
