package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
	DriverMemory   = "memory"
)

// dialect hides the few places where postgres and sqlite disagree.
type dialect interface {
	name() string
	schema() string
	// inList renders "col IN (...)" with placeholders numbered from next.
	inList(col string, next int, ids []int64) (string, []interface{})
	isUniqueViolation(err error) bool
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverPostgres:
		return postgresDialect{}, nil
	case DriverSQLite:
		return sqliteDialect{}, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

type postgresDialect struct{}

func (postgresDialect) name() string   { return DriverPostgres }
func (postgresDialect) schema() string { return PostgresSchema }

func (postgresDialect) inList(col string, next int, ids []int64) (string, []interface{}) {
	return fmt.Sprintf("%s = ANY($%d)", col, next), []interface{}{pq.Array(ids)}
}

func (postgresDialect) isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

type sqliteDialect struct{}

func (sqliteDialect) name() string   { return DriverSQLite }
func (sqliteDialect) schema() string { return SQLiteSchema }

// sqlite numbers "$n" parameters by first appearance, so the placeholders
// here must continue the sequence used by the rest of the statement.
func (sqliteDialect) inList(col string, next int, ids []int64) (string, []interface{}) {
	if len(ids) == 0 {
		return "1 = 0", nil
	}
	marks := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		marks[i] = fmt.Sprintf("$%d", next+i)
		args[i] = id
	}
	return fmt.Sprintf("%s IN (%s)", col, strings.Join(marks, ", ")), args
}

func (sqliteDialect) isUniqueViolation(err error) bool {
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) {
		return sqErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
