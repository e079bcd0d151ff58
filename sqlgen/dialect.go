// Package sqlgen defines the SQL dialect contract shared by the statement
// and schema builders. A dialect captures the syntax differences between
// the supported storage engines: identifier quoting, auto-increment
// column syntax, upsert syntax, and which join types the engine accepts.
package sqlgen

import (
	"errors"
	"fmt"
)

// ErrUnsupported is returned when a builder is asked to emit a construct
// the selected dialect's engine cannot execute.
var ErrUnsupported = errors.New("sqlgen: unsupported for this dialect")

// JoinType enumerates the join variants the builder grammar accepts.
type JoinType string

const (
	InnerJoin     JoinType = "INNER JOIN"
	LeftJoin      JoinType = "LEFT JOIN"
	RightJoin     JoinType = "RIGHT JOIN"
	FullOuterJoin JoinType = "FULL OUTER JOIN"
)

// Dialect is implemented once per storage engine.
type Dialect interface {
	// Name identifies the dialect ("mysql" or "sqlite").
	Name() string
	// Quote quotes a table or column identifier.
	Quote(identifier string) string
	// AutoIncrement returns the column suffix that makes an integer
	// primary key auto-incrementing.
	AutoIncrement() string
	// UpsertPrefix rewrites the leading INSERT keyword for upserts, or
	// returns "" when the dialect appends a conflict clause instead.
	UpsertPrefix() string
	// UpsertSuffix returns the trailing conflict clause for upserts, or
	// "" when the dialect rewrites the INSERT keyword instead. columns
	// are the non-key columns to overwrite on conflict.
	UpsertSuffix(columns []string) string
	// SupportsJoin reports whether the engine can execute the join type.
	SupportsJoin(jt JoinType) bool
}

// New returns the dialect for the given engine name.
func New(name string) (Dialect, error) {
	switch name {
	case "mysql":
		return MySQL{}, nil
	case "sqlite", "sqlite3":
		return SQLite{}, nil
	default:
		return nil, fmt.Errorf("sqlgen: unknown dialect %q", name)
	}
}
