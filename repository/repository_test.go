package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/lorekeep/lorekeep/executor"
	"github.com/lorekeep/lorekeep/schema"
	"github.com/lorekeep/lorekeep/sqlgen"
)

// newTestExecutor opens a throwaway embedded database with the full
// schema applied.
func newTestExecutor(t *testing.T) (*executor.Executor, sqlgen.Dialect) {
	t.Helper()
	exec, dialect := newBareExecutor(t)
	require.NoError(t, schema.Migrate(context.Background(), exec, dialect))
	return exec, dialect
}

// newBareExecutor opens a throwaway embedded database with no tables,
// for exercising degraded reads.
func newBareExecutor(t *testing.T) (*executor.Executor, sqlgen.Dialect) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "repository.db")
	db, err := sql.Open("sqlite3", "file:"+path+"?_busy_timeout=5000&_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	exec, err := executor.New(db, 2)
	require.NoError(t, err)
	t.Cleanup(exec.Close)

	dialect, err := sqlgen.New("sqlite")
	require.NoError(t, err)
	return exec, dialect
}
