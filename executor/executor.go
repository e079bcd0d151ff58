// Package executor runs built statements against a storage engine off
// the caller's goroutine and maps result rows onto typed records.
//
// Every operation returns a Future immediately; the work itself runs on
// a bounded worker pool. Callers sequence dependent operations either by
// waiting on futures or, for invariant-preserving multi-statement work,
// by running everything inside one InTransaction unit.
package executor

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/lorekeep/lorekeep/builder"
	"github.com/lorekeep/lorekeep/internal/debug"
)

// Executor owns the worker pool. It does not own the *sql.DB; shutdown
// of the connection provider is the manager's job and happens after the
// pool drains.
type Executor struct {
	db        *sql.DB
	pool      *ants.Pool
	closeOnce sync.Once
}

// New creates an executor with the given number of workers.
func New(db *sql.DB, workers int) (*Executor, error) {
	if workers < 1 {
		workers = 4
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("executor: %w", err)
	}
	return &Executor{db: db, pool: pool}, nil
}

// Close releases the worker pool. Idempotent.
func (e *Executor) Close() {
	e.closeOnce.Do(func() {
		e.pool.Release()
	})
}

// submit schedules run on the pool; onRejected fires if the pool has
// already been released.
func (e *Executor) submit(run func(), onRejected func(error)) {
	if err := e.pool.Submit(run); err != nil {
		debug.Warn("task rejected by worker pool", "err", err)
		onRejected(fmt.Errorf("%w: %v", ErrExecution, err))
	}
}

func buildStatement(st *builder.Statement) (string, []interface{}, error) {
	sqlText, err := st.Build()
	if err != nil {
		return "", nil, err
	}
	return sqlText, st.Params(), nil
}

// QueryOne executes st and maps the first row onto a new T. The future
// resolves to nil when no row matches.
func QueryOne[T any](e *Executor, ctx context.Context, st *builder.Statement) *Future[*T] {
	f := newFuture[*T]()
	e.submit(func() {
		sqlText, params, err := buildStatement(st)
		if err != nil {
			f.complete(nil, err)
			return
		}
		rows, err := e.db.QueryContext(ctx, sqlText, params...)
		if err != nil {
			f.complete(nil, execError(err, sqlText, params))
			return
		}
		defer rows.Close()

		record, err := scanFirst[T](rows, sqlText)
		f.complete(record, err)
	}, func(err error) { f.complete(nil, err) })
	return f
}

// QueryMany executes st and maps every row onto a T.
func QueryMany[T any](e *Executor, ctx context.Context, st *builder.Statement) *Future[[]T] {
	f := newFuture[[]T]()
	e.submit(func() {
		sqlText, params, err := buildStatement(st)
		if err != nil {
			f.complete(nil, err)
			return
		}
		rows, err := e.db.QueryContext(ctx, sqlText, params...)
		if err != nil {
			f.complete(nil, execError(err, sqlText, params))
			return
		}
		defer rows.Close()

		records, err := scanAll[T](rows, sqlText)
		f.complete(records, err)
	}, func(err error) { f.complete(nil, err) })
	return f
}

// QueryScalar executes st and scans the single value of the single row,
// for COUNT and similar aggregates. No row resolves to the zero value.
func QueryScalar[T any](e *Executor, ctx context.Context, st *builder.Statement) *Future[T] {
	f := newFuture[T]()
	e.submit(func() {
		var zero T
		sqlText, params, err := buildStatement(st)
		if err != nil {
			f.complete(zero, err)
			return
		}
		var value T
		err = e.db.QueryRowContext(ctx, sqlText, params...).Scan(&value)
		if err == sql.ErrNoRows {
			f.complete(zero, nil)
			return
		}
		if err != nil {
			f.complete(zero, execError(err, sqlText, params))
			return
		}
		f.complete(value, nil)
	}, func(err error) {
		var zero T
		f.complete(zero, err)
	})
	return f
}

// ExecUpdate executes st and resolves to the affected-row count.
func (e *Executor) ExecUpdate(ctx context.Context, st *builder.Statement) *Future[int64] {
	f := newFuture[int64]()
	e.submit(func() {
		sqlText, params, err := buildStatement(st)
		if err != nil {
			f.complete(0, err)
			return
		}
		result, err := e.db.ExecContext(ctx, sqlText, params...)
		if err != nil {
			f.complete(0, execError(err, sqlText, params))
			return
		}
		affected, _ := result.RowsAffected()
		f.complete(affected, nil)
	}, func(err error) { f.complete(0, err) })
	return f
}

// ExecInsert executes st and resolves to the generated key.
func (e *Executor) ExecInsert(ctx context.Context, st *builder.Statement) *Future[int64] {
	f := newFuture[int64]()
	e.submit(func() {
		sqlText, params, err := buildStatement(st)
		if err != nil {
			f.complete(0, err)
			return
		}
		result, err := e.db.ExecContext(ctx, sqlText, params...)
		if err != nil {
			f.complete(0, execError(err, sqlText, params))
			return
		}
		id, err := result.LastInsertId()
		if err != nil {
			f.complete(0, execError(err, sqlText, params))
			return
		}
		f.complete(id, nil)
	}, func(err error) { f.complete(0, err) })
	return f
}

// ExecBatch executes the statements in order on one connection and
// resolves to the per-statement affected-row counts. The first failure
// fails the whole batch.
func (e *Executor) ExecBatch(ctx context.Context, statements []*builder.Statement) *Future[[]int64] {
	f := newFuture[[]int64]()
	e.submit(func() {
		conn, err := e.db.Conn(ctx)
		if err != nil {
			f.complete(nil, execError(err, "batch", nil))
			return
		}
		defer conn.Close()

		counts := make([]int64, 0, len(statements))
		for _, st := range statements {
			sqlText, params, err := buildStatement(st)
			if err != nil {
				f.complete(nil, err)
				return
			}
			result, err := conn.ExecContext(ctx, sqlText, params...)
			if err != nil {
				f.complete(nil, execError(err, sqlText, params))
				return
			}
			affected, _ := result.RowsAffected()
			counts = append(counts, affected)
		}
		f.complete(counts, nil)
	}, func(err error) { f.complete(nil, err) })
	return f
}

// ExecRaw executes pre-built statement text, used for DDL.
func (e *Executor) ExecRaw(ctx context.Context, sqlText string, params ...interface{}) *Future[int64] {
	f := newFuture[int64]()
	e.submit(func() {
		result, err := e.db.ExecContext(ctx, sqlText, params...)
		if err != nil {
			f.complete(0, execError(err, sqlText, params))
			return
		}
		affected, _ := result.RowsAffected()
		f.complete(affected, nil)
	}, func(err error) { f.complete(0, err) })
	return f
}

// InTransaction runs fn inside one transaction on one dedicated
// connection: autocommit is suspended for the connection, fn runs its
// statements through the Tx helpers, and the transaction commits on nil
// error or rolls back otherwise. The connection returns to the provider
// with autocommit restored regardless of outcome.
func InTransaction[T any](e *Executor, ctx context.Context, fn func(tx *sql.Tx) (T, error)) *Future[T] {
	f := newFuture[T]()
	e.submit(func() {
		var zero T
		conn, err := e.db.Conn(ctx)
		if err != nil {
			f.complete(zero, execError(err, "begin transaction", nil))
			return
		}
		defer conn.Close()

		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			f.complete(zero, execError(err, "begin transaction", nil))
			return
		}

		result, err := fn(tx)
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				debug.Error("rollback failed", "err", rbErr)
			}
			f.complete(zero, err)
			return
		}
		if err := tx.Commit(); err != nil {
			f.complete(zero, execError(err, "commit", nil))
			return
		}
		f.complete(result, nil)
	}, func(err error) {
		var zero T
		f.complete(zero, err)
	})
	return f
}

// TxExec builds and executes st on tx, returning the affected-row count.
func TxExec(ctx context.Context, tx *sql.Tx, st *builder.Statement) (int64, error) {
	sqlText, params, err := buildStatement(st)
	if err != nil {
		return 0, err
	}
	result, err := tx.ExecContext(ctx, sqlText, params...)
	if err != nil {
		return 0, execError(err, sqlText, params)
	}
	affected, _ := result.RowsAffected()
	return affected, nil
}

// TxInsert builds and executes st on tx, returning the generated key.
func TxInsert(ctx context.Context, tx *sql.Tx, st *builder.Statement) (int64, error) {
	sqlText, params, err := buildStatement(st)
	if err != nil {
		return 0, err
	}
	result, err := tx.ExecContext(ctx, sqlText, params...)
	if err != nil {
		return 0, execError(err, sqlText, params)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, execError(err, sqlText, params)
	}
	return id, nil
}

// TxQueryOne builds and executes st on tx and maps the first row, nil
// when no row matches.
func TxQueryOne[T any](ctx context.Context, tx *sql.Tx, st *builder.Statement) (*T, error) {
	sqlText, params, err := buildStatement(st)
	if err != nil {
		return nil, err
	}
	rows, err := tx.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return nil, execError(err, sqlText, params)
	}
	defer rows.Close()
	return scanFirst[T](rows, sqlText)
}

func scanFirst[T any](rows *sql.Rows, sqlText string) (*T, error) {
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, execError(err, sqlText, nil)
		}
		return nil, nil
	}
	columns, err := rows.Columns()
	if err != nil {
		return nil, execError(err, sqlText, nil)
	}
	var record T
	if err := scanStruct(rows, columns, reflect.ValueOf(&record).Elem()); err != nil {
		return nil, mapError(err, sqlText)
	}
	return &record, nil
}

func scanAll[T any](rows *sql.Rows, sqlText string) ([]T, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, execError(err, sqlText, nil)
	}
	var records []T
	for rows.Next() {
		var record T
		if err := scanStruct(rows, columns, reflect.ValueOf(&record).Elem()); err != nil {
			return nil, mapError(err, sqlText)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, execError(err, sqlText, nil)
	}
	return records, nil
}
