// Package repository exposes one aggregate-scoped facade per persisted
// type. Every public operation is asynchronous and resolves a future;
// nothing here ever panics or throws into the caller.
//
// Read operations degrade on storage failure: the error is logged with
// operation context and the future resolves to an empty, zero, or false
// value. The versioning transitions (Submit, Approve, Reject,
// NewDraftVersion) are the exception and propagate their errors, so
// content-integrity failures are never swallowed.
package repository

import (
	"github.com/lorekeep/lorekeep/executor"
	"github.com/lorekeep/lorekeep/internal/debug"
	"github.com/lorekeep/lorekeep/sqlgen"
)

// Repositories share the executor and dialect; they never touch the
// connection provider directly.
type base struct {
	exec    *executor.Executor
	dialect sqlgen.Dialect
}

// degrade converts a failed future into a resolved zero value, logging
// the failure with its operation context. Used on every read path.
func degrade[T any](op, key string, f *executor.Future[T]) *executor.Future[T] {
	return executor.Go(func() (T, error) {
		value, err := f.Get()
		if err != nil {
			debug.Error("operation degraded to empty result", "op", op, "key", key, "err", err)
			var zero T
			return zero, nil
		}
		return value, nil
	})
}
