package executor

import (
	"errors"
	"fmt"

	"github.com/lorekeep/lorekeep/internal/debug"
)

// ErrExecution wraps every storage-engine failure: unreachable engine,
// syntax errors, constraint violations. Callers can treat it as "the
// engine or the statement is bad".
var ErrExecution = errors.New("statement execution failed")

// ErrMapping wraps result-mapping failures: the record shape does not
// match the returned rows. Distinct from ErrExecution so callers can tell
// "your model doesn't match the schema" from "the engine is down".
var ErrMapping = errors.New("result mapping failed")

func execError(err error, sqlText string, params []interface{}) error {
	debug.Error("statement execution failed", "sql", sqlText, "params", fmt.Sprintf("%v", params), "err", err)
	return fmt.Errorf("%w: %s: %v", ErrExecution, sqlText, err)
}

func mapError(err error, sqlText string) error {
	debug.Error("result mapping failed", "sql", sqlText, "err", err)
	return fmt.Errorf("%w: %s: %v", ErrMapping, sqlText, err)
}
