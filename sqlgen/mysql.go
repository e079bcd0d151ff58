package sqlgen

import (
	"fmt"
	"strings"
)

// MySQL is the dialect for the pooled server engine.
type MySQL struct{}

func (MySQL) Name() string { return "mysql" }

func (MySQL) Quote(identifier string) string {
	return fmt.Sprintf("`%s`", identifier)
}

func (MySQL) AutoIncrement() string { return "AUTO_INCREMENT" }

func (MySQL) UpsertPrefix() string { return "" }

// UpsertSuffix emits ON DUPLICATE KEY UPDATE with VALUES() references so
// the bind values of the INSERT are reused for the update arm.
func (MySQL) UpsertSuffix(columns []string) string {
	if len(columns) == 0 {
		return ""
	}
	assignments := make([]string, len(columns))
	for i, col := range columns {
		quoted := MySQL{}.Quote(col)
		assignments[i] = fmt.Sprintf("%s = VALUES(%s)", quoted, quoted)
	}
	return "ON DUPLICATE KEY UPDATE " + strings.Join(assignments, ", ")
}

func (MySQL) SupportsJoin(jt JoinType) bool {
	// MySQL has no FULL OUTER JOIN either.
	return jt != FullOuterJoin
}
