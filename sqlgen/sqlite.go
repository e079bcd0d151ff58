package sqlgen

import "fmt"

// SQLite is the dialect for the embedded file engine.
type SQLite struct{}

func (SQLite) Name() string { return "sqlite" }

func (SQLite) Quote(identifier string) string {
	return fmt.Sprintf(`"%s"`, identifier)
}

func (SQLite) AutoIncrement() string { return "AUTOINCREMENT" }

// UpsertPrefix replaces the INSERT keyword; SQLite has no per-column
// conflict update in the grammar this core emits.
func (SQLite) UpsertPrefix() string { return "INSERT OR REPLACE" }

func (SQLite) UpsertSuffix(columns []string) string { return "" }

// SupportsJoin refuses the join variants the embedded engine cannot
// execute rather than letting the builder emit invalid SQL.
func (SQLite) SupportsJoin(jt JoinType) bool {
	return jt != RightJoin && jt != FullOuterJoin
}
