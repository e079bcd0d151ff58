package builder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lorekeep/lorekeep/sqlgen"
)

// TableBuilder emits CREATE TABLE DDL for one dialect. Like Statement it
// is single-use and chainable.
type TableBuilder struct {
	dialect sqlgen.Dialect
	name    string
	columns []tableColumn
	fks     []foreignKey
	current *tableColumn
}

type tableColumn struct {
	name          string
	sqlType       string
	primaryKey    bool
	autoIncrement bool
	notNull       bool
	unique        bool
	defaultExpr   string
}

type foreignKey struct {
	column    string
	refTable  string
	refColumn string
}

// CreateTable starts a CREATE TABLE builder.
func CreateTable(dialect sqlgen.Dialect, name string) *TableBuilder {
	return &TableBuilder{dialect: dialect, name: name}
}

// Column adds a column with an explicit SQL type.
func (t *TableBuilder) Column(name, sqlType string) *TableBuilder {
	t.columns = append(t.columns, tableColumn{name: name, sqlType: sqlType})
	t.current = &t.columns[len(t.columns)-1]
	return t
}

// BigIncrements adds the surrogate-key column: an auto-incrementing
// integer primary key using the dialect's keyword and required type.
func (t *TableBuilder) BigIncrements(name string) *TableBuilder {
	sqlType := "BIGINT"
	if t.dialect.Name() == "sqlite" {
		// SQLite only auto-increments INTEGER primary keys.
		sqlType = "INTEGER"
	}
	t.Column(name, sqlType)
	t.current.primaryKey = true
	t.current.autoIncrement = true
	return t
}

// PrimaryKey marks the most recent column as the primary key.
func (t *TableBuilder) PrimaryKey() *TableBuilder {
	if t.current != nil {
		t.current.primaryKey = true
	}
	return t
}

// NotNull marks the most recent column NOT NULL.
func (t *TableBuilder) NotNull() *TableBuilder {
	if t.current != nil {
		t.current.notNull = true
	}
	return t
}

// Unique adds a UNIQUE constraint to the most recent column.
func (t *TableBuilder) Unique() *TableBuilder {
	if t.current != nil {
		t.current.unique = true
	}
	return t
}

// Default sets a literal default expression for the most recent column.
func (t *TableBuilder) Default(expr string) *TableBuilder {
	if t.current != nil {
		t.current.defaultExpr = expr
	}
	return t
}

// References adds a foreign key from the most recent column.
func (t *TableBuilder) References(table, column string) *TableBuilder {
	if t.current != nil {
		t.fks = append(t.fks, foreignKey{column: t.current.name, refTable: table, refColumn: column})
	}
	return t
}

// Build assembles the CREATE TABLE IF NOT EXISTS statement.
func (t *TableBuilder) Build() (string, error) {
	if len(t.columns) == 0 {
		return "", errors.New("builder: table without columns")
	}
	var defs []string
	for _, c := range t.columns {
		parts := []string{t.dialect.Quote(c.name), c.sqlType}
		if c.primaryKey {
			parts = append(parts, "PRIMARY KEY")
		}
		if c.autoIncrement {
			parts = append(parts, t.dialect.AutoIncrement())
		}
		if c.notNull {
			parts = append(parts, "NOT NULL")
		}
		if c.unique {
			parts = append(parts, "UNIQUE")
		}
		if c.defaultExpr != "" {
			parts = append(parts, "DEFAULT "+c.defaultExpr)
		}
		defs = append(defs, strings.Join(parts, " "))
	}
	for _, fk := range t.fks {
		defs = append(defs, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
			t.dialect.Quote(fk.column), t.dialect.Quote(fk.refTable), t.dialect.Quote(fk.refColumn)))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		t.dialect.Quote(t.name), strings.Join(defs, ", ")), nil
}

// IndexBuilder emits CREATE INDEX DDL.
type IndexBuilder struct {
	dialect sqlgen.Dialect
	name    string
	table   string
	columns []string
	unique  bool
}

// CreateIndex starts a CREATE INDEX builder.
func CreateIndex(dialect sqlgen.Dialect, name, table string, columns ...string) *IndexBuilder {
	return &IndexBuilder{dialect: dialect, name: name, table: table, columns: columns}
}

// Unique makes the index a uniqueness constraint.
func (b *IndexBuilder) Unique() *IndexBuilder {
	b.unique = true
	return b
}

// Build assembles the CREATE INDEX IF NOT EXISTS statement.
func (b *IndexBuilder) Build() (string, error) {
	if len(b.columns) == 0 {
		return "", errors.New("builder: index without columns")
	}
	keyword := "CREATE INDEX"
	if b.unique {
		keyword = "CREATE UNIQUE INDEX"
	}
	// MySQL has no IF NOT EXISTS for indexes; re-creation surfaces as a
	// duplicate-name error the migrator tolerates.
	exists := ""
	if b.dialect.Name() == "sqlite" {
		exists = "IF NOT EXISTS "
	}
	quoted := make([]string, len(b.columns))
	for i, c := range b.columns {
		quoted[i] = b.dialect.Quote(c)
	}
	return fmt.Sprintf("%s %s%s ON %s (%s)",
		keyword, exists, b.dialect.Quote(b.name), b.dialect.Quote(b.table), strings.Join(quoted, ", ")), nil
}
