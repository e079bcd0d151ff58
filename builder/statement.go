// Package builder provides a fluent, dialect-aware statement builder.
// Builders are single-use and mutable; they accumulate clauses through
// chained calls and terminate with Build. They are not safe for sharing
// across goroutines.
package builder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lorekeep/lorekeep/sqlgen"
)

type statementKind int

const (
	kindNone statementKind = iota
	kindSelect
	kindInsert
	kindUpdate
	kindDelete
)

type condition struct {
	connector string // "AND" or "OR"
	expr      string
	args      []interface{}
}

type join struct {
	kind  sqlgen.JoinType
	table string
	on    string
}

type assignment struct {
	column string
	value  interface{}
}

// Statement accumulates clauses for one SELECT, INSERT, UPDATE, or DELETE.
type Statement struct {
	dialect sqlgen.Dialect
	kind    statementKind
	err     error

	columns []string
	table   string
	joins   []join
	wheres  []condition
	groupBy []string
	having  []condition
	orderBy []string
	limit   *int
	offset  *int

	insertColumns []string
	insertValues  []interface{}
	upsert        bool
	upsertColumns []string

	sets []assignment

	params []interface{}
}

// New creates an empty statement builder for the given dialect.
func New(dialect sqlgen.Dialect) *Statement {
	return &Statement{dialect: dialect}
}

func (s *Statement) fail(err error) *Statement {
	if s.err == nil {
		s.err = err
	}
	return s
}

func (s *Statement) setKind(k statementKind) *Statement {
	if s.kind != kindNone && s.kind != k {
		return s.fail(errors.New("builder: statement kind already chosen"))
	}
	s.kind = k
	return s
}

// Select starts a SELECT statement. No columns means SELECT *.
func (s *Statement) Select(columns ...string) *Statement {
	s.setKind(kindSelect)
	s.columns = append(s.columns, columns...)
	return s
}

// From sets the source table of a SELECT.
func (s *Statement) From(table string) *Statement {
	s.table = table
	return s
}

// Where adds a condition joined with AND. The expression uses ?
// placeholders for the given args and bare column names, which are left
// unquoted so expressions like "view_count >= ?" read naturally.
func (s *Statement) Where(expr string, args ...interface{}) *Statement {
	s.wheres = append(s.wheres, condition{connector: "AND", expr: expr, args: args})
	return s
}

// And is an alias for Where, for readable chains.
func (s *Statement) And(expr string, args ...interface{}) *Statement {
	return s.Where(expr, args...)
}

// Or adds a condition joined with OR.
func (s *Statement) Or(expr string, args ...interface{}) *Statement {
	s.wheres = append(s.wheres, condition{connector: "OR", expr: expr, args: args})
	return s
}

// Join adds an inner join.
func (s *Statement) Join(table, on string) *Statement {
	return s.addJoin(sqlgen.InnerJoin, table, on)
}

// LeftJoin adds a left join.
func (s *Statement) LeftJoin(table, on string) *Statement {
	return s.addJoin(sqlgen.LeftJoin, table, on)
}

// RightJoin adds a right join. Fails at Build on dialects whose engine
// does not implement it.
func (s *Statement) RightJoin(table, on string) *Statement {
	return s.addJoin(sqlgen.RightJoin, table, on)
}

// FullOuterJoin adds a full outer join, subject to dialect support.
func (s *Statement) FullOuterJoin(table, on string) *Statement {
	return s.addJoin(sqlgen.FullOuterJoin, table, on)
}

func (s *Statement) addJoin(kind sqlgen.JoinType, table, on string) *Statement {
	if !s.dialect.SupportsJoin(kind) {
		return s.fail(fmt.Errorf("%w: %s on %s", sqlgen.ErrUnsupported, kind, s.dialect.Name()))
	}
	s.joins = append(s.joins, join{kind: kind, table: table, on: on})
	return s
}

// GroupBy adds grouping columns.
func (s *Statement) GroupBy(columns ...string) *Statement {
	s.groupBy = append(s.groupBy, columns...)
	return s
}

// Having adds a HAVING condition joined with AND.
func (s *Statement) Having(expr string, args ...interface{}) *Statement {
	s.having = append(s.having, condition{connector: "AND", expr: expr, args: args})
	return s
}

// OrderBy adds an ordering term; direction is "ASC" or "DESC".
func (s *Statement) OrderBy(column, direction string) *Statement {
	dir := "ASC"
	if strings.EqualFold(direction, "DESC") {
		dir = "DESC"
	}
	s.orderBy = append(s.orderBy, s.dialect.Quote(column)+" "+dir)
	return s
}

// Limit caps the number of rows returned.
func (s *Statement) Limit(n int) *Statement {
	s.limit = &n
	return s
}

// Offset skips the first n rows.
func (s *Statement) Offset(n int) *Statement {
	s.offset = &n
	return s
}

// InsertInto starts an INSERT statement.
func (s *Statement) InsertInto(table string) *Statement {
	s.setKind(kindInsert)
	s.table = table
	return s
}

// Columns names the insert columns.
func (s *Statement) Columns(columns ...string) *Statement {
	s.insertColumns = append(s.insertColumns, columns...)
	return s
}

// Values supplies one bind value per insert column, in column order.
func (s *Statement) Values(values ...interface{}) *Statement {
	s.insertValues = append(s.insertValues, values...)
	return s
}

// OnConflictUpdate turns the INSERT into an upsert. The named columns are
// the ones overwritten when the row already exists; dialects that replace
// the whole row ignore the list.
func (s *Statement) OnConflictUpdate(columns ...string) *Statement {
	s.upsert = true
	s.upsertColumns = append(s.upsertColumns, columns...)
	return s
}

// Update starts an UPDATE statement.
func (s *Statement) Update(table string) *Statement {
	s.setKind(kindUpdate)
	s.table = table
	return s
}

// Set adds one column assignment.
func (s *Statement) Set(column string, value interface{}) *Statement {
	s.sets = append(s.sets, assignment{column: column, value: value})
	return s
}

// DeleteFrom starts a DELETE statement.
func (s *Statement) DeleteFrom(table string) *Statement {
	s.setKind(kindDelete)
	s.table = table
	return s
}

// Build assembles the statement text. Bind values are collected in
// emission order and available from Params afterwards.
func (s *Statement) Build() (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.table == "" {
		return "", errors.New("builder: no table set")
	}
	s.params = s.params[:0]

	switch s.kind {
	case kindSelect:
		return s.buildSelect(), nil
	case kindInsert:
		return s.buildInsert()
	case kindUpdate:
		return s.buildUpdate()
	case kindDelete:
		return s.buildDelete(), nil
	default:
		return "", errors.New("builder: no statement started")
	}
}

// Params returns the positional bind values collected by the last Build,
// in emission order.
func (s *Statement) Params() []interface{} {
	return s.params
}

func (s *Statement) buildSelect() string {
	var parts []string

	cols := "*"
	if len(s.columns) > 0 {
		quoted := make([]string, len(s.columns))
		for i, c := range s.columns {
			quoted[i] = s.quoteColumn(c)
		}
		cols = strings.Join(quoted, ", ")
	}
	parts = append(parts, "SELECT "+cols, "FROM "+s.dialect.Quote(s.table))

	for _, j := range s.joins {
		parts = append(parts, fmt.Sprintf("%s %s ON %s", j.kind, s.dialect.Quote(j.table), j.on))
	}
	if w := s.buildConditions(s.wheres); w != "" {
		parts = append(parts, "WHERE "+w)
	}
	if len(s.groupBy) > 0 {
		quoted := make([]string, len(s.groupBy))
		for i, c := range s.groupBy {
			quoted[i] = s.quoteColumn(c)
		}
		parts = append(parts, "GROUP BY "+strings.Join(quoted, ", "))
	}
	if h := s.buildConditions(s.having); h != "" {
		parts = append(parts, "HAVING "+h)
	}
	if len(s.orderBy) > 0 {
		parts = append(parts, "ORDER BY "+strings.Join(s.orderBy, ", "))
	}
	if s.limit != nil {
		parts = append(parts, "LIMIT ?")
		s.params = append(s.params, *s.limit)
	}
	if s.offset != nil {
		parts = append(parts, "OFFSET ?")
		s.params = append(s.params, *s.offset)
	}
	return strings.Join(parts, " ")
}

func (s *Statement) buildInsert() (string, error) {
	if len(s.insertColumns) == 0 {
		return "", errors.New("builder: insert without columns")
	}
	if len(s.insertValues) != len(s.insertColumns) {
		return "", fmt.Errorf("builder: %d values for %d columns", len(s.insertValues), len(s.insertColumns))
	}

	keyword := "INSERT INTO"
	if s.upsert {
		if prefix := s.dialect.UpsertPrefix(); prefix != "" {
			keyword = prefix + " INTO"
		}
	}

	quoted := make([]string, len(s.insertColumns))
	placeholders := make([]string, len(s.insertColumns))
	for i, c := range s.insertColumns {
		quoted[i] = s.dialect.Quote(c)
		placeholders[i] = "?"
	}
	s.params = append(s.params, s.insertValues...)

	stmt := fmt.Sprintf("%s %s (%s) VALUES (%s)",
		keyword, s.dialect.Quote(s.table),
		strings.Join(quoted, ", "), strings.Join(placeholders, ", "))

	if s.upsert {
		if suffix := s.dialect.UpsertSuffix(s.upsertColumns); suffix != "" {
			stmt += " " + suffix
		}
	}
	return stmt, nil
}

func (s *Statement) buildUpdate() (string, error) {
	if len(s.sets) == 0 {
		return "", errors.New("builder: update without assignments")
	}
	setParts := make([]string, len(s.sets))
	for i, a := range s.sets {
		setParts[i] = s.dialect.Quote(a.column) + " = ?"
		s.params = append(s.params, a.value)
	}
	stmt := fmt.Sprintf("UPDATE %s SET %s", s.dialect.Quote(s.table), strings.Join(setParts, ", "))
	if w := s.buildConditions(s.wheres); w != "" {
		stmt += " WHERE " + w
	}
	return stmt, nil
}

func (s *Statement) buildDelete() string {
	stmt := "DELETE FROM " + s.dialect.Quote(s.table)
	if w := s.buildConditions(s.wheres); w != "" {
		stmt += " WHERE " + w
	} else {
		// Refuse to delete a whole table through a builder that was
		// never given a condition.
		stmt += " WHERE 1=0"
	}
	return stmt
}

func (s *Statement) buildConditions(conds []condition) string {
	var sb strings.Builder
	for i, c := range conds {
		if i > 0 {
			sb.WriteString(" " + c.connector + " ")
		}
		sb.WriteString(c.expr)
		s.params = append(s.params, c.args...)
	}
	return sb.String()
}

// quoteColumn quotes plain column names but passes expressions (anything
// with a space, parenthesis, or dot) through untouched.
func (s *Statement) quoteColumn(c string) string {
	if strings.ContainsAny(c, " (.*") {
		return c
	}
	return s.dialect.Quote(c)
}
