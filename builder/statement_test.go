package builder

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorekeep/lorekeep/sqlgen"
)

func TestSelectWithConditionsAndPaging(t *testing.T) {
	st := New(sqlgen.SQLite{}).
		Select("id", "display_name").
		From("content_entries").
		Where("category = ?", "towns").
		And("approved = ?", true).
		OrderBy("created_at", "desc").
		Limit(25).
		Offset(50)

	sqlText, err := st.Build()
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT "id", "display_name" FROM "content_entries" WHERE category = ? AND approved = ? ORDER BY "created_at" DESC LIMIT ? OFFSET ?`,
		sqlText)
	assert.Equal(t, []interface{}{"towns", true, 25, 50}, st.Params())
}

func TestSelectStarAndOrConditions(t *testing.T) {
	st := New(sqlgen.MySQL{}).
		Select().
		From("accounts").
		Where("name = ?", "Aria").
		Or("player_uuid = ?", "u-1")

	sqlText, err := st.Build()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM `accounts` WHERE name = ? OR player_uuid = ?", sqlText)
	assert.Equal(t, []interface{}{"Aria", "u-1"}, st.Params())
}

func TestSelectExpressionsPassThroughUnquoted(t *testing.T) {
	st := New(sqlgen.SQLite{}).
		Select("COUNT(*) AS total", "category").
		From("content_entries").
		GroupBy("category").
		Having("COUNT(*) > ?", 3)

	sqlText, err := st.Build()
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT COUNT(*) AS total, "category" FROM "content_entries" GROUP BY "category" HAVING COUNT(*) > ?`,
		sqlText)
	assert.Equal(t, []interface{}{3}, st.Params())
}

func TestJoins(t *testing.T) {
	st := New(sqlgen.MySQL{}).
		Select("content_submissions.id", "content_entries.display_name").
		From("content_submissions").
		Join("content_entries", "content_entries.id = content_submissions.entry_id").
		Where("content_submissions.is_current_version = ?", true)

	sqlText, err := st.Build()
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT content_submissions.id, content_entries.display_name FROM `content_submissions` "+
			"INNER JOIN `content_entries` ON content_entries.id = content_submissions.entry_id "+
			"WHERE content_submissions.is_current_version = ?",
		sqlText)
}

func TestUnsupportedJoinFailsAtBuild(t *testing.T) {
	_, err := New(sqlgen.SQLite{}).
		Select().
		From("content_entries").
		RightJoin("content_submissions", "content_submissions.entry_id = content_entries.id").
		Build()
	require.Error(t, err)
	assert.True(t, errors.Is(err, sqlgen.ErrUnsupported))

	_, err = New(sqlgen.MySQL{}).
		Select().
		From("content_entries").
		FullOuterJoin("content_submissions", "content_submissions.entry_id = content_entries.id").
		Build()
	assert.True(t, errors.Is(err, sqlgen.ErrUnsupported))
}

func TestInsert(t *testing.T) {
	st := New(sqlgen.MySQL{}).
		InsertInto("accounts").
		Columns("player_uuid", "name").
		Values("u-1", "Aria")

	sqlText, err := st.Build()
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO `accounts` (`player_uuid`, `name`) VALUES (?, ?)", sqlText)
	assert.Equal(t, []interface{}{"u-1", "Aria"}, st.Params())
}

func TestInsertColumnValueMismatch(t *testing.T) {
	_, err := New(sqlgen.SQLite{}).
		InsertInto("accounts").
		Columns("player_uuid", "name").
		Values("u-1").
		Build()
	assert.Error(t, err)
}

func TestUpsertPerDialect(t *testing.T) {
	build := func(d sqlgen.Dialect) string {
		sqlText, err := New(d).
			InsertInto("item_collections").
			Columns("id", "name").
			Values(int64(7), "relics").
			OnConflictUpdate("name").
			Build()
		require.NoError(t, err)
		return sqlText
	}

	assert.Equal(t,
		"INSERT INTO `item_collections` (`id`, `name`) VALUES (?, ?) ON DUPLICATE KEY UPDATE `name` = VALUES(`name`)",
		build(sqlgen.MySQL{}))
	assert.Equal(t,
		`INSERT OR REPLACE INTO "item_collections" ("id", "name") VALUES (?, ?)`,
		build(sqlgen.SQLite{}))
}

func TestUpdate(t *testing.T) {
	st := New(sqlgen.SQLite{}).
		Update("content_entries").
		Set("display_name", "Riverhold").
		Set("approved", true).
		Where("id = ?", int64(9))

	sqlText, err := st.Build()
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "content_entries" SET "display_name" = ?, "approved" = ? WHERE id = ?`, sqlText)
	assert.Equal(t, []interface{}{"Riverhold", true, int64(9)}, st.Params())
}

func TestDeleteRequiresCondition(t *testing.T) {
	st := New(sqlgen.SQLite{}).DeleteFrom("content_entries")
	sqlText, err := st.Build()
	require.NoError(t, err)
	// A condition-free delete must not wipe the table.
	assert.Equal(t, `DELETE FROM "content_entries" WHERE 1=0`, sqlText)

	st = New(sqlgen.SQLite{}).DeleteFrom("content_entries").Where("id = ?", int64(3))
	sqlText, err = st.Build()
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "content_entries" WHERE id = ?`, sqlText)
}

func TestKindConflictLatches(t *testing.T) {
	_, err := New(sqlgen.SQLite{}).
		Select("id").
		Update("content_entries").
		Build()
	assert.Error(t, err)
}

func TestBuildWithoutTable(t *testing.T) {
	_, err := New(sqlgen.SQLite{}).Select("id").Build()
	assert.Error(t, err)
}

func TestRebuildResetsParams(t *testing.T) {
	st := New(sqlgen.SQLite{}).
		Select("id").
		From("accounts").
		Where("name = ?", "Aria")

	_, err := st.Build()
	require.NoError(t, err)
	_, err = st.Build()
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"Aria"}, st.Params())
}
