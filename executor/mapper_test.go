package executor

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnakeCase(t *testing.T) {
	cases := map[string]string{
		"ID":               "id",
		"Name":             "name",
		"DisplayName":      "display_name",
		"EntryID":          "entry_id",
		"IsCurrentVersion": "is_current_version",
		"LastViewedAt":     "last_viewed_at",
		"AnchorX":          "anchor_x",
		"PlayerUUID":       "player_uuid",
	}
	for in, want := range cases {
		assert.Equal(t, want, snakeCase(in), "snakeCase(%q)", in)
	}
}

func TestPlanForPrefersDBTag(t *testing.T) {
	type row struct {
		ID   int64
		Body string `db:"note_body"`
		skip string
	}
	_ = row{}.skip
	plan := planFor(reflect.TypeOf(row{}))

	assert.Contains(t, plan, "id")
	assert.Contains(t, plan, "note_body")
	assert.NotContains(t, plan, "body")
	assert.NotContains(t, plan, "skip")
}

func TestPlanForSkipsDashTag(t *testing.T) {
	type row struct {
		Secret string `db:"-"`
	}
	plan := planFor(reflect.TypeOf(row{}))
	assert.Empty(t, plan)
}

func TestAssignCoercions(t *testing.T) {
	type target struct {
		N       int
		U       uint32
		F       float64
		B       bool
		S       string
		T       time.Time
		PtrN    *int64
		PtrTime *time.Time
	}
	var dst target
	v := reflect.ValueOf(&dst).Elem()

	require.NoError(t, assign(v.FieldByName("N"), int64(42)))
	require.NoError(t, assign(v.FieldByName("U"), int64(7)))
	require.NoError(t, assign(v.FieldByName("F"), []byte("3.5")))
	require.NoError(t, assign(v.FieldByName("B"), int64(1)))
	require.NoError(t, assign(v.FieldByName("S"), []byte("hello")))
	require.NoError(t, assign(v.FieldByName("T"), "2026-01-02 15:04:05"))
	require.NoError(t, assign(v.FieldByName("PtrN"), int64(9)))
	require.NoError(t, assign(v.FieldByName("PtrTime"), time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)))

	assert.Equal(t, 42, dst.N)
	assert.Equal(t, uint32(7), dst.U)
	assert.Equal(t, 3.5, dst.F)
	assert.True(t, dst.B)
	assert.Equal(t, "hello", dst.S)
	assert.Equal(t, 2026, dst.T.Year())
	require.NotNil(t, dst.PtrN)
	assert.Equal(t, int64(9), *dst.PtrN)
	require.NotNil(t, dst.PtrTime)
}

func TestAssignNilKeepsZero(t *testing.T) {
	type target struct {
		S   string
		Ptr *int64
	}
	var dst target
	v := reflect.ValueOf(&dst).Elem()

	require.NoError(t, assign(v.FieldByName("S"), nil))
	require.NoError(t, assign(v.FieldByName("Ptr"), nil))
	assert.Empty(t, dst.S)
	assert.Nil(t, dst.Ptr)
}

func TestAssignRejectsUnmappable(t *testing.T) {
	type target struct{ N int }
	var dst target
	v := reflect.ValueOf(&dst).Elem()
	assert.Error(t, assign(v.FieldByName("N"), []byte("not a number")))
}

func TestToBoolLabels(t *testing.T) {
	for _, label := range []string{"1", "t", "TRUE", "yes"} {
		b, err := parseBoolLabel(label)
		require.NoError(t, err)
		assert.True(t, b, label)
	}
	for _, label := range []string{"0", "f", "FALSE", "no", ""} {
		b, err := parseBoolLabel(label)
		require.NoError(t, err)
		assert.False(t, b, label)
	}
	_, err := parseBoolLabel("maybe")
	assert.Error(t, err)
}

func TestToTimeFromUnixSeconds(t *testing.T) {
	ts, err := toTime(int64(1767225600))
	require.NoError(t, err)
	assert.Equal(t, 2026, ts.Year())
}
