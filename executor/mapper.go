package executor

import (
	"database/sql"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"
)

// fieldPlan maps result-set column names to struct field indices. One
// plan is built per record type and cached, so the reflection walk over
// the type happens once per process, not once per row.
type fieldPlan map[string][]int

var planCache sync.Map // reflect.Type -> fieldPlan

func planFor(typ reflect.Type) fieldPlan {
	if cached, ok := planCache.Load(typ); ok {
		return cached.(fieldPlan)
	}
	plan := fieldPlan{}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if f.PkgPath != "" {
			continue
		}
		if tag := f.Tag.Get("db"); tag != "" {
			name := strings.Split(tag, ",")[0]
			if name == "-" {
				continue
			}
			plan[name] = f.Index
			continue
		}
		// Exact field name first, then the snake_case transliteration
		// the schema convention uses for column names.
		plan[f.Name] = f.Index
		plan[snakeCase(f.Name)] = f.Index
	}
	planCache.Store(typ, plan)
	return plan
}

// snakeCase transliterates an exported field name to its conventional
// column name: DisplayName -> display_name, EntryID -> entry_id.
func snakeCase(name string) string {
	var sb strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			// Start a new word unless this upper rune continues an
			// acronym run (previous rune also upper and the next one,
			// if any, is upper or absent).
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				sb.WriteByte('_')
			}
			sb.WriteRune(unicode.ToLower(r))
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// scanStruct scans the current row of rows into dest, which must be an
// addressable struct value. Columns with no matching field are ignored;
// fields with no matching column keep their zero value.
func scanStruct(rows *sql.Rows, columns []string, dest reflect.Value) error {
	plan := planFor(dest.Type())

	holders := make([]interface{}, len(columns))
	for i := range holders {
		holders[i] = new(interface{})
	}
	if err := rows.Scan(holders...); err != nil {
		return err
	}
	for i, col := range columns {
		idx, ok := plan[col]
		if !ok {
			continue
		}
		raw := *(holders[i].(*interface{}))
		if err := assign(dest.FieldByIndex(idx), raw); err != nil {
			return fmt.Errorf("column %s: %w", col, err)
		}
	}
	return nil
}

// assign coerces a driver value onto a struct field, widening or
// narrowing as needed. nil leaves the field at its zero value.
func assign(field reflect.Value, raw interface{}) error {
	if raw == nil {
		return nil
	}
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		return assign(field.Elem(), raw)
	}

	v := reflect.ValueOf(raw)
	if v.Type().AssignableTo(field.Type()) {
		field.Set(v)
		return nil
	}

	switch field.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := toInt64(raw)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := toInt64(raw)
		if err != nil {
			return err
		}
		field.SetUint(uint64(n))
	case reflect.Float32, reflect.Float64:
		f, err := toFloat64(raw)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := toBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.String:
		field.SetString(toString(raw))
	case reflect.Struct:
		if field.Type() == reflect.TypeOf(time.Time{}) {
			t, err := toTime(raw)
			if err != nil {
				return err
			}
			field.Set(reflect.ValueOf(t))
			return nil
		}
		return fmt.Errorf("cannot map %T onto %s", raw, field.Type())
	default:
		return fmt.Errorf("cannot map %T onto %s", raw, field.Type())
	}
	return nil
}

func toInt64(raw interface{}) (int64, error) {
	switch v := raw.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("cannot read %T as integer", raw)
	}
}

func toFloat64(raw interface{}) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case []byte:
		return strconv.ParseFloat(string(v), 64)
	case string:
		return strconv.ParseFloat(v, 64)
	default:
		return 0, fmt.Errorf("cannot read %T as float", raw)
	}
}

// toBool accepts the numeric and string spellings the two engines use
// for boolean columns (TINYINT(1), INTEGER 0/1, "true"/"false").
func toBool(raw interface{}) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case int64:
		return v != 0, nil
	case float64:
		return v != 0, nil
	case []byte:
		return parseBoolLabel(string(v))
	case string:
		return parseBoolLabel(v)
	default:
		return false, fmt.Errorf("cannot read %T as bool", raw)
	}
}

func parseBoolLabel(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "t", "true", "y", "yes":
		return true, nil
	case "0", "f", "false", "n", "no", "":
		return false, nil
	}
	return strconv.ParseBool(s)
}

func toString(raw interface{}) string {
	switch v := raw.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", raw)
	}
}

func toTime(raw interface{}) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case int64:
		return time.Unix(v, 0).UTC(), nil
	case []byte:
		return parseTimeLabel(string(v))
	case string:
		return parseTimeLabel(v)
	default:
		return time.Time{}, fmt.Errorf("cannot read %T as time", raw)
	}
}

func parseTimeLabel(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}
