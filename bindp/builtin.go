package bindp

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/greghart/daop/errp"
	"github.com/greghart/daop/typep"
)

type stringBinder struct{ base }

func (b stringBinder) String() string { return b.describe("string") }

func (b stringBinder) Read(row Row, i int) (any, error) {
	src, ok := value(row, i)
	if !ok {
		return "", nil
	}
	switch s := src.(type) {
	case nil:
		return nil, b.unexpectedNull()
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	case int64:
		return strconv.FormatInt(s, 10), nil
	case float64:
		return strconv.FormatFloat(s, 'g', -1, 64), nil
	case bool:
		return strconv.FormatBool(s), nil
	}
	return nil, b.cantRead(src, nil)
}

func (b stringBinder) Write(v any) (any, error) {
	rv := reflect.ValueOf(deref(v))
	if rv.Kind() != reflect.String {
		return nil, b.cantWrite(v)
	}
	return rv.String(), nil
}

////////////////////////////////////////////////////////////////////////////////

// bytesBinder is natively nullable, a nil slice is NULL both ways.
type bytesBinder struct{ base }

func (b bytesBinder) String() string { return b.describe("[]byte") }

func (b bytesBinder) Read(row Row, i int) (any, error) {
	src, ok := value(row, i)
	if !ok || src == nil {
		return []byte(nil), nil
	}
	switch s := src.(type) {
	case []byte:
		// drivers may reuse the buffer
		return append([]byte(nil), s...), nil
	case string:
		return []byte(s), nil
	}
	return nil, b.cantRead(src, nil)
}

func (b bytesBinder) Write(v any) (any, error) {
	if isNil(v) {
		return Null{SQLType: b.sqlType}, nil
	}
	rv := reflect.ValueOf(deref(v))
	if rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() != reflect.Uint8 {
		return nil, b.cantWrite(v)
	}
	return rv.Bytes(), nil
}

////////////////////////////////////////////////////////////////////////////////

// decimalBinder stores decimal.Decimal as its exact string form.
type decimalBinder struct{ base }

func (b decimalBinder) String() string { return b.describe("decimal.Decimal") }

func (b decimalBinder) Read(row Row, i int) (any, error) {
	src, ok := value(row, i)
	if !ok {
		return decimal.Zero, nil
	}
	var (
		d   decimal.Decimal
		err error
	)
	switch s := src.(type) {
	case nil:
		return nil, b.unexpectedNull()
	case string:
		d, err = decimal.NewFromString(s)
	case []byte:
		d, err = decimal.NewFromString(string(s))
	case float64:
		d = decimal.NewFromFloat(s)
	case int64:
		d = decimal.NewFromInt(s)
	default:
		return nil, b.cantRead(src, nil)
	}
	if err != nil {
		return nil, b.cantRead(src, err)
	}
	return d, nil
}

func (b decimalBinder) Write(v any) (any, error) {
	d, ok := deref(v).(decimal.Decimal)
	if !ok {
		return nil, b.cantWrite(v)
	}
	return d.String(), nil
}

////////////////////////////////////////////////////////////////////////////////

// enumBinder stores an enum constant by name.
type enumBinder struct {
	base
	byName map[string]any
}

func newEnumBinder(b base) (Binder, error) {
	if len(b.vt.Constants) == 0 {
		return nil, errp.Resolution(b.vt.String(), "enum has no constants")
	}
	byName := make(map[string]any, len(b.vt.Constants))
	for _, c := range b.vt.Constants {
		byName[c.Name] = c.Value
	}
	return enumBinder{base: b, byName: byName}, nil
}

func (b enumBinder) String() string { return b.describe("enum " + b.vt.Key()) }

func (b enumBinder) Read(row Row, i int) (any, error) {
	src, ok := value(row, i)
	if !ok {
		return b.vt.Zero(), nil
	}
	var name string
	switch s := src.(type) {
	case nil:
		return nil, b.unexpectedNull()
	case string:
		name = s
	case []byte:
		name = string(s)
	default:
		return nil, b.cantRead(src, nil)
	}
	c, ok := b.byName[name]
	if !ok {
		return nil, errp.Data(b.vt.String(), "enum: unknown name %q", name)
	}
	return c, nil
}

func (b enumBinder) Write(v any) (any, error) {
	var name string
	switch e := deref(v).(type) {
	case typep.Enum:
		name = e.String()
	case string:
		name = e
	default:
		return nil, b.cantWrite(v)
	}
	if _, ok := b.byName[name]; !ok {
		return nil, errp.Data(b.vt.String(), "enum: unknown name %q", name)
	}
	return name, nil
}

////////////////////////////////////////////////////////////////////////////////

// Formats written for the temporal family, and read back along with what common drivers return.
const (
	DateFormat      = "2006-01-02"
	TimeFormat      = "15:04:05.999999999"
	TimestampFormat = "2006-01-02 15:04:05.999999999-07:00"
)

var timestampLayouts = []string{
	TimestampFormat,
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	time.RFC3339Nano,
	DateFormat,
}

// temporalBinder carries DATE, TIME and TIMESTAMP columns in a time.Time.
// Dates are truncated to midnight and times are anchored to the zero date.
type temporalBinder struct{ base }

func (b temporalBinder) String() string {
	return b.describe(strings.ToLower(b.sqlType.String()))
}

func (b temporalBinder) Read(row Row, i int) (any, error) {
	src, ok := value(row, i)
	if !ok {
		return time.Time{}, nil
	}
	var (
		t   time.Time
		err error
	)
	switch s := src.(type) {
	case nil:
		return nil, b.unexpectedNull()
	case time.Time:
		t = s
	case string:
		t, err = b.parse(s)
	case []byte:
		t, err = b.parse(string(s))
	case int64:
		t = time.Unix(s, 0).UTC()
	default:
		return nil, b.cantRead(src, nil)
	}
	if err != nil {
		return nil, b.cantRead(src, err)
	}
	return b.normalize(t), nil
}

func (b temporalBinder) parse(s string) (time.Time, error) {
	s = strings.TrimSuffix(s, "Z")
	if b.sqlType == typep.Time {
		for _, layout := range []string{TimeFormat, "15:04"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized %s %q", b.sqlType, s)
}

func (b temporalBinder) normalize(t time.Time) time.Time {
	switch b.sqlType {
	case typep.Date:
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	case typep.Time:
		return time.Date(0, 1, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	}
	return t
}

func (b temporalBinder) Write(v any) (any, error) {
	t, ok := deref(v).(time.Time)
	if !ok {
		return nil, b.cantWrite(v)
	}
	switch b.sqlType {
	case typep.Date:
		return b.normalize(t), nil
	case typep.Time:
		return t.Format(TimeFormat), nil
	}
	return t, nil
}

////////////////////////////////////////////////////////////////////////////////

// voidBinder serves methods without a value.
type voidBinder struct{ base }

func (b voidBinder) String() string           { return "void" }
func (voidBinder) Read(Row, int) (any, error) { return nil, nil }
func (voidBinder) Write(any) (any, error)     { return nil, nil }

// rawBinder passes driver values through untouched, for raw cursors and untyped columns.
type rawBinder struct{ base }

// Raw returns a Binder passing driver values through as vt, for results read without
// conversion. Resolve never returns one for an untyped value.
func Raw(vt typep.ValueType) Binder {
	return rawBinder{base{vt: vt}}
}

func (b rawBinder) String() string { return "raw" }

func (rawBinder) Read(row Row, i int) (any, error) {
	src, _ := value(row, i)
	return src, nil
}

func (rawBinder) Write(v any) (any, error) { return v, nil }
