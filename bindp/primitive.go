package bindp

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"unicode/utf8"

	"golang.org/x/exp/constraints"

	"github.com/greghart/daop/typep"
)

// intBinder binds the signed integer kinds, reading back the narrowest Go type of the kind.
type intBinder[T constraints.Signed] struct{ base }

func (b intBinder[T]) String() string {
	var t T
	return b.describe(reflect.TypeOf(t).String())
}

func (b intBinder[T]) Read(row Row, i int) (any, error) {
	src, ok := value(row, i)
	if !ok {
		return T(0), nil
	}
	if src == nil {
		return nil, b.unexpectedNull()
	}
	n, err := toInt64(src)
	if err != nil {
		return nil, b.cantRead(src, err)
	}
	v := T(n)
	if int64(v) != n {
		return nil, b.cantRead(src, fmt.Errorf("%d overflows", n))
	}
	return v, nil
}

func (b intBinder[T]) Write(v any) (any, error) {
	rv := reflect.ValueOf(deref(v))
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, b.cantWrite(v)
		}
		return int64(u), nil
	}
	return nil, b.cantWrite(v)
}

func toInt64(src any) (int64, error) {
	switch s := src.(type) {
	case int64:
		return s, nil
	case float64:
		if s != math.Trunc(s) {
			return 0, fmt.Errorf("%v isn't integral", s)
		}
		return int64(s), nil
	case bool:
		if s {
			return 1, nil
		}
		return 0, nil
	case []byte:
		return strconv.ParseInt(string(s), 10, 64)
	case string:
		return strconv.ParseInt(s, 10, 64)
	}
	rv := reflect.ValueOf(src)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), nil
	}
	return 0, fmt.Errorf("unsupported source")
}

////////////////////////////////////////////////////////////////////////////////

type floatBinder[T constraints.Float] struct{ base }

func (b floatBinder[T]) String() string {
	var t T
	return b.describe(reflect.TypeOf(t).String())
}

func (b floatBinder[T]) Read(row Row, i int) (any, error) {
	src, ok := value(row, i)
	if !ok {
		return T(0), nil
	}
	if src == nil {
		return nil, b.unexpectedNull()
	}
	f, err := toFloat64(src)
	if err != nil {
		return nil, b.cantRead(src, err)
	}
	return T(f), nil
}

func (b floatBinder[T]) Write(v any) (any, error) {
	rv := reflect.ValueOf(deref(v))
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	}
	return nil, b.cantWrite(v)
}

func toFloat64(src any) (float64, error) {
	switch s := src.(type) {
	case float64:
		return s, nil
	case float32:
		return float64(s), nil
	case int64:
		return float64(s), nil
	case []byte:
		return strconv.ParseFloat(string(s), 64)
	case string:
		return strconv.ParseFloat(s, 64)
	}
	return 0, fmt.Errorf("unsupported source")
}

////////////////////////////////////////////////////////////////////////////////

type boolBinder struct{ base }

func (b boolBinder) String() string { return b.describe("bool") }

func (b boolBinder) Read(row Row, i int) (any, error) {
	src, ok := value(row, i)
	if !ok {
		return false, nil
	}
	switch s := src.(type) {
	case nil:
		return nil, b.unexpectedNull()
	case bool:
		return s, nil
	case int64:
		return s != 0, nil
	case []byte:
		v, err := strconv.ParseBool(string(s))
		if err != nil {
			return nil, b.cantRead(src, err)
		}
		return v, nil
	case string:
		v, err := strconv.ParseBool(s)
		if err != nil {
			return nil, b.cantRead(src, err)
		}
		return v, nil
	}
	return nil, b.cantRead(src, nil)
}

func (b boolBinder) Write(v any) (any, error) {
	rv := reflect.ValueOf(deref(v))
	if rv.Kind() != reflect.Bool {
		return nil, b.cantWrite(v)
	}
	if b.sqlType != typep.Boolean {
		if rv.Bool() {
			return int64(1), nil
		}
		return int64(0), nil
	}
	return rv.Bool(), nil
}

////////////////////////////////////////////////////////////////////////////////

// charBinder stores a single rune as a one character string.
type charBinder struct{ base }

func (b charBinder) String() string { return b.describe("rune") }

func (b charBinder) Read(row Row, i int) (any, error) {
	src, ok := value(row, i)
	if !ok {
		return rune(0), nil
	}
	var s string
	switch t := src.(type) {
	case nil:
		return nil, b.unexpectedNull()
	case int64:
		return rune(t), nil
	case []byte:
		s = string(t)
	case string:
		s = t
	default:
		return nil, b.cantRead(src, nil)
	}
	if s == "" {
		return rune(0), nil
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

func (b charBinder) Write(v any) (any, error) {
	rv := reflect.ValueOf(deref(v))
	switch rv.Kind() {
	case reflect.Int32, reflect.Int64, reflect.Int:
		return string(rune(rv.Int())), nil
	case reflect.String:
		if utf8.RuneCountInString(rv.String()) <= 1 {
			return rv.String(), nil
		}
	}
	return nil, b.cantWrite(v)
}

////////////////////////////////////////////////////////////////////////////////

// boxedBinder adds NULL handling around a non nullable Binder.
type boxedBinder struct {
	base
	inner Binder
}

func boxed(vt typep.ValueType, inner Binder) Binder {
	return boxedBinder{base: base{vt: vt, sqlType: inner.SQLType()}, inner: inner}
}

func (b boxedBinder) String() string { return "boxed(" + b.inner.String() + ")" }

func (b boxedBinder) Read(row Row, i int) (any, error) {
	src, ok := value(row, i)
	if !ok || src == nil {
		return nil, nil
	}
	return b.inner.Read(row, i)
}

func (b boxedBinder) Write(v any) (any, error) {
	if isNil(v) {
		return Null{SQLType: b.sqlType}, nil
	}
	return b.inner.Write(deref(v))
}

// primitive builds the Binder for a non nullable primitive kind.
func primitive(vt typep.ValueType, sqlType typep.SQLType) Binder {
	b := base{vt: vt, sqlType: sqlType}
	switch vt.Kind {
	case typep.KindBool:
		return boolBinder{b}
	case typep.KindByte:
		return intBinder[int8]{b}
	case typep.KindShort:
		return intBinder[int16]{b}
	case typep.KindInt:
		return intBinder[int32]{b}
	case typep.KindLong:
		return intBinder[int64]{b}
	case typep.KindFloat:
		return floatBinder[float32]{b}
	case typep.KindDouble:
		return floatBinder[float64]{b}
	case typep.KindChar:
		return charBinder{b}
	}
	return nil
}
