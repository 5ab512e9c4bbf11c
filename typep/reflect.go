package typep

import (
	"database/sql"
	"fmt"
	"reflect"
	"time"

	"github.com/shopspring/decimal"
)

// Enum is implemented by named types whose values form a closed set of constants.
// Each constant's String() is its stored name.
//
//	type Status int
//	const (Active Status = iota; Banned)
//	func (s Status) String() string { ... }
//	func (Status) EnumValues() []any { return []any{Active, Banned} }
type Enum interface {
	fmt.Stringer
	EnumValues() []any
}

var (
	enumType    = reflect.TypeOf((*Enum)(nil)).Elem()
	timeType    = reflect.TypeOf(time.Time{})
	decimalType = reflect.TypeOf(decimal.Decimal{})
	rowsType    = reflect.TypeOf(&sql.Rows{})
	bytesType   = reflect.TypeOf([]byte(nil))
)

// Of reflects a Go type into a descriptor.
// Pointers to non struct types are boxed, slices and arrays become Array containers.
func Of(t reflect.Type) ValueType {
	if t == nil {
		return VoidType
	}
	if t == rowsType {
		return ValueType{Kind: KindRows, Name: "sql.Rows", Go: t}
	}
	if t.Kind() == reflect.Pointer {
		vt := Of(t.Elem())
		vt.Nullable = true
		vt.Go = t
		return vt
	}

	vt := ValueType{Go: t, Name: typeName(t)}
	switch {
	case t.Implements(enumType):
		vt.Kind = KindEnum
		vt.Constants = enumConstants(t)
		return vt
	case t == timeType:
		vt.Kind = KindTemporal
		return vt
	case t == decimalType:
		vt.Kind = KindDecimal
		return vt
	case t == bytesType || (t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8):
		vt.Kind = KindBytes
		return vt
	}

	switch t.Kind() {
	case reflect.Bool:
		vt.Kind = KindBool
	case reflect.Int8, reflect.Uint8:
		vt.Kind = KindByte
	case reflect.Int16, reflect.Uint16:
		vt.Kind = KindShort
	case reflect.Int32, reflect.Uint32:
		vt.Kind = KindInt
	case reflect.Int, reflect.Int64, reflect.Uint, reflect.Uint64:
		vt.Kind = KindLong
	case reflect.Float32:
		vt.Kind = KindFloat
	case reflect.Float64:
		vt.Kind = KindDouble
	case reflect.String:
		vt.Kind = KindString
	case reflect.Struct:
		vt.Kind = KindStruct
	case reflect.Slice, reflect.Array:
		elem := Of(t.Elem())
		vt.Kind = elem.Kind
		vt.Container = Array
		vt.Elem = &elem
	default:
		vt.Kind = KindAny
	}
	return vt
}

// OfValue is Of(reflect.TypeOf(v)).
func OfValue(v any) ValueType {
	return Of(reflect.TypeOf(v))
}

// typeName names user defined types only, so builtins share descriptors with hand written ones.
func typeName(t reflect.Type) string {
	if t.PkgPath() == "" {
		return ""
	}
	return t.String()
}

func enumConstants(t reflect.Type) []Constant {
	values := reflect.Zero(t).Interface().(Enum).EnumValues()
	constants := make([]Constant, 0, len(values))
	for _, v := range values {
		constants = append(constants, Constant{Name: fmt.Sprint(v), Value: v})
	}
	return constants
}
