// bindp resolves how host values are read from and written to SQL columns.
//   - Built in Binders for primitives, boxed primitives, strings, bytes, decimals, enums and the
//     date/time family.
//   - User Converters, composed at most two hops deep, wrapped as composite Binders when no
//     built in Binder serves a type.
//   - A Registry caching every resolution per (type, SQL type), owned by whoever owns the database.
package bindp

import (
	"database/sql/driver"
	"fmt"
	"reflect"

	"github.com/greghart/daop/errp"
	"github.com/greghart/daop/typep"
)

// Binder reads one host value from a column and writes one host value as a statement argument.
type Binder interface {
	// SQLType is the column type this Binder produces.
	SQLType() typep.SQLType
	// Type is the host type this Binder serves.
	Type() typep.ValueType
	// Read converts the driver value at column i. A negative i means the column is absent.
	Read(row Row, i int) (any, error)
	// Write converts a host value to a driver value, or Null.
	Write(v any) (any, error)
	fmt.Stringer
}

// Row is a positional view of one scanned result row.
type Row interface {
	Len() int
	Value(i int) any
}

// Values is a Row of raw driver values.
type Values []any

func (v Values) Len() int        { return len(v) }
func (v Values) Value(i int) any { return v[i] }

// value returns the driver value at i, and false when the column is absent.
func value(row Row, i int) (any, bool) {
	if row == nil || i < 0 || i >= row.Len() {
		return nil, false
	}
	return row.Value(i), true
}

// Null is an explicit SQL NULL argument.
type Null struct {
	SQLType typep.SQLType
}

func (Null) Value() (driver.Value, error) {
	return nil, nil
}

func (n Null) String() string {
	return "NULL(" + n.SQLType.String() + ")"
}

////////////////////////////////////////////////////////////////////////////////

// base holds what every Binder reports about itself.
type base struct {
	vt      typep.ValueType
	sqlType typep.SQLType
}

func (b base) SQLType() typep.SQLType { return b.sqlType }
func (b base) Type() typep.ValueType  { return b.vt }

func (b base) describe(name string) string {
	return fmt.Sprintf("%s(%s)", name, b.sqlType)
}

func (b base) unexpectedNull() error {
	return errp.Data(b.vt.String(), "unexpected NULL for non nullable %s column", b.sqlType)
}

func (b base) cantRead(src any, err error) error {
	if err != nil {
		return errp.Data(b.vt.String(), "can't read %T as %s: %v", src, b.vt, err)
	}
	return errp.Data(b.vt.String(), "can't read %T as %s", src, b.vt)
}

func (b base) cantWrite(v any) error {
	return errp.Data(b.vt.String(), "can't write %T as %s", v, b.sqlType)
}

// isNil reports nil interfaces and nil pointers, maps and slices.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// deref follows pointers down to a value.
func deref(v any) any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	return rv.Interface()
}
