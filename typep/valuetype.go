// typep describes host value types and SQL column types in a neutral way.
// Descriptors can be written by hand, produced by any front end, or reflected from Go types
// with Of.
package typep

import (
	"reflect"
	"strings"
)

// Kind is the semantic category of a host type.
type Kind uint8

const (
	KindVoid Kind = iota
	KindBool
	KindByte
	KindShort
	KindInt
	KindLong
	KindFloat
	KindDouble
	KindChar
	KindString
	KindBytes
	KindDecimal
	KindTemporal
	KindEnum
	KindStruct // user defined entity type
	KindRows   // raw cursor
	KindAny
)

var kindNames = [...]string{
	KindVoid:     "void",
	KindBool:     "bool",
	KindByte:     "byte",
	KindShort:    "short",
	KindInt:      "int",
	KindLong:     "long",
	KindFloat:    "float",
	KindDouble:   "double",
	KindChar:     "char",
	KindString:   "string",
	KindBytes:    "bytes",
	KindDecimal:  "decimal",
	KindTemporal: "temporal",
	KindEnum:     "enum",
	KindStruct:   "struct",
	KindRows:     "rows",
	KindAny:      "any",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Primitive kinds have a boxed (nullable) counterpart.
func (k Kind) Primitive() bool {
	switch k {
	case KindBool, KindByte, KindShort, KindInt, KindLong, KindFloat, KindDouble, KindChar:
		return true
	}
	return false
}

// Container says whether a type holds a homogeneous group of Elem.
type Container uint8

const (
	None Container = iota
	Array
	List
	Iterable
)

func (c Container) String() string {
	switch c {
	case Array:
		return "array"
	case List:
		return "list"
	case Iterable:
		return "iterable"
	}
	return ""
}

// Constant is one member of an enum's constant table.
type Constant struct {
	Name  string
	Value any
}

// ValueType is a descriptor of a host type.
type ValueType struct {
	Kind Kind
	// Name is the declared type name, eg. "time.Time" or "users.Status". Optional for builtins.
	Name string
	// Nullable marks boxed primitives and pointer types.
	Nullable  bool
	Container Container
	Elem      *ValueType
	// Constants is the exhaustive constant table of an enum.
	Constants []Constant
	// Go is the reflected type, when the descriptor came from Go.
	Go reflect.Type
}

// Common descriptors, handy for hand written method and field descriptors.
var (
	VoidType   = ValueType{Kind: KindVoid}
	BoolType   = ValueType{Kind: KindBool}
	IntType    = ValueType{Kind: KindInt}
	LongType   = ValueType{Kind: KindLong}
	DoubleType = ValueType{Kind: KindDouble}
	StringType = ValueType{Kind: KindString}
	BytesType  = ValueType{Kind: KindBytes}
	RowsType   = ValueType{Kind: KindRows}
)

// Boxed returns the nullable variant of vt.
func (vt ValueType) Boxed() ValueType {
	vt.Nullable = true
	if vt.Go != nil && vt.Go.Kind() != reflect.Pointer {
		vt.Go = reflect.PointerTo(vt.Go)
	}
	return vt
}

// Unboxed returns the non nullable variant of vt.
func (vt ValueType) Unboxed() ValueType {
	vt.Nullable = false
	if vt.Go != nil && vt.Go.Kind() == reflect.Pointer {
		vt.Go = vt.Go.Elem()
	}
	return vt
}

// In wraps vt in a container.
func (vt ValueType) In(c Container) ValueType {
	elem := vt
	return ValueType{Kind: vt.Kind, Container: c, Elem: &elem}
}

// Entity reports whether vt is a user defined struct type (not a container of them).
func (vt ValueType) Entity() bool {
	return vt.Container == None && vt.Kind == KindStruct
}

// Key is a stable identity used for caching and exact type matching.
func (vt ValueType) Key() string {
	var b strings.Builder
	vt.writeKey(&b)
	return b.String()
}

func (vt ValueType) writeKey(b *strings.Builder) {
	if vt.Container != None {
		b.WriteString(vt.Container.String())
		b.WriteString("<")
		if vt.Elem != nil {
			vt.Elem.writeKey(b)
		}
		b.WriteString(">")
		if vt.Nullable {
			b.WriteString("?")
		}
		return
	}
	b.WriteString(vt.Kind.String())
	if vt.Name != "" {
		b.WriteString(":")
		b.WriteString(vt.Name)
	}
	if vt.Nullable {
		b.WriteString("?")
	}
}

func (vt ValueType) String() string {
	if vt.Go != nil {
		return vt.Go.String()
	}
	return vt.Key()
}

// Zero is the type appropriate default for an absent value: false, 0, "" or nil.
func (vt ValueType) Zero() any {
	if vt.Nullable || vt.Container != None {
		return nil
	}
	if vt.Go != nil {
		return reflect.Zero(vt.Go).Interface()
	}
	switch vt.Kind {
	case KindBool:
		return false
	case KindByte:
		return int8(0)
	case KindShort:
		return int16(0)
	case KindInt:
		return int32(0)
	case KindLong:
		return int64(0)
	case KindFloat:
		return float32(0)
	case KindDouble:
		return float64(0)
	case KindChar:
		return rune(0)
	case KindString:
		return ""
	}
	return nil
}
