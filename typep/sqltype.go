package typep

import "strings"

// SQLType is a canonical column type, independent of any dialect.
type SQLType uint8

const (
	Undefined SQLType = iota
	Int
	Long
	Float
	Double
	Boolean
	Char
	Binary
	Text
	Varchar
	LongText
	Decimal
	Date
	Time
	Timestamp

	// Dialect spellings, only meaningful for assignability.
	TinyInt
	SmallInt
	Real
	NVarchar
	Clob
)

var sqlTypeNames = [...]string{
	Undefined: "UNDEFINED",
	Int:       "INT",
	Long:      "LONG",
	Float:     "FLOAT",
	Double:    "DOUBLE",
	Boolean:   "BOOLEAN",
	Char:      "CHAR",
	Binary:    "BINARY",
	Text:      "TEXT",
	Varchar:   "VARCHAR",
	LongText:  "LONGTEXT",
	Decimal:   "DECIMAL",
	Date:      "DATE",
	Time:      "TIME",
	Timestamp: "TIMESTAMP",
	TinyInt:   "TINYINT",
	SmallInt:  "SMALLINT",
	Real:      "REAL",
	NVarchar:  "NVARCHAR",
	Clob:      "CLOB",
}

func (t SQLType) String() string {
	if int(t) < len(sqlTypeNames) {
		return sqlTypeNames[t]
	}
	return "UNDEFINED"
}

// ParseSQLType reads a type name case insensitively, accepting common aliases.
func ParseSQLType(s string) (SQLType, bool) {
	name := strings.ToUpper(strings.TrimSpace(s))
	switch name {
	case "INTEGER":
		return Int, true
	case "BIGINT":
		return Long, true
	case "BOOL":
		return Boolean, true
	case "BLOB", "VARBINARY", "BYTEA":
		return Binary, true
	case "NUMERIC":
		return Decimal, true
	case "DATETIME":
		return Timestamp, true
	}
	for t, n := range sqlTypeNames {
		if n == name {
			return SQLType(t), true
		}
	}
	return Undefined, false
}

// Family collapses dialect spellings onto the type they widen to.
func (t SQLType) Family() SQLType {
	switch t {
	case TinyInt, SmallInt, Int:
		return Int
	case Real, Float:
		return Float
	case Char, Text, Varchar, LongText, NVarchar, Clob:
		return Varchar
	}
	return t
}

// Assignable reports whether a column declared as `declared` can hold values bound as `bound`.
// Undefined declarations accept anything.
func Assignable(declared, bound SQLType) bool {
	if declared == Undefined || declared == bound {
		return true
	}
	return declared.Family() == bound.Family()
}

// Infer maps a host type to its canonical SQL type when no hint is given.
// Types without a fixed mapping (decimals, enums, temporals, user types) are Undefined, and
// resolution settles on the native type of whichever binder serves them.
func Infer(vt ValueType) SQLType {
	if vt.Container != None {
		return Undefined
	}
	switch vt.Kind {
	case KindByte, KindShort, KindInt:
		return Int
	case KindLong:
		return Long
	case KindFloat:
		return Float
	case KindDouble:
		return Double
	case KindChar:
		return Char
	case KindBool:
		return Boolean
	case KindString:
		return Varchar
	case KindBytes:
		return Binary
	}
	return Undefined
}
