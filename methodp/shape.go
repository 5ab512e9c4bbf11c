package methodp

import "strings"

// Shape is the call shape of a method. It's one of InsertShape, WriteShape, QueryShape or TxShape.
type Shape interface {
	shape()
	String() string
}

// InsertShape is what an insert method hands back.
type InsertShape uint8

const (
	InsertNoValue InsertShape = iota + 1
	InsertBoxedNoValue
	InsertSingleID
	InsertIDArray
	InsertBoxedIDArray
	InsertIDList
)

func (InsertShape) shape() {}

func (s InsertShape) String() string {
	switch s {
	case InsertNoValue:
		return "no value"
	case InsertBoxedNoValue:
		return "boxed no value"
	case InsertSingleID:
		return "single id"
	case InsertIDArray:
		return "id array"
	case InsertBoxedIDArray:
		return "boxed id array"
	case InsertIDList:
		return "id list"
	}
	return "unknown"
}

// Legal reports whether the shape may be used with the given multiplicity.
func (s InsertShape) Legal(multiple bool) bool {
	switch s {
	case InsertNoValue, InsertBoxedNoValue:
		return true
	case InsertSingleID:
		return !multiple
	case InsertIDArray, InsertBoxedIDArray, InsertIDList:
		return multiple
	}
	return false
}

// InsertShapes lists every insert shape, in declaration order.
var InsertShapes = []InsertShape{
	InsertNoValue, InsertBoxedNoValue, InsertSingleID, InsertIDArray, InsertBoxedIDArray, InsertIDList,
}

// WriteShape is what an update or delete method hands back.
type WriteShape uint8

const (
	WriteNoValue WriteShape = iota + 1
	WriteBoxedNoValue
	WriteRowCount
)

func (WriteShape) shape() {}

func (s WriteShape) String() string {
	switch s {
	case WriteNoValue:
		return "no value"
	case WriteBoxedNoValue:
		return "boxed no value"
	case WriteRowCount:
		return "row count"
	}
	return "unknown"
}

// QueryShape is how a query method shapes its rows.
type QueryShape uint8

const (
	QuerySingleOrDefault QueryShape = iota + 1
	QueryList
	QueryArray
	// QueryArray2D is a table of raw column values, rows by columns.
	QueryArray2D
	QueryRawCursor
)

func (QueryShape) shape() {}

func (s QueryShape) String() string {
	switch s {
	case QuerySingleOrDefault:
		return "single or default"
	case QueryList:
		return "list"
	case QueryArray:
		return "array"
	case QueryArray2D:
		return "2d array"
	case QueryRawCursor:
		return "raw cursor"
	}
	return "unknown"
}

// TxShape is how a transaction method's body is invoked. Every variant runs inside begin/commit.
type TxShape uint8

const (
	TxDirect TxShape = iota + 1
	TxDefault
	TxInheritedDefault
)

func (TxShape) shape() {}

func (s TxShape) String() string {
	switch s {
	case TxDirect:
		return "direct"
	case TxDefault:
		return "default"
	case TxInheritedDefault:
		return "inherited default"
	}
	return "unknown"
}

func joinShapes[S Shape](shapes ...S) string {
	names := make([]string, len(shapes))
	for i, s := range shapes {
		names[i] = s.String()
	}
	return strings.Join(names, ", ")
}
