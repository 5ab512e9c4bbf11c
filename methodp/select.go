package methodp

import (
	"github.com/greghart/daop/bindp"
	"github.com/greghart/daop/errp"
	"github.com/greghart/daop/typep"
)

// Binding is a method with its selected shape.
type Binding struct {
	Method Method
	Shape  Shape
	// Binder reads or writes the method's result value: generated ids, row counts or query
	// columns. It's nil when rows map onto an entity, and for transactions.
	Binder bindp.Binder
	// Default is what a single-or-default query returns without rows.
	Default any
}

// Multiple reports whether the method works on a group of entities.
func (b Binding) Multiple() bool {
	return b.Method.Multiple()
}

// Select classifies m. Illegal shapes are resolution errors naming the shapes that are legal.
func Select(reg *bindp.Registry, m Method) (Binding, error) {
	switch m.Kind {
	case Insert:
		return selectInsert(reg, m)
	case Update, Delete:
		return selectWrite(reg, m)
	case Query:
		return selectQuery(reg, m)
	case Transaction:
		return selectTx(m)
	}
	return Binding{}, errp.Resolution(m.Name, "method has no data access kind")
}

////////////////////////////////////////////////////////////////////////////////

func insertShape(ret typep.ValueType) (InsertShape, bool) {
	switch {
	case ret.Container == typep.None && ret.Kind == typep.KindVoid:
		if ret.Nullable {
			return InsertBoxedNoValue, true
		}
		return InsertNoValue, true
	case ret.Container == typep.None && ret.Kind == typep.KindLong && !ret.Nullable:
		return InsertSingleID, true
	case ret.Elem == nil || ret.Elem.Kind != typep.KindLong || ret.Elem.Container != typep.None:
		return 0, false
	case ret.Container == typep.Array && ret.Elem.Nullable:
		return InsertBoxedIDArray, true
	case ret.Container == typep.Array:
		return InsertIDArray, true
	case ret.Container == typep.List && !ret.Elem.Nullable:
		return InsertIDList, true
	}
	return 0, false
}

func selectInsert(reg *bindp.Registry, m Method) (Binding, error) {
	if len(m.Params) == 0 {
		return Binding{}, errp.Resolution(m.Name, "insert method needs an entity parameter")
	}
	multiple := m.Multiple()
	var legal []InsertShape
	for _, s := range InsertShapes {
		if s.Legal(multiple) {
			legal = append(legal, s)
		}
	}

	s, ok := insertShape(m.Returns)
	if !ok || !s.Legal(multiple) {
		return Binding{}, errp.Resolution(
			m.Name,
			"insert of %s can't return %v, legal shapes are: %s",
			multiplicity(multiple), m.Returns, joinShapes(legal...),
		)
	}

	id := typep.VoidType
	switch s {
	case InsertSingleID, InsertIDArray, InsertIDList:
		id = typep.LongType
	case InsertBoxedIDArray:
		id = typep.LongType.Boxed()
	}
	b, err := reg.Resolve(id, typep.Undefined)
	if err != nil {
		return Binding{}, errp.WithOp(m.Name, err)
	}
	return Binding{Method: m, Shape: s, Binder: b}, nil
}

func multiplicity(multiple bool) string {
	if multiple {
		return "multiple entities"
	}
	return "a single entity"
}

////////////////////////////////////////////////////////////////////////////////

var writeShapes = []WriteShape{WriteNoValue, WriteBoxedNoValue, WriteRowCount}

func selectWrite(reg *bindp.Registry, m Method) (Binding, error) {
	ret := m.Returns
	var s WriteShape
	switch {
	case ret.Container != typep.None:
	case ret.Kind == typep.KindVoid && ret.Nullable:
		s = WriteBoxedNoValue
	case ret.Kind == typep.KindVoid:
		s = WriteNoValue
	case (ret.Kind == typep.KindInt || ret.Kind == typep.KindLong) && !ret.Nullable:
		s = WriteRowCount
	}
	if s == 0 {
		return Binding{}, errp.Resolution(
			m.Name, "%s can't return %v, legal shapes are: %s", m.Kind, ret, joinShapes(writeShapes...),
		)
	}
	if len(m.Params) == 0 && s == WriteRowCount {
		return Binding{}, errp.Resolution(
			m.Name, "%s without parameters can't return %v, legal shapes are: %s",
			m.Kind, ret, joinShapes(WriteNoValue, WriteBoxedNoValue),
		)
	}
	b, err := reg.Resolve(ret, typep.Undefined)
	if err != nil {
		return Binding{}, errp.WithOp(m.Name, err)
	}
	return Binding{Method: m, Shape: s, Binder: b}, nil
}

////////////////////////////////////////////////////////////////////////////////

func selectQuery(reg *bindp.Registry, m Method) (Binding, error) {
	ret := m.Returns
	var (
		s    QueryShape
		elem typep.ValueType
	)
	switch {
	case ret.Container == typep.None && ret.Kind == typep.KindVoid:
		return Binding{}, errp.Resolution(m.Name, "query has to return rows, a value or a cursor")
	case ret.Container == typep.None && ret.Kind == typep.KindRows:
		s, elem = QueryRawCursor, ret
	case ret.Container == typep.None:
		s, elem = QuerySingleOrDefault, ret
	case ret.Elem == nil:
		return Binding{}, errp.Resolution(m.Name, "container %v has no element type", ret)
	case ret.Container == typep.Array && ret.Elem.Container == typep.Array:
		// degraded to raw column values
		s, elem = QueryArray2D, typep.ValueType{Kind: typep.KindAny}
	case ret.Container == typep.Array:
		s, elem = QueryArray, *ret.Elem
	default:
		s, elem = QueryList, *ret.Elem
	}

	binding := Binding{Method: m, Shape: s}
	if s == QuerySingleOrDefault {
		binding.Default = ret.Zero()
	}
	if elem.Entity() {
		return binding, nil
	}
	if s == QueryArray2D {
		binding.Binder = bindp.Raw(elem)
		return binding, nil
	}
	b, err := reg.Resolve(elem, typep.Undefined)
	if err != nil {
		return Binding{}, errp.WithOp(m.Name, err)
	}
	binding.Binder = b
	return binding, nil
}

func selectTx(m Method) (Binding, error) {
	s := TxDirect
	switch m.Dispatch {
	case Default:
		s = TxDefault
	case InheritedDefault:
		s = TxInheritedDefault
	}
	return Binding{Method: m, Shape: s}, nil
}
