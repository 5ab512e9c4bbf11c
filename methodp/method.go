// methodp classifies data access methods into the closed set of call shapes the runtime executes.
//
// A Method descriptor can be written by hand or reflected from a Go func type with FromFunc.
// Select picks the method's Shape and the Binder for its result, and Build does so for a whole
// entity, producing a Plan.
package methodp

import (
	"context"
	"fmt"
	"reflect"

	"github.com/greghart/daop/errp"
	"github.com/greghart/daop/typep"
)

// Kind is the data access annotation of a method.
type Kind uint8

const (
	KindNone Kind = iota
	Insert
	Update
	Delete
	Query
	Transaction
)

func (k Kind) String() string {
	switch k {
	case Insert:
		return "insert"
	case Update:
		return "update"
	case Delete:
		return "delete"
	case Query:
		return "query"
	case Transaction:
		return "transaction"
	}
	return "none"
}

// Dispatch is how a transaction method's own body gets invoked.
type Dispatch uint8

const (
	// Direct calls a concrete method.
	Direct Dispatch = iota
	// Default calls a default implementation declared on the DAO itself.
	Default
	// InheritedDefault calls a default implementation inherited from a parent DAO.
	InheritedDefault
)

// Param is one parameter of a method.
type Param struct {
	Name string
	Type typep.ValueType
	// Multiple is set for groups of entities: arrays, lists, iterables or variadics.
	Multiple bool
}

// Method describes one data access method.
type Method struct {
	Name     string
	Kind     Kind
	Params   []Param
	Returns  typep.ValueType
	Dispatch Dispatch // transactions only
}

// Multiple reports whether the method works on a group of entities.
func (m Method) Multiple() bool {
	if len(m.Params) > 1 {
		return true
	}
	return len(m.Params) == 1 && m.Params[0].Multiple
}

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// FromFunc describes a Go func type as a method of the given kind.
// A leading context.Context parameter and a trailing error result are skipped.
//
//	methodp.FromFunc("InsertAll", methodp.Insert, reflect.TypeOf(dao.InsertAll))
func FromFunc(name string, kind Kind, fn reflect.Type) (Method, error) {
	if fn == nil || fn.Kind() != reflect.Func {
		return Method{}, errp.Resolution(name, "expected a func, got %v", fn)
	}
	m := Method{Name: name, Kind: kind, Returns: typep.VoidType}

	for i := 0; i < fn.NumIn(); i++ {
		t := fn.In(i)
		if i == 0 && t == contextType {
			continue
		}
		vt := typep.Of(t)
		m.Params = append(m.Params, Param{
			Name:     fmt.Sprintf("p%d", len(m.Params)),
			Type:     vt,
			Multiple: (fn.IsVariadic() && i == fn.NumIn()-1) || entityGroup(vt),
		})
	}

	outs := fn.NumOut()
	if outs > 0 && fn.Out(outs-1) == errorType {
		outs--
	}
	switch outs {
	case 0:
	case 1:
		m.Returns = typep.Of(fn.Out(0))
	default:
		return Method{}, errp.Resolution(name, "expected at most one result besides error, got %d", outs)
	}
	return m, nil
}

func entityGroup(vt typep.ValueType) bool {
	return vt.Container != typep.None && vt.Elem != nil && vt.Elem.Entity()
}
