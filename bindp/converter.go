package bindp

import (
	"fmt"
	"reflect"

	"github.com/greghart/daop/errp"
	"github.com/greghart/daop/typep"
)

// Converter transforms host values of one type into another.
type Converter interface {
	From() typep.ValueType
	To() typep.ValueType
	Convert(v any) (any, error)
}

// Func is a single step user conversion.
type Func struct {
	FromType typep.ValueType
	ToType   typep.ValueType
	Apply    func(any) (any, error)
}

func (f Func) From() typep.ValueType { return f.FromType }
func (f Func) To() typep.ValueType   { return f.ToType }

func (f Func) Convert(v any) (any, error) {
	return f.Apply(v)
}

func (f Func) String() string {
	return fmt.Sprintf("%s->%s", f.FromType.Key(), f.ToType.Key())
}

// NewFunc builds a typed Converter, with both ends reflected by typep.Of.
//
//	bindp.NewFunc(func(c Color) (string, error) { return c.Hex(), nil })
func NewFunc[F, T any](fn func(F) (T, error)) Func {
	return Func{
		FromType: typep.Of(reflect.TypeFor[F]()),
		ToType:   typep.Of(reflect.TypeFor[T]()),
		Apply: func(v any) (any, error) {
			f, ok := v.(F)
			if !ok {
				var zero F
				return nil, errp.Data("convert", "can't convert %T, expected %T", v, zero)
			}
			return fn(f)
		},
	}
}

////////////////////////////////////////////////////////////////////////////////

type chain struct {
	first, second Converter
}

// Chain combines exactly two Converters. The first's To must match the second's From exactly.
func Chain(first, second Converter) (Converter, error) {
	if first.To().Key() != second.From().Key() {
		return nil, errp.Resolution(
			"chain",
			"intermediate types don't match: %s then %s",
			first.To().Key(), second.From().Key(),
		)
	}
	return chain{first: first, second: second}, nil
}

func (c chain) From() typep.ValueType { return c.first.From() }
func (c chain) To() typep.ValueType   { return c.second.To() }

func (c chain) Convert(v any) (any, error) {
	mid, err := c.first.Convert(v)
	if err != nil {
		return nil, err
	}
	return c.second.Convert(mid)
}

func (c chain) String() string {
	return fmt.Sprintf("%s->%s->%s", c.first.From().Key(), c.first.To().Key(), c.second.To().Key())
}
