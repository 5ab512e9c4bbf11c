package bindp

import (
	"sync"

	"github.com/greghart/daop/errp"
	"github.com/greghart/daop/typep"
)

// Registry resolves Binders and caches them per (type, SQL type).
// It's safe for concurrent use, and is meant to be owned by one database handle.
type Registry struct {
	mu         sync.RWMutex
	converters []Converter

	cache sync.Map // string -> Binder
}

func NewRegistry(converters ...Converter) *Registry {
	return &Registry{converters: converters}
}

// Convert registers user Converters. Earlier registrations win when several paths exist.
func (r *Registry) Convert(converters ...Converter) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.converters = append(r.converters, converters...)
	r.cache.Clear()
	return r
}

func cacheKey(vt typep.ValueType, hint typep.SQLType) string {
	return vt.Key() + "|" + hint.String()
}

// Resolve finds the Binder storing vt in a column declared as hint, which may be Undefined.
// Only successful resolutions are cached.
func (r *Registry) Resolve(vt typep.ValueType, hint typep.SQLType) (Binder, error) {
	key := cacheKey(vt, hint)
	if b, ok := r.cache.Load(key); ok {
		return b.(Binder), nil
	}
	// Held until stored, so Convert can't clear the cache under a resolution of the old converters.
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, err := r.resolve(vt, hint, r.converters)
	if err != nil {
		return nil, err
	}
	actual, _ := r.cache.LoadOrStore(key, b)
	return actual.(Binder), nil
}

func (r *Registry) resolve(vt typep.ValueType, hint typep.SQLType, converters []Converter) (Binder, error) {
	target := hint
	if target == typep.Undefined {
		target = typep.Infer(vt)
	}

	b, builtinErr := builtin(vt, target)
	if b == nil {
		b = composite(converters, vt, hint)
	}
	if b == nil {
		if builtinErr != nil {
			return nil, builtinErr
		}
		return nil, errp.Resolution(vt.String(), "unknown column type %v as %v", vt, target)
	}
	if !typep.Assignable(hint, b.SQLType()) {
		return nil, errp.Resolution(vt.String(), "column declared %v can't hold %v bound as %v", hint, vt, b.SQLType())
	}
	return b, nil
}

// composite searches user Converters for a round trip through a type with a built in Binder.
func composite(converters []Converter, vt typep.ValueType, hint typep.SQLType) Binder {
	if len(converters) == 0 {
		return nil
	}

	host := vt.Unboxed()
	for _, write := range paths(converters, host) {
		storage := write.To()
		if vt.Nullable {
			storage = storage.Boxed()
		}
		target := hint
		if target == typep.Undefined {
			target = typep.Infer(storage)
		}
		inner, _ := builtin(storage, target)
		if inner == nil {
			continue
		}
		for _, read := range paths(converters, write.To()) {
			if read.To().Key() == host.Key() {
				return compositeBinder{vt: vt, inner: inner, write: write, read: read}
			}
		}
	}
	return nil
}

// paths lists every Converter out of from, direct ones first then two hop chains, each in
// registration order.
func paths(converters []Converter, from typep.ValueType) []Converter {
	var direct []Converter
	for _, c := range converters {
		if c.From().Key() == from.Key() {
			direct = append(direct, c)
		}
	}
	out := append([]Converter(nil), direct...)
	for _, first := range direct {
		for _, second := range converters {
			if c, err := Chain(first, second); err == nil {
				out = append(out, c)
			}
		}
	}
	return out
}

////////////////////////////////////////////////////////////////////////////////

// canonical collapses dialect spellings onto the type a Binder reports.
func canonical(t typep.SQLType) typep.SQLType {
	switch t {
	case typep.TinyInt, typep.SmallInt:
		return typep.Int
	case typep.Real:
		return typep.Float
	case typep.NVarchar:
		return typep.Varchar
	case typep.Clob:
		return typep.LongText
	}
	return t
}

func accepts(target typep.SQLType, native typep.SQLType, others ...typep.SQLType) (typep.SQLType, bool) {
	if target == typep.Undefined {
		return native, true
	}
	if target == native {
		return canonical(target), true
	}
	for _, o := range others {
		if target == o {
			return canonical(target), true
		}
	}
	return typep.Undefined, false
}

var textTypes = []typep.SQLType{typep.Char, typep.Text, typep.LongText, typep.NVarchar, typep.Clob}

// builtin returns the built in Binder for vt as target, or nil when there's none.
// The error explains a near miss, like an enum without constants.
func builtin(vt typep.ValueType, target typep.SQLType) (Binder, error) {
	if vt.Container != typep.None {
		return nil, nil
	}
	switch vt.Kind {
	case typep.KindVoid:
		return voidBinder{base{vt: vt}}, nil
	case typep.KindRows:
		return rawBinder{base{vt: vt, sqlType: target}}, nil
	case typep.KindAny:
		return nil, nil
	}
	if vt.Nullable {
		inner, err := builtin(vt.Unboxed(), target)
		if inner == nil {
			return nil, err
		}
		if vt.Kind == typep.KindBytes {
			return bytesBinder{base{vt: vt, sqlType: inner.SQLType()}}, nil
		}
		return boxed(vt, inner), nil
	}

	var (
		sqlType typep.SQLType
		ok      bool
	)
	switch vt.Kind {
	case typep.KindByte, typep.KindShort, typep.KindInt:
		sqlType, ok = accepts(target, typep.Int, typep.Long, typep.TinyInt, typep.SmallInt)
	case typep.KindLong:
		sqlType, ok = accepts(target, typep.Long, typep.Int, typep.TinyInt, typep.SmallInt)
	case typep.KindFloat:
		sqlType, ok = accepts(target, typep.Float, typep.Double, typep.Real)
	case typep.KindDouble:
		sqlType, ok = accepts(target, typep.Double, typep.Float, typep.Real)
	case typep.KindBool:
		sqlType, ok = accepts(target, typep.Boolean, typep.TinyInt, typep.Int)
	case typep.KindChar:
		sqlType, ok = accepts(target, typep.Char, typep.Varchar, typep.NVarchar)
	case typep.KindString:
		sqlType, ok = accepts(target, typep.Varchar, textTypes...)
	case typep.KindBytes:
		sqlType, ok = accepts(target, typep.Binary)
		if ok {
			return bytesBinder{base{vt: vt, sqlType: sqlType}}, nil
		}
	case typep.KindDecimal:
		sqlType, ok = accepts(target, typep.Decimal)
		if ok {
			return decimalBinder{base{vt: vt, sqlType: sqlType}}, nil
		}
	case typep.KindTemporal:
		sqlType, ok = accepts(target, typep.Timestamp, typep.Date, typep.Time)
		if ok {
			return temporalBinder{base{vt: vt, sqlType: sqlType}}, nil
		}
	case typep.KindEnum:
		sqlType, ok = accepts(target, typep.Varchar, textTypes...)
		if ok {
			return newEnumBinder(base{vt: vt, sqlType: sqlType})
		}
	}
	if !ok {
		return nil, nil
	}
	if vt.Kind == typep.KindString {
		return stringBinder{base{vt: vt, sqlType: sqlType}}, nil
	}
	return primitive(vt, sqlType), nil
}
