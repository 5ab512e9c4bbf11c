package bindp

import (
	"github.com/greghart/daop/errp"
	"github.com/greghart/daop/typep"
)

// BoundField is a Field with its resolved column type and Binder.
type BoundField struct {
	typep.Field
	SQLType typep.SQLType
	Binder  Binder
}

// ResolveField resolves one field of decl. Failures are labeled "decl.Name".
func (r *Registry) ResolveField(decl string, f typep.Field) (BoundField, error) {
	vt := f.Type
	if f.Nullable && !vt.Nullable {
		vt = vt.Boxed()
	}
	b, err := r.Resolve(vt, f.Hint)
	if err != nil {
		return BoundField{}, errp.WithOp(decl+"."+f.Name, err)
	}
	return BoundField{Field: f, SQLType: b.SQLType(), Binder: b}, nil
}

// ResolveFields resolves every field of decl, reporting every failing field rather than the first.
func (r *Registry) ResolveFields(decl string, fields []typep.Field) ([]BoundField, error) {
	var errs errp.List
	bound := make([]BoundField, 0, len(fields))
	for _, f := range fields {
		bf, err := r.ResolveField(decl, f)
		if err != nil {
			errs = errs.Add(err)
			continue
		}
		bound = append(bound, bf)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}
	return bound, nil
}
