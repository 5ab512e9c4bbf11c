package methodp

import (
	"github.com/greghart/daop/bindp"
	"github.com/greghart/daop/errp"
	"github.com/greghart/daop/typep"
)

// Plan is every resolved decision for one entity and its DAO methods.
// It's self contained, so whatever renders or runs it needs no access to the Registry.
type Plan struct {
	Entity   string
	Fields   []bindp.BoundField
	Bindings []Binding
}

// Binding finds a method's binding by name.
func (p *Plan) Binding(name string) (Binding, bool) {
	for _, b := range p.Bindings {
		if b.Method.Name == name {
			return b, true
		}
	}
	return Binding{}, false
}

// Keys returns the primary key fields, in declaration order.
func (p *Plan) Keys() []bindp.BoundField {
	var keys []bindp.BoundField
	for _, f := range p.Fields {
		if f.Key {
			keys = append(keys, f)
		}
	}
	return keys
}

// Build resolves an entity's fields and methods. Every failing declaration is reported, not just
// the first.
func Build(reg *bindp.Registry, entity string, fields []typep.Field, methods []Method) (*Plan, error) {
	var errs errp.List
	bound, err := reg.ResolveFields(entity, fields)
	errs = errs.Add(err)

	plan := &Plan{Entity: entity, Fields: bound}
	for _, m := range methods {
		b, err := Select(reg, m)
		if err != nil {
			errs = errs.Add(errp.WithOp(entity+"."+m.Name, err))
			continue
		}
		plan.Bindings = append(plan.Bindings, b)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}
	return plan, nil
}
