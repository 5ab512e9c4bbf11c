package sqlp

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"

	"github.com/greghart/daop/bindp"
	"github.com/greghart/daop/errp"
	"github.com/greghart/daop/sqlp/internal/reflectp"
	"github.com/greghart/daop/typep"
)

// Table is the resolved column layout of an entity type.
type Table struct {
	Name string
	Type reflect.Type

	fields *reflectp.Fields
	bound  []bindp.BoundField
	// field positions, in binding order
	inserts, updates, keys []int
}

// Tabler overrides the table name of an entity. By default it's the plural, snake cased type name.
type Tabler interface {
	TableName() string
}

// Table returns the table of struct type t, resolving it on first use.
func (db *DB) Table(t reflect.Type) (*Table, error) {
	db.tablesMu.Lock()
	defer db.tablesMu.Unlock()
	if table, ok := db.tables[t]; ok {
		return table, nil
	}

	fields, err := reflectp.FieldsFactory(t)
	if err != nil {
		return nil, errp.Resolution(t.String(), "failed to reflect fields: %v", err)
	}
	bound, err := db.registry.ResolveFields(t.Name(), fields.Declarations())
	if err != nil {
		return nil, err
	}
	table := &Table{Name: tableName(t), Type: t, fields: fields, bound: bound}
	for i, f := range bound {
		if !f.HasDefault {
			table.inserts = append(table.inserts, i)
		}
		if f.Key {
			table.keys = append(table.keys, i)
		} else if f.Access != typep.Constructor {
			table.updates = append(table.updates, i)
		}
	}
	db.tables[t] = table
	return table, nil
}

// TableOf returns the table of entity type E.
func TableOf[E any](db *DB) (*Table, error) {
	return db.Table(reflect.TypeFor[E]())
}

func tableName(t reflect.Type) string {
	if tabler, ok := reflect.New(t).Interface().(Tabler); ok {
		return tabler.TableName()
	}
	return inflection.Plural(snakeCase(t.Name()))
}

// snakeCase turns UserAccount into user_account, keeping acronyms together: HTTPLog is http_log.
func snakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			next := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if i > 0 && (unicode.IsLower(runes[i-1]) || next) {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Fields returns every resolved field, in declaration order.
func (t *Table) Fields() []bindp.BoundField {
	return t.bound
}

// Columns returns every column, in declaration order.
func (t *Table) Columns() []string {
	return t.columns(nil)
}

// InsertColumns returns the columns InsertArgs binds: those without a database default.
func (t *Table) InsertColumns() []string {
	return t.columns(t.inserts)
}

// UpdateColumns returns the columns UpdateArgs binds before the keys: neither keys nor read only.
func (t *Table) UpdateColumns() []string {
	return t.columns(t.updates)
}

// KeyColumns returns the primary key columns.
func (t *Table) KeyColumns() []string {
	return t.columns(t.keys)
}

func (t *Table) columns(positions []int) []string {
	if positions == nil {
		out := make([]string, len(t.bound))
		for i, f := range t.bound {
			out[i] = f.Column
		}
		return out
	}
	out := make([]string, len(positions))
	for i, p := range positions {
		out[i] = t.bound[p].Column
	}
	return out
}

// InsertArgs returns the arguments of an insert of e, in InsertColumns order.
func (t *Table) InsertArgs(e any) ([]any, error) {
	return t.args(e, t.inserts)
}

// UpdateArgs returns the arguments of an update of e: UpdateColumns, then KeyColumns.
func (t *Table) UpdateArgs(e any) ([]any, error) {
	if len(t.keys) == 0 {
		return nil, errp.Resolution(t.Name, "table has no key columns")
	}
	return t.args(e, append(append([]int(nil), t.updates...), t.keys...))
}

// KeyArgs returns the key arguments of e, in KeyColumns order.
func (t *Table) KeyArgs(e any) ([]any, error) {
	if len(t.keys) == 0 {
		return nil, errp.Resolution(t.Name, "table has no key columns")
	}
	return t.args(e, t.keys)
}

func (t *Table) args(e any, positions []int) ([]any, error) {
	v, err := t.addressable(e)
	if err != nil {
		return nil, err
	}
	args := make([]any, len(positions))
	for i, p := range positions {
		f := t.bound[p]
		arg, err := f.Binder.Write(t.fields.List[p].Get(v))
		if err != nil {
			return nil, errp.WithOp(t.Name+"."+f.Name, err)
		}
		args[i] = arg
	}
	return args, nil
}

// addressable returns an addressable struct value for e, a struct or pointer to one.
func (t *Table) addressable(e any) (reflect.Value, error) {
	v := reflect.ValueOf(e)
	if v.Kind() == reflect.Pointer && !v.IsNil() {
		v = v.Elem()
	}
	if !v.IsValid() || v.Type() != t.Type {
		return reflect.Value{}, errp.Data(t.Name, "given %T, expected %v", e, t.Type)
	}
	if v.CanAddr() {
		return v, nil
	}
	p := reflect.New(t.Type).Elem()
	p.Set(v)
	return p, nil
}

////////////////////////////////////////////////////////////////////////////////

// rowReader scans rows of one column layout into entities through their binders.
type rowReader struct {
	table *Table
	// field position per column, -1 for columns we don't know about
	fields  []int
	values  []any
	targets []any
}

func (t *Table) reader(rows *sql.Rows) (*rowReader, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, errp.Driver(t.Name, fmt.Errorf("failed to get columns: %w", err))
	}
	positions := make(map[*reflectp.Field]int, len(t.fields.List))
	for i, f := range t.fields.List {
		positions[f] = i
	}
	r := &rowReader{
		table:   t,
		fields:  make([]int, len(cols)),
		values:  make([]any, len(cols)),
		targets: make([]any, len(cols)),
	}
	for i, col := range cols {
		r.targets[i] = &r.values[i]
		r.fields[i] = -1
		// Selecting * shouldn't break when a column is added, so unknown columns are skipped.
		if f, ok := t.fields.Column(col); ok {
			r.fields[i] = positions[f]
		}
	}
	return r, nil
}

// scan scans the current row onto dst, an addressable struct value.
func (r *rowReader) scan(rows *sql.Rows, dst reflect.Value) error {
	if err := rows.Scan(r.targets...); err != nil {
		return errp.Driver(r.table.Name, fmt.Errorf("failed to scan row: %w", err))
	}
	for i, p := range r.fields {
		if p < 0 {
			continue
		}
		f := r.table.bound[p]
		v, err := f.Binder.Read(bindp.Values(r.values), i)
		if err != nil {
			return errp.WithOp(r.table.Name+"."+f.Name, err)
		}
		if err := r.table.fields.List[p].Set(dst, v); err != nil {
			return errp.Data(r.table.Name, "%v", err)
		}
	}
	return nil
}
