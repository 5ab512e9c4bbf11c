package reflectp

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/greghart/daop/typep"
)

// Field is one column of a struct, along with how to reach it on a value.
// Adapted from json package reflection, flattened since we only deal with tabular data.
type Field struct {
	typep.Field

	// Tag is whether the column was named by a struct tag.
	Tag bool
	// getter and setter method names, for accessor fields.
	getter string
	setter string
}

// Get reads the field off strct, which must be an addressable struct value.
func (f *Field) Get(strct reflect.Value) any {
	if f.Access == typep.Accessor {
		return strct.Addr().MethodByName(f.getter).Call(nil)[0].Interface()
	}
	return fieldByIndex(strct, f.Index).Interface()
}

// Set writes v onto the field of strct, converting it to the field's type.
// nil zeroes the field.
func (f *Field) Set(strct reflect.Value, v any) error {
	if f.Access == typep.Accessor {
		setter := strct.Addr().MethodByName(f.setter)
		arg := reflect.New(setter.Type().In(0)).Elem()
		if err := Assign(arg, v); err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
		setter.Call([]reflect.Value{arg})
		return nil
	}
	if err := Assign(fieldByIndex(strct, f.Index), v); err != nil {
		return fmt.Errorf("%s: %w", f.Name, err)
	}
	return nil
}

////////////////////////////////////////////////////////////////////////////////

// Fields represents the column fields of a struct, in declaration order.
type Fields struct {
	Type         reflect.Type
	List         []*Field
	ByColumnName map[string]*Field
}

// Column looks up a field by column name, falling back to a case insensitive match since most
// databases fold unquoted identifiers.
func (fs *Fields) Column(name string) (*Field, bool) {
	if f, ok := fs.ByColumnName[name]; ok {
		return f, true
	}
	for _, f := range fs.List {
		if strings.EqualFold(f.Column, name) {
			return f, true
		}
	}
	return nil, false
}

// Declarations returns the typep view of every field.
func (fs *Fields) Declarations() []typep.Field {
	out := make([]typep.Field, len(fs.List))
	for i, f := range fs.List {
		out[i] = f.Field
	}
	return out
}

var fieldsCache sync.Map // map[reflect.Type]*Fields

// FieldsFactory returns the cached fields of struct type t.
func FieldsFactory(t reflect.Type) (*Fields, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("given %v, expected struct", t.Kind())
	}
	if f, ok := fieldsCache.Load(t); ok {
		return f.(*Fields), nil
	}
	f, err := newFields(t, nil, "", map[reflect.Type]bool{})
	if err != nil {
		return nil, err
	}
	fCache, _ := fieldsCache.LoadOrStore(t, f)
	return fCache.(*Fields), nil
}

// newFields reflects the fields of struct t, whose own fields live at index under the root
// struct and whose columns are prefixed with prefix.
func newFields(t reflect.Type, index []int, prefix string, visited map[reflect.Type]bool) (*Fields, error) {
	if visited[t] {
		return nil, fmt.Errorf("recursive embedding of %v", t)
	}
	visited[t] = true
	defer delete(visited, t)

	fields := &Fields{Type: t, ByColumnName: make(map[string]*Field, t.NumField())}
	add := func(f *Field) error {
		if _, ok := fields.ByColumnName[f.Column]; ok {
			return fmt.Errorf("duplicate column name %s", f.Column)
		}
		fields.ByColumnName[f.Column] = f
		fields.List = append(fields.List, f)
		return nil
	}

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := sf.Tag.Get("sqlp")
		if tag == "-" {
			continue
		}
		column, opts := parseTag(tag)
		if !isValidTag(column) {
			column = ""
		}
		tagged := column != ""

		ft := sf.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		// Whether to "promote" field: normal go embeds or opt-ins
		promote := (opts.Contains("promote") || (sf.Anonymous && !tagged)) &&
			ft.Kind() == reflect.Struct && typep.Of(ft).Kind == typep.KindStruct
		path := append(append([]int(nil), index...), i)

		if promote {
			if sf.Type.Kind() == reflect.Pointer {
				return nil, fmt.Errorf("can't promote pointer field %s", sf.Name)
			}
			sub := prefix
			if tagged {
				sub = prefix + column + "_"
			}
			embedded, err := newFields(ft, path, sub, visited)
			if err != nil {
				return nil, fmt.Errorf("failed to process sub struct %s: %w", sf.Name, err)
			}
			for _, f := range embedded.List {
				if err := add(f); err != nil {
					return nil, fmt.Errorf("%w in embedded struct %s", err, sf.Name)
				}
			}
			continue
		}

		accessor := opts.Contains("accessor")
		if (sf.Anonymous && !tagged) || (!sf.IsExported() && !accessor) {
			continue
		}
		if column == "" {
			column = sf.Name
		}

		field := &Field{
			Field: typep.Field{
				Name:       sf.Name,
				Column:     prefix + column,
				Type:       typep.Of(sf.Type),
				Nullable:   opts.Contains("null") || sf.Type.Kind() == reflect.Pointer,
				HasDefault: opts.Contains("default"),
				Key:        opts.Contains("pk"),
				Index:      path,
			},
			Tag: tagged,
		}
		if v, ok := opts.Value("type"); ok {
			st, ok := typep.ParseSQLType(v)
			if !ok {
				return nil, fmt.Errorf("field %s: unknown column type %q", sf.Name, v)
			}
			field.Hint = st
		}
		if opts.Contains("readonly") {
			field.Access = typep.Constructor
		}
		if accessor {
			if err := field.accessors(sf, t); err != nil {
				return nil, err
			}
		}
		if err := add(field); err != nil {
			return nil, err
		}
	}
	return fields, nil
}

// accessors wires Name() and SetName(v) methods of owner for field sf.
func (f *Field) accessors(sf reflect.StructField, owner reflect.Type) error {
	r, size := utf8.DecodeRuneInString(sf.Name)
	exported := string(unicode.ToUpper(r)) + sf.Name[size:]
	f.getter, f.setter = exported, "Set"+exported

	pt := reflect.PointerTo(owner)
	get, ok := pt.MethodByName(f.getter)
	if !ok || get.Type.NumIn() != 1 || get.Type.NumOut() != 1 || get.Type.Out(0) != sf.Type {
		return fmt.Errorf("accessor field %s needs a %s() %v method", sf.Name, f.getter, sf.Type)
	}
	set, ok := pt.MethodByName(f.setter)
	if !ok || set.Type.NumIn() != 2 || set.Type.In(1) != sf.Type {
		return fmt.Errorf("accessor field %s needs a %s(%v) method", sf.Name, f.setter, sf.Type)
	}
	if len(f.Index) != 1 {
		return fmt.Errorf("accessor field %s can't be promoted", sf.Name)
	}
	f.Access = typep.Accessor
	return nil
}

////////////////////////////////////////////////////////////////////////////////

// fieldByIndex walks index from strct. Promoted fields are never behind pointers.
func fieldByIndex(strct reflect.Value, index []int) reflect.Value {
	v := reflect.Indirect(strct)
	for _, i := range index {
		v = reflect.Indirect(v).Field(i)
	}
	return v
}

// Assign sets dst to v, allocating pointers and converting between compatible kinds.
func Assign(dst reflect.Value, v any) error {
	if v == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	src := reflect.ValueOf(v)
	if src.Type().AssignableTo(dst.Type()) {
		dst.Set(src)
		return nil
	}
	if dst.Kind() == reflect.Pointer {
		if src.Kind() == reflect.Pointer {
			if src.IsNil() {
				dst.Set(reflect.Zero(dst.Type()))
				return nil
			}
			src = src.Elem()
		}
		elem := reflect.New(dst.Type().Elem())
		if err := Assign(elem.Elem(), src.Interface()); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	}
	// int to string conversions produce runes, never what a column meant
	if dst.Kind() == reflect.String && src.Kind() != reflect.String {
		return fmt.Errorf("can't assign %v to %v", src.Type(), dst.Type())
	}
	if src.Type().ConvertibleTo(dst.Type()) {
		dst.Set(src.Convert(dst.Type()))
		return nil
	}
	return fmt.Errorf("can't assign %v to %v", src.Type(), dst.Type())
}

////////////////////////////////////////////////////////////////////////////////

// tagOptions is the string following a comma in a struct field's "sqlp"
// tag, or the empty string. It does not include the leading comma.
type tagOptions string

func parseTag(tag string) (string, tagOptions) {
	tag, opt, _ := strings.Cut(tag, ",")
	return tag, tagOptions(opt)
}

// Contains reports whether a comma-separated list of options
// contains a particular flag.
func (o tagOptions) Contains(optionName string) bool {
	_, ok := o.lookup(optionName)
	return ok
}

// Value returns the value of a key=value option.
func (o tagOptions) Value(optionName string) (string, bool) {
	v, ok := o.lookup(optionName)
	return v, ok && v != ""
}

func (o tagOptions) lookup(optionName string) (string, bool) {
	s := string(o)
	for s != "" {
		var opt string
		opt, s, _ = strings.Cut(s, ",")
		name, value, _ := strings.Cut(opt, "=")
		if name == optionName {
			return value, true
		}
	}
	return "", false
}

func isValidTag(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		switch {
		case strings.ContainsRune("!#$%&()*+-./:;<=>?@[]^_{|}~ ", c):
			// Backslash and quote chars are reserved, but
			// otherwise any punctuation chars are allowed
			// in a tag name.
		case !unicode.IsLetter(c) && !unicode.IsDigit(c):
			return false
		}
	}
	return true
}
