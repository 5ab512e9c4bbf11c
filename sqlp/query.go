package sqlp

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"

	"github.com/greghart/daop/bindp"
	"github.com/greghart/daop/errp"
	"github.com/greghart/daop/mapperp"
	"github.com/greghart/daop/queryp"
	"github.com/greghart/daop/sqlp/internal/reflectp"
	"github.com/greghart/daop/typep"
)

// QueryHandler runs a caller supplied query, reading rows as T. Structs are read column by
// column through their table, anything else from the first column through its binder.
type QueryHandler[T any] struct {
	*handler
	// names of the parameters of a named query, in binding order
	names  []string
	table  *Table
	binder bindp.Binder
}

func NewQueryHandler[T any](db *DB, query string, opts ...HandlerOption) (*QueryHandler[T], error) {
	h := &QueryHandler[T]{handler: newHandler(db, "query", query, opts)}
	t := reflect.TypeFor[T]()
	vt := typep.Of(t)
	if vt.Kind == typep.KindStruct && t.Kind() == reflect.Struct {
		table, err := db.Table(t)
		if err != nil {
			return nil, err
		}
		h.table = table
		return h, nil
	}
	if t.Kind() == reflect.Interface {
		// values come back as the driver hands them over
		h.binder = bindp.Raw(vt)
		return h, nil
	}
	binder, err := db.registry.Resolve(vt, typep.Undefined)
	if err != nil {
		return nil, errp.WithOp("query", err)
	}
	h.binder = binder
	return h, nil
}

// NewNamedQueryHandler is NewQueryHandler for a query with :name parameters, bound from a map
// with OneNamed and ListNamed.
func NewNamedQueryHandler[T any](db *DB, query string, opts ...HandlerOption) (*QueryHandler[T], error) {
	positional, names := queryp.Positional(query, db.placeholderer)
	h, err := NewQueryHandler[T](db, positional, opts...)
	if err != nil {
		return nil, err
	}
	h.names = names
	return h, nil
}

// One returns the first row, or the zero T without rows.
func (h *QueryHandler[T]) One(ctx context.Context, args ...any) (T, error) {
	return Fold(ctx, h, mapperp.First[T, T](mapperp.Self[T]), args...)
}

// List returns every row.
func (h *QueryHandler[T]) List(ctx context.Context, args ...any) ([]T, error) {
	return Fold(ctx, h, mapperp.Append[T, T](mapperp.Self[T]), args...)
}

// OneNamed is One with named parameters.
func (h *QueryHandler[T]) OneNamed(ctx context.Context, params map[string]any) (T, error) {
	args, err := h.named(params)
	if err != nil {
		var zero T
		return zero, err
	}
	return h.One(ctx, args...)
}

// ListNamed is List with named parameters.
func (h *QueryHandler[T]) ListNamed(ctx context.Context, params map[string]any) ([]T, error) {
	args, err := h.named(params)
	if err != nil {
		return nil, err
	}
	return h.List(ctx, args...)
}

func (h *QueryHandler[T]) named(params map[string]any) ([]any, error) {
	if h.names == nil {
		return nil, errp.Resolution(h.op, "query has no named parameters")
	}
	args := make([]any, len(h.names))
	for i, name := range h.names {
		v, ok := params[name]
		if !ok {
			return nil, errp.Data(h.op, "missing parameter %q", name)
		}
		args[i] = v
	}
	return args, nil
}

// Grid returns every row as raw driver values.
func (h *QueryHandler[T]) Grid(ctx context.Context, args ...any) (grid [][]any, err error) {
	err = h.each(ctx, args, func(rows *sql.Rows) (func(int) error, error) {
		cols, err := rows.Columns()
		if err != nil {
			return nil, err
		}
		return func(int) error {
			values := make([]any, len(cols))
			targets := make([]any, len(cols))
			for i := range values {
				targets[i] = &values[i]
			}
			if err := rows.Scan(targets...); err != nil {
				return errp.Driver(h.op, err)
			}
			grid = append(grid, values)
			return nil
		}, nil
	})
	return grid, err
}

// Rows runs the query on the pool, or the transaction of ctx, handing back the cursor as is.
// Close it when done.
func (h *QueryHandler[T]) Rows(ctx context.Context, args ...any) (*sql.Rows, error) {
	bound, err := h.db.Args(args...)
	if err != nil {
		return nil, errp.WithOp(h.op, err)
	}
	if len(bound) != h.params {
		return nil, errp.Resolution(h.op, "statement binds %d parameters, got %d", h.params, len(bound))
	}
	rows, err := h.db.queryer(ctx).QueryContext(ctx, h.query, bound...)
	if err != nil {
		return nil, errp.Driver(h.op, err)
	}
	return rows, nil
}

// Fold folds every row of the query into Out with mapper.
//
//	users, err := sqlp.Fold(ctx, h, mapperp.Distinct(userID, userOf, mapperp.Last(orders)))
func Fold[T any, Out any](ctx context.Context, h *QueryHandler[T], mapper mapperp.Mapper[T, Out], args ...any) (out Out, err error) {
	err = h.each(ctx, args, func(rows *sql.Rows) (func(int) error, error) {
		decode, err := h.decoder(rows)
		if err != nil {
			return nil, err
		}
		return func(i int) error {
			var row T
			if err := decode(&row); err != nil {
				return err
			}
			mapper(&out, &row, i)
			return nil
		}, nil
	})
	if err != nil {
		var zero Out
		return zero, err
	}
	return out, nil
}

// each runs the query, calling the row function start builds for every row.
func (h *QueryHandler[T]) each(ctx context.Context, args []any, start func(*sql.Rows) (func(int) error, error)) (err error) {
	bound, err := h.db.Args(args...)
	if err != nil {
		return errp.WithOp(h.op, err)
	}
	c, err := h.acquire(ctx)
	if err != nil {
		return err
	}
	defer c.done(&err)
	if err := h.bind(c.stmt, bound); err != nil {
		return errp.WithOp(h.op, err)
	}

	rows, err := c.stmt.Query(ctx)
	if err != nil {
		return errp.WithOp(h.op, err)
	}
	defer rows.Close()

	row, err := start(rows)
	if err != nil {
		return errp.WithOp(h.op, err)
	}
	for i := 0; rows.Next(); i++ {
		if err := row(i); err != nil {
			return errp.WithOp(h.op, err)
		}
	}
	return errp.Driver(h.op, rows.Err())
}

// decoder reads the current row into a T.
func (h *QueryHandler[T]) decoder(rows *sql.Rows) (func(*T) error, error) {
	if h.table != nil {
		reader, err := h.table.reader(rows)
		if err != nil {
			return nil, err
		}
		return func(dst *T) error {
			return reader.scan(rows, reflect.ValueOf(dst).Elem())
		}, nil
	}

	cols, err := rows.Columns()
	if err != nil {
		return nil, errp.Driver(h.op, err)
	}
	values := make(bindp.Values, len(cols))
	targets := make([]any, len(cols))
	for i := range values {
		targets[i] = &values[i]
	}
	return func(dst *T) error {
		if err := rows.Scan(targets...); err != nil {
			return errp.Driver(h.op, fmt.Errorf("failed to scan row: %w", err))
		}
		v, err := h.binder.Read(values, 0)
		if err != nil {
			return err
		}
		if err := reflectp.Assign(reflect.ValueOf(dst).Elem(), v); err != nil {
			return errp.Data(h.op, "%v", err)
		}
		return nil
	}, nil
}
