package sqlp

import (
	"context"

	"github.com/greghart/daop/errp"
)

// writeHandler runs an update or delete statement, once per entity or with plain arguments.
type writeHandler[E any] struct {
	*handler
	table *Table
	args  func(t *Table, e any) ([]any, error)
}

// Exec runs the statement once with args, each written through its binder, returning the row count.
func (h *writeHandler[E]) Exec(ctx context.Context, args ...any) (int64, error) {
	bound, err := h.db.Args(args...)
	if err != nil {
		return 0, errp.WithOp(h.op, err)
	}
	return h.run(ctx, [][]any{bound}, true)
}

func (h *writeHandler[E]) one(ctx context.Context, e E) (int64, error) {
	return h.all(ctx, []E{e})
}

func (h *writeHandler[E]) all(ctx context.Context, es []E) (int64, error) {
	if len(es) == 0 {
		return 0, nil
	}
	args := make([][]any, len(es))
	for i, e := range es {
		a, err := h.args(h.table, e)
		if err != nil {
			return 0, errp.WithOp(h.op, err)
		}
		args[i] = a
	}
	return h.run(ctx, args, h.db.atomicMultiRow)
}

// run executes once per argument set, accumulating row counts. Each execution commits on its own
// unless atomic, in which case they all share one transaction. Executions committed before a
// failure stay committed, and their count is returned with the error.
func (h *writeHandler[E]) run(ctx context.Context, args [][]any, atomic bool) (count int64, err error) {
	c, err := h.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer c.done(&err)

	// what stays committed after a failure
	committed := func() int64 {
		if atomic {
			return 0
		}
		return count
	}

	if atomic {
		if err := c.Begin(ctx); err != nil {
			return 0, errp.WithOp(h.op, err)
		}
	}
	for _, a := range args {
		if !atomic {
			if err := c.Begin(ctx); err != nil {
				return count, errp.WithOp(h.op, err)
			}
		}
		if err := h.bind(c.stmt, a); err != nil {
			return committed(), h.rollback(ctx, c, err)
		}
		res, err := c.stmt.Execute(ctx)
		if err != nil {
			return committed(), h.rollback(ctx, c, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return committed(), h.rollback(ctx, c, err)
		}
		if !atomic {
			if err := c.Commit(); err != nil {
				return count, errp.WithOp(h.op, err)
			}
		}
		count += n
	}
	if atomic {
		if err := c.Commit(); err != nil {
			return 0, errp.WithOp(h.op, err)
		}
	}
	return count, nil
}

////////////////////////////////////////////////////////////////////////////////

// UpdateHandler updates entities of type E with a caller supplied statement, whose parameters are
// the table's UpdateColumns followed by its KeyColumns.
type UpdateHandler[E any] struct {
	writeHandler[E]
}

func NewUpdateHandler[E any](db *DB, query string, opts ...HandlerOption) (*UpdateHandler[E], error) {
	table, err := TableOf[E](db)
	if err != nil {
		return nil, err
	}
	return &UpdateHandler[E]{writeHandler[E]{
		handler: newHandler(db, "update", query, opts),
		table:   table,
		args:    (*Table).UpdateArgs,
	}}, nil
}

// Update updates one entity in a transaction, returning the row count.
func (h *UpdateHandler[E]) Update(ctx context.Context, e E) (int64, error) {
	return h.one(ctx, e)
}

// UpdateAll updates each entity in a transaction of its own, returning the total row count.
// See WithAtomicMultiRow.
func (h *UpdateHandler[E]) UpdateAll(ctx context.Context, es ...E) (int64, error) {
	return h.all(ctx, es)
}

// DeleteHandler deletes entities of type E with a caller supplied statement, whose parameters
// are the table's KeyColumns.
type DeleteHandler[E any] struct {
	writeHandler[E]
}

func NewDeleteHandler[E any](db *DB, query string, opts ...HandlerOption) (*DeleteHandler[E], error) {
	table, err := TableOf[E](db)
	if err != nil {
		return nil, err
	}
	return &DeleteHandler[E]{writeHandler[E]{
		handler: newHandler(db, "delete", query, opts),
		table:   table,
		args:    (*Table).KeyArgs,
	}}, nil
}

// Delete deletes one entity in a transaction, returning the row count.
func (h *DeleteHandler[E]) Delete(ctx context.Context, e E) (int64, error) {
	return h.one(ctx, e)
}

// DeleteAll deletes each entity in a transaction of its own, returning the total row count.
// See WithAtomicMultiRow.
func (h *DeleteHandler[E]) DeleteAll(ctx context.Context, es ...E) (int64, error) {
	return h.all(ctx, es)
}
