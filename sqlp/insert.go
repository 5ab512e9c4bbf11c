package sqlp

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/greghart/daop/bindp"
	"github.com/greghart/daop/errp"
	"github.com/greghart/daop/typep"
)

// InsertHandler inserts entities of type E with a caller supplied statement, whose parameters
// are the table's InsertColumns in order.
//
//	h, err := sqlp.NewInsertHandler[User](db, "INSERT INTO users (name, email) VALUES (?, ?)")
//	id, err := h.InsertAndReturnID(ctx, user)
type InsertHandler[E any] struct {
	*handler
	table *Table
	keys  bindp.Binder
}

func NewInsertHandler[E any](db *DB, query string, opts ...HandlerOption) (*InsertHandler[E], error) {
	table, err := TableOf[E](db)
	if err != nil {
		return nil, err
	}
	keys, err := db.registry.Resolve(typep.OfValue((*int64)(nil)), typep.Long)
	if err != nil {
		return nil, err
	}
	return &InsertHandler[E]{handler: newHandler(db, "insert", query, opts), table: table, keys: keys}, nil
}

// Table returns the table the handler binds entities with.
func (h *InsertHandler[E]) Table() *Table {
	return h.table
}

// Insert inserts one entity in a transaction.
func (h *InsertHandler[E]) Insert(ctx context.Context, e E) error {
	_, err := h.insert(ctx, []E{e}, false)
	return err
}

// InsertAll inserts entities in one transaction, batched when the driver supports it.
func (h *InsertHandler[E]) InsertAll(ctx context.Context, es ...E) error {
	_, err := h.insert(ctx, es, false)
	return err
}

// InsertAndReturnID inserts one entity, returning its generated key or 0 when there's none.
func (h *InsertHandler[E]) InsertAndReturnID(ctx context.Context, e E) (int64, error) {
	keys, err := h.insert(ctx, []E{e}, true)
	if err != nil || keys[0] == nil {
		return 0, err
	}
	return *keys[0], nil
}

// InsertAndReturnIDs inserts entities, returning their generated keys in input order.
// Entities without a generated key leave a 0.
func (h *InsertHandler[E]) InsertAndReturnIDs(ctx context.Context, es ...E) ([]int64, error) {
	keys, err := h.insert(ctx, es, true)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(keys))
	for i, key := range keys {
		if key != nil {
			ids[i] = *key
		}
	}
	return ids, nil
}

// InsertAndReturnBoxedIDs is InsertAndReturnIDs, leaving nil for entities without a generated key.
func (h *InsertHandler[E]) InsertAndReturnBoxedIDs(ctx context.Context, es ...E) ([]*int64, error) {
	return h.insert(ctx, es, true)
}

// InsertAndReturnIDList is InsertAndReturnIDs, skipping entities without a generated key.
// Positions then no longer line up with the input.
func (h *InsertHandler[E]) InsertAndReturnIDList(ctx context.Context, es ...E) ([]int64, error) {
	keys, err := h.insert(ctx, es, true)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(keys))
	for _, key := range keys {
		if key != nil {
			ids = append(ids, *key)
		}
	}
	return ids, nil
}

// insert inserts es in one transaction, returning when asked one key per entity in input order,
// nil where none was generated.
func (h *InsertHandler[E]) insert(ctx context.Context, es []E, returning bool) (keys []*int64, err error) {
	if len(es) == 0 {
		return nil, nil
	}
	// Bind everything up front, so a bad entity fails before anything runs.
	args := make([][]any, len(es))
	for i, e := range es {
		if args[i], err = h.table.InsertArgs(e); err != nil {
			return nil, errp.WithOp(h.op, err)
		}
	}
	mode := h.mode()

	c, err := h.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer c.done(&err)
	caps, err := c.capabilities(ctx)
	if err != nil {
		return nil, errp.WithOp(h.op, err)
	}
	if err := c.Begin(ctx); err != nil {
		return nil, errp.WithOp(h.op, err)
	}

	keys = make([]*int64, len(es))
	if len(es) > 1 && caps.batch && (!returning || mode == KeyLastInsertID) {
		for _, a := range args {
			c.stmt.ClearParameters()
			if err := h.bind(c.stmt, a); err != nil {
				return nil, h.rollback(ctx, c, err)
			}
			c.stmt.AddBatch()
		}
		results, err := c.stmt.ExecuteBatch(ctx)
		if err != nil {
			return nil, h.rollback(ctx, c, err)
		}
		if returning {
			for i := range keys {
				if i < len(results) {
					keys[i] = lastInsertID(results[i])
				}
			}
		}
	} else {
		for i, a := range args {
			if err := h.bind(c.stmt, a); err != nil {
				return nil, h.rollback(ctx, c, err)
			}
			if keys[i], err = h.execute(ctx, c.stmt, returning, mode); err != nil {
				return nil, h.rollback(ctx, c, err)
			}
		}
	}

	if err := c.Commit(); err != nil {
		return nil, errp.WithOp(h.op, err)
	}
	if !returning {
		return nil, nil
	}
	return keys, nil
}

func (h *InsertHandler[E]) execute(ctx context.Context, stmt *Statement, returning bool, mode KeyMode) (*int64, error) {
	if returning && mode == KeyReturning {
		key, err := stmt.Returning(ctx)
		if err != nil {
			return nil, err
		}
		v, err := h.keys.Read(bindp.Values{key}, 0)
		if err != nil || v == nil {
			return nil, err
		}
		id := v.(int64)
		return &id, nil
	}
	res, err := stmt.Execute(ctx)
	if err != nil || !returning {
		return nil, err
	}
	return lastInsertID(res), nil
}

func (h *InsertHandler[E]) mode() KeyMode {
	if h.keyMode != KeyAuto {
		return h.keyMode
	}
	if h.db.bindType == sqlx.DOLLAR {
		return KeyReturning
	}
	return KeyLastInsertID
}

// lastInsertID is nil when the driver has no key for res.
func lastInsertID(res sql.Result) *int64 {
	if res == nil {
		return nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil
	}
	return &id
}
