package sqlp

import (
	"context"
	"sync/atomic"

	"github.com/greghart/daop/errp"
	"github.com/greghart/daop/queryp"
)

// handler runs one statement template. Its prepared statement is cached for whoever holds the
// handler's SharedConnection, and owned by one caller at a time; anyone else prepares a fresh one.
type handler struct {
	db      *DB
	op      string
	query   string
	params  int
	conn    *SharedConnection
	keyMode KeyMode

	owned  atomic.Bool
	cached *Statement
	gen    uint64
}

func newHandler(db *DB, op, query string, opts []HandlerOption) *handler {
	cfg := handlerConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.conn == nil {
		cfg.conn = db.NewSharedConnection()
	}
	query = db.Rebind(query)
	return &handler{
		db:      db,
		op:      op,
		query:   query,
		params:  queryp.Count(query),
		conn:    cfg.conn,
		keyMode: cfg.keyMode,
	}
}

// call is one acquired connection and prepared statement.
type call struct {
	*Conn
	stmt    *Statement
	release func() error
}

// acquire gets a connection and statement for one call. Inside a unit of work they're the unit's.
func (h *handler) acquire(ctx context.Context) (*call, error) {
	if unit := h.db.unit(ctx); unit != nil {
		conn := unit.join()
		stmt, err := conn.Prepare(ctx, h.query)
		if err != nil {
			return nil, errp.WithOp(h.op, err)
		}
		return &call{Conn: conn, stmt: stmt, release: stmt.Close}, nil
	}

	conn, err := h.conn.Acquire(ctx)
	if err != nil {
		return nil, errp.WithOp(h.op, err)
	}
	if conn.Shared() && h.owned.CompareAndSwap(false, true) {
		if h.cached == nil || h.gen != conn.gen {
			if h.cached != nil {
				_ = h.cached.Close() // its connection is gone
			}
			stmt, err := conn.Prepare(ctx, h.query)
			if err != nil {
				h.cached = nil
				h.owned.Store(false)
				return nil, errp.WithOp(h.op, releaseAfter(conn, err))
			}
			h.cached, h.gen = stmt, conn.gen
		}
		h.cached.conn = conn
		return &call{Conn: conn, stmt: h.cached, release: func() error {
			h.cached.ClearParameters()
			h.owned.Store(false)
			return conn.Release()
		}}, nil
	}

	stmt, err := conn.Prepare(ctx, h.query)
	if err != nil {
		return nil, errp.WithOp(h.op, releaseAfter(conn, err))
	}
	return &call{Conn: conn, stmt: stmt, release: func() error {
		serr := stmt.Close()
		if err := conn.Release(); err != nil {
			return err
		}
		return serr
	}}, nil
}

// done releases the call, keeping err if there was one already.
func (c *call) done(err *error) {
	if rerr := c.release(); rerr != nil && *err == nil {
		*err = rerr
	}
}

// bind checks the argument count against the statement and binds them.
func (h *handler) bind(stmt *Statement, args []any) error {
	if len(args) != h.params {
		return errp.Resolution("", "statement binds %d parameters, got %d", h.params, len(args))
	}
	stmt.Bind(args...)
	return nil
}

// rollback rolls back after err, logging a failed rollback.
func (h *handler) rollback(ctx context.Context, c *call, err error) error {
	if rerr := c.Rollback(); rerr != nil {
		h.db.logger.WarnContext(ctx, "failed to rollback", "op", h.op, "error", rerr)
	}
	return errp.WithOp(h.op, err)
}

func releaseAfter(conn *Conn, err error) error {
	_ = conn.Release()
	return err
}
