package sqlp

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync/atomic"

	"github.com/greghart/daop/errp"
)

// SharedConnection caches one connection for repeated use, eg. by the handlers of one DAO.
//
// It's a cache, never a lock: the first caller takes the cached connection, and anyone calling
// while it's taken gets a fresh connection of their own instead of waiting.
type SharedConnection struct {
	db     *DB
	owned  atomic.Bool
	closed atomic.Bool

	// Only touched by the owner.
	cached *sql.Conn
	// gen counts replacements of cached, so statements prepared on an old one aren't reused.
	gen uint64
}

// NewSharedConnection returns a SharedConnection closed along with db. Nothing is connected
// until first use.
func (db *DB) NewSharedConnection() *SharedConnection {
	s := &SharedConnection{db: db}
	db.track(s)
	return s
}

// Acquire returns the cached connection if it's free, or a fresh unshared one. Release it when done.
func (s *SharedConnection) Acquire(ctx context.Context) (*Conn, error) {
	if s.closed.Load() {
		return nil, errp.Driver("acquire", sql.ErrConnDone)
	}
	if !s.owned.CompareAndSwap(false, true) {
		return s.db.conn(ctx)
	}
	if s.cached == nil {
		conn, err := s.db.DB.Conn(ctx)
		if err != nil {
			s.owned.Store(false)
			return nil, errp.Driver("acquire", err)
		}
		s.cached = conn
		s.gen++
	}
	return &Conn{db: s.db, conn: s.cached, shared: s, gen: s.gen}, nil
}

// Close closes the cached connection. If it's in use, it's closed on release instead.
func (s *SharedConnection) Close() error {
	s.closed.Store(true)
	if !s.owned.CompareAndSwap(false, true) {
		return nil
	}
	return s.drop()
}

// drop closes the cached connection, must be called by the owner.
func (s *SharedConnection) drop() error {
	if s.cached == nil {
		return nil
	}
	err := s.cached.Close()
	s.cached = nil
	if errors.Is(err, sql.ErrConnDone) {
		return nil
	}
	return err
}

////////////////////////////////////////////////////////////////////////////////

// Conn is one acquired connection, with at most one open transaction.
type Conn struct {
	db   *DB
	conn *sql.Conn
	tx   *sql.Tx

	// set for the cached connection of a SharedConnection
	shared *SharedConnection
	gen    uint64
	// set when joined to a unit of work, which owns the connection and transaction
	unit *ManagedConnection
	// bad marks a connection the driver reported broken
	bad bool
}

// conn acquires a fresh, unshared connection from the pool.
func (db *DB) conn(ctx context.Context) (*Conn, error) {
	conn, err := db.DB.Conn(ctx)
	if err != nil {
		return nil, errp.Driver("acquire", err)
	}
	return &Conn{db: db, conn: conn}, nil
}

// Shared reports whether this is the cached connection of a SharedConnection.
func (c *Conn) Shared() bool {
	return c.shared != nil
}

// Begin starts a transaction. It's a no-op inside a transaction already, or when the driver
// doesn't support them.
func (c *Conn) Begin(ctx context.Context) error {
	if c.unit != nil || c.tx != nil {
		return nil
	}
	caps, err := c.capabilities(ctx)
	if err != nil {
		return err
	}
	if !caps.tx {
		return nil
	}
	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return c.fail("begin", err)
	}
	c.tx = tx
	return nil
}

// capabilities of the driver, probed on this connection the first time.
func (c *Conn) capabilities(ctx context.Context) (capabilities, error) {
	return c.db.capabilities(ctx, c.conn)
}

// Commit commits the transaction Begin started, if any.
func (c *Conn) Commit() error {
	if c.unit != nil || c.tx == nil {
		return nil
	}
	tx := c.tx
	c.tx = nil
	return c.fail("commit", tx.Commit())
}

// Rollback rolls back the transaction Begin started, if any.
func (c *Conn) Rollback() error {
	if c.unit != nil || c.tx == nil {
		return nil
	}
	tx := c.tx
	c.tx = nil
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return c.fail("rollback", err)
	}
	return nil
}

// Prepare prepares query on this connection, inside the open transaction if any.
func (c *Conn) Prepare(ctx context.Context, query string) (*Statement, error) {
	var (
		stmt *sql.Stmt
		err  error
	)
	if tx := c.currentTx(); tx != nil {
		stmt, err = tx.PrepareContext(ctx, query)
	} else {
		stmt, err = c.conn.PrepareContext(ctx, query)
	}
	if err != nil {
		return nil, c.fail("prepare", err)
	}
	s := &Statement{conn: c, stmt: stmt, query: query, logger: c.db.logger}
	if c.unit != nil {
		c.unit.open(s)
	}
	return s, nil
}

// Release gives the connection back. Open transactions are rolled back.
func (c *Conn) Release() error {
	if c.unit != nil {
		return nil
	}
	err := c.Rollback()
	if c.shared == nil {
		if cerr := c.conn.Close(); cerr != nil && !errors.Is(cerr, sql.ErrConnDone) && err == nil {
			err = errp.Driver("release", cerr)
		}
		return err
	}
	s := c.shared
	if c.bad || s.closed.Load() {
		if derr := s.drop(); derr != nil && err == nil {
			err = errp.Driver("release", derr)
		}
	}
	s.owned.Store(false)
	return err
}

func (c *Conn) currentTx() *sql.Tx {
	if c.unit != nil {
		return c.unit.conn.tx
	}
	return c.tx
}

// queryer is the transaction if one is open, else the connection.
func (c *Conn) queryer() Queryer {
	if tx := c.currentTx(); tx != nil {
		return tx
	}
	return c.conn
}

// raw runs fn against the driver connection, which is only reachable outside a unit of work.
func (c *Conn) raw(fn func(dc any) error) error {
	if c.unit != nil {
		return errRawInUnit
	}
	return c.conn.Raw(fn)
}

var (
	errRawInUnit  = errors.New("driver connection isn't reachable inside a unit of work")
	errClosedUnit = errors.New("unit of work is closed")
)

// fail wraps err as a driver error, noting broken connections so they aren't cached again.
func (c *Conn) fail(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		c.bad = true
	}
	return errp.Driver(op, err)
}
