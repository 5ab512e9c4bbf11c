package sqlp

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/greghart/daop/errp"
)

// ManagedConnection is a caller owned unit of work over one connection. Every statement it
// prepares is tracked, so Close releases the connection and closes whatever is still open.
type ManagedConnection struct {
	conn   *Conn
	stmts  sync.Map // map[*Statement]struct{}
	closed atomic.Bool
}

// Manage acquires a connection for a unit of work. Close it when done.
func (db *DB) Manage(ctx context.Context) (*ManagedConnection, error) {
	conn, err := db.conn(ctx)
	if err != nil {
		return nil, err
	}
	return &ManagedConnection{conn: conn}, nil
}

func (m *ManagedConnection) Begin(ctx context.Context) error { return m.conn.Begin(ctx) }
func (m *ManagedConnection) Commit() error                   { return m.conn.Commit() }
func (m *ManagedConnection) Rollback() error                 { return m.conn.Rollback() }

// Prepare prepares a statement tracked by this unit of work.
func (m *ManagedConnection) Prepare(ctx context.Context, query string) (*Statement, error) {
	if m.closed.Load() {
		return nil, errp.Driver("prepare", errClosedUnit)
	}
	s, err := m.conn.Prepare(ctx, m.conn.db.Rebind(query))
	if err != nil {
		return nil, err
	}
	m.open(s)
	return s, nil
}

// join returns a Conn for handlers running inside this unit of work. It shares the unit's
// connection and transaction, and releasing it is a no-op.
func (m *ManagedConnection) join() *Conn {
	return &Conn{db: m.conn.db, conn: m.conn.conn, unit: m}
}

func (m *ManagedConnection) open(s *Statement) {
	m.stmts.Store(s, struct{}{})
	s.onClose = func() { m.stmts.Delete(s) }
}

// Open returns how many statements are still open.
func (m *ManagedConnection) Open() int {
	n := 0
	m.stmts.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Close closes every open statement, rolls back an open transaction and releases the connection.
func (m *ManagedConnection) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	var errs errp.List
	m.stmts.Range(func(k, _ any) bool {
		errs = errs.Add(k.(*Statement).Close())
		return true
	})
	errs = errs.Add(m.conn.Release())
	return errs.Err()
}
