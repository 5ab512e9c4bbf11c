package sqlp

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"testing"
)

// recorder is an in memory driver recording every call made to it, to check exact call sequences.
type recorder struct {
	mu     sync.Mutex
	events []string

	batch bool // connections implement BatchExecer
	meta  *capabilities
	// generated keys skip these executions, counted from 1
	missing map[int]bool
	// fail the n'th execution, counted from 1
	failAt  int
	execs   int
	columns []string
	rows    [][]driver.Value
	// affected rows per execution
	affected int64
}

func (r *recorder) log(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

// calls returns the recorded events, minus connection and statement lifecycle noise.
func (r *recorder) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.DeleteFunc(slices.Clone(r.events), func(e string) bool {
		return e == "connect" || e == "close conn" || e == "close stmt" || strings.HasPrefix(e, "prepare")
	})
}

func (r *recorder) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == event {
			n++
		}
	}
	return n
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// exec records one execution, returning its result.
func (r *recorder) exec(args []driver.Value) (driver.Result, error) {
	r.mu.Lock()
	r.execs++
	n := r.execs
	r.mu.Unlock()
	r.log("exec %v", args)
	if n == r.failAt {
		return nil, errors.New("boom")
	}
	return fakeResult{id: int64(n), missing: r.missing[n], affected: r.affected}, nil
}

// fakeDB opens a DB over a new recorder.
func fakeDB(t *testing.T, rec *recorder, opts ...Option) *DB {
	t.Helper()
	if rec.affected == 0 {
		rec.affected = 1
	}
	db := NewDB(sql.OpenDB(fakeConnector{rec}), opts...)
	t.Cleanup(func() { db.Close() })
	return db
}

////////////////////////////////////////////////////////////////////////////////

type fakeConnector struct{ rec *recorder }

func (c fakeConnector) Connect(context.Context) (driver.Conn, error) {
	c.rec.log("connect")
	conn := &fakeConn{rec: c.rec}
	switch {
	case c.rec.meta != nil:
		return &metaConn{fakeConn: conn, caps: *c.rec.meta}, nil
	case c.rec.batch:
		return &batchConn{fakeConn: conn}, nil
	}
	return conn, nil
}

func (fakeConnector) Driver() driver.Driver { return fakeDriver{} }

type fakeDriver struct{}

func (fakeDriver) Open(string) (driver.Conn, error) {
	return nil, errors.New("use the connector")
}

type fakeConn struct{ rec *recorder }

func (c *fakeConn) Prepare(query string) (driver.Stmt, error) {
	c.rec.log("prepare %s", query)
	return &fakeStmt{rec: c.rec, query: query}, nil
}

func (c *fakeConn) Close() error {
	c.rec.log("close conn")
	return nil
}

func (c *fakeConn) Begin() (driver.Tx, error) {
	c.rec.log("begin")
	return fakeTx{c.rec}, nil
}

// batchConn supports batches.
type batchConn struct{ *fakeConn }

func (c *batchConn) ExecBatch(_ context.Context, _ string, args [][]driver.NamedValue) ([]driver.Result, error) {
	c.rec.log("batch %d", len(args))
	results := make([]driver.Result, 0, len(args))
	for _, named := range args {
		values := make([]driver.Value, len(named))
		for i, nv := range named {
			values[i] = nv.Value
		}
		res, err := c.rec.exec(values)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// metaConn reports its capabilities.
type metaConn struct {
	*fakeConn
	caps capabilities
}

func (c *metaConn) SupportsBatch() bool        { return c.caps.batch }
func (c *metaConn) SupportsTransactions() bool { return c.caps.tx }

func (c *metaConn) ExecBatch(ctx context.Context, query string, args [][]driver.NamedValue) ([]driver.Result, error) {
	return (&batchConn{c.fakeConn}).ExecBatch(ctx, query, args)
}

type fakeTx struct{ rec *recorder }

func (tx fakeTx) Commit() error {
	tx.rec.log("commit")
	return nil
}

func (tx fakeTx) Rollback() error {
	tx.rec.log("rollback")
	return nil
}

type fakeStmt struct {
	rec   *recorder
	query string
}

func (s *fakeStmt) Close() error {
	s.rec.log("close stmt")
	return nil
}

func (s *fakeStmt) NumInput() int { return -1 }

func (s *fakeStmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.rec.exec(args)
}

func (s *fakeStmt) Query(args []driver.Value) (driver.Rows, error) {
	s.rec.log("query %v", args)
	s.rec.mu.Lock()
	defer s.rec.mu.Unlock()
	return &fakeRows{columns: s.rec.columns, rows: s.rec.rows}, nil
}

type fakeResult struct {
	id       int64
	missing  bool
	affected int64
}

func (r fakeResult) LastInsertId() (int64, error) {
	if r.missing {
		return 0, errors.New("no key generated")
	}
	return r.id, nil
}

func (r fakeResult) RowsAffected() (int64, error) { return r.affected, nil }

type fakeRows struct {
	columns []string
	rows    [][]driver.Value
	i       int
}

func (r *fakeRows) Columns() []string { return r.columns }
func (r *fakeRows) Close() error      { return nil }

func (r *fakeRows) Next(dest []driver.Value) error {
	if r.i >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.i])
	r.i++
	return nil
}
