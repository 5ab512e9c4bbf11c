package sqlp

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/jmoiron/sqlx"

	"github.com/greghart/daop/bindp"
	"github.com/greghart/daop/errp"
	"github.com/greghart/daop/queryp"
	"github.com/greghart/daop/typep"
)

// DB extends the stdlib sql.DB type with binders, handlers and shared connections.
type DB struct {
	*sql.DB
	driverName     string
	bindType       int
	placeholderer  queryp.Placeholderer
	registry       *bindp.Registry
	logger         *slog.Logger
	atomicMultiRow bool

	// capabilities, probed once
	batchOverride *bool
	txOverride    *bool
	capsMu        sync.Mutex
	caps          atomic.Pointer[capabilities]

	tablesMu sync.Mutex
	tables   map[reflect.Type]*Table

	closersMu sync.Mutex
	closers   []io.Closer
}

// NewDB builds a new sqlp.DB for when you already have an existing sql.DB.
// Pass WithDriverName so placeholders match the driver.
func NewDB(db *sql.DB, opts ...Option) *DB {
	d := &DB{
		DB:       db,
		registry: bindp.NewRegistry(),
		logger:   slog.Default(),
		tables:   map[reflect.Type]*Table{},
	}
	for _, opt := range opts {
		opt(d)
	}
	d.bindType = sqlx.BindType(d.driverName)
	d.placeholderer = queryp.PlaceholdererFor(d.driverName)
	return d
}

func Open(driverName, dataSourceName string, opts ...Option) (*DB, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}

	return NewDB(db, append([]Option{WithDriverName(driverName)}, opts...)...), nil
}

// Registry returns the registry binders are resolved from.
func (db *DB) Registry() *bindp.Registry {
	return db.registry
}

// Rebind rewrites question mark placeholders into the driver's style.
func (db *DB) Rebind(query string) string {
	return sqlx.Rebind(db.bindType, query)
}

// Close closes every shared connection, then the database.
func (db *DB) Close() error {
	db.closersMu.Lock()
	closers := db.closers
	db.closers = nil
	db.closersMu.Unlock()

	var errs errp.List
	for i := len(closers) - 1; i >= 0; i-- {
		errs = errs.Add(closers[i].Close())
	}
	errs = errs.Add(db.DB.Close())
	return errs.Err()
}

// track registers c to be closed along with the database.
func (db *DB) track(c io.Closer) {
	db.closersMu.Lock()
	defer db.closersMu.Unlock()
	db.closers = append(db.closers, c)
}

////////////////////////////////////////////////////////////////////////////////
// Standardized APIs

// Exec runs ExecContext.
func (db *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.queryer(ctx).ExecContext(ctx, db.Rebind(query), args...)
}

// Query runs QueryContext.
func (db *DB) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.queryer(ctx).QueryContext(ctx, db.Rebind(query), args...)
}

// QueryRow runs QueryRowContext.
func (db *DB) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return db.queryer(ctx).QueryRowContext(ctx, db.Rebind(query), args...)
}

////////////////////////////////////////////////////////////////////////////////
// Transactional APIs

type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type contextKeyType string

const (
	ctxKey = contextKeyType("sqlp")
)

// RunInTx runs the callback fxn in a transaction, on its own managed connection.
// If context already has a transaction, it will use that one.
// You can return an error from the callback to trigger the transaction to rollback.
// Handlers called with the callback's context join the transaction.
func (db *DB) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	if db.unit(ctx) != nil {
		return fn(ctx)
	}

	unit, err := db.Manage(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := unit.Close(); err != nil {
			db.logger.WarnContext(ctx, "failed to release transaction connection", "error", err)
		}
	}()
	if err := unit.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		if err := unit.Rollback(); err != nil {
			// Rolled back due to error, but errored on rollback.
			db.logger.WarnContext(ctx, "failed to rollback transaction", "error", err)
		}
	}()

	if err := fn(context.WithValue(ctx, ctxKey, unit)); err != nil {
		return err
	}

	return unit.Commit()
}

// queryer returns the proper queryer for context, whether a Tx or normal DB.
func (db *DB) queryer(ctx context.Context) Queryer {
	if unit := db.unit(ctx); unit != nil {
		return unit.conn.queryer()
	}
	return db.DB
}

// unit returns the context's current unit of work if any.
func (db *DB) unit(ctx context.Context) *ManagedConnection {
	if unit, ok := ctx.Value(ctxKey).(*ManagedConnection); ok && unit.conn.db == db && !unit.closed.Load() {
		return unit
	}
	return nil
}

////////////////////////////////////////////////////////////////////////////////
// Binding

// Args writes each argument through its resolved binder. Driver valuers, including bindp.Null,
// and nil pass through.
func (db *DB) Args(args ...any) ([]any, error) {
	out := make([]any, len(args))
	for i, arg := range args {
		switch arg.(type) {
		case nil, driver.Valuer:
			out[i] = arg
			continue
		}
		b, err := db.registry.Resolve(typep.OfValue(arg), typep.Undefined)
		if err != nil {
			return nil, errp.WithOp(fmt.Sprintf("argument %d", i+1), err)
		}
		if out[i], err = b.Write(arg); err != nil {
			return nil, errp.WithOp(fmt.Sprintf("argument %d", i+1), err)
		}
	}
	return out, nil
}

////////////////////////////////////////////////////////////////////////////////
// Reflective APIs

// Get runs a query and scans the single row result into dest, a pointer to a struct.
func (db *DB) Get(ctx context.Context, dest any, query string, args ...any) error {
	destType := reflect.TypeOf(dest)
	if destType == nil || destType.Kind() != reflect.Pointer {
		return fmt.Errorf("get given %T, wanted a pointer", dest)
	}
	table, err := db.Table(destType.Elem())
	if err != nil {
		return err
	}

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return errp.Driver("get", err)
	}
	defer rows.Close()

	reader, err := table.reader(rows)
	if err != nil {
		return err
	}
	if rows.Next() {
		if err := reader.scan(rows, reflect.ValueOf(dest).Elem()); err != nil {
			return err
		}
	}

	return errp.Driver("get", rows.Err())
}

// Select runs a query and scans the results into dest, a pointer to a slice of structs.
func (db *DB) Select(ctx context.Context, dest any, query string, args ...any) error {
	// Validate destination types, we want a pointer to a slice of structs.
	destType := reflect.TypeOf(dest)
	if destType == nil || destType.Kind() != reflect.Pointer {
		return fmt.Errorf("select given %T, wanted a pointer", dest)
	}
	sliceType := destType.Elem()
	if sliceType.Kind() != reflect.Slice {
		return fmt.Errorf("select given %T, wanted a slice", dest)
	}
	// Do reflection so we can error early before query
	table, err := db.Table(sliceType.Elem())
	if err != nil {
		return err
	}
	destV := reflect.ValueOf(dest).Elem()

	// Run the query
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return errp.Driver("select", err)
	}
	defer rows.Close()

	reader, err := table.reader(rows)
	if err != nil {
		return err
	}
	for rows.Next() {
		val := reflect.New(table.Type).Elem()
		if err := reader.scan(rows, val); err != nil {
			return err
		}
		destV.Set(reflect.Append(destV, val))
	}

	return errp.Driver("select", rows.Err())
}
