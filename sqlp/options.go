package sqlp

import (
	"log/slog"

	"github.com/greghart/daop/bindp"
)

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the logger for statement execution and cleanup failures.
func WithLogger(logger *slog.Logger) Option {
	return func(db *DB) {
		if logger != nil {
			db.logger = logger
		}
	}
}

// WithRegistry sets the registry binders are resolved from, eg. one with converters registered.
func WithRegistry(registry *bindp.Registry) Option {
	return func(db *DB) {
		if registry != nil {
			db.registry = registry
		}
	}
}

// WithDriverName sets the driver name, which picks the placeholder style. Open sets it for you.
func WithDriverName(driverName string) Option {
	return func(db *DB) {
		db.driverName = driverName
	}
}

// WithBatchSupport overrides whether the driver is treated as supporting batches.
func WithBatchSupport(supported bool) Option {
	return func(db *DB) {
		db.batchOverride = &supported
	}
}

// WithTxSupport overrides whether the driver is treated as supporting transactions.
// Without them, begin, commit and rollback are no-ops.
func WithTxSupport(supported bool) Option {
	return func(db *DB) {
		db.txOverride = &supported
	}
}

// WithAtomicMultiRow runs multi row updates and deletes in one transaction, rather than one
// transaction per row.
func WithAtomicMultiRow() Option {
	return func(db *DB) {
		db.atomicMultiRow = true
	}
}

////////////////////////////////////////////////////////////////////////////////

// KeyMode is how generated keys are read back from inserts.
type KeyMode uint8

const (
	// KeyAuto uses RETURNING for drivers with $n placeholders, and LastInsertId otherwise.
	KeyAuto KeyMode = iota
	// KeyLastInsertID reads sql.Result.LastInsertId.
	KeyLastInsertID
	// KeyReturning queries the row the statement's RETURNING clause produces.
	KeyReturning
)

func (m KeyMode) String() string {
	switch m {
	case KeyLastInsertID:
		return "last insert id"
	case KeyReturning:
		return "returning"
	}
	return "auto"
}

// HandlerOption configures a handler.
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	conn    *SharedConnection
	keyMode KeyMode
}

// OnConnection runs the handler over conn, eg. to share one connection between the handlers of a DAO.
// By default every handler gets its own.
func OnConnection(conn *SharedConnection) HandlerOption {
	return func(c *handlerConfig) {
		c.conn = conn
	}
}

// WithKeyMode sets how an insert handler reads generated keys.
func WithKeyMode(mode KeyMode) HandlerOption {
	return func(c *handlerConfig) {
		c.keyMode = mode
	}
}
