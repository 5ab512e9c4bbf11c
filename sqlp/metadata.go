package sqlp

import (
	"context"
	"database/sql"
	"database/sql/driver"

	"github.com/greghart/daop/errp"
)

// Metadata is implemented by driver connections that report what they support.
type Metadata interface {
	SupportsBatch() bool
	SupportsTransactions() bool
}

// BatchExecer is implemented by driver connections that execute one statement over many
// argument sets in a single round trip.
type BatchExecer interface {
	ExecBatch(ctx context.Context, query string, args [][]driver.NamedValue) ([]driver.Result, error)
}

type capabilities struct {
	batch bool
	tx    bool
}

// capabilities probes the driver once per DB, on conn when given so a caller holding the last
// pooled connection doesn't wait on another. Drivers without Metadata are assumed to support
// transactions, and to support batches when they implement BatchExecer.
func (db *DB) capabilities(ctx context.Context, conn *sql.Conn) (capabilities, error) {
	if caps := db.caps.Load(); caps != nil {
		return *caps, nil
	}
	db.capsMu.Lock()
	defer db.capsMu.Unlock()
	if caps := db.caps.Load(); caps != nil {
		return *caps, nil
	}

	caps := capabilities{tx: true}
	if db.batchOverride == nil || db.txOverride == nil {
		if conn == nil {
			pooled, err := db.DB.Conn(ctx)
			if err != nil {
				return caps, errp.Driver("metadata", err)
			}
			defer pooled.Close()
			conn = pooled
		}
		err := conn.Raw(func(dc any) error {
			if md, ok := dc.(Metadata); ok {
				caps = capabilities{batch: md.SupportsBatch(), tx: md.SupportsTransactions()}
			}
			if _, ok := dc.(BatchExecer); !ok {
				caps.batch = false
			} else if _, ok := dc.(Metadata); !ok {
				caps.batch = true
			}
			return nil
		})
		if err != nil {
			return caps, errp.Driver("metadata", err)
		}
	}
	if db.batchOverride != nil {
		caps.batch = *db.batchOverride
	}
	if db.txOverride != nil {
		caps.tx = *db.txOverride
	}

	db.logger.DebugContext(ctx, "probed driver", "driver", db.driverName, "batch", caps.batch, "tx", caps.tx)
	db.caps.Store(&caps)
	return caps, nil
}
