package sqlp

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"log/slog"

	"github.com/greghart/daop/errp"
)

// Statement is a prepared statement with its pending parameters and batch.
// It isn't safe for concurrent use.
type Statement struct {
	conn    *Conn
	stmt    *sql.Stmt
	query   string
	logger  *slog.Logger
	params  []any
	batch   [][]any
	onClose func()
}

// ClearParameters drops the bound parameters.
func (s *Statement) ClearParameters() {
	s.params = s.params[:0]
}

// Bind sets the parameters of the next execution.
func (s *Statement) Bind(args ...any) {
	s.params = append(s.params[:0], args...)
}

// AddBatch queues the bound parameters for ExecuteBatch.
func (s *Statement) AddBatch() {
	s.batch = append(s.batch, append([]any(nil), s.params...))
}

// Execute runs the statement with the bound parameters.
func (s *Statement) Execute(ctx context.Context) (sql.Result, error) {
	s.logger.DebugContext(ctx, "exec", "query", s.query, "args", len(s.params))
	res, err := s.stmt.ExecContext(ctx, s.params...)
	if err != nil {
		return nil, s.conn.fail("exec", err)
	}
	return res, nil
}

// Query runs the statement with the bound parameters. The rows must be closed before the
// connection is released.
func (s *Statement) Query(ctx context.Context) (*sql.Rows, error) {
	s.logger.DebugContext(ctx, "query", "query", s.query, "args", len(s.params))
	rows, err := s.stmt.QueryContext(ctx, s.params...)
	if err != nil {
		return nil, s.conn.fail("query", err)
	}
	return rows, nil
}

// Returning runs the statement and scans the single value its RETURNING clause produces.
// A statement returning no row gives nil.
func (s *Statement) Returning(ctx context.Context) (any, error) {
	s.logger.DebugContext(ctx, "returning", "query", s.query, "args", len(s.params))
	var key any
	if err := s.stmt.QueryRowContext(ctx, s.params...).Scan(&key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, s.conn.fail("exec", err)
	}
	return key, nil
}

// ExecuteBatch runs every queued parameter set in order, in one round trip when the driver is a
// BatchExecer, otherwise one execute at a time. The batch is cleared either way.
func (s *Statement) ExecuteBatch(ctx context.Context) ([]sql.Result, error) {
	batch := s.batch
	s.batch = nil

	var (
		results []sql.Result
		batched bool
	)
	err := s.conn.raw(func(dc any) error {
		be, ok := dc.(BatchExecer)
		if !ok {
			return nil
		}
		args, err := namedValues(batch)
		if err != nil {
			return err
		}
		batched = true
		s.logger.DebugContext(ctx, "exec batch", "query", s.query, "size", len(batch))
		res, err := be.ExecBatch(ctx, s.query, args)
		for _, r := range res {
			results = append(results, r)
		}
		return err
	})
	if err != nil && !errors.Is(err, errRawInUnit) {
		return results, s.conn.fail("exec batch", err)
	}
	if batched {
		return results, nil
	}

	for _, params := range batch {
		s.Bind(params...)
		res, err := s.Execute(ctx)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// Close closes the statement.
func (s *Statement) Close() error {
	if s.onClose != nil {
		s.onClose()
		s.onClose = nil
	}
	if err := s.stmt.Close(); err != nil {
		return errp.Driver("close", err)
	}
	return nil
}

// namedValues converts parameters the way database/sql does for drivers without their own
// converter, so Null and other valuers reach the driver as plain values.
func namedValues(batch [][]any) ([][]driver.NamedValue, error) {
	out := make([][]driver.NamedValue, len(batch))
	for i, params := range batch {
		out[i] = make([]driver.NamedValue, len(params))
		for j, p := range params {
			v, err := driver.DefaultParameterConverter.ConvertValue(p)
			if err != nil {
				return nil, errp.Data("exec batch", "argument %d: %v", j+1, err)
			}
			out[i][j] = driver.NamedValue{Ordinal: j + 1, Value: v}
		}
	}
	return out, nil
}
