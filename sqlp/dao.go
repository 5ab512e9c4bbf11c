package sqlp

import (
	"context"
	"errors"
	"sync"

	"github.com/greghart/daop/errp"
)

// Statements are the statements a DAO runs. An empty statement leaves its operation unavailable.
type Statements struct {
	// Insert binds Table.InsertColumns
	Insert string
	// Update binds Table.UpdateColumns then Table.KeyColumns
	Update string
	// Delete binds Table.KeyColumns
	Delete string
}

// DAO provides a data access layer for a specific entity. Its handlers share one connection.
type DAO[E any] struct {
	*DB
	Inserter *InsertHandler[E]
	Updater  *UpdateHandler[E]
	Deleter  *DeleteHandler[E]

	conn    *SharedConnection
	table   *Table
	queries sync.Map // map[string]*QueryHandler[E]
}

var errUnavailable = errors.New("no statement given")

func NewDAO[E any](db *DB, statements Statements, opts ...HandlerOption) (*DAO[E], error) {
	table, err := TableOf[E](db)
	if err != nil {
		return nil, err
	}
	dao := &DAO[E]{DB: db, conn: db.NewSharedConnection(), table: table}
	opts = append(opts, OnConnection(dao.conn))

	if statements.Insert != "" {
		if dao.Inserter, err = NewInsertHandler[E](db, statements.Insert, opts...); err != nil {
			return nil, err
		}
	}
	if statements.Update != "" {
		if dao.Updater, err = NewUpdateHandler[E](db, statements.Update, opts...); err != nil {
			return nil, err
		}
	}
	if statements.Delete != "" {
		if dao.Deleter, err = NewDeleteHandler[E](db, statements.Delete, opts...); err != nil {
			return nil, err
		}
	}
	return dao, nil
}

// Table returns the entity's table.
func (dao *DAO[E]) Table() *Table {
	return dao.table
}

// Connection returns the connection the DAO's handlers share, for handlers of your own.
func (dao *DAO[E]) Connection() *SharedConnection {
	return dao.conn
}

func (dao *DAO[E]) Insert(ctx context.Context, e E) error {
	if dao.Inserter == nil {
		return errp.Resolution("insert", "%v", errUnavailable)
	}
	return dao.Inserter.Insert(ctx, e)
}

func (dao *DAO[E]) Update(ctx context.Context, e E) (int64, error) {
	if dao.Updater == nil {
		return 0, errp.Resolution("update", "%v", errUnavailable)
	}
	return dao.Updater.Update(ctx, e)
}

func (dao *DAO[E]) Delete(ctx context.Context, e E) (int64, error) {
	if dao.Deleter == nil {
		return 0, errp.Resolution("delete", "%v", errUnavailable)
	}
	return dao.Deleter.Delete(ctx, e)
}

// Find retrieves an entity by its primary key.
// Note, this is setup for reference as much as usage. Such methods are trivial to write yourself
// with a QueryHandler.
func (dao *DAO[E]) Find(ctx context.Context, id any) (E, error) {
	keys := dao.table.KeyColumns()
	if len(keys) != 1 {
		var entity E
		return entity, errp.Resolution(dao.table.Name, "find needs exactly one key column, got %d", len(keys))
	}
	return dao.Get(
		ctx,
		"SELECT * FROM "+dao.table.Name+" WHERE "+keys[0]+" = ?",
		id,
	)
}

// Get returns the first entity q selects, or the zero entity.
func (dao *DAO[E]) Get(ctx context.Context, q string, args ...any) (E, error) {
	h, err := dao.query(q)
	if err != nil {
		var entity E
		return entity, err
	}
	return h.One(ctx, args...)
}

// Select returns every entity q selects.
func (dao *DAO[E]) Select(ctx context.Context, q string, args ...any) ([]E, error) {
	h, err := dao.query(q)
	if err != nil {
		return nil, err
	}
	return h.List(ctx, args...)
}

// query returns the handler of q, so repeated queries reuse their statement.
func (dao *DAO[E]) query(q string) (*QueryHandler[E], error) {
	if h, ok := dao.queries.Load(q); ok {
		return h.(*QueryHandler[E]), nil
	}
	h, err := NewQueryHandler[E](dao.DB, q, OnConnection(dao.conn))
	if err != nil {
		return nil, err
	}
	actual, _ := dao.queries.LoadOrStore(q, h)
	return actual.(*QueryHandler[E]), nil
}
