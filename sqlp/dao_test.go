package sqlp

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/greghart/daop/errcmp"
)

func TestNewDAO(t *testing.T) {
	db := fakeDB(t, &recorder{})

	tests := map[string]struct {
		dao      func() error
		expected string
	}{
		"no fields -> nil": {
			dao: func() error {
				_, err := NewDAO[struct{}](db, Statements{})
				return err
			},
		},
		"user -> nil": {
			dao: func() error {
				_, err := NewDAO[user](db, Statements{Insert: insertUser, Update: updateUser, Delete: deleteUser})
				return err
			},
		},
		"bad fields -> err": {
			dao: func() error {
				type badFields struct {
					ID   int    `sqlp:"id"`
					Name string `sqlp:"id"` // duplicate tag
				}
				_, err := NewDAO[badFields](db, Statements{})
				return err
			},
			expected: "duplicate column name id",
		},
		"bad but deep fields -> err": {
			dao: func() error {
				type badFields struct {
					ID   int    `sqlp:"id"`
					Name string `sqlp:"id"` // duplicate tag
				}
				type parent struct {
					Bad badFields `sqlp:"bad,promote"`
				}
				_, err := NewDAO[parent](db, Statements{})
				return err
			},
			expected: "failed to process sub struct Bad: duplicate column name bad_id",
		},
		"unbindable field -> err": {
			dao: func() error {
				type badType struct {
					Sub struct{ A int } `sqlp:"sub"`
				}
				_, err := NewDAO[badType](db, Statements{})
				return err
			},
			expected: "badType.Sub",
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			errcmp.MustMatch(t, test.dao(), test.expected)
		})
	}
}

func TestDAO(t *testing.T) {
	db, ctx := testDB(t)
	dao, err := NewDAO[user](db, Statements{Insert: insertUser, Update: updateUser, Delete: deleteUser})
	errcmp.MustMatch(t, err, "")

	errcmp.MustMatch(t, dao.Insert(ctx, user{Name: "a", Balance: decimal.NewFromInt(5)}), "")
	errcmp.MustMatch(t, dao.Insert(ctx, user{Name: "b"}), "")

	t.Run("find", func(t *testing.T) {
		got, err := dao.Find(ctx, 1)
		errcmp.MustMatch(t, err, "")
		expected := user{ID: 1, Name: "a", Balance: decimal.NewFromInt(5)}
		if !cmp.Equal(expected, got, userComparer) {
			t.Errorf("unexpected user:\n%v", cmp.Diff(expected, got, userComparer))
		}
	})

	t.Run("update", func(t *testing.T) {
		n, err := dao.Update(ctx, user{ID: 2, Name: "bee", Status: banned})
		errcmp.MustMatch(t, err, "")
		if n != 1 {
			t.Fatalf("got %d updated, expected 1", n)
		}
		got, err := dao.Get(ctx, "SELECT * FROM users WHERE name = ?", "bee")
		errcmp.MustMatch(t, err, "")
		if got.ID != 2 || got.Status != banned {
			t.Errorf("got %+v, expected the updated user", got)
		}
	})

	t.Run("delete", func(t *testing.T) {
		n, err := dao.Delete(ctx, user{ID: 1})
		errcmp.MustMatch(t, err, "")
		if n != 1 {
			t.Fatalf("got %d deleted, expected 1", n)
		}
		got, err := dao.Select(ctx, "SELECT * FROM users ORDER BY id")
		errcmp.MustMatch(t, err, "")
		if len(got) != 1 || got[0].ID != 2 {
			t.Errorf("got %+v, expected only user 2 left", got)
		}
	})

	t.Run("queries share a handler per statement", func(t *testing.T) {
		first, err := dao.query("SELECT * FROM users")
		errcmp.MustMatch(t, err, "")
		second, err := dao.query("SELECT * FROM users")
		errcmp.MustMatch(t, err, "")
		if first != second {
			t.Errorf("expected one handler per query")
		}
		if first.conn != dao.Connection() || dao.Inserter.conn != dao.Connection() {
			t.Errorf("expected handlers on the DAO's connection")
		}
	})

	t.Run("handlers of our own", func(t *testing.T) {
		h, err := NewQueryHandler[string](db, "SELECT name FROM users", OnConnection(dao.Connection()))
		errcmp.MustMatch(t, err, "")
		names, err := h.List(ctx)
		errcmp.MustMatch(t, err, "")
		if diff := cmp.Diff([]string{"bee"}, names); diff != "" {
			t.Errorf("unexpected names (-want +got):\n%s", diff)
		}
	})

	t.Run("in a transaction", func(t *testing.T) {
		err := db.RunInTx(ctx, func(ctx context.Context) error {
			if err := dao.Insert(ctx, user{Name: "c"}); err != nil {
				return err
			}
			got, err := dao.Get(ctx, "SELECT * FROM users WHERE name = ?", "c")
			if err != nil {
				return err
			}
			if got.ID == 0 {
				t.Errorf("expected the insert visible inside the transaction")
			}
			return nil
		})
		errcmp.MustMatch(t, err, "")
	})
}

func TestDAO_unavailable(t *testing.T) {
	db := fakeDB(t, &recorder{})
	dao, err := NewDAO[user](db, Statements{})
	errcmp.MustMatch(t, err, "")
	ctx := context.Background()

	errcmp.MustMatch(t, dao.Insert(ctx, user{}), "resolution error in insert: no statement given")
	_, err = dao.Update(ctx, user{})
	errcmp.MustMatch(t, err, "resolution error in update: no statement given")
	_, err = dao.Delete(ctx, user{})
	errcmp.MustMatch(t, err, "resolution error in delete: no statement given")

	type pair struct {
		A int64 `sqlp:"a,pk"`
		B int64 `sqlp:"b,pk"`
	}
	pairs, err := NewDAO[pair](db, Statements{})
	errcmp.MustMatch(t, err, "")
	_, err = pairs.Find(ctx, 1)
	errcmp.MustMatch(t, err, "find needs exactly one key column, got 2")
}
