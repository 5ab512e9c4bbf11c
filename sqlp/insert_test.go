package sqlp

import (
	"context"
	"database/sql/driver"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/shopspring/decimal"

	"github.com/greghart/daop/errcmp"
)

func TestInsertHandler_calls(t *testing.T) {
	tests := map[string]struct {
		rec      *recorder
		opts     []Option
		hopts    []HandlerOption
		insert   func(ctx context.Context, h *InsertHandler[user]) error
		expected []string
		err      string
	}{
		"one entity -> one transaction": {
			rec: &recorder{batch: true},
			insert: func(ctx context.Context, h *InsertHandler[user]) error {
				return h.Insert(ctx, user{Name: "a"})
			},
			expected: []string{"begin", "exec [a <nil> ACTIVE 0]", "commit"},
		},
		"many entities with batches -> one batch": {
			rec: &recorder{batch: true},
			insert: func(ctx context.Context, h *InsertHandler[user]) error {
				return h.InsertAll(ctx, user{Name: "a"}, user{Name: "b", Status: banned})
			},
			expected: []string{
				"begin",
				"batch 2",
				"exec [a <nil> ACTIVE 0]",
				"exec [b <nil> BANNED 0]",
				"commit",
			},
		},
		"many entities without batches -> sequential": {
			rec: &recorder{},
			insert: func(ctx context.Context, h *InsertHandler[user]) error {
				return h.InsertAll(ctx, user{Name: "a"}, user{Name: "b"})
			},
			expected: []string{"begin", "exec [a <nil> ACTIVE 0]", "exec [b <nil> ACTIVE 0]", "commit"},
		},
		"batches turned off -> sequential": {
			rec:  &recorder{batch: true},
			opts: []Option{WithBatchSupport(false)},
			insert: func(ctx context.Context, h *InsertHandler[user]) error {
				return h.InsertAll(ctx, user{Name: "a"}, user{Name: "b"})
			},
			expected: []string{"begin", "exec [a <nil> ACTIVE 0]", "exec [b <nil> ACTIVE 0]", "commit"},
		},
		"keys by last insert id -> still batched": {
			rec: &recorder{batch: true},
			insert: func(ctx context.Context, h *InsertHandler[user]) error {
				_, err := h.InsertAndReturnIDs(ctx, user{Name: "a"}, user{Name: "b"})
				return err
			},
			expected: []string{"begin", "batch 2", "exec [a <nil> ACTIVE 0]", "exec [b <nil> ACTIVE 0]", "commit"},
		},
		"keys by returning -> sequential queries": {
			rec:   &recorder{batch: true, columns: []string{"id"}, rows: [][]driver.Value{{int64(7)}}},
			hopts: []HandlerOption{WithKeyMode(KeyReturning)},
			insert: func(ctx context.Context, h *InsertHandler[user]) error {
				_, err := h.InsertAndReturnIDs(ctx, user{Name: "a"}, user{Name: "b"})
				return err
			},
			expected: []string{"begin", "query [a <nil> ACTIVE 0]", "query [b <nil> ACTIVE 0]", "commit"},
		},
		"no transactions -> no begin or commit": {
			rec:  &recorder{},
			opts: []Option{WithTxSupport(false)},
			insert: func(ctx context.Context, h *InsertHandler[user]) error {
				return h.InsertAll(ctx, user{Name: "a"}, user{Name: "b"})
			},
			expected: []string{"exec [a <nil> ACTIVE 0]", "exec [b <nil> ACTIVE 0]"},
		},
		"failure -> rollback": {
			rec: &recorder{failAt: 2},
			insert: func(ctx context.Context, h *InsertHandler[user]) error {
				return h.InsertAll(ctx, user{Name: "a"}, user{Name: "b"}, user{Name: "c"})
			},
			expected: []string{"begin", "exec [a <nil> ACTIVE 0]", "exec [b <nil> ACTIVE 0]", "rollback"},
			err:      "driver error in insert",
		},
		"failed batch -> rollback": {
			rec: &recorder{batch: true, failAt: 1},
			insert: func(ctx context.Context, h *InsertHandler[user]) error {
				return h.InsertAll(ctx, user{Name: "a"}, user{Name: "b"})
			},
			expected: []string{"begin", "batch 2", "exec [a <nil> ACTIVE 0]", "rollback"},
			err:      "boom",
		},
		"unbindable entity -> nothing runs": {
			rec: &recorder{},
			insert: func(ctx context.Context, h *InsertHandler[user]) error {
				return h.InsertAll(ctx, user{Name: "a"}, user{Name: "b", Status: status(9)})
			},
			err: "unknown name",
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			db := fakeDB(t, test.rec, test.opts...)
			h, err := NewInsertHandler[user](db, insertUser, test.hopts...)
			errcmp.MustMatch(t, err, "")

			err = test.insert(context.Background(), h)
			errcmp.MustMatch(t, err, test.err)
			if diff := cmp.Diff(test.expected, test.rec.calls(), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("unexpected calls (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInsertHandler_keys(t *testing.T) {
	ctx := context.Background()
	users := []user{{Name: "a"}, {Name: "b"}, {Name: "c"}}

	for _, batch := range []bool{false, true} {
		name := "sequential"
		if batch {
			name = "batched"
		}
		t.Run(name, func(t *testing.T) {
			// the second execution generates no key
			newHandler := func(t *testing.T) *InsertHandler[user] {
				db := fakeDB(t, &recorder{batch: batch, missing: map[int]bool{2: true}})
				h, err := NewInsertHandler[user](db, insertUser)
				errcmp.MustMatch(t, err, "")
				return h
			}

			ids, err := newHandler(t).InsertAndReturnIDs(ctx, users...)
			errcmp.MustMatch(t, err, "")
			if diff := cmp.Diff([]int64{1, 0, 3}, ids); diff != "" {
				t.Errorf("unexpected ids (-want +got):\n%s", diff)
			}

			boxed, err := newHandler(t).InsertAndReturnBoxedIDs(ctx, users...)
			errcmp.MustMatch(t, err, "")
			one, three := int64(1), int64(3)
			if diff := cmp.Diff([]*int64{&one, nil, &three}, boxed); diff != "" {
				t.Errorf("unexpected boxed ids (-want +got):\n%s", diff)
			}

			list, err := newHandler(t).InsertAndReturnIDList(ctx, users...)
			errcmp.MustMatch(t, err, "")
			if diff := cmp.Diff([]int64{1, 3}, list); diff != "" {
				t.Errorf("unexpected id list (-want +got):\n%s", diff)
			}
		})
	}

	t.Run("single entity without a key -> 0", func(t *testing.T) {
		db := fakeDB(t, &recorder{missing: map[int]bool{1: true}})
		h, err := NewInsertHandler[user](db, insertUser)
		errcmp.MustMatch(t, err, "")
		id, err := h.InsertAndReturnID(ctx, user{Name: "a"})
		errcmp.MustMatch(t, err, "")
		if id != 0 {
			t.Errorf("got id %d, expected 0", id)
		}
	})

	t.Run("returning", func(t *testing.T) {
		db := fakeDB(t, &recorder{columns: []string{"id"}, rows: [][]driver.Value{{int64(42)}}})
		h, err := NewInsertHandler[user](db, insertUser, WithKeyMode(KeyReturning))
		errcmp.MustMatch(t, err, "")
		id, err := h.InsertAndReturnID(ctx, user{Name: "a"})
		errcmp.MustMatch(t, err, "")
		if id != 42 {
			t.Errorf("got id %d, expected 42", id)
		}
	})

	t.Run("returning no row -> 0", func(t *testing.T) {
		db := fakeDB(t, &recorder{columns: []string{"id"}})
		h, err := NewInsertHandler[user](db, insertUser, WithKeyMode(KeyReturning))
		errcmp.MustMatch(t, err, "")
		ids, err := h.InsertAndReturnBoxedIDs(ctx, user{Name: "a"})
		errcmp.MustMatch(t, err, "")
		if diff := cmp.Diff([]*int64{nil}, ids); diff != "" {
			t.Errorf("unexpected ids (-want +got):\n%s", diff)
		}
	})

	t.Run("nothing to insert", func(t *testing.T) {
		db := fakeDB(t, &recorder{})
		h, err := NewInsertHandler[user](db, insertUser)
		errcmp.MustMatch(t, err, "")
		ids, err := h.InsertAndReturnIDs(ctx)
		errcmp.MustMatch(t, err, "")
		if len(ids) != 0 {
			t.Errorf("got %v, expected no ids", ids)
		}
	})
}

func TestInsertHandler_parameterCount(t *testing.T) {
	db := fakeDB(t, &recorder{})
	h, err := NewInsertHandler[user](db, "INSERT INTO users (name) VALUES (?)")
	errcmp.MustMatch(t, err, "")
	err = h.Insert(context.Background(), user{Name: "a"})
	errcmp.MustMatch(t, err, "statement binds 1 parameters, got 4")
}

func TestInsertHandler_sqlite(t *testing.T) {
	db, ctx := testDB(t)
	h, err := NewInsertHandler[user](db, insertUser)
	errcmp.MustMatch(t, err, "")

	ids, err := h.InsertAndReturnIDs(ctx,
		user{Name: "a", Balance: decimal.NewFromInt(10)},
		user{Name: "b", Email: strp("b@example.com")},
	)
	errcmp.MustMatch(t, err, "")
	if diff := cmp.Diff([]int64{1, 2}, ids); diff != "" {
		t.Errorf("unexpected ids (-want +got):\n%s", diff)
	}

	var got []user
	errcmp.MustMatch(t, db.Select(ctx, &got, "SELECT * FROM users ORDER BY id"), "")
	expected := []user{
		{ID: 1, Name: "a", Balance: decimal.NewFromInt(10)},
		{ID: 2, Name: "b", Email: strp("b@example.com")},
	}
	if !cmp.Equal(expected, got, userComparer) {
		t.Errorf("unexpected users:\n%v", cmp.Diff(expected, got, userComparer))
	}
}

func TestInsertHandler_postgres(t *testing.T) {
	db, ctx := testPG(t)
	// KeyAuto reads keys with RETURNING on postgres
	h, err := NewInsertHandler[user](db, insertUser+" RETURNING id")
	errcmp.MustMatch(t, err, "")

	ids, err := h.InsertAndReturnIDs(ctx, user{Name: "a"}, user{Name: "b", Status: banned})
	errcmp.MustMatch(t, err, "")
	if len(ids) != 2 || ids[0] == 0 || ids[1] <= ids[0] {
		t.Errorf("got ids %v, expected two increasing keys", ids)
	}

	var got user
	errcmp.MustMatch(t, db.Get(ctx, &got, "SELECT * FROM users WHERE id = ?", ids[1]), "")
	expected := user{ID: ids[1], Name: "b", Status: banned}
	if !cmp.Equal(expected, got, userComparer) {
		t.Errorf("unexpected user:\n%v", cmp.Diff(expected, got, userComparer))
	}
}
