package sqlp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

type status int

const (
	active status = iota
	banned
)

func (s status) String() string {
	switch s {
	case active:
		return "ACTIVE"
	case banned:
		return "BANNED"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

func (status) EnumValues() []any { return []any{active, banned} }

type user struct {
	ID      int64           `sqlp:"id,pk,default"`
	Name    string          `sqlp:"name"`
	Email   *string         `sqlp:"email"`
	Status  status          `sqlp:"status"`
	Balance decimal.Decimal `sqlp:"balance"`
	Created time.Time       `sqlp:"created_at,default,readonly"`
}

type order struct {
	ID     int64  `sqlp:"id,pk,default"`
	UserID int64  `sqlp:"user_id"`
	Code   string `sqlp:"code"`
}

const (
	insertUser  = "INSERT INTO users (name, email, status, balance) VALUES (?, ?, ?, ?)"
	updateUser  = "UPDATE users SET name = ?, email = ?, status = ?, balance = ? WHERE id = ?"
	deleteUser  = "DELETE FROM users WHERE id = ?"
	insertOrder = "INSERT INTO orders (user_id, code) VALUES (?, ?)"
)

var userComparer = cmp.Options{
	cmpopts.IgnoreFields(user{}, "Created"),
	cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) }),
}

func strp(s string) *string { return &s }

////////////////////////////////////////////////////////////////////////////////

// testDB returns a sqlite database with the users and orders tables.
func testDB(t *testing.T, opts ...Option) (*DB, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000"
	db, err := Open("sqlite3", dsn, opts...)
	if err != nil {
		t.Fatalf("testDB failed to open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("testDB failed to ping: %v", err)
	}
	_, err = db.Exec(ctx, `
		CREATE TABLE users (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT,
			status TEXT NOT NULL,
			balance TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE orders (
			id INTEGER PRIMARY KEY,
			user_id INTEGER NOT NULL,
			code TEXT NOT NULL
		)`)
	if err != nil {
		t.Fatalf("testDB failed to create tables: %v", err)
	}
	return db, ctx
}

// testPG returns a postgres database from SQLP_PG_DSN, skipping the test without one.
func testPG(t *testing.T) (*DB, context.Context) {
	t.Helper()
	dsn := os.Getenv("SQLP_PG_DSN")
	if dsn == "" {
		t.Skip("SQLP_PG_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	db, err := Open("postgres", dsn)
	if err != nil {
		t.Fatalf("testPG failed to open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	for _, q := range []string{
		"DROP TABLE IF EXISTS users",
		`CREATE TABLE users (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT,
			status TEXT NOT NULL,
			balance NUMERIC NOT NULL,
			created_at TIMESTAMPTZ DEFAULT now()
		)`,
	} {
		if _, err := db.Exec(ctx, q); err != nil {
			t.Fatalf("testPG failed to setup: %v", err)
		}
	}
	return db, ctx
}

// seed inserts users, returning them with their ids set.
func seed(t *testing.T, ctx context.Context, db *DB, users ...user) []user {
	t.Helper()
	h, err := NewInsertHandler[user](db, insertUser)
	if err != nil {
		t.Fatalf("seed failed to build handler: %v", err)
	}
	ids, err := h.InsertAndReturnIDs(ctx, users...)
	if err != nil {
		t.Fatalf("seed failed to insert: %v", err)
	}
	for i := range users {
		users[i].ID = ids[i]
	}
	return users
}
