package sqlp_test

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/greghart/daop/mapperp"
	"github.com/greghart/daop/sqlp"
)

type Status int

const (
	Active Status = iota
	Banned
)

func (s Status) String() string {
	if s == Banned {
		return "BANNED"
	}
	return "ACTIVE"
}

func (Status) EnumValues() []any { return []any{Active, Banned} }

type Account struct {
	ID      int64           `sqlp:"id,pk,default"`
	Owner   string          `sqlp:"owner"`
	Status  Status          `sqlp:"status"`
	Balance decimal.Decimal `sqlp:"balance"`
	timestamps
}

type timestamps struct {
	CreatedAt time.Time `sqlp:"created_at,default,readonly"`
}

// Example shows the setup of a DAO over sqlite, and a one to many read with a fold.
func Example() {
	db, err := sqlp.Open("sqlite3", "file:example.db?mode=memory")
	if err != nil {
		log.Panicf("failed to open: %v", err)
	}
	defer db.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = db.Exec(ctx, `
		CREATE TABLE accounts (
			id INTEGER PRIMARY KEY,
			owner TEXT NOT NULL,
			status TEXT NOT NULL,
			balance TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		log.Panicf("failed to create table: %v", err)
	}

	accounts, err := sqlp.NewDAO[Account](db, sqlp.Statements{
		Insert: "INSERT INTO accounts (owner, status, balance) VALUES (?, ?, ?)",
		Update: "UPDATE accounts SET owner = ?, status = ?, balance = ? WHERE id = ?",
		Delete: "DELETE FROM accounts WHERE id = ?",
	})
	if err != nil {
		log.Panicf("failed to build DAO: %v", err)
	}

	// Inserts and the reads after them share one transaction.
	err = db.RunInTx(ctx, func(ctx context.Context) error {
		ids, err := accounts.Inserter.InsertAndReturnIDs(ctx,
			Account{Owner: "ada", Balance: decimal.NewFromInt(10)},
			Account{Owner: "ada", Balance: decimal.NewFromInt(5), Status: Banned},
		)
		if err != nil {
			return err
		}
		_, err = accounts.Find(ctx, ids[0])
		return err
	})
	if err != nil {
		log.Panicf("failed to insert: %v", err)
	}

	type owner struct {
		Name     string
		Accounts []int64
	}
	h, err := sqlp.NewQueryHandler[Account](db, "SELECT * FROM accounts ORDER BY owner, id")
	if err != nil {
		log.Panicf("failed to build handler: %v", err)
	}
	owners, err := sqlp.Fold(ctx, h, mapperp.Distinct[Account, owner, string](
		func(o *owner) string { return o.Name },
		func(a *Account) *owner { return &owner{Name: a.Owner} },
		mapperp.Last[Account, owner](func(o *owner, a *Account, _ int) {
			o.Accounts = append(o.Accounts, a.ID)
		}),
	))
	if err != nil {
		log.Panicf("failed to fold: %v", err)
	}
	log.Printf("owners: %v", owners)
}
