package queryp

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Args build placeholder arguments for a query, one placeholder per added argument.
type Args struct {
	placeholderer Placeholderer
	args          []any
}

// Placeholderer renders the placeholder of the i'th (zero based) argument.
type Placeholderer func(i int) string

func NewArgs() *Args {
	return &Args{
		placeholderer: QuestionPlaceholderer,
	}
}

func (a *Args) WithPlaceholderer(p Placeholderer) *Args {
	if p != nil {
		a.placeholderer = p
	}
	return a
}

// Add adds an argument and returns a placeholder for it.
func (a *Args) Add(arg any) string {
	a.args = append(a.args, arg)
	return a.placeholderer(len(a.args) - 1)
}

func (a *Args) Args() []any {
	return a.args
}

func (a *Args) Len() int {
	return len(a.args)
}

////////////////////////////////////////////////////////////////////////////////

// QuestionPlaceholderer is used by sqlite and mysql.
var QuestionPlaceholderer Placeholderer = func(int) string {
	return "?"
}

// PostgresPlaceholderer numbers placeholders from $1.
var PostgresPlaceholderer Placeholderer = func(i int) string {
	return fmt.Sprintf("$%d", i+1)
}

var namedPlaceholderer Placeholderer = func(i int) string {
	return fmt.Sprintf(":arg%d", i+1)
}

var atPlaceholderer Placeholderer = func(i int) string {
	return fmt.Sprintf("@p%d", i+1)
}

// PlaceholdererFor returns the placeholder style of a driver, per sqlx's bind types.
// Unknown drivers get question marks.
func PlaceholdererFor(driverName string) Placeholderer {
	switch sqlx.BindType(driverName) {
	case sqlx.DOLLAR:
		return PostgresPlaceholderer
	case sqlx.NAMED:
		return namedPlaceholderer
	case sqlx.AT:
		return atPlaceholderer
	}
	return QuestionPlaceholderer
}
