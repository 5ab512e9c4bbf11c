package mapperp

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMapper_First(t *testing.T) {
	tests := map[string]struct {
		rows     []row
		start    user
		expected user
	}{
		"single user -> user": {
			rows: []row{
				{user: user{ID: 1, Name: "Alice"}},
			},
			expected: user{ID: 1, Name: "Alice"},
		},
		"two users -> first user": {
			rows: []row{
				{user: user{ID: 1, Name: "Alice"}},
				{user: user{ID: 2, Name: "Bob"}},
			},
			expected: user{ID: 1, Name: "Alice"},
		},
		"no rows -> default": {
			start:    user{Name: "nobody"},
			expected: user{Name: "nobody"},
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			rowMapper := First(func(row *row) *user {
				return &row.user
			})

			result := test.start
			for i, r := range test.rows {
				rowMapper(&result, &r, i)
			}

			if !cmp.Equal(result, test.expected) {
				t.Errorf("mapped user unexpected:\n%v", cmp.Diff(test.expected, result))
			}
		})
	}
}

func TestMapper_Append(t *testing.T) {
	rows := []int64{3, 1, 3}
	rowMapper := Append(Self[int64])

	var result []int64
	for i := range rows {
		rowMapper(&result, &rows[i], i)
	}

	if diff := cmp.Diff([]int64{3, 1, 3}, result); diff != "" {
		t.Errorf("appended rows unexpected (-want +got):\n%v", diff)
	}
}

func TestMapper_Distinct(t *testing.T) {
	tests := map[string]struct {
		rows     []row
		expected []user
	}{
		"single user -> single user": {
			rows: []row{
				{user: user{ID: 1, Name: "Alice"}},
			},
			expected: []user{
				{ID: 1, Name: "Alice"},
			},
		},
		"two users -> two users": {
			rows: []row{
				{user: user{ID: 1, Name: "Alice"}},
				{user: user{ID: 2, Name: "Bob"}},
			},
			expected: []user{
				{ID: 1, Name: "Alice"},
				{ID: 2, Name: "Bob"},
			},
		},
		"two users, three rows -> two users": {
			rows: []row{
				{user: user{ID: 1, Name: "Alice"}},
				{user: user{ID: 2, Name: "Bob"}, order: order{Code: "A-1"}},
				// orders aren't mapped here, so this row adds nothing
				{user: user{ID: 2, Name: "Bob"}, order: order{Code: "A-2"}},
			},
			expected: []user{
				{ID: 1, Name: "Alice"},
				{ID: 2, Name: "Bob"},
			},
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			rowMapper := Distinct(
				func(e *user) int64 {
					return e.ID
				},
				func(row *row) *user {
					return &row.user
				},
			)

			var result []user
			for i, r := range test.rows {
				rowMapper(&result, &r, i)
			}

			if !cmp.Equal(result, test.expected) {
				t.Errorf("mapped users unexpected:\n%v", cmp.Diff(test.expected, result))
			}
		})
	}
}

func TestMapper_All(t *testing.T) {
	tests := map[string]struct {
		rows     []row
		expected []user
	}{
		"single user with orders": {
			rows: []row{
				{user: user{ID: 1, Name: "Alice"}, order: order{Code: "A-1"}},
				{user: user{ID: 1, Name: "Alice"}, order: order{Code: "A-2"}},
			},
			expected: []user{
				{ID: 1, Name: "Alice", Orders: []order{
					{Code: "A-1"},
					{Code: "A-2"},
				}},
			},
		},
		"two users with orders": {
			rows: []row{
				{user: user{ID: 1, Name: "Alice"}, order: order{Code: "A-1"}},
				{user: user{ID: 1, Name: "Alice"}, order: order{Code: "A-2"}},
				{user: user{ID: 2, Name: "Bob"}, order: order{Code: "B-1"}},
				{user: user{ID: 2, Name: "Bob"}, order: order{Code: "B-1"}},
			},
			expected: []user{
				{ID: 1, Name: "Alice", Orders: []order{
					{Code: "A-1"},
					{Code: "A-2"},
				}},
				{ID: 2, Name: "Bob", Orders: []order{
					{Code: "B-1"},
				}},
			},
		},
		"user without orders": {
			rows: []row{
				{user: user{ID: 1, Name: "Alice"}},
			},
			expected: []user{
				{ID: 1, Name: "Alice"},
			},
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			rowMapper := Distinct(
				func(e *user) int64 { return e.ID },
				func(row *row) *user { return &row.user },
				Last(
					InnerSlice(
						func(e *user) *[]order {
							return &e.Orders
						},
						func(e *order) string {
							return e.Code
						},
						func(row *row) *order {
							// left join, no order
							if row.order.Code == "" {
								return nil
							}
							return &row.order
						},
					),
				),
			)

			var result []user
			for i, r := range test.rows {
				rowMapper(&result, &r, i)
			}

			if !cmp.Equal(result, test.expected) {
				t.Errorf("mapped users unexpected:\n%v", cmp.Diff(test.expected, result))
			}
		})
	}
}

////////////////////////////////////////////////////////////////////////////////

// a result from a join of users and their orders
type row struct {
	user
	order
}

type user struct {
	ID     int64
	Name   string
	Orders []order
}

type order struct {
	Code string
}
