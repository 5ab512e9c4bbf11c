// mapperp folds scanned rows, one at a time, into the value a query hands back.
//
// Mappers are stateless: everything they need is in the output so far and the row index, so one
// Mapper can be reused across queries and goroutines.
package mapperp

// Mapper folds the i'th row onto out.
type Mapper[Row any, Out any] func(out *Out, row *Row, i int)

// Identifier identifies entities, to tell a new entity from more rows of the current one.
type Identifier[E any, ID comparable] func(e *E) ID

// DataGetter gets a datum out of a row. A nil datum is skipped, eg. the missing side of an outer
// join.
type DataGetter[Row any, Out any] func(row *Row) *Out

// Self is the DataGetter for rows that are the datum themselves.
func Self[Row any](row *Row) *Row {
	return row
}

// First keeps the first row's datum. Without rows, out keeps whatever default it started with.
// The rest of the mappers still see every row.
func First[Row any, Out any](getData DataGetter[Row, Out], rest ...Mapper[Row, Out]) Mapper[Row, Out] {
	return All(
		append(
			[]Mapper[Row, Out]{func(out *Out, row *Row, i int) {
				if i != 0 {
					return
				}
				if datum := getData(row); datum != nil {
					*out = *datum
				}
			}},
			rest...,
		)...,
	)
}

// Append appends every row's datum.
func Append[Row any, Out any](getData DataGetter[Row, Out]) Mapper[Row, []Out] {
	return func(out *[]Out, row *Row, i int) {
		if datum := getData(row); datum != nil {
			*out = append(*out, *datum)
		}
	}
}

// Distinct appends a row's datum when its ID differs from the last appended one, so rows have to
// arrive grouped by ID. The rest of the mappers see every row.
func Distinct[Row any, Out any, ID comparable](
	getID Identifier[Out, ID],
	getData DataGetter[Row, Out],
	rest ...Mapper[Row, []Out],
) Mapper[Row, []Out] {
	return All(
		append(
			[]Mapper[Row, []Out]{func(out *[]Out, row *Row, i int) {
				datum := getData(row)
				if datum == nil {
					return
				}
				if n := len(*out); n > 0 && getID(&(*out)[n-1]) == getID(datum) {
					return
				}
				*out = append(*out, *datum)
			}},
			rest...,
		)...,
	)
}

// Inner runs mappers against a part of the current output.
func Inner[Row any, Out any, In any](
	getInner func(e *Out) *In,
	inner ...Mapper[Row, In],
) Mapper[Row, Out] {
	return func(out *Out, row *Row, i int) {
		if out == nil {
			return
		}
		sub := getInner(out)
		if sub == nil {
			return
		}
		All(inner...)(sub, row, i)
	}
}

// InnerSlice collects distinct children into a slice of the current output.
func InnerSlice[Row any, Out any, In any, ID comparable](
	getInner func(e *Out) *[]In,
	getID Identifier[In, ID],
	getData DataGetter[Row, In],
	inner ...Mapper[Row, []In],
) Mapper[Row, Out] {
	return Inner(getInner, Distinct(getID, getData, inner...))
}

// Last runs mappers against the last element of the output so far.
func Last[Row any, Out any](
	inner ...Mapper[Row, Out],
) Mapper[Row, []Out] {
	return func(out *[]Out, row *Row, i int) {
		if out == nil || len(*out) == 0 {
			return
		}
		All(inner...)(&(*out)[len(*out)-1], row, i)
	}
}

// All runs mappers in sequence.
func All[Row any, Out any](
	mappers ...Mapper[Row, Out],
) Mapper[Row, Out] {
	return func(out *Out, row *Row, i int) {
		for _, mapper := range mappers {
			mapper(out, row, i)
		}
	}
}
