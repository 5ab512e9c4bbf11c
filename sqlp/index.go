package sqlp

import "github.com/greghart/daop/queryp"

// Support top level imports without drilling into our separated packages.
// Just a convenience for users, while letting us keep code organized into sub packages.

func Named(q string) *queryp.NamedQuery {
	return queryp.Named(q)
}
