package errp

import "strings"

// List collects errors from sibling declarations, so one bad declaration doesn't hide the rest.
type List []error

// Add appends non nil errors, flattening nested lists.
func (l List) Add(errs ...error) List {
	for _, err := range errs {
		if err == nil {
			continue
		}
		if nested, ok := err.(List); ok {
			l = l.Add(nested...)
			continue
		}
		l = append(l, err)
	}
	return l
}

// Err returns nil for an empty list, so callers can `return errs.Err()`.
func (l List) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}

func (l List) Error() string {
	msgs := make([]string, len(l))
	for i, err := range l {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap lets errors.Is and errors.As see every collected error.
func (l List) Unwrap() []error {
	return l
}
