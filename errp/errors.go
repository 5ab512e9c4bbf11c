// errp is the error family shared by binding resolution and statement execution.
//   - Resolution errors are raised while resolving declarations, and are fatal for that declaration only.
//   - Data errors are raised at runtime when a stored value can't be represented (unexpected NULL, unknown enum name).
//   - Driver errors wrap failures reported by the underlying database/sql driver.
//
// All of them are *Error, so callers match with errors.Is against the Err* sentinels.
package errp

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Kind classifies an Error.
type Kind uint8

const (
	KindResolution Kind = iota + 1
	KindData
	KindDriver
)

func (k Kind) String() string {
	switch k {
	case KindResolution:
		return "resolution"
	case KindData:
		return "data"
	case KindDriver:
		return "driver"
	}
	return "unknown"
}

var (
	// ErrResolution matches every resolution error with errors.Is
	ErrResolution = &Error{Kind: KindResolution}
	// ErrData matches every data error with errors.Is
	ErrData = &Error{Kind: KindData}
	// ErrDriver matches every driver error with errors.Is
	ErrDriver = &Error{Kind: KindDriver}
)

// Error is the single error type surfaced by this module.
type Error struct {
	Kind Kind
	// Op names the declaration or operation that failed, eg. "User.Name" or "insert".
	Op  string
	Err error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.prefix()
	}
	return e.prefix() + ": " + e.Err.Error()
}

// prefix is "<kind> error", plus " in <op>" when there is one.
func (e *Error) prefix() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	b.WriteString(" error")
	if e.Op != "" {
		b.WriteString(" in ")
		b.WriteString(e.Op)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Cause supports github.com/pkg/errors.Cause
func (e *Error) Cause() error {
	return e.Err
}

// Is reports whether target is a sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Err == nil && t.Op == "" {
		return e.Kind == t.Kind
	}
	return e == t
}

// Format supports %+v printing of the underlying stack.
func (e *Error) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') && e.Err != nil {
		fmt.Fprintf(s, "%s: %+v", e.prefix(), e.Err)
		return
	}
	fmt.Fprint(s, e.Error())
}

////////////////////////////////////////////////////////////////////////////////

// Resolution builds a resolution error for the named declaration.
func Resolution(op string, format string, args ...any) error {
	return &Error{Kind: KindResolution, Op: op, Err: errors.Errorf(format, args...)}
}

// Data builds a data error for the named operation.
func Data(op string, format string, args ...any) error {
	return &Error{Kind: KindData, Op: op, Err: errors.Errorf(format, args...)}
}

// Driver wraps err as a driver error. Errors already in the family pass through untouched.
func Driver(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindDriver, Op: op, Err: errors.WithStack(err)}
}

// WithOp re-labels a family error with an outer declaration, keeping its kind.
// Errors outside the family become driver errors.
func WithOp(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if !errors.As(err, &e) {
		return Driver(op, err)
	}
	if e.Op == op {
		return err
	}
	inner := e.Err
	if e.Op != "" {
		inner = errors.Wrap(inner, e.Op)
	}
	return &Error{Kind: e.Kind, Op: op, Err: inner}
}
