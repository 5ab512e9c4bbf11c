// errcmp compares errors by message substring, which keeps table tests terse.
package errcmp

import (
	"fmt"
	"strings"
	"testing"
)

// Match returns a description of the mismatch between err and the expected substring, or "" if
// they match. An empty expectation means no error is expected.
func Match(err error, expected string) string {
	switch {
	case err == nil && expected == "":
		return ""
	case err == nil:
		return fmt.Sprintf("got no error, wanted error matching %q", expected)
	case expected == "":
		return fmt.Sprintf("got error %q, wanted no error", err.Error())
	case !strings.Contains(err.Error(), expected):
		return fmt.Sprintf("got error %q, wanted error matching %q", err.Error(), expected)
	}
	return ""
}

// MustMatch fails the test immediately on mismatch.
func MustMatch(t testing.TB, err error, expected string) {
	t.Helper()
	if diff := Match(err, expected); diff != "" {
		t.Fatal(diff)
	}
}

// ShouldMatch reports a mismatch but lets the test continue.
func ShouldMatch(t testing.TB, err error, expected string) {
	t.Helper()
	if diff := Match(err, expected); diff != "" {
		t.Error(diff)
	}
}
