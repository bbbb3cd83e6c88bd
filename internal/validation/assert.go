// Package validation provides helpers for defensive programming and contract
// enforcement.
package validation

import "fmt"

// AssertNotNil panics if the provided pointer is nil. Intended for
// constructors where dependencies are mandatory.
func AssertNotNil[T any](ptr *T, name string) {
	if ptr == nil {
		panic(fmt.Sprintf("critical error: %s cannot be nil", name))
	}
}

// Assertf panics with a formatted message when cond is false. Backs the
// strict-mode existence checks: an unknown toggle name is a programming
// error, not a runtime condition.
func Assertf(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}
